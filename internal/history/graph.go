package history

import (
	"fmt"
	"slices"

	"github.com/google/MOE-sub001/internal/ir"
)

// Graph is the immutable record of one crawl: the revisions it started from
// and the metadata of every non-matching revision it visited.
//
// Starting revisions are always present, even when the crawl recorded
// nothing else (for example when a start revision itself matched).
type Graph struct {
	starts  []ir.Revision
	visited map[ir.Revision]ir.Metadata
	order   []ir.Revision
}

// StartingRevisions returns the revisions the crawl started from.
func (g *Graph) StartingRevisions() []ir.Revision {
	return slices.Clone(g.starts)
}

// Metadata returns the recorded metadata for rev.
func (g *Graph) Metadata(rev ir.Revision) (ir.Metadata, bool) {
	m, ok := g.visited[rev]
	return m, ok
}

// Contains reports whether rev was recorded as a non-matching revision.
func (g *Graph) Contains(rev ir.Revision) bool {
	_, ok := g.visited[rev]
	return ok
}

// Len returns the number of recorded revisions.
func (g *Graph) Len() int {
	return len(g.visited)
}

// Revisions returns the recorded revisions in the order the crawl visited
// them.
func (g *Graph) Revisions() []ir.Revision {
	return slices.Clone(g.order)
}

// BreadthFirstHistory replays a breadth-first walk over the recorded
// metadata, from the starting revisions through parents. Parents that were
// not recorded (crawl boundaries, or revisions never reached) are skipped.
//
// No repository is consulted; the ordering depends only on the recorded
// parent lists and is therefore repeatable.
func (g *Graph) BreadthFirstHistory() []ir.Revision {
	var out []ir.Revision
	seen := make(map[ir.Revision]struct{}, len(g.visited))
	work := slices.Clone(g.starts)

	for len(work) > 0 {
		current := work[0]
		work = work[1:]

		if _, dup := seen[current]; dup {
			continue
		}
		seen[current] = struct{}{}

		m, ok := g.visited[current]
		if !ok {
			continue
		}
		out = append(out, current)
		work = append(work, m.Parents...)
	}
	return out
}

// GraphBuilder accumulates a Graph during a crawl.
type GraphBuilder struct {
	starts  []ir.Revision
	visited map[ir.Revision]ir.Metadata
	order   []ir.Revision
}

// NewGraphBuilder starts a graph rooted at the given revisions.
func NewGraphBuilder(starts ...ir.Revision) *GraphBuilder {
	return &GraphBuilder{
		starts:  slices.Clone(starts),
		visited: make(map[ir.Revision]ir.Metadata),
	}
}

// Add records the metadata of a non-matching revision. A revision may only
// be recorded once.
func (b *GraphBuilder) Add(rev ir.Revision, m ir.Metadata) error {
	if _, ok := b.visited[rev]; ok {
		return fmt.Errorf("revision %s already recorded in graph", rev)
	}
	b.visited[rev] = m
	b.order = append(b.order, rev)
	return nil
}

// Build returns the graph. Later calls to Add do not affect graphs already
// built.
func (b *GraphBuilder) Build() *Graph {
	visited := make(map[ir.Revision]ir.Metadata, len(b.visited))
	for k, v := range b.visited {
		visited[k] = v
	}
	return &Graph{
		starts:  slices.Clone(b.starts),
		visited: visited,
		order:   slices.Clone(b.order),
	}
}
