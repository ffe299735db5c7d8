package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/MOE-sub001/internal/ir"
)

// DefaultMaxRevisions is the default crawl limit.
const DefaultMaxRevisions = 400

// SearchType selects which parents a crawl follows.
type SearchType int

const (
	// Linear follows only the first parent of each revision.
	Linear SearchType = iota + 1
	// Branched follows every parent.
	Branched
)

func (s SearchType) String() string {
	switch s {
	case Linear:
		return "linear"
	case Branched:
		return "branched"
	default:
		return fmt.Sprintf("SearchType(%d)", int(s))
	}
}

// CrawlOption configures a crawl.
type CrawlOption func(*crawlConfig)

type crawlConfig struct {
	maxRevisions int
}

// WithMaxRevisions sets how many revisions a crawl may visit before failing.
//
// Default: 400 (DefaultMaxRevisions). Values below 1 keep the default.
func WithMaxRevisions(n int) CrawlOption {
	return func(c *crawlConfig) {
		if n > 0 {
			c.maxRevisions = n
		}
	}
}

// Crawl searches h backwards from start until m matches, and returns m's
// result.
//
// A nil start seeds the crawl with every head of h; a Linear crawl over
// more than one head fails with ErrMultipleHeads. Revisions are processed in
// FIFO order and each revision is enqueued at most once, so shared ancestors
// of a merge are visited once.
//
// The crawl fails with a *CrawlLimitError once the number of distinct
// revisions it has reached exceeds the limit. It never returns a partial
// result.
func Crawl[T any](
	ctx context.Context,
	h History,
	start *ir.Revision,
	m Matcher[T],
	mode SearchType,
	opts ...CrawlOption,
) (T, error) {
	var zero T

	cfg := crawlConfig{maxRevisions: DefaultMaxRevisions}
	for _, opt := range opts {
		opt(&cfg)
	}

	starts, err := startingRevisions(ctx, h, start, mode)
	if err != nil {
		return zero, err
	}

	builder := NewGraphBuilder(starts...)
	var matching []ir.Revision

	work := make([]ir.Revision, 0, len(starts))
	work = append(work, starts...)
	visited := make(map[ir.Revision]struct{}, len(starts))
	for _, rev := range starts {
		visited[rev] = struct{}{}
	}

	slog.Debug("crawling history",
		"repository", h.Name(),
		"matcher", matcherName(m),
		"mode", mode.String(),
		"starts", len(starts))

	for len(work) > 0 {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		current := work[0]
		work = work[1:]

		matched, err := m.Matches(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("match %s: %w", current, err)
		}
		if matched {
			matching = append(matching, current)
			continue
		}

		meta, err := h.Metadata(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("metadata for %s: %w", current, err)
		}
		if err := builder.Add(current, meta); err != nil {
			return zero, err
		}

		parents := meta.Parents
		if mode == Linear && len(parents) > 1 {
			parents = parents[:1]
		}
		for _, parent := range parents {
			if _, seen := visited[parent]; seen {
				continue
			}
			visited[parent] = struct{}{}
			work = append(work, parent)
		}

		if len(visited) > cfg.maxRevisions {
			return zero, &CrawlLimitError{
				Matcher:    matcherName(m),
				Repository: h.Name(),
				Start:      starts,
				Limit:      cfg.maxRevisions,
			}
		}
	}

	graph := builder.Build()
	slog.Debug("history crawl finished",
		"repository", h.Name(),
		"non_matching", graph.Len(),
		"matching", len(matching))

	return m.MakeResult(ctx, graph, matching)
}

func startingRevisions(ctx context.Context, h History, start *ir.Revision, mode SearchType) ([]ir.Revision, error) {
	if start != nil {
		return []ir.Revision{*start}, nil
	}

	heads, err := h.Heads(ctx)
	if err != nil {
		return nil, fmt.Errorf("heads of %s: %w", h.Name(), err)
	}
	if mode == Linear && len(heads) > 1 {
		return nil, fmt.Errorf("%w: repository %s has %d heads", ErrMultipleHeads, h.Name(), len(heads))
	}
	return heads, nil
}

func matcherName(m any) string {
	if s, ok := m.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", m)
}
