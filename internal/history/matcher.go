package history

import (
	"context"

	"github.com/google/MOE-sub001/internal/ir"
)

// Matcher decides where a crawl stops and what it produces.
//
// Matches is asked once per revision reached. A true answer makes the
// revision a boundary: it is appended to the matching list and its parents
// are not expanded. MakeResult is called exactly once, after the worklist is
// exhausted, with the graph of non-matching revisions and the matching
// revisions in the order they were reached.
//
// Matchers should implement fmt.Stringer; the string names the matcher in
// crawl diagnostics.
type Matcher[T any] interface {
	Matches(ctx context.Context, rev ir.Revision) (bool, error)
	MakeResult(ctx context.Context, nonMatching *Graph, matching []ir.Revision) (T, error)
}

// History is the per-repository revision history contract implemented by
// the VCS adapters.
type History interface {
	// Name is the configured repository name. Every revision produced by
	// the history carries it.
	Name() string

	// FindHighestRevision resolves revID to a revision. An empty revID
	// means the current head.
	FindHighestRevision(ctx context.Context, revID string) (ir.Revision, error)

	// Metadata returns the metadata of rev.
	Metadata(ctx context.Context, rev ir.Revision) (ir.Metadata, error)

	// Heads returns every head revision, one per branch.
	Heads(ctx context.Context) ([]ir.Revision, error)
}
