package history

import (
	"context"
	"fmt"

	"github.com/google/MOE-sub001/internal/ir"
)

// ExactMatcher stops a crawl at one known revision, typically the point a
// branch was cut from the main line.
type ExactMatcher struct {
	BranchPoint ir.Revision
}

// ExactResult holds the revisions crawled back to the branch point,
// excluding the branch point itself.
type ExactResult struct {
	Revisions *Graph
}

// Matches reports whether rev is the branch point.
func (m ExactMatcher) Matches(_ context.Context, rev ir.Revision) (bool, error) {
	return rev == m.BranchPoint, nil
}

// MakeResult requires the branch point to have been reached exactly once.
func (m ExactMatcher) MakeResult(_ context.Context, nonMatching *Graph, matching []ir.Revision) (*ExactResult, error) {
	switch len(matching) {
	case 0:
		return nil, fmt.Errorf("%w: the branch may not be branched from revision %s", ErrNoBranchPoint, m.BranchPoint)
	case 1:
		return &ExactResult{Revisions: nonMatching}, nil
	default:
		return nil, fmt.Errorf("revision history matched %d branch points", len(matching))
	}
}

func (m ExactMatcher) String() string {
	return "exact " + m.BranchPoint.String()
}
