package store

import (
	"context"
	"fmt"

	"github.com/google/MOE-sub001/internal/history"
	"github.com/google/MOE-sub001/internal/ir"
)

// EquivalenceMatcher stops a crawl at the first revisions with a recorded
// equivalence against OtherRepository.
type EquivalenceMatcher struct {
	OtherRepository string
	Store           Store
}

// EquivalenceResult is the outcome of crawling with an EquivalenceMatcher.
type EquivalenceResult struct {
	// RevisionsSinceEquivalence holds the revisions newer than any
	// equivalence, or the whole crawled history when none was found.
	RevisionsSinceEquivalence *history.Graph

	// Equivalences has one entry per matching revision, in crawl order.
	Equivalences []ir.Equivalence
}

// Matches reports whether rev has at least one equivalence with
// OtherRepository.
func (m EquivalenceMatcher) Matches(ctx context.Context, rev ir.Revision) (bool, error) {
	found, err := m.Store.FindEquivalences(ctx, rev, m.OtherRepository)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// MakeResult pairs every matching revision with the first equivalent
// revision the store returns for it.
func (m EquivalenceMatcher) MakeResult(ctx context.Context, nonMatching *history.Graph, matching []ir.Revision) (*EquivalenceResult, error) {
	result := &EquivalenceResult{RevisionsSinceEquivalence: nonMatching}
	for _, rev := range matching {
		found, err := m.Store.FindEquivalences(ctx, rev, m.OtherRepository)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("equivalence for %s with %s disappeared during crawl", rev, m.OtherRepository)
		}
		e, err := ir.NewEquivalence(rev, found[0])
		if err != nil {
			return nil, err
		}
		result.Equivalences = append(result.Equivalences, e)
	}
	return result, nil
}

func (m EquivalenceMatcher) String() string {
	return "equivalence with " + m.OtherRepository
}
