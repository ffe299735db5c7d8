package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/MOE-sub001/internal/history"
	"github.com/google/MOE-sub001/internal/ir"
	"github.com/google/MOE-sub001/internal/repository"
)

// forkedHistory: 3 merges 1 and 2; 1 descends from p, 2 from 0.
func forkedHistory(t *testing.T) *repository.MemoryHistory {
	t.Helper()
	h, err := repository.NewMemoryHistory("internal",
		repository.Commit{ID: "p"},
		repository.Commit{ID: "0"},
		repository.Commit{ID: "1", Parents: []string{"p"}},
		repository.Commit{ID: "2", Parents: []string{"0"}},
		repository.Commit{ID: "3", Parents: []string{"1", "2"}},
	)
	require.NoError(t, err)
	return h
}

func TestEquivalenceMatcher_StopsAtEquivalence(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("dummy", nil)
	rev1 := ir.NewRevision("1", "internal")
	require.NoError(t, s.NoteEquivalence(ctx, ir.MustEquivalence(rev1, ir.NewRevision("a", "public"))))

	m := EquivalenceMatcher{OtherRepository: "public", Store: s}
	result, err := history.Crawl(ctx, forkedHistory(t), nil, m, history.Branched)
	require.NoError(t, err)

	graph := result.RevisionsSinceEquivalence
	assert.Equal(t, []ir.Revision{
		ir.NewRevision("3", "internal"),
		ir.NewRevision("2", "internal"),
		ir.NewRevision("0", "internal"),
	}, graph.BreadthFirstHistory())
	assert.False(t, graph.Contains(rev1), "matching revision is a boundary")
	assert.False(t, graph.Contains(ir.NewRevision("p", "internal")), "boundary parents are never expanded")

	assert.Equal(t, []ir.Equivalence{ir.MustEquivalence(rev1, ir.NewRevision("a", "public"))}, result.Equivalences)
}

func TestEquivalenceMatcher_NoEquivalence(t *testing.T) {
	m := EquivalenceMatcher{OtherRepository: "public", Store: NewMemoryStore("dummy", nil)}
	result, err := history.Crawl(context.Background(), forkedHistory(t), nil, m, history.Branched)
	require.NoError(t, err)

	assert.Equal(t, 5, result.RevisionsSinceEquivalence.Len())
	assert.Empty(t, result.Equivalences)
}

func TestEquivalenceMatcher_EquivalenceInOtherRepositoryIgnored(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("dummy", nil)
	require.NoError(t, s.NoteEquivalence(ctx, ir.MustEquivalence(ir.NewRevision("3", "internal"), ir.NewRevision("z", "mirror"))))

	m := EquivalenceMatcher{OtherRepository: "public", Store: s}
	matches, err := m.Matches(ctx, ir.NewRevision("3", "internal"))
	require.NoError(t, err)
	assert.False(t, matches)
}

func TestEquivalenceMatcher_CannedStorePicksFirst(t *testing.T) {
	m := EquivalenceMatcher{OtherRepository: "public", Store: NewCannedStore(true)}
	result, err := history.Crawl(context.Background(), forkedHistory(t), nil, m, history.Branched)
	require.NoError(t, err)

	assert.Equal(t, 0, result.RevisionsSinceEquivalence.Len())
	assert.Equal(t, []ir.Equivalence{
		ir.MustEquivalence(ir.NewRevision("3", "internal"), ir.NewRevision("1", "public")),
	}, result.Equivalences)
}

func TestEquivalenceMatcher_CrawlLimit(t *testing.T) {
	commits := []repository.Commit{{ID: "0"}}
	for i := 1; i <= 400; i++ {
		commits = append(commits, repository.Commit{ID: fmt.Sprint(i), Parents: []string{fmt.Sprint(i - 1)}})
	}
	h, err := repository.NewMemoryHistory("internal", commits...)
	require.NoError(t, err)

	m := EquivalenceMatcher{OtherRepository: "public", Store: NewNoopStore()}
	_, err = history.Crawl(context.Background(), h, nil, m, history.Linear)
	require.Error(t, err)
	assert.True(t, history.IsCrawlLimitError(err))
	assert.Contains(t, err.Error(), "equivalence with public")
}

func TestEquivalenceMatcher_String(t *testing.T) {
	assert.Equal(t, "equivalence with public", EquivalenceMatcher{OtherRepository: "public"}.String())
}
