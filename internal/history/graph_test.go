package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/MOE-sub001/internal/ir"
)

func meta(id string, parents ...string) ir.Metadata {
	return ir.NewMetadataBuilder().ID(id).Parents(revs(parents...)...).Build()
}

func TestGraphBreadthFirstHistoryIsIndependentOfInsertionOrder(t *testing.T) {
	b := NewGraphBuilder(rev("4"))
	require.NoError(t, b.Add(rev("1"), meta("1")))
	require.NoError(t, b.Add(rev("3"), meta("3", "1")))
	require.NoError(t, b.Add(rev("4"), meta("4", "2", "3")))
	require.NoError(t, b.Add(rev("2"), meta("2", "1")))

	g := b.Build()
	assert.Equal(t, revs("4", "2", "3", "1"), g.BreadthFirstHistory())
	assert.Equal(t, revs("1", "3", "4", "2"), g.Revisions())

	// Repeated calls give the same answer.
	assert.Equal(t, g.BreadthFirstHistory(), g.BreadthFirstHistory())
}

func TestGraphBreadthFirstHistorySkipsUnrecordedParents(t *testing.T) {
	b := NewGraphBuilder(rev("3"))
	require.NoError(t, b.Add(rev("3"), meta("3", "2")))
	require.NoError(t, b.Add(rev("1"), meta("1")))

	// 1 is recorded but only reachable through the unrecorded 2.
	assert.Equal(t, revs("3"), b.Build().BreadthFirstHistory())
}

func TestGraphBuilderRejectsDuplicates(t *testing.T) {
	b := NewGraphBuilder(rev("1"))
	require.NoError(t, b.Add(rev("1"), meta("1")))
	assert.Error(t, b.Add(rev("1"), meta("1")))
}

func TestGraphBuildIsSnapshot(t *testing.T) {
	b := NewGraphBuilder(rev("2"))
	require.NoError(t, b.Add(rev("2"), meta("2", "1")))
	g := b.Build()
	require.NoError(t, b.Add(rev("1"), meta("1")))

	assert.Equal(t, 1, g.Len())
	_, ok := g.Metadata(rev("1"))
	assert.False(t, ok)

	m, ok := g.Metadata(rev("2"))
	require.True(t, ok)
	assert.Equal(t, revs("1"), m.Parents)
}
