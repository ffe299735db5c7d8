package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotAddEquivalenceIdempotent(t *testing.T) {
	var s Snapshot
	e := MustEquivalence(NewRevision("1", "internal"), NewRevision("2", "public"))

	assert.True(t, s.AddEquivalence(e))
	assert.False(t, s.AddEquivalence(e))
	assert.False(t, s.AddEquivalence(MustEquivalence(NewRevision("2", "public"), NewRevision("1", "internal"))))
	assert.Len(t, s.Equivalences, 1)
}

func TestSnapshotAddMigrationIdempotent(t *testing.T) {
	var s Snapshot
	m := NewSubmittedMigration(NewRevision("1", "internal"), NewRevision("2", "public"))

	assert.False(t, s.HasMigration(m))
	assert.True(t, s.AddMigration(m))
	assert.True(t, s.HasMigration(m))
	assert.False(t, s.AddMigration(m))
	assert.Len(t, s.Migrations, 1)
}

func TestSnapshotFindEquivalences(t *testing.T) {
	var s Snapshot
	rev := NewRevision("5", "internal")
	s.AddEquivalence(MustEquivalence(rev, NewRevision("a", "public")))
	s.AddEquivalence(MustEquivalence(rev, NewRevision("b", "public")))
	s.AddEquivalence(MustEquivalence(rev, NewRevision("c", "other")))
	s.AddEquivalence(MustEquivalence(NewRevision("6", "internal"), NewRevision("d", "public")))

	assert.Equal(t, []Revision{NewRevision("a", "public"), NewRevision("b", "public")}, s.FindEquivalences(rev, "public"))
	assert.Equal(t, []Revision{NewRevision("c", "other")}, s.FindEquivalences(rev, "other"))
	assert.Empty(t, s.FindEquivalences(rev, "missing"))
	assert.Empty(t, s.FindEquivalences(NewRevision("7", "internal"), "public"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	var s Snapshot
	s.AddEquivalence(MustEquivalence(NewRevision("1", "internal"), NewRevision("2", "public")))
	s.AddEquivalence(MustEquivalence(NewRevision("3", "internal"), NewRevision("4", "public")))
	s.AddMigration(NewSubmittedMigration(NewRevision("3", "internal"), NewRevision("4", "public")))

	data, err := s.MarshalCanonical()
	require.NoError(t, err)

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.ElementsMatch(t, s.Equivalences, back.Equivalences)
	assert.ElementsMatch(t, s.Migrations, back.Migrations)
}

func TestSnapshotParsesLegacyDocument(t *testing.T) {
	legacy := `{
  "equivalences": [
    {"rev1": {"repositoryName": "internal", "revId": "1"}, "rev2": {"repositoryName": "public", "revId": "2"}}
  ],
  "migrations": [
    {"fromRevision": {"repositoryName": "internal", "revId": "1"}, "toRevision": {"repositoryName": "public", "revId": "2"}}
  ]
}`
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(legacy), &s))
	require.Len(t, s.Equivalences, 1)
	require.Len(t, s.Migrations, 1)

	data, err := s.MarshalCanonical()
	require.NoError(t, err)
	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
}

func TestSnapshotUnmarshalDeduplicates(t *testing.T) {
	doc := `{"equivalences":[
  {"rev1":{"repository_name":"a","rev_id":"1"},"rev2":{"repository_name":"b","rev_id":"2"}},
  {"rev1":{"repository_name":"b","rev_id":"2"},"rev2":{"repository_name":"a","rev_id":"1"}}
]}`
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(doc), &s))
	assert.Len(t, s.Equivalences, 1)
	assert.Empty(t, s.Migrations)
}

func TestSnapshotMarshalEmpty(t *testing.T) {
	var s Snapshot
	data, err := s.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"equivalences":[],"migrations":[]}`, string(data))
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	var s Snapshot
	s.AddMigration(NewSubmittedMigration(NewRevision("1", "a"), NewRevision("2", "b")))
	c := s.Clone()
	c.AddMigration(NewSubmittedMigration(NewRevision("3", "a"), NewRevision("4", "b")))
	assert.Len(t, s.Migrations, 1)
	assert.Len(t, c.Migrations, 2)
}
