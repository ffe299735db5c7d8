package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevisionString(t *testing.T) {
	assert.Equal(t, "internal{42}", NewRevision("42", "internal").String())
}

func TestRevisionValueEquality(t *testing.T) {
	assert.Equal(t, NewRevision("1", "public"), NewRevision("1", "public"))
	assert.NotEqual(t, NewRevision("1", "public"), NewRevision("1", "internal"))
	assert.True(t, Revision{}.IsZero())
}

func TestRevisionUnmarshalCanonicalAndLegacy(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"canonical", `{"repository_name":"internal","rev_id":"7"}`},
		{"legacy", `{"repositoryName":"internal","revId":"7"}`},
		{"mixed", `{"repository_name":"internal","revId":"7"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rev Revision
			require.NoError(t, json.Unmarshal([]byte(tt.json), &rev))
			assert.Equal(t, NewRevision("7", "internal"), rev)
		})
	}
}

func TestRevisionUnmarshalPrefersCanonicalName(t *testing.T) {
	var rev Revision
	err := json.Unmarshal([]byte(`{"repository_name":"new","repositoryName":"old","rev_id":"1"}`), &rev)
	require.NoError(t, err)
	assert.Equal(t, "new", rev.RepositoryName)
}

func TestRevisionUnmarshalMissingField(t *testing.T) {
	var rev Revision
	err := json.Unmarshal([]byte(`{"repository_name":"internal"}`), &rev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rev_id")
}

func TestParseFields(t *testing.T) {
	desc := "Fix the frobnicator\n\nMOE_MIGRATED_REVID=42\nBUG=123\nBUG=124\nBUG=123\nnot a=field\nx=y=z\n"
	fields := ParseFields(desc)

	id, ok := fields.First("MOE_MIGRATED_REVID")
	require.True(t, ok)
	assert.Equal(t, "42", id)
	assert.Equal(t, []string{"123", "124"}, fields.Get("BUG"))
	assert.Equal(t, []string{"y=z"}, fields.Get("x"))
	assert.Empty(t, fields.Get("not a"))
	assert.Equal(t, []string{"BUG", "MOE_MIGRATED_REVID", "x"}, fields.Keys())
}

func TestParseFieldsEmptyValueAndCRLF(t *testing.T) {
	fields := ParseFields("KEY=\r\nOTHER=v\r\n")
	assert.Equal(t, []string{""}, fields.Get("KEY"))
	assert.Equal(t, []string{"v"}, fields.Get("OTHER"))
}

func TestMetadataBuilderCopiesAreIndependent(t *testing.T) {
	parent := NewRevision("1", "internal")
	m := NewMetadataBuilder().
		ID("2").
		Author("dev <dev@example.com>").
		Date(time.Unix(100, 0)).
		Description("msg").
		Parents(parent).
		Field("K", "v").
		Build()

	changed := m.ToBuilder().Description("other").Parents(NewRevision("0", "internal")).Field("K", "w").Build()

	assert.Equal(t, "msg", m.Description)
	assert.Equal(t, []Revision{parent}, m.Parents)
	assert.Equal(t, []string{"v"}, m.Fields.Get("K"))

	assert.Equal(t, "other", changed.Description)
	assert.Len(t, changed.Parents, 2)
	assert.Equal(t, []string{"v", "w"}, changed.Fields.Get("K"))
}

func TestMetadataWithParsedFields(t *testing.T) {
	m := NewMetadataBuilder().ID("9").Description("x\nMOE_MIGRATED_REVID=5").Build()
	parsed := m.WithParsedFields()

	assert.Empty(t, m.Fields)
	got, ok := parsed.Fields.First("MOE_MIGRATED_REVID")
	require.True(t, ok)
	assert.Equal(t, "5", got)
	assert.Equal(t, m.Description, parsed.Description)
}

func TestMetadataFirstParent(t *testing.T) {
	_, ok := Metadata{}.FirstParent()
	assert.False(t, ok)

	p1, p2 := NewRevision("a", "r"), NewRevision("b", "r")
	first, ok := NewMetadataBuilder().Parents(p1, p2).Build().FirstParent()
	require.True(t, ok)
	assert.Equal(t, p1, first)
}
