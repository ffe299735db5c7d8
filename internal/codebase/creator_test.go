package codebase

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/MOE-sub001/internal/ir"
	"github.com/google/MOE-sub001/internal/testutil"
)

// mapExporter writes the same files for every revision, tagged with the
// revision id.
type mapExporter struct {
	files map[string]string
	err   error
}

func (e mapExporter) Export(_ context.Context, rev ir.Revision, dst billy.Filesystem) error {
	if e.err != nil {
		return e.err
	}
	for path, content := range e.files {
		if err := util.WriteFile(dst, path, []byte(content+rev.RevID), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newCreator(t *testing.T) *RepositoryCreator {
	t.Helper()
	c := &RepositoryCreator{
		Sources: map[string]Source{
			"internal": {Exporter: mapExporter{files: map[string]string{"src/a.txt": "internal@"}}, ProjectSpace: "internal"},
			"public":   {Exporter: mapExporter{files: map[string]string{"src/a.txt": "public@"}}, ProjectSpace: "public"},
			"broken":   {Exporter: mapExporter{err: errors.New("checkout failed")}, ProjectSpace: "public"},
		},
		Translators: []Translator{
			{FromProjectSpace: "internal", ToProjectSpace: "public", Steps: []string{IdentityEditor}},
			{FromProjectSpace: "public", ToProjectSpace: "internal", Inverse: true},
			{FromProjectSpace: "internal", ToProjectSpace: "scrubbed", Steps: []string{IdentityEditor, "scrubber", "renamer"}},
		},
		TempDir: t.TempDir(),
	}
	t.Cleanup(func() { _ = c.Cleanup() })
	return c
}

func TestRepositoryCreator_AsIs(t *testing.T) {
	c := newCreator(t)

	cb, err := c.Create(context.Background(), ir.NewRevision("7", "internal"), "")
	require.NoError(t, err)

	assert.Equal(t, "internal", cb.ProjectSpace)
	assert.Equal(t, "internal(revision=7)", cb.Expression)
	assert.Equal(t, map[string]string{"src/a.txt": "internal@7"}, testutil.ReadTree(t, cb.Root))
}

func TestRepositoryCreator_SameProjectSpaceNeedsNoTranslator(t *testing.T) {
	c := newCreator(t)

	cb, err := c.Create(context.Background(), ir.NewRevision("7", "public"), "public")
	require.NoError(t, err)
	assert.Equal(t, "public(revision=7)", cb.Expression)
}

func TestRepositoryCreator_Translations(t *testing.T) {
	tests := []struct {
		name       string
		rev        ir.Revision
		space      string
		expression string
	}{
		{"forward identity", ir.NewRevision("1", "internal"), "public", "internal(revision=1)>public"},
		{"inverse", ir.NewRevision("2", "public"), "internal", "public(revision=2)>internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCreator(t)
			cb, err := c.Create(context.Background(), tt.rev, tt.space)
			require.NoError(t, err)
			assert.Equal(t, tt.space, cb.ProjectSpace)
			assert.Equal(t, tt.expression, cb.Expression)
		})
	}
}

func TestRepositoryCreator_CreationErrors(t *testing.T) {
	tests := []struct {
		name  string
		rev   ir.Revision
		space string
		msg   string
	}{
		{"unknown repository", ir.NewRevision("1", "nowhere"), "", `no repository named "nowhere"`},
		{"no translator", ir.NewRevision("1", "public"), "scrubbed", `no translator from project space "public" to "scrubbed"`},
		{"editing steps", ir.NewRevision("1", "internal"), "scrubbed", "cannot be applied: scrubber, renamer"},
		{"export failure", ir.NewRevision("1", "broken"), "", "checkout failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCreator(t)
			_, err := c.Create(context.Background(), tt.rev, tt.space)
			require.Error(t, err)
			assert.True(t, IsCreationError(err))
			assert.Contains(t, err.Error(), tt.msg)

			var ce *CreationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.rev, ce.Revision)
		})
	}
}

func TestRepositoryCreator_Cleanup(t *testing.T) {
	c := newCreator(t)
	a, err := c.Create(context.Background(), ir.NewRevision("1", "internal"), "")
	require.NoError(t, err)
	b, err := c.Create(context.Background(), ir.NewRevision("2", "public"), "")
	require.NoError(t, err)
	assert.NotEqual(t, a.Root, b.Root)

	require.NoError(t, c.Cleanup())
	for _, dir := range []string{a.Root, b.Root} {
		_, err := os.Stat(dir)
		assert.True(t, os.IsNotExist(err), "%s should be removed", dir)
	}
}
