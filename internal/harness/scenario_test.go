package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/MOE-sub001/internal/ir"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalProject = `
project:
  name: demo
  repositories:
    internal: {type: dummy}
`

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "detects_migration.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "detects_migration", s.Name)
	assert.Equal(t, 2, s.Runs)
	assert.Len(t, s.Assertions, 5)
	assert.Equal(t, []string{"internal@1", "public@10"}, s.Assertions[0].Revisions)

	p, err := s.LoadProject()
	require.NoError(t, err)
	assert.Equal(t, []string{"internal", "public"}, p.RepositoryNames())
	assert.Equal(t, "public", p.Repositories["public"].ProjectSpace)
	assert.Equal(t, "import\n\nMOE_MIGRATED_REVID=1", p.Repositories["public"].Commits[0].Description)
}

func TestLoadScenario_ProjectFileIsRelativeToScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "head_equivalence.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "projects", "identical_heads.yaml"), s.ProjectFile)

	p, err := s.LoadProject()
	require.NoError(t, err)
	assert.Equal(t, "identical", p.Name)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\n" + minimalProject + "assertions: [{type: equivalence_count}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\n" + minimalProject + "assertions: [{type: equivalence_count}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no project",
			content: "name: n\ndescription: d\nassertions: [{type: equivalence_count}]\n",
			wantErr: "project or project_file is required",
		},
		{
			name:    "both projects",
			content: "name: n\ndescription: d\nproject_file: x.yaml\n" + minimalProject + "assertions: [{type: equivalence_count}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "missing project file",
			content: "name: n\ndescription: d\nproject_file: nope.yaml\nassertions: [{type: equivalence_count}]\n",
			wantErr: "project file not found",
		},
		{
			name:    "no assertions",
			content: "name: n\ndescription: d\n" + minimalProject,
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\n" + minimalProject + "assertions: [{type: trace_order}]\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name:    "bad revision",
			content: "name: n\ndescription: d\n" + minimalProject + "assertions: [{type: equivalence, revisions: [internal, public@1]}]\n",
			wantErr: "not of the form repository@id",
		},
		{
			name:    "one revision",
			content: "name: n\ndescription: d\n" + minimalProject + "assertions: [{type: equivalence, revisions: [public@1]}]\n",
			wantErr: "exactly 2 revisions",
		},
		{
			name:    "bad seed migration",
			content: "name: n\ndescription: d\n" + minimalProject + "seed: {migrations: [{from: a@1, to: b}]}\nassertions: [{type: migration_count}]\n",
			wantErr: "seed.migrations[0]: to:",
		},
		{
			name:    "negative runs",
			content: "name: n\ndescription: d\nruns: -1\n" + minimalProject + "assertions: [{type: migration_count}]\n",
			wantErr: "runs must be non-negative",
		},
		{
			name:    "unknown field",
			content: "name: n\ndescription: d\nassertion: []\n" + minimalProject,
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseRevision(t *testing.T) {
	rev, err := ParseRevision("public@abc@def")
	require.NoError(t, err)
	assert.Equal(t, ir.NewRevision("abc@def", "public"), rev)

	for _, bad := range []string{"", "public", "@1", "public@"} {
		_, err := ParseRevision(bad)
		assert.Error(t, err, bad)
	}
}
