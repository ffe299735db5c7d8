package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/MOE-sub001/internal/ir"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "reposync", cmd.Use)
	assert.Contains(t, cmd.Long, "merge tool")
	assert.Equal(t, ir.Version, cmd.Version)
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "reposync version "+ir.Version+"\n", out)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"bookkeep", "merge-codebases", "note-equivalence", "last-equivalence",
		"highest-revision", "history", "diff-codebases", "test",
	}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "Command %s should exist", name)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	config := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "c", config.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
		def     string
	}{
		{"bookkeep", "max-revisions", "400"},
		{"bookkeep", "temp-dir", ""},
		{"merge-codebases", "original-codebase", ""},
		{"merge-codebases", "modified-codebase", ""},
		{"merge-codebases", "destination-codebase", ""},
		{"merge-codebases", "merge-tool", "merge"},
		{"merge-codebases", "diff-tool", "diff"},
		{"note-equivalence", "repo1", ""},
		{"note-equivalence", "repo2", ""},
		{"last-equivalence", "from-repository", ""},
		{"last-equivalence", "with-repository", ""},
		{"highest-revision", "repository", ""},
		{"history", "until", ""},
		{"history", "linear", "false"},
		{"diff-codebases", "codebase1", ""},
		{"test", "update", "false"},
		{"test", "filter", ""},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)
			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "highest-revision", "--repository", "internal")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRequiredFlags(t *testing.T) {
	_, err := execute(t, "note-equivalence", "--repo1", "internal(revision=1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "repo2" not set`)
}
