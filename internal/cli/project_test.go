package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepositoryExpression(t *testing.T) {
	tests := []struct {
		in      string
		want    RepositoryExpression
		wantErr bool
	}{
		{in: "internal", want: RepositoryExpression{Name: "internal"}},
		{in: "internal(revision=42)", want: RepositoryExpression{Name: "internal", Revision: "42"}},
		{in: "my-repo.git(revision=1a2b3c)", want: RepositoryExpression{Name: "my-repo.git", Revision: "1a2b3c"}},
		{in: "", wantErr: true},
		{in: "internal(revision=)", wantErr: true},
		{in: "internal(rev=1)", wantErr: true},
		{in: "a b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepositoryExpression(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestLoadProject_RequiresConfig(t *testing.T) {
	_, err := loadProject(t.Context(), &RootOptions{})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--config is required")
}

func TestLoadProject_MissingFile(t *testing.T) {
	_, err := loadProject(t.Context(), &RootOptions{ConfigFile: "does-not-exist.yaml"})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenStore_NeedsLocation(t *testing.T) {
	_, err := openStore(t.Context(), &RootOptions{}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database")
}
