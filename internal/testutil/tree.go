// Package testutil provides deterministic helpers for tests: a commit
// clock and file-tree builders.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

// WriteTree creates root and writes files into it. Keys are slash-separated
// relative paths.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(root, 0o755))
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// ReadTree returns every regular file under root keyed by slash-separated
// relative path.
func ReadTree(t testing.TB, root string) map[string]string {
	t.Helper()
	fsys := osfs.New(root)
	files := make(map[string]string)
	err := util.Walk(fsys, "", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		data, err := util.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(path)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

// MakeExecutable sets the executable bits on one file under root.
func MakeExecutable(t testing.TB, root, rel string) {
	t.Helper()
	require.NoError(t, os.Chmod(filepath.Join(root, filepath.FromSlash(rel)), 0o755))
}

// IsExecutable reports whether a file under root has any executable bit.
func IsExecutable(t testing.TB, root, rel string) bool {
	t.Helper()
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return info.Mode().Perm()&0o111 != 0
}
