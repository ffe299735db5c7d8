package repository

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/MOE-sub001/internal/history"
	"github.com/google/MOE-sub001/internal/ir"
	"github.com/google/MOE-sub001/internal/testutil"
)

// gitFixture is an in-memory git repository with a deterministic clock.
type gitFixture struct {
	repo  *git.Repository
	wt    *git.Worktree
	fs    billy.Filesystem
	clock *testutil.DeterministicClock
}

func newGitFixture(t *testing.T) *gitFixture {
	t.Helper()
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &gitFixture{repo: repo, wt: wt, fs: fs, clock: testutil.NewDeterministicClock()}
}

// commit writes files, stages them and commits. Executable files are
// named in exec. Explicit parents override the worktree HEAD.
func (f *gitFixture) commit(t *testing.T, msg string, files map[string]string, exec []string, parents ...plumbing.Hash) plumbing.Hash {
	t.Helper()
	for path, content := range files {
		perm := os.FileMode(0o644)
		if slices.Contains(exec, path) {
			perm = 0o755
		}
		require.NoError(t, util.WriteFile(f.fs, path, []byte(content), perm))
		_, err := f.wt.Add(path)
		require.NoError(t, err)
	}
	hash, err := f.wt.Commit(msg, &git.CommitOptions{
		Author:            &object.Signature{Name: "Dev", Email: "dev@example.com", When: f.clock.Next()},
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	require.NoError(t, err)
	return hash
}

func (f *gitFixture) branch(t *testing.T, name string, hash plumbing.Hash) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	require.NoError(t, f.repo.Storer.SetReference(ref))
}

func TestGitHistory_FindHighestRevision(t *testing.T) {
	f := newGitFixture(t)
	first := f.commit(t, "first", map[string]string{"a.txt": "a"}, nil)
	second := f.commit(t, "second", map[string]string{"a.txt": "b"}, nil)
	f.branch(t, "side", first)

	ctx := context.Background()

	head, err := NewGitHistory("public", f.repo, "").FindHighestRevision(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, ir.NewRevision(second.String(), "public"), head)

	side, err := NewGitHistory("public", f.repo, "side").FindHighestRevision(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, ir.NewRevision(first.String(), "public"), side)

	explicit, err := NewGitHistory("public", f.repo, "").FindHighestRevision(ctx, first.String())
	require.NoError(t, err)
	assert.Equal(t, first.String(), explicit.RevID)

	_, err = NewGitHistory("public", f.repo, "nosuchbranch").FindHighestRevision(ctx, "")
	assert.Error(t, err)
}

func TestGitHistory_Heads(t *testing.T) {
	f := newGitFixture(t)
	hash := f.commit(t, "only", map[string]string{"a.txt": "a"}, nil)

	heads, err := NewGitHistory("public", f.repo, "").Heads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ir.Revision{ir.NewRevision(hash.String(), "public")}, heads)
}

func TestGitHistory_Metadata(t *testing.T) {
	f := newGitFixture(t)
	first := f.commit(t, "first", map[string]string{"a.txt": "a"}, nil)
	msg := "Export change\n\nMOE_MIGRATED_REVID=42\nREVIEWED_BY=someone\n"
	second := f.commit(t, msg, map[string]string{"a.txt": "b"}, nil)

	g := NewGitHistory("public", f.repo, "")
	m, err := g.Metadata(context.Background(), ir.NewRevision(second.String(), "public"))
	require.NoError(t, err)

	assert.Equal(t, second.String(), m.ID)
	assert.Equal(t, "Dev <dev@example.com>", m.Author)
	assert.Equal(t, testutil.Epoch.Add(2*time.Minute).Unix(), m.Date.Unix())
	assert.Equal(t, msg, m.Description)
	assert.Equal(t, []ir.Revision{ir.NewRevision(first.String(), "public")}, m.Parents)

	id, ok := m.Fields.First("MOE_MIGRATED_REVID")
	require.True(t, ok)
	assert.Equal(t, "42", id)
	assert.Equal(t, []string{"someone"}, m.Fields.Get("REVIEWED_BY"))
}

func TestGitHistory_MetadataWrongRepository(t *testing.T) {
	f := newGitFixture(t)
	hash := f.commit(t, "first", map[string]string{"a.txt": "a"}, nil)

	_, err := NewGitHistory("public", f.repo, "").Metadata(context.Background(), ir.NewRevision(hash.String(), "internal"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong to repository public")
}

func TestGitHistory_MergeParentsInOrder(t *testing.T) {
	f := newGitFixture(t)
	base := f.commit(t, "base", map[string]string{"a.txt": "a"}, nil)
	left := f.commit(t, "left", map[string]string{"l.txt": "l"}, nil)
	right := f.commit(t, "right", map[string]string{"r.txt": "r"}, nil, base)
	merge := f.commit(t, "merge", nil, nil, left, right)

	g := NewGitHistory("public", f.repo, "")
	m, err := g.Metadata(context.Background(), ir.NewRevision(merge.String(), "public"))
	require.NoError(t, err)
	assert.Equal(t, []ir.Revision{
		ir.NewRevision(left.String(), "public"),
		ir.NewRevision(right.String(), "public"),
	}, m.Parents)
}

func TestGitHistory_CrawlToBranchPoint(t *testing.T) {
	f := newGitFixture(t)
	base := f.commit(t, "base", map[string]string{"a.txt": "a"}, nil)
	c1 := f.commit(t, "c1", map[string]string{"a.txt": "1"}, nil)
	c2 := f.commit(t, "c2", map[string]string{"a.txt": "2"}, nil)

	g := NewGitHistory("public", f.repo, "")
	result, err := history.Crawl(context.Background(), g, nil,
		history.ExactMatcher{BranchPoint: ir.NewRevision(base.String(), "public")}, history.Linear)
	require.NoError(t, err)

	assert.Equal(t, []ir.Revision{
		ir.NewRevision(c2.String(), "public"),
		ir.NewRevision(c1.String(), "public"),
	}, result.Revisions.BreadthFirstHistory())
}

func TestGitHistory_Export(t *testing.T) {
	f := newGitFixture(t)
	hash := f.commit(t, "files", map[string]string{
		"README":         "hello\n",
		"bin/run.sh":     "#!/bin/sh\n",
		"src/pkg/lib.go": "package pkg\n",
	}, []string{"bin/run.sh"})

	dir := t.TempDir()
	g := NewGitHistory("public", f.repo, "")
	require.NoError(t, g.Export(context.Background(), ir.NewRevision(hash.String(), "public"), osfs.New(dir)))

	assert.Equal(t, map[string]string{
		"README":         "hello\n",
		"bin/run.sh":     "#!/bin/sh\n",
		"src/pkg/lib.go": "package pkg\n",
	}, testutil.ReadTree(t, dir))
	assert.True(t, testutil.IsExecutable(t, dir, "bin/run.sh"))
	assert.False(t, testutil.IsExecutable(t, dir, "README"))
}

func TestOpenGit_LocalPath(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	testutil.WriteTree(t, dir, map[string]string{"a.txt": "a"})
	_, err = wt.Add("a.txt")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: testutil.Epoch},
	})
	require.NoError(t, err)

	g, err := OpenGit(context.Background(), "public", dir, "")
	require.NoError(t, err)
	head, err := g.FindHighestRevision(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, hash.String(), head.RevID)

	_, err = OpenGit(context.Background(), "public", filepath.Join(dir, "missing"), "")
	assert.Error(t, err)
}

func TestIsLocalPath(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, isLocalPath(dir))
	assert.False(t, isLocalPath(filepath.Join(dir, "missing")))
	assert.False(t, isLocalPath("https://example.com/repo.git"))
	assert.False(t, isLocalPath("git@example.com:repo.git"))
}
