package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/google/MOE-sub001/internal/ir"
)

// GitHistory reads revisions from a git repository.
type GitHistory struct {
	name   string
	repo   *git.Repository
	branch string
}

// NewGitHistory wraps an open repository. An empty branch means HEAD.
func NewGitHistory(name string, repo *git.Repository, branch string) *GitHistory {
	return &GitHistory{name: name, repo: repo, branch: branch}
}

// OpenGit opens url as a git repository. Local directories are opened in
// place; anything else is cloned into memory.
func OpenGit(ctx context.Context, name, url, branch string) (*GitHistory, error) {
	if isLocalPath(url) {
		repo, err := git.PlainOpen(url)
		if err != nil {
			return nil, fmt.Errorf("open git repository %s at %s: %w", name, url, err)
		}
		return NewGitHistory(name, repo, branch), nil
	}

	opts := &git.CloneOptions{URL: url}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}
	slog.Debug("cloning repository", "repository", name, "url", url, "branch", branch)
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, opts)
	if err != nil {
		return nil, fmt.Errorf("clone git repository %s from %s: %w", name, url, err)
	}
	return NewGitHistory(name, repo, branch), nil
}

func isLocalPath(url string) bool {
	if strings.Contains(url, "://") || strings.HasPrefix(url, "git@") {
		return false
	}
	info, err := os.Stat(url)
	return err == nil && info.IsDir()
}

// Name returns the configured repository name.
func (g *GitHistory) Name() string { return g.name }

// FindHighestRevision resolves revID, or the branch head when revID is
// empty.
func (g *GitHistory) FindHighestRevision(_ context.Context, revID string) (ir.Revision, error) {
	if revID == "" {
		revID = g.head()
	}
	hash, err := g.repo.ResolveRevision(plumbing.Revision(revID))
	if err != nil {
		return ir.Revision{}, fmt.Errorf("resolve %q in %s: %w", revID, g.name, err)
	}
	return ir.NewRevision(hash.String(), g.name), nil
}

func (g *GitHistory) head() string {
	if g.branch != "" {
		return g.branch
	}
	return string(plumbing.HEAD)
}

// Heads returns the head of the configured branch.
func (g *GitHistory) Heads(ctx context.Context) ([]ir.Revision, error) {
	head, err := g.FindHighestRevision(ctx, "")
	if err != nil {
		return nil, err
	}
	return []ir.Revision{head}, nil
}

// Metadata returns the commit metadata of rev, with fields parsed from the
// commit message.
func (g *GitHistory) Metadata(_ context.Context, rev ir.Revision) (ir.Metadata, error) {
	commit, err := g.commit(rev)
	if err != nil {
		return ir.Metadata{}, err
	}

	b := ir.NewMetadataBuilder().
		ID(commit.Hash.String()).
		Author(formatAuthor(commit.Author)).
		Date(commit.Author.When).
		Description(commit.Message)
	for _, parent := range commit.ParentHashes {
		b.Parents(ir.NewRevision(parent.String(), g.name))
	}
	return b.Build().WithParsedFields(), nil
}

func formatAuthor(sig object.Signature) string {
	switch {
	case sig.Name == "":
		return sig.Email
	case sig.Email == "":
		return sig.Name
	default:
		return fmt.Sprintf("%s <%s>", sig.Name, sig.Email)
	}
}

func (g *GitHistory) commit(rev ir.Revision) (*object.Commit, error) {
	if rev.RepositoryName != g.name {
		return nil, fmt.Errorf("revision %s does not belong to repository %s", rev, g.name)
	}
	hash, err := g.repo.ResolveRevision(plumbing.Revision(rev.RevID))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := g.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", rev, err)
	}
	return commit, nil
}

// Export writes the tree of rev into dst. Executable files keep their
// executable bit; symlinks and submodules are skipped.
func (g *GitHistory) Export(ctx context.Context, rev ir.Revision, dst billy.Filesystem) error {
	commit, err := g.commit(rev)
	if err != nil {
		return err
	}
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("read tree of %s: %w", rev, err)
	}

	var count int
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var perm os.FileMode
		switch f.Mode {
		case filemode.Regular, filemode.Deprecated:
			perm = 0o644
		case filemode.Executable:
			perm = 0o755
		default:
			return nil
		}
		r, err := f.Reader()
		if err != nil {
			return err
		}
		defer r.Close()
		count++
		return writeFile(dst, f.Name, r, perm)
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", rev, err)
	}
	slog.Debug("revision exported", "revision", rev.String(), "files", count)
	return nil
}

func writeFile(dst billy.Filesystem, name string, r io.Reader, perm os.FileMode) (err error) {
	if dir := dirOf(name); dir != "" {
		if err := dst.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := dst.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(f, r)
	return err
}

func dirOf(name string) string {
	i := strings.LastIndex(name, "/")
	if i < 0 {
		return ""
	}
	return name[:i]
}
