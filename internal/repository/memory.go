package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/google/MOE-sub001/internal/ir"
)

// ErrUnknownRevision is returned for revisions a MemoryHistory does not
// hold.
var ErrUnknownRevision = errors.New("unknown revision")

// Commit is one canned revision of a MemoryHistory.
type Commit struct {
	ID          string
	Author      string
	Date        time.Time
	Description string
	Parents     []string

	// Files maps slash-separated paths to contents.
	Files map[string]string

	// Executable lists the paths in Files that are executable.
	Executable []string
}

// MemoryHistory is a revision history held entirely in memory.
type MemoryHistory struct {
	name    string
	commits map[string]Commit
	order   []string
}

// NewMemoryHistory returns a history named name holding commits. Parents
// must be added before their children.
func NewMemoryHistory(name string, commits ...Commit) (*MemoryHistory, error) {
	h := &MemoryHistory{name: name, commits: make(map[string]Commit, len(commits))}
	for _, c := range commits {
		if err := h.Add(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Add appends a commit.
func (h *MemoryHistory) Add(c Commit) error {
	if c.ID == "" {
		return fmt.Errorf("commit in %s has no id", h.name)
	}
	if _, ok := h.commits[c.ID]; ok {
		return fmt.Errorf("duplicate commit %s in %s", c.ID, h.name)
	}
	for _, p := range c.Parents {
		if _, ok := h.commits[p]; !ok {
			return fmt.Errorf("commit %s in %s: parent %s: %w", c.ID, h.name, p, ErrUnknownRevision)
		}
	}
	c.Parents = slices.Clone(c.Parents)
	h.commits[c.ID] = c
	h.order = append(h.order, c.ID)
	return nil
}

// Name returns the repository name.
func (h *MemoryHistory) Name() string { return h.name }

// FindHighestRevision returns revID if it is known, or the most recently
// added head when revID is empty.
func (h *MemoryHistory) FindHighestRevision(ctx context.Context, revID string) (ir.Revision, error) {
	if revID == "" {
		heads, err := h.Heads(ctx)
		if err != nil {
			return ir.Revision{}, err
		}
		return heads[len(heads)-1], nil
	}
	if _, ok := h.commits[revID]; !ok {
		return ir.Revision{}, fmt.Errorf("%s in %s: %w", revID, h.name, ErrUnknownRevision)
	}
	return ir.NewRevision(revID, h.name), nil
}

// Heads returns every commit that is nobody's parent, in the order the
// commits were added.
func (h *MemoryHistory) Heads(_ context.Context) ([]ir.Revision, error) {
	if len(h.order) == 0 {
		return nil, fmt.Errorf("repository %s has no commits", h.name)
	}
	isParent := make(map[string]bool)
	for _, c := range h.commits {
		for _, p := range c.Parents {
			isParent[p] = true
		}
	}
	var heads []ir.Revision
	for _, id := range h.order {
		if !isParent[id] {
			heads = append(heads, ir.NewRevision(id, h.name))
		}
	}
	return heads, nil
}

// Metadata returns the metadata of rev with fields parsed from its
// description.
func (h *MemoryHistory) Metadata(_ context.Context, rev ir.Revision) (ir.Metadata, error) {
	c, err := h.lookup(rev)
	if err != nil {
		return ir.Metadata{}, err
	}
	b := ir.NewMetadataBuilder().
		ID(c.ID).
		Author(c.Author).
		Date(c.Date).
		Description(c.Description)
	for _, p := range c.Parents {
		b.Parents(ir.NewRevision(p, h.name))
	}
	return b.Build().WithParsedFields(), nil
}

// Export writes the files of rev into dst.
func (h *MemoryHistory) Export(ctx context.Context, rev ir.Revision, dst billy.Filesystem) error {
	c, err := h.lookup(rev)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(c.Files))
	for path := range c.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		perm := os.FileMode(0o644)
		if slices.Contains(c.Executable, path) {
			perm = 0o755
		}
		if err := writeFile(dst, path, bytes.NewReader([]byte(c.Files[path])), perm); err != nil {
			return fmt.Errorf("export %s: %w", rev, err)
		}
	}
	return nil
}

func (h *MemoryHistory) lookup(rev ir.Revision) (Commit, error) {
	if rev.RepositoryName != h.name {
		return Commit{}, fmt.Errorf("revision %s does not belong to repository %s", rev, h.name)
	}
	c, ok := h.commits[rev.RevID]
	if !ok {
		return Commit{}, fmt.Errorf("%s: %w", rev, ErrUnknownRevision)
	}
	return c, nil
}
