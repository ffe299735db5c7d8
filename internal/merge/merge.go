// Package merge folds the changes between two codebases into a third.
//
// Merge(orig, mod, dest) produces a new tree that starts as dest and picks
// up the edits leading from orig to mod. Byte-level merging of a single file
// is delegated to an external merge(1) compatible tool; this package only
// decides, per file, what to copy and what to merge.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/google/MOE-sub001/internal/codebase"
	"github.com/google/MOE-sub001/internal/command"
)

// Default tool names.
const (
	DefaultMergeTool = "merge"
	DefaultDiffTool  = "diff"
)

// Engine merges codebases.
type Engine struct {
	Runner    command.Runner
	MergeTool string // default "merge"
	DiffTool  string // default "diff"

	// TempDir is the parent of result directories. Empty means
	// os.TempDir().
	TempDir string

	Logger *slog.Logger
}

// Result is the outcome of a merge. File lists hold slash-separated paths
// relative to MergedRoot, sorted. A path is in at most one list; files that
// were copied without reconciliation are in neither.
type Result struct {
	MergedRoot  string
	MergedFiles []string
	FailedFiles []string
}

// Codebase returns the merged tree as a codebase.
func (r *Result) Codebase() *codebase.Codebase {
	return &codebase.Codebase{Root: r.MergedRoot, Expression: "merged"}
}

// Report writes a human-readable summary.
func (r *Result) Report(w io.Writer) {
	fmt.Fprintf(w, "Merged codebase generated at: %s\n", r.MergedRoot)
	if len(r.FailedFiles) == 0 {
		fmt.Fprintf(w, "%d files merged successfully. No merge conflicts.\n", len(r.MergedFiles))
		return
	}
	fmt.Fprintf(w, "%d files merged successfully.\n", len(r.MergedFiles))
	fmt.Fprintf(w, "%d files have merge conflicts. Edit the following files to resolve conflicts:\n", len(r.FailedFiles))
	for _, f := range r.FailedFiles {
		fmt.Fprintf(w, "  %s\n", filepath.Join(r.MergedRoot, filepath.FromSlash(f)))
	}
}

// Merge folds the changes from orig to mod into a copy of dest.
//
// Conflicts are reported in Result.FailedFiles, never as errors. An error
// means the merge could not be carried out: the result directory could not
// be created, a file could not be copied or a tool could not be started.
func (e *Engine) Merge(ctx context.Context, orig, mod, dest *codebase.Codebase) (*Result, error) {
	root, err := os.MkdirTemp(e.TempDir, "merged_codebase_")
	if err != nil {
		return nil, fmt.Errorf("create merged codebase directory: %w", err)
	}

	modFiles, err := mod.Files()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", mod, err)
	}
	destFiles, err := dest.Files()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dest, err)
	}

	m := &merger{
		Engine: e,
		orig:   orig,
		mod:    mod,
		dest:   dest,
		result: &Result{MergedRoot: root},
	}
	for _, path := range union(modFiles, destFiles) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.mergeFile(ctx, path); err != nil {
			return nil, err
		}
	}

	e.logger().Info("merge finished",
		"root", root,
		"merged", len(m.result.MergedFiles),
		"failed", len(m.result.FailedFiles))
	return m.result, nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) mergeTool() string {
	if e.MergeTool != "" {
		return e.MergeTool
	}
	return DefaultMergeTool
}

func (e *Engine) diffTool() string {
	if e.DiffTool != "" {
		return e.DiffTool
	}
	return DefaultDiffTool
}

type merger struct {
	*Engine
	orig, mod, dest *codebase.Codebase
	result          *Result
}

func (m *merger) mergeFile(ctx context.Context, path string) error {
	inOrig := m.orig.Exists(path)
	inMod := m.mod.Exists(path)
	inDest := m.dest.Exists(path)

	switch {
	case inOrig && inMod && !inDest:
		// Deleted in dest; nothing to bring over.
		return nil

	case inOrig && !inMod && inDest:
		changed, err := m.differs(ctx, path)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := m.copyInto(m.dest, path); err != nil {
			return err
		}
		ok, err := m.runMerge(ctx, path, m.orig.Path(path), os.DevNull)
		if err != nil {
			return err
		}
		if !ok {
			m.result.FailedFiles = append(m.result.FailedFiles, path)
		}
		return nil

	case !inOrig && inMod && !inDest:
		return m.copyInto(m.mod, path)

	case !inOrig && !inMod && inDest:
		return m.copyInto(m.dest, path)

	default:
		origPath := os.DevNull
		if inOrig {
			origPath = m.orig.Path(path)
		}
		if err := m.copyInto(m.dest, path); err != nil {
			return err
		}
		ok, err := m.runMerge(ctx, path, origPath, m.mod.Path(path))
		if err != nil {
			return err
		}
		if ok {
			m.result.MergedFiles = append(m.result.MergedFiles, path)
		} else {
			m.result.FailedFiles = append(m.result.FailedFiles, path)
		}
		return nil
	}
}

// runMerge merges the edits from origPath to modPath into the result copy
// of path. It reports false when the tool signalled a conflict.
func (m *merger) runMerge(ctx context.Context, path, origPath, modPath string) (bool, error) {
	_, err := m.Runner.Run(ctx, m.result.MergedRoot, m.mergeTool(), filepath.FromSlash(path), origPath, modPath)
	if err == nil {
		return true, nil
	}
	if command.IsExitError(err) {
		m.logger().Debug("merge conflict", "file", path, "error", err)
		return false, nil
	}
	return false, fmt.Errorf("merge %s: %w", path, err)
}

// differs reports whether dest changed path relative to orig. A diff tool
// that fails outright counts as a change, so the file is merged rather than
// silently dropped.
func (m *merger) differs(ctx context.Context, path string) (bool, error) {
	res, err := m.Runner.Run(ctx, m.result.MergedRoot, m.diffTool(), "-N", "-u", m.orig.Path(path), m.dest.Path(path))
	if err == nil {
		return false, nil
	}
	var ee *command.ExitError
	if !errors.As(err, &ee) {
		return false, fmt.Errorf("diff %s: %w", path, err)
	}
	if res != nil && res.ExitCode != 1 {
		m.logger().Warn("diff failed, treating file as changed", "file", path, "error", err)
	}
	return true, nil
}

// copyInto copies path from src into the result tree, keeping its mode.
func (m *merger) copyInto(src *codebase.Codebase, path string) error {
	if err := copyFile(src.FS(), m.result.Codebase().FS(), path); err != nil {
		return fmt.Errorf("copy %s from %s: %w", path, src, err)
	}
	info, err := os.Stat(src.Path(path))
	if err != nil {
		return err
	}
	return os.Chmod(filepath.Join(m.result.MergedRoot, filepath.FromSlash(path)), info.Mode().Perm())
}

func copyFile(from, to billy.Filesystem, path string) (err error) {
	info, err := from.Stat(path)
	if err != nil {
		return err
	}
	in, err := from.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(path); dir != "." {
		if err := to.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := to.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

func union(a, b []string) []string {
	out := slices.Concat(a, b)
	sort.Strings(out)
	return slices.Compact(out)
}
