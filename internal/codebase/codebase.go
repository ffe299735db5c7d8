// Package codebase materializes revisions as directory trees and compares
// them.
//
// A Codebase is a directory holding the files of one revision, optionally
// translated into another project space. Creators produce codebases;
// Differs compare them. Both are external collaborators of the bookkeeper
// and the merge engine, which only ever see these interfaces.
package codebase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/google/MOE-sub001/internal/ir"
)

// Codebase is a materialized file tree.
type Codebase struct {
	// Root is the directory holding the files.
	Root string

	// ProjectSpace is the project space the files are expressed in.
	ProjectSpace string

	// Expression describes how the codebase was produced, for messages.
	Expression string
}

func (c *Codebase) String() string {
	if c.Expression != "" {
		return c.Expression
	}
	return c.Root
}

// FS returns the codebase as a billy filesystem rooted at Root.
func (c *Codebase) FS() billy.Filesystem {
	return osfs.New(c.Root)
}

// Files returns the slash-separated relative paths of every regular file in
// the codebase, sorted.
func (c *Codebase) Files() ([]string, error) {
	return ListFiles(c.FS())
}

// Path returns the absolute path of a relative file name.
func (c *Codebase) Path(rel string) string {
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

// Exists reports whether rel names a regular file in the codebase.
func (c *Codebase) Exists(rel string) bool {
	info, err := os.Lstat(c.Path(rel))
	return err == nil && info.Mode().IsRegular()
}

// ListFiles walks fsys and returns every regular file, slash-separated and
// sorted. Directories and symlinks are not listed.
func ListFiles(fsys billy.Filesystem) ([]string, error) {
	var files []string
	err := util.Walk(fsys, "", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, filepath.ToSlash(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Creator materializes revisions.
type Creator interface {
	// Create writes the files of rev into a new directory. A non-empty
	// projectSpace asks for the files translated into that project space;
	// an empty one means as stored in the repository.
	Create(ctx context.Context, rev ir.Revision, projectSpace string) (*Codebase, error)
}

// Differ compares codebases.
type Differ interface {
	// AreDifferent reports whether a and b hold different files.
	AreDifferent(ctx context.Context, a, b *Codebase) (bool, error)
}

// CreationError reports a codebase that could not be materialized. Callers
// that scan many revisions treat it as "no answer" for that revision rather
// than a reason to stop.
type CreationError struct {
	Revision ir.Revision
	Err      error
}

// Error implements the error interface.
func (e *CreationError) Error() string {
	return fmt.Sprintf("could not create codebase for %s: %v", e.Revision, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// IsCreationError returns true if err is or wraps a *CreationError.
func IsCreationError(err error) bool {
	var ce *CreationError
	return errors.As(err, &ce)
}
