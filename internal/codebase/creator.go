package codebase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/google/MOE-sub001/internal/ir"
)

// Exporter writes the files of a revision into a filesystem.
type Exporter interface {
	Export(ctx context.Context, rev ir.Revision, dst billy.Filesystem) error
}

// Source is one repository a RepositoryCreator can export from.
type Source struct {
	Exporter     Exporter
	ProjectSpace string
}

// IdentityEditor is the only editor type a translation step may use.
const IdentityEditor = "identity"

// Translator moves code from one project space to another.
//
// Steps holds the editor type of each translation step. Only identity
// steps can be applied; any other editor yields a *CreationError. Inverse
// translators are applied as identity.
type Translator struct {
	FromProjectSpace string
	ToProjectSpace   string
	Inverse          bool
	Steps            []string
}

// RepositoryCreator creates codebases by exporting revisions from
// configured repositories into temporary directories.
type RepositoryCreator struct {
	Sources     map[string]Source
	Translators []Translator

	// TempDir is the parent of created directories. Empty means
	// os.TempDir().
	TempDir string

	created []string
}

// Create exports rev and translates it into projectSpace when asked to.
func (c *RepositoryCreator) Create(ctx context.Context, rev ir.Revision, projectSpace string) (*Codebase, error) {
	src, ok := c.Sources[rev.RepositoryName]
	if !ok || src.Exporter == nil {
		return nil, &CreationError{Revision: rev, Err: fmt.Errorf("no repository named %q", rev.RepositoryName)}
	}

	var translator *Translator
	if projectSpace != "" && projectSpace != src.ProjectSpace {
		t, err := c.findTranslator(src.ProjectSpace, projectSpace)
		if err != nil {
			return nil, &CreationError{Revision: rev, Err: err}
		}
		translator = t
	}

	dir, err := os.MkdirTemp(c.TempDir, "codebase_"+sanitize(rev.RepositoryName)+"_")
	if err != nil {
		return nil, fmt.Errorf("create codebase directory: %w", err)
	}
	c.created = append(c.created, dir)

	if err := src.Exporter.Export(ctx, rev, osfs.New(dir)); err != nil {
		return nil, &CreationError{Revision: rev, Err: err}
	}

	cb := &Codebase{
		Root:         dir,
		ProjectSpace: src.ProjectSpace,
		Expression:   fmt.Sprintf("%s(revision=%s)", rev.RepositoryName, rev.RevID),
	}
	if translator != nil {
		cb.ProjectSpace = translator.ToProjectSpace
		cb.Expression += ">" + translator.ToProjectSpace
	}

	slog.Debug("codebase created", "codebase", cb.Expression, "root", dir)
	return cb, nil
}

func (c *RepositoryCreator) findTranslator(from, to string) (*Translator, error) {
	for i := range c.Translators {
		t := &c.Translators[i]
		if t.FromProjectSpace != from || t.ToProjectSpace != to {
			continue
		}
		if t.Inverse {
			return t, nil
		}
		var unsupported []string
		for _, editor := range t.Steps {
			if editor != IdentityEditor {
				unsupported = append(unsupported, editor)
			}
		}
		if len(unsupported) > 0 {
			return nil, fmt.Errorf("translation from %s to %s needs editors that cannot be applied: %s",
				from, to, strings.Join(unsupported, ", "))
		}
		return t, nil
	}
	return nil, fmt.Errorf("no translator from project space %q to %q", from, to)
}

// Cleanup removes every directory this creator made.
func (c *RepositoryCreator) Cleanup() error {
	var errs []error
	for _, dir := range c.created {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	c.created = nil
	return errors.Join(errs...)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
}
