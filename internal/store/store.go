package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/MOE-sub001/internal/ir"
)

// Store is the equivalence and migration database.
//
// Implementations are single-writer and deduplicate by value: noting a fact
// that is already recorded leaves the store unchanged.
type Store interface {
	// NoteEquivalence records e.
	NoteEquivalence(ctx context.Context, e ir.Equivalence) error

	// FindEquivalences returns the revisions of otherRepository recorded as
	// equivalent to rev. The order is stable for a given store.
	FindEquivalences(ctx context.Context, rev ir.Revision, otherRepository string) ([]ir.Revision, error)

	// NoteMigration records m and reports whether it was newly added.
	NoteMigration(ctx context.Context, m ir.SubmittedMigration) (bool, error)

	// HasMigration reports whether m is recorded.
	HasMigration(ctx context.Context, m ir.SubmittedMigration) (bool, error)

	// Snapshot returns every recorded fact.
	Snapshot(ctx context.Context) (ir.Snapshot, error)

	// Write persists everything noted so far.
	Write(ctx context.Context) error

	// Location is the location the store was opened from.
	Location() string

	// Close releases resources held by the store. It does not write.
	Close() error
}

// Options configures Open.
type Options struct {
	// NoDatabase allows an empty location and selects NoopStore. Used by
	// invocations that never consult the database.
	NoDatabase bool

	// Logger receives store diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

const (
	dummyLocation  = "dummy"
	dummyPrefix    = "dummy:"
	sqlitePrefix   = "sqlite:"
	fileURIPrefix  = "file:"
	memoryLocation = "memory"
)

// Open selects and opens a backend for location.
func Open(ctx context.Context, location string, opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case location == "":
		if opts.NoDatabase {
			return NewNoopStore(), nil
		}
		return nil, &ConfigError{Err: errors.New("database location was not set")}

	case location == dummyLocation || strings.HasPrefix(location, dummyPrefix):
		logger.Debug("using in-memory database", "location", location)
		return NewMemoryStore(location, logger), nil

	case strings.HasPrefix(location, sqlitePrefix):
		path := strings.TrimPrefix(location, sqlitePrefix)
		if path == "" {
			return nil, &ConfigError{Location: location, Err: errors.New("sqlite location has no path")}
		}
		return OpenSQLite(ctx, path)

	case strings.HasPrefix(location, fileURIPrefix):
		path, err := filePath(location)
		if err != nil {
			return nil, &ConfigError{Location: location, Err: err}
		}
		return OpenFile(path, logger)

	default:
		return OpenFile(location, logger)
	}
}

// filePath extracts the filesystem path from a file: URI. Both
// file:///abs/path and the opaque file:rel/path forms are accepted.
func filePath(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", location, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file URI %q names a remote host", location)
	}
	path := u.Path
	if u.Opaque != "" {
		path = u.Opaque
	}
	if path == "" {
		return "", fmt.Errorf("file URI %q has no path", location)
	}
	return path, nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*CannedStore)(nil)
	_ Store = NoopStore{}
)
