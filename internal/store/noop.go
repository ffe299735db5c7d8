package store

import (
	"context"

	"github.com/google/MOE-sub001/internal/ir"
)

// NoopStore discards every fact. It stands in for the database when none is
// configured.
type NoopStore struct{}

// NewNoopStore returns a NoopStore.
func NewNoopStore() NoopStore { return NoopStore{} }

func (NoopStore) NoteEquivalence(context.Context, ir.Equivalence) error { return nil }

func (NoopStore) FindEquivalences(context.Context, ir.Revision, string) ([]ir.Revision, error) {
	return nil, nil
}

// NoteMigration reports true: nothing is ever recorded, so every migration
// is new.
func (NoopStore) NoteMigration(context.Context, ir.SubmittedMigration) (bool, error) {
	return true, nil
}

func (NoopStore) HasMigration(context.Context, ir.SubmittedMigration) (bool, error) {
	return false, nil
}

func (NoopStore) Snapshot(context.Context) (ir.Snapshot, error) { return ir.Snapshot{}, nil }

func (NoopStore) Write(context.Context) error { return nil }

func (NoopStore) Location() string { return "" }

func (NoopStore) Close() error { return nil }
