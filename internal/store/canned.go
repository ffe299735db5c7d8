package store

import (
	"context"
	"slices"

	"github.com/google/MOE-sub001/internal/ir"
)

// CannedStore is a test double. It records whatever it is told, and when
// ReturnEquivalences is set it claims revisions "1" and "2" of any other
// repository are equivalent to every revision asked about.
type CannedStore struct {
	ReturnEquivalences bool

	Equivalences []ir.Equivalence
	Migrations   []ir.SubmittedMigration
	Writes       int
}

// NewCannedStore returns an empty CannedStore.
func NewCannedStore(returnEquivalences bool) *CannedStore {
	return &CannedStore{ReturnEquivalences: returnEquivalences}
}

func (s *CannedStore) NoteEquivalence(_ context.Context, e ir.Equivalence) error {
	s.Equivalences = append(s.Equivalences, e)
	return nil
}

func (s *CannedStore) FindEquivalences(_ context.Context, _ ir.Revision, otherRepository string) ([]ir.Revision, error) {
	if !s.ReturnEquivalences {
		return nil, nil
	}
	return []ir.Revision{
		ir.NewRevision("1", otherRepository),
		ir.NewRevision("2", otherRepository),
	}, nil
}

func (s *CannedStore) NoteMigration(_ context.Context, m ir.SubmittedMigration) (bool, error) {
	if slices.Contains(s.Migrations, m) {
		return false, nil
	}
	s.Migrations = append(s.Migrations, m)
	return true, nil
}

func (s *CannedStore) HasMigration(_ context.Context, m ir.SubmittedMigration) (bool, error) {
	return slices.Contains(s.Migrations, m), nil
}

func (s *CannedStore) Snapshot(context.Context) (ir.Snapshot, error) {
	var snap ir.Snapshot
	for _, e := range s.Equivalences {
		snap.AddEquivalence(e)
	}
	for _, m := range s.Migrations {
		snap.AddMigration(m)
	}
	return snap, nil
}

// Write counts calls.
func (s *CannedStore) Write(context.Context) error {
	s.Writes++
	return nil
}

func (s *CannedStore) Location() string { return memoryLocation }

func (s *CannedStore) Close() error { return nil }
