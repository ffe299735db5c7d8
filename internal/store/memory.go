package store

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/MOE-sub001/internal/ir"
)

// snapshotStore keeps facts in an ir.Snapshot. It backs both the file and
// the in-memory stores; they differ only in what Write does.
type snapshotStore struct {
	location string
	snap     ir.Snapshot
}

func (s *snapshotStore) NoteEquivalence(_ context.Context, e ir.Equivalence) error {
	s.snap.AddEquivalence(e)
	return nil
}

func (s *snapshotStore) FindEquivalences(_ context.Context, rev ir.Revision, otherRepository string) ([]ir.Revision, error) {
	return s.snap.FindEquivalences(rev, otherRepository), nil
}

func (s *snapshotStore) NoteMigration(_ context.Context, m ir.SubmittedMigration) (bool, error) {
	return s.snap.AddMigration(m), nil
}

func (s *snapshotStore) HasMigration(_ context.Context, m ir.SubmittedMigration) (bool, error) {
	return s.snap.HasMigration(m), nil
}

func (s *snapshotStore) Snapshot(context.Context) (ir.Snapshot, error) {
	return s.snap.Clone(), nil
}

func (s *snapshotStore) Location() string {
	return s.location
}

func (s *snapshotStore) Close() error {
	return nil
}

// MemoryStore is a store that lives only for the process. Write logs the
// contents instead of persisting them.
type MemoryStore struct {
	snapshotStore
	logger *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(location string, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		snapshotStore: snapshotStore{location: location},
		logger:        logger,
	}
}

// Write logs every recorded fact.
func (s *MemoryStore) Write(ctx context.Context) error {
	equivs := make([]string, len(s.snap.Equivalences))
	for i, e := range s.snap.Equivalences {
		equivs[i] = e.String()
	}
	migrations := make([]string, len(s.snap.Migrations))
	for i, m := range s.snap.Migrations {
		migrations[i] = m.String()
	}

	s.logger.InfoContext(ctx, "in-memory database contents",
		"location", s.location,
		"equivalences", strings.Join(equivs, "; "),
		"migrations", strings.Join(migrations, "; "))
	return nil
}
