package ir

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Snapshot is the full contents of an equivalence/migration store.
//
// It only ever grows. Adding a fact that is already present is a no-op,
// so callers never need to check before adding.
type Snapshot struct {
	Equivalences []Equivalence        `json:"equivalences"`
	Migrations   []SubmittedMigration `json:"migrations"`
}

// AddEquivalence appends e unless an equal equivalence is recorded.
// It reports whether e was newly added.
func (s *Snapshot) AddEquivalence(e Equivalence) bool {
	if slices.Contains(s.Equivalences, e) {
		return false
	}
	s.Equivalences = append(s.Equivalences, e)
	return true
}

// AddMigration appends m unless an equal migration is recorded.
// It reports whether m was newly added.
func (s *Snapshot) AddMigration(m SubmittedMigration) bool {
	if s.HasMigration(m) {
		return false
	}
	s.Migrations = append(s.Migrations, m)
	return true
}

// HasMigration reports whether m is recorded.
func (s *Snapshot) HasMigration(m SubmittedMigration) bool {
	return slices.Contains(s.Migrations, m)
}

// FindEquivalences returns the revisions of otherRepository recorded as
// equivalent to rev, in recording order.
func (s *Snapshot) FindEquivalences(rev Revision, otherRepository string) []Revision {
	var out []Revision
	for _, e := range s.Equivalences {
		other, ok := e.OtherRevision(rev)
		if !ok || other.RepositoryName != otherRepository {
			continue
		}
		if !slices.Contains(out, other) {
			out = append(out, other)
		}
	}
	return out
}

// Clone returns a copy that shares no slices with s.
func (s *Snapshot) Clone() Snapshot {
	return Snapshot{
		Equivalences: slices.Clone(s.Equivalences),
		Migrations:   slices.Clone(s.Migrations),
	}
}

// UnmarshalJSON decodes a store document, deduplicating facts as it goes.
// Missing lists are treated as empty.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Equivalences []Equivalence        `json:"equivalences"`
		Migrations   []SubmittedMigration `json:"migrations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Snapshot
	for _, e := range raw.Equivalences {
		out.AddEquivalence(e)
	}
	for _, m := range raw.Migrations {
		out.AddMigration(m)
	}
	*s = out
	return nil
}

// MarshalCanonical encodes the snapshot as canonical JSON: sorted keys, NFC
// strings, no HTML escaping. Empty lists are written as [].
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	equivs := make([]any, 0, len(s.Equivalences))
	for _, e := range s.Equivalences {
		equivs = append(equivs, e.canonicalMap())
	}
	migrations := make([]any, 0, len(s.Migrations))
	for _, m := range s.Migrations {
		migrations = append(migrations, m.canonicalMap())
	}

	data, err := MarshalCanonical(map[string]any{
		"equivalences": equivs,
		"migrations":   migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}
