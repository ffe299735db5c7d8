package ir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidEquivalence is returned when an equivalence would relate a
// revision to itself or two revisions of the same repository.
var ErrInvalidEquivalence = errors.New("invalid equivalence")

// Equivalence asserts that two revisions in different repositories hold
// identical code once translated into a common project space.
//
// The pair is unordered. Revisions are kept sorted by repository name so
// that two equivalences built in either order compare equal with ==.
type Equivalence struct {
	first  Revision
	second Revision
}

// NewEquivalence pairs two revisions, supplied in any order.
func NewEquivalence(a, b Revision) (Equivalence, error) {
	if a == b {
		return Equivalence{}, fmt.Errorf("%w: identical revisions %s are already equivalent", ErrInvalidEquivalence, a)
	}
	if a.RepositoryName == b.RepositoryName {
		return Equivalence{}, fmt.Errorf("%w: %s and %s belong to the same repository", ErrInvalidEquivalence, a, b)
	}
	if b.RepositoryName < a.RepositoryName {
		a, b = b, a
	}
	return Equivalence{first: a, second: b}, nil
}

// MustEquivalence is NewEquivalence for statically known revisions.
// It panics on invalid input.
func MustEquivalence(a, b Revision) Equivalence {
	e, err := NewEquivalence(a, b)
	if err != nil {
		panic(err)
	}
	return e
}

// Revisions returns both revisions, ordered by repository name.
func (e Equivalence) Revisions() [2]Revision {
	return [2]Revision{e.first, e.second}
}

// HasRevision reports whether rev is one side of the equivalence.
func (e Equivalence) HasRevision(rev Revision) bool {
	return e.first == rev || e.second == rev
}

// OtherRevision returns the side that is not rev. ok is false when rev is
// not part of this equivalence.
func (e Equivalence) OtherRevision(rev Revision) (Revision, bool) {
	switch rev {
	case e.first:
		return e.second, true
	case e.second:
		return e.first, true
	}
	return Revision{}, false
}

// RevisionFor returns the side belonging to the named repository.
func (e Equivalence) RevisionFor(repositoryName string) (Revision, bool) {
	switch repositoryName {
	case e.first.RepositoryName:
		return e.first, true
	case e.second.RepositoryName:
		return e.second, true
	}
	return Revision{}, false
}

func (e Equivalence) String() string {
	return e.first.String() + " == " + e.second.String()
}

// MarshalJSON writes the store form {"rev1": ..., "rev2": ...}.
func (e Equivalence) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rev1 Revision `json:"rev1"`
		Rev2 Revision `json:"rev2"`
	}{e.first, e.second})
}

// UnmarshalJSON reads the store form and re-validates the pair.
func (e *Equivalence) UnmarshalJSON(data []byte) error {
	var raw struct {
		Rev1 *Revision `json:"rev1"`
		Rev2 *Revision `json:"rev2"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("equivalence: %w", err)
	}
	if raw.Rev1 == nil || raw.Rev2 == nil {
		return fmt.Errorf("equivalence: rev1 and rev2 are required")
	}
	out, err := NewEquivalence(*raw.Rev1, *raw.Rev2)
	if err != nil {
		return err
	}
	*e = out
	return nil
}

func (e Equivalence) canonicalMap() map[string]any {
	return map[string]any{
		"rev1": e.first.canonicalMap(),
		"rev2": e.second.canonicalMap(),
	}
}

// SubmittedMigration records that To was produced by migrating From into
// To's repository. Unlike Equivalence the direction is significant.
type SubmittedMigration struct {
	From Revision `json:"from_revision"`
	To   Revision `json:"to_revision"`
}

// NewSubmittedMigration creates a migration record.
func NewSubmittedMigration(from, to Revision) SubmittedMigration {
	return SubmittedMigration{From: from, To: to}
}

func (m SubmittedMigration) String() string {
	return m.From.String() + " ==> " + m.To.String()
}

// UnmarshalJSON accepts from_revision/to_revision and the legacy
// fromRevision/toRevision names.
func (m *SubmittedMigration) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("migration: %w", err)
	}

	var out SubmittedMigration
	for _, f := range []struct {
		dst               *Revision
		canonical, legacy string
	}{
		{&out.From, "from_revision", "fromRevision"},
		{&out.To, "to_revision", "toRevision"},
	} {
		raw, ok := lookupField(obj, f.canonical, f.legacy)
		if !ok {
			return fmt.Errorf("migration: missing field %q", f.canonical)
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return fmt.Errorf("migration: field %q: %w", f.canonical, err)
		}
	}
	*m = out
	return nil
}

func (m SubmittedMigration) canonicalMap() map[string]any {
	return map[string]any{
		"from_revision": m.From.canonicalMap(),
		"to_revision":   m.To.canonicalMap(),
	}
}
