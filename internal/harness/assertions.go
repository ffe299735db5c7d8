package harness

import (
	"fmt"
	"strings"

	"github.com/google/MOE-sub001/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Snapshot ir.Snapshot
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nDatabase:\n")
	for _, eq := range e.Snapshot.Equivalences {
		fmt.Fprintf(&buf, "  %s\n", eq)
	}
	for _, m := range e.Snapshot.Migrations {
		fmt.Fprintf(&buf, "  %s\n", m)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against snap and returns one
// message per failure.
func EvaluateAssertions(snap ir.Snapshot, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(snap, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(snap ir.Snapshot, a Assertion) error {
	switch a.Type {
	case AssertEquivalence, AssertNoEquivalence:
		e, err := parsePair(a.Revisions)
		if err != nil {
			return err
		}
		want := a.Type == AssertEquivalence
		if hasEquivalence(snap, e) != want {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s recorded: %v", e, want),
				Actual:   fmt.Sprintf("recorded: %v", !want),
				Snapshot: snap,
			}
		}
	case AssertMigration, AssertNoMigration:
		m, err := parseMigration(a.From, a.To)
		if err != nil {
			return err
		}
		want := a.Type == AssertMigration
		if snap.HasMigration(m) != want {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s recorded: %v", m, want),
				Actual:   fmt.Sprintf("recorded: %v", !want),
				Snapshot: snap,
			}
		}
	case AssertEquivalenceCount:
		if got := len(snap.Equivalences); got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d equivalences", a.Count),
				Actual:   fmt.Sprintf("%d equivalences", got),
				Snapshot: snap,
			}
		}
	case AssertMigrationCount:
		if got := len(snap.Migrations); got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d migrations", a.Count),
				Actual:   fmt.Sprintf("%d migrations", got),
				Snapshot: snap,
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func hasEquivalence(snap ir.Snapshot, e ir.Equivalence) bool {
	for _, got := range snap.Equivalences {
		if got == e {
			return true
		}
	}
	return false
}
