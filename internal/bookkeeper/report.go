package bookkeeper

import (
	"fmt"
	"io"
)

// Report summarises one bookkeeping run.
type Report struct {
	RunID      string            `json:"run_id"`
	Database   string            `json:"database"`
	Migrations []MigrationReport `json:"migrations"`

	// Warnings counts codebases that could not be created.
	Warnings int `json:"warnings"`
}

// MigrationReport summarises one migration of a run.
type MigrationReport struct {
	Name    string `json:"name"`
	From    string `json:"from_repository"`
	To      string `json:"to_repository"`
	Inverse bool   `json:"inverse,omitempty"`

	// HeadEquivalence is set when the two heads were found equivalent.
	HeadEquivalence bool `json:"head_equivalence"`

	// RevisionsScanned counts revisions since the last equivalence.
	RevisionsScanned int `json:"revisions_scanned"`
	// Unmigrated counts scanned revisions without a migration marker.
	Unmigrated int `json:"unmigrated"`
	// Processed counts revisions looked at before the scan stopped.
	Processed int `json:"processed"`
	// Skipped counts revisions preceding a discovered equivalence.
	Skipped int `json:"skipped"`
	// AlreadyRecorded counts migrations found in the store already.
	AlreadyRecorded int `json:"already_recorded"`

	MigrationsNoted   int `json:"migrations_noted"`
	EquivalencesNoted int `json:"equivalences_noted"`
}

// Write prints the report.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "Bookkeeping run %s (database %s)\n", r.RunID, r.Database)
	for _, m := range r.Migrations {
		direction := ""
		if m.Inverse {
			direction = " (inverse)"
		}
		fmt.Fprintf(w, "Migration %s: %s -> %s%s\n", m.Name, m.From, m.To, direction)
		if m.HeadEquivalence {
			fmt.Fprintf(w, "  heads are equivalent\n")
		}
		fmt.Fprintf(w, "  %d revisions since equivalence, %d not migrated\n", m.RevisionsScanned, m.Unmigrated)
		if m.AlreadyRecorded > 0 {
			fmt.Fprintf(w, "  %d migrations already recorded\n", m.AlreadyRecorded)
		}
		if m.Skipped > 0 {
			fmt.Fprintf(w, "  skipped %d revisions that preceded a discovered equivalence\n", m.Skipped)
		}
		fmt.Fprintf(w, "  noted %d migrations, %d equivalences\n", m.MigrationsNoted, m.EquivalencesNoted)
	}
	if r.Warnings > 0 {
		fmt.Fprintf(w, "%d codebases could not be created\n", r.Warnings)
	}
}
