package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/MOE-sub001/internal/bookkeeper"
	"github.com/google/MOE-sub001/internal/codebase"
	"github.com/google/MOE-sub001/internal/ir"
	"github.com/google/MOE-sub001/internal/repository"
	"github.com/google/MOE-sub001/internal/store"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every run behaved as expected and every
	// assertion held.
	Pass bool

	// Errors lists every failure.
	Errors []string

	// Reports holds one report per run.
	Reports []*bookkeeper.Report

	// Snapshot is the database after the last run.
	Snapshot ir.Snapshot
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records a failure.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

// Run executes a scenario.
//
// Each scenario runs against a fresh in-memory store with fixed run ids.
// Errors returned by Run mean the scenario could not be set up; failed
// expectations are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	project, err := scenario.LoadProject()
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	pc, err := repository.NewContext(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to open repositories: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "reposync_harness_")
	if err != nil {
		return nil, fmt.Errorf("failed to create codebase directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore("dummy", logger)
	if err := seed(ctx, st, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	runs := scenario.Runs
	if runs == 0 {
		runs = 1
	}
	ids := make([]string, runs)
	for i := range ids {
		ids[i] = fmt.Sprintf("run-%d", i+1)
	}

	creator := repository.NewCreator(pc, tempDir)
	defer creator.Cleanup()
	bk := bookkeeper.New(pc, creator, codebase.TreeDiffer{}, st,
		bookkeeper.WithLogger(logger),
		bookkeeper.WithRunIDGenerator(bookkeeper.NewFixedGenerator(ids...)))

	result := NewResult()
	for i := 0; i < runs; i++ {
		report, err := bk.Bookkeep(ctx)
		result.Reports = append(result.Reports, report)
		last := i == runs-1
		switch {
		case err != nil && last && scenario.ExpectError != "":
			if !strings.Contains(err.Error(), scenario.ExpectError) {
				result.AddError(fmt.Sprintf("run %d: error %q does not contain %q", i+1, err, scenario.ExpectError))
			}
		case err != nil:
			result.AddError(fmt.Sprintf("run %d: unexpected error: %v", i+1, err))
		case last && scenario.ExpectError != "":
			result.AddError(fmt.Sprintf("run %d: expected an error containing %q", i+1, scenario.ExpectError))
		}
	}

	snap, err := st.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read database: %w", err)
	}
	result.Snapshot = snap

	for _, msg := range EvaluateAssertions(snap, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func seed(ctx context.Context, st store.Store, s Seed) error {
	for _, pair := range s.Equivalences {
		e, err := parsePair(pair)
		if err != nil {
			return err
		}
		if err := st.NoteEquivalence(ctx, e); err != nil {
			return err
		}
	}
	for _, ref := range s.Migrations {
		m, err := parseMigration(ref.From, ref.To)
		if err != nil {
			return err
		}
		if _, err := st.NoteMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
