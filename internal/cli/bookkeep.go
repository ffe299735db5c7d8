package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/google/MOE-sub001/internal/bookkeeper"
	"github.com/google/MOE-sub001/internal/codebase"
	"github.com/google/MOE-sub001/internal/history"
	"github.com/google/MOE-sub001/internal/repository"
)

// BookkeepOptions holds flags for the bookkeep command.
type BookkeepOptions struct {
	*RootOptions
	MaxRevisions int
	TempDir      string

	// RunIDs overrides the run id generator (for testing).
	RunIDs bookkeeper.RunIDGenerator
}

// NewBookkeepCommand creates the bookkeep command.
func NewBookkeepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BookkeepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bookkeep",
		Short: "Record equivalences and completed migrations",
		Long: `Update the database from the configured repositories.

For every migration in the configuration, bookkeep checks whether the two
repository heads hold the same code, then scans the destination repository
back to its last equivalence for revisions a migration produced
(MOE_MIGRATED_REVID=<id> in the description) and records them.

Example:
  reposync bookkeep --config project.yaml --db file:///var/reposync/db.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookkeep(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxRevisions, "max-revisions", history.DefaultMaxRevisions, "maximum revisions to crawl per repository")
	cmd.Flags().StringVar(&opts.TempDir, "temp-dir", "", "directory for exported codebases (default: system temp dir)")

	return cmd
}

func runBookkeep(opts *BookkeepOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx, cancel := commandContext(cmd)
	defer cancel()

	pc, err := loadProject(ctx, opts.RootOptions)
	if err != nil {
		return f.Fail(asExitError("load project", err))
	}
	st, err := openStore(ctx, opts.RootOptions, pc.Project)
	if err != nil {
		return f.Fail(asExitError("open database", err))
	}
	defer closeStore(st)

	creator := repository.NewCreator(pc, opts.TempDir)
	defer func() {
		if err := creator.Cleanup(); err != nil {
			slog.Warn("could not remove codebase directories", "error", err)
		}
	}()

	bkOpts := []bookkeeper.Option{
		bookkeeper.WithLogger(slog.Default()),
		bookkeeper.WithCrawlOptions(history.WithMaxRevisions(opts.MaxRevisions)),
	}
	if opts.RunIDs != nil {
		bkOpts = append(bkOpts, bookkeeper.WithRunIDGenerator(opts.RunIDs))
	}
	bk := bookkeeper.New(pc, creator, codebase.TreeDiffer{}, st, bkOpts...)

	report, err := bk.Bookkeep(ctx)
	if err != nil {
		return f.Fail(wrapFailure("bookkeeping failed", err))
	}
	return f.Emit(report, func(w io.Writer) { report.Write(w) })
}
