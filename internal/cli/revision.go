package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/google/MOE-sub001/internal/history"
	"github.com/google/MOE-sub001/internal/ir"
)

// HighestRevisionOptions holds flags for the highest-revision command.
type HighestRevisionOptions struct {
	*RootOptions
	Repository string
}

// NewHighestRevisionCommand creates the highest-revision command.
func NewHighestRevisionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HighestRevisionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "highest-revision",
		Short: "Print the highest revision of a repository",
		Long: `Resolve a repository expression to a revision. Without a revision the
current head is printed.

Example:
  reposync highest-revision --config project.yaml --repository internal`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHighestRevision(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Repository, "repository", "", "repository expression, e.g. internal or internal(revision=3) (required)")
	_ = cmd.MarkFlagRequired("repository")

	return cmd
}

func runHighestRevision(opts *HighestRevisionOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx, cancel := commandContext(cmd)
	defer cancel()

	expr, err := ParseRepositoryExpression(opts.Repository)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "invalid repository expression", err))
	}
	pc, err := loadProject(ctx, opts.RootOptions)
	if err != nil {
		return f.Fail(asExitError("load project", err))
	}
	_, rev, err := resolveRevision(ctx, pc, expr)
	if err != nil {
		return f.Fail(asExitError("resolve revision", err))
	}
	return f.Emit(rev, func(w io.Writer) {
		fmt.Fprintf(w, "Highest revision in repository %q: %s\n", rev.RepositoryName, rev.RevID)
	})
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Repository string
	Until      string
	Linear     bool
	MaxRevs    int
}

// HistoryEntry is one revision in history output.
type HistoryEntry struct {
	Revision ir.Revision `json:"revision"`
	Author   string      `json:"author,omitempty"`
	Date     time.Time   `json:"date,omitzero"`
	Summary  string      `json:"summary,omitempty"`
	Parents  []string    `json:"parents,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the revisions made since a branch point",
		Long: `Crawl a repository from a revision (default: its head) back to the
--until revision and list every revision in between, newest first.

Example:
  reposync history --config project.yaml --repository public --until 1a2b3c`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Repository, "repository", "", "repository expression to crawl from (required)")
	cmd.Flags().StringVar(&opts.Until, "until", "", "revision id of the branch point (required)")
	cmd.Flags().BoolVar(&opts.Linear, "linear", false, "follow first parents only")
	cmd.Flags().IntVar(&opts.MaxRevs, "max-revisions", history.DefaultMaxRevisions, "maximum revisions to crawl")
	_ = cmd.MarkFlagRequired("repository")
	_ = cmd.MarkFlagRequired("until")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx, cancel := commandContext(cmd)
	defer cancel()

	expr, err := ParseRepositoryExpression(opts.Repository)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "invalid repository expression", err))
	}
	pc, err := loadProject(ctx, opts.RootOptions)
	if err != nil {
		return f.Fail(asExitError("load project", err))
	}
	repo, start, err := resolveRevision(ctx, pc, expr)
	if err != nil {
		return f.Fail(asExitError("resolve revision", err))
	}
	until, err := repo.History.FindHighestRevision(ctx, opts.Until)
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "cannot resolve --until", err))
	}

	mode := history.Branched
	if opts.Linear {
		mode = history.Linear
	}
	result, err := history.Crawl(ctx, repo.History, &start, history.ExactMatcher{BranchPoint: until}, mode,
		history.WithMaxRevisions(opts.MaxRevs))
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "crawl history", err))
	}

	entries := historyEntries(result.Revisions)
	return f.Emit(entries, func(w io.Writer) {
		writeRevisions(w, fmt.Sprintf("Revisions since %s", until), result.Revisions)
	})
}

func historyEntries(g *history.Graph) []HistoryEntry {
	revs := g.BreadthFirstHistory()
	entries := make([]HistoryEntry, 0, len(revs))
	for _, rev := range revs {
		m, _ := g.Metadata(rev)
		e := HistoryEntry{Revision: rev, Author: m.Author, Date: m.Date, Summary: summary(m.Description)}
		for _, p := range m.Parents {
			e.Parents = append(e.Parents, p.RevID)
		}
		entries = append(entries, e)
	}
	return entries
}

// writeRevisions prints a graph newest first, one revision per line.
func writeRevisions(w io.Writer, title string, g *history.Graph) {
	entries := historyEntries(g)
	fmt.Fprintf(w, "%s (%d):\n", title, len(entries))
	for _, e := range entries {
		line := "  " + e.Revision.RevID
		if e.Author != "" {
			line += "  " + e.Author
		}
		if !e.Date.IsZero() {
			line += "  " + e.Date.UTC().Format(time.RFC3339)
		}
		if e.Summary != "" {
			line += "  " + e.Summary
		}
		fmt.Fprintln(w, line)
	}
}

func summary(description string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(description), "\n")
	return first
}
