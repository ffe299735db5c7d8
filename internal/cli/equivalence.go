package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/google/MOE-sub001/internal/history"
	"github.com/google/MOE-sub001/internal/ir"
	"github.com/google/MOE-sub001/internal/store"
)

// NoteEquivalenceOptions holds flags for the note-equivalence command.
type NoteEquivalenceOptions struct {
	*RootOptions
	Repo1 string
	Repo2 string
}

// NewNoteEquivalenceCommand creates the note-equivalence command.
func NewNoteEquivalenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NoteEquivalenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "note-equivalence",
		Short: "Record that two revisions hold the same code",
		Long: `Record an equivalence between revisions of two repositories.

Both revisions must be given explicitly, e.g.
  reposync note-equivalence --config project.yaml --db db.json \
    --repo1 'internal(revision=3)' --repo2 'public(revision=7)'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteEquivalence(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Repo1, "repo1", "", "first repository expression, e.g. 'internal(revision=3)' (required)")
	cmd.Flags().StringVar(&opts.Repo2, "repo2", "", "second repository expression, e.g. 'public(revision=7)' (required)")
	_ = cmd.MarkFlagRequired("repo1")
	_ = cmd.MarkFlagRequired("repo2")

	return cmd
}

func runNoteEquivalence(opts *NoteEquivalenceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var exprs [2]RepositoryExpression
	for i, s := range []string{opts.Repo1, opts.Repo2} {
		expr, err := ParseRepositoryExpression(s)
		if err != nil {
			return f.Fail(WrapExitError(ExitCommandError, "invalid repository expression", err))
		}
		if expr.Revision == "" {
			return f.Fail(NewExitError(ExitCommandError,
				fmt.Sprintf("you must specify a revision in each repository, e.g. '%s(revision=2)'", expr.Name)))
		}
		exprs[i] = expr
	}

	pc, err := loadProject(ctx, opts.RootOptions)
	if err != nil {
		return f.Fail(asExitError("load project", err))
	}
	var revs [2]ir.Revision
	for i, expr := range exprs {
		_, rev, err := resolveRevision(ctx, pc, expr)
		if err != nil {
			return f.Fail(asExitError("resolve revision", err))
		}
		revs[i] = rev
	}
	eq, err := ir.NewEquivalence(revs[0], revs[1])
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "invalid equivalence", err))
	}

	st, err := openStore(ctx, opts.RootOptions, pc.Project)
	if err != nil {
		return f.Fail(asExitError("open database", err))
	}
	defer closeStore(st)

	if err := st.NoteEquivalence(ctx, eq); err != nil {
		return f.Fail(wrapFailure("note equivalence", err))
	}
	if err := st.Write(ctx); err != nil {
		return f.Fail(wrapFailure("write database", err))
	}

	return f.Emit(eq, func(w io.Writer) {
		fmt.Fprintf(w, "Noted equivalence: %s\n", eq)
	})
}

// LastEquivalenceOptions holds flags for the last-equivalence command.
type LastEquivalenceOptions struct {
	*RootOptions
	FromRepository string
	WithRepository string
}

// LastEquivalenceOutput is the JSON form of the last-equivalence result.
type LastEquivalenceOutput struct {
	Start                     ir.Revision      `json:"start"`
	Equivalences              []ir.Equivalence `json:"equivalences"`
	RevisionsSinceEquivalence []ir.Revision    `json:"revisions_since_equivalence"`
}

// NewLastEquivalenceCommand creates the last-equivalence command.
func NewLastEquivalenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LastEquivalenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "last-equivalence",
		Short: "Find the last equivalence and the revisions since",
		Long: `Crawl a repository's history back to the most recent revisions recorded
as equivalent to a revision of another repository.

Example:
  reposync last-equivalence --config project.yaml --db db.json \
    --from-repository 'internal(revision=42)' --with-repository public`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLastEquivalence(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FromRepository, "from-repository", "", "repository expression to crawl from (required)")
	cmd.Flags().StringVar(&opts.WithRepository, "with-repository", "", "name of the repository to look for equivalences with (required)")
	_ = cmd.MarkFlagRequired("from-repository")
	_ = cmd.MarkFlagRequired("with-repository")

	return cmd
}

func runLastEquivalence(opts *LastEquivalenceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx, cancel := commandContext(cmd)
	defer cancel()

	expr, err := ParseRepositoryExpression(opts.FromRepository)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "invalid repository expression", err))
	}
	pc, err := loadProject(ctx, opts.RootOptions)
	if err != nil {
		return f.Fail(asExitError("load project", err))
	}
	if _, err := pc.Project.Repository(opts.WithRepository); err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "unknown repository", err))
	}
	repo, start, err := resolveRevision(ctx, pc, expr)
	if err != nil {
		return f.Fail(asExitError("resolve revision", err))
	}
	st, err := openStore(ctx, opts.RootOptions, pc.Project)
	if err != nil {
		return f.Fail(asExitError("open database", err))
	}
	defer closeStore(st)

	matcher := store.EquivalenceMatcher{OtherRepository: opts.WithRepository, Store: st}
	result, err := history.Crawl(ctx, repo.History, &start, matcher, history.Branched)
	if err != nil {
		return f.Fail(wrapFailure("crawl history", err))
	}

	out := LastEquivalenceOutput{
		Start:                     start,
		Equivalences:              result.Equivalences,
		RevisionsSinceEquivalence: result.RevisionsSinceEquivalence.BreadthFirstHistory(),
	}
	if out.Equivalences == nil {
		out.Equivalences = []ir.Equivalence{}
	}
	if out.RevisionsSinceEquivalence == nil {
		out.RevisionsSinceEquivalence = []ir.Revision{}
	}
	return f.Emit(out, func(w io.Writer) {
		if len(out.Equivalences) == 0 {
			fmt.Fprintf(w, "No equivalence was found between %s and %s starting from %s.\n",
				start.RepositoryName, opts.WithRepository, start)
		} else {
			names := make([]string, len(out.Equivalences))
			for i, e := range out.Equivalences {
				names[i] = e.String()
			}
			fmt.Fprintf(w, "Last equivalence: %s\n", strings.Join(names, ", "))
		}
		writeRevisions(w, "Revisions since equivalence", result.RevisionsSinceEquivalence)
	})
}
