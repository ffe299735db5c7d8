package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/google/MOE-sub001/internal/codebase"
)

// DiffOptions holds flags for the diff-codebases command.
type DiffOptions struct {
	*RootOptions
	Codebase1 string
	Codebase2 string
}

// DiffOutput is the JSON form of a codebase comparison.
type DiffOutput struct {
	Different bool                `json:"different"`
	Files     []codebase.FileDiff `json:"files"`
}

// NewDiffCodebasesCommand creates the diff-codebases command.
func NewDiffCodebasesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff-codebases",
		Short: "Compare two codebases file by file",
		Long: `Compare two codebases: the set of files, their executable bits and
their contents. Each codebase is a directory or a repository expression.

Example:
  reposync diff-codebases --codebase1 ./a --codebase2 'public(revision=7)' --config project.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Codebase1, "codebase1", "", "first codebase (required)")
	cmd.Flags().StringVar(&opts.Codebase2, "codebase2", "", "second codebase (required)")
	_ = cmd.MarkFlagRequired("codebase1")
	_ = cmd.MarkFlagRequired("codebase2")

	return cmd
}

func runDiff(opts *DiffOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resolver := &codebaseResolver{opts: opts.RootOptions}
	defer resolver.cleanup()

	a, err := resolver.resolve(ctx, opts.Codebase1)
	if err != nil {
		return f.Fail(asExitError("codebase1", err))
	}
	b, err := resolver.resolve(ctx, opts.Codebase2)
	if err != nil {
		return f.Fail(asExitError("codebase2", err))
	}

	diffs, err := codebase.TreeDiffer{}.Diff(ctx, a, b)
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "diff failed", err))
	}
	if diffs == nil {
		diffs = []codebase.FileDiff{}
	}

	out := DiffOutput{Different: len(diffs) > 0, Files: diffs}
	return f.Emit(out, func(w io.Writer) {
		if !out.Different {
			fmt.Fprintf(w, "No differences between %s and %s.\n", a, b)
			return
		}
		fmt.Fprintf(w, "%s and %s differ in %d files:\n", a, b, len(diffs))
		for _, d := range diffs {
			fmt.Fprintf(w, "  %s: %s\n", d.Path, describeDiff(d))
		}
	})
}

func describeDiff(d codebase.FileDiff) string {
	switch {
	case d.OnlyIn == "a":
		return "only in codebase1"
	case d.OnlyIn == "b":
		return "only in codebase2"
	case d.Content && d.Executable:
		return "contents and executable bit differ"
	case d.Executable:
		return "executable bit differs"
	default:
		return "contents differ"
	}
}
