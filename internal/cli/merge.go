package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/google/MOE-sub001/internal/command"
	"github.com/google/MOE-sub001/internal/merge"
)

// MergeOptions holds flags for the merge-codebases command.
type MergeOptions struct {
	*RootOptions
	Original    string
	Modified    string
	Destination string
	MergeTool   string
	DiffTool    string
	OutputDir   string

	// Runner overrides how tools are run (for testing).
	Runner command.Runner
}

// MergeOutput is the JSON form of a merge result.
type MergeOutput struct {
	MergedRoot  string   `json:"merged_root"`
	MergedFiles []string `json:"merged_files"`
	FailedFiles []string `json:"failed_files"`
}

// NewMergeCodebasesCommand creates the merge-codebases command.
func NewMergeCodebasesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge-codebases",
		Short: "Merge three codebases into a new codebase",
		Long: `Fold the changes from the original to the modified codebase into a copy
of the destination codebase.

Each codebase is either a directory or a repository expression such as
internal(revision=42), which needs --config. Files that cannot be merged
cleanly are left with conflict markers and listed in the output; the
command still succeeds.

Example:
  reposync merge-codebases --original-codebase ./base \
    --modified-codebase ./theirs --destination-codebase ./ours`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Original, "original-codebase", "", "the codebase both others derive from (required)")
	cmd.Flags().StringVar(&opts.Modified, "modified-codebase", "", "the codebase whose changes are merged (required)")
	cmd.Flags().StringVar(&opts.Destination, "destination-codebase", "", "the codebase the changes are merged into (required)")
	cmd.Flags().StringVar(&opts.MergeTool, "merge-tool", merge.DefaultMergeTool, "merge(1) compatible three-way merge program")
	cmd.Flags().StringVar(&opts.DiffTool, "diff-tool", merge.DefaultDiffTool, "diff(1) compatible program")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "parent directory of the merged codebase (default: system temp dir)")
	for _, name := range []string{"original-codebase", "modified-codebase", "destination-codebase"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runMerge(opts *MergeOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resolver := &codebaseResolver{opts: opts.RootOptions}
	defer resolver.cleanup()

	orig, err := resolver.resolve(ctx, opts.Original)
	if err != nil {
		return f.Fail(asExitError("original codebase", err))
	}
	mod, err := resolver.resolve(ctx, opts.Modified)
	if err != nil {
		return f.Fail(asExitError("modified codebase", err))
	}
	dest, err := resolver.resolve(ctx, opts.Destination)
	if err != nil {
		return f.Fail(asExitError("destination codebase", err))
	}

	runner := opts.Runner
	if runner == nil {
		runner = command.ExecRunner{}
	}
	engine := &merge.Engine{
		Runner:    runner,
		MergeTool: opts.MergeTool,
		DiffTool:  opts.DiffTool,
		TempDir:   opts.OutputDir,
	}
	result, err := engine.Merge(ctx, orig, mod, dest)
	if err != nil {
		return f.Fail(WrapExitError(ExitFailure, "merge failed", err))
	}

	out := MergeOutput{
		MergedRoot:  result.MergedRoot,
		MergedFiles: nonNil(result.MergedFiles),
		FailedFiles: nonNil(result.FailedFiles),
	}
	return f.Emit(out, func(w io.Writer) { result.Report(w) })
}

// asExitError keeps an ExitError's code and wraps anything else as a
// failure.
func asExitError(message string, err error) *ExitError {
	var e *ExitError
	if errors.As(err, &e) {
		return WrapExitError(e.Code, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
