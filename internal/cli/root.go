// Package cli implements the reposync command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/google/MOE-sub001/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Database   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the reposync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reposync",
		Short: "reposync - keep repositories in sync",
		Long: `Keep two or more repositories holding the same project in sync.

reposync records which revisions of different repositories hold the same
code, detects migrations that were submitted since the last run and merges
codebases with an external merge tool.`,
		Version:      ir.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "project configuration file (.yaml, .json or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database location; defaults to the project's database_uri")

	cmd.AddCommand(NewBookkeepCommand(opts))
	cmd.AddCommand(NewMergeCodebasesCommand(opts))
	cmd.AddCommand(NewNoteEquivalenceCommand(opts))
	cmd.AddCommand(NewLastEquivalenceCommand(opts))
	cmd.AddCommand(NewHighestRevisionCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewDiffCodebasesCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}
