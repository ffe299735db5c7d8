package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/google/MOE-sub001/internal/codebase"
	"github.com/google/MOE-sub001/internal/config"
	"github.com/google/MOE-sub001/internal/ir"
	"github.com/google/MOE-sub001/internal/repository"
	"github.com/google/MOE-sub001/internal/store"
)

// setupLogging installs a text handler on w; verbose selects debug level.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// commandContext returns the command's context, cancelled on SIGINT or
// SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// loadProject loads --config and opens its repositories.
func loadProject(ctx context.Context, opts *RootOptions) (*config.Context, error) {
	if opts.ConfigFile == "" {
		return nil, NewExitError(ExitCommandError, "--config is required")
	}
	project, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	slog.Debug("configuration loaded", "file", opts.ConfigFile, "project", project.Name)

	pc, err := repository.NewContext(ctx, project)
	if err != nil {
		return nil, wrapFailure("failed to open repositories", err)
	}
	return pc, nil
}

// openStore opens --db, falling back to the project's database_uri.
func openStore(ctx context.Context, opts *RootOptions, project *config.Project) (store.Store, error) {
	location := opts.Database
	if location == "" && project != nil {
		location = project.DatabaseURI
	}
	if location == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set database_uri in the configuration")
	}
	st, err := store.Open(ctx, location, store.Options{})
	if err != nil {
		return nil, wrapFailure("failed to open database", err)
	}
	slog.Debug("database opened", "location", st.Location())
	return st, nil
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// RepositoryExpression names a repository and optionally a revision in it,
// written name or name(revision=id).
type RepositoryExpression struct {
	Name     string
	Revision string
}

var repositoryExpressionPattern = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)(?:\(revision=([^()]+)\))?$`)

// ParseRepositoryExpression parses name or name(revision=id).
func ParseRepositoryExpression(s string) (RepositoryExpression, error) {
	m := repositoryExpressionPattern.FindStringSubmatch(s)
	if m == nil {
		return RepositoryExpression{}, fmt.Errorf("cannot parse repository expression %q, expected name or name(revision=id)", s)
	}
	return RepositoryExpression{Name: m[1], Revision: m[2]}, nil
}

func (e RepositoryExpression) String() string {
	if e.Revision == "" {
		return e.Name
	}
	return fmt.Sprintf("%s(revision=%s)", e.Name, e.Revision)
}

// resolveRevision finds the highest revision an expression names.
func resolveRevision(ctx context.Context, pc *config.Context, expr RepositoryExpression) (*config.Repository, ir.Revision, error) {
	repo, err := pc.Repository(expr.Name)
	if err != nil {
		return nil, ir.Revision{}, WrapExitError(ExitCommandError, "unknown repository", err)
	}
	rev, err := repo.History.FindHighestRevision(ctx, expr.Revision)
	if err != nil {
		return nil, ir.Revision{}, WrapExitError(ExitFailure, fmt.Sprintf("cannot resolve %s", expr), err)
	}
	return repo, rev, nil
}

// codebaseResolver turns command arguments into codebases. An argument
// naming an existing directory is used as is; anything else is a
// repository expression exported through the project configuration.
type codebaseResolver struct {
	opts    *RootOptions
	pc      *config.Context
	creator *codebase.RepositoryCreator
}

func (r *codebaseResolver) resolve(ctx context.Context, arg string) (*codebase.Codebase, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		root, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		return &codebase.Codebase{Root: root, Expression: arg}, nil
	}

	expr, err := ParseRepositoryExpression(arg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "not a directory or repository expression", err)
	}
	if r.pc == nil {
		pc, err := loadProject(ctx, r.opts)
		if err != nil {
			return nil, err
		}
		r.pc = pc
		r.creator = repository.NewCreator(pc, "")
	}
	_, rev, err := resolveRevision(ctx, r.pc, expr)
	if err != nil {
		return nil, err
	}
	cb, err := r.creator.Create(ctx, rev, "")
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to create codebase", err)
	}
	return cb, nil
}

// cleanup removes exported codebases. Merge results are not removed.
func (r *codebaseResolver) cleanup() {
	if r.creator == nil {
		return
	}
	if err := r.creator.Cleanup(); err != nil {
		slog.Warn("could not remove codebase directories", "error", err)
	}
}
