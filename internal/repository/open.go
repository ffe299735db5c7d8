package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/MOE-sub001/internal/codebase"
	"github.com/google/MOE-sub001/internal/config"
)

// Open builds the adapters for one configured repository.
func Open(ctx context.Context, name string, cfg config.RepositoryConfig) (*config.Repository, error) {
	r := &config.Repository{Name: name, Config: cfg}
	switch cfg.Type {
	case config.TypeGit:
		g, err := OpenGit(ctx, name, cfg.URL, cfg.Branch)
		if err != nil {
			return nil, err
		}
		r.History, r.Exporter = g, g
	case config.TypeDummy:
		m, err := memoryFromConfig(name, cfg.Commits)
		if err != nil {
			return nil, &config.Error{Path: "repositories." + name, Message: "invalid commits", Err: err}
		}
		r.History, r.Exporter = m, m
	default:
		return nil, &config.Error{Path: "repositories." + name, Message: fmt.Sprintf("unsupported repository type %q", cfg.Type)}
	}
	return r, nil
}

func memoryFromConfig(name string, commits []config.CommitConfig) (*MemoryHistory, error) {
	h, err := NewMemoryHistory(name)
	if err != nil {
		return nil, err
	}
	for _, c := range commits {
		var date time.Time
		if c.Date != "" {
			date, err = time.Parse(time.RFC3339, c.Date)
			if err != nil {
				return nil, fmt.Errorf("commit %s: date: %w", c.ID, err)
			}
		}
		err := h.Add(Commit{
			ID:          c.ID,
			Author:      c.Author,
			Date:        date,
			Description: c.Description,
			Parents:     c.Parents,
			Files:       c.Files,
			Executable:  c.Executable,
		})
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

// NewContext opens every repository of project.
func NewContext(ctx context.Context, project *config.Project) (*config.Context, error) {
	c := &config.Context{
		Project:      project,
		Repositories: make(map[string]*config.Repository, len(project.Repositories)),
	}
	for _, name := range project.RepositoryNames() {
		r, err := Open(ctx, name, project.Repositories[name])
		if err != nil {
			return nil, err
		}
		c.Repositories[name] = r
	}
	return c, nil
}

// NewCreator returns a codebase creator exporting from the repositories of
// c into directories under tempDir.
func NewCreator(c *config.Context, tempDir string) *codebase.RepositoryCreator {
	sources := make(map[string]codebase.Source, len(c.Repositories))
	for name, r := range c.Repositories {
		sources[name] = codebase.Source{Exporter: r.Exporter, ProjectSpace: r.Config.ProjectSpace}
	}
	return &codebase.RepositoryCreator{
		Sources:     sources,
		Translators: c.Translators(),
		TempDir:     tempDir,
	}
}
