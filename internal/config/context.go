package config

import (
	"github.com/google/MOE-sub001/internal/codebase"
	"github.com/google/MOE-sub001/internal/history"
)

// Repository is a configured repository together with the adapters that
// read it.
type Repository struct {
	Name     string
	Config   RepositoryConfig
	History  history.History
	Exporter codebase.Exporter
}

// Context is a loaded project with its repositories opened. It is built
// once at startup and passed to every component that needs it.
type Context struct {
	Project      *Project
	Repositories map[string]*Repository
}

// Repository returns the named repository.
func (c *Context) Repository(name string) (*Repository, error) {
	r, ok := c.Repositories[name]
	if !ok {
		if _, err := c.Project.Repository(name); err != nil {
			return nil, err
		}
		return nil, &Error{Path: "repositories." + name, Message: "repository was not opened"}
	}
	return r, nil
}

// Translators returns the project's translators in codebase form.
func (c *Context) Translators() []codebase.Translator {
	out := make([]codebase.Translator, len(c.Project.Translators))
	for i, t := range c.Project.Translators {
		out[i] = codebase.Translator{
			FromProjectSpace: t.FromProjectSpace,
			ToProjectSpace:   t.ToProjectSpace,
			Inverse:          t.Inverse,
			Steps:            t.EditorTypes(),
		}
	}
	return out
}
