// Package config loads and validates project configuration: the
// repositories taking part in a sync, the translators between their
// project spaces and the migrations to bookkeep.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultProjectSpace is the project space of a repository that does not
// name one.
const DefaultProjectSpace = "public"

// Repository types.
const (
	TypeGit   = "git"
	TypeDummy = "dummy"
)

// Project is a loaded project configuration.
type Project struct {
	Name         string                      `json:"name"`
	DatabaseURI  string                      `json:"database_uri,omitempty"`
	Repositories map[string]RepositoryConfig `json:"repositories"`
	Editors      map[string]EditorConfig     `json:"editors,omitempty"`
	Translators  []TranslatorConfig          `json:"translators,omitempty"`
	Migrations   []MigrationConfig           `json:"migrations,omitempty"`
}

// RepositoryConfig describes one repository.
type RepositoryConfig struct {
	Type         string `json:"type"`
	URL          string `json:"url,omitempty"`
	Branch       string `json:"branch,omitempty"`
	ProjectSpace string `json:"project_space"`

	// Commits seeds a dummy repository.
	Commits []CommitConfig `json:"commits,omitempty"`
}

// CommitConfig is one canned commit of a dummy repository.
type CommitConfig struct {
	ID          string            `json:"id"`
	Author      string            `json:"author,omitempty"`
	Date        string            `json:"date,omitempty"`
	Description string            `json:"description,omitempty"`
	Parents     []string          `json:"parents,omitempty"`
	Files       map[string]string `json:"files,omitempty"`
	Executable  []string          `json:"executable,omitempty"`
}

// EditorConfig names an editor type. Other editor settings are accepted
// and ignored.
type EditorConfig struct {
	Type string `json:"type"`
}

// StepConfig is one step of a translation.
type StepConfig struct {
	Name   string       `json:"name"`
	Editor EditorConfig `json:"editor"`
}

// TranslatorConfig translates between two project spaces.
type TranslatorConfig struct {
	FromProjectSpace string       `json:"from_project_space"`
	ToProjectSpace   string       `json:"to_project_space"`
	Inverse          bool         `json:"inverse,omitempty"`
	Steps            []StepConfig `json:"steps,omitempty"`
}

// EditorTypes returns the editor type of each step, in order.
func (t TranslatorConfig) EditorTypes() []string {
	types := make([]string, len(t.Steps))
	for i, s := range t.Steps {
		types[i] = s.Editor.Type
	}
	return types
}

func (t TranslatorConfig) String() string {
	s := t.FromProjectSpace + " -> " + t.ToProjectSpace
	if t.Inverse {
		s += " (inverse)"
	}
	return s
}

// MigrationConfig moves changes from one repository to another.
type MigrationConfig struct {
	Name              string `json:"name"`
	FromRepository    string `json:"from_repository"`
	ToRepository      string `json:"to_repository"`
	SeparateRevisions bool   `json:"separate_revisions,omitempty"`
}

// Repository returns the named repository configuration.
func (p *Project) Repository(name string) (RepositoryConfig, error) {
	r, ok := p.Repositories[name]
	if !ok {
		return RepositoryConfig{}, &Error{
			Path:    "repositories",
			Message: fmt.Sprintf("no such repository %q in the config, found: %s", name, strings.Join(p.RepositoryNames(), ", ")),
		}
	}
	return r, nil
}

// RepositoryNames returns the configured repository names, sorted.
func (p *Project) RepositoryNames() []string {
	names := make([]string, 0, len(p.Repositories))
	for name := range p.Repositories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindTranslator returns the translator from fromRepo's project space to
// toRepo's project space.
func (p *Project) FindTranslator(fromRepo, toRepo string) (*TranslatorConfig, error) {
	from, err := p.Repository(fromRepo)
	if err != nil {
		return nil, err
	}
	to, err := p.Repository(toRepo)
	if err != nil {
		return nil, err
	}
	for i := range p.Translators {
		t := &p.Translators[i]
		if t.FromProjectSpace == from.ProjectSpace && t.ToProjectSpace == to.ProjectSpace {
			return t, nil
		}
	}
	return nil, &Error{
		Path: "translators",
		Message: fmt.Sprintf("could not find translator from project space %q to %q (%s to %s)",
			from.ProjectSpace, to.ProjectSpace, fromRepo, toRepo),
	}
}

// Validate checks the cross references the schema cannot express.
func (p *Project) Validate() error {
	if len(p.Repositories) == 0 {
		return &Error{Path: "repositories", Message: "must specify repositories"}
	}
	for _, name := range p.RepositoryNames() {
		r := p.Repositories[name]
		if r.Type == TypeGit && r.URL == "" {
			return &Error{Path: "repositories." + name + ".url", Message: "git repository requires a url"}
		}
		seen := make(map[string]bool, len(r.Commits))
		for _, c := range r.Commits {
			if seen[c.ID] {
				return &Error{Path: "repositories." + name + ".commits", Message: fmt.Sprintf("duplicate commit %q", c.ID)}
			}
			seen[c.ID] = true
		}
		for _, c := range r.Commits {
			for _, parent := range c.Parents {
				if !seen[parent] {
					return &Error{
						Path:    "repositories." + name + ".commits",
						Message: fmt.Sprintf("commit %q has unknown parent %q", c.ID, parent),
					}
				}
			}
		}
	}
	for i, t := range p.Translators {
		path := fmt.Sprintf("translators[%d]", i)
		if t.Inverse && len(t.Steps) > 0 {
			return &Error{Path: path, Message: "inverse translator can't have steps"}
		}
		if !t.Inverse && len(t.Steps) == 0 {
			return &Error{Path: path, Message: "translator requires steps"}
		}
	}
	for i, m := range p.Migrations {
		path := fmt.Sprintf("migrations[%d]", i)
		for _, repo := range []string{m.FromRepository, m.ToRepository} {
			if _, ok := p.Repositories[repo]; !ok {
				return &Error{Path: path, Message: fmt.Sprintf("migration %q names unknown repository %q", m.Name, repo)}
			}
		}
		if m.FromRepository == m.ToRepository {
			return &Error{Path: path, Message: fmt.Sprintf("migration %q migrates %q to itself", m.Name, m.FromRepository)}
		}
	}
	return nil
}
