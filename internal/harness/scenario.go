package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/google/MOE-sub001/internal/config"
	"github.com/google/MOE-sub001/internal/ir"
)

// Scenario is one bookkeeping test case.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Project is the inline project configuration.
	Project yaml.Node `yaml:"project,omitempty"`

	// ProjectFile is a configuration file used instead of Project.
	ProjectFile string `yaml:"project_file,omitempty"`

	// Seed holds facts recorded before the first run.
	Seed Seed `yaml:"seed,omitempty"`

	// Runs is the number of bookkeeping runs. Zero means one.
	Runs int `yaml:"runs,omitempty"`

	// ExpectError is a substring the error of the last run must contain.
	// Empty means every run must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the final database.
	Assertions []Assertion `yaml:"assertions"`
}

// Seed lists initial database facts.
type Seed struct {
	Equivalences [][]string     `yaml:"equivalences,omitempty"`
	Migrations   []MigrationRef `yaml:"migrations,omitempty"`
}

// MigrationRef names a migration by its revisions.
type MigrationRef struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Assertion validates the final database.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Revisions is the pair checked by equivalence and no_equivalence.
	Revisions []string `yaml:"revisions,omitempty"`

	// From and To name the migration checked by migration and no_migration.
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Count is the expected number of facts for the *_count types.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertEquivalence      = "equivalence"
	AssertNoEquivalence    = "no_equivalence"
	AssertMigration        = "migration"
	AssertNoMigration      = "no_migration"
	AssertEquivalenceCount = "equivalence_count"
	AssertMigrationCount   = "migration_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.ProjectFile != "" && !filepath.IsAbs(scenario.ProjectFile) {
		scenario.ProjectFile = filepath.Join(filepath.Dir(path), scenario.ProjectFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadProject returns the scenario's project configuration.
func (s *Scenario) LoadProject() (*config.Project, error) {
	if s.ProjectFile != "" {
		return config.Load(s.ProjectFile)
	}
	data, err := yaml.Marshal(&s.Project)
	if err != nil {
		return nil, fmt.Errorf("encode inline project: %w", err)
	}
	return config.Parse(data, "yaml")
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	hasInline := !s.Project.IsZero()
	switch {
	case hasInline && s.ProjectFile != "":
		return fmt.Errorf("project and project_file are mutually exclusive")
	case !hasInline && s.ProjectFile == "":
		return fmt.Errorf("project or project_file is required")
	}
	if s.ProjectFile != "" {
		if _, err := os.Stat(s.ProjectFile); os.IsNotExist(err) {
			return fmt.Errorf("project file not found: %s", s.ProjectFile)
		}
	}

	if s.Runs < 0 {
		return fmt.Errorf("runs must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, pair := range s.Seed.Equivalences {
		if _, err := parsePair(pair); err != nil {
			return fmt.Errorf("seed.equivalences[%d]: %w", i, err)
		}
	}
	for i, m := range s.Seed.Migrations {
		if _, err := parseMigration(m.From, m.To); err != nil {
			return fmt.Errorf("seed.migrations[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEquivalence, AssertNoEquivalence:
		if _, err := parsePair(a.Revisions); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertMigration, AssertNoMigration:
		if _, err := parseMigration(a.From, a.To); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertEquivalenceCount, AssertMigrationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// ParseRevision parses repository@id.
func ParseRevision(s string) (ir.Revision, error) {
	repo, id, ok := strings.Cut(s, "@")
	if !ok || repo == "" || id == "" {
		return ir.Revision{}, fmt.Errorf("revision %q is not of the form repository@id", s)
	}
	return ir.NewRevision(id, repo), nil
}

func parsePair(pair []string) (ir.Equivalence, error) {
	if len(pair) != 2 {
		return ir.Equivalence{}, fmt.Errorf("an equivalence needs exactly 2 revisions, got %d", len(pair))
	}
	a, err := ParseRevision(pair[0])
	if err != nil {
		return ir.Equivalence{}, err
	}
	b, err := ParseRevision(pair[1])
	if err != nil {
		return ir.Equivalence{}, err
	}
	return ir.NewEquivalence(a, b)
}

func parseMigration(from, to string) (ir.SubmittedMigration, error) {
	f, err := ParseRevision(from)
	if err != nil {
		return ir.SubmittedMigration{}, fmt.Errorf("from: %w", err)
	}
	t, err := ParseRevision(to)
	if err != nil {
		return ir.SubmittedMigration{}, fmt.Errorf("to: %w", err)
	}
	return ir.NewSubmittedMigration(f, t), nil
}
