package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Load reads a project configuration. Files ending in .cue are compiled as
// CUE; anything else is parsed as YAML, which includes JSON.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Message: "cannot read configuration", Err: err}
	}
	format := "yaml"
	if filepath.Ext(path) == ".cue" {
		format = "cue"
	}
	p, err := Parse(data, format)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.File = path
		}
		return nil, err
	}
	return p, nil
}

// Parse decodes a configuration in the given format ("cue", "yaml" or
// "json"), validates it against the schema and checks cross references.
func Parse(data []byte, format string) (*Project, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile configuration schema: %w", err)
	}

	var value cue.Value
	switch strings.ToLower(format) {
	case "cue":
		value = ctx.CompileBytes(data, cue.Filename("project.cue"))
	case "yaml", "yml", "json":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &Error{Message: "cannot parse configuration", Err: err}
		}
		if raw == nil {
			return nil, &Error{Message: "configuration is empty"}
		}
		value = ctx.Encode(raw)
	default:
		return nil, fmt.Errorf("unknown configuration format %q", format)
	}
	if err := value.Err(); err != nil {
		return nil, &Error{Message: "cannot parse configuration", Err: err}
	}

	unified := schema.LookupPath(cue.ParsePath("#Project")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &Error{Message: "schema validation failed", Err: err}
	}

	var p Project
	if err := unified.Decode(&p); err != nil {
		return nil, &Error{Message: "cannot decode configuration", Err: err}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
