package ir

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"
)

// Revision identifies one revision of one configured repository.
//
// RevID is whatever the underlying VCS uses (a hash, a sequence number).
// Revisions from different repositories have no defined ordering.
type Revision struct {
	RepositoryName string `json:"repository_name"`
	RevID          string `json:"rev_id"`
}

// NewRevision creates a revision. Argument order follows the store format:
// the revision id first, then the repository it belongs to.
func NewRevision(revID, repositoryName string) Revision {
	return Revision{RepositoryName: repositoryName, RevID: revID}
}

// String renders the revision as name{id}.
func (r Revision) String() string {
	return r.RepositoryName + "{" + r.RevID + "}"
}

// IsZero reports whether r is the zero Revision.
func (r Revision) IsZero() bool {
	return r == Revision{}
}

// UnmarshalJSON accepts both the canonical snake_case field names and the
// legacy camelCase ones (repositoryName, revId).
func (r *Revision) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("revision: %w", err)
	}

	var out Revision
	if err := lookupString(obj, &out.RepositoryName, "repository_name", "repositoryName"); err != nil {
		return fmt.Errorf("revision: %w", err)
	}
	if err := lookupString(obj, &out.RevID, "rev_id", "revId"); err != nil {
		return fmt.Errorf("revision: %w", err)
	}
	*r = out
	return nil
}

// canonicalMap converts the revision to the map form used by MarshalCanonical.
func (r Revision) canonicalMap() map[string]any {
	return map[string]any{
		"repository_name": r.RepositoryName,
		"rev_id":          r.RevID,
	}
}

// lookupField returns the raw value stored under the canonical name, falling
// back to the legacy name.
func lookupField(obj map[string]json.RawMessage, canonical, legacy string) (json.RawMessage, bool) {
	if v, ok := obj[canonical]; ok {
		return v, true
	}
	if v, ok := obj[legacy]; ok {
		return v, true
	}
	return nil, false
}

func lookupString(obj map[string]json.RawMessage, dst *string, canonical, legacy string) error {
	raw, ok := lookupField(obj, canonical, legacy)
	if !ok {
		return fmt.Errorf("missing field %q", canonical)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", canonical, err)
	}
	return nil
}

// Fields is a multimap of machine-extracted annotations parsed out of a
// revision description. Values under one key are kept in insertion order
// without duplicates.
type Fields map[string][]string

// Add appends value under key unless it is already present.
func (f Fields) Add(key, value string) {
	if slices.Contains(f[key], value) {
		return
	}
	f[key] = append(f[key], value)
}

// Get returns all values recorded for key.
func (f Fields) Get(key string) []string {
	return f[key]
}

// First returns the first value recorded for key.
func (f Fields) First(key string) (string, bool) {
	values := f[key]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Keys returns the field keys sorted.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = slices.Clone(v)
	}
	return out
}

var fieldKeyPattern = regexp.MustCompile(`^[A-Za-z_-]+$`)

// ParseFields extracts KEY=value annotations from a description, one per
// line. Lines whose text before the first '=' is not a plain identifier
// (letters, '_' or '-') are ignored. The description itself is not modified.
func ParseFields(description string) Fields {
	fields := Fields{}
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSuffix(line, "\r")
		key, value, ok := strings.Cut(line, "=")
		if !ok || !fieldKeyPattern.MatchString(key) {
			continue
		}
		fields.Add(key, value)
	}
	return fields
}

// Metadata describes one revision as reported by a repository's history.
//
// Parents are ordered; the first parent is the mainline for linear crawls.
// Author is empty when unknown or scrubbed.
type Metadata struct {
	ID          string
	Author      string
	Date        time.Time
	Description string
	Parents     []Revision
	Fields      Fields
}

// FirstParent returns the mainline parent, if any.
func (m Metadata) FirstParent() (Revision, bool) {
	if len(m.Parents) == 0 {
		return Revision{}, false
	}
	return m.Parents[0], true
}

// ToBuilder returns a builder initialised with a copy of m.
func (m Metadata) ToBuilder() *MetadataBuilder {
	b := &MetadataBuilder{m: m}
	b.m.Parents = slices.Clone(m.Parents)
	b.m.Fields = m.Fields.Clone()
	return b
}

// WithDescription returns a copy of m with a different description.
// Fields are not re-parsed.
func (m Metadata) WithDescription(description string) Metadata {
	return m.ToBuilder().Description(description).Build()
}

// WithParsedFields returns a copy of m whose Fields additionally contain
// everything ParseFields finds in the description.
func (m Metadata) WithParsedFields() Metadata {
	b := m.ToBuilder()
	parsed := ParseFields(m.Description)
	for _, k := range parsed.Keys() {
		for _, v := range parsed[k] {
			b.Field(k, v)
		}
	}
	return b.Build()
}

// MetadataBuilder assembles a Metadata value.
type MetadataBuilder struct {
	m Metadata
}

// NewMetadataBuilder returns an empty builder.
func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{}
}

func (b *MetadataBuilder) ID(id string) *MetadataBuilder {
	b.m.ID = id
	return b
}

func (b *MetadataBuilder) Author(author string) *MetadataBuilder {
	b.m.Author = author
	return b
}

func (b *MetadataBuilder) Date(date time.Time) *MetadataBuilder {
	b.m.Date = date
	return b
}

func (b *MetadataBuilder) Description(description string) *MetadataBuilder {
	b.m.Description = description
	return b
}

// Parents appends parent revisions in order.
func (b *MetadataBuilder) Parents(parents ...Revision) *MetadataBuilder {
	b.m.Parents = append(b.m.Parents, parents...)
	return b
}

// Field records one annotation.
func (b *MetadataBuilder) Field(key, value string) *MetadataBuilder {
	if b.m.Fields == nil {
		b.m.Fields = Fields{}
	}
	b.m.Fields.Add(key, value)
	return b
}

// Build returns the assembled Metadata. The builder may be reused; the
// returned value does not share slices or maps with it.
func (b *MetadataBuilder) Build() Metadata {
	out := b.m
	out.Parents = slices.Clone(b.m.Parents)
	if b.m.Fields == nil {
		out.Fields = Fields{}
	} else {
		out.Fields = b.m.Fields.Clone()
	}
	return out
}
