// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package schema models the externally-maintained table definitions that
// drive DB table decoding: which fields a table has at each version, in
// what order, and with what wire types.
package schema

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/cockroachdb/errors"
)

// ErrDefinitionNotFound marks errors returned when a schema has no
// definition for a (table, version) pair.
var ErrDefinitionNotFound = errors.New("definition not found")

// FieldType enumerates the wire types a table field can have. The set is
// closed: schemas naming any other type fail to load.
type FieldType int

const (
	Boolean FieldType = iota
	F32
	F64
	I16
	I32
	I64
	ColourRGB
	StringU8
	StringU16
	OptionalI16
	OptionalI32
	OptionalI64
	OptionalStringU8
	OptionalStringU16
	SequenceU16
	SequenceU32
)

var fieldTypeNames = map[FieldType]string{
	Boolean:           "Boolean",
	F32:               "F32",
	F64:               "F64",
	I16:               "I16",
	I32:               "I32",
	I64:               "I64",
	ColourRGB:         "ColourRGB",
	StringU8:          "StringU8",
	StringU16:         "StringU16",
	OptionalI16:       "OptionalI16",
	OptionalI32:       "OptionalI32",
	OptionalI64:       "OptionalI64",
	OptionalStringU8:  "OptionalStringU8",
	OptionalStringU16: "OptionalStringU16",
	SequenceU16:       "SequenceU16",
	SequenceU32:       "SequenceU32",
}

var fieldTypesByName = func() map[string]FieldType {
	m := make(map[string]FieldType, len(fieldTypeNames))
	for t, name := range fieldTypeNames {
		m[name] = t
	}
	return m
}()

// String returns the canonical name of the field type.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseFieldType resolves a canonical field type name.
func ParseFieldType(name string) (FieldType, error) {
	if t, ok := fieldTypesByName[name]; ok {
		return t, nil
	}
	return 0, errors.Newf("schema: unknown field type %q", name)
}

// IsSequence reports whether the type nests a counted list of sub-rows.
func (t FieldType) IsSequence() bool {
	return t == SequenceU16 || t == SequenceU32
}

// MarshalJSON encodes the field type by name.
func (t FieldType) MarshalJSON() ([]byte, error) {
	name, ok := fieldTypeNames[t]
	if !ok {
		return nil, errors.Newf("schema: cannot marshal unknown field type %d", int(t))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes the field type from its name.
func (t *FieldType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseFieldType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Field describes one column of a table definition.
type Field struct {
	Name              string    `json:"name"`
	Type              FieldType `json:"type"`
	IsKey             bool      `json:"is_key,omitempty"`
	Default           string    `json:"default,omitempty"`
	VersionIntroduced int32     `json:"version_introduced,omitempty"`

	// Sequence is the row layout of a SequenceU16/SequenceU32 field and nil
	// for every other type.
	Sequence *Definition `json:"sequence,omitempty"`
}

// Definition is the ordered field layout of one table version.
//
// Version 0 marks tables from before layouts were versioned; negative
// versions mark synthetic definitions that never appear on the wire.
type Definition struct {
	Version int32   `json:"version"`
	Fields  []Field `json:"fields"`
}

// NewDefinition returns an empty definition for a version.
func NewDefinition(version int32) *Definition {
	return &Definition{Version: version}
}

// KeyFields returns the fields flagged as keys, in definition order.
func (d *Definition) KeyFields() []Field {
	var keys []Field
	for _, field := range d.Fields {
		if field.IsKey {
			keys = append(keys, field)
		}
	}
	return keys
}

// Schema is a set of table definitions keyed by table name, each holding
// one definition per known version.
type Schema struct {
	definitions map[string][]*Definition
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{definitions: make(map[string][]*Definition)}
}

// AddDefinition registers a definition for a table, replacing any existing
// definition with the same version. Definitions are kept sorted newest
// version first.
func (s *Schema) AddDefinition(table string, def *Definition) {
	defs := s.definitions[table]
	for i, existing := range defs {
		if existing.Version == def.Version {
			defs[i] = def
			return
		}
	}
	defs = append(defs, def)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Version > defs[j].Version })
	s.definitions[table] = defs
}

// Definition resolves the layout of a table at an exact version. The caller
// supplies both; nothing is inferred. Unknown pairs fail with an error
// marked ErrDefinitionNotFound.
func (s *Schema) Definition(table string, version int32) (*Definition, error) {
	for _, def := range s.definitions[table] {
		if def.Version == version {
			return def, nil
		}
	}
	return nil, errors.Mark(
		errors.Newf("schema: no definition for table %q version %d", table, version),
		ErrDefinitionNotFound,
	)
}

// DefinitionsBefore returns every definition of a table older than the given
// version, newest first. Version 0 tables are resolved by probing these.
func (s *Schema) DefinitionsBefore(table string, version int32) []*Definition {
	var out []*Definition
	for _, def := range s.definitions[table] {
		if def.Version < version {
			out = append(out, def)
		}
	}
	return out
}

// Definitions returns all definitions of a table, newest first.
func (s *Schema) Definitions(table string) []*Definition {
	return s.definitions[table]
}

// Tables returns the known table names in lexical order.
func (s *Schema) Tables() []string {
	tables := make([]string, 0, len(s.definitions))
	for table := range s.definitions {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}

type schemaJSON struct {
	Definitions map[string][]*Definition `json:"definitions"`
}

// MarshalJSON encodes the schema as a single definitions document.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(schemaJSON{Definitions: s.definitions})
}

// UnmarshalJSON decodes a definitions document, re-sorting each table's
// definitions newest first.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw schemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.definitions = make(map[string][]*Definition, len(raw.Definitions))
	for table, defs := range raw.Definitions {
		sort.SliceStable(defs, func(i, j int) bool { return defs[i].Version > defs[j].Version })
		s.definitions[table] = defs
	}
	return nil
}

// FromJSON parses a schema document.
func FromJSON(data []byte) (*Schema, error) {
	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "schema: parse")
	}
	return s, nil
}

// Load reads a schema document from disk.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "schema: read %s", path)
	}
	return FromJSON(data)
}

// Save writes the schema to disk as an indented JSON document.
func (s *Schema) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "schema: marshal")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "schema: write %s", path)
}
