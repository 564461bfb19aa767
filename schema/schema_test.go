// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package schema

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	s := New()
	s.AddDefinition("land_units_tables", &Definition{
		Version: 0,
		Fields: []Field{
			{Name: "key", Type: StringU8, IsKey: true},
			{Name: "soldiers", Type: I32},
		},
	})
	s.AddDefinition("land_units_tables", &Definition{
		Version: 2,
		Fields: []Field{
			{Name: "key", Type: StringU8, IsKey: true},
			{Name: "soldiers", Type: I32},
			{Name: "speed", Type: F32, VersionIntroduced: 2},
		},
	})
	s.AddDefinition("land_units_tables", &Definition{
		Version: -1,
		Fields: []Field{
			{Name: "key", Type: StringU8, IsKey: true},
		},
	})
	return s
}

func TestDefinitionResolution(t *testing.T) {
	s := testSchema()

	def, err := s.Definition("land_units_tables", 2)
	require.NoError(t, err)
	require.Equal(t, int32(2), def.Version)
	require.Len(t, def.Fields, 3)

	def, err = s.Definition("land_units_tables", 0)
	require.NoError(t, err)
	require.Equal(t, int32(0), def.Version)
}

func TestDefinitionNotFound(t *testing.T) {
	s := testSchema()

	_, err := s.Definition("land_units_tables", 9)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDefinitionNotFound))

	_, err = s.Definition("no_such_tables", 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDefinitionNotFound))
}

func TestDefinitionsSortedNewestFirst(t *testing.T) {
	s := testSchema()

	defs := s.Definitions("land_units_tables")
	require.Len(t, defs, 3)
	require.Equal(t, int32(2), defs[0].Version)
	require.Equal(t, int32(0), defs[1].Version)
	require.Equal(t, int32(-1), defs[2].Version)
}

func TestDefinitionsBefore(t *testing.T) {
	s := testSchema()

	defs := s.DefinitionsBefore("land_units_tables", 1)
	require.Len(t, defs, 2)
	require.Equal(t, int32(0), defs[0].Version)
	require.Equal(t, int32(-1), defs[1].Version)

	require.Empty(t, s.DefinitionsBefore("no_such_tables", 1))
}

func TestAddDefinitionReplacesSameVersion(t *testing.T) {
	s := testSchema()

	s.AddDefinition("land_units_tables", &Definition{
		Version: 2,
		Fields:  []Field{{Name: "key", Type: StringU8}},
	})

	def, err := s.Definition("land_units_tables", 2)
	require.NoError(t, err)
	require.Len(t, def.Fields, 1)
	require.Len(t, s.Definitions("land_units_tables"), 3)
}

func TestKeyFields(t *testing.T) {
	def := &Definition{
		Version: 1,
		Fields: []Field{
			{Name: "key", Type: StringU8, IsKey: true},
			{Name: "value", Type: I32},
			{Name: "subkey", Type: StringU8, IsKey: true},
		},
	}

	keys := def.KeyFields()
	require.Len(t, keys, 2)
	require.Equal(t, "key", keys[0].Name)
	require.Equal(t, "subkey", keys[1].Name)
}

func TestFieldTypeNames(t *testing.T) {
	for _, ft := range []FieldType{
		Boolean, F32, F64, I16, I32, I64, ColourRGB, StringU8, StringU16,
		OptionalI16, OptionalI32, OptionalI64, OptionalStringU8,
		OptionalStringU16, SequenceU16, SequenceU32,
	} {
		parsed, err := ParseFieldType(ft.String())
		require.NoError(t, err)
		require.Equal(t, ft, parsed)
	}

	_, err := ParseFieldType("Float128")
	require.Error(t, err)
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	s := New()
	s.AddDefinition("battles_tables", &Definition{
		Version: 4,
		Fields: []Field{
			{Name: "id", Type: StringU8, IsKey: true},
			{Name: "map_colour", Type: ColourRGB, Default: "000000"},
			{
				Name: "stages",
				Type: SequenceU32,
				Sequence: &Definition{
					Version: -1,
					Fields: []Field{
						{Name: "stage", Type: StringU8},
						{Name: "duration", Type: I32},
					},
				},
			},
		},
	})

	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	def, err := loaded.Definition("battles_tables", 4)
	require.NoError(t, err)
	require.Len(t, def.Fields, 3)
	require.Equal(t, ColourRGB, def.Fields[1].Type)
	require.Equal(t, "000000", def.Fields[1].Default)
	require.NotNil(t, def.Fields[2].Sequence)
	require.Len(t, def.Fields[2].Sequence.Fields, 2)
	require.True(t, def.Fields[2].Type.IsSequence())
}

func TestSchemaRejectsUnknownFieldType(t *testing.T) {
	_, err := FromJSON([]byte(`{
		"definitions": {
			"foo_tables": [
				{"version": 1, "fields": [{"name": "x", "type": "Float128"}]}
			]
		}
	}`))
	require.Error(t, err)
}

func TestTables(t *testing.T) {
	s := testSchema()
	s.AddDefinition("agents_tables", NewDefinition(1))
	require.Equal(t, []string{"agents_tables", "land_units_tables"}, s.Tables())
}
