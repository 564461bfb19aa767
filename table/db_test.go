// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
	"github.com/suprsokr/go-pack/schema"
)

func unitsSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New()
	s.AddDefinition("land_units_tables", unitsDefinition(2))
	return s
}

func encodeDB(t *testing.T, db *DB, extra *codec.ExtraData) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, db.Encode(binary.NewWriter(&buf), extra))
	return buf.Bytes()
}

func decodeDB(t *testing.T, data []byte, extra *codec.ExtraData) (*DB, error) {
	t.Helper()
	return DecodeDB(binary.NewReader(bytes.NewReader(data)), extra)
}

func TestDBRoundTrip(t *testing.T) {
	extra := &codec.ExtraData{Schema: unitsSchema(t), TableName: "land_units_tables"}

	src := NewDB("land_units_tables", unitsDefinition(2))
	for _, row := range unitsRows() {
		require.NoError(t, src.Table().AppendRow(row))
	}
	encoded := encodeDB(t, src, extra)

	decoded, err := decodeDB(t, encoded, extra)
	require.NoError(t, err)
	require.Equal(t, "land_units_tables", decoded.Name())
	require.Equal(t, int32(2), decoded.Definition().Version)

	n, err := decoded.Table().Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Equal(t, encoded, encodeDB(t, decoded, extra))
}

func TestDBGUIDMarker(t *testing.T) {
	extra := &codec.ExtraData{Schema: unitsSchema(t), TableName: "land_units_tables"}

	// Hand-built file with both markers, the way the games write them.
	var buf bytes.Buffer
	w := binary.NewWriter(&buf)
	require.NoError(t, w.Bytes(guidMarker))
	require.NoError(t, w.SizedStringU16("0f2cba33-33a2-4b91-8a23-95fbbecb8a0e"))
	require.NoError(t, w.Bytes(versionMarker))
	require.NoError(t, w.I32(2))
	require.NoError(t, w.Bool(true))
	require.NoError(t, w.U32(0))

	decoded, err := decodeDB(t, buf.Bytes(), extra)
	require.NoError(t, err)
	require.Equal(t, "0f2cba33-33a2-4b91-8a23-95fbbecb8a0e", decoded.GUID())

	require.Equal(t, buf.Bytes(), encodeDB(t, decoded, extra))
}

func TestDBRegenerateGUID(t *testing.T) {
	extra := &codec.ExtraData{Schema: unitsSchema(t), TableName: "land_units_tables"}

	var buf bytes.Buffer
	w := binary.NewWriter(&buf)
	require.NoError(t, w.Bytes(guidMarker))
	require.NoError(t, w.SizedStringU16("0f2cba33-33a2-4b91-8a23-95fbbecb8a0e"))
	require.NoError(t, w.Bytes(versionMarker))
	require.NoError(t, w.I32(2))
	require.NoError(t, w.Bool(true))
	require.NoError(t, w.U32(0))

	decoded, err := decodeDB(t, buf.Bytes(), extra)
	require.NoError(t, err)

	regen := *extra
	regen.RegenerateGUID = true
	encodeDB(t, decoded, &regen)
	require.NotEqual(t, "0f2cba33-33a2-4b91-8a23-95fbbecb8a0e", decoded.GUID())
	require.NotEmpty(t, decoded.GUID())
}

func TestDBVersionZeroProbing(t *testing.T) {
	// Two markerless layouts; only one consumes the bytes exactly.
	wrong := schema.NewDefinition(0)
	wrong.Fields = []schema.Field{{Name: "value", Type: schema.I64}}
	right := schema.NewDefinition(-1)
	right.Fields = []schema.Field{
		{Name: "key", Type: schema.StringU8},
		{Name: "value", Type: schema.I32},
	}

	s := schema.New()
	s.AddDefinition("ancient_tables", wrong)
	s.AddDefinition("ancient_tables", right)
	extra := &codec.ExtraData{Schema: s, TableName: "ancient_tables"}

	var buf bytes.Buffer
	w := binary.NewWriter(&buf)
	require.NoError(t, w.Bool(true))
	require.NoError(t, w.U32(1))
	require.NoError(t, w.SizedStringU8("old"))
	require.NoError(t, w.I32(41))

	decoded, err := decodeDB(t, buf.Bytes(), extra)
	require.NoError(t, err)
	require.Equal(t, int32(-1), decoded.Definition().Version)

	rows, err := decoded.Table().Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	key, err := rows[0][0].AsString()
	require.NoError(t, err)
	require.Equal(t, "old", key)
}

func TestDBDefinitionNotFound(t *testing.T) {
	extra := &codec.ExtraData{Schema: unitsSchema(t), TableName: "land_units_tables"}

	t.Run("unknown version", func(t *testing.T) {
		var buf bytes.Buffer
		w := binary.NewWriter(&buf)
		require.NoError(t, w.Bytes(versionMarker))
		require.NoError(t, w.I32(9))
		require.NoError(t, w.Bool(true))
		require.NoError(t, w.U32(0))

		_, err := decodeDB(t, buf.Bytes(), extra)
		require.ErrorIs(t, err, schema.ErrDefinitionNotFound)
	})

	t.Run("no version zero candidate fits", func(t *testing.T) {
		var buf bytes.Buffer
		w := binary.NewWriter(&buf)
		require.NoError(t, w.Bool(true))
		require.NoError(t, w.U32(1))
		require.NoError(t, w.Bytes([]byte{1, 2, 3}))

		_, err := decodeDB(t, buf.Bytes(), extra)
		require.ErrorIs(t, err, schema.ErrDefinitionNotFound)
	})
}

func TestDBSizeMismatch(t *testing.T) {
	extra := &codec.ExtraData{Schema: unitsSchema(t), TableName: "land_units_tables"}

	src := NewDB("land_units_tables", unitsDefinition(2))
	for _, row := range unitsRows() {
		require.NoError(t, src.Table().AppendRow(row))
	}
	encoded := encodeDB(t, src, extra)

	trailing := append(append([]byte{}, encoded...), 0xAA)
	_, err := decodeDB(t, trailing, extra)
	require.ErrorIs(t, err, codec.ErrSizeMismatch)
}

func TestDBAllowIncomplete(t *testing.T) {
	extra := &codec.ExtraData{Schema: unitsSchema(t), TableName: "land_units_tables"}

	src := NewDB("land_units_tables", unitsDefinition(2))
	for _, row := range unitsRows() {
		require.NoError(t, src.Table().AppendRow(row))
	}
	encoded := encodeDB(t, src, extra)
	truncated := encoded[:len(encoded)-4]

	_, err := decodeDB(t, truncated, extra)
	require.Error(t, err)

	lax := *extra
	lax.AllowIncomplete = true
	decoded, err := decodeDB(t, truncated, &lax)
	require.NoError(t, err)
	require.True(t, decoded.Table().Incomplete())

	n, err := decoded.Table().Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDBTooShort(t *testing.T) {
	extra := &codec.ExtraData{Schema: unitsSchema(t), TableName: "land_units_tables"}
	_, err := decodeDB(t, []byte{1, 0, 0}, extra)
	require.Error(t, err)
}

func TestDBNeedsSchemaAndName(t *testing.T) {
	_, err := decodeDB(t, []byte{1, 0, 0, 0, 0}, nil)
	require.Error(t, err)

	_, err = decodeDB(t, []byte{1, 0, 0, 0, 0}, &codec.ExtraData{Schema: schema.New()})
	require.Error(t, err)
}

func TestDBErrorsAreMarked(t *testing.T) {
	s := schema.New()
	_, err := s.Definition("missing_tables", 1)
	require.True(t, errors.Is(err, schema.ErrDefinitionNotFound))
}
