// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

import (
	"bytes"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// Decoding into the relational backend must be observationally identical to
// decoding into memory: same rows back, same bytes out.
func TestSQLiteBackendEquivalence(t *testing.T) {
	def := unitsDefinition(2)
	src := New("land_units_tables", def)
	for _, row := range unitsRows() {
		require.NoError(t, src.AppendRow(row))
	}
	encoded := encodeTable(t, src)

	decode := func(extra *codec.ExtraData) *Table {
		r := binary.NewReader(bytes.NewReader(encoded))
		count, err := r.U32()
		require.NoError(t, err)
		tbl, err := Decode(r, def, "land_units_tables", count, extra)
		require.NoError(t, err)
		return tbl
	}

	inMemory := decode(nil)
	relational := decode(&codec.ExtraData{Store: openTestDB(t)})

	memRows, err := inMemory.Rows()
	require.NoError(t, err)
	relRows, err := relational.Rows()
	require.NoError(t, err)
	require.Len(t, relRows, len(memRows))
	for i := range memRows {
		for j := range memRows[i] {
			require.True(t, memRows[i][j].Equal(relRows[i][j]), "row %d cell %d", i, j)
		}
	}

	require.Equal(t, encodeTable(t, inMemory), encodeTable(t, relational))
}

func TestSQLiteStoreCount(t *testing.T) {
	def := unitsDefinition(2)
	store, err := newSQLiteStore(openTestDB(t), "land_units_tables", def)
	require.NoError(t, err)

	n, err := store.Count()
	require.NoError(t, err)
	require.Zero(t, n)

	for _, row := range unitsRows() {
		require.NoError(t, store.Insert(row))
	}
	n, err = store.Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

// Two decodes of the same table version share one backing table; their rows
// must not bleed into each other.
func TestSQLiteStoreIsolation(t *testing.T) {
	db := openTestDB(t)
	def := unitsDefinition(2)

	first, err := newSQLiteStore(db, "land_units_tables", def)
	require.NoError(t, err)
	second, err := newSQLiteStore(db, "land_units_tables", def)
	require.NoError(t, err)

	rows := unitsRows()
	require.NoError(t, first.Insert(rows[0]))
	require.NoError(t, first.Insert(rows[1]))
	require.NoError(t, second.Insert(rows[0]))

	n, err := first.Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = second.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
