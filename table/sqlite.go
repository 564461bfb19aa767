// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/suprsokr/go-pack/schema"
)

// sqliteStore materializes rows in a relational database instead of memory.
// Rows live in a table named "<name>_v<version>", shared by every decode of
// that table version; each decode tags its rows with a random unique id so
// concurrent loads of the same table stay separate.
//
// Optional cells persist as NULL when their presence byte is unset.
type sqliteStore struct {
	db    *sql.DB
	def   *schema.Definition
	table string
	uid   int64
}

func newSQLiteStore(db *sql.DB, name string, def *schema.Definition) (*sqliteStore, error) {
	s := &sqliteStore{
		db:    db,
		def:   def,
		table: sqlIdent(fmt.Sprintf("%s_v%d", name, def.Version)),
		uid:   int64(rand.Uint64()),
	}

	cols := make([]string, 0, len(def.Fields)+1)
	cols = append(cols, `"table_unique_id" INTEGER NOT NULL`)
	for _, field := range def.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", sqlIdent(field.Name), sqlColumnType(field.Type)))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table, strings.Join(cols, ", "))
	if _, err := db.Exec(ddl); err != nil {
		return nil, errors.Wrapf(err, "table: create backing table %s", s.table)
	}
	return s, nil
}

// sqlIdent quotes an identifier, turning embedded double quotes into single
// ones rather than escaping them.
func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `'`) + `"`
}

func sqlColumnType(t schema.FieldType) string {
	switch t {
	case schema.Boolean, schema.I16, schema.I32, schema.I64,
		schema.OptionalI16, schema.OptionalI32, schema.OptionalI64:
		return "INTEGER"
	case schema.F32, schema.F64:
		return "REAL"
	case schema.SequenceU16, schema.SequenceU32:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (s *sqliteStore) Insert(rows ...Row) error {
	if len(rows) == 0 {
		return nil
	}

	placeholders := make([]string, len(s.def.Fields)+1)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s VALUES (%s)", s.table, strings.Join(placeholders, ", "))

	for _, row := range rows {
		if len(row) != len(s.def.Fields) {
			return errors.Newf("table: row has %d cells, definition has %d fields", len(row), len(s.def.Fields))
		}
		args := make([]any, 0, len(row)+1)
		args = append(args, s.uid)
		for _, v := range row {
			args = append(args, sqlParam(v))
		}
		if _, err := s.db.Exec(query, args...); err != nil {
			return errors.Wrapf(err, "table: insert into %s", s.table)
		}
	}
	return nil
}

func sqlParam(v Value) any {
	switch v.kind {
	case schema.Boolean:
		return v.b
	case schema.F32, schema.F64:
		return v.f
	case schema.I16, schema.I32, schema.I64:
		return v.i
	case schema.OptionalI16, schema.OptionalI32, schema.OptionalI64:
		if !v.b {
			return nil
		}
		return v.i
	case schema.OptionalStringU8, schema.OptionalStringU16:
		if !v.b {
			return nil
		}
		return v.s
	case schema.SequenceU16, schema.SequenceU32:
		return v.blob
	default:
		return v.s
	}
}

func (s *sqliteStore) Count() (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE table_unique_id = ?", s.table)
	var count int
	if err := s.db.QueryRow(query, s.uid).Scan(&count); err != nil {
		return 0, errors.Wrapf(err, "table: count %s", s.table)
	}
	return count, nil
}

func (s *sqliteStore) Scan(fn func(Row) error) error {
	cols := make([]string, len(s.def.Fields))
	for i, field := range s.def.Fields {
		cols[i] = sqlIdent(field.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE table_unique_id = ? ORDER BY ROWID",
		strings.Join(cols, ", "), s.table)

	rows, err := s.db.Query(query, s.uid)
	if err != nil {
		return errors.Wrapf(err, "table: select from %s", s.table)
	}
	defer rows.Close()

	for rows.Next() {
		holders := make([]any, len(s.def.Fields))
		for i, field := range s.def.Fields {
			holders[i] = sqlHolder(field.Type)
		}
		if err := rows.Scan(holders...); err != nil {
			return errors.Wrapf(err, "table: scan row from %s", s.table)
		}

		row := make(Row, len(s.def.Fields))
		for i, field := range s.def.Fields {
			row[i] = sqlValue(field.Type, holders[i])
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return errors.Wrapf(rows.Err(), "table: iterate %s", s.table)
}

func sqlHolder(t schema.FieldType) any {
	switch t {
	case schema.Boolean:
		return new(bool)
	case schema.F32, schema.F64:
		return new(float64)
	case schema.I16, schema.I32, schema.I64:
		return new(int64)
	case schema.OptionalI16, schema.OptionalI32, schema.OptionalI64:
		return new(sql.NullInt64)
	case schema.OptionalStringU8, schema.OptionalStringU16:
		return new(sql.NullString)
	case schema.SequenceU16, schema.SequenceU32:
		return new([]byte)
	default:
		return new(string)
	}
}

func sqlValue(t schema.FieldType, holder any) Value {
	switch t {
	case schema.Boolean:
		return NewBool(*holder.(*bool))
	case schema.F32:
		return NewF32(float32(*holder.(*float64)))
	case schema.F64:
		return NewF64(*holder.(*float64))
	case schema.I16:
		return NewI16(int16(*holder.(*int64)))
	case schema.I32:
		return NewI32(int32(*holder.(*int64)))
	case schema.I64:
		return NewI64(*holder.(*int64))
	case schema.OptionalI16, schema.OptionalI32, schema.OptionalI64:
		nv := holder.(*sql.NullInt64)
		return Value{kind: t, b: nv.Valid, i: nv.Int64}
	case schema.OptionalStringU8, schema.OptionalStringU16:
		nv := holder.(*sql.NullString)
		return Value{kind: t, b: nv.Valid, s: nv.String}
	case schema.SequenceU16, schema.SequenceU32:
		return Value{kind: t, blob: *holder.(*[]byte)}
	case schema.ColourRGB:
		return NewColourRGB(*holder.(*string))
	case schema.StringU16:
		return NewStringU16(*holder.(*string))
	default:
		return NewStringU8(*holder.(*string))
	}
}
