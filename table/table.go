// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package table implements the schema-driven table engine behind DB and Loc
// files: rows of typed cells decoded field by field from a definition, kept
// either in memory or in a relational store, and re-encoded byte-stable.
package table

import (
	"github.com/cockroachdb/errors"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
	"github.com/suprsokr/go-pack/schema"
)

// Table is a decoded table: a named definition plus its materialized rows.
type Table struct {
	name       string
	def        *schema.Definition
	rows       RowStore
	incomplete bool
}

// New returns an empty table over the in-memory backend.
func New(name string, def *schema.Definition) *Table {
	return &Table{name: name, def: def, rows: &memoryStore{}}
}

// Name returns the logical table name, e.g. "land_units_tables".
func (t *Table) Name() string { return t.name }

// Definition returns the layout the rows follow.
func (t *Table) Definition() *schema.Definition { return t.def }

// Incomplete reports whether decoding stopped early because the source ended
// mid-row and the caller allowed partial results.
func (t *Table) Incomplete() bool { return t.incomplete }

// Count returns the number of rows.
func (t *Table) Count() (int, error) { return t.rows.Count() }

// Rows materializes every row in order.
func (t *Table) Rows() ([]Row, error) {
	count, err := t.rows.Count()
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, count)
	err = t.rows.Scan(func(row Row) error {
		out = append(out, row)
		return nil
	})
	return out, err
}

// Scan visits every row in order without materializing them all.
func (t *Table) Scan(fn func(Row) error) error { return t.rows.Scan(fn) }

// AppendRow validates a row against the definition and stores it.
func (t *Table) AppendRow(row Row) error {
	if err := validateRow(t.def, row); err != nil {
		return err
	}
	return t.rows.Insert(row)
}

// NewRow builds a row of the definition's default values.
func (t *Table) NewRow() (Row, error) {
	row := make(Row, 0, len(t.def.Fields))
	for _, field := range t.def.Fields {
		if field.Type.IsSequence() {
			row = append(row, emptySequence(field.Type))
			continue
		}
		v, err := ParseValue(field.Type, field.Default)
		if err != nil {
			return nil, errors.Wrapf(err, "default for field %s", field.Name)
		}
		row = append(row, v)
	}
	return row, nil
}

func emptySequence(t schema.FieldType) Value {
	if t == schema.SequenceU16 {
		return NewSequenceU16([]byte{0, 0})
	}
	return NewSequenceU32([]byte{0, 0, 0, 0})
}

func validateRow(def *schema.Definition, row Row) error {
	if len(row) != len(def.Fields) {
		return errors.Newf("table: row has %d cells, definition has %d fields", len(row), len(def.Fields))
	}
	for i, field := range def.Fields {
		if row[i].Kind() != field.Type {
			return errors.Newf("table: cell %d is %s, field %s is %s", i+1, row[i].Kind(), field.Name, field.Type)
		}
	}
	return nil
}

// Decode reads entryCount rows laid out per def. The row count always comes
// from the caller: both table file formats carry it in their headers, and
// nested sequences carry their own.
//
// When extra carries a relational store handle, rows stream into it as they
// decode instead of accumulating in memory. When extra allows incomplete
// results, a source that ends mid-row yields the rows completed so far and
// an Incomplete table instead of an error.
func Decode(r *binary.Reader, def *schema.Definition, name string, entryCount uint32, extra *codec.ExtraData) (*Table, error) {
	t := &Table{name: name, def: def}

	if extra != nil && extra.Store != nil {
		store, err := newSQLiteStore(extra.Store, name, def)
		if err != nil {
			return nil, err
		}
		t.rows = store
	} else {
		t.rows = &memoryStore{}
	}

	allowIncomplete := extra != nil && extra.AllowIncomplete
	for i := 0; i < int(entryCount); i++ {
		row, err := decodeRow(r, def, i)
		if err != nil {
			if allowIncomplete {
				t.incomplete = true
				break
			}
			return nil, err
		}
		if err := t.rows.Insert(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Encode writes the row count as a uint32 followed by every row in order,
// streaming from the backend.
func (t *Table) Encode(w *binary.Writer, extra *codec.ExtraData) error {
	count, err := t.rows.Count()
	if err != nil {
		return err
	}
	if err := w.U32(uint32(count)); err != nil {
		return err
	}
	i := 0
	return t.rows.Scan(func(row Row) error {
		if err := validateRow(t.def, row); err != nil {
			return errors.Wrapf(err, "row %d", i+1)
		}
		if err := encodeRow(w, t.def, row); err != nil {
			return errors.Wrapf(err, "row %d", i+1)
		}
		i++
		return nil
	})
}

func decodeRow(r *binary.Reader, def *schema.Definition, rowIdx int) (Row, error) {
	row := make(Row, 0, len(def.Fields))
	for col, field := range def.Fields {
		v, err := decodeValue(r, field)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d, column %d (%s)", rowIdx+1, col+1, field.Name)
		}
		row = append(row, v)
	}
	return row, nil
}

func decodeValue(r *binary.Reader, field schema.Field) (Value, error) {
	switch field.Type {
	case schema.Boolean:
		b, err := r.Bool()
		if err != nil {
			return Value{}, err
		}
		return NewBool(b), nil

	case schema.F32:
		f, err := r.F32()
		if err != nil {
			return Value{}, err
		}
		return NewF32(f), nil

	case schema.F64:
		f, err := r.F64()
		if err != nil {
			return Value{}, err
		}
		return NewF64(f), nil

	case schema.I16:
		i, err := r.I16()
		if err != nil {
			return Value{}, err
		}
		return NewI16(i), nil

	case schema.I32:
		i, err := r.I32()
		if err != nil {
			return Value{}, err
		}
		return NewI32(i), nil

	case schema.I64:
		i, err := r.I64()
		if err != nil {
			return Value{}, err
		}
		return NewI64(i), nil

	case schema.OptionalI16:
		present, err := r.Bool()
		if err != nil {
			return Value{}, err
		}
		i, err := r.I16()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: schema.OptionalI16, b: present, i: int64(i)}, nil

	case schema.OptionalI32:
		present, err := r.Bool()
		if err != nil {
			return Value{}, err
		}
		i, err := r.I32()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: schema.OptionalI32, b: present, i: int64(i)}, nil

	case schema.OptionalI64:
		present, err := r.Bool()
		if err != nil {
			return Value{}, err
		}
		i, err := r.I64()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: schema.OptionalI64, b: present, i: i}, nil

	case schema.ColourRGB:
		s, err := r.ColourRGB()
		if err != nil {
			return Value{}, err
		}
		return NewColourRGB(s), nil

	case schema.StringU8:
		s, err := r.SizedStringU8()
		if err != nil {
			return Value{}, err
		}
		return NewStringU8(s), nil

	case schema.StringU16:
		s, err := r.SizedStringU16()
		if err != nil {
			return Value{}, err
		}
		return NewStringU16(s), nil

	case schema.OptionalStringU8:
		present, err := r.Bool()
		if err != nil {
			return Value{}, err
		}
		var s string
		if present {
			if s, err = r.SizedStringU8(); err != nil {
				return Value{}, err
			}
		}
		return Value{kind: schema.OptionalStringU8, b: present, s: s}, nil

	case schema.OptionalStringU16:
		present, err := r.Bool()
		if err != nil {
			return Value{}, err
		}
		var s string
		if present {
			if s, err = r.SizedStringU16(); err != nil {
				return Value{}, err
			}
		}
		return Value{kind: schema.OptionalStringU16, b: present, s: s}, nil

	case schema.SequenceU16, schema.SequenceU32:
		return decodeSequence(r, field)

	default:
		return Value{}, errors.Newf("table: undecodable field type %s", field.Type)
	}
}

// decodeSequence validates a nested table in place and keeps its raw bytes,
// count prefix included. The nested rows themselves are not materialized;
// the blob is the cell.
func decodeSequence(r *binary.Reader, field schema.Field) (Value, error) {
	if field.Sequence == nil {
		return Value{}, errors.Newf("table: sequence field %s has no nested definition", field.Name)
	}

	start, err := r.Pos()
	if err != nil {
		return Value{}, err
	}

	var count uint32
	if field.Type == schema.SequenceU16 {
		c, err := r.U16()
		if err != nil {
			return Value{}, err
		}
		count = uint32(c)
	} else {
		if count, err = r.U32(); err != nil {
			return Value{}, err
		}
	}

	for i := 0; i < int(count); i++ {
		if _, err := decodeRow(r, field.Sequence, i); err != nil {
			return Value{}, errors.Wrap(err, "nested table")
		}
	}

	end, err := r.Pos()
	if err != nil {
		return Value{}, err
	}
	if err := r.SeekTo(start); err != nil {
		return Value{}, err
	}
	blob, err := r.Slice(int(end - start))
	if err != nil {
		return Value{}, err
	}

	if field.Type == schema.SequenceU16 {
		return NewSequenceU16(blob), nil
	}
	return NewSequenceU32(blob), nil
}

func encodeRow(w *binary.Writer, def *schema.Definition, row Row) error {
	for col, field := range def.Fields {
		if err := encodeValue(w, field, row[col]); err != nil {
			return errors.Wrapf(err, "column %d (%s)", col+1, field.Name)
		}
	}
	return nil
}

func encodeValue(w *binary.Writer, field schema.Field, v Value) error {
	switch field.Type {
	case schema.Boolean:
		return w.Bool(v.b)
	case schema.F32:
		return w.F32(float32(v.f))
	case schema.F64:
		return w.F64(v.f)
	case schema.I16:
		return w.I16(int16(v.i))
	case schema.I32:
		return w.I32(int32(v.i))
	case schema.I64:
		return w.I64(v.i)
	case schema.OptionalI16:
		if err := w.Bool(v.b); err != nil {
			return err
		}
		return w.I16(int16(v.i))
	case schema.OptionalI32:
		if err := w.Bool(v.b); err != nil {
			return err
		}
		return w.I32(int32(v.i))
	case schema.OptionalI64:
		if err := w.Bool(v.b); err != nil {
			return err
		}
		return w.I64(v.i)
	case schema.ColourRGB:
		return w.ColourRGB(v.s)
	case schema.StringU8:
		return w.SizedStringU8(v.s)
	case schema.StringU16:
		return w.SizedStringU16(v.s)
	case schema.OptionalStringU8:
		if !v.b {
			return w.Bool(false)
		}
		if err := w.Bool(true); err != nil {
			return err
		}
		return w.SizedStringU8(v.s)
	case schema.OptionalStringU16:
		if !v.b {
			return w.Bool(false)
		}
		if err := w.Bool(true); err != nil {
			return err
		}
		return w.SizedStringU16(v.s)
	case schema.SequenceU16:
		if len(v.blob) == 0 {
			return w.U16(0)
		}
		return w.Bytes(v.blob)
	case schema.SequenceU32:
		if len(v.blob) == 0 {
			return w.U32(0)
		}
		return w.Bytes(v.blob)
	default:
		return errors.Newf("table: unencodable field type %s", field.Type)
	}
}
