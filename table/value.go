// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

import (
	"bytes"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/suprsokr/go-pack/schema"
)

// floatTolerance is the comparison slack for float cells. Table data goes
// through lossy editors, so exact float equality is too strict.
const floatTolerance = 0.0001

// Value is one table cell: a field type plus its decoded payload. The zero
// Value is a false Boolean.
//
// Optional cells additionally remember their wire presence byte, so decoding
// and re-encoding a table reproduces the source bytes even when a presence
// byte disagrees with its payload.
type Value struct {
	kind schema.FieldType
	b    bool
	i    int64
	f    float64
	s    string
	blob []byte
}

// Kind returns the field type the cell was decoded as.
func (v Value) Kind() schema.FieldType { return v.kind }

// NewBool returns a Boolean cell.
func NewBool(b bool) Value { return Value{kind: schema.Boolean, b: b} }

// NewF32 returns an F32 cell.
func NewF32(f float32) Value { return Value{kind: schema.F32, f: float64(f)} }

// NewF64 returns an F64 cell.
func NewF64(f float64) Value { return Value{kind: schema.F64, f: f} }

// NewI16 returns an I16 cell.
func NewI16(i int16) Value { return Value{kind: schema.I16, i: int64(i)} }

// NewI32 returns an I32 cell.
func NewI32(i int32) Value { return Value{kind: schema.I32, i: int64(i)} }

// NewI64 returns an I64 cell.
func NewI64(i int64) Value { return Value{kind: schema.I64, i: i} }

// NewOptionalI16 returns a present OptionalI16 cell.
func NewOptionalI16(i int16) Value { return Value{kind: schema.OptionalI16, b: true, i: int64(i)} }

// NewOptionalI32 returns a present OptionalI32 cell.
func NewOptionalI32(i int32) Value { return Value{kind: schema.OptionalI32, b: true, i: int64(i)} }

// NewOptionalI64 returns a present OptionalI64 cell.
func NewOptionalI64(i int64) Value { return Value{kind: schema.OptionalI64, b: true, i: i} }

// NewColourRGB returns a ColourRGB cell holding a hex colour string.
func NewColourRGB(s string) Value { return Value{kind: schema.ColourRGB, s: s} }

// NewStringU8 returns a StringU8 cell.
func NewStringU8(s string) Value { return Value{kind: schema.StringU8, s: s} }

// NewStringU16 returns a StringU16 cell.
func NewStringU16(s string) Value { return Value{kind: schema.StringU16, s: s} }

// NewOptionalStringU8 returns an OptionalStringU8 cell, present when s is
// non-empty.
func NewOptionalStringU8(s string) Value {
	return Value{kind: schema.OptionalStringU8, b: s != "", s: s}
}

// NewOptionalStringU16 returns an OptionalStringU16 cell, present when s is
// non-empty.
func NewOptionalStringU16(s string) Value {
	return Value{kind: schema.OptionalStringU16, b: s != "", s: s}
}

// NewSequenceU16 returns a SequenceU16 cell holding the raw encoded bytes of
// the nested table, count prefix included.
func NewSequenceU16(blob []byte) Value { return Value{kind: schema.SequenceU16, blob: blob} }

// NewSequenceU32 returns a SequenceU32 cell holding the raw encoded bytes of
// the nested table, count prefix included.
func NewSequenceU32(blob []byte) Value { return Value{kind: schema.SequenceU32, blob: blob} }

// AsBool returns the payload of a Boolean cell.
func (v Value) AsBool() (bool, error) {
	if v.kind != schema.Boolean {
		return false, errors.Newf("table: %s cell is not a Boolean", v.kind)
	}
	return v.b, nil
}

// AsInt returns the payload of an integer cell, widened to int64.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case schema.I16, schema.I32, schema.I64,
		schema.OptionalI16, schema.OptionalI32, schema.OptionalI64:
		return v.i, nil
	default:
		return 0, errors.Newf("table: %s cell is not an integer", v.kind)
	}
}

// AsFloat returns the payload of a float cell, widened to float64.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case schema.F32, schema.F64:
		return v.f, nil
	default:
		return 0, errors.Newf("table: %s cell is not a float", v.kind)
	}
}

// AsString returns the payload of a string or colour cell.
func (v Value) AsString() (string, error) {
	switch v.kind {
	case schema.StringU8, schema.StringU16,
		schema.OptionalStringU8, schema.OptionalStringU16, schema.ColourRGB:
		return v.s, nil
	default:
		return "", errors.Newf("table: %s cell is not a string", v.kind)
	}
}

// AsBytes returns the raw nested bytes of a sequence cell.
func (v Value) AsBytes() ([]byte, error) {
	if !v.kind.IsSequence() {
		return nil, errors.Newf("table: %s cell is not a sequence", v.kind)
	}
	return v.blob, nil
}

// Equal compares two cells. Floats compare within a small tolerance;
// everything else compares exactly.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case schema.Boolean:
		return v.b == o.b
	case schema.F32, schema.F64:
		diff := v.f - o.f
		if diff < 0 {
			diff = -diff
		}
		return diff < floatTolerance
	case schema.I16, schema.I32, schema.I64:
		return v.i == o.i
	case schema.OptionalI16, schema.OptionalI32, schema.OptionalI64:
		return v.b == o.b && v.i == o.i
	case schema.OptionalStringU8, schema.OptionalStringU16:
		return v.b == o.b && v.s == o.s
	case schema.SequenceU16, schema.SequenceU32:
		return bytes.Equal(v.blob, o.blob)
	default:
		return v.s == o.s
	}
}

// Display renders the cell for human-readable output such as TSV exports.
func (v Value) Display() string {
	switch v.kind {
	case schema.Boolean:
		return strconv.FormatBool(v.b)
	case schema.F32:
		return strconv.FormatFloat(v.f, 'f', -1, 32)
	case schema.F64:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case schema.I16, schema.I32, schema.I64,
		schema.OptionalI16, schema.OptionalI32, schema.OptionalI64:
		return strconv.FormatInt(v.i, 10)
	case schema.SequenceU16, schema.SequenceU32:
		return strconv.Quote(string(v.blob))
	default:
		return v.s
	}
}

// ParseValue builds a cell of the given type from its display form. Used by
// TSV imports and definition defaults.
func ParseValue(t schema.FieldType, s string) (Value, error) {
	switch t {
	case schema.Boolean:
		switch s {
		case "true", "1":
			return NewBool(true), nil
		case "false", "0", "":
			return NewBool(false), nil
		default:
			return Value{}, errors.Newf("table: invalid boolean %q", s)
		}
	case schema.F32:
		f, err := parseFloatDefault(s, 32)
		if err != nil {
			return Value{}, err
		}
		return NewF32(float32(f)), nil
	case schema.F64:
		f, err := parseFloatDefault(s, 64)
		if err != nil {
			return Value{}, err
		}
		return NewF64(f), nil
	case schema.I16, schema.OptionalI16:
		i, err := parseIntDefault(s, 16)
		if err != nil {
			return Value{}, err
		}
		if t == schema.I16 {
			return NewI16(int16(i)), nil
		}
		return NewOptionalI16(int16(i)), nil
	case schema.I32, schema.OptionalI32:
		i, err := parseIntDefault(s, 32)
		if err != nil {
			return Value{}, err
		}
		if t == schema.I32 {
			return NewI32(int32(i)), nil
		}
		return NewOptionalI32(int32(i)), nil
	case schema.I64, schema.OptionalI64:
		i, err := parseIntDefault(s, 64)
		if err != nil {
			return Value{}, err
		}
		if t == schema.I64 {
			return NewI64(i), nil
		}
		return NewOptionalI64(i), nil
	case schema.ColourRGB:
		if s == "" {
			s = "000000"
		}
		return NewColourRGB(s), nil
	case schema.StringU8:
		return NewStringU8(s), nil
	case schema.StringU16:
		return NewStringU16(s), nil
	case schema.OptionalStringU8:
		return NewOptionalStringU8(s), nil
	case schema.OptionalStringU16:
		return NewOptionalStringU16(s), nil
	default:
		return Value{}, errors.Newf("table: cannot parse %s from a string", t)
	}
}

func parseFloatDefault(s string, bits int) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, bits)
	if err != nil {
		return 0, errors.Newf("table: invalid float %q", s)
	}
	return f, nil
}

func parseIntDefault(s string, bits int) (int64, error) {
	if s == "" {
		return 0, nil
	}
	i, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return 0, errors.Newf("table: invalid integer %q", s)
	}
	return i, nil
}
