// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

import (
	"github.com/cockroachdb/errors"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
	"github.com/suprsokr/go-pack/schema"
)

// Loc file header constants. The layout has been stable at version 1 since
// the format appeared, but the version field is dispatched through a registry
// anyway so a future bump fails loudly instead of misparsing.
const (
	locByteOrderMark = 0xFEFF
	locFileType      = "LOC"
	locHeaderSize    = 14
	locVersion       = 1
)

// LocTableName is the synthetic table name used when loc rows are
// materialized in a relational backend.
const LocTableName = "localisation"

type (
	locDecoder func(r *binary.Reader, entryCount uint32, extra *codec.ExtraData) (*Table, error)
	locEncoder func(t *Table, w *binary.Writer, extra *codec.ExtraData) error
)

var locRegistry = codec.NewRegistry[locDecoder, locEncoder]("loc table")

func init() {
	locRegistry.Register(locVersion, decodeLocV1, encodeLocV1)
}

// Loc is a decoded localization table: key, translated text, and a tooltip
// flag per entry.
type Loc struct {
	version int32
	table   *Table
}

// NewLoc returns an empty Loc table.
func NewLoc() *Loc {
	return &Loc{version: locVersion, table: New(LocTableName, LocDefinition())}
}

// LocDefinition returns the fixed row layout of a Loc file. Unlike db
// tables, the definition is part of the format, not external schema input.
func LocDefinition() *schema.Definition {
	return &schema.Definition{
		Version: locVersion,
		Fields: []schema.Field{
			{Name: "key", Type: schema.StringU16, IsKey: true},
			{Name: "text", Type: schema.StringU16},
			{Name: "tooltip", Type: schema.Boolean},
		},
	}
}

// Table returns the decoded rows.
func (l *Loc) Table() *Table { return l.table }

// Definition returns the fixed loc row layout.
func (l *Loc) Definition() *schema.Definition { return l.table.Definition() }

// DecodeLoc reads a Loc file: byte-order mark, "LOC" tag, version, entry
// count, then the rows.
func DecodeLoc(r *binary.Reader, extra *codec.ExtraData) (*Loc, error) {
	size, err := r.Len()
	if err != nil {
		return nil, err
	}
	if size < locHeaderSize {
		return nil, errors.New("table: source too short to be a loc table")
	}

	bom, err := r.U16()
	if err != nil {
		return nil, err
	}
	if bom != locByteOrderMark {
		return nil, errors.Newf("table: bad loc byte-order mark 0x%04X", bom)
	}

	tag, err := r.StringU8(3)
	if err != nil {
		return nil, err
	}
	if tag != locFileType {
		return nil, errors.Newf("table: bad loc tag %q", tag)
	}
	if _, err := r.U8(); err != nil {
		return nil, err
	}

	version, err := r.I32()
	if err != nil {
		return nil, err
	}
	entryCount, err := r.U32()
	if err != nil {
		return nil, err
	}

	decode, err := locRegistry.Decoder(uint32(version))
	if err != nil {
		return nil, err
	}
	t, err := decode(r, entryCount, extra)
	if err != nil {
		return nil, err
	}

	if !t.Incomplete() {
		pos, err := r.Pos()
		if err != nil {
			return nil, err
		}
		if err := codec.CheckSizeMismatch(pos, size); err != nil {
			return nil, err
		}
	}

	return &Loc{version: version, table: t}, nil
}

// Encode writes the Loc file back, header included.
func (l *Loc) Encode(w *binary.Writer, extra *codec.ExtraData) error {
	encode, err := locRegistry.Encoder(uint32(l.version))
	if err != nil {
		return err
	}

	if err := w.U16(locByteOrderMark); err != nil {
		return err
	}
	if err := w.StringU8(locFileType); err != nil {
		return err
	}
	if err := w.U8(0); err != nil {
		return err
	}
	if err := w.I32(l.version); err != nil {
		return err
	}
	return encode(l.table, w, extra)
}

func decodeLocV1(r *binary.Reader, entryCount uint32, extra *codec.ExtraData) (*Table, error) {
	return Decode(r, LocDefinition(), LocTableName, entryCount, extra)
}

func encodeLocV1(t *Table, w *binary.Writer, extra *codec.ExtraData) error {
	return t.Encode(w, extra)
}
