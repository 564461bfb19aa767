// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
	"github.com/suprsokr/go-pack/schema"
)

// guidMarker precedes the GUID on tables that carry one. Some old games crash
// on tables with a GUID, so its presence is recorded and reproduced on encode
// rather than assumed.
var guidMarker = []byte{0xFD, 0xFE, 0xFC, 0xFF}

// versionMarker precedes the version number. Tables without it are version 0.
var versionMarker = []byte{0xFC, 0xFD, 0xFE, 0xFF}

// DB is one decoded db/ table file: an optional GUID, an optional version
// marker, one byte of unknown purpose, and the table rows themselves.
type DB struct {
	guid    string
	hasGUID bool

	// mysteryByte sits between the header markers and the row count in every
	// known db file. Nobody knows what it means; it round-trips untouched.
	mysteryByte bool

	table *Table
}

// NewDB returns an empty DB table over the given definition.
func NewDB(name string, def *schema.Definition) *DB {
	return &DB{mysteryByte: true, table: New(name, def)}
}

// Table returns the decoded rows.
func (db *DB) Table() *Table { return db.table }

// Definition returns the layout the rows follow.
func (db *DB) Definition() *schema.Definition { return db.table.Definition() }

// Name returns the logical table name, e.g. "land_units_tables".
func (db *DB) Name() string { return db.table.Name() }

// GUID returns the decoded table GUID, or the empty string when the table
// carries none.
func (db *DB) GUID() string { return db.guid }

// dbHeader is the decoded fixed part of a db file.
type dbHeader struct {
	guid       string
	hasGUID    bool
	version    int32
	mystery    bool
	entryCount uint32
}

// readDBHeader reads the marker-prefixed header of a db file. Both markers
// are optional; a missing version marker means version 0.
func readDBHeader(r *binary.Reader) (dbHeader, error) {
	var h dbHeader

	size, err := r.Len()
	if err != nil {
		return h, err
	}
	if size < 5 {
		return h, errors.New("table: source too short to be a db table")
	}

	marker, err := r.Slice(4)
	if err != nil {
		return h, err
	}
	if bytes.Equal(marker, guidMarker) {
		h.hasGUID = true
		if h.guid, err = r.SizedStringU16(); err != nil {
			return h, errors.Wrap(err, "table: read db guid")
		}
	} else if err := r.Skip(-4); err != nil {
		return h, err
	}

	marker, err = r.Slice(4)
	if err != nil {
		return h, err
	}
	if bytes.Equal(marker, versionMarker) {
		if h.version, err = r.I32(); err != nil {
			return h, errors.Wrap(err, "table: read db version")
		}
	} else if err := r.Skip(-4); err != nil {
		return h, err
	}

	if h.mystery, err = r.Bool(); err != nil {
		return h, errors.Wrap(err, "table: read db header byte")
	}
	if h.entryCount, err = r.U32(); err != nil {
		return h, errors.Wrap(err, "table: read db entry count")
	}
	return h, nil
}

// DecodeDB reads a db table file. The table name comes from extra (it is the
// parent folder of the file inside a container, not stored in the bytes) and
// its definition is resolved against extra's schema: exactly for versioned
// tables, by probing every pre-1 definition for version 0 tables.
func DecodeDB(r *binary.Reader, extra *codec.ExtraData) (*DB, error) {
	if extra == nil || extra.Schema == nil {
		return nil, errors.New("table: db decode needs a schema")
	}
	if extra.TableName == "" {
		return nil, errors.New("table: db decode needs a table name")
	}

	header, err := readDBHeader(r)
	if err != nil {
		return nil, err
	}

	def, err := resolveDefinition(r, extra, header)
	if err != nil {
		return nil, err
	}

	t, err := Decode(r, def, extra.TableName, header.entryCount, extra)
	if err != nil {
		return nil, err
	}

	// An undersized reader is a wrong definition or a truncated file; extra
	// trailing bytes mean fields this definition does not know about. Either
	// way the table cannot be trusted, unless the caller settled for an
	// incomplete load.
	if !t.Incomplete() {
		pos, err := r.Pos()
		if err != nil {
			return nil, err
		}
		size, err := r.Len()
		if err != nil {
			return nil, err
		}
		if err := codec.CheckSizeMismatch(pos, size); err != nil {
			return nil, err
		}
	}

	return &DB{
		guid:        header.guid,
		hasGUID:     header.hasGUID,
		mysteryByte: header.mystery,
		table:       t,
	}, nil
}

// resolveDefinition picks the definition for the decoded header. Version 0
// predates version markers, so its layout is found by trying every pre-1
// definition until one consumes the source exactly.
func resolveDefinition(r *binary.Reader, extra *codec.ExtraData, header dbHeader) (*schema.Definition, error) {
	if header.version != 0 {
		return extra.Schema.Definition(extra.TableName, header.version)
	}

	start, err := r.Pos()
	if err != nil {
		return nil, err
	}
	size, err := r.Len()
	if err != nil {
		return nil, err
	}

	candidates := extra.Schema.DefinitionsBefore(extra.TableName, 1)
	for _, def := range candidates {
		if err := r.SeekTo(start); err != nil {
			return nil, err
		}

		// Probe in memory without a backend; the real decode follows once a
		// definition fits.
		probe := *extra
		probe.Store = nil
		probe.AllowIncomplete = false
		if _, err := Decode(r, def, extra.TableName, header.entryCount, &probe); err != nil {
			continue
		}
		pos, err := r.Pos()
		if err != nil {
			return nil, err
		}
		if pos != size {
			continue
		}
		if err := r.SeekTo(start); err != nil {
			return nil, err
		}
		return def, nil
	}

	return nil, errors.Mark(
		errors.Newf("table: no version 0 definition of %q fits the data", extra.TableName),
		schema.ErrDefinitionNotFound,
	)
}

// Encode writes the db file back: markers exactly as decoded, then the rows.
// The GUID is kept byte-stable unless extra requests regeneration or the
// table gained one without a value.
func (db *DB) Encode(w *binary.Writer, extra *codec.ExtraData) error {
	if db.hasGUID {
		if err := w.Bytes(guidMarker); err != nil {
			return err
		}
		guid := db.guid
		if guid == "" || (extra != nil && extra.RegenerateGUID) {
			guid = uuid.NewString()
			db.guid = guid
		}
		if err := w.SizedStringU16(guid); err != nil {
			return errors.Wrap(err, "table: write db guid")
		}
	}

	if db.Definition().Version > 0 {
		if err := w.Bytes(versionMarker); err != nil {
			return err
		}
		if err := w.I32(db.Definition().Version); err != nil {
			return errors.Wrap(err, "table: write db version")
		}
	}

	if err := w.Bool(db.mysteryByte); err != nil {
		return err
	}
	return db.table.Encode(w, extra)
}
