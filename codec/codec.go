// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package codec defines the contract shared by every versioned binary format
// in this module: how decoders and encoders are shaped, how per-operation
// context travels, and how version dispatch and size validation fail.
package codec

import (
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/schema"
)

// ErrUnsupportedVersion marks errors returned when a format version has no
// registered reader or writer.
var ErrUnsupportedVersion = errors.New("unsupported version")

// ErrSizeMismatch marks errors returned when a decode consumed a different
// number of bytes than the format declared.
var ErrSizeMismatch = errors.New("size mismatch")

// Encodeable is a value that can serialize itself to a binary sink. Decoders
// are constructor-style functions instead of an interface: a decode produces
// the value, it does not populate one.
//
// The round-trip law holds for every implementation: encoding the result of
// a successful decode reproduces the source bytes exactly. Decoders read
// exactly the bytes that belong to them and leave the cursor positioned
// after the last one, so that callers can verify consumption with
// CheckSizeMismatch.
type Encodeable interface {
	Encode(w *binary.Writer, extra *ExtraData) error
}

// ExtraData carries the out-of-band context a decode or encode needs beyond
// the byte stream itself. A value is built per operation and treated as
// read-only once passed in; operations that spawn nested decodes derive new
// values instead of mutating the one they received.
type ExtraData struct {
	// Schema resolves table definitions. Required to decode DB tables.
	Schema *schema.Schema

	// Store, when non-nil, materializes decoded table rows in a relational
	// backend instead of in memory.
	Store *sql.DB

	// TableName is the logical table the data belongs to. For DB files this
	// is the parent folder name, e.g. "land_units_tables".
	TableName string

	// FileName names the source being decoded, for error context.
	FileName string

	// AllowIncomplete keeps the rows decoded so far when a table source
	// ends mid-row, instead of failing the whole decode.
	AllowIncomplete bool

	// RegenerateGUID replaces a table's GUID on encode instead of
	// re-emitting the decoded one.
	RegenerateGUID bool
}

// CheckSizeMismatch fails when a decode consumed read bytes but the format
// declared expected.
func CheckSizeMismatch(read, expected int64) error {
	if read != expected {
		return errors.Mark(
			errors.Newf("decoded %d bytes, expected %d", read, expected),
			ErrSizeMismatch,
		)
	}
	return nil
}
