// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"strings"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
)

// utf8BOM is the byte order mark some game text files start with.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Text is a decoded plain-text entry. The text format is approximate on
// purpose: bytes that are not valid UTF-8 are replaced on decode, so a
// decode-edit-encode round trip of a mis-encoded file is lossy. Entries that
// must survive byte-for-byte should stay Raw.
type Text struct {
	value string
	bom   bool
}

// NewText returns a text content holding value, written without a BOM.
func NewText(value string) *Text {
	return &Text{value: value}
}

// DecodeText reads the remaining bytes of r as UTF-8 text, stripping a BOM
// when present and replacing invalid sequences.
func DecodeText(r *binary.Reader, extra *codec.ExtraData) (*Text, error) {
	size, err := r.Len()
	if err != nil {
		return nil, err
	}
	pos, err := r.Pos()
	if err != nil {
		return nil, err
	}
	data, err := r.Slice(int(size - pos))
	if err != nil {
		return nil, err
	}

	t := &Text{}
	if bytes.HasPrefix(data, utf8BOM) {
		t.bom = true
		data = data[len(utf8BOM):]
	}
	t.value = strings.ToValidUTF8(string(data), "�")
	return t, nil
}

// Encode writes the text back, restoring the BOM if the source had one.
func (t *Text) Encode(w *binary.Writer, extra *codec.ExtraData) error {
	if t.bom {
		if err := w.Bytes(utf8BOM); err != nil {
			return err
		}
	}
	return w.Bytes([]byte(t.value))
}

// Value returns the decoded text.
func (t *Text) Value() string { return t.value }

// SetValue replaces the decoded text.
func (t *Text) SetValue(value string) { t.value = value }

// Binary is the passthrough content for entries with no recognized format.
type Binary struct {
	data []byte
}

// NewBinary returns a binary content holding data.
func NewBinary(data []byte) *Binary {
	return &Binary{data: data}
}

// Encode writes the bytes back unchanged.
func (b *Binary) Encode(w *binary.Writer, extra *codec.ExtraData) error {
	return w.Bytes(b.data)
}

// Bytes returns the payload.
func (b *Binary) Bytes() []byte { return b.data }
