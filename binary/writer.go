// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package binary

import (
	"io"
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/cockroachdb/errors"
)

// Writer encodes little-endian primitives to a sink.
type Writer struct {
	w   io.Writer
	buf [8]byte
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Bytes writes raw bytes unchanged.
func (w *Writer) Bytes(data []byte) error {
	_, err := w.w.Write(data)
	return err
}

// Bool writes a bool as a single 0 or 1 byte.
func (w *Writer) Bool(v bool) error {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

// U8 writes an unsigned byte.
func (w *Writer) U8(v uint8) error {
	w.buf[0] = v
	_, err := w.w.Write(w.buf[:1])
	return err
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) error {
	w.buf[0] = byte(v)
	w.buf[1] = byte(v >> 8)
	_, err := w.w.Write(w.buf[:2])
	return err
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) error {
	w.buf[0] = byte(v)
	w.buf[1] = byte(v >> 8)
	w.buf[2] = byte(v >> 16)
	w.buf[3] = byte(v >> 24)
	_, err := w.w.Write(w.buf[:4])
	return err
}

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) error {
	for i := 0; i < 8; i++ {
		w.buf[i] = byte(v >> (8 * i))
	}
	_, err := w.w.Write(w.buf[:8])
	return err
}

// I16 writes a little-endian int16.
func (w *Writer) I16(v int16) error { return w.U16(uint16(v)) }

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) error { return w.U32(uint32(v)) }

// I64 writes a little-endian int64.
func (w *Writer) I64(v int64) error { return w.U64(uint64(v)) }

// F32 writes a little-endian IEEE 754 single-precision float.
func (w *Writer) F32(v float32) error { return w.U32(math.Float32bits(v)) }

// F64 writes a little-endian IEEE 754 double-precision float.
func (w *Writer) F64(v float64) error { return w.U64(math.Float64bits(v)) }

// OptionalI16 writes a set presence byte followed by the value.
func (w *Writer) OptionalI16(v int16) error {
	if err := w.Bool(true); err != nil {
		return err
	}
	return w.I16(v)
}

// OptionalI32 writes a set presence byte followed by the value.
func (w *Writer) OptionalI32(v int32) error {
	if err := w.Bool(true); err != nil {
		return err
	}
	return w.I32(v)
}

// OptionalI64 writes a set presence byte followed by the value.
func (w *Writer) OptionalI64(v int64) error {
	if err := w.Bool(true); err != nil {
		return err
	}
	return w.I64(v)
}

// StringU8 writes the raw UTF-8 bytes of s with no length or terminator.
func (w *Writer) StringU8(s string) error {
	return w.Bytes([]byte(s))
}

// StringU8ZeroPadded writes s into a fixed field of size bytes, padding the
// remainder with zeros. Strings longer than the field are rejected.
func (w *Writer) StringU8ZeroPadded(s string, size int) error {
	if len(s) > size {
		return errors.Newf("binary: string %q does not fit in %d bytes", s, size)
	}
	if err := w.StringU8(s); err != nil {
		return err
	}
	return w.Bytes(make([]byte, size-len(s)))
}

// StringU8ZeroTerminated writes s followed by a zero byte.
func (w *Writer) StringU8ZeroTerminated(s string) error {
	if err := w.StringU8(s); err != nil {
		return err
	}
	return w.U8(0)
}

// SizedStringU8 writes a uint16 byte length followed by the UTF-8 bytes.
func (w *Writer) SizedStringU8(s string) error {
	if err := w.U16(uint16(len(s))); err != nil {
		return err
	}
	return w.StringU8(s)
}

// OptionalStringU8 writes an unset presence byte for the empty string, or a
// set presence byte followed by a sized UTF-8 string.
func (w *Writer) OptionalStringU8(s string) error {
	if s == "" {
		return w.Bool(false)
	}
	if err := w.Bool(true); err != nil {
		return err
	}
	return w.SizedStringU8(s)
}

// StringU16 writes s as UTF-16LE code units with no length or terminator.
func (w *Writer) StringU16(s string) error {
	for _, unit := range utf16.Encode([]rune(s)) {
		if err := w.U16(unit); err != nil {
			return err
		}
	}
	return nil
}

// SizedStringU16 writes a uint16 count of UTF-16 code units followed by the
// units themselves.
func (w *Writer) SizedStringU16(s string) error {
	units := utf16.Encode([]rune(s))
	if err := w.U16(uint16(len(units))); err != nil {
		return err
	}
	for _, unit := range units {
		if err := w.U16(unit); err != nil {
			return err
		}
	}
	return nil
}

// OptionalStringU16 writes an unset presence byte for the empty string, or a
// set presence byte followed by a sized UTF-16 string.
func (w *Writer) OptionalStringU16(s string) error {
	if s == "" {
		return w.Bool(false)
	}
	if err := w.Bool(true); err != nil {
		return err
	}
	return w.SizedStringU16(s)
}

// ColourRGB parses a hex colour string and writes it as a uint32.
func (w *Writer) ColourRGB(s string) error {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return errors.Wrapf(err, "binary: invalid colour %q", s)
	}
	return w.U32(uint32(v))
}
