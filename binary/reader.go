// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package binary

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Reader decodes little-endian primitives from a seekable source.
//
// Every method advances the cursor past the bytes it consumed. On failure the
// cursor position is unspecified and the caller should treat the source as
// poisoned.
type Reader struct {
	r   io.ReadSeeker
	buf [8]byte
}

// NewReader returns a Reader over r.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

// Len returns the total length of the underlying source, preserving the
// current cursor position.
func (r *Reader) Len() (int64, error) {
	pos, err := r.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if pos != end {
		if _, err := r.r.Seek(pos, io.SeekStart); err != nil {
			return 0, err
		}
	}
	return end, nil
}

// Pos returns the current cursor position.
func (r *Reader) Pos() (int64, error) {
	return r.r.Seek(0, io.SeekCurrent)
}

// SeekTo moves the cursor to an absolute offset.
func (r *Reader) SeekTo(offset int64) error {
	_, err := r.r.Seek(offset, io.SeekStart)
	return err
}

// Skip moves the cursor n bytes forward (or backward, if negative).
func (r *Reader) Skip(n int64) error {
	_, err := r.r.Seek(n, io.SeekCurrent)
	return err
}

// Slice reads exactly size bytes.
func (r *Reader) Slice(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Newf("binary: negative slice size %d", size)
	}
	data := make([]byte, size)
	if size == 0 {
		return data, nil
	}
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Reader) fill(n int) ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		return nil, err
	}
	return r.buf[:n], nil
}

// Bool reads a single byte that must be exactly 0 or 1.
func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Newf("binary: invalid bool value 0x%02X", v)
	}
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56, nil
}

// I16 reads a little-endian int16.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// I64 reads a little-endian int64.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 reads a little-endian IEEE 754 single-precision float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// F64 reads a little-endian IEEE 754 double-precision float.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// OptionalI16 reads a presence byte followed by an int16. The value is
// present on the wire even when the presence byte is false.
func (r *Reader) OptionalI16() (int16, error) {
	if _, err := r.Bool(); err != nil {
		return 0, err
	}
	return r.I16()
}

// OptionalI32 reads a presence byte followed by an int32.
func (r *Reader) OptionalI32() (int32, error) {
	if _, err := r.Bool(); err != nil {
		return 0, err
	}
	return r.I32()
}

// OptionalI64 reads a presence byte followed by an int64.
func (r *Reader) OptionalI64() (int64, error) {
	if _, err := r.Bool(); err != nil {
		return 0, err
	}
	return r.I64()
}

// StringU8 reads size bytes as an UTF-8 string.
func (r *Reader) StringU8(size int) (string, error) {
	data, err := r.Slice(size)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("binary: invalid UTF-8 string")
	}
	return string(data), nil
}

// StringU8ZeroPadded reads a fixed field of size bytes holding an UTF-8
// string terminated by the first zero byte. The padding after the terminator
// is discarded.
func (r *Reader) StringU8ZeroPadded(size int) (string, error) {
	data, err := r.Slice(size)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	if !utf8.Valid(data) {
		return "", errors.New("binary: invalid UTF-8 string")
	}
	return string(data), nil
}

// StringU8ZeroTerminated reads bytes up to (and consuming) the next zero
// byte. Invalid UTF-8 sequences are replaced rather than rejected, as paths
// in old archives carry broken symbols.
func (r *Reader) StringU8ZeroTerminated() (string, error) {
	var out []byte
	buf := make([]byte, 512)
	for {
		n, err := r.r.Read(buf)
		if n > 0 {
			if i := bytes.IndexByte(buf[:n], 0); i >= 0 {
				out = append(out, buf[:i]...)
				if _, err := r.r.Seek(int64(i+1-n), io.SeekCurrent); err != nil {
					return "", err
				}
				return strings.ToValidUTF8(string(out), "�"), nil
			}
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("binary: zero-terminated string has no terminator")
			}
			return "", err
		}
	}
}

// SizedStringU8 reads a uint16 byte length followed by that many bytes of
// UTF-8 text.
func (r *Reader) SizedStringU8() (string, error) {
	size, err := r.U16()
	if err != nil {
		return "", errors.Wrap(err, "binary: read UTF-8 string size")
	}
	return r.StringU8(int(size))
}

// OptionalStringU8 reads a presence byte; when set, a sized UTF-8 string
// follows. An unset presence byte decodes as the empty string.
func (r *Reader) OptionalStringU8() (string, error) {
	present, err := r.Bool()
	if err != nil {
		return "", errors.Wrap(err, "binary: read optional UTF-8 string presence")
	}
	if !present {
		return "", nil
	}
	return r.SizedStringU8()
}

// StringU16 reads size bytes as an UTF-16LE string. size counts bytes and
// must be even.
func (r *Reader) StringU16(size int) (string, error) {
	if size%2 == 1 {
		return "", errors.Newf("binary: uneven UTF-16 string size %d", size)
	}
	data, err := r.Slice(size)
	if err != nil {
		return "", err
	}
	return decodeUTF16LE(data), nil
}

// SizedStringU16 reads a uint16 count of UTF-16 code units followed by the
// units themselves.
func (r *Reader) SizedStringU16() (string, error) {
	size, err := r.U16()
	if err != nil {
		return "", errors.Wrap(err, "binary: read UTF-16 string size")
	}
	return r.StringU16(int(size) * 2)
}

// OptionalStringU16 reads a presence byte; when set, a sized UTF-16 string
// follows.
func (r *Reader) OptionalStringU16() (string, error) {
	present, err := r.Bool()
	if err != nil {
		return "", errors.Wrap(err, "binary: read optional UTF-16 string presence")
	}
	if !present {
		return "", nil
	}
	return r.SizedStringU16()
}

// ColourRGB reads a uint32 holding a 0x00BBGGRR colour and renders it as an
// uppercase hex string of at least six digits.
func (r *Reader) ColourRGB() (string, error) {
	v, err := r.U32()
	if err != nil {
		return "", err
	}
	return formatColourRGB(v), nil
}

func decodeUTF16LE(data []byte) string {
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[i*2]) | uint16(data[i*2+1])<<8
	}
	return string(utf16.Decode(units))
}

func formatColourRGB(v uint32) string {
	return fmt.Sprintf("%06X", v)
}
