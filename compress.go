// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// CompressionFormat selects the per-entry payload compression.
type CompressionFormat int

const (
	// CompressionLzma1 is the classic format: a raw LZMA1-alone stream
	// behind a custom 9-byte header (u32 uncompressed size, 1 properties
	// byte, u32 dictionary size). The standard LZMA1 13-byte header was
	// shortened to save 4 bytes per entry, losing >4GB support.
	CompressionLzma1 CompressionFormat = iota

	// CompressionLz4 is an LZ4 frame, used by newer game versions.
	CompressionLz4

	// CompressionZstd is a Zstandard frame, used by newer game versions.
	CompressionZstd
)

var compressionNames = map[CompressionFormat]string{
	CompressionLzma1: "lzma1",
	CompressionLz4:   "lz4",
	CompressionZstd:  "zstd",
}

// String returns the lowercase name of the format.
func (f CompressionFormat) String() string {
	if name, ok := compressionNames[f]; ok {
		return name
	}
	return "unknown"
}

// lzmaDictCap is the dictionary size the game's own compressor uses.
const lzmaDictCap = 1 << 22

var (
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// detectCompression sniffs the format of a compressed payload. Lzma1 has no
// magic, so it is the fallback for anything that is not an LZ4 or Zstd
// frame.
func detectCompression(data []byte) CompressionFormat {
	switch {
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLz4
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	default:
		return CompressionLzma1
	}
}

// decompress restores a compressed payload, detecting the format by magic.
// It returns the detected format so a later save can re-apply the same one.
func decompress(data []byte) ([]byte, CompressionFormat, error) {
	format := detectCompression(data)

	var out []byte
	var err error
	switch format {
	case CompressionLz4:
		out, err = io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	case CompressionZstd:
		out, err = zstdDecoder.DecodeAll(data, nil)
	default:
		out, err = decompressLzma1(data)
	}
	if err != nil {
		return nil, format, errors.Wrapf(err, "pack: decompress %s payload", format)
	}
	return out, format, nil
}

// compress produces a compressed payload in the given format.
func compress(data []byte, format CompressionFormat) ([]byte, error) {
	switch format {
	case CompressionLz4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, errors.Wrap(err, "pack: lz4 write")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "pack: lz4 close")
		}
		return buf.Bytes(), nil

	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil

	case CompressionLzma1:
		return compressLzma1(data)

	default:
		return nil, errors.Newf("pack: unknown compression format %d", int(format))
	}
}

// decompressLzma1 rebuilds the standard LZMA1-alone header from the custom
// one, then streams through a regular decoder. Empty payloads stay empty.
func decompressLzma1(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 9 {
		return nil, errors.New("payload too short for the lzma1 header")
	}

	header := make([]byte, 0, 13)
	header = append(header, data[4:9]...)    // properties + dictionary size
	header = append(header, data[0:4]...)    // uncompressed size, low half
	header = append(header, 0, 0, 0, 0)      // uncompressed size, high half
	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(data[9:])))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// compressLzma1 compresses to an LZMA1-alone stream and rewrites its 13-byte
// header into the custom 9-byte layout.
func compressLzma1(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{
		SizeInHeader: true,
		Size:         int64(len(data)),
		DictCap:      lzmaDictCap,
	}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	raw := buf.Bytes()
	out := make([]byte, 0, len(raw)-4)
	size := uint32(len(data))
	out = append(out, byte(size), byte(size>>8), byte(size>>16), byte(size>>24))
	out = append(out, raw[0:5]...) // properties + dictionary size
	out = append(out, raw[13:]...)
	return out, nil
}
