// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"github.com/suprsokr/go-pack/binary"
)

// Legacy cipher constants. These are fixed protocol facts shared with every
// existing archive; changing any of them breaks interoperability.
const (
	indexU32Key = 0xE10B_73F4
	dataKey     = 0x8FEB_2A67_40A6_920E
)

// indexStringKey is the 64-byte keystream for ciphered index paths.
var indexStringKey = []byte("#:AhppdV-!PEfz&}[]Nv?6w4guU%dF5.fq:n*-qGuhBJJBm&?2tPy!geW/+k#pG?")

// cipherIndexU32 ciphers or deciphers a u32 index field. Each entry is keyed
// by the number of entries after it in the index, so the same value ciphers
// differently at every position. The operation is its own inverse.
func cipherIndexU32(v uint32, entriesAfter uint32) uint32 {
	return ^entriesAfter ^ v ^ indexU32Key
}

// decryptIndexPath reads a ciphered, zero-terminated path from the index.
// The keystream is offset by the bitwise complement of the entry's decrypted
// size truncated to a byte; the terminator itself is ciphered too, so the
// read stops at the first byte that deciphers to zero.
func decryptIndexPath(r *binary.Reader, plainSize byte) (string, error) {
	var out []byte
	for i := 0; ; i++ {
		c, err := r.U8()
		if err != nil {
			return "", err
		}
		plain := c ^ ^plainSize ^ indexStringKey[i%len(indexStringKey)]
		if plain == 0 {
			return string(out), nil
		}
		out = append(out, plain)
	}
}

// encryptIndexPath ciphers a path for the index, terminator included.
func encryptIndexPath(path string, plainSize byte) []byte {
	out := make([]byte, len(path)+1)
	for i := 0; i <= len(path); i++ {
		var plain byte
		if i < len(path) {
			plain = path[i]
		}
		out[i] = plain ^ ^plainSize ^ indexStringKey[i%len(indexStringKey)]
	}
	return out
}

// cipherData ciphers or deciphers a whole payload. The stream is XORed in
// 8-byte little-endian chunks against dataKey times the complemented chunk
// offset; input is zero-padded to an 8-byte boundary for the last chunk and
// the output truncated back. The operation is its own inverse.
func cipherData(data []byte) []byte {
	size := len(data)
	padded := (size + 7) &^ 7
	buf := make([]byte, padded)
	copy(buf, data)

	out := make([]byte, padded)
	for off := 0; off < padded; off += 8 {
		key := dataKey * uint64(^uint32(off))
		chunk := uint64(buf[off]) | uint64(buf[off+1])<<8 | uint64(buf[off+2])<<16 | uint64(buf[off+3])<<24 |
			uint64(buf[off+4])<<32 | uint64(buf[off+5])<<40 | uint64(buf[off+6])<<48 | uint64(buf[off+7])<<56
		chunk ^= key
		for i := 0; i < 8; i++ {
			out[off+i] = byte(chunk >> (8 * i))
		}
	}
	return out[:size]
}
