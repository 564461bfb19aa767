// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-pack/binary"
)

func decodeText(t *testing.T, data []byte) *Text {
	t.Helper()
	text, err := DecodeText(binary.NewReader(bytes.NewReader(data)), nil)
	require.NoError(t, err)
	return text
}

func encodeContent(t *testing.T, c Content) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Encode(binary.NewWriter(&buf), nil))
	return buf.Bytes()
}

func TestTextRoundTrip(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		src := []byte("function main()\n\treturn 1\nend\n")
		text := decodeText(t, src)
		require.Equal(t, string(src), text.Value())
		require.Equal(t, src, encodeContent(t, text))
	})

	t.Run("keeps the byte order mark", func(t *testing.T) {
		src := append(append([]byte{}, utf8BOM...), []byte("<root/>")...)
		text := decodeText(t, src)
		require.Equal(t, "<root/>", text.Value())
		require.Equal(t, src, encodeContent(t, text))
	})

	t.Run("replaces invalid sequences", func(t *testing.T) {
		// A run of invalid bytes collapses into one replacement rune.
		text := decodeText(t, []byte{'o', 'k', 0xFF, 0xFE})
		require.Equal(t, "ok�", text.Value())
	})
}

func TestBinaryPassthrough(t *testing.T) {
	data := []byte{0x00, 0x01, 0xFF, 0xFE}
	b := NewBinary(data)
	require.Equal(t, data, b.Bytes())
	require.Equal(t, data, encodeContent(t, b))
}
