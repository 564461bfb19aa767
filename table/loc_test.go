// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
)

func TestLocRoundTrip(t *testing.T) {
	src := NewLoc()
	require.NoError(t, src.Table().AppendRow(Row{
		NewStringU16("unit_name_spearmen"), NewStringU16("Spearmen"), NewBool(false),
	}))
	require.NoError(t, src.Table().AppendRow(Row{
		NewStringU16("unit_desc_spearmen"), NewStringU16("Hold the line."), NewBool(true),
	}))

	var buf bytes.Buffer
	require.NoError(t, src.Encode(binary.NewWriter(&buf), nil))
	encoded := buf.Bytes()

	decoded, err := DecodeLoc(binary.NewReader(bytes.NewReader(encoded)), nil)
	require.NoError(t, err)

	rows, err := decoded.Table().Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	key, err := rows[0][0].AsString()
	require.NoError(t, err)
	require.Equal(t, "unit_name_spearmen", key)

	var again bytes.Buffer
	require.NoError(t, decoded.Encode(binary.NewWriter(&again), nil))
	require.Equal(t, encoded, again.Bytes())
}

func TestLocHeaderLayout(t *testing.T) {
	src := NewLoc()
	var buf bytes.Buffer
	require.NoError(t, src.Encode(binary.NewWriter(&buf), nil))

	// BOM, "LOC", a zero byte, version 1, entry count 0.
	want := []byte{
		0xFF, 0xFE,
		'L', 'O', 'C', 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	require.Equal(t, want, buf.Bytes())
	require.Len(t, buf.Bytes(), locHeaderSize)
}

func TestLocRejectsBadHeader(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		_, err := DecodeLoc(binary.NewReader(bytes.NewReader([]byte{0xFF, 0xFE, 'L'})), nil)
		require.Error(t, err)
	})

	t.Run("bad byte order mark", func(t *testing.T) {
		data := []byte{0x00, 0x00, 'L', 'O', 'C', 0x00, 0x01, 0, 0, 0, 0, 0, 0, 0}
		_, err := DecodeLoc(binary.NewReader(bytes.NewReader(data)), nil)
		require.Error(t, err)
	})

	t.Run("bad tag", func(t *testing.T) {
		data := []byte{0xFF, 0xFE, 'X', 'Y', 'Z', 0x00, 0x01, 0, 0, 0, 0, 0, 0, 0}
		_, err := DecodeLoc(binary.NewReader(bytes.NewReader(data)), nil)
		require.Error(t, err)
	})

	t.Run("unsupported version", func(t *testing.T) {
		data := []byte{0xFF, 0xFE, 'L', 'O', 'C', 0x00, 0x02, 0, 0, 0, 0, 0, 0, 0}
		_, err := DecodeLoc(binary.NewReader(bytes.NewReader(data)), nil)
		require.ErrorIs(t, err, codec.ErrUnsupportedVersion)
	})
}

func TestLocSizeMismatch(t *testing.T) {
	src := NewLoc()
	var buf bytes.Buffer
	require.NoError(t, src.Encode(binary.NewWriter(&buf), nil))

	trailing := append(buf.Bytes(), 0xAA)
	_, err := DecodeLoc(binary.NewReader(bytes.NewReader(trailing)), nil)
	require.ErrorIs(t, err, codec.ErrSizeMismatch)
}

func TestLocAllowIncomplete(t *testing.T) {
	src := NewLoc()
	require.NoError(t, src.Table().AppendRow(Row{
		NewStringU16("unit_name_spearmen"), NewStringU16("Spearmen"), NewBool(false),
	}))
	require.NoError(t, src.Table().AppendRow(Row{
		NewStringU16("unit_desc_spearmen"), NewStringU16("Hold the line."), NewBool(true),
	}))

	var buf bytes.Buffer
	require.NoError(t, src.Encode(binary.NewWriter(&buf), nil))
	truncated := buf.Bytes()[:buf.Len()-3]

	decoded, err := DecodeLoc(
		binary.NewReader(bytes.NewReader(truncated)),
		&codec.ExtraData{AllowIncomplete: true},
	)
	require.NoError(t, err)
	require.True(t, decoded.Table().Incomplete())

	n, err := decoded.Table().Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
