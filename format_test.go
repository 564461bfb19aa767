// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suprsokr/go-pack/codec"
)

func TestParseVersion(t *testing.T) {
	for _, v := range []Version{PFH0, PFH2, PFH3, PFH4, PFH5, PFH6} {
		got, err := parseVersion(v.String())
		require.NoError(t, err)
		require.Equal(t, v, got)
	}

	_, err := parseVersion("PFH1")
	require.ErrorIs(t, err, codec.ErrUnsupportedVersion)
	_, err = parseVersion("\x00\x00\x00\x00")
	require.ErrorIs(t, err, codec.ErrUnsupportedVersion)
}

func TestFlags(t *testing.T) {
	f := FlagDataEncrypted | FlagIndexEncrypted
	require.True(t, f.Has(FlagDataEncrypted))
	require.True(t, f.Has(FlagIndexEncrypted))
	require.False(t, f.Has(FlagIndexTimestamps))
	require.True(t, f.Has(FlagDataEncrypted|FlagIndexEncrypted))
}

func TestTypeWordSplit(t *testing.T) {
	// The type word packs the pack type into the low four bits and the flags
	// above them.
	word := uint32(TypeMod) | uint32(FlagIndexEncrypted|FlagIndexTimestamps)
	require.Equal(t, TypeMod, PackType(word&packTypeMask))
	require.Equal(t, FlagIndexEncrypted|FlagIndexTimestamps, Flags(word&^packTypeMask))
}

func TestHeaderShape(t *testing.T) {
	arena := Header{Version: PFH5, Flags: FlagExtendedHeader}
	require.True(t, arena.isArena())
	require.False(t, arena.entryCompressionByte())

	plain5 := Header{Version: PFH5}
	require.False(t, plain5.isArena())
	require.True(t, plain5.entryCompressionByte())

	old := Header{Version: PFH3}
	require.True(t, old.entryTimestampWide())
	require.False(t, old.entryCompressionByte())
}

func TestDetectContentType(t *testing.T) {
	cases := map[string]ContentType{
		"db/land_units_tables/data__":  ContentDB,
		"db/land_units_tables/extra/f": ContentUnknown,
		"text/localisation.loc":        ContentLoc,
		"TEXT/LOCALISATION.LOC":        ContentLoc,
		"scripts/campaign/start.lua":   ContentText,
		"readme.txt":                   ContentText,
		"ui/portraits/spearmen.png":    ContentUnknown,
		"variants/spearmen.wsmodel":    ContentText,
	}
	for path, want := range cases {
		require.Equal(t, want, detectContentType(path), path)
	}
}
