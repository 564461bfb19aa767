// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"github.com/cockroachdb/errors"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
)

// Pack format constants
const (
	// Minimum bytes a bare, empty pack needs: preamble, type word, and the
	// four index counts.
	minHeaderSize = 24

	// Some packs downloaded from Steam carry a fake 8-byte "MFH" preamble
	// before the real header.
	mfhPreamble = "MFH"

	// PFH6 subheader layout
	subheaderMark      = 0x12345407
	subheaderVersion   = 1
	authoringToolSize  = 8
	subheaderSpareSize = 256

	// PFH4/PFH5 packs flagged with an extended header carry this many opaque
	// bytes after the timestamp.
	extendedHeaderSize = 20

	// Arena (PFH5 + extended header) packs have this much trailing slack
	// after the last payload byte.
	arenaTrailingSlack = 256

	// Windows FILETIME conversion, for PFH2/PFH3 timestamps.
	windowsTick    = 10_000_000
	secToUnixEpoch = 11_644_473_600

	// reservedNotesName is the pack-author notes entry. It is stripped out
	// of the file set on open and rebuilt from Pack.Notes on save.
	reservedNotesName = "notes.rpfm_reserved"
)

// Version identifies the on-disk pack format, encoded as a 4-byte preamble
// ("PFH0", "PFH2", ...) at the start of the file.
type Version uint32

const (
	PFH0 Version = 0
	PFH2 Version = 2
	PFH3 Version = 3
	PFH4 Version = 4
	PFH5 Version = 5
	PFH6 Version = 6
)

var versionPreambles = map[Version]string{
	PFH0: "PFH0",
	PFH2: "PFH2",
	PFH3: "PFH3",
	PFH4: "PFH4",
	PFH5: "PFH5",
	PFH6: "PFH6",
}

// String returns the 4-byte preamble of the version.
func (v Version) String() string {
	if preamble, ok := versionPreambles[v]; ok {
		return preamble
	}
	return "PFH?"
}

// parseVersion resolves a 4-byte preamble. Unknown preambles fail with an
// error marked codec.ErrUnsupportedVersion.
func parseVersion(preamble string) (Version, error) {
	for v, p := range versionPreambles {
		if p == preamble {
			return v, nil
		}
	}
	return 0, errors.Mark(
		errors.Newf("pack: unsupported preamble %q", preamble),
		codec.ErrUnsupportedVersion,
	)
}

// PackType classifies a pack within a game's load order. It lives in the low
// four bits of the header's type word.
type PackType uint32

const (
	TypeBoot    PackType = 0
	TypeRelease PackType = 1
	TypePatch   PackType = 2
	TypeMod     PackType = 3
	TypeMovie   PackType = 4

	packTypeMask = 15
)

var packTypeNames = map[PackType]string{
	TypeBoot:    "boot",
	TypeRelease: "release",
	TypePatch:   "patch",
	TypeMod:     "mod",
	TypeMovie:   "movie",
}

// String returns the lowercase name of the pack type.
func (t PackType) String() string {
	if name, ok := packTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Flags is the header bitmask, sharing the type word with PackType above the
// low four bits.
type Flags uint32

const (
	// FlagDataEncrypted marks every payload as whole-block ciphered.
	FlagDataEncrypted Flags = 0x10

	// FlagIndexTimestamps adds a per-entry timestamp to the file index.
	FlagIndexTimestamps Flags = 0x40

	// FlagIndexEncrypted passes every index entry's size, timestamp, and
	// path through the legacy index cipher.
	FlagIndexEncrypted Flags = 0x80

	// FlagExtendedHeader marks the extra subheader used by Arena packs.
	FlagExtendedHeader Flags = 0x100
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Header is the decoded fixed part of a pack file. The index counts are not
// stored here; they are recomputed from the live entry set on every save.
type Header struct {
	Version  Version
	PackType PackType
	Flags    Flags

	// Timestamp is the pack creation time in unix seconds. PFH0 has none
	// and keeps zero.
	Timestamp int64

	// PFH6 subheader fields.
	SubheaderVersion uint32
	GameVersion      uint32
	BuildNumber      uint32
	AuthoringTool    string
	SubheaderSpare   []byte

	// ExtendedData is the opaque extended-header payload of PFH4/PFH5 packs
	// flagged with FlagExtendedHeader, kept verbatim.
	ExtendedData []byte
}

// isArena reports whether this is an Arena pack: PFH5 with the extended
// header. Those use PFH4-style index entries, align encrypted payloads to 8
// bytes, and carry trailing slack after the data.
func (h *Header) isArena() bool {
	return h.Version == PFH5 && h.Flags.Has(FlagExtendedHeader)
}

// entryTimestampWide reports whether index entry timestamps are 8-byte
// Windows ticks instead of 4-byte unix seconds.
func (h *Header) entryTimestampWide() bool {
	return h.Version == PFH2 || h.Version == PFH3
}

// entryCompressionByte reports whether index entries carry a compression
// byte. Arena packs use the PFH4 index layout and have none.
func (h *Header) entryCompressionByte() bool {
	return (h.Version == PFH5 || h.Version == PFH6) && !h.Flags.Has(FlagExtendedHeader)
}

type (
	headerTailDecoder func(h *Header, r *binary.Reader) error
	headerTailEncoder func(h *Header, w *binary.Writer, refreshedTimestamp int64) error
)

// headerRegistry dispatches the version-specific part of the header, between
// the index counts and the dependency index.
var headerRegistry = codec.NewRegistry[headerTailDecoder, headerTailEncoder]("pack header")

func init() {
	headerRegistry.Register(uint32(PFH0), readTailPFH0, writeTailPFH0)
	headerRegistry.Register(uint32(PFH2), readTailWindows, writeTailWindows)
	headerRegistry.Register(uint32(PFH3), readTailWindows, writeTailWindows)
	headerRegistry.Register(uint32(PFH4), readTailUnix, writeTailUnix)
	headerRegistry.Register(uint32(PFH5), readTailUnix, writeTailUnix)
	headerRegistry.Register(uint32(PFH6), readTailPFH6, writeTailPFH6)
}

// readTailPFH0 reads nothing: PFH0 headers end at the index counts.
func readTailPFH0(h *Header, r *binary.Reader) error { return nil }

func writeTailPFH0(h *Header, w *binary.Writer, refreshed int64) error { return nil }

// readTailWindows reads the PFH2/PFH3 timestamp, stored as Windows ticks.
func readTailWindows(h *Header, r *binary.Reader) error {
	ticks, err := r.I64()
	if err != nil {
		return err
	}
	h.Timestamp = ticks/windowsTick - secToUnixEpoch
	return nil
}

func writeTailWindows(h *Header, w *binary.Writer, refreshed int64) error {
	ts := h.Timestamp
	if refreshed != 0 {
		ts = refreshed
	}
	return w.I64((ts + secToUnixEpoch) * windowsTick)
}

// readTailUnix reads the PFH4/PFH5 timestamp, plus the opaque extended
// header when flagged.
func readTailUnix(h *Header, r *binary.Reader) error {
	ts, err := r.U32()
	if err != nil {
		return err
	}
	h.Timestamp = int64(ts)

	if h.Flags.Has(FlagExtendedHeader) {
		if h.ExtendedData, err = r.Slice(extendedHeaderSize); err != nil {
			return err
		}
	}
	return nil
}

func writeTailUnix(h *Header, w *binary.Writer, refreshed int64) error {
	ts := h.Timestamp
	if refreshed != 0 {
		ts = refreshed
	}
	if err := w.U32(uint32(ts)); err != nil {
		return err
	}

	if h.Flags.Has(FlagExtendedHeader) {
		data := h.ExtendedData
		if data == nil {
			data = make([]byte, extendedHeaderSize)
		}
		return w.Bytes(data)
	}
	return nil
}

// readTailPFH6 reads the timestamp and the 280-byte PFH6 subheader.
func readTailPFH6(h *Header, r *binary.Reader) error {
	ts, err := r.U32()
	if err != nil {
		return err
	}
	h.Timestamp = int64(ts)

	marker, err := r.U32()
	if err != nil {
		return err
	}
	if marker != subheaderMark {
		return errors.Mark(
			errors.Newf("pack: bad subheader marker 0x%08X", marker),
			ErrMalformedHeader,
		)
	}
	if h.SubheaderVersion, err = r.U32(); err != nil {
		return err
	}
	if h.GameVersion, err = r.U32(); err != nil {
		return err
	}
	if h.BuildNumber, err = r.U32(); err != nil {
		return err
	}
	if h.AuthoringTool, err = r.StringU8ZeroPadded(authoringToolSize); err != nil {
		return err
	}
	h.SubheaderSpare, err = r.Slice(subheaderSpareSize)
	return err
}

func writeTailPFH6(h *Header, w *binary.Writer, refreshed int64) error {
	ts := h.Timestamp
	if refreshed != 0 {
		ts = refreshed
	}
	if err := w.U32(uint32(ts)); err != nil {
		return err
	}

	if err := w.U32(subheaderMark); err != nil {
		return err
	}
	version := h.SubheaderVersion
	if version == 0 {
		version = subheaderVersion
	}
	if err := w.U32(version); err != nil {
		return err
	}
	if err := w.U32(h.GameVersion); err != nil {
		return err
	}
	if err := w.U32(h.BuildNumber); err != nil {
		return err
	}
	if err := w.StringU8ZeroPadded(h.AuthoringTool, authoringToolSize); err != nil {
		return err
	}
	spare := h.SubheaderSpare
	if spare == nil {
		spare = make([]byte, subheaderSpareSize)
	}
	return w.Bytes(spare)
}
