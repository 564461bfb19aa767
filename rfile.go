// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
	"github.com/suprsokr/go-pack/table"
)

// ContentType tags what an entry's bytes decode into, guessed from its path.
type ContentType int

const (
	ContentUnknown ContentType = iota
	ContentDB
	ContentLoc
	ContentText
)

var contentTypeNames = map[ContentType]string{
	ContentUnknown: "unknown",
	ContentDB:      "db",
	ContentLoc:     "loc",
	ContentText:    "text",
}

// String returns the lowercase name of the content type.
func (t ContentType) String() string {
	if name, ok := contentTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// textExtensions are the path suffixes decoded as plain text.
var textExtensions = []string{
	".lua", ".txt", ".xml", ".json", ".md", ".csv", ".tsv", ".inl",
	".wsmodel", ".environment", ".lighting",
}

// detectContentType guesses an entry's content from its container path.
func detectContentType(path string) ContentType {
	lower := strings.ToLower(path)
	if segments := strings.Split(lower, "/"); len(segments) == 3 && segments[0] == "db" {
		return ContentDB
	}
	if strings.HasSuffix(lower, ".loc") {
		return ContentLoc
	}
	for _, ext := range textExtensions {
		if strings.HasSuffix(lower, ext) {
			return ContentText
		}
	}
	return ContentUnknown
}

// State tracks how far an entry has moved from its on-disk bytes.
type State int

const (
	// StateRaw entries hold (or lazily point at) their exact container
	// bytes. On save they are copied through untouched.
	StateRaw State = iota

	// StateDecoded entries have a decoded content value and are re-encoded
	// from it on save.
	StateDecoded

	// StateModified entries have been mutated since decode.
	StateModified
)

// Content is a decoded entry value that can serialize itself back.
type Content interface {
	codec.Encodeable
}

// onDisk points at an entry's payload inside its backing pack file.
type onDisk struct {
	diskPath string
	offset   int64
	size     uint32
	modTime  time.Time
}

// RFile is one named entry of a pack. Entries parsed from a container start
// lazy: only the index data is known, and the payload stays on disk until
// first use.
type RFile struct {
	path        string
	timestamp   int64
	contentType ContentType

	// compressed/encrypted describe the container form of the payload;
	// compression records which algorithm a save should re-apply.
	compressed  bool
	encrypted   bool
	compression CompressionFormat

	disk     *onDisk // lazy marker, nil once loaded or replaced
	stored   []byte  // container-form payload, possibly ciphered/compressed
	plain    []byte  // decompressed payload bytes
	content  Content
	modified bool
}

// NewRFile returns a new in-memory entry holding data. It starts Modified:
// it exists nowhere on disk yet.
func NewRFile(path string, data []byte) *RFile {
	return &RFile{
		path:        path,
		contentType: detectContentType(path),
		plain:       data,
		modified:    true,
	}
}

// Path returns the container-relative path, with forward slashes.
func (f *RFile) Path() string { return f.path }

// ContentType returns what the entry decodes into.
func (f *RFile) ContentType() ContentType { return f.contentType }

// Timestamp returns the entry's index timestamp in unix seconds, or 0 when
// the container carries none.
func (f *RFile) Timestamp() int64 { return f.timestamp }

// SetTimestamp sets the entry's index timestamp.
func (f *RFile) SetTimestamp(ts int64) { f.timestamp = ts }

// Compressed reports whether the entry is (or will be) compressed in the
// container.
func (f *RFile) Compressed() bool { return f.compressed }

// SetCompressed switches per-entry compression for the next save. Table
// entries never compress: the games crash on compressed db tables.
func (f *RFile) SetCompressed(compressed bool, format CompressionFormat) {
	if f.contentType == ContentDB || f.contentType == ContentLoc {
		compressed = false
	}
	f.compressed = compressed
	f.compression = format
}

// State returns where the entry sits between raw bytes and mutated value.
func (f *RFile) State() State {
	switch {
	case f.modified:
		return StateModified
	case f.content != nil:
		return StateDecoded
	default:
		return StateRaw
	}
}

// DiskSize returns the declared container payload length: what the index
// said for lazy entries, the stored byte count otherwise, and 0 for entries
// that have never been serialized.
func (f *RFile) DiskSize() uint32 {
	switch {
	case f.disk != nil:
		return f.disk.size
	case f.stored != nil:
		return uint32(len(f.stored))
	default:
		return 0
	}
}

// loadStored materializes the container-form payload, reading it from the
// backing file on first use. A backing file whose modification time moved
// since the index was parsed fails with ErrSourceChanged: the stored offsets
// can no longer be trusted.
func (f *RFile) loadStored() ([]byte, error) {
	if f.stored != nil || f.disk == nil {
		return f.stored, nil
	}

	info, err := os.Stat(f.disk.diskPath)
	if err != nil {
		return nil, errors.Wrapf(err, "pack: stat backing file for %s", f.path)
	}
	if !info.ModTime().Equal(f.disk.modTime) {
		return nil, errors.Mark(
			errors.Newf("pack: backing file of %s changed on disk", f.path),
			ErrSourceChanged,
		)
	}

	src, err := os.Open(f.disk.diskPath)
	if err != nil {
		return nil, errors.Wrapf(err, "pack: open backing file for %s", f.path)
	}
	defer src.Close()

	data := make([]byte, f.disk.size)
	if _, err := src.ReadAt(data, f.disk.offset); err != nil {
		return nil, errors.Wrapf(err, "pack: read payload of %s", f.path)
	}
	f.stored = data
	return data, nil
}

// Data returns the entry's payload bytes in plain form: loaded from the
// backing store if needed, deciphered, then decompressed.
func (f *RFile) Data() ([]byte, error) {
	if f.plain != nil {
		return f.plain, nil
	}

	data, err := f.loadStored()
	if err != nil {
		return nil, err
	}
	if f.encrypted {
		data = cipherData(data)
	}
	if f.compressed {
		plain, format, err := decompress(data)
		if err != nil {
			return nil, errors.Wrapf(err, "pack: entry %s", f.path)
		}
		f.compression = format
		data = plain
	}
	f.plain = data
	return data, nil
}

// SetData replaces the entry's payload with plain bytes, discarding any
// decoded value and the backing-store marker.
func (f *RFile) SetData(data []byte) {
	f.plain = data
	f.stored = nil
	f.disk = nil
	f.content = nil
	f.modified = true
}

// SetContent replaces the entry's decoded value.
func (f *RFile) SetContent(c Content) {
	f.content = c
	f.plain = nil
	f.stored = nil
	f.disk = nil
	f.modified = true
}

// Decode materializes the entry's content value, reading and decoding the
// payload on first call. A failed decode leaves the entry Raw with its
// original bytes intact, so a later save passes the undecodable payload
// through instead of destroying it.
//
// DB entries resolve their table name from the path and need extra to carry
// a schema; the store handle and allow-incomplete flag are honored as in the
// table engine.
func (f *RFile) Decode(extra *codec.ExtraData) (Content, error) {
	if f.content != nil {
		return f.content, nil
	}

	data, err := f.Data()
	if err != nil {
		return nil, err
	}

	var derived codec.ExtraData
	if extra != nil {
		derived = *extra
	}
	derived.FileName = f.path

	r := binary.NewReader(bytes.NewReader(data))
	var content Content
	switch f.contentType {
	case ContentDB:
		derived.TableName = strings.Split(f.path, "/")[1]
		content, err = table.DecodeDB(r, &derived)
	case ContentLoc:
		content, err = table.DecodeLoc(r, &derived)
	case ContentText:
		content, err = DecodeText(r, &derived)
	default:
		content = &Binary{data: data}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "pack: decode %s", f.path)
	}

	f.content = content
	return content, nil
}

// Content returns the decoded value, or nil while the entry is Raw.
func (f *RFile) Content() Content { return f.content }

// encodePlain produces the entry's plain payload bytes for a save:
// re-encoded from the content value when one exists, the raw bytes
// otherwise.
func (f *RFile) encodePlain(extra *codec.ExtraData) ([]byte, error) {
	if f.content == nil {
		return f.Data()
	}
	var buf bytes.Buffer
	if err := f.content.Encode(binary.NewWriter(&buf), extra); err != nil {
		return nil, errors.Wrapf(err, "pack: encode %s", f.path)
	}
	return buf.Bytes(), nil
}
