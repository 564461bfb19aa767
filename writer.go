// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
)

// Save serializes the pack to path, or back over its source when path is
// empty. The pack is written to a temporary file in the target directory and
// renamed into place, so a failed save never truncates an existing pack.
func (p *Pack) Save(path string, extra *codec.ExtraData) error {
	if path == "" {
		path = p.path
	}
	if path == "" {
		return errors.New("pack: no path to save to")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pack-*")
	if err != nil {
		return errors.Wrap(err, "pack: create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := p.Encode(tmp, extra); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "pack: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "pack: rename into place")
	}

	p.path = path
	p.logger.Info("saved pack",
		zap.String("path", path),
		zap.Stringer("version", p.header.Version),
		zap.Int("files", len(p.files)))
	return nil
}

// Encode serializes the pack to w.
//
// Entries still Raw are copied through byte-for-byte; decoded and modified
// entries are re-encoded, compressed when marked and the format supports it,
// and ciphered when the header flags payload encryption. The index is
// written sorted case-insensitively by path, the order the games expect.
func (p *Pack) Encode(w io.Writer, extra *codec.ExtraData) error {
	h := &p.header

	entries := make([]*RFile, 0, len(p.files)+1)
	for _, f := range p.files {
		entries = append(entries, f)
	}
	if p.notes != "" {
		entries = append(entries, NewRFile(reservedNotesName, []byte(p.notes)))
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].path) < strings.ToLower(entries[j].path)
	})

	payloads := make([][]byte, len(entries))
	for i, f := range entries {
		payload, err := p.containerPayload(f, extra)
		if err != nil {
			return err
		}
		payloads[i] = payload
	}

	fileIndex, err := p.encodeFileIndex(entries, payloads)
	if err != nil {
		return err
	}
	depIndex, err := p.encodeDependencyIndex()
	if err != nil {
		return err
	}

	var refreshed int64
	if p.opts.RefreshTimestamp {
		refreshed = time.Now().Unix()
	}
	header, err := p.encodeHeader(uint32(len(entries)), uint32(len(fileIndex)), uint32(len(depIndex)), refreshed)
	if err != nil {
		return err
	}

	for _, chunk := range [][]byte{header, depIndex, fileIndex} {
		if _, err := w.Write(chunk); err != nil {
			return errors.Wrap(err, "pack: write")
		}
	}

	// Arena payload alignment mirrors the read side.
	pad := h.isArena() && h.Flags.Has(FlagDataEncrypted)
	offset := int64(len(header) + len(depIndex) + len(fileIndex))
	for _, payload := range payloads {
		if pad {
			if aligned := align8(offset); aligned > offset {
				if _, err := w.Write(make([]byte, aligned-offset)); err != nil {
					return errors.Wrap(err, "pack: write padding")
				}
				offset = aligned
			}
		}
		if _, err := w.Write(payload); err != nil {
			return errors.Wrap(err, "pack: write payload")
		}
		offset += int64(len(payload))
	}
	return nil
}

// containerPayload produces an entry's bytes as they land in the container.
// Raw entries pass their stored bytes through untouched; everything else is
// re-encoded and re-processed under the current header flags.
func (p *Pack) containerPayload(f *RFile, extra *codec.ExtraData) ([]byte, error) {
	h := &p.header

	if f.State() == StateRaw {
		return f.loadStored()
	}

	data, err := f.encodePlain(extra)
	if err != nil {
		return nil, err
	}

	if f.compressed && h.entryCompressionByte() {
		if data, err = compress(data, f.compression); err != nil {
			return nil, errors.Wrapf(err, "pack: compress %s", f.path)
		}
	} else {
		f.compressed = false
	}
	if h.Flags.Has(FlagDataEncrypted) {
		data = cipherData(data)
	}
	return data, nil
}

// encodeFileIndex serializes the per-entry index records. Cipher keys count
// entries after the current one, matching the read side.
func (p *Pack) encodeFileIndex(entries []*RFile, payloads [][]byte) ([]byte, error) {
	h := &p.header
	ciphered := h.Flags.Has(FlagIndexEncrypted)

	var buf bytes.Buffer
	w := binary.NewWriter(&buf)
	for i, f := range entries {
		entriesAfter := uint32(len(entries) - 1 - i)

		size := uint32(len(payloads[i]))
		if ciphered {
			size = cipherIndexU32(size, entriesAfter)
		}
		if err := w.U32(size); err != nil {
			return nil, err
		}

		if h.Flags.Has(FlagIndexTimestamps) {
			if h.entryTimestampWide() {
				if err := w.I64((f.timestamp + secToUnixEpoch) * windowsTick); err != nil {
					return nil, err
				}
			} else {
				ts := uint32(f.timestamp)
				if ciphered {
					ts = cipherIndexU32(ts, entriesAfter)
				}
				if err := w.U32(ts); err != nil {
					return nil, err
				}
			}
		}

		if h.entryCompressionByte() {
			if err := w.Bool(f.compressed); err != nil {
				return nil, err
			}
		}

		path := strings.ReplaceAll(f.path, "/", "\\")
		if ciphered {
			if err := w.Bytes(encryptIndexPath(path, byte(len(payloads[i])))); err != nil {
				return nil, err
			}
		} else if err := w.StringU8ZeroTerminated(path); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (p *Pack) encodeDependencyIndex() ([]byte, error) {
	var buf bytes.Buffer
	w := binary.NewWriter(&buf)
	for _, dep := range p.dependencies {
		if err := w.StringU8ZeroTerminated(dep); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (p *Pack) encodeHeader(fileCount, fileIndexSize, depIndexSize uint32, refreshed int64) ([]byte, error) {
	h := &p.header

	writeTail, err := headerRegistry.Encoder(uint32(h.Version))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := binary.NewWriter(&buf)
	if err := w.StringU8(h.Version.String()); err != nil {
		return nil, err
	}
	if err := w.U32(uint32(h.PackType) | uint32(h.Flags)); err != nil {
		return nil, err
	}
	if err := w.U32(uint32(len(p.dependencies))); err != nil {
		return nil, err
	}
	if err := w.U32(depIndexSize); err != nil {
		return nil, err
	}
	if err := w.U32(fileCount); err != nil {
		return nil, err
	}
	if err := w.U32(fileIndexSize); err != nil {
		return nil, err
	}
	if err := writeTail(h, w, refreshed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
