// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/suprsokr/go-pack/binary"
	"github.com/suprsokr/go-pack/codec"
)

// Sentinel errors. Wrapped causes are marked with these; test with errors.Is.
var (
	// ErrMalformedHeader means the header or index contradicts itself or the
	// file size. Nothing past a malformed header can be trusted, so parsing
	// stops instead of salvaging entries.
	ErrMalformedHeader = errors.New("pack: malformed header")

	// ErrFileNotFound means the pack holds no entry under the given path.
	ErrFileNotFound = errors.New("pack: file not found")

	// ErrSourceChanged means a lazily-loaded entry's backing file was
	// modified after the index was parsed, so its stored offsets are stale.
	ErrSourceChanged = errors.New("pack: backing file changed")
)

// Options configures Open. The zero value is the safe default: lazy loading
// on, stored timestamps kept, no logging.
type Options struct {
	// Logger receives debug output. Nil means no logging.
	Logger *zap.Logger

	// DisableLazyLoading reads every payload into memory during Open,
	// instead of leaving entries pointing at the file on disk.
	DisableLazyLoading bool

	// RefreshTimestamp stamps the current time into the header on save
	// instead of keeping the stored one.
	RefreshTimestamp bool
}

// Pack is a decoded pack file: a header plus a set of named entries.
// It is not safe for concurrent use.
type Pack struct {
	path         string
	header       Header
	dependencies []string
	files        map[string]*RFile
	notes        string

	logger *zap.Logger
	opts   Options
}

// New returns an empty in-memory pack of the given format version, typed as
// a mod pack.
func New(version Version) *Pack {
	return &Pack{
		header: Header{Version: version, PackType: TypeMod},
		files:  make(map[string]*RFile),
		logger: zap.NewNop(),
	}
}

// Open parses the pack file at path. Only the header and indexes are read;
// payloads stay on disk until an entry is used, unless
// Options.DisableLazyLoading is set.
func Open(path string, opts Options) (*Pack, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	src, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "pack: open")
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "pack: stat")
	}

	p := &Pack{
		path:   path,
		files:  make(map[string]*RFile),
		logger: logger,
		opts:   opts,
	}

	r := binary.NewReader(src)
	if err := p.readHeader(r, info.Size(), info.ModTime()); err != nil {
		return nil, err
	}

	if notes, ok := p.files[reservedNotesName]; ok {
		data, err := notes.Data()
		if err != nil {
			return nil, err
		}
		p.notes = string(data)
		delete(p.files, reservedNotesName)
	}

	if opts.DisableLazyLoading {
		for _, f := range p.files {
			if _, err := f.loadStored(); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug("opened pack",
		zap.String("path", path),
		zap.Stringer("version", p.header.Version),
		zap.Stringer("type", p.header.PackType),
		zap.Int("files", len(p.files)))
	return p, nil
}

// readHeader parses the header and both indexes, populating the entry set
// with lazy markers into the backing file.
func (p *Pack) readHeader(r *binary.Reader, fileSize int64, modTime time.Time) error {
	if fileSize < minHeaderSize {
		return errors.Mark(
			errors.Newf("pack: file is %d bytes, header needs %d", fileSize, minHeaderSize),
			ErrMalformedHeader,
		)
	}

	preamble, err := r.StringU8(4)
	if err != nil {
		return err
	}
	// Steam sometimes wraps a pack in a fake 8-byte preamble.
	if strings.HasPrefix(preamble, mfhPreamble) {
		if err := r.SeekTo(8); err != nil {
			return err
		}
		if preamble, err = r.StringU8(4); err != nil {
			return err
		}
	}

	version, err := parseVersion(preamble)
	if err != nil {
		return err
	}

	typeWord, err := r.U32()
	if err != nil {
		return err
	}
	h := &p.header
	h.Version = version
	h.PackType = PackType(typeWord & packTypeMask)
	h.Flags = Flags(typeWord &^ packTypeMask)

	var depCount, depIndexSize, fileCount, fileIndexSize uint32
	if depCount, err = r.U32(); err != nil {
		return err
	}
	if depIndexSize, err = r.U32(); err != nil {
		return err
	}
	if fileCount, err = r.U32(); err != nil {
		return err
	}
	if fileIndexSize, err = r.U32(); err != nil {
		return err
	}

	readTail, err := headerRegistry.Decoder(uint32(version))
	if err != nil {
		return err
	}
	if err := readTail(h, r); err != nil {
		return err
	}

	headerEnd, err := r.Pos()
	if err != nil {
		return err
	}
	if headerEnd+int64(depIndexSize)+int64(fileIndexSize) > fileSize {
		return errors.Mark(
			errors.Newf("pack: indexes of %d bytes do not fit in a %d byte file",
				depIndexSize+fileIndexSize, fileSize),
			ErrMalformedHeader,
		)
	}

	p.dependencies = make([]string, 0, depCount)
	for i := uint32(0); i < depCount; i++ {
		dep, err := r.StringU8ZeroTerminated()
		if err != nil {
			return errors.Wrap(err, "pack: dependency index")
		}
		p.dependencies = append(p.dependencies, dep)
	}

	// The payload start is fixed by the declared index sizes, not by how many
	// bytes the entries happened to consume; an index may carry trailing pad
	// bytes. Overrunning a declared size is malformed.
	depEnd := headerEnd + int64(depIndexSize)
	if err := p.checkIndexEnd(r, depEnd, "dependency"); err != nil {
		return err
	}

	entries, err := p.readFileIndex(r, fileCount)
	if err != nil {
		return err
	}

	dataStart := depEnd + int64(fileIndexSize)
	if err := p.checkIndexEnd(r, dataStart, "file"); err != nil {
		return err
	}
	return p.placeEntries(entries, dataStart, fileSize, modTime)
}

// checkIndexEnd fails when index parsing consumed more bytes than the header
// declared for it, then positions the cursor at the declared end.
func (p *Pack) checkIndexEnd(r *binary.Reader, end int64, kind string) error {
	pos, err := r.Pos()
	if err != nil {
		return err
	}
	if pos > end {
		return errors.Mark(
			errors.Newf("pack: %s index consumed %d bytes past its declared size", kind, pos-end),
			ErrMalformedHeader,
		)
	}
	return r.SeekTo(end)
}

// readFileIndex parses the per-entry index records in stored order. Entry
// cipher keys count the entries after the current one, so the first entry of
// an encrypted index uses the largest key.
func (p *Pack) readFileIndex(r *binary.Reader, fileCount uint32) ([]*RFile, error) {
	h := &p.header
	ciphered := h.Flags.Has(FlagIndexEncrypted)

	entries := make([]*RFile, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		entriesAfter := fileCount - 1 - i

		size, err := r.U32()
		if err != nil {
			return nil, errors.Wrap(err, "pack: file index")
		}
		if ciphered {
			size = cipherIndexU32(size, entriesAfter)
		}

		var timestamp int64
		if h.Flags.Has(FlagIndexTimestamps) {
			if h.entryTimestampWide() {
				ticks, err := r.I64()
				if err != nil {
					return nil, errors.Wrap(err, "pack: file index")
				}
				timestamp = ticks/windowsTick - secToUnixEpoch
			} else {
				ts, err := r.U32()
				if err != nil {
					return nil, errors.Wrap(err, "pack: file index")
				}
				if ciphered {
					ts = cipherIndexU32(ts, entriesAfter)
				}
				timestamp = int64(ts)
			}
		}

		var compressed bool
		if h.entryCompressionByte() {
			if compressed, err = r.Bool(); err != nil {
				return nil, errors.Wrap(err, "pack: file index")
			}
		}

		var path string
		if ciphered {
			path, err = decryptIndexPath(r, byte(size))
		} else {
			path, err = r.StringU8ZeroTerminated()
		}
		if err != nil {
			return nil, errors.Wrap(err, "pack: file index")
		}
		path = strings.ReplaceAll(path, "\\", "/")

		f := &RFile{
			path:        path,
			timestamp:   timestamp,
			contentType: detectContentType(path),
			compressed:  compressed,
			encrypted:   h.Flags.Has(FlagDataEncrypted),
			disk:        &onDisk{diskPath: p.path, size: size},
		}
		entries = append(entries, f)
	}
	return entries, nil
}

// placeEntries assigns payload offsets in index order and checks they add up
// to the real file size. Arena packs align the data start and every
// encrypted payload to 8 bytes and may carry up to 256 bytes of trailing
// slack.
func (p *Pack) placeEntries(entries []*RFile, dataStart, fileSize int64, modTime time.Time) error {
	arena := p.header.isArena()
	encrypted := p.header.Flags.Has(FlagDataEncrypted)

	offset := dataStart
	if arena && encrypted {
		offset = align8(offset)
	}
	for _, f := range entries {
		if arena && encrypted {
			offset = align8(offset)
		}
		f.disk.diskPath = p.path
		f.disk.offset = offset
		f.disk.modTime = modTime
		offset += int64(f.disk.size)

		if prev, ok := p.files[f.path]; ok {
			p.logger.Warn("duplicate entry path, keeping the later one",
				zap.String("path", f.path),
				zap.Uint32("dropped_size", prev.disk.size))
		}
		p.files[f.path] = f
	}

	slack := fileSize - offset
	maxSlack := int64(0)
	if arena {
		maxSlack = arenaTrailingSlack
	}
	if slack < 0 || slack > maxSlack {
		return errors.Mark(
			errors.Newf("pack: index declares %d payload bytes, file has %d after the indexes",
				offset-dataStart, fileSize-dataStart),
			codec.ErrSizeMismatch,
		)
	}
	return nil
}

func align8(v int64) int64 { return (v + 7) &^ 7 }

// Path returns the disk path the pack was opened from, empty for new packs.
func (p *Pack) Path() string { return p.path }

// Header returns the mutable pack header.
func (p *Pack) Header() *Header { return &p.header }

// Notes returns the pack-author notes.
func (p *Pack) Notes() string { return p.notes }

// SetNotes replaces the pack-author notes. They are stored as a reserved
// entry in the container, invisible in the entry set.
func (p *Pack) SetNotes(notes string) { p.notes = notes }

// Dependencies returns the packs this one declares it loads after.
func (p *Pack) Dependencies() []string { return p.dependencies }

// SetDependencies replaces the dependency list.
func (p *Pack) SetDependencies(deps []string) { p.dependencies = deps }

// Len returns the number of entries.
func (p *Pack) Len() int { return len(p.files) }

// File returns the entry stored under path, failing with an error marked
// ErrFileNotFound when there is none.
func (p *Pack) File(path string) (*RFile, error) {
	f, ok := p.files[path]
	if !ok {
		return nil, errors.Mark(errors.Newf("pack: no entry %s", path), ErrFileNotFound)
	}
	return f, nil
}

// Paths returns every entry path, sorted case-insensitively the way the
// container index orders them.
func (p *Pack) Paths() []string {
	paths := make([]string, 0, len(p.files))
	for path := range p.files {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})
	return paths
}

// Files returns the entries in index order.
func (p *Pack) Files() []*RFile {
	files := make([]*RFile, 0, len(p.files))
	for _, path := range p.Paths() {
		files = append(files, p.files[path])
	}
	return files
}

// Insert adds or replaces an entry under its own path.
func (p *Pack) Insert(f *RFile) {
	if p.files == nil {
		p.files = make(map[string]*RFile)
	}
	p.files[f.path] = f
}

// Remove drops the entry under path, reporting whether one existed.
func (p *Pack) Remove(path string) bool {
	if _, ok := p.files[path]; !ok {
		return false
	}
	delete(p.files, path)
	return true
}

// Size returns the payload bytes the entries declare, before any save-time
// compression or padding.
func (p *Pack) Size() int64 {
	var total int64
	for _, f := range p.files {
		total += int64(f.DiskSize())
	}
	return total
}

// DecodeAll decodes every entry, collecting per-path failures instead of
// stopping at the first one. Entries that fail stay Raw with their bytes
// intact. The returned map is nil when everything decoded.
func (p *Pack) DecodeAll(extra *codec.ExtraData) map[string]error {
	var failures map[string]error
	for _, path := range p.Paths() {
		if _, err := p.files[path].Decode(extra); err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[path] = err
			p.logger.Debug("entry left raw", zap.String("path", path), zap.Error(err))
		}
	}
	return failures
}
