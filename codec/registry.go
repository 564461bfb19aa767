// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package codec

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Registry maps format versions to their reader and writer functions for one
// named format, so version dispatch lives in one place instead of being
// restated by every record type.
//
// D and E are the concrete function types the format uses. Registration
// happens at package init time; a Registry is read-only afterwards and safe
// for concurrent use.
type Registry[D, E any] struct {
	kind     string
	decoders map[uint32]D
	encoders map[uint32]E
}

// NewRegistry returns an empty registry for the named format. The name
// prefixes dispatch errors, e.g. "pack header" or "loc table".
func NewRegistry[D, E any](kind string) *Registry[D, E] {
	return &Registry[D, E]{
		kind:     kind,
		decoders: make(map[uint32]D),
		encoders: make(map[uint32]E),
	}
}

// Register binds a version to its reader and writer. Registering the same
// version twice panics: versions are fixed protocol facts and a collision is
// a programming error.
func (r *Registry[D, E]) Register(version uint32, decoder D, encoder E) {
	if _, ok := r.decoders[version]; ok {
		panic(errors.AssertionFailedf("%s: version %d registered twice", r.kind, version))
	}
	r.decoders[version] = decoder
	r.encoders[version] = encoder
}

// Decoder returns the reader registered for version.
func (r *Registry[D, E]) Decoder(version uint32) (D, error) {
	decoder, ok := r.decoders[version]
	if !ok {
		var zero D
		return zero, r.unsupported(version)
	}
	return decoder, nil
}

// Encoder returns the writer registered for version.
func (r *Registry[D, E]) Encoder(version uint32) (E, error) {
	encoder, ok := r.encoders[version]
	if !ok {
		var zero E
		return zero, r.unsupported(version)
	}
	return encoder, nil
}

// Versions returns the registered versions in ascending order.
func (r *Registry[D, E]) Versions() []uint32 {
	versions := make([]uint32, 0, len(r.decoders))
	for v := range r.decoders {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions
}

func (r *Registry[D, E]) unsupported(version uint32) error {
	return errors.Mark(
		errors.Newf("%s: unsupported version %d", r.kind, version),
		ErrUnsupportedVersion,
	)
}
