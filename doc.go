// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package pack reads and writes Total War pack files, the archive container
// the games load all of their data from.
//
// # Features
//
//   - All container versions, PFH0 through PFH6, including the Arena layout
//   - Lazy loading: opening a pack reads only the header and indexes, and
//     payloads stay on disk until an entry is used
//   - Legacy index and payload ciphers
//   - Per-entry LZMA1, LZ4, and Zstandard compression
//   - Schema-driven decoding of db tables and localisation files, plus
//     plain-text entries, through the table subpackage
//   - Merging a load order of packs into one view, later packs shadowing
//     earlier ones
//
// # Usage
//
//	p, err := pack.Open("my_mod.pack", pack.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	f, err := p.File("db/land_units_tables/data__")
//	if err != nil {
//		log.Fatal(err)
//	}
//	content, err := f.Decode(&codec.ExtraData{Schema: s})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Entries keep their exact container bytes until decoded; a pack opened and
// saved again without modification round-trips byte-for-byte. An entry whose
// payload cannot be decoded stays raw and is copied through on save instead
// of being lost.
package pack
