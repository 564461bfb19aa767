// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// ReadAndMerge opens every pack in paths and merges them into a single
// in-memory pack, the way the games layer their load order: paths are given
// lowest priority first, and an entry in a later pack shadows the same path
// in an earlier one.
//
// The merged pack keeps the first pack's header, dependencies, and notes,
// and has no backing path of its own. The packs are opened concurrently.
func ReadAndMerge(paths []string, opts Options) (*Pack, error) {
	if len(paths) == 0 {
		return nil, errors.New("pack: no packs to merge")
	}

	packs := make([]*Pack, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			p, err := Open(path, opts)
			if err != nil {
				return errors.Wrapf(err, "pack: merge source %s", path)
			}
			packs[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Pack{
		header:       packs[0].header,
		dependencies: packs[0].dependencies,
		notes:        packs[0].notes,
		files:        make(map[string]*RFile),
		logger:       packs[0].logger,
		opts:         opts,
	}
	for _, p := range packs {
		for path, f := range p.files {
			merged.files[path] = f
		}
	}
	return merged, nil
}
