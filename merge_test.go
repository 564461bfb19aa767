// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package pack

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadAndMerge(t *testing.T) {
	dir := t.TempDir()

	base := New(PFH5)
	base.Insert(textEntry("a.txt", "base a"))
	base.Insert(textEntry("b.txt", "base b"))
	base.SetNotes("base notes")
	basePath := filepath.Join(dir, "base.pack")
	require.NoError(t, base.Save(basePath, nil))

	patch := New(PFH5)
	patch.Insert(textEntry("b.txt", "patched b"))
	patch.Insert(textEntry("c.txt", "patch c"))
	patchPath := filepath.Join(dir, "patch.pack")
	require.NoError(t, patch.Save(patchPath, nil))

	merged, err := ReadAndMerge([]string{basePath, patchPath}, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, merged.Paths())
	require.Equal(t, "base notes", merged.Notes())
	require.Equal(t, PFH5, merged.Header().Version)

	read := func(path string) string {
		f, err := merged.File(path)
		require.NoError(t, err)
		data, err := f.Data()
		require.NoError(t, err)
		return string(data)
	}
	require.Equal(t, "base a", read("a.txt"))
	require.Equal(t, "patched b", read("b.txt"))
	require.Equal(t, "patch c", read("c.txt"))
}

func TestReadAndMergeErrors(t *testing.T) {
	t.Run("empty load order", func(t *testing.T) {
		_, err := ReadAndMerge(nil, Options{})
		require.Error(t, err)
	})

	t.Run("missing pack", func(t *testing.T) {
		dir := t.TempDir()
		base := New(PFH5)
		base.Insert(textEntry("a.txt", "base a"))
		basePath := filepath.Join(dir, "base.pack")
		require.NoError(t, base.Save(basePath, nil))

		_, err := ReadAndMerge([]string{basePath, filepath.Join(dir, "gone.pack")}, Options{})
		require.Error(t, err)
	})
}
