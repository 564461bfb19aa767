// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Packtool inspects and unpacks Total War pack files from the command line.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suprsokr/go-pack"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "packtool",
		Short:         "Inspect and unpack Total War pack files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	open := func(path string) (*pack.Pack, error) {
		var opts pack.Options
		if verbose {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return nil, err
			}
			opts.Logger = logger
		}
		return pack.Open(path, opts)
	}

	root.AddCommand(newInfoCmd(open))
	root.AddCommand(newListCmd(open))
	root.AddCommand(newExtractCmd(open))
	root.AddCommand(newNotesCmd(open))
	return root
}

type opener func(path string) (*pack.Pack, error)

func newInfoCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "info <pack>",
		Short: "Print header details of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := open(args[0])
			if err != nil {
				return err
			}
			h := p.Header()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version:      %s\n", h.Version)
			fmt.Fprintf(out, "type:         %s\n", h.PackType)
			fmt.Fprintf(out, "flags:        0x%03X\n", uint32(h.Flags))
			fmt.Fprintf(out, "timestamp:    %d\n", h.Timestamp)
			fmt.Fprintf(out, "files:        %d\n", p.Len())
			fmt.Fprintf(out, "payload size: %d\n", p.Size())
			for _, dep := range p.Dependencies() {
				fmt.Fprintf(out, "depends on:   %s\n", dep)
			}
			return nil
		},
	}
}

func newListCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list <pack>",
		Short: "List the entries of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range p.Files() {
				fmt.Fprintf(out, "%10d  %-7s  %s\n", f.DiskSize(), f.ContentType(), f.Path())
			}
			return nil
		},
	}
}

func newExtractCmd(open opener) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "extract <pack> [entry...]",
		Short: "Extract entries to a directory, all of them by default",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := open(args[0])
			if err != nil {
				return err
			}

			paths := args[1:]
			if len(paths) == 0 {
				paths = p.Paths()
			}
			for _, path := range paths {
				f, err := p.File(path)
				if err != nil {
					return err
				}
				data, err := f.Data()
				if err != nil {
					return err
				}

				dst := filepath.Join(outDir, filepath.FromSlash(path))
				if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(dst, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dst)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to extract into")
	return cmd
}

func newNotesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <pack>",
		Short: "Print the pack-author notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := open(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Notes())
			return nil
		},
	}
}
