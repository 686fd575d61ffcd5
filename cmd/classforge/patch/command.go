// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package patch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	"github.com/bureau-foundation/classforge/lib/bsdiff"
	"github.com/bureau-foundation/classforge/lib/contentid"
)

// Command returns the "patch" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "patch",
		Summary: "Create, apply, and describe class patches",
		Description: `Work with the BSDIFF40 patches the catalog points at.

A patch replaces one exact class version with another. The catalog key
of the original (see "classforge digest") selects the patch at load
time, so "create" prints that key alongside the new patch.`,
		Subcommands: []*cli.Command{
			createCommand(),
			applyCommand(),
			infoCommand(),
		},
	}
}

type createParams struct {
	Output      string `json:"output"      flag:"output,o"    desc:"patch file to write (required)"`
	Compression string `json:"compression" flag:"compression" desc:"block codec: gzip, zstd or lz4" default:"gzip"`
	Algorithm   string `json:"algorithm"   flag:"algorithm,a" desc:"digest algorithm of the printed catalog key" default:"sha3-256"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create a patch from an original class to a target class",
		Usage:   "classforge patch create [flags] <original> <target> -o <patch>",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("expected an original and a target file, got %d arguments", len(args))
			}
			if params.Output == "" {
				return fmt.Errorf("--output is required")
			}
			compression, err := bsdiff.ParseCompression(params.Compression)
			if err != nil {
				return err
			}
			identifier, err := contentid.New(contentid.Algorithm(params.Algorithm))
			if err != nil {
				return err
			}

			key, size, err := createPatch(args[0], args[1], params.Output, compression, identifier)
			if err != nil {
				return err
			}
			logger.Info("patch created",
				"output", params.Output,
				"compression", compression.String(),
				"size", size,
			)
			fmt.Printf("%s\t%s\n", key, params.Output)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Create a patch and print the catalog key for it",
				Command:     "classforge patch create RTS.class RTS.fixed.class -o patches/RTS.patch",
			},
		},
	}
}

// createPatch writes the patch from originalPath to targetPath and
// returns the catalog key of the original and the patch size.
func createPatch(originalPath, targetPath, outputPath string, compression bsdiff.Compression, identifier *contentid.Identifier) (contentid.Key, int, error) {
	original, err := os.ReadFile(originalPath)
	if err != nil {
		return "", 0, err
	}
	target, err := os.ReadFile(targetPath)
	if err != nil {
		return "", 0, err
	}
	patch, err := bsdiff.Encode(original, target, compression)
	if err != nil {
		return "", 0, fmt.Errorf("encoding patch: %w", err)
	}
	if err := os.WriteFile(outputPath, patch, 0o644); err != nil {
		return "", 0, err
	}
	return identifier.Key(original), len(patch), nil
}

type applyParams struct {
	Output string `json:"output" flag:"output,o" desc:"file to write the patched class to (default: stdout)"`
}

func applyCommand() *cli.Command {
	var params applyParams

	return &cli.Command{
		Name:    "apply",
		Summary: "Apply a patch to an original class",
		Usage:   "classforge patch apply [flags] <original> <patch>",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("expected an original and a patch file, got %d arguments", len(args))
			}
			patched, err := applyPatch(args[0], args[1])
			if err != nil {
				return err
			}
			if params.Output == "" || params.Output == "-" {
				_, err = os.Stdout.Write(patched)
				return err
			}
			return os.WriteFile(params.Output, patched, 0o644)
		},
	}
}

func applyPatch(originalPath, patchPath string) ([]byte, error) {
	original, err := os.ReadFile(originalPath)
	if err != nil {
		return nil, err
	}
	patch, err := os.ReadFile(patchPath)
	if err != nil {
		return nil, err
	}
	patched, err := bsdiff.Apply(original, patch)
	if err != nil {
		return nil, fmt.Errorf("applying %s: %w", patchPath, err)
	}
	return patched, nil
}

type infoParams struct {
	cli.JSONOutput
}

// patchInfo describes one patch file.
type patchInfo struct {
	Path          string `json:"path"`
	Size          int    `json:"size"`
	OutputLength  int64  `json:"output_length"`
	ControlLength int64  `json:"control_length"`
	DiffLength    int64  `json:"diff_length"`
	ExtraLength   int64  `json:"extra_length"`
	Compression   string `json:"compression"`
}

func infoCommand() *cli.Command {
	var params infoParams

	return &cli.Command{
		Name:    "info",
		Summary: "Describe the header and block codec of patches",
		Usage:   "classforge patch info [flags] <patch>...",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) == 0 {
				return fmt.Errorf("expected at least one patch file")
			}
			infos := make([]patchInfo, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				info, err := describePatch(path, data)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}
			if done, err := params.EmitJSON(os.Stdout, infos); done {
				return err
			}
			writeInfo(os.Stdout, infos)
			return nil
		},
	}
}

func describePatch(path string, data []byte) (patchInfo, error) {
	header, err := bsdiff.ParseHeader(data)
	if err != nil {
		return patchInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	control := data[bsdiff.HeaderSize : bsdiff.HeaderSize+header.ControlLength]
	compression, err := bsdiff.DetectCompression(control)
	if err != nil {
		return patchInfo{}, fmt.Errorf("%s: control block: %w", path, err)
	}
	return patchInfo{
		Path:          path,
		Size:          len(data),
		OutputLength:  header.OutputLength,
		ControlLength: header.ControlLength,
		DiffLength:    header.DiffLength,
		ExtraLength:   int64(len(data)) - bsdiff.HeaderSize - header.ControlLength - header.DiffLength,
		Compression:   compression.String(),
	}, nil
}

func writeInfo(w io.Writer, infos []patchInfo) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATCH\tSIZE\tOUTPUT\tCONTROL\tDIFF\tEXTRA\tCODEC")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			info.Path, info.Size, info.OutputLength, info.ControlLength, info.DiffLength, info.ExtraLength, info.Compression)
	}
	tw.Flush()
}
