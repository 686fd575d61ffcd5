// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	"github.com/bureau-foundation/classforge/lib/manifest"
	"github.com/bureau-foundation/classforge/lib/transform"
)

// ManifestCommand returns the "manifest" command group.
func ManifestCommand() *cli.Command {
	return &cli.Command{
		Name:    "manifest",
		Summary: "Read batch manifests",
		Subcommands: []*cli.Command{
			manifestShowCommand(),
		},
	}
}

type manifestShowParams struct {
	cli.JSONOutput
	Failures bool `json:"failures" flag:"failures" desc:"list only classes whose pipeline stage failed"`
}

func manifestShowCommand() *cli.Command {
	var params manifestShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print the outcome of every class in a batch manifest",
		Description: `Print the header, per-state counts, run hash and per-class outcomes of
a manifest written by "classforge batch --manifest".

The run hash covers every class path and output hash, independent of
the order workers finished in: two runs with the same input and
configuration produce the same run hash.`,
		Usage:  "classforge manifest show [flags] <manifest.cbor>",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one manifest file, got %d arguments", len(args))
			}
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			loaded, err := manifest.Read(file)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			report := newManifestReport(loaded, params.Failures)
			if done, err := params.EmitJSON(os.Stdout, report); done {
				return err
			}
			report.writeText(os.Stdout)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Summarize a batch run",
				Command:     "classforge manifest show run.cbor",
			},
			{
				Description: "List classes that fell back to their previous bytes",
				Command:     "classforge manifest show --failures run.cbor",
			},
		},
	}
}

// manifestReport is the printable form of a manifest.
type manifestReport struct {
	Header  manifest.Header         `json:"header"`
	RunHash string                  `json:"run_hash"`
	Counts  map[transform.State]int `json:"counts"`
	Entries []manifestReportEntry   `json:"entries"`
}

type manifestReportEntry struct {
	Path       string          `json:"path"`
	Module     string          `json:"module"`
	Final      transform.State `json:"final"`
	Key        string          `json:"key,omitempty"`
	Locator    string          `json:"locator,omitempty"`
	KeyTable   int             `json:"key_table"`
	InputHash  string          `json:"input_hash"`
	OutputHash string          `json:"output_hash"`
	InputSize  int             `json:"input_size"`
	OutputSize int             `json:"output_size"`
	Error      string          `json:"error,omitempty"`
}

func newManifestReport(loaded *manifest.Manifest, failuresOnly bool) manifestReport {
	entries := loaded.Sorted()
	if failuresOnly {
		entries = loaded.Failures()
	}

	report := manifestReport{
		Header:  loaded.Header,
		RunHash: loaded.RunHash().String(),
		Counts:  loaded.Counts(),
		Entries: make([]manifestReportEntry, 0, len(entries)),
	}
	for _, entry := range entries {
		report.Entries = append(report.Entries, manifestReportEntry{
			Path:       entry.Path,
			Module:     entry.Module,
			Final:      entry.Final,
			Key:        string(entry.Key),
			Locator:    entry.Locator,
			KeyTable:   entry.KeyTable,
			InputHash:  entry.InputHash.String(),
			OutputHash: entry.OutputHash.String(),
			InputSize:  entry.InputSize,
			OutputSize: entry.OutputSize,
			Error:      entry.Error,
		})
	}
	return report
}

func (r manifestReport) writeText(w io.Writer) {
	header := r.Header
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "tool\t%s\n", header.Tool)
	fmt.Fprintf(tw, "input\t%s\n", header.Input)
	fmt.Fprintf(tw, "output\t%s\n", header.Output)
	if header.Config != "" {
		fmt.Fprintf(tw, "config\t%s\n", header.Config)
	}
	fmt.Fprintf(tw, "digest\t%s\n", header.Digest)
	fmt.Fprintf(tw, "run hash\t%s\n", r.RunHash)
	tw.Flush()

	states := make([]transform.State, 0, len(r.Counts))
	for state := range r.Counts {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	for _, state := range states {
		fmt.Fprintf(tw, "%s\t%d\n", state, r.Counts[state])
	}
	tw.Flush()

	if len(r.Entries) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tFINAL\tDETAIL")
	for _, entry := range r.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Path, entry.Final, entry.detail())
	}
	tw.Flush()
}

// detail summarizes what happened to the class beyond its final state.
func (e manifestReportEntry) detail() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.KeyTable >= 0:
		return fmt.Sprintf("key table %d", e.KeyTable)
	case e.Locator != "":
		return e.Locator
	default:
		return ""
	}
}
