// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	"github.com/bureau-foundation/classforge/lib/config"
	"github.com/bureau-foundation/classforge/lib/contentid"
	"github.com/bureau-foundation/classforge/lib/manifest"
	"github.com/bureau-foundation/classforge/lib/transform"
	"github.com/bureau-foundation/classforge/lib/version"
)

type batchParams struct {
	cli.ConfigFile
	Output   string `json:"output"   flag:"output,o" desc:"output directory, or .jar/.zip archive (required)"`
	Manifest string `json:"manifest" flag:"manifest" desc:"write a CBOR manifest of every class outcome to this path"`
	Workers  int    `json:"workers"  flag:"workers,j" desc:"classes transformed in parallel (default: number of CPUs)"`
	Strict   bool   `json:"strict"   flag:"strict"   desc:"exit with code 2 if any class kept its previous bytes after a stage failure"`
}

// BatchCommand returns the "batch" command.
func BatchCommand() *cli.Command {
	var params batchParams

	return &cli.Command{
		Name:    "batch",
		Summary: "Transform every class in a directory or jar",
		Description: `Transform every class file in a directory or .jar/.zip archive and
write the result as a directory or archive (chosen by the --output
extension). Entries that are not class files are copied unchanged, and
archive entry order, timestamps and compression methods are kept.

Each class is processed under the name a class loader would use: its
path without the .class suffix. That makes obfuscated classes work
without --name.

Key tables are claimed in the order classes finish decoding, so with
more than one worker the table-to-class assignment can differ between
runs. Use --workers 1 when that assignment matters.

With --manifest, one record per class (final state, content key, patch
locator, key table, input and output hashes) is written as a CBOR
sequence for "classforge manifest show".`,
		Usage:  "classforge batch [flags] <input-dir|input.jar> -o <output>",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one input directory or archive, got %d arguments", len(args))
			}
			if params.Output == "" {
				return fmt.Errorf("--output is required")
			}

			cfg, transformer, err := loadPipeline(&params.ConfigFile, logger)
			if err != nil {
				return err
			}

			job := batchJob{
				input:       args[0],
				output:      params.Output,
				workers:     params.Workers,
				transformer: transformer,
				logger:      logger.With("command", "batch", "input", args[0]),
			}
			var summary batchSummary
			if params.Manifest != "" {
				summary, err = job.runWithManifest(ctx, params.Manifest, manifestHeader(cfg, args[0], params.Output))
			} else {
				summary, err = job.run(ctx)
			}
			if err != nil {
				return err
			}
			printSummary(os.Stdout, summary)
			if params.Strict && summary.Stats.Failed > 0 {
				return &cli.ExitError{Code: 2}
			}
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Repack a game jar with the built-in tables",
				Command:     "classforge batch game.jar -o game.patched.jar",
			},
			{
				Description: "Transform an extracted class tree and record outcomes",
				Command:     "classforge batch classes/ -o patched/ --manifest run.cbor",
			},
		},
	}
}

// manifestHeader describes a batch run.
func manifestHeader(cfg *config.Config, input, output string) manifest.Header {
	digest := contentid.SHA3_256
	if identifier, err := cfg.Identifier(); err == nil {
		digest = identifier.Algorithm()
	}
	return manifest.Header{
		Tool:   "classforge " + version.Short(),
		Input:  input,
		Output: output,
		Config: cfg.Source(),
		Digest: digest,
	}
}

// batchJob transforms one tree.
type batchJob struct {
	input, output string
	workers       int
	transformer   *transform.Transformer
	manifest      *manifest.Writer
	logger        *slog.Logger
}

// batchSummary reports what a batch run did.
type batchSummary struct {
	Files   int
	Classes int
	Stats   transform.Stats
}

func (job *batchJob) run(ctx context.Context) (batchSummary, error) {
	if sameLocation(job.input, job.output) {
		return batchSummary{}, fmt.Errorf("output %s is the input", job.output)
	}

	files, err := readTree(job.input)
	if err != nil {
		return batchSummary{}, err
	}

	workers := job.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	summary := batchSummary{Files: len(files)}
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for index := range files {
		if !files[index].isClass() {
			continue
		}
		summary.Classes++
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			return job.process(&files[index])
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}

	if err := writeTree(job.output, files); err != nil {
		return summary, fmt.Errorf("writing %s: %w", job.output, err)
	}

	summary.Stats = job.transformer.Stats()
	job.logger.Info("batch complete",
		"output", job.output,
		"files", summary.Files,
		"classes", summary.Classes,
		"patched", summary.Stats.Patched,
		"remapped", summary.Stats.Remapped,
		"decrypted", summary.Stats.Decrypted,
		"failed", summary.Stats.Failed,
	)
	return summary, nil
}

// runWithManifest runs the job while recording every class in a
// manifest at path. A failed run leaves no manifest behind.
func (job *batchJob) runWithManifest(ctx context.Context, path string, header manifest.Header) (batchSummary, error) {
	file, err := os.Create(path)
	if err != nil {
		return batchSummary{}, fmt.Errorf("creating manifest: %w", err)
	}
	job.manifest, err = manifest.NewWriter(file, header)
	if err != nil {
		file.Close()
		os.Remove(path)
		return batchSummary{}, err
	}

	summary, err := job.run(ctx)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing manifest %s: %w", path, closeErr)
	}
	if err != nil {
		os.Remove(path)
		return summary, err
	}
	return summary, nil
}

// process transforms one class in place in its treeFile.
func (job *batchJob) process(file *treeFile) error {
	input := file.data
	module := file.module()
	result := job.transformer.Process(module, input)
	file.data = result.Data
	if job.manifest != nil {
		return job.manifest.Write(manifest.NewEntry(file.path, module, input, result))
	}
	return nil
}

// sameLocation reports whether two paths name the same file or
// directory.
func sameLocation(a, b string) bool {
	absoluteA, errA := filepath.Abs(a)
	absoluteB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absoluteA == absoluteB
}

func printSummary(w io.Writer, summary batchSummary) {
	stats := summary.Stats
	fmt.Fprintf(w, "%d files, %d classes: %d patched, %d remapped, %d decrypted, %d passed through, %d failed\n",
		summary.Files, summary.Classes, stats.Patched, stats.Remapped, stats.Decrypted, stats.Passthrough, stats.Failed)
	if stats.PatchMissing > 0 {
		fmt.Fprintf(w, "%d catalog matches had no patch resource\n", stats.PatchMissing)
	}
}
