// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	"github.com/bureau-foundation/classforge/lib/classfile"
	"github.com/bureau-foundation/classforge/lib/transform"
)

type transformParams struct {
	cli.ConfigFile
	Name   string `json:"name"   flag:"name"     desc:"internal class name, e.g. com/maddox/rts/RTS (default: read from the class file)"`
	Output string `json:"output" flag:"output,o" desc:"write the result to this path instead of in place (\"-\" for stdout)"`
	Strict bool   `json:"strict" flag:"strict"   desc:"exit with code 2 if a stage failed and the class kept its previous bytes"`
}

// TransformCommand returns the "transform" command.
func TransformCommand() *cli.Command {
	var params transformParams

	return &cli.Command{
		Name:    "transform",
		Summary: "Run the class pipeline on one class file",
		Description: `Run the class pipeline on one class file: patch lookup, skip check,
key-table decoding or reference remapping, exactly as the loader hook
would for the same class.

With a path argument the file is rewritten in place, and only when the
pipeline changed it. Without one the class is read from stdin and the
result is written to stdout.

The internal class name decides the namespace filter and the skip list.
It is read from the class file; obfuscated classes cannot be parsed
before decoding, so pass --name for those.`,
		Usage:  "classforge transform [flags] [class-file]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most one class file, got %d arguments", len(args))
			}
			inputPath := ""
			if len(args) == 1 {
				inputPath = args[0]
			}

			_, transformer, err := loadPipeline(&params.ConfigFile, logger)
			if err != nil {
				return err
			}

			result, err := transformFile(transformer, inputPath, params.Output, params.Name, os.Stdin, os.Stdout)
			if err != nil {
				return err
			}
			logger.Info("class transformed",
				"final", result.Final().String(),
				"key", result.Key,
				"key_table", result.KeyTable,
			)
			if params.Strict && result.Err != nil {
				return &cli.ExitError{Code: 2}
			}
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Patch and remap a class file in place",
				Command:     "classforge transform com/maddox/rts/RTS.class",
			},
			{
				Description: "Filter a class through the pipeline",
				Command:     "classforge transform < RTS.class > RTS.out.class",
			},
			{
				Description: "Decode an obfuscated class with a custom config",
				Command:     "classforge transform --config tables.yaml --name com/maddox/il2/game/Main Main.class -o Main.decoded.class",
			},
		},
	}
}

// transformFile runs one class through transformer. An empty inputPath
// reads stdin. An empty outputPath rewrites inputPath in place, or
// writes stdout when reading stdin; "-" always writes stdout.
func transformFile(transformer *transform.Transformer, inputPath, outputPath, name string, stdin io.Reader, stdout io.Writer) (transform.Result, error) {
	var data []byte
	var err error
	mode := os.FileMode(0o644)
	if inputPath == "" {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return transform.Result{}, fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		info, err := os.Stat(inputPath)
		if err != nil {
			return transform.Result{}, err
		}
		mode = info.Mode().Perm()
		data, err = os.ReadFile(inputPath)
		if err != nil {
			return transform.Result{}, err
		}
	}

	module, err := moduleName(name, data)
	if err != nil {
		return transform.Result{}, err
	}
	result := transformer.Process(module, data)

	switch {
	case outputPath == "-" || (outputPath == "" && inputPath == ""):
		if _, err := stdout.Write(result.Data); err != nil {
			return result, fmt.Errorf("writing stdout: %w", err)
		}
	case outputPath != "":
		if err := writeFileAtomic(outputPath, result.Data, mode); err != nil {
			return result, err
		}
	case result.Changed(data):
		if err := writeFileAtomic(inputPath, result.Data, mode); err != nil {
			return result, err
		}
	}
	return result, nil
}

// moduleName returns override, or the class name read from data.
func moduleName(override string, data []byte) (string, error) {
	if override != "" {
		return override, nil
	}
	name, err := classfile.PeekName(data)
	if err != nil {
		return "", fmt.Errorf("reading class name (pass --name for obfuscated classes): %w", err)
	}
	return name, nil
}
