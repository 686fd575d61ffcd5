// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	"github.com/bureau-foundation/classforge/lib/bsdiff"
	"github.com/bureau-foundation/classforge/lib/catalog"
	libconfig "github.com/bureau-foundation/classforge/lib/config"
	"github.com/bureau-foundation/classforge/lib/transform"
)

// Command returns the "config" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Summary: "Check, show, and compile pipeline configuration",
		Description: `Inspect the configuration every pipeline command loads.

The configuration comes from --config, then $CLASSFORGE_CONFIG, then
the built-in tables. A file only needs the keys it changes: everything
else keeps its built-in value.`,
		Subcommands: []*cli.Command{
			checkCommand(),
			showCommand(),
			compileCommand(),
		},
	}
}

type checkParams struct {
	cli.ConfigFile
	cli.JSONOutput
	Patches bool `json:"patches" flag:"patches" desc:"also read every catalog patch from patch_dir and check its header"`
}

// checkReport is the outcome of "config check".
type checkReport struct {
	Source        string   `json:"source"`
	Valid         bool     `json:"valid"`
	Problems      []string `json:"problems"`
	Namespace     string   `json:"namespace"`
	Patches       int      `json:"patches"`
	ClassRenames  int      `json:"class_renames"`
	MethodRenames int      `json:"method_renames"`
	FieldRenames  int      `json:"field_renames"`
	Skip          int      `json:"skip"`
	KeyTables     int      `json:"key_tables"`
}

func checkCommand() *cli.Command {
	var params checkParams

	return &cli.Command{
		Name:    "check",
		Summary: "Validate a configuration",
		Description: `Load the configuration and build the pipeline from it, reporting every
problem at once. Exits with code 1 when the configuration is invalid.`,
		Usage:  "classforge config check [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, _ []string, logger *slog.Logger) error {
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			report := checkConfig(cfg, params.Patches, logger)
			if done, err := params.EmitJSON(os.Stdout, report); done {
				if err == nil && !report.Valid {
					return &cli.ExitError{Code: 1}
				}
				return err
			}
			report.writeText(os.Stdout)
			if !report.Valid {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Validate a config file and its patches",
				Command:     "classforge config check --config tables.yaml --patches",
			},
		},
	}
}

// checkConfig validates cfg and, with patches, every patch blob its
// catalog names.
func checkConfig(cfg *libconfig.Config, patches bool, logger *slog.Logger) checkReport {
	report := checkReport{
		Source:        cfg.Source(),
		Namespace:     cfg.Namespace,
		Patches:       len(cfg.Patches),
		ClassRenames:  len(cfg.Remap.Classes),
		MethodRenames: len(cfg.Remap.Methods),
		FieldRenames:  len(cfg.Remap.Fields),
		Skip:          len(cfg.Skip),
		Problems:      []string{},
	}
	if cfg.Decryption.Enabled {
		report.KeyTables = len(cfg.Decryption.Tables)
	}

	if err := cfg.Validate(); err != nil {
		report.Problems = append(report.Problems, splitProblems(err)...)
	} else if _, err := transform.NewFromConfig(cfg, logger); err != nil {
		report.Problems = append(report.Problems, splitProblems(err)...)
	}

	if patches && len(report.Problems) == 0 {
		report.Problems = append(report.Problems, checkPatches(cfg)...)
	}
	report.Valid = len(report.Problems) == 0
	return report
}

// checkPatches fetches every catalog patch and parses its header.
func checkPatches(cfg *libconfig.Config) []string {
	patches, err := cfg.Catalog()
	if err != nil {
		return splitProblems(err)
	}
	if cfg.PatchDir == "" && patches.Len() > 0 {
		return []string{"patch_dir is empty, so no catalog patch can be loaded"}
	}

	source := cfg.PatchSource()
	var problems []string
	for _, entry := range patches.Entries() {
		blob, err := source.Fetch(entry.Locator)
		switch {
		case errors.Is(err, catalog.ErrResourceMissing):
			problems = append(problems, fmt.Sprintf("patch %s: resource missing", entry.Locator))
			continue
		case err != nil:
			problems = append(problems, fmt.Sprintf("patch %s: %v", entry.Locator, err))
			continue
		}
		if _, err := bsdiff.ParseHeader(blob); err != nil {
			problems = append(problems, fmt.Sprintf("patch %s: %v", entry.Locator, err))
		}
	}
	return problems
}

// splitProblems turns a joined validation error into one line per
// problem.
func splitProblems(err error) []string {
	var problems []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			problems = append(problems, line)
		}
	}
	return problems
}

func (r checkReport) writeText(w io.Writer) {
	source := r.Source
	if source == "" {
		source = "built-in configuration"
	}
	if !r.Valid {
		fmt.Fprintf(w, "%s: %d problems\n", source, len(r.Problems))
		for _, problem := range r.Problems {
			fmt.Fprintf(w, "  %s\n", problem)
		}
		return
	}
	fmt.Fprintf(w, "%s: ok\n", source)
	fmt.Fprintf(w, "  namespace %q, %d patches, %d class / %d method / %d field renames, %d skipped, %d key tables\n",
		r.Namespace, r.Patches, r.ClassRenames, r.MethodRenames, r.FieldRenames, r.Skip, r.KeyTables)
}

type showParams struct {
	cli.ConfigFile
	Default bool `json:"default" flag:"default" desc:"print the built-in configuration file verbatim, with its comments"`
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print the effective configuration as YAML",
		Description: `Print the configuration every pipeline command would use, after
merging the file over the built-in tables and expanding variables in
patch_dir. With --default, print the built-in file itself as a starting
point for a custom configuration.`,
		Usage:  "classforge config show [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			if params.Default {
				_, err := os.Stdout.Write(libconfig.DefaultYAML())
				return err
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
		Examples: []cli.Example{
			{
				Description: "Start a custom configuration from the built-in one",
				Command:     "classforge config show --default > tables.yaml",
			},
		},
	}
}

type compileParams struct {
	cli.ConfigFile
	Output string `json:"output" flag:"output,o" desc:"CBOR file to write (required)"`
}

func compileCommand() *cli.Command {
	var params compileParams

	return &cli.Command{
		Name:    "compile",
		Summary: "Compile the configuration to deterministic CBOR",
		Description: `Validate the configuration and write it as deterministic CBOR. The
output loads with --config like any other format, skips YAML parsing,
and is byte-identical for identical configurations.`,
		Usage:  "classforge config compile [flags] -o <file.cbor>",
		Params: func() any { return &params },
		Run: func(_ context.Context, _ []string, logger *slog.Logger) error {
			if params.Output == "" {
				return fmt.Errorf("--output is required")
			}
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			if err := compileConfig(cfg, params.Output); err != nil {
				return err
			}
			logger.Info("configuration compiled", "source", cfg.Source(), "output", params.Output)
			return nil
		},
	}
}

func compileConfig(cfg *libconfig.Config, outputPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	data, err := cfg.Compile()
	if err != nil {
		return fmt.Errorf("compiling configuration: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}
