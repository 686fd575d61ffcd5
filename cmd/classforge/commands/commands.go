// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete classforge command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	configcmd "github.com/bureau-foundation/classforge/cmd/classforge/config"
	inspectcmd "github.com/bureau-foundation/classforge/cmd/classforge/inspect"
	patchcmd "github.com/bureau-foundation/classforge/cmd/classforge/patch"
	repackcmd "github.com/bureau-foundation/classforge/cmd/classforge/repack"
	"github.com/bureau-foundation/classforge/lib/version"
)

// Root builds and returns the complete classforge command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "classforge",
		Description: `classforge: class-file patching and remapping.

Runs the class-load pipeline offline: classes inside the configured
namespace are patched from the catalog, then either decoded with the
key tables or remapped to the replacement names. Without --config the
built-in tables are used.`,
		Subcommands: []*cli.Command{
			repackcmd.TransformCommand(),
			repackcmd.BatchCommand(),
			repackcmd.ManifestCommand(),
			inspectcmd.InspectCommand(),
			inspectcmd.DigestCommand(),
			patchcmd.Command(),
			configcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					if len(args) > 0 {
						return fmt.Errorf("unexpected argument: %s", args[0])
					}
					fmt.Printf("classforge %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Transform one class in place",
				Command:     "classforge transform build/com/maddox/rts/SFS.class",
			},
			{
				Description: "Repack a game jar with a manifest of every decision",
				Command:     "classforge batch classes.jar -o patched.jar --manifest run.cbor",
			},
			{
				Description: "Show the classes that failed in a previous run",
				Command:     "classforge manifest show run.cbor --failures",
			},
			{
				Description: "Check a configuration and its patch directory",
				Command:     "classforge config check --config tables.yaml",
			},
			{
				Description: "Compute catalog keys for a set of classes",
				Command:     "classforge digest com/maddox/rts/*.class",
			},
			{
				Description: "Build a patch resource",
				Command:     "classforge patch create Main.class Main.fixed.class -o patches/Main.patch",
			},
		},
	}
}
