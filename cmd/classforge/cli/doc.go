// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the classforge binary.
//
// A [Command] is a node in a tree: groups dispatch on their first
// positional argument, leaves parse flags and call Run. Flags come
// from a params struct whose fields carry flag, desc, and default
// tags (see [BindFlags]), so each command declares its inputs in one
// place:
//
//	var params digestParams
//	command := &cli.Command{
//	    Name:   "digest",
//	    Params: func() any { return &params },
//	    Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
//	        ...
//	    },
//	}
//
// Unknown commands and flags produce an error with the closest
// defined name (Levenshtein distance of at most 3) and a pointer to
// --help. Commands that have already reported their own outcome
// return an [ExitError] to set the process exit code without a
// second error line.
//
// [NewCommandLogger] builds the slog logger passed to every Run:
// text on a terminal, JSON otherwise, debug level when
// CLASSFORGE_DEBUG is set. [ConfigFile] is the embeddable --config
// flag shared by every command that builds a pipeline.
package cli
