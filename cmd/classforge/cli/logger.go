// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// DebugEnvironmentVariable enables debug-level logging when set to any
// non-empty value.
const DebugEnvironmentVariable = "CLASSFORGE_DEBUG"

// NewCommandLogger creates the structured logger handed to every
// command. When stderr is a terminal it uses slog.TextHandler for
// human-readable output. When stderr is piped or redirected (build
// scripts, repack jobs) it uses slog.JSONHandler so outcomes can be
// collected by machine.
//
// Commands scope the logger with their own context via With():
//
//	logger = logger.With("command", "batch", "input", params.Input)
func NewCommandLogger() *slog.Logger {
	options := &slog.HandlerOptions{Level: commandLogLevel()}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

func commandLogLevel() slog.Level {
	if os.Getenv(DebugEnvironmentVariable) != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
