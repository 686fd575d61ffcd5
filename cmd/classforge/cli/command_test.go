// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, root *Command, args ...string) error {
	t.Helper()
	return root.ExecuteContext(context.Background(), args, nil)
}

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	root := &Command{
		Name: "classforge",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "digest",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "digest"
					return nil
				},
			},
		},
	}

	if err := run(t, root, "digest"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "digest" {
		t.Errorf("dispatched to %q, want %q", called, "digest")
	}
}

func TestExecuteNestedSubcommands(t *testing.T) {
	var receivedArgs []string
	root := &Command{
		Name: "classforge",
		Subcommands: []*Command{
			{
				Name: "patch",
				Subcommands: []*Command{
					{
						Name: "info",
						Run: func(_ context.Context, args []string, _ *slog.Logger) error {
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := run(t, root, "patch", "info", "Main.patch"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "Main.patch" {
		t.Errorf("args = %v, want [Main.patch]", receivedArgs)
	}
}

type sampleParams struct {
	JSONOutput
	Workers int           `flag:"workers,j" desc:"parallel workers" default:"4"`
	Output  string        `flag:"output,o" desc:"output path"`
	Timeout time.Duration `flag:"timeout" desc:"deadline" default:"30s"`
}

func TestExecuteParsesParams(t *testing.T) {
	var params sampleParams
	var receivedArgs []string
	root := &Command{
		Name:   "batch",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			receivedArgs = args
			return nil
		},
	}

	if err := run(t, root, "input.jar", "-j", "8", "--json", "--output=out.jar"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if params.Workers != 8 || params.Output != "out.jar" || !params.OutputJSON {
		t.Errorf("params = %+v", params)
	}
	if params.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want the 30s default", params.Timeout)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "input.jar" {
		t.Errorf("args = %v, want [input.jar]", receivedArgs)
	}
}

func TestExecuteErrors(t *testing.T) {
	var params sampleParams
	root := &Command{
		Name: "classforge",
		Subcommands: []*Command{
			{
				Name:   "batch",
				Params: func() any { return &params },
				Run:    func(context.Context, []string, *slog.Logger) error { return nil },
			},
			{
				Name:        "config",
				Subcommands: []*Command{{Name: "check"}},
			},
		},
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"unknown command with suggestion", []string{"bacth"}, []string{`unknown command "bacth"`, `did you mean "batch"`, "classforge --help"}},
		{"unknown command", []string{"frobnicate"}, []string{`unknown command "frobnicate"`}},
		{"unknown flag with suggestion", []string{"batch", "--workrs", "2"}, []string{"unknown flag: --workrs", "did you mean --workers", "classforge batch --help"}},
		{"bad flag value", []string{"batch", "--workers", "many"}, []string{"invalid argument", "classforge batch --help"}},
		{"missing subcommand", []string{"config"}, []string{"subcommand required"}},
		{"flag instead of subcommand", []string{"config", "--verbose"}, []string{`subcommand required (got flag "--verbose")`}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := run(t, root, test.args...)
			if err == nil {
				t.Fatal("Execute succeeded, want an error")
			}
			for _, want := range test.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not contain %q", err, want)
				}
			}
		})
	}
}

func TestExecuteHelp(t *testing.T) {
	called := false
	root := &Command{
		Name:   "digest",
		Params: func() any { return &sampleParams{} },
		Run: func(context.Context, []string, *slog.Logger) error {
			called = true
			return nil
		},
	}

	for _, args := range [][]string{{"--help"}, {"-h"}, {"help"}, {"file.class", "--help"}} {
		if err := run(t, root, args...); err != nil {
			t.Errorf("Execute(%v): %v", args, err)
		}
	}
	if called {
		t.Error("Run was called for a help request")
	}
}

func TestExecuteRunFallback(t *testing.T) {
	var receivedArgs []string
	root := &Command{
		Name:        "patch",
		Subcommands: []*Command{{Name: "info", Run: func(context.Context, []string, *slog.Logger) error { return nil }}},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			receivedArgs = args
			return nil
		},
	}

	if err := run(t, root, "Main.patch"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "Main.patch" {
		t.Errorf("args = %v, want [Main.patch]", receivedArgs)
	}
}

func TestExecutePassesLoggerAndContext(t *testing.T) {
	type contextKey struct{}
	ctx := context.WithValue(context.Background(), contextKey{}, "marker")
	logger := slog.New(slog.DiscardHandler)

	root := &Command{
		Name: "version",
		Run: func(runContext context.Context, _ []string, runLogger *slog.Logger) error {
			if runContext.Value(contextKey{}) != "marker" {
				return errors.New("context not passed through")
			}
			if runLogger != logger {
				return errors.New("logger not passed through")
			}
			return nil
		},
	}
	if err := root.ExecuteContext(ctx, nil, logger); err != nil {
		t.Fatal(err)
	}
}

func TestPrintHelp(t *testing.T) {
	parent := &Command{Name: "classforge"}
	command := &Command{
		Name:        "batch",
		Description: "Transform every class in a directory or jar.",
		Params:      func() any { return &sampleParams{} },
		Examples:    []Example{{Description: "Repack a jar", Command: "classforge batch game.jar -o patched.jar"}},
		parent:      parent,
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()
	for _, want := range []string{
		"Transform every class",
		"Usage:\n  classforge batch [flags]",
		"--workers",
		"parallel workers",
		"# Repack a jar",
		"classforge batch game.jar -o patched.jar",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q:\n%s", want, output)
		}
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 2}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok || coder.ExitCode() != 2 {
		t.Errorf("ExitError does not report code 2")
	}
	if err.Error() != "exit code 2" {
		t.Errorf("Error() = %q", err.Error())
	}
}
