// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlagsDefaults(t *testing.T) {
	type params struct {
		Name     string        `flag:"name" default:"Main"`
		Enabled  bool          `flag:"enabled" default:"true"`
		Count    int           `flag:"count,n" default:"3"`
		Deadline time.Duration `flag:"deadline" default:"2m"`
		Include  []string      `flag:"include" default:"a,b"`
		Ignored  string
	}

	var p params
	flagSet := FlagsFromParams("test", &p)
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "Main" || !p.Enabled || p.Count != 3 || p.Deadline != 2*time.Minute {
		t.Errorf("defaults = %+v", p)
	}
	if len(p.Include) != 2 || p.Include[1] != "b" {
		t.Errorf("Include = %v, want [a b]", p.Include)
	}
	if flagSet.Lookup("ignored") != nil {
		t.Error("untagged field became a flag")
	}
	if flagSet.ShorthandLookup("n") == nil {
		t.Error("shorthand -n not registered")
	}
}

func TestBindFlagsEmbedded(t *testing.T) {
	type params struct {
		ConfigFile
		JSONOutput
		Output string `flag:"output"`
	}

	var p params
	flagSet := FlagsFromParams("test", &p)
	if err := flagSet.Parse([]string{"--config", "tables.yaml", "--json", "--output", "out"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.ConfigPath != "tables.yaml" || !p.OutputJSON || p.Output != "out" {
		t.Errorf("params = %+v", p)
	}
}

func TestBindFlagsErrors(t *testing.T) {
	type unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	type badDefault struct {
		Count int `flag:"count" default:"lots"`
	}

	tests := []struct {
		name   string
		params any
		want   string
	}{
		{"not a pointer", struct{}{}, "pointer to a struct"},
		{"unsupported type", &unsupported{}, "unsupported type float32"},
		{"bad default", &badDefault{}, "default for --count"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := BindFlags(test.params, pflag.NewFlagSet("test", pflag.ContinueOnError))
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("BindFlags error = %v, want %q", err, test.want)
			}
		})
	}
}
