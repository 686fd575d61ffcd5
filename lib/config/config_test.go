// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/classforge/lib/contentid"
	"github.com/bureau-foundation/classforge/lib/keytable"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Namespace != "com/maddox/" {
		t.Errorf("expected namespace=com/maddox/, got %s", cfg.Namespace)
	}
	if cfg.Digest != "sha3-256" {
		t.Errorf("expected digest=sha3-256, got %s", cfg.Digest)
	}
	if len(cfg.Patches) != 8 {
		t.Errorf("expected 8 patches, got %d", len(cfg.Patches))
	}
	if len(cfg.Remap.Classes) != 6 {
		t.Errorf("expected 6 class renames, got %d", len(cfg.Remap.Classes))
	}
	if len(cfg.Remap.Methods) != 9 {
		t.Errorf("expected 9 method renames, got %d", len(cfg.Remap.Methods))
	}
	if len(cfg.Skip) != 13 {
		t.Errorf("expected 13 skip entries, got %d", len(cfg.Skip))
	}
	if !cfg.Decryption.Enabled || len(cfg.Decryption.Tables) != 5 {
		t.Errorf("expected 5 enabled key tables, got enabled=%v tables=%d", cfg.Decryption.Enabled, len(cfg.Decryption.Tables))
	}
	if cfg.Source() != "" {
		t.Errorf("expected no source for the embedded default, got %s", cfg.Source())
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("embedded default does not validate: %v", err)
	}
}

func TestDefault_Tables(t *testing.T) {
	cfg := Default()

	table, err := cfg.RemapTable()
	if err != nil {
		t.Fatalf("RemapTable: %v", err)
	}
	if to, ok := table.Class("com/maddox/rts/SFS"); !ok || to != "com/maddox/rts/PhysFS" {
		t.Errorf("SFS renames to %q, %v", to, ok)
	}
	if to, ok := table.Method("com/maddox/rts/SFS", "mountAs", "(Ljava/lang/String;Ljava/lang/String;I)V"); !ok || to != "mountArchiveAt" {
		t.Errorf("SFS.mountAs/3 renames to %q, %v", to, ok)
	}

	skip := cfg.SkipSet()
	for _, name := range []string{"com/maddox/rts/PhysFS", "com/maddox/rts/SFS", "com/maddox/il2/fm/FlightModelMain"} {
		if !skip.Contains(name) {
			t.Errorf("skip set is missing %s", name)
		}
	}

	patches, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	entry, ok := patches.Lookup(contentid.Key("jdlTl7o2LFAdbw9j+i6hoyjAKYaEJwpRfIKCpHQc/0Y="))
	if !ok || entry.Locator != "/RTS.patch" {
		t.Errorf("RTS catalog entry = %+v, %v", entry, ok)
	}

	options, err := cfg.KeyTables()
	if err != nil {
		t.Fatalf("KeyTables: %v", err)
	}
	if options.Expected != keytable.DefaultExpected || options.Canonical != keytable.DefaultCanonical {
		t.Errorf("headers = %v / %v", options.Expected, options.Canonical)
	}
	if len(options.Tables) != 5 || len(options.Tables[0]) != 14 || options.Tables[0][0] != 0x6E || len(options.Tables[4]) != 22 {
		t.Errorf("key tables parsed wrong: %d tables", len(options.Tables))
	}
}

func TestLoad_WithoutEnvironment(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Patches) != 8 || cfg.Source() != "" {
		t.Errorf("expected the embedded default, got %d patches from %q", len(cfg.Patches), cfg.Source())
	}
}

func TestLoad_WithEnvironment(t *testing.T) {
	configPath := writeConfig(t, "classforge.yaml", `
namespace: org/example/
skip:
  - org/example/Keep
`)
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Namespace != "org/example/" {
		t.Errorf("expected namespace=org/example/, got %s", cfg.Namespace)
	}
	if len(cfg.Skip) != 1 || cfg.Skip[0] != "org/example/Keep" {
		t.Errorf("expected the file's skip list to replace the default, got %v", cfg.Skip)
	}
	// Sections the file leaves out keep their defaults.
	if len(cfg.Patches) != 8 || len(cfg.Remap.Methods) != 9 {
		t.Errorf("expected default patches and renames, got %d and %d", len(cfg.Patches), len(cfg.Remap.Methods))
	}
	if cfg.Source() != configPath {
		t.Errorf("expected source %s, got %s", configPath, cfg.Source())
	}
}

func TestLoadFile_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "classforge.yml",
			content: `
digest: blake3
decryption:
  enabled: false
`,
		},
		{
			name: "json",
			file: "classforge.json",
			content: `{"digest": "blake3", "decryption": {"enabled": false}}`,
		},
		{
			name: "jsonc",
			file: "classforge.jsonc",
			content: `{
  // Patches were computed with BLAKE3.
  "digest": "blake3",
  "decryption": {
    "enabled": false, /* no obfuscated classes */
  },
}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, test.file, test.content))
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if cfg.Digest != "blake3" {
				t.Errorf("expected digest=blake3, got %s", cfg.Digest)
			}
			if cfg.Decryption.Enabled {
				t.Error("expected decryption disabled")
			}
			// Keys inside a section the file sets keep their defaults.
			if len(cfg.Decryption.Tables) != 5 {
				t.Errorf("expected default key tables to survive, got %d", len(cfg.Decryption.Tables))
			}
			options, err := cfg.KeyTables()
			if err != nil || options != nil {
				t.Errorf("KeyTables with decryption disabled = %v, %v", options, err)
			}
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := LoadFile(writeConfig(t, "classforge.toml", "digest = 1")); err == nil || !strings.Contains(err.Error(), "unsupported config format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
	if _, err := LoadFile(writeConfig(t, "classforge.yaml", "patches: {")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestCompile_RoundTrip(t *testing.T) {
	original := Default()
	original.Namespace = "org/example/"
	original.Remap.Fields = []FieldRename{{Owner: "org/example/Old", Name: "count", To: "total"}}

	compiled, err := original.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	again, err := original.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if string(compiled) != string(again) {
		t.Error("Compile is not deterministic")
	}

	path := filepath.Join(t.TempDir(), "classforge.cbor")
	if err := os.WriteFile(path, compiled, 0644); err != nil {
		t.Fatalf("failed to write compiled config: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(cbor): %v", err)
	}
	if loaded.Namespace != "org/example/" || len(loaded.Remap.Fields) != 1 || loaded.Remap.Fields[0].To != "total" {
		t.Errorf("compiled config lost data: namespace=%s fields=%v", loaded.Namespace, loaded.Remap.Fields)
	}
	if len(loaded.Patches) != len(original.Patches) || loaded.Patches[3] != original.Patches[3] {
		t.Errorf("compiled config lost patches")
	}
}

func TestYAML_RoundTrip(t *testing.T) {
	rendered, err := Default().YAML()
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	cfg, err := LoadFile(writeConfig(t, "rendered.yaml", string(rendered)))
	if err != nil {
		t.Fatalf("LoadFile(rendered): %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("rendered default does not validate: %v", err)
	}
	if len(cfg.Remap.Methods) != 9 || cfg.Remap.Methods[2].Name != "mountAs" {
		t.Errorf("rendered default lost method renames: %v", cfg.Remap.Methods)
	}
}

func TestPatchDir_Expansion(t *testing.T) {
	t.Setenv("CLASSFORGE_TEST_PATCHES", "/srv/patches")

	tests := []struct {
		name     string
		patchDir string
		want     func(configDir string) string
	}{
		{
			name:     "environment variable",
			patchDir: "${CLASSFORGE_TEST_PATCHES}",
			want:     func(string) string { return "/srv/patches" },
		},
		{
			name:     "default value",
			patchDir: "${CLASSFORGE_TEST_UNSET:-/opt/patches}",
			want:     func(string) string { return "/opt/patches" },
		},
		{
			name:     "relative to config",
			patchDir: "patches",
			want:     func(configDir string) string { return filepath.Join(configDir, "patches") },
		},
		{
			name:     "config dir variable",
			patchDir: "${CLASSFORGE_CONFIG_DIR}/blobs",
			want:     func(configDir string) string { return filepath.Join(configDir, "blobs") },
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeConfig(t, "classforge.yaml", "patch_dir: "+test.patchDir+"\n")
			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			configDir := filepath.Dir(cfg.Source())
			if want := test.want(configDir); cfg.PatchDir != want {
				t.Errorf("expected patch_dir=%s, got %s", want, cfg.PatchDir)
			}
		})
	}
}

func TestPatchSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "RTS.patch"), []byte("BSDIFF40"), 0644); err != nil {
		t.Fatalf("failed to write patch: %v", err)
	}

	cfg := Default()
	cfg.PatchDir = dir
	data, err := cfg.PatchSource().Fetch("/RTS.patch")
	if err != nil || string(data) != "BSDIFF40" {
		t.Errorf("Fetch = %q, %v", data, err)
	}

	cfg.PatchDir = ""
	if _, err := cfg.PatchSource().Fetch("/RTS.patch"); err == nil {
		t.Error("expected a missing resource without patch_dir")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
		want   string
	}{
		{
			name:   "unknown digest",
			modify: func(cfg *Config) { cfg.Digest = "md5" },
			want:   "unsupported digest algorithm",
		},
		{
			name:   "malformed catalog key",
			modify: func(cfg *Config) { cfg.Patches[0].Key = "not-base64" },
			want:   "patches",
		},
		{
			name:   "duplicate catalog key",
			modify: func(cfg *Config) { cfg.Patches[1].Key = cfg.Patches[0].Key },
			want:   "patches",
		},
		{
			name: "rename chain",
			modify: func(cfg *Config) {
				cfg.Remap.Classes = append(cfg.Remap.Classes, ClassRename{From: "com/maddox/rts/PhysFS", To: "com/maddox/rts/NativeFS"})
			},
			want: "target is itself renamed",
		},
		{
			name:   "empty skip entry",
			modify: func(cfg *Config) { cfg.Skip = append(cfg.Skip, "") },
			want:   "skip[13] is empty",
		},
		{
			name:   "malformed key table",
			modify: func(cfg *Config) { cfg.Decryption.Tables[2] = "XYZ" },
			want:   "tables[2]",
		},
		{
			name:   "short header",
			modify: func(cfg *Config) { cfg.Decryption.ExpectedHeader = "CA FE BA BE" },
			want:   "expected_header",
		},
		{
			name:   "dotted namespace",
			modify: func(cfg *Config) { cfg.Namespace = "com.maddox." },
			want:   "namespace",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("expected error mentioning %q, got %v", test.want, err)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Digest = "md5"
	cfg.Skip = append(cfg.Skip, "")
	cfg.Decryption.Tables[0] = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"digest", "skip", "decryption"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error mentioning %q, got %v", want, err)
		}
	}
}

func TestExpandVars(t *testing.T) {
	vars := map[string]string{"HOME": "/home/test"}

	tests := []struct {
		input string
		want  string
	}{
		{"${HOME}/patches", "/home/test/patches"},
		{"${CLASSFORGE_TEST_NOT_SET:-fallback}", "fallback"},
		{"${CLASSFORGE_TEST_NOT_SET}", ""},
		{"/plain/path", "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}
