// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/classforge/lib/catalog"
	"github.com/bureau-foundation/classforge/lib/codec"
	"github.com/bureau-foundation/classforge/lib/contentid"
	"github.com/bureau-foundation/classforge/lib/keytable"
	"github.com/bureau-foundation/classforge/lib/remap"
)

// EnvironmentVariable names the configuration file [Load] reads.
const EnvironmentVariable = "CLASSFORGE_CONFIG"

//go:embed default.yaml
var defaultYAML []byte

// Config is the complete pipeline configuration.
type Config struct {
	// Namespace is the internal-name prefix of classes the pipeline
	// touches. Classes outside it pass through. Empty matches every
	// class.
	Namespace string `yaml:"namespace" json:"namespace"`

	// Digest is the content digest algorithm for catalog keys.
	// Default: sha3-256
	Digest string `yaml:"digest" json:"digest"`

	// PatchDir is the directory patch locators resolve against.
	// Empty means no patch blobs are available; catalog hits are then
	// logged and skipped.
	PatchDir string `yaml:"patch_dir" json:"patch_dir"`

	// Patches is the patch catalog.
	Patches []PatchConfig `yaml:"patches" json:"patches"`

	// Remap is the rename table.
	Remap RemapConfig `yaml:"remap" json:"remap"`

	// Skip lists internal names the remapper never rewrites.
	Skip []string `yaml:"skip" json:"skip"`

	// Decryption configures the key-table fallback for obfuscated
	// classes.
	Decryption DecryptionConfig `yaml:"decryption" json:"decryption"`

	// source is the file the configuration was loaded from, empty for
	// the embedded default.
	source string
}

// PatchConfig is one catalog entry.
type PatchConfig struct {
	// Key is the padded Base64 content digest of the unpatched class.
	Key string `yaml:"key" json:"key"`

	// Locator names the patch blob, relative to PatchDir. A leading
	// slash is accepted and ignored.
	Locator string `yaml:"locator" json:"locator"`

	// Name is a label used in logs.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// RemapConfig lists class and member renames.
type RemapConfig struct {
	Classes []ClassRename  `yaml:"classes" json:"classes"`
	Methods []MethodRename `yaml:"methods" json:"methods"`
	Fields  []FieldRename  `yaml:"fields" json:"fields"`
}

// ClassRename renames a class. Names are in internal form.
type ClassRename struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// MethodRename renames a method, keyed by its old owner, name and
// descriptor.
type MethodRename struct {
	Owner      string `yaml:"owner" json:"owner"`
	Name       string `yaml:"name" json:"name"`
	Descriptor string `yaml:"descriptor" json:"descriptor"`
	To         string `yaml:"to" json:"to"`
}

// FieldRename renames a field, keyed by its old owner and name.
type FieldRename struct {
	Owner string `yaml:"owner" json:"owner"`
	Name  string `yaml:"name" json:"name"`
	To    string `yaml:"to" json:"to"`
}

// DecryptionConfig configures the key-table decoder.
type DecryptionConfig struct {
	// Enabled turns the fallback on. When off, classes with an
	// unexpected header go to the remapper like any other.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// ExpectedHeader is the eight-byte header of a plain class, as hex.
	// Default: CA FE BA BE 00 03 00 2D
	ExpectedHeader string `yaml:"expected_header" json:"expected_header"`

	// CanonicalHeader is written in front of decoded classes.
	// Default: CA FE BA BE 00 00 00 2F
	CanonicalHeader string `yaml:"canonical_header" json:"canonical_header"`

	// Tables are the XOR keys as hex, consumed in order.
	Tables []string `yaml:"tables" json:"tables"`
}

// Default returns the embedded default configuration. It panics if the
// embedded file does not parse, which the package tests rule out.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		panic("config: embedded default.yaml: " + err.Error())
	}
	return cfg
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return bytes.Clone(defaultYAML)
}

// Load loads the file named by CLASSFORGE_CONFIG, or returns the
// embedded default when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, merged over the default.
// The format is chosen by the file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := cfg.decode(path, data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if absolute, err := filepath.Abs(path); err == nil {
		path = absolute
	}
	cfg.source = path
	cfg.expandVariables()
	return cfg, nil
}

// decode merges data, in the format named by path's extension, into c.
func (c *Config) decode(path string, data []byte) error {
	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	case ".cbor":
		return codec.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml, .json, .jsonc or .cbor)", extension)
	}
}

// Source returns the absolute path of the file the configuration was
// loaded from, or "" for the embedded default.
func (c *Config) Source() string {
	return c.source
}

// Compile returns the deterministic CBOR encoding of c. Loading the
// result with a .cbor extension yields an equal configuration.
func (c *Config) Compile() ([]byte, error) {
	return codec.Marshal(c)
}

// YAML renders c as YAML.
func (c *Config) YAML() ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// patch_dir and resolves a relative result against the configuration
// file's directory.
func (c *Config) expandVariables() {
	if c.PatchDir == "" {
		return
	}
	configDir := ""
	if c.source != "" {
		configDir = filepath.Dir(c.source)
	}
	vars := map[string]string{
		"CLASSFORGE_CONFIG_DIR": configDir,
		"HOME":                  os.Getenv("HOME"),
	}

	c.PatchDir = expandVars(c.PatchDir, vars)
	if c.PatchDir != "" && configDir != "" && !filepath.IsAbs(c.PatchDir) {
		c.PatchDir = filepath.Join(configDir, c.PatchDir)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. Every conversion the
// pipeline performs at startup is attempted, and all problems are
// returned together.
func (c *Config) Validate() error {
	var errs []error

	if c.Namespace != "" && (strings.HasPrefix(c.Namespace, "/") || strings.Contains(c.Namespace, ".")) {
		errs = append(errs, fmt.Errorf("namespace %q must be an internal-name prefix such as com/maddox/", c.Namespace))
	}
	if _, err := c.Identifier(); err != nil {
		errs = append(errs, fmt.Errorf("digest: %w", err))
	}
	if _, err := c.Catalog(); err != nil {
		errs = append(errs, fmt.Errorf("patches: %w", err))
	}
	if _, err := c.RemapTable(); err != nil {
		errs = append(errs, fmt.Errorf("remap: %w", err))
	}
	for index, name := range c.Skip {
		if name == "" {
			errs = append(errs, fmt.Errorf("skip[%d] is empty", index))
		}
	}
	if _, err := c.KeyTables(); err != nil {
		errs = append(errs, fmt.Errorf("decryption: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Identifier returns the content identifier for the configured digest.
func (c *Config) Identifier() (*contentid.Identifier, error) {
	return contentid.New(contentid.Algorithm(c.Digest))
}

// Catalog builds the patch catalog.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	entries := make([]catalog.Entry, 0, len(c.Patches))
	for _, patch := range c.Patches {
		entries = append(entries, catalog.Entry{
			Key:     contentid.Key(patch.Key),
			Locator: catalog.Locator(patch.Locator),
			Name:    patch.Name,
		})
	}
	return catalog.New(entries)
}

// PatchSource returns the source patch blobs are fetched from. With no
// patch_dir every fetch reports [catalog.ErrResourceMissing].
func (c *Config) PatchSource() catalog.Source {
	if c.PatchDir == "" {
		return catalog.ChainSource{}
	}
	return catalog.NewDirSource(c.PatchDir)
}

// RemapTable builds the rename table.
func (c *Config) RemapTable() (*remap.Table, error) {
	classes := make([]remap.ClassRename, 0, len(c.Remap.Classes))
	for _, rename := range c.Remap.Classes {
		classes = append(classes, remap.ClassRename{From: rename.From, To: rename.To})
	}
	methods := make([]remap.MemberRename, 0, len(c.Remap.Methods))
	for _, rename := range c.Remap.Methods {
		methods = append(methods, remap.MemberRename{
			Owner:      rename.Owner,
			Name:       rename.Name,
			Descriptor: rename.Descriptor,
			To:         rename.To,
		})
	}
	fields := make([]remap.MemberRename, 0, len(c.Remap.Fields))
	for _, rename := range c.Remap.Fields {
		fields = append(fields, remap.MemberRename{Owner: rename.Owner, Name: rename.Name, To: rename.To})
	}
	return remap.NewTable(classes, methods, fields)
}

// SkipSet builds the skip set.
func (c *Config) SkipSet() *remap.SkipSet {
	return remap.NewSkipSet(c.Skip...)
}

// KeyTables returns the decoder options, or nil options when
// decryption is disabled.
func (c *Config) KeyTables() (*keytable.Options, error) {
	if !c.Decryption.Enabled {
		return nil, nil
	}

	var errs []error
	options := &keytable.Options{}
	if c.Decryption.ExpectedHeader != "" {
		header, err := keytable.ParseHeader(c.Decryption.ExpectedHeader)
		if err != nil {
			errs = append(errs, fmt.Errorf("expected_header: %w", err))
		}
		options.Expected = header
	}
	if c.Decryption.CanonicalHeader != "" {
		header, err := keytable.ParseHeader(c.Decryption.CanonicalHeader)
		if err != nil {
			errs = append(errs, fmt.Errorf("canonical_header: %w", err))
		}
		options.Canonical = header
	}
	for index, text := range c.Decryption.Tables {
		key, err := keytable.ParseKey(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("tables[%d]: %w", index, err))
			continue
		}
		options.Tables = append(options.Tables, key)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return options, nil
}
