// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/bureau-foundation/classforge/lib/config"
)

// ConfigFile is an embeddable params struct that adds the --config
// flag.
type ConfigFile struct {
	ConfigPath string `json:"config" flag:"config" desc:"configuration file (.yaml, .json, .jsonc, .cbor); defaults to $CLASSFORGE_CONFIG, then the built-in tables"`
}

// LoadConfig returns the configuration named by --config. Without the
// flag it falls back to [config.Load], which honors CLASSFORGE_CONFIG
// and then the embedded default.
func (c *ConfigFile) LoadConfig() (*config.Config, error) {
	if c.ConfigPath != "" {
		return config.LoadFile(c.ConfigPath)
	}
	return config.Load()
}
