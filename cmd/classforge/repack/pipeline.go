// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repack

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	"github.com/bureau-foundation/classforge/lib/config"
	"github.com/bureau-foundation/classforge/lib/transform"
)

// loadPipeline loads the configuration named by configFile and builds
// the transformer from it.
func loadPipeline(configFile *cli.ConfigFile, logger *slog.Logger) (*config.Config, *transform.Transformer, error) {
	cfg, err := configFile.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	transformer, err := transform.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, transformer, nil
}

// writeFileAtomic replaces path with data through a temporary file in
// the same directory, so a reader never sees a partial class.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing %s: %w", temporaryPath, err)
	}
	if err := file.Chmod(perm); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("setting mode of %s: %w", temporaryPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing %s: %w", temporaryPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing %s: %w", temporaryPath, err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
