// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/bureau-foundation/classforge/cmd/classforge/cli"
	"github.com/bureau-foundation/classforge/lib/catalog"
	"github.com/bureau-foundation/classforge/lib/contentid"
)

type digestParams struct {
	cli.ConfigFile
	cli.JSONOutput
	Algorithm string `json:"algorithm" flag:"algorithm,a" desc:"digest algorithm: sha3-256, sha256 or blake3 (default: the configured one)"`
}

// digestRecord is the key of one file and the catalog entry it hits.
type digestRecord struct {
	Path      string              `json:"path"`
	Algorithm contentid.Algorithm `json:"algorithm"`
	Key       contentid.Key       `json:"key"`
	Locator   string              `json:"locator,omitempty"`
	Name      string              `json:"name,omitempty"`
}

// DigestCommand returns the "digest" command.
func DigestCommand() *cli.Command {
	var params digestParams

	return &cli.Command{
		Name:    "digest",
		Summary: "Print the catalog key of class files",
		Description: `Print the content key of each file: the padded Base64 digest the
patch catalog is keyed by. When a key is in the configured catalog, the
matching patch locator is printed after it.

With no file arguments the content is read from stdin.`,
		Usage:  "classforge digest [flags] [file...]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			algorithm := contentid.Algorithm(cfg.Digest)
			if params.Algorithm != "" {
				algorithm = contentid.Algorithm(params.Algorithm)
			}
			identifier, err := contentid.New(algorithm)
			if err != nil {
				return err
			}
			patches, err := cfg.Catalog()
			if err != nil {
				return err
			}
			// A catalog built for another algorithm cannot match.
			if identifier.Algorithm() != configuredAlgorithm(cfg.Digest) {
				patches = nil
			}

			records, err := digestFiles(identifier, patches, args, os.Stdin)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(os.Stdout, records); done {
				return err
			}
			writeDigests(os.Stdout, records)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Check whether classes have catalog patches",
				Command:     "classforge digest com/maddox/rts/*.class",
			},
			{
				Description: "Compute a BLAKE3 key from stdin",
				Command:     "classforge digest --algorithm blake3 < RTS.class",
			},
		},
	}
}

// configuredAlgorithm resolves the empty configured digest to its
// default.
func configuredAlgorithm(digest string) contentid.Algorithm {
	if digest == "" {
		return contentid.SHA3_256
	}
	return contentid.Algorithm(digest)
}

// digestFiles keys every file in paths, or stdin when paths is empty.
// patches may be nil.
func digestFiles(identifier *contentid.Identifier, patches *catalog.Catalog, paths []string, stdin io.Reader) ([]digestRecord, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []digestRecord{digestRecordFor(identifier, patches, "-", data)}, nil
	}

	records := make([]digestRecord, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		records = append(records, digestRecordFor(identifier, patches, path, data))
	}
	return records, nil
}

func digestRecordFor(identifier *contentid.Identifier, patches *catalog.Catalog, path string, data []byte) digestRecord {
	record := digestRecord{
		Path:      path,
		Algorithm: identifier.Algorithm(),
		Key:       identifier.Key(data),
	}
	if patches != nil {
		if entry, ok := patches.Lookup(record.Key); ok {
			record.Locator = string(entry.Locator)
			record.Name = entry.Name
		}
	}
	return record
}

func writeDigests(w io.Writer, records []digestRecord) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	for _, record := range records {
		if record.Locator != "" {
			fmt.Fprintf(tw, "%s\t%s\t-> %s\n", record.Key, record.Path, record.Locator)
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", record.Key, record.Path)
		}
	}
	tw.Flush()
}
