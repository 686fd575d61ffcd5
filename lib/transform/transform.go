// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/classforge/lib/bsdiff"
	"github.com/bureau-foundation/classforge/lib/catalog"
	"github.com/bureau-foundation/classforge/lib/config"
	"github.com/bureau-foundation/classforge/lib/contentid"
	"github.com/bureau-foundation/classforge/lib/keytable"
	"github.com/bureau-foundation/classforge/lib/remap"
)

// Stage names used in [StageError] and logs.
const (
	StageDigest  = "digest"
	StagePatch   = "patch"
	StageDecrypt = "decrypt"
	StageRemap   = "remap"
)

// StageError reports a stage that failed for one class. The class
// still loads, with the bytes produced before the failing stage.
type StageError struct {
	Stage  string
	Module string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.Module, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options configures a Transformer. Every collaborator is optional;
// a zero Options passes every class through.
type Options struct {
	// Namespace is the internal-name prefix of classes to transform.
	// Empty matches every class.
	Namespace string

	// Identifier computes catalog keys. Nil selects SHA3-256.
	Identifier *contentid.Identifier

	// Catalog maps content keys to patches. Nil means no patches.
	Catalog *catalog.Catalog

	// Source fetches patch blobs. Nil means every blob is missing.
	Source catalog.Source

	// Remapper rewrites references. Nil renames nothing.
	Remapper *remap.Remapper

	// Decoder decodes obfuscated classes. Nil disables decoding and
	// sends every class to the remapper.
	Decoder *keytable.Decoder

	// Logger receives per-class diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Result is the outcome of [Transformer.Process].
type Result struct {
	// Data is the class to load. It is the input slice itself when no
	// stage changed the bytes.
	Data []byte

	// States lists every state the class passed through, from Start
	// to Done.
	States []State

	// Key is the content key of the input, empty for passthrough.
	Key contentid.Key

	// Patch is the catalog entry that matched, if any.
	Patch *catalog.Entry

	// KeyTable is the index of the key table that decoded the class,
	// or -1.
	KeyTable int

	// Err is the stage failure, if any. It is always a *StageError.
	Err error
}

// Final returns the state the class ended in before Done.
func (r Result) Final() State {
	if len(r.States) < 2 {
		return Start
	}
	return r.States[len(r.States)-2]
}

// Changed reports whether Data differs from the input.
func (r Result) Changed(input []byte) bool {
	return !sameSlice(r.Data, input)
}

// Transformer runs the pipeline.
type Transformer struct {
	namespace  string
	identifier *contentid.Identifier
	catalog    *catalog.Catalog
	source     catalog.Source
	remapper   *remap.Remapper
	decoder    *keytable.Decoder
	logger     *slog.Logger
	stats      counters
}

// New returns a Transformer.
func New(options Options) (*Transformer, error) {
	identifier := options.Identifier
	if identifier == nil {
		var err error
		identifier, err = contentid.New(contentid.SHA3_256)
		if err != nil {
			return nil, err
		}
	}
	patches := options.Catalog
	if patches == nil {
		patches, _ = catalog.New(nil)
	}
	source := options.Source
	if source == nil {
		source = catalog.ChainSource{}
	}
	remapper := options.Remapper
	if remapper == nil {
		remapper = remap.NewRemapper(nil, nil)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Transformer{
		namespace:  options.Namespace,
		identifier: identifier,
		catalog:    patches,
		source:     source,
		remapper:   remapper,
		decoder:    options.Decoder,
		logger:     logger,
	}, nil
}

// NewFromConfig builds every collaborator from cfg. All configuration
// problems are reported together.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Transformer, error) {
	var errs []error

	identifier, err := cfg.Identifier()
	if err != nil {
		errs = append(errs, fmt.Errorf("digest: %w", err))
	}
	patches, err := cfg.Catalog()
	if err != nil {
		errs = append(errs, fmt.Errorf("patches: %w", err))
	}
	table, err := cfg.RemapTable()
	if err != nil {
		errs = append(errs, fmt.Errorf("remap: %w", err))
	}
	var decoder *keytable.Decoder
	keyOptions, err := cfg.KeyTables()
	if err != nil {
		errs = append(errs, fmt.Errorf("decryption: %w", err))
	} else if keyOptions != nil {
		decoder, err = keytable.New(*keyOptions)
		if err != nil {
			errs = append(errs, fmt.Errorf("decryption: %w", err))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	transformer, err := New(Options{
		Namespace:  cfg.Namespace,
		Identifier: identifier,
		Catalog:    patches,
		Source:     cfg.PatchSource(),
		Remapper:   remap.NewRemapper(table, cfg.SkipSet()),
		Decoder:    decoder,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	logger = transformer.logger
	logger.Debug("pipeline configured",
		"source", cfg.Source(),
		"namespace", cfg.Namespace,
		"digest", identifier.Algorithm(),
		"patches", patches.Len(),
		"class_renames", len(table.Classes()),
		"method_renames", len(table.Methods()),
		"field_renames", len(table.Fields()),
		"skip", len(cfg.Skip),
		"key_tables", len(cfg.Decryption.Tables),
	)
	return transformer, nil
}

// Namespace returns the internal-name prefix the pipeline transforms.
func (t *Transformer) Namespace() string {
	return t.namespace
}

// Decoder returns the key-table decoder, or nil when decoding is off.
func (t *Transformer) Decoder() *keytable.Decoder {
	return t.decoder
}

// Transform returns the bytes to load for class name. It never fails;
// on any error the most recent good bytes are returned.
func (t *Transformer) Transform(name string, data []byte) []byte {
	return t.Process(name, data).Data
}

// Process runs the pipeline on one class and reports what happened.
func (t *Transformer) Process(name string, data []byte) (result Result) {
	t.stats.seen.Add(1)
	result = Result{Data: data, KeyTable: -1, States: []State{Start}}

	stage := StageDigest
	defer func() {
		if recovered := recover(); recovered != nil {
			t.fail(&result, name, stage, fmt.Errorf("panic: %v", recovered))
		}
	}()

	if !strings.HasPrefix(name, t.namespace) {
		t.stats.passthrough.Add(1)
		result.States = append(result.States, Passthrough, Done)
		return result
	}
	result.States = append(result.States, Filtered)

	result.Key = t.identifier.Key(data)
	result.States = append(result.States, Digested)

	stage = StagePatch
	entry, found := t.catalog.Lookup(result.Key)
	result.States = append(result.States, PatchChecked)
	if found {
		result.Patch = &entry
		patched, err := t.applyPatch(name, entry, data)
		if err != nil {
			t.fail(&result, name, stage, err)
			return result
		}
		if patched != nil {
			result.Data = patched
			result.States = append(result.States, Patched)
		} else {
			result.States = append(result.States, Unpatched)
		}
	} else {
		result.States = append(result.States, Unpatched)
	}

	result.States = append(result.States, SkipChecked)
	if t.decoder != nil && t.decoder.NeedsDecoding(result.Data) {
		stage = StageDecrypt
		decoded := t.decoder.Decode(result.Data)
		if !decoded.Applied {
			t.logger.Warn("obfuscated class passed through, no key table left",
				"module", name,
			)
			result.States = append(result.States, Unchanged)
			return t.finish(result, data)
		}
		t.stats.decrypted.Add(1)
		t.logger.Info("class decoded",
			"module", name,
			"key_table", decoded.Index,
		)
		result.Data = decoded.Data
		result.KeyTable = decoded.Index
		result.States = append(result.States, Decrypted)
		return t.finish(result, data)
	}

	// The skip set exempts a class from remapping only; obfuscated
	// classes are decoded above so key tables follow load order.
	if t.remapper.Skips(name) {
		result.States = append(result.States, Unchanged)
		return t.finish(result, data)
	}

	stage = StageRemap
	remapped, err := t.remapper.Remap(name, result.Data)
	if err != nil {
		t.fail(&result, name, stage, err)
		return result
	}
	if sameSlice(remapped, result.Data) {
		result.States = append(result.States, Unchanged)
	} else {
		t.stats.remapped.Add(1)
		t.logger.Debug("class remapped", "module", name)
		result.Data = remapped
		result.States = append(result.States, Remapped)
	}
	return t.finish(result, data)
}

// applyPatch fetches and applies the patch for entry. A missing blob
// is not an error: it is logged and nil is returned.
func (t *Transformer) applyPatch(name string, entry catalog.Entry, data []byte) ([]byte, error) {
	blob, err := t.source.Fetch(entry.Locator)
	if errors.Is(err, catalog.ErrResourceMissing) {
		t.stats.patchMissing.Add(1)
		t.logger.Warn("patch resource missing",
			"module", name,
			"key", entry.Key,
			"locator", entry.Locator,
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", entry.Locator, err)
	}

	patched, err := bsdiff.Apply(data, blob)
	if err != nil {
		return nil, fmt.Errorf("applying %s: %w", entry.Locator, err)
	}
	t.stats.patched.Add(1)
	t.logger.Info("patch applied",
		"module", name,
		"key", entry.Key,
		"locator", entry.Locator,
		"size", len(patched),
	)
	return patched, nil
}

// finish closes a successful run. Output equal to the input is
// replaced by the input slice itself.
func (t *Transformer) finish(result Result, input []byte) Result {
	if !sameSlice(result.Data, input) && bytes.Equal(result.Data, input) {
		result.Data = input
	}
	result.States = append(result.States, Done)
	return result
}

// fail records a stage failure. result.Data keeps the most recent good
// bytes.
func (t *Transformer) fail(result *Result, name, stage string, err error) {
	t.stats.failed.Add(1)
	stageErr := &StageError{Stage: stage, Module: name, Err: err}
	t.logger.Error("transform stage failed, loading previous bytes",
		"module", name,
		"stage", stage,
		"error", err,
	)
	result.Err = stageErr
	result.States = append(result.States, Failed, Done)
}

func sameSlice(a, b []byte) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}
