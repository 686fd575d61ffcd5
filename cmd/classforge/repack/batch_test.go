// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repack

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/bureau-foundation/classforge/lib/manifest"
	"github.com/bureau-foundation/classforge/lib/testutil"
	"github.com/bureau-foundation/classforge/lib/transform"
)

var obfuscatedClass = []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90}

func sampleTree() map[string][]byte {
	return map[string][]byte{
		"pkg/Sample.class":     callerOf("pkg/Sample", "pkg/Old", "method"),
		"pkg/Keep.class":       callerOf("pkg/Keep", "pkg/Old", "method"),
		"pkg/Hidden.class":     obfuscatedClass,
		"other/Outside.class":  callerOf("other/Outside", "pkg/Old", "method"),
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\n"),
	}
}

func newJob(t *testing.T, input, output string, workers int) *batchJob {
	t.Helper()
	_, transformer := testPipeline(t)
	return &batchJob{
		input:       input,
		output:      output,
		workers:     workers,
		transformer: transformer,
		logger:      slog.New(slog.DiscardHandler),
	}
}

func TestBatchDirectory(t *testing.T) {
	input := testutil.WriteTree(t, sampleTree())
	output := filepath.Join(t.TempDir(), "out")

	job := newJob(t, input, output, 4)
	var manifestBuffer bytes.Buffer
	writer, err := manifest.NewWriter(&manifestBuffer, manifest.Header{Input: input, Output: output})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	job.manifest = writer

	summary, err := job.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Classes != 4 {
		t.Errorf("Classes = %d, want 4", summary.Classes)
	}
	if summary.Stats.Remapped != 1 || summary.Stats.Decrypted != 1 || summary.Stats.Passthrough != 1 {
		t.Errorf("Stats = %+v", summary.Stats)
	}

	tree := testutil.ReadTree(t, output)
	inputTree := sampleTree()
	if !remapped(tree["pkg/Sample.class"]) {
		t.Error("pkg/Sample was not remapped")
	}
	for _, unchanged := range []string{"pkg/Keep.class", "other/Outside.class", "META-INF/MANIFEST.MF"} {
		if !bytes.Equal(tree[unchanged], inputTree[unchanged]) {
			t.Errorf("%s changed", unchanged)
		}
	}
	if hidden := tree["pkg/Hidden.class"]; len(hidden) != len(obfuscatedClass)+8 {
		t.Errorf("pkg/Hidden.class is %d bytes, want the decoded %d", len(hidden), len(obfuscatedClass)+8)
	}

	loaded, err := manifest.Read(&manifestBuffer)
	if err != nil {
		t.Fatalf("manifest.Read: %v", err)
	}
	if len(loaded.Entries) != 4 {
		t.Fatalf("manifest has %d entries, want 4", len(loaded.Entries))
	}
	counts := loaded.Counts()
	want := map[transform.State]int{
		transform.Remapped:    1,
		transform.Unchanged:   1,
		transform.Decrypted:   1,
		transform.Passthrough: 1,
	}
	for state, count := range want {
		if counts[state] != count {
			t.Errorf("manifest counts[%s] = %d, want %d", state, counts[state], count)
		}
	}
	for _, entry := range loaded.Entries {
		if entry.Path == "pkg/Hidden.class" && (entry.KeyTable != 0 || entry.Module != "pkg/Hidden") {
			t.Errorf("Hidden entry = %+v", entry)
		}
	}
}

func writeJar(t *testing.T, path string, members []string, contents map[string][]byte) {
	t.Helper()
	var files []treeFile
	for _, name := range members {
		method := zip.Deflate
		if name == "pkg/Keep.class" {
			method = zip.Store
		}
		files = append(files, treeFile{
			path:     name,
			data:     contents[name],
			method:   method,
			modified: time.Date(2020, 1, 2, 3, 4, 6, 0, time.UTC),
		})
	}
	if err := writeArchive(path, files); err != nil {
		t.Fatalf("writeArchive: %v", err)
	}
}

func TestBatchArchive(t *testing.T) {
	members := []string{"META-INF/", "META-INF/MANIFEST.MF", "pkg/", "pkg/Sample.class", "pkg/Keep.class", "pkg/Hidden.class"}
	directory := t.TempDir()
	input := filepath.Join(directory, "game.jar")
	output := filepath.Join(directory, "patched", "game.jar")
	writeJar(t, input, members, sampleTree())

	if _, err := newJob(t, input, output, 2).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	reader, err := zip.OpenReader(output)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer reader.Close()

	if len(reader.File) != len(members) {
		t.Fatalf("output has %d members, want %d", len(reader.File), len(members))
	}
	for index, member := range reader.File {
		if member.Name != members[index] {
			t.Errorf("member %d = %s, want %s", index, member.Name, members[index])
		}
	}
	files, err := readArchive(output)
	if err != nil {
		t.Fatalf("readArchive: %v", err)
	}
	byPath := make(map[string]treeFile)
	for _, file := range files {
		byPath[file.path] = file
	}
	if !remapped(byPath["pkg/Sample.class"].data) {
		t.Error("pkg/Sample was not remapped")
	}
	if keep := byPath["pkg/Keep.class"]; keep.method != zip.Store || !bytes.Equal(keep.data, sampleTree()["pkg/Keep.class"]) {
		t.Errorf("pkg/Keep.class: method %d, data changed %v", keep.method, !bytes.Equal(keep.data, sampleTree()["pkg/Keep.class"]))
	}
	if !byPath["pkg/Sample.class"].modified.Equal(time.Date(2020, 1, 2, 3, 4, 6, 0, time.UTC)) {
		t.Errorf("modification time = %v", byPath["pkg/Sample.class"].modified)
	}
}

func TestBatchArchiveToDirectory(t *testing.T) {
	directory := t.TempDir()
	input := filepath.Join(directory, "game.zip")
	writeJar(t, input, []string{"pkg/Sample.class", "META-INF/MANIFEST.MF"}, sampleTree())
	output := filepath.Join(directory, "classes")

	if _, err := newJob(t, input, output, 1).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	tree := testutil.ReadTree(t, output)
	if len(tree) != 2 || !remapped(tree["pkg/Sample.class"]) {
		t.Errorf("extracted tree has %d files", len(tree))
	}
}

func TestRunHashIndependentOfWorkers(t *testing.T) {
	input := testutil.WriteTree(t, sampleTree())

	runHash := func(workers int) manifest.Hash {
		output := filepath.Join(t.TempDir(), "out")
		job := newJob(t, input, output, workers)
		var buffer bytes.Buffer
		writer, err := manifest.NewWriter(&buffer, manifest.Header{})
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		job.manifest = writer
		if _, err := job.run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		loaded, err := manifest.Read(&buffer)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		return loaded.RunHash()
	}

	if runHash(1) != runHash(8) {
		t.Error("run hash depends on the worker count")
	}
}

func TestBatchErrors(t *testing.T) {
	input := testutil.WriteTree(t, sampleTree())
	notArchive := filepath.Join(testutil.WriteTree(t, map[string][]byte{"classes.tar": []byte("x")}), "classes.tar")

	tests := []struct {
		name   string
		input  string
		output string
		want   string
	}{
		{"output is input", input, input, "is the input"},
		{"missing input", filepath.Join(input, "missing"), filepath.Join(t.TempDir(), "out"), "no such file"},
		{"unsupported input", notArchive, filepath.Join(t.TempDir(), "out"), "neither a directory"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := newJob(t, test.input, test.output, 1).run(context.Background())
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("run error = %v, want %q", err, test.want)
			}
		})
	}
}

func TestBatchCancelled(t *testing.T) {
	input := testutil.WriteTree(t, sampleTree())
	output := filepath.Join(t.TempDir(), "out")
	job := newJob(t, input, output, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := job.run(ctx)
		done <- err
	}()
	err := testutil.RequireReceive(t, done, 5*time.Second, "batch did not return after cancellation")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("run error = %v, want context.Canceled", err)
	}
	if tree := testutil.ReadTree(t, filepath.Dir(output)); len(tree) != 0 {
		t.Errorf("cancelled batch wrote %d files", len(tree))
	}
}

func TestRunWithManifest(t *testing.T) {
	input := testutil.WriteTree(t, sampleTree())
	directory := t.TempDir()
	manifestPath := filepath.Join(directory, "run.cbor")

	job := newJob(t, input, filepath.Join(directory, "out"), 2)
	summary, err := job.runWithManifest(context.Background(), manifestPath, manifest.Header{Input: input})
	if err != nil {
		t.Fatalf("runWithManifest: %v", err)
	}

	file, err := os.Open(manifestPath)
	if err != nil {
		t.Fatalf("opening manifest: %v", err)
	}
	defer file.Close()
	loaded, err := manifest.Read(file)
	if err != nil {
		t.Fatalf("manifest.Read: %v", err)
	}
	if len(loaded.Entries) != summary.Classes {
		t.Errorf("manifest has %d entries, want %d", len(loaded.Entries), summary.Classes)
	}
}

func TestRunWithManifestRemovesManifestOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		input func(t *testing.T) string
		ctx   func() context.Context
	}{
		{
			name:  "missing input",
			input: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
			ctx:   context.Background,
		},
		{
			name:  "cancelled",
			input: func(t *testing.T) string { return testutil.WriteTree(t, sampleTree()) },
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			directory := t.TempDir()
			manifestPath := filepath.Join(directory, "run.cbor")
			job := newJob(t, test.input(t), filepath.Join(directory, "out"), 1)

			if _, err := job.runWithManifest(test.ctx(), manifestPath, manifest.Header{}); err == nil {
				t.Fatal("runWithManifest succeeded")
			}
			if _, err := os.Stat(manifestPath); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("manifest left behind after a failed run: stat err = %v", err)
			}
		})
	}
}

func TestPrintSummary(t *testing.T) {
	var buffer bytes.Buffer
	printSummary(&buffer, batchSummary{Files: 5, Classes: 4, Stats: transform.Stats{Patched: 1, Remapped: 2, PatchMissing: 1}})
	output := buffer.String()
	for _, want := range []string{"5 files, 4 classes", "1 patched", "2 remapped", "1 catalog matches had no patch resource"} {
		if !strings.Contains(output, want) {
			t.Errorf("summary %q missing %q", output, want)
		}
	}
}

func TestManifestReport(t *testing.T) {
	loaded := &manifest.Manifest{
		Header: manifest.Header{Format: manifest.FormatVersion, Tool: "classforge test", Input: "in.jar", Output: "out.jar", Digest: "sha3-256"},
		Entries: []manifest.Entry{
			{Path: "pkg/Sample.class", Module: "pkg/Sample", Final: transform.Remapped, KeyTable: -1},
			{Path: "pkg/Hidden.class", Module: "pkg/Hidden", Final: transform.Decrypted, KeyTable: 3},
			{Path: "pkg/Broken.class", Module: "pkg/Broken", Final: transform.Failed, KeyTable: -1, Error: "remap stage failed for pkg/Broken"},
		},
	}

	var buffer bytes.Buffer
	newManifestReport(loaded, false).writeText(&buffer)
	output := buffer.String()
	for _, want := range []string{"in.jar", "run hash", "remapped", "key table 3", "remap stage failed for pkg/Broken", "PATH"} {
		if !strings.Contains(output, want) {
			t.Errorf("report missing %q:\n%s", want, output)
		}
	}

	failures := newManifestReport(loaded, true)
	if len(failures.Entries) != 1 || failures.Entries[0].Module != "pkg/Broken" {
		t.Errorf("failure report entries = %+v", failures.Entries)
	}
	if failures.Counts[transform.Remapped] != 1 {
		t.Error("failure report should keep the full counts")
	}
}
