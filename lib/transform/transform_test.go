// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"bytes"
	"errors"
	"slices"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/bureau-foundation/classforge/lib/bsdiff"
	"github.com/bureau-foundation/classforge/lib/catalog"
	"github.com/bureau-foundation/classforge/lib/classfile"
	"github.com/bureau-foundation/classforge/lib/config"
	"github.com/bureau-foundation/classforge/lib/contentid"
	"github.com/bureau-foundation/classforge/lib/keytable"
	"github.com/bureau-foundation/classforge/lib/remap"
	"github.com/bureau-foundation/classforge/lib/testutil"
)

var firstKey = []byte{0x6E, 0x47, 0xED, 0x02, 0x4D, 0x3F, 0x60, 0x5C, 0x28, 0xB6, 0xF7, 0xBE, 0x0B, 0xCE}

// callerOf builds a class whose only method calls owner.name(I)V.
func callerOf(className, owner, name string) []byte {
	builder := testutil.NewClass(className, "java/lang/Object")
	call := builder.Methodref(owner, name, "(I)V")
	code := []byte{0x04}
	code = append(code, testutil.Invoke(0xB8, call)...)
	code = append(code, 0xB1)
	builder.Method(testutil.AccPublic|testutil.AccStatic, "run", "()V", builder.Code(1, 0, code, nil))
	return builder.Bytes()
}

func sampleRemapper(t *testing.T, skip ...string) *remap.Remapper {
	t.Helper()
	table, err := remap.NewTable(nil, []remap.MemberRename{
		{Owner: "pkg/Old", Name: "method", Descriptor: "(I)V", To: "callNew"},
	}, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return remap.NewRemapper(table, remap.NewSkipSet(skip...))
}

func sampleDecoder(t *testing.T) *keytable.Decoder {
	t.Helper()
	decoder, err := keytable.New(keytable.Options{Tables: [][]byte{
		firstKey,
		{0x73, 0xBA, 0x2F, 0xCC},
	}})
	if err != nil {
		t.Fatalf("keytable.New: %v", err)
	}
	return decoder
}

func newTransformer(t *testing.T, options Options) *Transformer {
	t.Helper()
	transformer, err := New(options)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return transformer
}

// patchFor returns a catalog and source holding one gzip patch from
// original to target.
func patchFor(t *testing.T, original, target []byte) (*catalog.Catalog, catalog.Source) {
	t.Helper()
	patch, err := bsdiff.Encode(original, target, bsdiff.CompressionGzip)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return catalogWith(t, original, patch)
}

func catalogWith(t *testing.T, original, blob []byte) (*catalog.Catalog, catalog.Source) {
	t.Helper()
	identifier, err := contentid.New(contentid.SHA3_256)
	if err != nil {
		t.Fatalf("contentid.New: %v", err)
	}
	patches, err := catalog.New([]catalog.Entry{
		{Key: identifier.Key(original), Locator: "/Sample.patch", Name: "Sample"},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	source := catalog.NewFSSource(fstest.MapFS{"Sample.patch": {Data: blob}})
	return patches, source
}

func requireStates(t *testing.T, result Result, want ...State) {
	t.Helper()
	if !slices.Equal(result.States, want) {
		t.Errorf("states = %v, want %v", result.States, want)
	}
}

func TestPassthroughOutsideNamespace(t *testing.T) {
	transformer := newTransformer(t, Options{Namespace: "com/maddox/", Remapper: sampleRemapper(t)})
	input := callerOf("pkg/Sample", "pkg/Old", "method")

	result := transformer.Process("pkg/Sample", input)
	if !sameSlice(result.Data, input) {
		t.Error("passthrough should return the input slice")
	}
	if result.Key != "" {
		t.Errorf("passthrough computed a key: %s", result.Key)
	}
	requireStates(t, result, Start, Passthrough, Done)
	if result.Final() != Passthrough {
		t.Errorf("Final = %v", result.Final())
	}
}

func TestIdentityForSkippedUnpatchedClass(t *testing.T) {
	transformer := newTransformer(t, Options{Remapper: sampleRemapper(t, "pkg/Sample")})
	input := callerOf("pkg/Sample", "pkg/Old", "method")

	result := transformer.Process("pkg/Sample", input)
	if !sameSlice(result.Data, input) {
		t.Error("skipped class should come back as the input slice")
	}
	requireStates(t, result, Start, Filtered, Digested, PatchChecked, Unpatched, SkipChecked, Unchanged, Done)
	if result.Err != nil {
		t.Errorf("Err = %v", result.Err)
	}
}

func TestRemapEndToEnd(t *testing.T) {
	transformer := newTransformer(t, Options{Namespace: "pkg/", Remapper: sampleRemapper(t)})
	input := callerOf("pkg/Sample", "pkg/Old", "method")

	result := transformer.Process("pkg/Sample", input)
	if result.Err != nil {
		t.Fatalf("Process: %v", result.Err)
	}
	requireStates(t, result, Start, Filtered, Digested, PatchChecked, Unpatched, SkipChecked, Remapped, Done)
	if !result.Changed(input) {
		t.Fatal("class was not rewritten")
	}

	cf, err := classfile.Parse(result.Data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	found := false
	for index := 1; index < cf.Pool.Count(); index++ {
		ref, err := cf.Pool.MemberRef(uint16(index))
		if err != nil {
			continue
		}
		if ref.Owner == "pkg/Old" && ref.Name == "callNew" && ref.Descriptor == "(I)V" {
			found = true
		}
	}
	if !found {
		t.Error("no reference to pkg/Old.callNew(I)V")
	}
	if err := classfile.Verify(result.Data); err != nil {
		t.Errorf("Verify: %v", err)
	}

	again := transformer.Transform("pkg/Sample", result.Data)
	if !sameSlice(again, result.Data) {
		t.Error("transforming a remapped class again should change nothing")
	}
}

func TestUnreferencedClassIsUnchanged(t *testing.T) {
	transformer := newTransformer(t, Options{Remapper: sampleRemapper(t)})
	input := callerOf("pkg/Sample", "pkg/Elsewhere", "method")

	result := transformer.Process("pkg/Sample", input)
	if !sameSlice(result.Data, input) {
		t.Error("class with nothing to rename should come back as the input slice")
	}
	if result.Final() != Unchanged {
		t.Errorf("Final = %v, want unchanged", result.Final())
	}
}

func TestPatchAppendsBytes(t *testing.T) {
	original := callerOf("com/maddox/rts/SFS", "pkg/Old", "method")
	target := append(bytes.Clone(original), 0xDE, 0xAD, 0xBE, 0xEF)
	patches, source := patchFor(t, original, target)

	transformer := newTransformer(t, Options{
		Catalog:  patches,
		Source:   source,
		Remapper: sampleRemapper(t, "com/maddox/rts/SFS"),
	})
	result := transformer.Process("com/maddox/rts/SFS", original)
	if result.Err != nil {
		t.Fatalf("Process: %v", result.Err)
	}
	if len(result.Data) != len(original)+4 {
		t.Errorf("patched length = %d, want %d", len(result.Data), len(original)+4)
	}
	if !bytes.Equal(result.Data, target) {
		t.Error("patched bytes differ from the target")
	}
	if result.Patch == nil || result.Patch.Locator != "/Sample.patch" {
		t.Errorf("Patch = %+v", result.Patch)
	}
	requireStates(t, result, Start, Filtered, Digested, PatchChecked, Patched, SkipChecked, Unchanged, Done)
	if stats := transformer.Stats(); stats.Patched != 1 {
		t.Errorf("Stats.Patched = %d", stats.Patched)
	}
}

func TestPatchThenRemap(t *testing.T) {
	original := callerOf("pkg/Sample", "pkg/Elsewhere", "method")
	target := callerOf("pkg/Sample", "pkg/Old", "method")
	patches, source := patchFor(t, original, target)

	transformer := newTransformer(t, Options{Catalog: patches, Source: source, Remapper: sampleRemapper(t)})
	result := transformer.Process("pkg/Sample", original)
	if result.Err != nil {
		t.Fatalf("Process: %v", result.Err)
	}
	requireStates(t, result, Start, Filtered, Digested, PatchChecked, Patched, SkipChecked, Remapped, Done)

	direct := transformer.Transform("pkg/Sample", target)
	if !bytes.Equal(result.Data, direct) {
		t.Error("patch-then-remap differs from remapping the patched class")
	}
}

func TestRemapFailureKeepsPatchedBytes(t *testing.T) {
	original := callerOf("pkg/Sample", "pkg/Old", "method")
	target := append(bytes.Clone(original), 0x00)
	patches, source := patchFor(t, original, target)

	transformer := newTransformer(t, Options{Catalog: patches, Source: source, Remapper: sampleRemapper(t)})
	result := transformer.Process("pkg/Sample", original)

	if !bytes.Equal(result.Data, target) {
		t.Error("a failed remap should leave the patched bytes")
	}
	var stageErr *StageError
	if !errors.As(result.Err, &stageErr) || stageErr.Stage != StageRemap || stageErr.Module != "pkg/Sample" {
		t.Fatalf("Err = %v, want a remap StageError", result.Err)
	}
	var remapErr *remap.Error
	if !errors.As(result.Err, &remapErr) {
		t.Errorf("Err = %v, want it to wrap *remap.Error", result.Err)
	}
	requireStates(t, result, Start, Filtered, Digested, PatchChecked, Patched, SkipChecked, Failed, Done)
}

func TestMissingPatchContinues(t *testing.T) {
	original := callerOf("pkg/Sample", "pkg/Old", "method")
	patches, _ := catalogWith(t, original, nil)

	transformer := newTransformer(t, Options{Catalog: patches, Remapper: sampleRemapper(t)})
	result := transformer.Process("pkg/Sample", original)
	if result.Err != nil {
		t.Fatalf("Process: %v", result.Err)
	}
	requireStates(t, result, Start, Filtered, Digested, PatchChecked, Unpatched, SkipChecked, Remapped, Done)
	if stats := transformer.Stats(); stats.PatchMissing != 1 || stats.Remapped != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestCorruptPatchKeepsOriginal(t *testing.T) {
	original := callerOf("pkg/Sample", "pkg/Old", "method")
	patches, source := catalogWith(t, original, []byte("not a patch at all, just text"))

	transformer := newTransformer(t, Options{Catalog: patches, Source: source, Remapper: sampleRemapper(t)})
	result := transformer.Process("pkg/Sample", original)

	if !sameSlice(result.Data, original) {
		t.Error("a failed patch should return the original slice")
	}
	var stageErr *StageError
	if !errors.As(result.Err, &stageErr) || stageErr.Stage != StagePatch {
		t.Fatalf("Err = %v, want a patch StageError", result.Err)
	}
	if !errors.Is(result.Err, bsdiff.ErrCorrupt) {
		t.Errorf("Err = %v, want it to wrap ErrCorrupt", result.Err)
	}
	requireStates(t, result, Start, Filtered, Digested, PatchChecked, Failed, Done)
	if transformer.Stats().Failed != 1 {
		t.Errorf("Stats.Failed = %d", transformer.Stats().Failed)
	}
}

func TestDecryptObfuscatedClass(t *testing.T) {
	transformer := newTransformer(t, Options{Remapper: sampleRemapper(t), Decoder: sampleDecoder(t)})
	input := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10}

	result := transformer.Process("com/maddox/Hidden", input)
	if result.Err != nil {
		t.Fatalf("Process: %v", result.Err)
	}
	requireStates(t, result, Start, Filtered, Digested, PatchChecked, Unpatched, SkipChecked, Decrypted, Done)
	if result.KeyTable != 0 {
		t.Errorf("KeyTable = %d, want 0", result.KeyTable)
	}
	if !bytes.Equal(result.Data[:keytable.HeaderSize], keytable.DefaultCanonical[:]) {
		t.Errorf("header = % X", result.Data[:keytable.HeaderSize])
	}
	for i, b := range input {
		if want := b ^ firstKey[i%len(firstKey)]; result.Data[keytable.HeaderSize+i] != want {
			t.Fatalf("body[%d] = %#x, want %#x", i, result.Data[keytable.HeaderSize+i], want)
		}
	}

	second := transformer.Process("com/maddox/Hidden2", input)
	if second.KeyTable != 1 {
		t.Errorf("second KeyTable = %d, want 1", second.KeyTable)
	}
	third := transformer.Process("com/maddox/Hidden3", input)
	if !sameSlice(third.Data, input) || third.Final() != Unchanged {
		t.Errorf("exhausted decoder: final %v, same slice %v", third.Final(), sameSlice(third.Data, input))
	}
	if stats := transformer.Stats(); stats.Decrypted != 2 {
		t.Errorf("Stats.Decrypted = %d", stats.Decrypted)
	}
}

func TestSkippedObfuscatedClassIsDecoded(t *testing.T) {
	decoder := sampleDecoder(t)
	transformer := newTransformer(t, Options{Remapper: sampleRemapper(t, "com/maddox/Hidden"), Decoder: decoder})
	input := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}

	result := transformer.Process("com/maddox/Hidden", input)
	if result.Final() != Decrypted || result.KeyTable != 0 {
		t.Fatalf("skipped obfuscated class: final %v, key table %d", result.Final(), result.KeyTable)
	}
	if len(result.Data) != len(input)+8 {
		t.Errorf("decoded length = %d, want %d", len(result.Data), len(input)+8)
	}

	// The next obfuscated class gets the next table, as in load order.
	next := transformer.Process("com/maddox/Other", input)
	if next.Final() != Decrypted || next.KeyTable != 1 {
		t.Errorf("next obfuscated class: final %v, key table %d", next.Final(), next.KeyTable)
	}
}

func TestSkippedPlainClassIsUnchanged(t *testing.T) {
	decoder := sampleDecoder(t)
	transformer := newTransformer(t, Options{Remapper: sampleRemapper(t, "pkg/Sample"), Decoder: decoder})
	input := callerOf("pkg/Sample", "pkg/Old", "method")

	result := transformer.Process("pkg/Sample", input)
	if !sameSlice(result.Data, input) || result.Final() != Unchanged {
		t.Errorf("skipped plain class: final %v", result.Final())
	}
	if decoder.Cursor() != 0 {
		t.Error("skipped plain class consumed a key table")
	}
}

func TestDefaultConfigKeyTablesFollowLoadOrder(t *testing.T) {
	transformer, err := NewFromConfig(config.Default(), nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	obfuscated := []byte{0x10, 0x20}

	tests := []struct {
		name     string
		keyTable int
	}{
		{name: "com/maddox/rts/SFSInputStream", keyTable: 0},
		{name: "com/maddox/il2/game/Main", keyTable: 1},
	}
	// Subtests run in order and share the decoder.
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := transformer.Process(test.name, obfuscated)
			if result.Final() != Decrypted || result.KeyTable != test.keyTable {
				t.Errorf("final %v, key table %d, want decrypted with table %d",
					result.Final(), result.KeyTable, test.keyTable)
			}
		})
	}
}

func TestPlainClassDoesNotConsumeKeys(t *testing.T) {
	decoder := sampleDecoder(t)
	transformer := newTransformer(t, Options{Remapper: sampleRemapper(t), Decoder: decoder})

	result := transformer.Process("pkg/Sample", callerOf("pkg/Sample", "pkg/Old", "method"))
	if result.Final() != Remapped {
		t.Errorf("Final = %v, want remapped", result.Final())
	}
	if decoder.Remaining() != 2 {
		t.Errorf("Remaining = %d, want 2", decoder.Remaining())
	}
}

func TestMalformedClassFailsOpen(t *testing.T) {
	transformer := newTransformer(t, Options{Remapper: sampleRemapper(t)})
	input := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x03, 0x00, 0x2D, 0x00}

	data := transformer.Transform("pkg/Broken", input)
	if !sameSlice(data, input) {
		t.Error("Transform of a malformed class should return the input slice")
	}
	if transformer.Stats().Failed != 1 {
		t.Errorf("Stats.Failed = %d", transformer.Stats().Failed)
	}
}

func TestNewFromDefaultConfig(t *testing.T) {
	transformer, err := NewFromConfig(config.Default(), nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if transformer.Namespace() != "com/maddox/" || transformer.Decoder() == nil || transformer.Decoder().Len() != 5 {
		t.Fatalf("transformer not configured from defaults")
	}

	builder := testutil.NewClass("com/maddox/il2/game/Mission", "java/lang/Object")
	mount := builder.Methodref("com/maddox/rts/SFS", "mount", "(Ljava/lang/String;)V")
	code := []byte{0x2A}
	code = append(code, testutil.Invoke(0xB8, mount)...)
	code = append(code, 0xB1)
	builder.Method(testutil.AccPublic|testutil.AccStatic, "load", "(Ljava/lang/String;)V", builder.Code(1, 1, code, nil))
	input := builder.Bytes()

	result := transformer.Process("com/maddox/il2/game/Mission", input)
	if result.Err != nil || result.Final() != Remapped {
		t.Fatalf("Process: final %v, err %v", result.Final(), result.Err)
	}
	cf, err := classfile.Parse(result.Data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ref, err := cf.Pool.MemberRef(mount)
	if err != nil {
		t.Fatalf("MemberRef: %v", err)
	}
	if ref.Owner != "com/maddox/rts/PhysFS" || ref.Name != "mountArchive" || ref.Descriptor != "(Ljava/lang/String;)V" {
		t.Errorf("reference = %+v, want PhysFS.mountArchive", ref)
	}

	// The replaced class itself is skipped.
	sfs := testutil.NewClass("com/maddox/rts/SFS", "java/lang/Object").Bytes()
	if data := transformer.Transform("com/maddox/rts/SFS", sfs); !sameSlice(data, sfs) {
		t.Error("com/maddox/rts/SFS should be skipped")
	}
}

func TestNewFromConfigRejectsInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Digest = "md5"
	cfg.Decryption.Tables = append(cfg.Decryption.Tables, "zz")

	_, err := NewFromConfig(cfg, nil)
	if err == nil {
		t.Fatal("NewFromConfig should fail")
	}
	if !errors.Is(err, contentid.ErrUnsupportedAlgorithm) {
		t.Errorf("err = %v, want ErrUnsupportedAlgorithm among the problems", err)
	}
}

func TestConcurrentTransforms(t *testing.T) {
	transformer := newTransformer(t, Options{Remapper: sampleRemapper(t), Decoder: sampleDecoder(t)})
	plain := callerOf("pkg/Sample", "pkg/Old", "method")
	want := transformer.Transform("pkg/Sample", plain)
	obfuscated := []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90}

	const workers = 16
	var wg sync.WaitGroup
	decoded := make(chan int, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := transformer.Transform("pkg/Sample", plain); !bytes.Equal(got, want) {
				t.Error("concurrent remap produced different bytes")
			}
			if result := transformer.Process("pkg/Hidden", obfuscated); result.KeyTable >= 0 {
				decoded <- result.KeyTable
			}
		}()
	}
	wg.Wait()
	close(decoded)

	var indices []int
	for index := range decoded {
		indices = append(indices, index)
	}
	slices.Sort(indices)
	if !slices.Equal(indices, []int{0, 1}) {
		t.Errorf("key tables used = %v, want [0 1]", indices)
	}
	if stats := transformer.Stats(); stats.Seen != 2*workers+1 || stats.Decrypted != 2 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestStateText(t *testing.T) {
	for state := Start; state <= Failed; state++ {
		text, err := state.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", state, err)
		}
		var parsed State
		if err := parsed.UnmarshalText(text); err != nil || parsed != state {
			t.Errorf("UnmarshalText(%s) = %v, %v", text, parsed, err)
		}
	}
	if PatchChecked.String() != "patch-checked" {
		t.Errorf("PatchChecked = %s", PatchChecked)
	}
	if _, err := State(200).MarshalText(); err == nil {
		t.Error("MarshalText of an unknown state should fail")
	}
	if _, err := ParseState("exploded"); err == nil {
		t.Error("ParseState of an unknown name should fail")
	}
}
