// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import "testing"

func renameSFS(name string) string {
	switch name {
	case "com/maddox/rts/SFS":
		return "com/maddox/rts/PhysFS"
	case "pkg/Outer":
		return "pkg/Renamed"
	case "pkg/Outer$Inner":
		return "pkg/Renamed$Nested"
	case "pkg/Lonely$Inner":
		return "other/Unrelated"
	}
	return name
}

func TestDescriptorGrammar(t *testing.T) {
	tests := []struct {
		descriptor string
		field      bool
		method     bool
	}{
		{"I", true, false},
		{"[[J", true, false},
		{"Ljava/lang/String;", true, false},
		{"[Lcom/maddox/rts/SFS;", true, false},
		{"()V", false, true},
		{"(IJLjava/lang/String;[D)Z", false, true},
		{"(Ljava/lang/String;I)V", false, true},
		{"", false, false},
		{"V", false, false},
		{"L;", false, false},
		{"Ljava/lang/String", false, false},
		{"Ljava//String;", false, false},
		{"Ljava.lang.String;", false, false},
		{"II", false, false},
		{"(I", false, false},
		{"()", false, false},
		{"(V)V", false, false},
		{"()VV", false, false},
		{"[", false, false},
	}
	for _, test := range tests {
		if got := ValidFieldDescriptor(test.descriptor); got != test.field {
			t.Errorf("ValidFieldDescriptor(%q) = %v, want %v", test.descriptor, got, test.field)
		}
		if got := ValidMethodDescriptor(test.descriptor); got != test.method {
			t.Errorf("ValidMethodDescriptor(%q) = %v, want %v", test.descriptor, got, test.method)
		}
	}

	deep := ""
	for range 256 {
		deep += "["
	}
	if ValidFieldDescriptor(deep + "I") {
		t.Error("256 array dimensions should be rejected")
	}
	if !ValidFieldDescriptor(deep[1:] + "I") {
		t.Error("255 array dimensions should be accepted")
	}
}

func TestNameGrammar(t *testing.T) {
	internal := map[string]bool{
		"java/lang/Object":    true,
		"Top":                 true,
		"pkg/Outer$Inner":     true,
		"":                    false,
		"/pkg":                false,
		"pkg/":                false,
		"java.lang.Object":    false,
		"[Ljava/lang/Object;": false,
	}
	for name, want := range internal {
		if got := ValidInternalName(name); got != want {
			t.Errorf("ValidInternalName(%q) = %v, want %v", name, got, want)
		}
	}

	if !ValidClassEntryName("[Ljava/lang/Object;") || ValidClassEntryName("[X") {
		t.Error("ValidClassEntryName mishandles array names")
	}

	members := []struct {
		name   string
		method bool
		want   bool
	}{
		{"mount", true, true},
		{"<init>", true, true},
		{"<clinit>", true, true},
		{"<init>", false, true},
		{"a.b", false, false},
		{"a<b", true, false},
		{"a<b", false, true},
		{"a/b", false, false},
		{"", true, false},
	}
	for _, test := range members {
		if got := ValidMemberName(test.name, test.method); got != test.want {
			t.Errorf("ValidMemberName(%q, %v) = %v, want %v", test.name, test.method, got, test.want)
		}
	}
}

func TestMapDescriptor(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"I", "I"},
		{"Lcom/maddox/rts/SFS;", "Lcom/maddox/rts/PhysFS;"},
		{"[[Lcom/maddox/rts/SFS;", "[[Lcom/maddox/rts/PhysFS;"},
		{"(Lcom/maddox/rts/SFS;ILjava/lang/String;)Lcom/maddox/rts/SFS;", "(Lcom/maddox/rts/PhysFS;ILjava/lang/String;)Lcom/maddox/rts/PhysFS;"},
		{"(Ljava/lang/String;)V", "(Ljava/lang/String;)V"},
		// A class whose name starts with L must not confuse the scanner.
		{"(LLoader;J)LLoader;", "(LLoader;J)LLoader;"},
	}
	for _, test := range tests {
		got, err := MapDescriptor(test.input, renameSFS)
		if err != nil {
			t.Errorf("MapDescriptor(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("MapDescriptor(%q) = %q, want %q", test.input, got, test.want)
		}
	}

	if _, err := MapDescriptor("(I", renameSFS); err == nil {
		t.Error("MapDescriptor of a malformed descriptor should fail")
	}
	if _, err := MapDescriptor("Lpkg/A;", func(string) string { return "bad.name" }); err == nil {
		t.Error("MapDescriptor should reject a malformed mapped name")
	}
}

func TestMapClassName(t *testing.T) {
	tests := map[string]string{
		"com/maddox/rts/SFS":       "com/maddox/rts/PhysFS",
		"[Lcom/maddox/rts/SFS;":    "[Lcom/maddox/rts/PhysFS;",
		"[I":                       "[I",
		"com/maddox/rts/SFSReader": "com/maddox/rts/SFSReader",
	}
	for input, want := range tests {
		got, err := MapClassName(input, renameSFS)
		if err != nil {
			t.Errorf("MapClassName(%q): %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("MapClassName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDescriptorClasses(t *testing.T) {
	names, err := DescriptorClasses("(Lpkg/A;I[Lpkg/B;)Lpkg/A;")
	if err != nil {
		t.Fatalf("DescriptorClasses: %v", err)
	}
	want := []string{"pkg/A", "pkg/B", "pkg/A"}
	if len(names) != len(want) {
		t.Fatalf("DescriptorClasses = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("DescriptorClasses[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestMapSignature(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "field",
			input: "Ljava/util/List<Lcom/maddox/rts/SFS;>;",
			want:  "Ljava/util/List<Lcom/maddox/rts/PhysFS;>;",
		},
		{
			name:  "type variable",
			input: "TT;",
			want:  "TT;",
		},
		{
			name:  "wildcards",
			input: "Ljava/util/Map<*+Lcom/maddox/rts/SFS;>;",
			want:  "Ljava/util/Map<*+Lcom/maddox/rts/PhysFS;>;",
		},
		{
			name:  "class with bounds",
			input: "<T:Lcom/maddox/rts/SFS;U::Ljava/lang/Comparable<TT;>;>Ljava/lang/Object;Ljava/lang/Iterable<TU;>;",
			want:  "<T:Lcom/maddox/rts/PhysFS;U::Ljava/lang/Comparable<TT;>;>Ljava/lang/Object;Ljava/lang/Iterable<TU;>;",
		},
		{
			name:  "method",
			input: "<E:Ljava/lang/Exception;>(Ljava/util/List<-Lcom/maddox/rts/SFS;>;[TE;I)Lcom/maddox/rts/SFS;^TE;^Ljava/io/IOException;",
			want:  "<E:Ljava/lang/Exception;>(Ljava/util/List<-Lcom/maddox/rts/PhysFS;>;[TE;I)Lcom/maddox/rts/PhysFS;^TE;^Ljava/io/IOException;",
		},
		{
			name:  "void method",
			input: "()V",
			want:  "()V",
		},
		{
			name:  "inner class renamed with outer",
			input: "Lpkg/Outer<TT;>.Inner<TT;>;",
			want:  "Lpkg/Renamed<TT;>.Nested<TT;>;",
		},
		{
			name:  "inner class moved out keeps simple name",
			input: "Lpkg/Lonely<TT;>.Inner;",
			want:  "Lpkg/Lonely<TT;>.Inner;",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := MapSignature(test.input, renameSFS)
			if err != nil {
				t.Fatalf("MapSignature: %v", err)
			}
			if got != test.want {
				t.Errorf("MapSignature = %q, want %q", got, test.want)
			}
		})
	}
}

func TestMapSignatureRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"<>Ljava/lang/Object;",
		"Ljava/util/List<>;",
		"Ljava/util/List<Ljava/lang/String;",
		"(I",
		"()VX",
		"T;",
		"Q",
		"<T:Ljava/lang/Object;>",
	} {
		if ValidSignature(input) {
			t.Errorf("ValidSignature(%q) = true, want false", input)
		}
	}
}
