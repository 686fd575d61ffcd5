// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"fmt"
	"strings"
)

// NameMapper maps an internal class name to its replacement. Returning
// the argument leaves the name unchanged.
type NameMapper func(internalName string) string

// maxArrayDimensions is the JVM limit on array dimensions in a
// descriptor.
const maxArrayDimensions = 255

// ValidInternalName reports whether name is a well-formed binary class
// name in internal form ("java/lang/String"): non-empty slash-separated
// segments with none of the characters . ; [ in any segment.
func ValidInternalName(name string) bool {
	if name == "" {
		return false
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || strings.ContainsAny(segment, ".;[") {
			return false
		}
	}
	return true
}

// ValidClassEntryName reports whether name may appear in a Class
// constant: an internal name or an array field descriptor.
func ValidClassEntryName(name string) bool {
	if strings.HasPrefix(name, "[") {
		return ValidFieldDescriptor(name)
	}
	return ValidInternalName(name)
}

// ValidMemberName reports whether name is a legal unqualified field or
// method name. Only methods may be named <init> or <clinit>.
func ValidMemberName(name string, method bool) bool {
	if name == "" {
		return false
	}
	if method && (name == "<init>" || name == "<clinit>") {
		return true
	}
	forbidden := ".;[/"
	if method {
		forbidden += "<>"
	}
	return !strings.ContainsAny(name, forbidden)
}

// fieldTypeEnd returns the offset just past the field type starting at
// start, or -1 if there is none.
func fieldTypeEnd(descriptor string, start int) int {
	position := start
	for position < len(descriptor) && descriptor[position] == '[' {
		position++
	}
	if position-start > maxArrayDimensions || position >= len(descriptor) {
		return -1
	}
	switch descriptor[position] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return position + 1
	case 'L':
		semicolon := strings.IndexByte(descriptor[position:], ';')
		if semicolon < 0 || !ValidInternalName(descriptor[position+1:position+semicolon]) {
			return -1
		}
		return position + semicolon + 1
	default:
		return -1
	}
}

// ValidFieldDescriptor reports whether descriptor is a single field
// type ("I", "[Ljava/lang/String;").
func ValidFieldDescriptor(descriptor string) bool {
	return fieldTypeEnd(descriptor, 0) == len(descriptor)
}

// ValidMethodDescriptor reports whether descriptor is a method
// descriptor ("(IJ)V").
func ValidMethodDescriptor(descriptor string) bool {
	if !strings.HasPrefix(descriptor, "(") {
		return false
	}
	position := 1
	for position < len(descriptor) && descriptor[position] != ')' {
		position = fieldTypeEnd(descriptor, position)
		if position < 0 {
			return false
		}
	}
	if position >= len(descriptor) {
		return false
	}
	position++
	if descriptor[position:] == "V" {
		return true
	}
	return fieldTypeEnd(descriptor, position) == len(descriptor)
}

// MapDescriptor rewrites every class name in a field or method
// descriptor through mapper. The descriptor must be well-formed. An
// unchanged descriptor is returned as is.
func MapDescriptor(descriptor string, mapper NameMapper) (string, error) {
	if !ValidFieldDescriptor(descriptor) && !ValidMethodDescriptor(descriptor) {
		return "", fmt.Errorf("malformed descriptor %q", descriptor)
	}
	if strings.IndexByte(descriptor, 'L') < 0 {
		return descriptor, nil
	}

	var out strings.Builder
	out.Grow(len(descriptor))
	changed := false
	for position := 0; position < len(descriptor); {
		if descriptor[position] != 'L' {
			out.WriteByte(descriptor[position])
			position++
			continue
		}
		semicolon := position + strings.IndexByte(descriptor[position:], ';')
		name := descriptor[position+1 : semicolon]
		mapped, err := mapName(name, mapper)
		if err != nil {
			return "", err
		}
		changed = changed || mapped != name
		out.WriteByte('L')
		out.WriteString(mapped)
		out.WriteByte(';')
		position = semicolon + 1
	}
	if !changed {
		return descriptor, nil
	}
	return out.String(), nil
}

// MapClassName rewrites the name held by a Class constant: a plain
// internal name goes through mapper, an array descriptor has its
// element class mapped.
func MapClassName(name string, mapper NameMapper) (string, error) {
	if strings.HasPrefix(name, "[") {
		return MapDescriptor(name, mapper)
	}
	return mapName(name, mapper)
}

func mapName(name string, mapper NameMapper) (string, error) {
	mapped := mapper(name)
	if mapped != name && !ValidInternalName(mapped) {
		return "", fmt.Errorf("class %s maps to malformed name %q", name, mapped)
	}
	return mapped, nil
}

// DescriptorClasses returns the class names a descriptor references,
// in order of appearance.
func DescriptorClasses(descriptor string) ([]string, error) {
	var names []string
	_, err := MapDescriptor(descriptor, func(name string) string {
		names = append(names, name)
		return name
	})
	return names, err
}
