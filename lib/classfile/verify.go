// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalid is matched by every [Verify] failure.
var ErrInvalid = errors.New("class file fails verification")

// maxVerifyProblems bounds how many problems one Verify call reports.
const maxVerifyProblems = 20

// Method handle reference kinds.
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

// Verify parses data and checks it with [ClassFile.Verify].
func Verify(data []byte) error {
	cf, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cf.Verify()
}

// Verify checks the structural constraints a JVM applies when loading a
// class: every constant pool reference resolves to an entry of the
// right kind, names and descriptors are well-formed, fields and
// methods are unique, and Code attributes are internally consistent.
// The first problems found are reported together.
func (cf *ClassFile) Verify() error {
	v := &verifier{cf: cf, pool: cf.Pool}
	v.constantPool()
	v.header()
	v.members(cf.Fields, false)
	v.members(cf.Methods, true)
	v.attributes("class", cf.Attributes)
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(v.problems...))
}

type verifier struct {
	cf       *ClassFile
	pool     *Pool
	problems []error
}

func (v *verifier) fail(format string, args ...any) {
	if len(v.problems) < maxVerifyProblems {
		v.problems = append(v.problems, fmt.Errorf(format, args...))
	}
}

// utf8 resolves a Utf8 index, recording a problem on failure.
func (v *verifier) utf8(index uint16, context string) (string, bool) {
	text, err := v.pool.Utf8(index)
	if err != nil {
		v.fail("%s: %v", context, err)
		return "", false
	}
	return text, true
}

func (v *verifier) require(index uint16, context string, tags ...Tag) (Constant, bool) {
	constant, err := v.pool.Get(index)
	if err != nil {
		v.fail("%s: %v", context, err)
		return Constant{}, false
	}
	for _, tag := range tags {
		if constant.Tag == tag {
			return constant, true
		}
	}
	v.fail("%s: constant %d is %s, want %v", context, index, constant.Tag, tags)
	return Constant{}, false
}

// nameAndType checks a NameAndType reference and returns its
// descriptor.
func (v *verifier) nameAndType(index uint16, context string) (name, descriptor string, ok bool) {
	if _, ok := v.require(index, context, TagNameAndType); !ok {
		return "", "", false
	}
	name, descriptor, err := v.pool.NameAndType(index)
	if err != nil {
		v.fail("%s: %v", context, err)
		return "", "", false
	}
	return name, descriptor, true
}

func (v *verifier) constantPool() {
	if v.pool == nil {
		v.fail("missing constant pool")
		return
	}
	for i := 1; i < v.pool.Count(); i++ {
		index := uint16(i)
		constant := v.pool.entries[index]
		context := fmt.Sprintf("constant %d (%s)", index, constant.Tag)
		switch constant.Tag {
		case TagClass:
			if name, ok := v.utf8(constant.NameIndex, context); ok && !ValidClassEntryName(name) {
				v.fail("%s: malformed class name %q", context, name)
			}
		case TagString:
			v.utf8(constant.StringIndex, context)
		case TagModule, TagPackage:
			v.utf8(constant.NameIndex, context)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			v.require(constant.ClassIndex, context+" owner", TagClass)
			name, descriptor, ok := v.nameAndType(constant.NameAndTypeIndex, context)
			if !ok {
				continue
			}
			if constant.Tag == TagFieldref {
				if !ValidFieldDescriptor(descriptor) {
					v.fail("%s: field %s has malformed descriptor %q", context, name, descriptor)
				}
			} else if !ValidMethodDescriptor(descriptor) {
				v.fail("%s: method %s has malformed descriptor %q", context, name, descriptor)
			}
		case TagNameAndType:
			name, nameOK := v.utf8(constant.NameIndex, context+" name")
			descriptor, descriptorOK := v.utf8(constant.DescriptorIndex, context+" descriptor")
			if nameOK && name == "" {
				v.fail("%s: empty name", context)
			}
			if descriptorOK && !ValidFieldDescriptor(descriptor) && !ValidMethodDescriptor(descriptor) {
				v.fail("%s: malformed descriptor %q", context, descriptor)
			}
		case TagMethodHandle:
			v.methodHandle(constant, context)
		case TagMethodType:
			if descriptor, ok := v.utf8(constant.DescriptorIndex, context); ok && !ValidMethodDescriptor(descriptor) {
				v.fail("%s: malformed method descriptor %q", context, descriptor)
			}
		case TagDynamic, TagInvokeDynamic:
			_, descriptor, ok := v.nameAndType(constant.NameAndTypeIndex, context)
			if !ok {
				continue
			}
			if constant.Tag == TagDynamic && !ValidFieldDescriptor(descriptor) {
				v.fail("%s: malformed field descriptor %q", context, descriptor)
			}
			if constant.Tag == TagInvokeDynamic && !ValidMethodDescriptor(descriptor) {
				v.fail("%s: malformed method descriptor %q", context, descriptor)
			}
		}
	}
}

func (v *verifier) methodHandle(constant Constant, context string) {
	var tags []Tag
	switch constant.ReferenceKind {
	case RefGetField, RefGetStatic, RefPutField, RefPutStatic:
		tags = []Tag{TagFieldref}
	case RefInvokeVirtual, RefNewInvokeSpecial:
		tags = []Tag{TagMethodref}
	case RefInvokeStatic, RefInvokeSpecial:
		tags = []Tag{TagMethodref, TagInterfaceMethodref}
	case RefInvokeInterface:
		tags = []Tag{TagInterfaceMethodref}
	default:
		v.fail("%s: unknown reference kind %d", context, constant.ReferenceKind)
		return
	}
	v.require(constant.ReferenceIndex, context+" reference", tags...)
}

func (v *verifier) header() {
	if v.pool == nil {
		return
	}
	v.require(v.cf.ThisClass, "this_class", TagClass)
	if v.cf.SuperClass != 0 {
		v.require(v.cf.SuperClass, "super_class", TagClass)
	}
	for i, index := range v.cf.Interfaces {
		v.require(index, fmt.Sprintf("interface %d", i), TagClass)
	}
}

func (v *verifier) members(members []Member, methods bool) {
	if v.pool == nil {
		return
	}
	kind := "field"
	if methods {
		kind = "method"
	}
	seen := make(map[string]bool, len(members))
	for i, member := range members {
		context := fmt.Sprintf("%s %d", kind, i)
		name, nameOK := v.utf8(member.NameIndex, context+" name")
		descriptor, descriptorOK := v.utf8(member.DescriptorIndex, context+" descriptor")
		if !nameOK || !descriptorOK {
			continue
		}
		context = fmt.Sprintf("%s %s%s", kind, name, descriptor)
		if !ValidMemberName(name, methods) {
			v.fail("%s: malformed name", context)
		}
		if methods && !ValidMethodDescriptor(descriptor) || !methods && !ValidFieldDescriptor(descriptor) {
			v.fail("%s: malformed descriptor", context)
		}
		key := name + " " + descriptor
		if seen[key] {
			v.fail("%s: declared twice", context)
		}
		seen[key] = true
		v.attributes(context, member.Attributes)
	}
}

func (v *verifier) attributes(context string, attributes []Attribute) {
	if v.pool == nil {
		return
	}
	for _, attribute := range attributes {
		name, ok := v.utf8(attribute.NameIndex, context+" attribute name")
		if !ok {
			continue
		}
		switch name {
		case AttributeCode:
			v.code(context, attribute.Info)
		case AttributeSignature:
			if len(attribute.Info) != 2 {
				v.fail("%s: Signature attribute is %d bytes, want 2", context, len(attribute.Info))
				continue
			}
			v.utf8(binary.BigEndian.Uint16(attribute.Info), context+" Signature")
		}
	}
}

func (v *verifier) code(context string, info []byte) {
	code, err := ParseCode(info)
	if err != nil {
		v.fail("%s: %v", context, err)
		return
	}
	length := len(code.Code)
	for i, handler := range code.ExceptionTable {
		handlerContext := fmt.Sprintf("%s exception handler %d", context, i)
		if handler.StartPC >= handler.EndPC || int(handler.EndPC) > length || int(handler.HandlerPC) >= length {
			v.fail("%s: range [%d,%d) handler %d outside code of %d bytes",
				handlerContext, handler.StartPC, handler.EndPC, handler.HandlerPC, length)
		}
		if handler.CatchType != 0 {
			v.require(handler.CatchType, handlerContext+" catch type", TagClass)
		}
	}
	for _, attribute := range code.Attributes {
		v.utf8(attribute.NameIndex, context+" Code attribute name")
	}
}
