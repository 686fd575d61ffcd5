// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remap

import (
	"encoding/binary"
	"fmt"

	"github.com/bureau-foundation/classforge/lib/classfile"
)

// rewriter applies one table to one parsed class. Every lookup reads
// the constant pool as it was before rewriting (original), so keys are
// always matched against old names no matter what has been rewritten
// already.
type rewriter struct {
	table    *Table
	cf       *classfile.ClassFile
	pool     *classfile.Pool
	original []classfile.Constant
	thisName string
	changed  bool
}

func newRewriter(table *Table, cf *classfile.ClassFile) (*rewriter, error) {
	rw := &rewriter{
		table:    table,
		cf:       cf,
		pool:     cf.Pool,
		original: cf.Pool.Entries(),
	}
	thisName, err := rw.className(cf.ThisClass)
	if err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	rw.thisName = thisName
	return rw, nil
}

func (rw *rewriter) constant(index uint16, tag classfile.Tag) (classfile.Constant, error) {
	if index == 0 || int(index) >= len(rw.original) || rw.original[index].Tag != tag {
		return classfile.Constant{}, fmt.Errorf("constant %d is not a %s", index, tag)
	}
	return rw.original[index], nil
}

func (rw *rewriter) utf8(index uint16) (string, error) {
	constant, err := rw.constant(index, classfile.TagUtf8)
	if err != nil {
		return "", err
	}
	return constant.Text, nil
}

func (rw *rewriter) className(index uint16) (string, error) {
	constant, err := rw.constant(index, classfile.TagClass)
	if err != nil {
		return "", err
	}
	return rw.utf8(constant.NameIndex)
}

func (rw *rewriter) nameAndType(index uint16) (name, descriptor string, err error) {
	constant, err := rw.constant(index, classfile.TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = rw.utf8(constant.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = rw.utf8(constant.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

func (rw *rewriter) mapDescriptor(descriptor string) (string, error) {
	return classfile.MapDescriptor(descriptor, rw.table.MapType)
}

// replaceUtf8 returns the index of a Utf8 entry holding text, which is
// current unless text differs from the value at current.
func (rw *rewriter) replaceUtf8(current uint16, old, text string) (uint16, error) {
	if text == old {
		return current, nil
	}
	rw.changed = true
	return rw.pool.AddUtf8(text)
}

func (rw *rewriter) set(index int, constant classfile.Constant) error {
	rw.changed = true
	return rw.pool.Set(uint16(index), constant)
}

func (rw *rewriter) run() (bool, error) {
	steps := []struct {
		name string
		run  func() error
	}{
		{"class constants", rw.classConstants},
		{"descriptors", rw.descriptorConstants},
		{"member references", rw.memberReferences},
		{"fields", func() error { return rw.members(rw.cf.Fields, false) }},
		{"methods", func() error { return rw.members(rw.cf.Methods, true) }},
		{"class attributes", func() error {
			_, err := rw.attributes(rw.cf.Attributes)
			return err
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return false, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return rw.changed, nil
}

// classConstants renames Class entries in place. A Class entry names
// exactly one class, so repointing it is correct for every user.
func (rw *rewriter) classConstants() error {
	for index, constant := range rw.original {
		if constant.Tag != classfile.TagClass {
			continue
		}
		name, err := rw.utf8(constant.NameIndex)
		if err != nil {
			return fmt.Errorf("constant %d: %w", index, err)
		}
		mapped, err := classfile.MapClassName(name, rw.table.MapType)
		if err != nil {
			return fmt.Errorf("constant %d: %w", index, err)
		}
		if mapped == name {
			continue
		}
		if constant.NameIndex, err = rw.pool.AddUtf8(mapped); err != nil {
			return err
		}
		if err := rw.set(index, constant); err != nil {
			return err
		}
	}
	return nil
}

// descriptorConstants remaps the descriptors of NameAndType and
// MethodType entries in place. Descriptor mapping depends on nothing
// but the descriptor, so every user of the entry wants the same result.
func (rw *rewriter) descriptorConstants() error {
	for index, constant := range rw.original {
		if constant.Tag != classfile.TagNameAndType && constant.Tag != classfile.TagMethodType {
			continue
		}
		descriptor, err := rw.utf8(constant.DescriptorIndex)
		if err != nil {
			return fmt.Errorf("constant %d: %w", index, err)
		}
		mapped, err := rw.mapDescriptor(descriptor)
		if err != nil {
			return fmt.Errorf("constant %d: %w", index, err)
		}
		if mapped == descriptor {
			continue
		}
		if constant.DescriptorIndex, err = rw.pool.AddUtf8(mapped); err != nil {
			return err
		}
		if err := rw.set(index, constant); err != nil {
			return err
		}
	}
	return nil
}

// memberReferences gives each renamed Fieldref, Methodref and
// InterfaceMethodref its own NameAndType. The original NameAndType may
// be shared with references to other owners and is left alone.
func (rw *rewriter) memberReferences() error {
	for index, constant := range rw.original {
		if !constant.Tag.IsMemberRef() {
			continue
		}
		owner, err := rw.className(constant.ClassIndex)
		if err != nil {
			return fmt.Errorf("constant %d owner: %w", index, err)
		}
		name, descriptor, err := rw.nameAndType(constant.NameAndTypeIndex)
		if err != nil {
			return fmt.Errorf("constant %d: %w", index, err)
		}

		var to string
		var renamed bool
		if constant.Tag == classfile.TagFieldref {
			to, renamed = rw.table.Field(owner, name)
		} else {
			to, renamed = rw.table.Method(owner, name, descriptor)
		}
		if !renamed {
			continue
		}

		mapped, err := rw.mapDescriptor(descriptor)
		if err != nil {
			return fmt.Errorf("constant %d: %w", index, err)
		}
		if constant.NameAndTypeIndex, err = rw.pool.AddNameAndType(to, mapped); err != nil {
			return err
		}
		if err := rw.set(index, constant); err != nil {
			return err
		}
	}
	return nil
}

// members rewrites declared fields or methods: names when this class
// owns a member rename, descriptors always, then member attributes.
func (rw *rewriter) members(members []classfile.Member, methods bool) error {
	for i := range members {
		member := &members[i]
		name, err := rw.utf8(member.NameIndex)
		if err != nil {
			return fmt.Errorf("member %d name: %w", i, err)
		}
		descriptor, err := rw.utf8(member.DescriptorIndex)
		if err != nil {
			return fmt.Errorf("member %d descriptor: %w", i, err)
		}

		to, renamed := "", false
		if methods {
			to, renamed = rw.table.Method(rw.thisName, name, descriptor)
		} else {
			to, renamed = rw.table.Field(rw.thisName, name)
		}
		if renamed {
			if member.NameIndex, err = rw.replaceUtf8(member.NameIndex, name, to); err != nil {
				return err
			}
		}

		mapped, err := rw.mapDescriptor(descriptor)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if member.DescriptorIndex, err = rw.replaceUtf8(member.DescriptorIndex, descriptor, mapped); err != nil {
			return err
		}

		if _, err := rw.attributes(member.Attributes); err != nil {
			return fmt.Errorf("%s%s: %w", name, descriptor, err)
		}
	}
	return nil
}

// attributes rewrites the attributes it understands in place and
// reports whether any changed.
func (rw *rewriter) attributes(attributes []classfile.Attribute) (bool, error) {
	anyChanged := false
	for i := range attributes {
		attribute := &attributes[i]
		name, err := rw.utf8(attribute.NameIndex)
		if err != nil {
			return false, fmt.Errorf("attribute %d name: %w", i, err)
		}

		var changed bool
		switch name {
		case classfile.AttributeCode:
			changed, err = rw.code(attribute)
		case classfile.AttributeSignature:
			changed, err = rw.patchIndex(attribute.Info, 0, rw.mapSignature)
		case classfile.AttributeLocalVariableTable:
			changed, err = rw.localVariables(attribute.Info, rw.mapDescriptor)
		case classfile.AttributeLocalVariableTypeTable:
			changed, err = rw.localVariables(attribute.Info, rw.mapSignature)
		case classfile.AttributeEnclosingMethod:
			changed, err = rw.enclosingMethod(attribute.Info)
		case classfile.AttributeRuntimeVisibleAnnotations, classfile.AttributeRuntimeInvisibleAnnotations:
			changed, err = rw.annotationAttribute(attribute.Info, false)
		case classfile.AttributeRuntimeVisibleParameterAnnotations, classfile.AttributeRuntimeInvisibleParameterAnnotations:
			changed, err = rw.annotationAttribute(attribute.Info, true)
		case classfile.AttributeAnnotationDefault:
			walker := &annotationWalker{rw: rw, info: attribute.Info}
			err = walker.elementValue()
			if err == nil && walker.position != len(walker.info) {
				err = fmt.Errorf("%d trailing bytes", len(walker.info)-walker.position)
			}
			changed = walker.changed
		}
		if err != nil {
			return false, fmt.Errorf("%s: %w", name, err)
		}
		anyChanged = anyChanged || changed
	}
	if anyChanged {
		rw.changed = true
	}
	return anyChanged, nil
}

func (rw *rewriter) mapSignature(signature string) (string, error) {
	return classfile.MapSignature(signature, rw.table.MapType)
}

// patchIndex maps the Utf8 entry whose index is stored at offset in
// info, and stores the index of the result there.
func (rw *rewriter) patchIndex(info []byte, offset int, mapper func(string) (string, error)) (bool, error) {
	if offset+2 > len(info) {
		return false, fmt.Errorf("index at offset %d overruns %d-byte attribute", offset, len(info))
	}
	index := binary.BigEndian.Uint16(info[offset:])
	text, err := rw.utf8(index)
	if err != nil {
		return false, err
	}
	mapped, err := mapper(text)
	if err != nil {
		return false, err
	}
	if mapped == text {
		return false, nil
	}
	newIndex, err := rw.pool.AddUtf8(mapped)
	if err != nil {
		return false, err
	}
	binary.BigEndian.PutUint16(info[offset:], newIndex)
	return true, nil
}

func (rw *rewriter) code(attribute *classfile.Attribute) (bool, error) {
	code, err := classfile.ParseCode(attribute.Info)
	if err != nil {
		return false, err
	}
	changed, err := rw.attributes(code.Attributes)
	if err != nil || !changed {
		return false, err
	}
	info, err := code.Bytes()
	if err != nil {
		return false, err
	}
	attribute.Info = info
	return true, nil
}

// localVariables rewrites the descriptor_index (or signature_index) of
// every LocalVariableTable or LocalVariableTypeTable row.
func (rw *rewriter) localVariables(info []byte, mapper func(string) (string, error)) (bool, error) {
	if len(info) < 2 {
		return false, fmt.Errorf("attribute of %d bytes has no row count", len(info))
	}
	rows := int(binary.BigEndian.Uint16(info))
	if len(info) != 2+10*rows {
		return false, fmt.Errorf("%d rows need %d bytes, have %d", rows, 2+10*rows, len(info))
	}
	changed := false
	for row := range rows {
		// start_pc, length, name_index, descriptor_index, index
		rowChanged, err := rw.patchIndex(info, 2+10*row+6, mapper)
		if err != nil {
			return false, fmt.Errorf("row %d: %w", row, err)
		}
		changed = changed || rowChanged
	}
	return changed, nil
}

// enclosingMethod renames the method an anonymous or local class is
// declared in, when the table renames it.
func (rw *rewriter) enclosingMethod(info []byte) (bool, error) {
	if len(info) != 4 {
		return false, fmt.Errorf("attribute is %d bytes, want 4", len(info))
	}
	classIndex := binary.BigEndian.Uint16(info)
	methodIndex := binary.BigEndian.Uint16(info[2:])
	if methodIndex == 0 {
		return false, nil
	}
	owner, err := rw.className(classIndex)
	if err != nil {
		return false, err
	}
	name, descriptor, err := rw.nameAndType(methodIndex)
	if err != nil {
		return false, err
	}
	to, renamed := rw.table.Method(owner, name, descriptor)
	if !renamed {
		return false, nil
	}
	mapped, err := rw.mapDescriptor(descriptor)
	if err != nil {
		return false, err
	}
	nat, err := rw.pool.AddNameAndType(to, mapped)
	if err != nil {
		return false, err
	}
	binary.BigEndian.PutUint16(info[2:], nat)
	return true, nil
}

func (rw *rewriter) annotationAttribute(info []byte, parameters bool) (bool, error) {
	walker := &annotationWalker{rw: rw, info: info}
	var err error
	if parameters {
		var count uint8
		if count, err = walker.u1(); err == nil {
			for i := 0; i < int(count) && err == nil; i++ {
				err = walker.annotations()
			}
		}
	} else {
		err = walker.annotations()
	}
	if err == nil && walker.position != len(info) {
		err = fmt.Errorf("%d trailing bytes", len(info)-walker.position)
	}
	if err != nil {
		return false, err
	}
	return walker.changed, nil
}

// annotationWalker walks annotation structures, remapping the type
// descriptors they reference.
type annotationWalker struct {
	rw       *rewriter
	info     []byte
	position int
	changed  bool
}

func (w *annotationWalker) need(n int) error {
	if w.position+n > len(w.info) {
		return fmt.Errorf("annotation data truncated at offset %d", w.position)
	}
	return nil
}

func (w *annotationWalker) u1() (uint8, error) {
	if err := w.need(1); err != nil {
		return 0, err
	}
	value := w.info[w.position]
	w.position++
	return value, nil
}

func (w *annotationWalker) u2() (uint16, error) {
	if err := w.need(2); err != nil {
		return 0, err
	}
	value := binary.BigEndian.Uint16(w.info[w.position:])
	w.position += 2
	return value, nil
}

// descriptor remaps the type descriptor index at the current position.
// "V" appears as a class literal for void and is left alone.
func (w *annotationWalker) descriptor() error {
	changed, err := w.rw.patchIndex(w.info, w.position, func(text string) (string, error) {
		if text == "V" {
			return text, nil
		}
		return w.rw.mapDescriptor(text)
	})
	if err != nil {
		return err
	}
	w.changed = w.changed || changed
	w.position += 2
	return nil
}

func (w *annotationWalker) annotations() error {
	count, err := w.u2()
	if err != nil {
		return err
	}
	for range count {
		if err := w.annotation(); err != nil {
			return err
		}
	}
	return nil
}

func (w *annotationWalker) annotation() error {
	if err := w.descriptor(); err != nil {
		return err
	}
	pairs, err := w.u2()
	if err != nil {
		return err
	}
	for range pairs {
		if _, err := w.u2(); err != nil { // element_name_index
			return err
		}
		if err := w.elementValue(); err != nil {
			return err
		}
	}
	return nil
}

func (w *annotationWalker) elementValue() error {
	tag, err := w.u1()
	if err != nil {
		return err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		_, err = w.u2()
		return err
	case 'e':
		if err := w.descriptor(); err != nil {
			return err
		}
		_, err = w.u2()
		return err
	case 'c':
		return w.descriptor()
	case '@':
		return w.annotation()
	case '[':
		count, err := w.u2()
		if err != nil {
			return err
		}
		for range count {
			if err := w.elementValue(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown element value tag %q at offset %d", tag, w.position-1)
	}
}
