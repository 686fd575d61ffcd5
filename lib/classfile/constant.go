// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import "fmt"

// Tag identifies the kind of a constant pool entry.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

var tagNames = map[Tag]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

// String returns the JVMS name of the tag.
func (tag Tag) String() string {
	if name, ok := tagNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint8(tag))
}

// Wide reports whether entries with this tag occupy two pool slots.
func (tag Tag) Wide() bool {
	return tag == TagLong || tag == TagDouble
}

// IsMemberRef reports whether the tag is one of the three member
// reference kinds.
func (tag Tag) IsMemberRef() bool {
	return tag == TagFieldref || tag == TagMethodref || tag == TagInterfaceMethodref
}

// Constant is one constant pool entry. Only the fields meaningful for
// Tag are set:
//
//   - Utf8: Text
//   - Integer, Float: Value (low 32 bits)
//   - Long, Double: Value
//   - Class, Module, Package: NameIndex
//   - String: StringIndex
//   - Fieldref, Methodref, InterfaceMethodref: ClassIndex, NameAndTypeIndex
//   - NameAndType: NameIndex, DescriptorIndex
//   - MethodHandle: ReferenceKind, ReferenceIndex
//   - MethodType: DescriptorIndex
//   - Dynamic, InvokeDynamic: BootstrapIndex, NameAndTypeIndex
//
// Text holds the raw modified UTF-8 bytes of the entry. The zero
// Constant (Tag 0) fills index 0 and the slot after a Long or Double.
type Constant struct {
	Tag Tag

	Text  string
	Value uint64

	NameIndex        uint16
	DescriptorIndex  uint16
	ClassIndex       uint16
	NameAndTypeIndex uint16
	StringIndex      uint16
	BootstrapIndex   uint16
	ReferenceIndex   uint16
	ReferenceKind    uint8
}

// MaxPoolCount is the largest constant_pool_count a class file can
// declare.
const MaxPoolCount = 0xFFFF

// Pool is a class file constant pool. Indices are the JVM's: entry 0 is
// unused and a Long or Double is followed by an unusable slot.
type Pool struct {
	entries []Constant
	utf8    map[string]uint16
}

func newPool(capacity int) *Pool {
	return &Pool{entries: make([]Constant, 1, capacity)}
}

// Count returns constant_pool_count: one more than the highest index.
func (p *Pool) Count() int {
	return len(p.entries)
}

// Valid reports whether index names a usable entry.
func (p *Pool) Valid(index uint16) bool {
	return index > 0 && int(index) < len(p.entries) && p.entries[index].Tag != 0
}

// Get returns the entry at index.
func (p *Pool) Get(index uint16) (Constant, error) {
	if !p.Valid(index) {
		return Constant{}, fmt.Errorf("constant pool index %d out of range or unusable (count %d)", index, len(p.entries))
	}
	return p.entries[index], nil
}

// Lookup returns the entry at index, requiring it to have tag.
func (p *Pool) Lookup(index uint16, tag Tag) (Constant, error) {
	constant, err := p.Get(index)
	if err != nil {
		return Constant{}, err
	}
	if constant.Tag != tag {
		return Constant{}, fmt.Errorf("constant pool index %d is %s, want %s", index, constant.Tag, tag)
	}
	return constant, nil
}

// Utf8 returns the text of the Utf8 entry at index.
func (p *Pool) Utf8(index uint16) (string, error) {
	constant, err := p.Lookup(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return constant.Text, nil
}

// ClassName returns the name of the Class entry at index.
func (p *Pool) ClassName(index uint16) (string, error) {
	constant, err := p.Lookup(index, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(constant.NameIndex)
}

// NameAndType returns the name and descriptor of the NameAndType entry
// at index.
func (p *Pool) NameAndType(index uint16) (name, descriptor string, err error) {
	constant, err := p.Lookup(index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(constant.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = p.Utf8(constant.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MemberRef is a resolved Fieldref, Methodref or InterfaceMethodref.
type MemberRef struct {
	Tag        Tag
	Owner      string
	Name       string
	Descriptor string
}

// MemberRef resolves the member reference at index.
func (p *Pool) MemberRef(index uint16) (MemberRef, error) {
	constant, err := p.Get(index)
	if err != nil {
		return MemberRef{}, err
	}
	if !constant.Tag.IsMemberRef() {
		return MemberRef{}, fmt.Errorf("constant pool index %d is %s, want a member reference", index, constant.Tag)
	}
	owner, err := p.ClassName(constant.ClassIndex)
	if err != nil {
		return MemberRef{}, fmt.Errorf("member reference %d owner: %w", index, err)
	}
	name, descriptor, err := p.NameAndType(constant.NameAndTypeIndex)
	if err != nil {
		return MemberRef{}, fmt.Errorf("member reference %d: %w", index, err)
	}
	return MemberRef{Tag: constant.Tag, Owner: owner, Name: name, Descriptor: descriptor}, nil
}

// Set replaces the entry at index. The replacement must have the same
// width as the entry it replaces.
func (p *Pool) Set(index uint16, constant Constant) error {
	existing, err := p.Get(index)
	if err != nil {
		return err
	}
	if existing.Tag.Wide() != constant.Tag.Wide() {
		return fmt.Errorf("cannot replace %s at %d with %s: slot widths differ", existing.Tag, index, constant.Tag)
	}
	if existing.Tag == TagUtf8 || constant.Tag == TagUtf8 {
		p.utf8 = nil
	}
	p.entries[index] = constant
	return nil
}

// Add appends constant and returns its index. Adding past
// [MaxPoolCount] fails.
func (p *Pool) Add(constant Constant) (uint16, error) {
	if constant.Tag == 0 {
		return 0, fmt.Errorf("cannot add a constant without a tag")
	}
	slots := 1
	if constant.Tag.Wide() {
		slots = 2
	}
	if len(p.entries)+slots > MaxPoolCount {
		return 0, fmt.Errorf("constant pool full: %d entries", len(p.entries))
	}
	index := uint16(len(p.entries))
	p.entries = append(p.entries, constant)
	if slots == 2 {
		p.entries = append(p.entries, Constant{})
	}
	if constant.Tag == TagUtf8 && p.utf8 != nil {
		if _, ok := p.utf8[constant.Text]; !ok {
			p.utf8[constant.Text] = index
		}
	}
	return index, nil
}

// FindUtf8 returns the lowest index of a Utf8 entry holding text.
func (p *Pool) FindUtf8(text string) (uint16, bool) {
	if p.utf8 == nil {
		p.utf8 = make(map[string]uint16)
		for index := len(p.entries) - 1; index > 0; index-- {
			if p.entries[index].Tag == TagUtf8 {
				p.utf8[p.entries[index].Text] = uint16(index)
			}
		}
	}
	index, ok := p.utf8[text]
	return index, ok
}

// AddUtf8 returns the index of a Utf8 entry holding text, appending one
// if none exists.
func (p *Pool) AddUtf8(text string) (uint16, error) {
	if index, ok := p.FindUtf8(text); ok {
		return index, nil
	}
	if len(text) > 0xFFFF {
		return 0, fmt.Errorf("utf8 constant of %d bytes exceeds 65535", len(text))
	}
	return p.Add(Constant{Tag: TagUtf8, Text: text})
}

// AddNameAndType returns the index of a NameAndType entry for name and
// descriptor, appending one (and its Utf8 entries) if none exists.
func (p *Pool) AddNameAndType(name, descriptor string) (uint16, error) {
	nameIndex, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	descriptorIndex, err := p.AddUtf8(descriptor)
	if err != nil {
		return 0, err
	}
	for index, constant := range p.entries {
		if constant.Tag == TagNameAndType && constant.NameIndex == nameIndex && constant.DescriptorIndex == descriptorIndex {
			return uint16(index), nil
		}
	}
	return p.Add(Constant{Tag: TagNameAndType, NameIndex: nameIndex, DescriptorIndex: descriptorIndex})
}

// Entries returns a copy of the pool, index 0 included.
func (p *Pool) Entries() []Constant {
	return append([]Constant(nil), p.entries...)
}
