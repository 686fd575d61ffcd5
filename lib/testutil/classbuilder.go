// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import "encoding/binary"

// Constant pool tags used by [ClassBuilder].
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagLong               = 5
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagInvokeDynamic      = 18
)

// Access flags for builder members.
const (
	AccPublic = 0x0001
	AccStatic = 0x0008
	AccSuper  = 0x0020
)

// Attribute is a named attribute whose info bytes are already encoded.
type Attribute struct {
	Name string
	Info []byte
}

// ExceptionHandler is one Code attribute exception table row.
type ExceptionHandler struct {
	StartPC, EndPC, HandlerPC, CatchType uint16
}

// ClassBuilder assembles a class file. Constant methods append to the
// pool in call order and return the new index; Utf8, Class and
// NameAndType reuse an existing identical entry, everything else always
// appends. Use [ClassBuilder.RawUtf8] to force a duplicate.
type ClassBuilder struct {
	minor, major uint16
	access       uint16
	thisClass    uint16
	superClass   uint16
	interfaces   []uint16

	pool      []byte
	nextIndex uint16
	dedup     map[string]uint16

	fields     [][]byte
	methods    [][]byte
	attributes [][]byte
}

// NewClass starts a public class named name (internal form) extending
// super. An empty super leaves super_class at zero, as for
// java/lang/Object itself.
func NewClass(name, super string) *ClassBuilder {
	builder := &ClassBuilder{
		minor:     3,
		major:     45,
		access:    AccPublic | AccSuper,
		nextIndex: 1,
		dedup:     make(map[string]uint16),
	}
	builder.thisClass = builder.Class(name)
	if super != "" {
		builder.superClass = builder.Class(super)
	}
	return builder
}

// Version sets the class file version.
func (b *ClassBuilder) Version(major, minor uint16) *ClassBuilder {
	b.major, b.minor = major, minor
	return b
}

// Access replaces the class access flags.
func (b *ClassBuilder) Access(flags uint16) *ClassBuilder {
	b.access = flags
	return b
}

// PoolCount returns the constant_pool_count the class will be written
// with.
func (b *ClassBuilder) PoolCount() uint16 {
	return b.nextIndex
}

func (b *ClassBuilder) add(slots uint16, entry ...byte) uint16 {
	if int(b.nextIndex)+int(slots) > 0xFFFF {
		panic("testutil: constant pool overflow")
	}
	index := b.nextIndex
	b.pool = append(b.pool, entry...)
	b.nextIndex += slots
	return index
}

func (b *ClassBuilder) addShared(key string, entry ...byte) uint16 {
	if index, ok := b.dedup[key]; ok {
		return index
	}
	index := b.add(1, entry...)
	b.dedup[key] = index
	return index
}

// Utf8 returns the index of a Utf8 constant holding value.
func (b *ClassBuilder) Utf8(value string) uint16 {
	return b.addShared("utf8:"+value, utf8Entry(value)...)
}

// RawUtf8 appends a Utf8 constant even if an identical one exists.
func (b *ClassBuilder) RawUtf8(value string) uint16 {
	return b.add(1, utf8Entry(value)...)
}

func utf8Entry(value string) []byte {
	if len(value) > 0xFFFF {
		panic("testutil: utf8 constant too long")
	}
	entry := []byte{tagUtf8}
	entry = binary.BigEndian.AppendUint16(entry, uint16(len(value)))
	return append(entry, value...)
}

// Class returns the index of a Class constant for name.
func (b *ClassBuilder) Class(name string) uint16 {
	nameIndex := b.Utf8(name)
	return b.addShared("class:"+name, U1U2(tagClass, nameIndex)...)
}

// String appends a String constant.
func (b *ClassBuilder) String(value string) uint16 {
	return b.add(1, U1U2(tagString, b.Utf8(value))...)
}

// Integer appends an Integer constant.
func (b *ClassBuilder) Integer(value int32) uint16 {
	entry := binary.BigEndian.AppendUint32([]byte{tagInteger}, uint32(value))
	return b.add(1, entry...)
}

// Long appends a Long constant, which occupies two pool slots.
func (b *ClassBuilder) Long(value int64) uint16 {
	entry := binary.BigEndian.AppendUint64([]byte{tagLong}, uint64(value))
	return b.add(2, entry...)
}

// NameAndType returns the index of a NameAndType constant.
func (b *ClassBuilder) NameAndType(name, descriptor string) uint16 {
	nameIndex := b.Utf8(name)
	descriptorIndex := b.Utf8(descriptor)
	return b.addShared("nat:"+name+":"+descriptor, U1U2(tagNameAndType, nameIndex, descriptorIndex)...)
}

func (b *ClassBuilder) memberRef(tag byte, owner, name, descriptor string) uint16 {
	classIndex := b.Class(owner)
	natIndex := b.NameAndType(name, descriptor)
	return b.add(1, U1U2(tag, classIndex, natIndex)...)
}

// Fieldref appends a Fieldref constant.
func (b *ClassBuilder) Fieldref(owner, name, descriptor string) uint16 {
	return b.memberRef(tagFieldref, owner, name, descriptor)
}

// Methodref appends a Methodref constant.
func (b *ClassBuilder) Methodref(owner, name, descriptor string) uint16 {
	return b.memberRef(tagMethodref, owner, name, descriptor)
}

// InterfaceMethodref appends an InterfaceMethodref constant.
func (b *ClassBuilder) InterfaceMethodref(owner, name, descriptor string) uint16 {
	return b.memberRef(tagInterfaceMethodref, owner, name, descriptor)
}

// MethodType appends a MethodType constant.
func (b *ClassBuilder) MethodType(descriptor string) uint16 {
	return b.add(1, U1U2(tagMethodType, b.Utf8(descriptor))...)
}

// MethodHandle appends a MethodHandle constant for reference.
func (b *ClassBuilder) MethodHandle(kind byte, reference uint16) uint16 {
	entry := []byte{tagMethodHandle, kind}
	entry = binary.BigEndian.AppendUint16(entry, reference)
	return b.add(1, entry...)
}

// InvokeDynamic appends an InvokeDynamic constant.
func (b *ClassBuilder) InvokeDynamic(bootstrap uint16, name, descriptor string) uint16 {
	return b.add(1, U1U2(tagInvokeDynamic, bootstrap, b.NameAndType(name, descriptor))...)
}

// Interface adds an implemented interface.
func (b *ClassBuilder) Interface(name string) *ClassBuilder {
	b.interfaces = append(b.interfaces, b.Class(name))
	return b
}

// Field adds a field.
func (b *ClassBuilder) Field(access uint16, name, descriptor string, attributes ...Attribute) *ClassBuilder {
	b.fields = append(b.fields, b.member(access, name, descriptor, attributes))
	return b
}

// Method adds a method.
func (b *ClassBuilder) Method(access uint16, name, descriptor string, attributes ...Attribute) *ClassBuilder {
	b.methods = append(b.methods, b.member(access, name, descriptor, attributes))
	return b
}

// ClassAttribute adds a class-level attribute.
func (b *ClassBuilder) ClassAttribute(attribute Attribute) *ClassBuilder {
	b.attributes = append(b.attributes, b.attribute(attribute))
	return b
}

func (b *ClassBuilder) member(access uint16, name, descriptor string, attributes []Attribute) []byte {
	encoded := U2(access, b.Utf8(name), b.Utf8(descriptor), uint16(len(attributes)))
	for _, attribute := range attributes {
		encoded = append(encoded, b.attribute(attribute)...)
	}
	return encoded
}

func (b *ClassBuilder) attribute(attribute Attribute) []byte {
	encoded := U2(b.Utf8(attribute.Name))
	encoded = binary.BigEndian.AppendUint32(encoded, uint32(len(attribute.Info)))
	return append(encoded, attribute.Info...)
}

// Code builds a Code attribute. Nested attribute names are added to the
// pool immediately.
func (b *ClassBuilder) Code(maxStack, maxLocals uint16, code []byte, handlers []ExceptionHandler, attributes ...Attribute) Attribute {
	info := U2(maxStack, maxLocals)
	info = binary.BigEndian.AppendUint32(info, uint32(len(code)))
	info = append(info, code...)
	info = binary.BigEndian.AppendUint16(info, uint16(len(handlers)))
	for _, handler := range handlers {
		info = append(info, U2(handler.StartPC, handler.EndPC, handler.HandlerPC, handler.CatchType)...)
	}
	info = binary.BigEndian.AppendUint16(info, uint16(len(attributes)))
	for _, attribute := range attributes {
		info = append(info, b.attribute(attribute)...)
	}
	return Attribute{Name: "Code", Info: info}
}

// Signature builds a Signature attribute.
func (b *ClassBuilder) Signature(signature string) Attribute {
	return Attribute{Name: "Signature", Info: U2(b.Utf8(signature))}
}

// LocalVariable is one LocalVariableTable or LocalVariableTypeTable
// row. Descriptor holds the signature for the type table.
type LocalVariable struct {
	StartPC, Length uint16
	Name            string
	Descriptor      string
	Slot            uint16
}

// LocalVariableTable builds a LocalVariableTable attribute, or a
// LocalVariableTypeTable when typeTable is set.
func (b *ClassBuilder) LocalVariableTable(typeTable bool, variables ...LocalVariable) Attribute {
	name := "LocalVariableTable"
	if typeTable {
		name = "LocalVariableTypeTable"
	}
	info := U2(uint16(len(variables)))
	for _, variable := range variables {
		info = append(info, U2(variable.StartPC, variable.Length,
			b.Utf8(variable.Name), b.Utf8(variable.Descriptor), variable.Slot)...)
	}
	return Attribute{Name: name, Info: info}
}

// Annotations builds a RuntimeVisibleAnnotations attribute holding one
// marker annotation (no element values) per type descriptor.
func (b *ClassBuilder) Annotations(typeDescriptors ...string) Attribute {
	info := U2(uint16(len(typeDescriptors)))
	for _, descriptor := range typeDescriptors {
		info = append(info, U2(b.Utf8(descriptor), 0)...)
	}
	return Attribute{Name: "RuntimeVisibleAnnotations", Info: info}
}

// Bytes encodes the class file.
func (b *ClassBuilder) Bytes() []byte {
	out := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	out = append(out, U2(b.minor, b.major, b.nextIndex)...)
	out = append(out, b.pool...)
	out = append(out, U2(b.access, b.thisClass, b.superClass, uint16(len(b.interfaces)))...)
	out = append(out, U2(b.interfaces...)...)
	out = appendTable(out, b.fields)
	out = appendTable(out, b.methods)
	out = appendTable(out, b.attributes)
	return out
}

func appendTable(out []byte, entries [][]byte) []byte {
	out = binary.BigEndian.AppendUint16(out, uint16(len(entries)))
	for _, entry := range entries {
		out = append(out, entry...)
	}
	return out
}

// U2 encodes values as big-endian 16-bit integers.
func U2(values ...uint16) []byte {
	out := make([]byte, 0, 2*len(values))
	for _, value := range values {
		out = binary.BigEndian.AppendUint16(out, value)
	}
	return out
}

// U1U2 encodes one byte followed by big-endian 16-bit integers.
func U1U2(first byte, values ...uint16) []byte {
	return append([]byte{first}, U2(values...)...)
}

// Invoke encodes a three-byte instruction with a pool index operand,
// such as invokestatic (0xB8) or getstatic (0xB2).
func Invoke(opcode byte, index uint16) []byte {
	return U1U2(opcode, index)
}

