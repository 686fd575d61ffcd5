// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the first four bytes of every class file.
const Magic = 0xCAFEBABE

// ErrMalformed is matched by every parse error.
var ErrMalformed = errors.New("malformed class file")

// ClassFile is a parsed class file.
type ClassFile struct {
	Minor, Major uint16
	Pool         *Pool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Member
	Methods      []Member
	Attributes   []Attribute
}

// Member is a field_info or method_info record.
type Member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// Attribute is an attribute with its body left encoded.
type Attribute struct {
	NameIndex uint16
	Info      []byte
}

// Name returns the class's internal name.
func (cf *ClassFile) Name() (string, error) {
	return cf.Pool.ClassName(cf.ThisClass)
}

// AttributeName returns the name of attribute.
func (cf *ClassFile) AttributeName(attribute Attribute) (string, error) {
	return cf.Pool.Utf8(attribute.NameIndex)
}

// MemberName returns the name and descriptor of a field or method.
func (cf *ClassFile) MemberName(member Member) (name, descriptor string, err error) {
	if name, err = cf.Pool.Utf8(member.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = cf.Pool.Utf8(member.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// reader decodes big-endian class file data and records the first
// failure.
type reader struct {
	data   []byte
	offset int
	err    error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: at offset %d: %s", ErrMalformed, r.offset, fmt.Sprintf(format, args...))
	}
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.offset {
		r.fail("need %d bytes, %d remain", n, len(r.data)-r.offset)
		return nil
	}
	out := r.data[r.offset : r.offset+n]
	r.offset += n
	return out
}

func (r *reader) u1() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u8() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) attributes() []Attribute {
	count := int(r.u2())
	if r.err != nil {
		return nil
	}
	attributes := make([]Attribute, 0, min(count, len(r.data)/6+1))
	for i := 0; i < count && r.err == nil; i++ {
		nameIndex := r.u2()
		length := r.u4()
		if uint64(length) > uint64(len(r.data)) {
			r.fail("attribute length %d exceeds class size", length)
			return nil
		}
		info := bytes.Clone(r.bytes(int(length)))
		attributes = append(attributes, Attribute{NameIndex: nameIndex, Info: info})
	}
	return attributes
}

func (r *reader) members() []Member {
	count := int(r.u2())
	if r.err != nil {
		return nil
	}
	members := make([]Member, 0, min(count, len(r.data)/8+1))
	for i := 0; i < count && r.err == nil; i++ {
		member := Member{
			AccessFlags:     r.u2(),
			NameIndex:       r.u2(),
			DescriptorIndex: r.u2(),
		}
		member.Attributes = r.attributes()
		members = append(members, member)
	}
	return members
}

func (r *reader) pool() *Pool {
	count := int(r.u2())
	if r.err != nil {
		return nil
	}
	if count == 0 {
		r.fail("constant_pool_count is zero")
		return nil
	}
	pool := newPool(count)
	for index := 1; index < count && r.err == nil; index++ {
		tag := Tag(r.u1())
		constant := Constant{Tag: tag}
		switch tag {
		case TagUtf8:
			length := int(r.u2())
			constant.Text = string(r.bytes(length))
		case TagInteger, TagFloat:
			constant.Value = uint64(r.u4())
		case TagLong, TagDouble:
			if index+1 >= count {
				r.fail("%s at index %d overruns the pool", tag, index)
				return nil
			}
			constant.Value = r.u8()
		case TagClass, TagModule, TagPackage:
			constant.NameIndex = r.u2()
		case TagString:
			constant.StringIndex = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			constant.ClassIndex = r.u2()
			constant.NameAndTypeIndex = r.u2()
		case TagNameAndType:
			constant.NameIndex = r.u2()
			constant.DescriptorIndex = r.u2()
		case TagMethodHandle:
			constant.ReferenceKind = r.u1()
			constant.ReferenceIndex = r.u2()
		case TagMethodType:
			constant.DescriptorIndex = r.u2()
		case TagDynamic, TagInvokeDynamic:
			constant.BootstrapIndex = r.u2()
			constant.NameAndTypeIndex = r.u2()
		default:
			r.fail("unknown constant pool tag %d at index %d", uint8(tag), index)
			return nil
		}
		pool.entries = append(pool.entries, constant)
		if tag.Wide() {
			pool.entries = append(pool.entries, Constant{})
			index++
		}
	}
	return pool
}

// Parse decodes a class file. It checks the encoding only: indices are
// not resolved and descriptors are not validated (see [Verify]).
// Trailing bytes after the last attribute are an error. The result
// does not alias data.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{data: data}
	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %08X", ErrMalformed, magic)
	}

	cf := &ClassFile{}
	cf.Minor = r.u2()
	cf.Major = r.u2()
	cf.Pool = r.pool()
	cf.AccessFlags = r.u2()
	cf.ThisClass = r.u2()
	cf.SuperClass = r.u2()
	interfaceCount := int(r.u2())
	if r.err == nil {
		cf.Interfaces = make([]uint16, 0, min(interfaceCount, len(data)/2))
		for i := 0; i < interfaceCount && r.err == nil; i++ {
			cf.Interfaces = append(cf.Interfaces, r.u2())
		}
	}
	cf.Fields = r.members()
	cf.Methods = r.members()
	cf.Attributes = r.attributes()

	if r.err != nil {
		return nil, r.err
	}
	if r.offset != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(data)-r.offset)
	}
	return cf, nil
}

// PeekName returns the internal name of the class in data without
// parsing past the constant pool.
func PeekName(data []byte) (string, error) {
	r := &reader{data: data}
	if magic := r.u4(); r.err == nil && magic != Magic {
		return "", fmt.Errorf("%w: bad magic %08X", ErrMalformed, magic)
	}
	r.u2()
	r.u2()
	pool := r.pool()
	r.u2()
	thisClass := r.u2()
	if r.err != nil {
		return "", r.err
	}
	name, err := pool.ClassName(thisClass)
	if err != nil {
		return "", fmt.Errorf("%w: this_class: %v", ErrMalformed, err)
	}
	return name, nil
}

// Bytes encodes the class file. The constant pool count, table counts
// and attribute lengths are computed from the current contents.
func (cf *ClassFile) Bytes() ([]byte, error) {
	if cf.Pool == nil {
		return nil, errors.New("class file has no constant pool")
	}
	if cf.Pool.Count() > MaxPoolCount {
		return nil, fmt.Errorf("constant pool count %d exceeds %d", cf.Pool.Count(), MaxPoolCount)
	}

	w := &writer{}
	w.u4(Magic)
	w.u2(cf.Minor)
	w.u2(cf.Major)
	w.u2(uint16(cf.Pool.Count()))
	for index := 1; index < len(cf.Pool.entries); index++ {
		constant := cf.Pool.entries[index]
		w.u1(uint8(constant.Tag))
		switch constant.Tag {
		case TagUtf8:
			w.count(len(constant.Text), "utf8 constant")
			w.out = append(w.out, constant.Text...)
		case TagInteger, TagFloat:
			w.u4(uint32(constant.Value))
		case TagLong, TagDouble:
			w.u8(constant.Value)
			index++
		case TagClass, TagModule, TagPackage:
			w.u2(constant.NameIndex)
		case TagString:
			w.u2(constant.StringIndex)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			w.u2(constant.ClassIndex)
			w.u2(constant.NameAndTypeIndex)
		case TagNameAndType:
			w.u2(constant.NameIndex)
			w.u2(constant.DescriptorIndex)
		case TagMethodHandle:
			w.u1(constant.ReferenceKind)
			w.u2(constant.ReferenceIndex)
		case TagMethodType:
			w.u2(constant.DescriptorIndex)
		case TagDynamic, TagInvokeDynamic:
			w.u2(constant.BootstrapIndex)
			w.u2(constant.NameAndTypeIndex)
		default:
			return nil, fmt.Errorf("constant pool index %d has unencodable tag %d", index, uint8(constant.Tag))
		}
	}
	w.u2(cf.AccessFlags)
	w.u2(cf.ThisClass)
	w.u2(cf.SuperClass)
	w.count(len(cf.Interfaces), "interfaces")
	for _, index := range cf.Interfaces {
		w.u2(index)
	}
	w.members(cf.Fields, "fields")
	w.members(cf.Methods, "methods")
	w.attributes(cf.Attributes)

	if w.err != nil {
		return nil, w.err
	}
	return w.out, nil
}

type writer struct {
	out []byte
	err error
}

func (w *writer) u1(value uint8)  { w.out = append(w.out, value) }
func (w *writer) u2(value uint16) { w.out = binary.BigEndian.AppendUint16(w.out, value) }
func (w *writer) u4(value uint32) { w.out = binary.BigEndian.AppendUint32(w.out, value) }
func (w *writer) u8(value uint64) { w.out = binary.BigEndian.AppendUint64(w.out, value) }

// count writes a u2 table length, recording an error on overflow.
func (w *writer) count(n int, what string) {
	if n > 0xFFFF && w.err == nil {
		w.err = fmt.Errorf("%s count %d exceeds 65535", what, n)
	}
	w.u2(uint16(n))
}

func (w *writer) attributes(attributes []Attribute) {
	w.count(len(attributes), "attributes")
	for _, attribute := range attributes {
		w.u2(attribute.NameIndex)
		if uint64(len(attribute.Info)) > 0xFFFFFFFF && w.err == nil {
			w.err = fmt.Errorf("attribute of %d bytes is too long", len(attribute.Info))
		}
		w.u4(uint32(len(attribute.Info)))
		w.out = append(w.out, attribute.Info...)
	}
}

func (w *writer) members(members []Member, what string) {
	w.count(len(members), what)
	for _, member := range members {
		w.u2(member.AccessFlags)
		w.u2(member.NameIndex)
		w.u2(member.DescriptorIndex)
		w.attributes(member.Attributes)
	}
}
