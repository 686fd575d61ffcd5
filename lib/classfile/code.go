// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"bytes"
	"fmt"
)

// Attribute names the package decodes or inspects.
const (
	AttributeCode                   = "Code"
	AttributeSignature              = "Signature"
	AttributeLocalVariableTable     = "LocalVariableTable"
	AttributeLocalVariableTypeTable = "LocalVariableTypeTable"
	AttributeEnclosingMethod        = "EnclosingMethod"
	AttributeExceptions             = "Exceptions"
	AttributeInnerClasses           = "InnerClasses"

	AttributeRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttributeRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttributeRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttributeRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttributeAnnotationDefault                    = "AnnotationDefault"
)

// MaxCodeLength is the largest code array a method may have.
const MaxCodeLength = 65535

// Code is a decoded Code attribute.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionHandler
	Attributes     []Attribute
}

// ExceptionHandler is one exception_table row. CatchType zero catches
// everything.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// ParseCode decodes the body of a Code attribute. The result does not
// alias info.
func ParseCode(info []byte) (*Code, error) {
	r := &reader{data: info}
	code := &Code{
		MaxStack:  r.u2(),
		MaxLocals: r.u2(),
	}
	length := r.u4()
	if r.err == nil && (length == 0 || length > MaxCodeLength) {
		return nil, fmt.Errorf("%w: code length %d", ErrMalformed, length)
	}
	code.Code = bytes.Clone(r.bytes(int(length)))

	handlers := int(r.u2())
	if r.err == nil {
		code.ExceptionTable = make([]ExceptionHandler, 0, min(handlers, len(info)/8))
		for i := 0; i < handlers && r.err == nil; i++ {
			code.ExceptionTable = append(code.ExceptionTable, ExceptionHandler{
				StartPC:   r.u2(),
				EndPC:     r.u2(),
				HandlerPC: r.u2(),
				CatchType: r.u2(),
			})
		}
	}
	code.Attributes = r.attributes()

	if r.err != nil {
		return nil, fmt.Errorf("parsing Code attribute: %w", r.err)
	}
	if r.offset != len(info) {
		return nil, fmt.Errorf("%w: Code attribute has %d trailing bytes", ErrMalformed, len(info)-r.offset)
	}
	return code, nil
}

// Bytes encodes the attribute body.
func (c *Code) Bytes() ([]byte, error) {
	if len(c.Code) == 0 || len(c.Code) > MaxCodeLength {
		return nil, fmt.Errorf("code length %d out of range", len(c.Code))
	}
	w := &writer{}
	w.u2(c.MaxStack)
	w.u2(c.MaxLocals)
	w.u4(uint32(len(c.Code)))
	w.out = append(w.out, c.Code...)
	w.count(len(c.ExceptionTable), "exception table")
	for _, handler := range c.ExceptionTable {
		w.u2(handler.StartPC)
		w.u2(handler.EndPC)
		w.u2(handler.HandlerPC)
		w.u2(handler.CatchType)
	}
	w.attributes(c.Attributes)
	if w.err != nil {
		return nil, w.err
	}
	return w.out, nil
}
