// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classfile

import (
	"fmt"
	"strings"
)

// MapSignature rewrites every class name in a generic signature (class,
// method or field form) through mapper.
//
// Inner classes in a signature appear as simple names after a dot
// ("Lpkg/Outer<TT;>.Inner;"). The mapper sees their binary names
// ("pkg/Outer$Inner"); a mapped inner name is used only if it is still
// nested in the mapped outer class, otherwise the simple name is kept.
func MapSignature(signature string, mapper NameMapper) (string, error) {
	parser := &signatureParser{input: signature, mapper: mapper}
	parser.out.Grow(len(signature))
	if err := parser.signature(); err != nil {
		return "", fmt.Errorf("signature %q: %w", signature, err)
	}
	if mapped := parser.out.String(); mapped != signature {
		return mapped, nil
	}
	return signature, nil
}

// ValidSignature reports whether signature parses as a class, method or
// field signature.
func ValidSignature(signature string) bool {
	_, err := MapSignature(signature, func(name string) string { return name })
	return err == nil
}

type signatureParser struct {
	input    string
	position int
	out      strings.Builder
	mapper   NameMapper
}

func (p *signatureParser) eof() bool {
	return p.position >= len(p.input)
}

func (p *signatureParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.position]
}

// copyByte copies the current byte to the output.
func (p *signatureParser) copyByte() {
	p.out.WriteByte(p.input[p.position])
	p.position++
}

func (p *signatureParser) expect(b byte) error {
	if p.peek() != b {
		return fmt.Errorf("offset %d: want %q", p.position, b)
	}
	p.copyByte()
	return nil
}

// token reads up to (not including) the first byte in stop.
func (p *signatureParser) token(stop string) (string, error) {
	start := p.position
	for !p.eof() && strings.IndexByte(stop, p.input[p.position]) < 0 {
		p.position++
	}
	if p.position == start {
		return "", fmt.Errorf("offset %d: empty identifier", start)
	}
	return p.input[start:p.position], nil
}

func (p *signatureParser) signature() error {
	if p.eof() {
		return fmt.Errorf("empty signature")
	}
	if p.peek() == '<' {
		if err := p.typeParameters(); err != nil {
			return err
		}
	}

	if p.peek() == '(' {
		p.copyByte()
		for p.peek() != ')' {
			if p.eof() {
				return fmt.Errorf("unterminated parameter list")
			}
			if err := p.javaType(); err != nil {
				return err
			}
		}
		p.copyByte()
		if p.peek() == 'V' {
			p.copyByte()
		} else if err := p.javaType(); err != nil {
			return err
		}
		for p.peek() == '^' {
			p.copyByte()
			if err := p.referenceType(); err != nil {
				return err
			}
		}
		if !p.eof() {
			return fmt.Errorf("offset %d: trailing data", p.position)
		}
		return nil
	}

	if p.eof() {
		return fmt.Errorf("missing type after type parameters")
	}
	for !p.eof() {
		if err := p.referenceType(); err != nil {
			return err
		}
	}
	return nil
}

func (p *signatureParser) typeParameters() error {
	p.copyByte()
	if p.peek() == '>' {
		return fmt.Errorf("offset %d: empty type parameter list", p.position)
	}
	for p.peek() != '>' {
		if p.eof() {
			return fmt.Errorf("unterminated type parameter list")
		}
		identifier, err := p.token(":;<>./[")
		if err != nil {
			return err
		}
		p.out.WriteString(identifier)
		if err := p.expect(':'); err != nil {
			return err
		}
		if next := p.peek(); next == 'L' || next == 'T' || next == '[' {
			if err := p.referenceType(); err != nil {
				return err
			}
		}
		for p.peek() == ':' {
			p.copyByte()
			if err := p.referenceType(); err != nil {
				return err
			}
		}
	}
	p.copyByte()
	return nil
}

func (p *signatureParser) javaType() error {
	switch p.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		p.copyByte()
		return nil
	}
	return p.referenceType()
}

func (p *signatureParser) referenceType() error {
	switch p.peek() {
	case 'L':
		return p.classType()
	case 'T':
		p.copyByte()
		identifier, err := p.token(";<>./[:")
		if err != nil {
			return err
		}
		p.out.WriteString(identifier)
		return p.expect(';')
	case '[':
		p.copyByte()
		return p.javaType()
	default:
		return fmt.Errorf("offset %d: want a reference type", p.position)
	}
}

func (p *signatureParser) classType() error {
	p.copyByte()
	name, err := p.token("<;.")
	if err != nil {
		return err
	}
	if !ValidInternalName(name) {
		return fmt.Errorf("malformed class name %q", name)
	}
	mapped, err := mapName(name, p.mapper)
	if err != nil {
		return err
	}
	p.out.WriteString(mapped)
	if p.peek() == '<' {
		if err := p.typeArguments(); err != nil {
			return err
		}
	}

	binaryName, mappedBinaryName := name, mapped
	for p.peek() == '.' {
		p.copyByte()
		simple, err := p.token("<;.")
		if err != nil {
			return err
		}
		binaryName += "$" + simple
		mappedSimple := simple
		if inner := p.mapper(binaryName); inner != binaryName && strings.HasPrefix(inner, mappedBinaryName+"$") {
			mappedSimple = inner[len(mappedBinaryName)+1:]
		}
		mappedBinaryName += "$" + mappedSimple
		p.out.WriteString(mappedSimple)
		if p.peek() == '<' {
			if err := p.typeArguments(); err != nil {
				return err
			}
		}
	}
	return p.expect(';')
}

func (p *signatureParser) typeArguments() error {
	p.copyByte()
	if p.peek() == '>' {
		return fmt.Errorf("offset %d: empty type argument list", p.position)
	}
	for p.peek() != '>' {
		switch p.peek() {
		case 0:
			return fmt.Errorf("unterminated type argument list")
		case '*':
			p.copyByte()
			continue
		case '+', '-':
			p.copyByte()
		}
		if err := p.referenceType(); err != nil {
			return err
		}
	}
	p.copyByte()
	return nil
}
