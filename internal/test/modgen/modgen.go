// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package modgen assembles WebAssembly binary modules for tests.
package modgen

import (
	"bytes"

	"gate.computer/wacore/binary"
	"gate.computer/wacore/section"
	"gate.computer/wacore/wa"
)

var Header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Module under construction.
type Module struct {
	buf []byte
}

// New module with header.
func New() *Module {
	return &Module{buf: append([]byte(nil), Header...)}
}

// Section with correct size.
func (m *Module) Section(id section.ID, payload ...[]byte) *Module {
	p := Cat(payload...)
	m.buf = append(m.buf, byte(id))
	m.buf = binary.AppendVaruint32(m.buf, uint32(len(p)))
	m.buf = append(m.buf, p...)
	return m
}

// Custom section.
func (m *Module) Custom(name string, payload ...[]byte) *Module {
	return m.Section(section.Custom, Name(name), Cat(payload...))
}

// Raw bytes appended as is.
func (m *Module) Raw(b ...byte) *Module {
	m.buf = append(m.buf, b...)
	return m
}

func (m *Module) Bytes() []byte {
	return m.buf
}

func (m *Module) Reader() *bytes.Reader {
	return bytes.NewReader(m.buf)
}

func Cat(parts ...[]byte) []byte {
	var b []byte
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

func U32(x uint32) []byte { return binary.AppendVaruint32(nil, x) }
func I32(x int32) []byte  { return binary.AppendVarint32(nil, x) }
func I64(x int64) []byte  { return binary.AppendVarint64(nil, x) }

// Vec prefixes items with their count.
func Vec(items ...[]byte) []byte {
	return Cat(U32(uint32(len(items))), Cat(items...))
}

// Name is a length-prefixed string.
func Name(s string) []byte {
	return append(U32(uint32(len(s))), s...)
}

// Sized prefixes content with its length.
func Sized(content ...[]byte) []byte {
	c := Cat(content...)
	return append(U32(uint32(len(c))), c...)
}

func Types(ts ...wa.Type) []byte {
	b := U32(uint32(len(ts)))
	for _, t := range ts {
		b = append(b, t.Encode())
	}
	return b
}

func FuncType(params, results []wa.Type) []byte {
	return Cat([]byte{0x60}, Types(params...), Types(results...))
}

// Locals declaration entry.
func Locals(count uint32, t wa.Type) []byte {
	return append(U32(count), t.Encode())
}

// Global declaration: type followed by an initializer expression.
func Global(t wa.GlobalType, init []byte) []byte {
	enc := t.Encode()
	return Cat(enc[:], init)
}

// Block type immediate for a single result.
func Block(t wa.Type) []byte {
	return binary.AppendVarint64(nil, int64(wa.ValueBlock(t)))
}

// Body of a function: local entries (already a vector) followed by code.
func Body(locals []byte, code ...byte) []byte {
	return Sized(locals, code)
}

// I32Const expression terminated by end.
func I32Const(x int32) []byte {
	return Cat([]byte{0x41}, I32(x), []byte{0x0b})
}
