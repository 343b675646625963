// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wa contains WebAssembly type definitions.
package wa

import (
	"fmt"
)

// PageSize of linear memory.
const PageSize = 65536

// MaxPages of a 32-bit linear memory.
const MaxPages = 65536

// Type is represented by its binary encoding.
type Type byte

const (
	Void      = Type(0x40)
	I32       = Type(0x7f)
	I64       = Type(0x7e)
	F32       = Type(0x7d)
	F64       = Type(0x7c)
	FuncRef   = Type(0x70)
	ExternRef = Type(0x6f)
)

// Valid value type (not Void).
func (t Type) Valid() bool {
	switch t {
	case I32, I64, F32, F64, FuncRef, ExternRef:
		return true
	}
	return false
}

// Reference type.
func (t Type) Reference() bool {
	return t == FuncRef || t == ExternRef
}

func (t Type) String() string {
	switch t {
	case Void:
		return "void"

	case I32:
		return "i32"

	case I64:
		return "i64"

	case F32:
		return "f32"

	case F64:
		return "f64"

	case FuncRef:
		return "funcref"

	case ExternRef:
		return "externref"

	default:
		return fmt.Sprintf("<invalid type 0x%02x>", byte(t))
	}
}

// Encode as WebAssembly.
func (t Type) Encode() byte {
	return byte(t)
}

// BlockType is the signed 33-bit immediate of block, loop and if: either
// empty, a single result type, or a type section index.
type BlockType int64

// EmptyBlock has no parameters or results.
const EmptyBlock = BlockType(-0x40)

// ValueBlock of a single result type.
func ValueBlock(t Type) BlockType {
	return BlockType(int64(t) - 0x80)
}

// Value type, if the block type denotes a single result.
func (b BlockType) Value() (t Type, ok bool) {
	if b < 0 && b > -0x40 {
		t = Type(b + 0x80)
		ok = t.Valid()
	}
	return
}

// TypeIndex, if the block type refers to the type section.
func (b BlockType) TypeIndex() (index uint32, ok bool) {
	if b >= 0 && b <= 0xffffffff {
		return uint32(b), true
	}
	return 0, false
}

func (b BlockType) String() string {
	if b == EmptyBlock {
		return ""
	}
	if t, ok := b.Value(); ok {
		return t.String()
	}
	if i, ok := b.TypeIndex(); ok {
		return fmt.Sprintf("type %d", i)
	}
	return fmt.Sprintf("<invalid block type %d>", int64(b))
}

// Limits of a table or memory.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

func (l Limits) String() string {
	if l.HasMax {
		return fmt.Sprintf("%d %d", l.Min, l.Max)
	}
	return fmt.Sprintf("%d", l.Min)
}

// TableType describes a table declaration.
type TableType struct {
	Elem   Type
	Limits Limits
}

// LocalEntry declares Count consecutive locals of the same type.
type LocalEntry struct {
	Count uint32
	Type  Type
}
