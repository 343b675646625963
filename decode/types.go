// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"fmt"
	"math"

	"gate.computer/wacore/wa"
	"gate.computer/wacore/wa/opcode"
)

type ExternalKind byte

const (
	ExternalKindFunction = ExternalKind(iota)
	ExternalKindTable
	ExternalKindMemory
	ExternalKindGlobal
)

var externalKindStrings = []string{
	ExternalKindFunction: "function",
	ExternalKindTable:    "table",
	ExternalKindMemory:   "memory",
	ExternalKindGlobal:   "global",
}

func (kind ExternalKind) String() (s string) {
	if int(kind) < len(externalKindStrings) {
		s = externalKindStrings[kind]
	} else {
		s = fmt.Sprintf("<unknown external kind 0x%x>", byte(kind))
	}
	return
}

// Import declaration.  The field matching Kind is set.
type Import struct {
	Module    string
	Field     string
	Kind      ExternalKind
	TypeIndex uint32
	Table     wa.TableType
	Memory    wa.Limits
	Global    wa.GlobalType
}

// Export declaration.
type Export struct {
	Name  string
	Kind  ExternalKind
	Index uint32
}

// SegmentMode of element and data segments.
type SegmentMode byte

const (
	Active = SegmentMode(iota)
	Passive
	Declarative
)

func (mode SegmentMode) String() string {
	switch mode {
	case Active:
		return "active"

	case Passive:
		return "passive"

	case Declarative:
		return "declarative"

	default:
		return "<invalid segment mode>"
	}
}

// ElementSegment initializes a table (if active).  Either Funcs or Exprs is
// set, depending on the encoding.
type ElementSegment struct {
	Mode   SegmentMode
	Table  uint32
	Offset ConstExpr
	Type   wa.Type
	Funcs  []uint32
	Exprs  []ConstExpr
}

// Len is the number of elements.
func (seg *ElementSegment) Len() int {
	if seg.Exprs != nil {
		return len(seg.Exprs)
	}
	return len(seg.Funcs)
}

// DataSegment initializes linear memory (if active).
type DataSegment struct {
	Mode   SegmentMode
	Memory uint32
	Offset ConstExpr
	Init   []byte
}

// ConstExpr is an initializer expression without the terminating end.
type ConstExpr struct {
	Instructions []Instruction
}

// Const value of a single-instruction constant expression.  The value is
// represented as in Instruction.Value.
func (expr ConstExpr) Const() (value uint64, t wa.Type, ok bool) {
	if len(expr.Instructions) != 1 {
		return
	}

	insn := expr.Instructions[0]

	switch insn.Op {
	case opcode.I32Const:
		return insn.Value, wa.I32, true

	case opcode.I64Const:
		return insn.Value, wa.I64, true

	case opcode.F32Const:
		return insn.Value, wa.F32, true

	case opcode.F64Const:
		return insn.Value, wa.F64, true
	}

	return
}

// GlobalGet index of a single-instruction global.get expression.
func (expr ConstExpr) GlobalGet() (index uint32, ok bool) {
	if len(expr.Instructions) == 1 && expr.Instructions[0].Op == opcode.GlobalGet {
		return expr.Instructions[0].Index, true
	}
	return
}

// MemArg immediate of load and store instructions.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// Instruction with its immediate operands.  Which fields are meaningful
// depends on the immediate shape of the opcode:
//
//	ImmBlockType:    Block
//	ImmIndex:        Index
//	ImmIndexPair:    Index, Index2
//	ImmIndexMemory:  Index, Index2 (memory)
//	ImmBrTable:      Targets, Index (default target)
//	ImmCallIndirect: Index (type), Index2 (table)
//	ImmSelectTypes:  Types
//	ImmMemArg:       MemArg
//	ImmMemory:       Index (memory)
//	ImmMemoryPair:   Index, Index2 (memories)
//	ImmI32, ImmI64:  Value (two's complement bits, i32 zero-extended)
//	ImmF32, ImmF64:  Value (IEEE 754 bits)
//	ImmRefType:      Types[0]
type Instruction struct {
	Offset  int64 // Absolute position of the opcode byte.
	Op      opcode.Opcode
	Misc    opcode.MiscOpcode // If Op is MiscPrefix.
	Block   wa.BlockType
	Index   uint32
	Index2  uint32
	Targets []uint32
	Types   []wa.Type
	MemArg  MemArg
	Value   uint64
}

// Immediate shape.
func (insn *Instruction) Immediate() opcode.Imm {
	if insn.Op == opcode.MiscPrefix {
		return insn.Misc.Immediate()
	}
	return insn.Op.Immediate()
}

// Name of the instruction in text format.
func (insn *Instruction) Name() string {
	if insn.Op == opcode.MiscPrefix {
		return insn.Misc.String()
	}
	return insn.Op.String()
}

func (insn *Instruction) I32() int32   { return int32(uint32(insn.Value)) }
func (insn *Instruction) I64() int64   { return int64(insn.Value) }
func (insn *Instruction) F32() float32 { return math.Float32frombits(uint32(insn.Value)) }
func (insn *Instruction) F64() float64 { return math.Float64frombits(insn.Value) }
