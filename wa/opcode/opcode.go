// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package opcode enumerates WebAssembly instructions and the shapes of their
// immediate operands.
package opcode

import (
	"fmt"
)

type Opcode byte

func (op Opcode) String() (s string) {
	s = strings[op]
	if s == "" {
		s = fmt.Sprintf("0x%02x", byte(op))
	}
	return
}

// Immediate operand shape.  Only meaningful if the opcode exists.
func (op Opcode) Immediate() Imm {
	return immediates[op]
}

// Exists reports whether the opcode is known.  MiscPrefix is known, but the
// sub-opcode following it must be checked separately.
func Exists(opcode byte) bool {
	return strings[opcode] != "" || Opcode(opcode) == MiscPrefix
}

// MiscOpcode follows the MiscPrefix byte, encoded as varuint32.
type MiscOpcode uint32

func (op MiscOpcode) String() string {
	if op < NumMiscOpcodes {
		return miscStrings[op]
	}
	return fmt.Sprintf("0xfc 0x%02x", uint32(op))
}

func (op MiscOpcode) Immediate() Imm {
	return miscImmediates[op]
}

func MiscExists(op uint32) bool {
	return op < NumMiscOpcodes
}

// Imm describes the immediate operands which follow an opcode.
type Imm uint8

const (
	ImmNone         = Imm(iota)
	ImmBlockType    // varint33
	ImmIndex        // varuint32
	ImmIndexPair    // varuint32, varuint32
	ImmIndexMemory  // varuint32, memory index byte
	ImmBrTable      // vec(varuint32), varuint32
	ImmCallIndirect // type index, table index
	ImmSelectTypes  // vec(value type)
	ImmMemArg       // alignment, offset
	ImmMemory       // memory index byte
	ImmMemoryPair   // memory index byte, memory index byte
	ImmI32          // varint32
	ImmI64          // varint64
	ImmF32          // 4 bytes
	ImmF64          // 8 bytes
	ImmRefType      // reference type byte
	ImmMisc         // varuint32 sub-opcode

	NumImms
)

var immStrings = [NumImms]string{
	ImmNone:         "none",
	ImmBlockType:    "blocktype",
	ImmIndex:        "index",
	ImmIndexPair:    "index index",
	ImmIndexMemory:  "index memory",
	ImmBrTable:      "br_table",
	ImmCallIndirect: "call_indirect",
	ImmSelectTypes:  "types",
	ImmMemArg:       "memarg",
	ImmMemory:       "memory",
	ImmMemoryPair:   "memory memory",
	ImmI32:          "i32",
	ImmI64:          "i64",
	ImmF32:          "f32",
	ImmF64:          "f64",
	ImmRefType:      "reftype",
	ImmMisc:         "misc",
}

func (imm Imm) String() string {
	if imm < NumImms {
		return immStrings[imm]
	}
	return "<invalid immediate>"
}
