// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"fmt"

	"gate.computer/wacore/errors"
	"gate.computer/wacore/internal/loader"
	"gate.computer/wacore/wa"
	"gate.computer/wacore/wa/opcode"
)

func (d *decoder) codeSection(load loader.L) {
	countOffset := load.Position()
	count := load.Count(maxFunctions, "function body")
	if count != d.numFuncs {
		loader.Fail(countOffset, "function and code section have inconsistent lengths: %d and %d", d.numFuncs, count)
	}
	d.numCodes = count
	d.call(load.Position(), d.v.CodeSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()
		size := load.Varuint32()
		bodyOffset := load.Position()
		body := load.Bytes(size)

		d.call(offset, d.v.BeginFunctionBody(i, size))
		d.functionBody(i, loader.NewBounded(body, bodyOffset))
		d.call(bodyOffset+int64(size), d.v.EndFunctionBody(i))
	}
}

// functionBody decoder runs within the body's bounded loader: running out of
// bytes or leaving some unused means that the body size is wrong.
func (d *decoder) functionBody(index uint32, load loader.L) {
	defer func() {
		if x := recover(); x != nil {
			if e, ok := x.(*errors.Error); ok && e.Kind == errors.Truncated {
				err := errors.Wrap(errors.Malformed, e, fmt.Sprintf("function body #%d exceeds its declared size", index))
				err.Offset = e.Offset
				x = err
			}
			panic(x)
		}
	}()

	localsOffset := load.Position()
	numEntries := load.Count(maxLocals, "local entry")

	var (
		locals []wa.LocalEntry
		total  uint64
	)

	if numEntries > 0 {
		locals = make([]wa.LocalEntry, 0, vecCap(load, numEntries))
		for i := uint32(0); i < numEntries; i++ {
			offset := load.Position()
			n := load.Varuint32()
			total += uint64(n)
			if total > maxLocals {
				loader.Fail(offset, "function body #%d has too many locals", index)
			}
			locals = append(locals, wa.LocalEntry{Count: n, Type: valueType(load)})
		}
	}

	d.call(localsOffset, d.v.Locals(index, locals))

	readExpr(load, func(insn Instruction) {
		d.call(insn.Offset, d.v.Instruction(insn))
	})

	if n := load.Remaining(); n != 0 {
		loader.Fail(load.Position(), "function body #%d has %d bytes after final end", index, n)
	}
}

// constExpr reads an initializer expression including its end instruction.
func constExpr(load loader.L) (expr ConstExpr) {
	readExpr(load, func(insn Instruction) {
		if insn.Op != opcode.End {
			expr.Instructions = append(expr.Instructions, insn)
		}
	})
	return
}

// readExpr reads instructions until the end which terminates the implicit
// outermost block.  The final end is passed to f.
func readExpr(load loader.L, f func(Instruction)) {
	blocks := []opcode.Opcode{opcode.Block}

	for len(blocks) > 0 {
		insn := readInstruction(load)

		switch insn.Op {
		case opcode.Block, opcode.Loop, opcode.If:
			blocks = append(blocks, insn.Op)

		case opcode.Else:
			if top := len(blocks) - 1; blocks[top] == opcode.If {
				blocks[top] = opcode.Else
			} else {
				loader.Fail(insn.Offset, "else without matching if")
			}

		case opcode.End:
			blocks = blocks[:len(blocks)-1]
		}

		f(insn)
	}
}

func readInstruction(load loader.L) (insn Instruction) {
	insn.Offset = load.Position()

	b := load.Byte()
	if !opcode.Exists(b) {
		err := errors.Errorf(errors.UnknownOpcode, "unknown opcode: 0x%02x", b)
		err.Offset = insn.Offset
		panic(err)
	}

	insn.Op = opcode.Opcode(b)
	imm := insn.Op.Immediate()

	if imm == opcode.ImmMisc {
		x := load.Varuint32()
		if !opcode.MiscExists(x) {
			err := errors.Errorf(errors.UnknownOpcode, "unknown opcode: 0x%02x 0x%x", b, x)
			err.Offset = insn.Offset
			panic(err)
		}
		insn.Misc = opcode.MiscOpcode(x)
		imm = insn.Misc.Immediate()
	}

	immediateReaders[imm](load, &insn)
	return
}

var immediateReaders = [opcode.NumImms]func(loader.L, *Instruction){
	opcode.ImmNone:         readNone,
	opcode.ImmBlockType:    readBlockType,
	opcode.ImmIndex:        readIndex,
	opcode.ImmIndexPair:    readIndexPair,
	opcode.ImmIndexMemory:  readIndexMemory,
	opcode.ImmBrTable:      readBrTable,
	opcode.ImmCallIndirect: readIndexPair,
	opcode.ImmSelectTypes:  readSelectTypes,
	opcode.ImmMemArg:       readMemArg,
	opcode.ImmMemory:       readMemory,
	opcode.ImmMemoryPair:   readMemoryPair,
	opcode.ImmI32:          readI32,
	opcode.ImmI64:          readI64,
	opcode.ImmF32:          readF32,
	opcode.ImmF64:          readF64,
	opcode.ImmRefType:      readRefType,
	opcode.ImmMisc:         readNone,
}

func readNone(loader.L, *Instruction) {}

func readBlockType(load loader.L, insn *Instruction) {
	offset := load.Position()
	insn.Block = wa.BlockType(load.Varint33())

	if insn.Block < 0 && insn.Block != wa.EmptyBlock {
		if _, ok := insn.Block.Value(); !ok {
			loader.Fail(offset, "invalid block type: %d", int64(insn.Block))
		}
	}
}

func readIndex(load loader.L, insn *Instruction) {
	insn.Index = load.Varuint32()
}

func readIndexPair(load loader.L, insn *Instruction) {
	insn.Index = load.Varuint32()
	insn.Index2 = load.Varuint32()
}

func readIndexMemory(load loader.L, insn *Instruction) {
	insn.Index = load.Varuint32()
	insn.Index2 = memoryIndex(load)
}

func readBrTable(load loader.L, insn *Instruction) {
	n := load.Count(maxBranchTargets, "branch table target")
	insn.Targets = make([]uint32, 0, vecCap(load, n))
	for i := uint32(0); i < n; i++ {
		insn.Targets = append(insn.Targets, load.Varuint32())
	}
	insn.Index = load.Varuint32()
}

func readSelectTypes(load loader.L, insn *Instruction) {
	offset := load.Position()
	if n := load.Varuint32(); n != 1 {
		loader.Fail(offset, "invalid number of select types: %d", n)
	}
	insn.Types = []wa.Type{valueType(load)}
}

func readMemArg(load loader.L, insn *Instruction) {
	insn.MemArg.Align = load.Varuint32()
	insn.MemArg.Offset = load.Varuint32()
}

func readMemory(load loader.L, insn *Instruction) {
	insn.Index = memoryIndex(load)
}

func readMemoryPair(load loader.L, insn *Instruction) {
	insn.Index = memoryIndex(load)
	insn.Index2 = memoryIndex(load)
}

func readI32(load loader.L, insn *Instruction) {
	insn.Value = uint64(uint32(load.Varint32()))
}

func readI64(load loader.L, insn *Instruction) {
	insn.Value = uint64(load.Varint64())
}

func readF32(load loader.L, insn *Instruction) {
	insn.Value = uint64(load.Uint32())
}

func readF64(load loader.L, insn *Instruction) {
	insn.Value = load.Uint64()
}

func readRefType(load loader.L, insn *Instruction) {
	insn.Types = []wa.Type{refType(load)}
}

func memoryIndex(load loader.L) uint32 {
	offset := load.Position()
	if b := load.Byte(); b != 0 {
		loader.Fail(offset, "zero byte expected as memory index: 0x%02x", b)
	}
	return 0
}
