// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm prints decoded WebAssembly modules.
package disasm

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gate.computer/wacore/binary"
	"gate.computer/wacore/decode"
	"gate.computer/wacore/section"
	"gate.computer/wacore/wa"
	"gate.computer/wacore/wa/opcode"
)

// Fprint decodes a module and writes a listing of its sections and function
// bodies.  Function bodies are listed last, labeled with names from the name
// section.  If decoding fails, the listing up to the failure point is written
// before the error is returned.
func Fprint(w io.Writer, r binary.Reader, config *decode.Config) (err error) {
	p := &printer{
		names: make(map[uint32]string),
	}

	err = decode.Decode(r, p, config)
	if err != nil {
		p.printBodies()
	}

	if _, e := p.buf.WriteTo(w); err == nil {
		err = e
	}
	return
}

type body struct {
	index  uint32
	locals []wa.LocalEntry
	insns  []decode.Instruction
}

type printer struct {
	decode.NopVisitor

	buf         bytes.Buffer
	importFuncs uint32
	names       map[uint32]string
	bodies      []body
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(&p.buf, format, args...)
}

func (p *printer) label(funcIndex uint32) string {
	if name, found := p.names[funcIndex]; found {
		return name
	}
	return fmt.Sprintf("func_%d", funcIndex)
}

func (p *printer) Header(version uint32) error {
	p.printf("wasm version %d\n", version)
	return nil
}

func (p *printer) BeginSection(id section.ID, offset int64, payloadSize uint32) error {
	p.printf("\n%s section at 0x%x (%d bytes)\n", id, offset, payloadSize)
	return nil
}

func (p *printer) FuncType(index uint32, t wa.FuncType) error {
	p.printf("\ttype %d\t%s\n", index, t)
	return nil
}

func (p *printer) Import(index uint32, imp decode.Import) error {
	var desc string

	switch imp.Kind {
	case decode.ExternalKindFunction:
		desc = fmt.Sprintf("func_%d type %d", p.importFuncs, imp.TypeIndex)
		p.importFuncs++

	case decode.ExternalKindTable:
		desc = fmt.Sprintf("%s %s", imp.Table.Elem, imp.Table.Limits)

	case decode.ExternalKindMemory:
		desc = imp.Memory.String()

	case decode.ExternalKindGlobal:
		desc = imp.Global.String()
	}

	p.printf("\timport %d\t%q %q %s %s\n", index, imp.Module, imp.Field, imp.Kind, desc)
	return nil
}

func (p *printer) Function(index, typeIndex uint32) error {
	p.printf("\tfunction %d\ttype %d\n", p.importFuncs+index, typeIndex)
	return nil
}

func (p *printer) Table(index uint32, t wa.TableType) error {
	p.printf("\ttable %d\t%s %s\n", index, t.Elem, t.Limits)
	return nil
}

func (p *printer) Memory(index uint32, limits wa.Limits) error {
	p.printf("\tmemory %d\t%s\n", index, limits)
	return nil
}

func (p *printer) Global(index uint32, t wa.GlobalType, init decode.ConstExpr) error {
	p.printf("\tglobal %d\t%s = %s\n", index, t, constExpr(init))
	return nil
}

func (p *printer) Export(index uint32, exp decode.Export) error {
	p.printf("\texport %d\t%q %s %d\n", index, exp.Name, exp.Kind, exp.Index)
	return nil
}

func (p *printer) Start(funcIndex uint32) error {
	p.printf("\tstart\t%d\n", funcIndex)
	return nil
}

func (p *printer) Element(index uint32, seg decode.ElementSegment) error {
	p.printf("\telem %d\t%s %s", index, seg.Mode, seg.Type)
	if seg.Mode == decode.Active {
		p.printf(" table %d offset %s", seg.Table, constExpr(seg.Offset))
	}
	p.printf(" (%d elements)\n", seg.Len())
	return nil
}

func (p *printer) DataCount(count uint32) error {
	p.printf("\tcount\t%d\n", count)
	return nil
}

func (p *printer) BeginFunctionBody(index, size uint32) error {
	p.bodies = append(p.bodies, body{index: p.importFuncs + index})
	p.printf("\tbody %d\t%d bytes\n", p.importFuncs+index, size)
	return nil
}

func (p *printer) Locals(index uint32, locals []wa.LocalEntry) error {
	p.bodies[len(p.bodies)-1].locals = locals
	return nil
}

func (p *printer) Instruction(insn decode.Instruction) error {
	b := &p.bodies[len(p.bodies)-1]
	b.insns = append(b.insns, insn)
	return nil
}

func (p *printer) Data(index uint32, seg decode.DataSegment) error {
	p.printf("\tdata %d\t%s", index, seg.Mode)
	if seg.Mode == decode.Active {
		p.printf(" memory %d offset %s", seg.Memory, constExpr(seg.Offset))
	}
	p.printf(" (%d bytes)\n", len(seg.Init))
	return nil
}

func (p *printer) CustomSection(name string, payload []byte) error {
	p.printf("\tcustom\t%q (%d bytes)\n", name, len(payload))
	return nil
}

func (p *printer) ModuleName(name string) error {
	p.printf("\tmodule\t%q\n", name)
	return nil
}

func (p *printer) FunctionName(funcIndex uint32, name string) error {
	p.names[funcIndex] = name
	return nil
}

func (p *printer) End() error {
	p.printBodies()
	return nil
}

func (p *printer) printBodies() {
	for _, b := range p.bodies {
		p.printf("\n%s:\n", p.label(b.index))

		for _, e := range b.locals {
			p.printf("\t.local\t%s x%d\n", e.Type, e.Count)
		}

		depth := 0

		for i := range b.insns {
			insn := &b.insns[i]

			switch insn.Op {
			case opcode.Else, opcode.End:
				if depth > 0 {
					depth--
				}
			}

			indent := strings.Repeat("\t", depth+1)

			if ops := operands(insn, p.label); ops != "" {
				p.printf("%s%s\t%s\n", indent, insn.Name(), ops)
			} else {
				p.printf("%s%s\n", indent, insn.Name())
			}

			switch insn.Op {
			case opcode.Block, opcode.Loop, opcode.If, opcode.Else:
				depth++
			}
		}
	}

	p.bodies = nil
}

// operands of an instruction.  Call targets are named by label, if provided.
func operands(insn *decode.Instruction, label func(uint32) string) string {
	switch insn.Immediate() {
	case opcode.ImmBlockType:
		return insn.Block.String()

	case opcode.ImmIndex:
		if label != nil && (insn.Op == opcode.Call || insn.Op == opcode.RefFunc) {
			return label(insn.Index)
		}
		return strconv.FormatUint(uint64(insn.Index), 10)

	case opcode.ImmIndexPair:
		return fmt.Sprintf("%d %d", insn.Index, insn.Index2)

	case opcode.ImmIndexMemory:
		return strconv.FormatUint(uint64(insn.Index), 10)

	case opcode.ImmBrTable:
		var s strings.Builder
		for _, target := range insn.Targets {
			fmt.Fprintf(&s, "%d ", target)
		}
		fmt.Fprintf(&s, "%d", insn.Index)
		return s.String()

	case opcode.ImmCallIndirect:
		return fmt.Sprintf("type %d table %d", insn.Index, insn.Index2)

	case opcode.ImmSelectTypes, opcode.ImmRefType:
		return insn.Types[0].String()

	case opcode.ImmMemArg:
		return fmt.Sprintf("offset=%d align=%d", insn.MemArg.Offset, uint64(1)<<insn.MemArg.Align)

	case opcode.ImmI32:
		return strconv.FormatInt(int64(insn.I32()), 10)

	case opcode.ImmI64:
		return strconv.FormatInt(insn.I64(), 10)

	case opcode.ImmF32:
		return strconv.FormatFloat(float64(insn.F32()), 'g', -1, 32)

	case opcode.ImmF64:
		return strconv.FormatFloat(insn.F64(), 'g', -1, 64)

	default:
		return ""
	}
}

func constExpr(expr decode.ConstExpr) string {
	s := make([]string, 0, len(expr.Instructions))
	for i := range expr.Instructions {
		insn := &expr.Instructions[i]
		if ops := operands(insn, nil); ops != "" {
			s = append(s, insn.Name()+" "+ops)
		} else {
			s = append(s, insn.Name())
		}
	}
	return "(" + strings.Join(s, " ") + ")"
}
