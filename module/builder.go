// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package module

import (
	"gate.computer/wacore/decode"
	"gate.computer/wacore/errors"
	"gate.computer/wacore/wa"
	"gate.computer/wacore/wa/opcode"
)

// Builder is a visitor which materializes a Module.  It rejects modules with
// out-of-range indexes, duplicate export names or multiple memories.
type Builder struct {
	decode.NopVisitor

	m           Module
	exportNames map[string]struct{}
	body        *Body
}

var _ decode.Visitor = (*Builder)(nil)

func NewBuilder() *Builder {
	return &Builder{
		exportNames: make(map[string]struct{}),
	}
}

// Module which has been built so far.  It is complete only after successful
// decoding.
func (b *Builder) Module() *Module {
	return &b.m
}

func (b *Builder) FuncType(index uint32, t wa.FuncType) error {
	b.m.Types = append(b.m.Types, t)
	return nil
}

func (b *Builder) Import(index uint32, imp decode.Import) error {
	switch imp.Kind {
	case decode.ExternalKindFunction:
		if err := b.checkType(imp.TypeIndex); err != nil {
			return err
		}

	case decode.ExternalKindMemory:
		if err := b.checkMemoryCount(); err != nil {
			return err
		}
	}

	b.m.Imports = append(b.m.Imports, imp)
	b.m.importCounts[imp.Kind]++
	return nil
}

func (b *Builder) Function(index, typeIndex uint32) error {
	if err := b.checkType(typeIndex); err != nil {
		return err
	}
	b.m.Funcs = append(b.m.Funcs, typeIndex)
	return nil
}

func (b *Builder) Table(index uint32, t wa.TableType) error {
	b.m.Tables = append(b.m.Tables, t)
	return nil
}

func (b *Builder) Memory(index uint32, limits wa.Limits) error {
	if err := b.checkMemoryCount(); err != nil {
		return err
	}
	b.m.Memories = append(b.m.Memories, limits)
	return nil
}

func (b *Builder) Global(index uint32, t wa.GlobalType, init decode.ConstExpr) error {
	b.m.Globals = append(b.m.Globals, Global{t, init})
	return nil
}

func (b *Builder) Export(index uint32, exp decode.Export) error {
	if _, dupe := b.exportNames[exp.Name]; dupe {
		return errors.Errorf(errors.Malformed, "duplicate export name: %q", exp.Name)
	}

	var limit uint32

	switch exp.Kind {
	case decode.ExternalKindFunction:
		limit = b.m.NumFuncs()

	case decode.ExternalKindTable:
		limit = b.m.NumTables()

	case decode.ExternalKindMemory:
		limit = b.m.NumMemories()

	case decode.ExternalKindGlobal:
		limit = b.m.NumGlobals()
	}

	if exp.Index >= limit {
		return errors.Errorf(errors.Malformed, "%s index of export %q out of bounds: %d", exp.Kind, exp.Name, exp.Index)
	}

	b.exportNames[exp.Name] = struct{}{}
	b.m.Exports = append(b.m.Exports, exp)
	return nil
}

func (b *Builder) Start(funcIndex uint32) error {
	t, found := b.m.FuncType(funcIndex)
	if !found {
		return errors.Errorf(errors.Malformed, "start function index out of bounds: %d", funcIndex)
	}
	if !t.Equal(wa.FuncType{}) {
		return errors.Errorf(errors.Malformed, "invalid start function signature: %s", t)
	}

	b.m.Start = funcIndex
	b.m.HasStart = true
	return nil
}

func (b *Builder) Element(index uint32, seg decode.ElementSegment) error {
	for _, funcIndex := range seg.Funcs {
		if funcIndex >= b.m.NumFuncs() {
			return errors.Errorf(errors.Malformed, "function index of element segment #%d out of bounds: %d", index, funcIndex)
		}
	}
	if seg.Mode == decode.Active && seg.Table >= b.m.NumTables() {
		return errors.Errorf(errors.Malformed, "table index of element segment #%d out of bounds: %d", index, seg.Table)
	}

	b.m.Elements = append(b.m.Elements, seg)
	return nil
}

func (b *Builder) DataCount(count uint32) error {
	b.m.DataCount = count
	b.m.HasDataCount = true
	return nil
}

func (b *Builder) BeginFunctionBody(index, size uint32) error {
	b.m.Code = append(b.m.Code, Body{})
	b.body = &b.m.Code[len(b.m.Code)-1]
	return nil
}

func (b *Builder) Locals(index uint32, locals []wa.LocalEntry) error {
	b.body.Locals = locals
	return nil
}

func (b *Builder) Instruction(insn decode.Instruction) error {
	switch insn.Op {
	case opcode.Call, opcode.RefFunc:
		if insn.Index >= b.m.NumFuncs() {
			return errors.Errorf(errors.Malformed, "function index out of bounds: %d", insn.Index)
		}

	case opcode.CallIndirect:
		if err := b.checkType(insn.Index); err != nil {
			return err
		}
	}

	b.body.Code = append(b.body.Code, insn)
	return nil
}

func (b *Builder) EndFunctionBody(index uint32) error {
	b.body = nil
	return nil
}

func (b *Builder) Data(index uint32, seg decode.DataSegment) error {
	if seg.Mode == decode.Active && seg.Memory >= b.m.NumMemories() {
		return errors.Errorf(errors.Malformed, "memory index of data segment #%d out of bounds: %d", index, seg.Memory)
	}

	b.m.Data = append(b.m.Data, seg)
	return nil
}

func (b *Builder) CustomSection(name string, payload []byte) error {
	b.m.Custom = append(b.m.Custom, CustomSection{name, payload})
	return nil
}

func (b *Builder) ModuleName(name string) error {
	b.m.Names.Module = name
	return nil
}

func (b *Builder) FunctionName(funcIndex uint32, name string) error {
	if b.m.Names.Funcs == nil {
		b.m.Names.Funcs = make(map[uint32]string)
	}
	b.m.Names.Funcs[funcIndex] = name
	return nil
}

func (b *Builder) LocalName(funcIndex, localIndex uint32, name string) error {
	if b.m.Names.Locals == nil {
		b.m.Names.Locals = make(map[uint32]map[uint32]string)
	}
	locals := b.m.Names.Locals[funcIndex]
	if locals == nil {
		locals = make(map[uint32]string)
		b.m.Names.Locals[funcIndex] = locals
	}
	locals[localIndex] = name
	return nil
}

func (b *Builder) checkType(typeIndex uint32) error {
	if typeIndex >= uint32(len(b.m.Types)) {
		return errors.Errorf(errors.Malformed, "function type index out of bounds: %d", typeIndex)
	}
	return nil
}

func (b *Builder) checkMemoryCount() error {
	if b.m.NumMemories() > 0 {
		return errors.New(errors.Malformed, "multiple memories not supported")
	}
	return nil
}
