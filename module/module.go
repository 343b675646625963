// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package module materializes decoded WebAssembly modules.
package module

import (
	"unsafe"

	"gate.computer/wacore/decode"
	"gate.computer/wacore/wa"
)

type Global struct {
	Type wa.GlobalType
	Init decode.ConstExpr
}

// Body of a defined function.
type Body struct {
	Locals []wa.LocalEntry
	Code   []decode.Instruction // Including the final end.
}

// NumLocals excluding parameters.
func (b *Body) NumLocals() (n uint64) {
	for _, e := range b.Locals {
		n += uint64(e.Count)
	}
	return
}

type CustomSection struct {
	Name    string
	Payload []byte
}

// Names from the name section.
type Names struct {
	Module string
	Funcs  map[uint32]string
	Locals map[uint32]map[uint32]string
}

// Module is the structural representation of a decoded module.  Index spaces
// of functions, tables, memories and globals include imports first.
type Module struct {
	Types        []wa.FuncType
	Imports      []decode.Import
	Funcs        []uint32 // Type indexes of defined functions.
	Tables       []wa.TableType
	Memories     []wa.Limits
	Globals      []Global
	Exports      []decode.Export
	Start        uint32
	HasStart     bool
	Elements     []decode.ElementSegment
	Data         []decode.DataSegment
	DataCount    uint32
	HasDataCount bool
	Code         []Body
	Names        Names
	Custom       []CustomSection

	importCounts [4]uint32 // Indexed by external kind.
}

// NumImports of a kind.
func (m *Module) NumImports(kind decode.ExternalKind) uint32 {
	return m.importCounts[kind]
}

// NumFuncs including imports.
func (m *Module) NumFuncs() uint32 {
	return m.importCounts[decode.ExternalKindFunction] + uint32(len(m.Funcs))
}

func (m *Module) NumTables() uint32 {
	return m.importCounts[decode.ExternalKindTable] + uint32(len(m.Tables))
}

func (m *Module) NumMemories() uint32 {
	return m.importCounts[decode.ExternalKindMemory] + uint32(len(m.Memories))
}

func (m *Module) NumGlobals() uint32 {
	return m.importCounts[decode.ExternalKindGlobal] + uint32(len(m.Globals))
}

// FuncType of a function in the function index space.
func (m *Module) FuncType(funcIndex uint32) (t wa.FuncType, found bool) {
	numImports := m.importCounts[decode.ExternalKindFunction]

	if funcIndex < numImports {
		var i uint32
		for _, imp := range m.Imports {
			if imp.Kind == decode.ExternalKindFunction {
				if i == funcIndex {
					return m.Types[imp.TypeIndex], true
				}
				i++
			}
		}
	}

	if i := funcIndex - numImports; funcIndex >= numImports && i < uint32(len(m.Funcs)) {
		return m.Types[m.Funcs[i]], true
	}

	return
}

// GlobalValue of an immutable global defined with a constant initializer.
// Imported globals have no value.
func (m *Module) GlobalValue(index uint32) (valueBits uint64, t wa.Type, found bool) {
	numImports := m.importCounts[decode.ExternalKindGlobal]
	if index < numImports || index-numImports >= uint32(len(m.Globals)) {
		return
	}

	g := m.Globals[index-numImports]
	if g.Type.Mutable {
		return
	}

	valueBits, t, found = g.Init.Const()
	return
}

// Export by name.
func (m *Module) Export(name string) (exp decode.Export, found bool) {
	for _, exp = range m.Exports {
		if exp.Name == name {
			return exp, true
		}
	}
	return decode.Export{}, false
}

// MemoryLimits of the defined or imported memory.
func (m *Module) MemoryLimits() (limits wa.Limits, found bool) {
	for _, imp := range m.Imports {
		if imp.Kind == decode.ExternalKindMemory {
			return imp.Memory, true
		}
	}
	if len(m.Memories) > 0 {
		return m.Memories[0], true
	}
	return
}

// Footprint estimates the host memory used by the module representation.
func (m *Module) Footprint() (n int64) {
	n = int64(unsafe.Sizeof(*m))
	for _, b := range m.Code {
		n += int64(len(b.Code)) * int64(unsafe.Sizeof(decode.Instruction{}))
	}
	for _, seg := range m.Data {
		n += int64(len(seg.Init))
	}
	for _, c := range m.Custom {
		n += int64(len(c.Payload))
	}
	return
}
