// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"gate.computer/wacore/section"
	"gate.computer/wacore/wa"
)

// Visitor receives decode events in document order, from a single goroutine.
// A non-nil error aborts decoding; Decode returns it wrapped with the offset
// of the construct being reported.
//
// Values passed to the methods are not retained or modified by the decoder.
//
// Section-level count events (TypeSection, ImportSection, ...) precede the
// per-entry events.  Function indexes of code bodies count only the functions
// defined in the module, not imports.
type Visitor interface {
	Header(version uint32) error
	BeginSection(id section.ID, offset int64, payloadSize uint32) error
	EndSection(id section.ID) error

	TypeSection(count uint32) error
	FuncType(index uint32, t wa.FuncType) error

	ImportSection(count uint32) error
	Import(index uint32, imp Import) error

	FunctionSection(count uint32) error
	Function(index, typeIndex uint32) error

	TableSection(count uint32) error
	Table(index uint32, t wa.TableType) error

	MemorySection(count uint32) error
	Memory(index uint32, limits wa.Limits) error

	GlobalSection(count uint32) error
	Global(index uint32, t wa.GlobalType, init ConstExpr) error

	ExportSection(count uint32) error
	Export(index uint32, exp Export) error

	Start(funcIndex uint32) error

	ElementSection(count uint32) error
	Element(index uint32, seg ElementSegment) error

	DataCount(count uint32) error

	CodeSection(count uint32) error
	BeginFunctionBody(index, size uint32) error
	Locals(index uint32, locals []wa.LocalEntry) error
	Instruction(insn Instruction) error
	EndFunctionBody(index uint32) error

	DataSection(count uint32) error
	Data(index uint32, seg DataSegment) error

	CustomSection(name string, payload []byte) error
	ModuleName(name string) error
	FunctionName(funcIndex uint32, name string) error
	LocalName(funcIndex, localIndex uint32, name string) error

	End() error
}

// NopVisitor ignores everything.  Embed it to implement a subset of Visitor.
type NopVisitor struct{}

var _ Visitor = NopVisitor{}

func (NopVisitor) Header(uint32) error                              { return nil }
func (NopVisitor) BeginSection(section.ID, int64, uint32) error     { return nil }
func (NopVisitor) EndSection(section.ID) error                      { return nil }
func (NopVisitor) TypeSection(uint32) error                         { return nil }
func (NopVisitor) FuncType(uint32, wa.FuncType) error               { return nil }
func (NopVisitor) ImportSection(uint32) error                       { return nil }
func (NopVisitor) Import(uint32, Import) error                      { return nil }
func (NopVisitor) FunctionSection(uint32) error                     { return nil }
func (NopVisitor) Function(uint32, uint32) error                    { return nil }
func (NopVisitor) TableSection(uint32) error                        { return nil }
func (NopVisitor) Table(uint32, wa.TableType) error                 { return nil }
func (NopVisitor) MemorySection(uint32) error                       { return nil }
func (NopVisitor) Memory(uint32, wa.Limits) error                   { return nil }
func (NopVisitor) GlobalSection(uint32) error                       { return nil }
func (NopVisitor) Global(uint32, wa.GlobalType, ConstExpr) error    { return nil }
func (NopVisitor) ExportSection(uint32) error                       { return nil }
func (NopVisitor) Export(uint32, Export) error                      { return nil }
func (NopVisitor) Start(uint32) error                               { return nil }
func (NopVisitor) ElementSection(uint32) error                      { return nil }
func (NopVisitor) Element(uint32, ElementSegment) error             { return nil }
func (NopVisitor) DataCount(uint32) error                           { return nil }
func (NopVisitor) CodeSection(uint32) error                         { return nil }
func (NopVisitor) BeginFunctionBody(uint32, uint32) error           { return nil }
func (NopVisitor) Locals(uint32, []wa.LocalEntry) error             { return nil }
func (NopVisitor) Instruction(Instruction) error                    { return nil }
func (NopVisitor) EndFunctionBody(uint32) error                     { return nil }
func (NopVisitor) DataSection(uint32) error                         { return nil }
func (NopVisitor) Data(uint32, DataSegment) error                   { return nil }
func (NopVisitor) CustomSection(string, []byte) error               { return nil }
func (NopVisitor) ModuleName(string) error                          { return nil }
func (NopVisitor) FunctionName(uint32, string) error                { return nil }
func (NopVisitor) LocalName(uint32, uint32, string) error           { return nil }
func (NopVisitor) End() error                                       { return nil }
