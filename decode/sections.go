// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"gate.computer/wacore/internal/loader"
	"gate.computer/wacore/section"
	"gate.computer/wacore/wa"
)

const (
	maxStringLen     = 100000  // Industry standard.
	maxTypes         = 1000000 // Industry standard.
	maxImports       = 100000  // Industry standard.
	maxFunctions     = 1000000 // Industry standard.
	maxTables        = 100000
	maxMemories      = 100
	maxGlobals       = 1000000 // Industry standard.
	maxExports       = 100000  // Industry standard.
	maxElements      = 10000000
	maxSegments      = 100000 // Industry standard.
	maxFuncParams    = 1000   // Industry standard.
	maxFuncResults   = 1000   // Industry standard.
	maxLocals        = 50000  // Industry standard.
	maxBranchTargets = 1000000
	maxTableSize     = 0xffffffff
	funcTypeForm     = 0x60
)

func (d *decoder) customSection(load loader.L) {
	name := load.Name(maxStringLen, "custom section name")
	payloadOffset := load.Position()
	payload := load.Bytes(uint32(load.Remaining()))

	d.call(payloadOffset, d.v.CustomSection(name, payload))

	if name == section.CustomName {
		d.nameSection(payload, payloadOffset)
	}
}

func (d *decoder) nameSection(payload []byte, offset int64) {
	ns, err := section.DecodeNames(payload, offset)
	if err != nil {
		panic(final{err})
	}

	if ns.ModuleName != "" {
		d.call(offset, d.v.ModuleName(ns.ModuleName))
	}

	for _, fn := range ns.FuncNames {
		if fn.FuncName != "" {
			d.call(offset, d.v.FunctionName(fn.Index, fn.FuncName))
		}
		for _, local := range fn.LocalNames {
			d.call(offset, d.v.LocalName(fn.Index, local.Index, local.Name))
		}
	}
}

func (d *decoder) typeSection(load loader.L) {
	count := load.Count(maxTypes, "type")
	d.call(load.Position(), d.v.TypeSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()

		if form := load.Byte(); form != funcTypeForm {
			loader.Fail(offset, "unsupported function type form: 0x%02x", form)
		}

		var t wa.FuncType

		numParams := load.Count(maxFuncParams, "function parameter")
		if numParams > 0 {
			t.Params = make([]wa.Type, 0, numParams)
			for j := uint32(0); j < numParams; j++ {
				t.Params = append(t.Params, valueType(load))
			}
		}

		numResults := load.Count(maxFuncResults, "function result")
		if numResults > 0 {
			t.Results = make([]wa.Type, 0, numResults)
			for j := uint32(0); j < numResults; j++ {
				t.Results = append(t.Results, valueType(load))
			}
		}

		d.call(offset, d.v.FuncType(i, t))
	}
}

func (d *decoder) importSection(load loader.L) {
	count := load.Count(maxImports, "import")
	d.call(load.Position(), d.v.ImportSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()

		imp := Import{
			Module: load.Name(maxStringLen, "import module name"),
			Field:  load.Name(maxStringLen, "import field name"),
		}

		kindOffset := load.Position()
		imp.Kind = ExternalKind(load.Byte())

		switch imp.Kind {
		case ExternalKindFunction:
			imp.TypeIndex = load.Varuint32()

		case ExternalKindTable:
			imp.Table = tableType(load)

		case ExternalKindMemory:
			imp.Memory = memoryLimits(load)

		case ExternalKindGlobal:
			imp.Global = globalType(load)

		default:
			loader.Fail(kindOffset, "unknown kind of import #%d: 0x%02x", i, byte(imp.Kind))
		}

		d.call(offset, d.v.Import(i, imp))
	}
}

func (d *decoder) functionSection(load loader.L) {
	count := load.Count(maxFunctions, "function")
	d.numFuncs = count
	d.call(load.Position(), d.v.FunctionSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()
		typeIndex := load.Varuint32()
		d.call(offset, d.v.Function(i, typeIndex))
	}
}

func (d *decoder) tableSection(load loader.L) {
	count := load.Count(maxTables, "table")
	d.call(load.Position(), d.v.TableSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()
		d.call(offset, d.v.Table(i, tableType(load)))
	}
}

func (d *decoder) memorySection(load loader.L) {
	count := load.Count(maxMemories, "memory")
	d.call(load.Position(), d.v.MemorySection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()
		d.call(offset, d.v.Memory(i, memoryLimits(load)))
	}
}

func (d *decoder) globalSection(load loader.L) {
	count := load.Count(maxGlobals, "global")
	d.call(load.Position(), d.v.GlobalSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()
		t := globalType(load)
		init := constExpr(load)
		d.call(offset, d.v.Global(i, t, init))
	}
}

func (d *decoder) exportSection(load loader.L) {
	count := load.Count(maxExports, "export")
	d.call(load.Position(), d.v.ExportSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()

		exp := Export{
			Name: load.Name(maxStringLen, "export name"),
		}

		kindOffset := load.Position()
		exp.Kind = ExternalKind(load.Byte())
		if exp.Kind > ExternalKindGlobal {
			loader.Fail(kindOffset, "unknown kind of export %q: 0x%02x", exp.Name, byte(exp.Kind))
		}
		exp.Index = load.Varuint32()

		d.call(offset, d.v.Export(i, exp))
	}
}

func (d *decoder) startSection(load loader.L) {
	offset := load.Position()
	d.call(offset, d.v.Start(load.Varuint32()))
}

// Element segment flag bits.
const (
	elemPassiveOrDeclarative = 1 << 0
	elemExplicitTable        = 1 << 1
	elemExpressions          = 1 << 2
)

func (d *decoder) elementSection(load loader.L) {
	count := load.Count(maxSegments, "element segment")
	d.call(load.Position(), d.v.ElementSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()

		flags := load.Varuint32()
		if flags > 7 {
			loader.Fail(offset, "invalid flags of element segment #%d: 0x%x", i, flags)
		}

		seg := ElementSegment{
			Type: wa.FuncRef,
		}

		if flags&elemPassiveOrDeclarative == 0 {
			seg.Mode = Active
			if flags&elemExplicitTable != 0 {
				seg.Table = load.Varuint32()
			}
			seg.Offset = constExpr(load)
		} else if flags&elemExplicitTable == 0 {
			seg.Mode = Passive
		} else {
			seg.Mode = Declarative
		}

		// Flags 0 and 4 imply funcref without an explicit type.
		explicitType := flags&(elemPassiveOrDeclarative|elemExplicitTable) != 0

		if flags&elemExpressions == 0 {
			if explicitType {
				kindOffset := load.Position()
				if kind := load.Byte(); kind != 0 {
					loader.Fail(kindOffset, "unsupported element kind: 0x%02x", kind)
				}
			}

			n := load.Count(maxElements, "element")
			seg.Funcs = make([]uint32, 0, vecCap(load, n))
			for j := uint32(0); j < n; j++ {
				seg.Funcs = append(seg.Funcs, load.Varuint32())
			}
		} else {
			if explicitType {
				seg.Type = refType(load)
			}

			n := load.Count(maxElements, "element")
			seg.Exprs = make([]ConstExpr, 0, vecCap(load, n))
			for j := uint32(0); j < n; j++ {
				seg.Exprs = append(seg.Exprs, constExpr(load))
			}
		}

		d.call(offset, d.v.Element(i, seg))
	}
}

func (d *decoder) dataCountSection(load loader.L) {
	offset := load.Position()
	d.dataCount = load.Varuint32()
	d.haveDataCount = true
	d.call(offset, d.v.DataCount(d.dataCount))
}

func (d *decoder) dataSection(load loader.L) {
	count := load.Count(maxSegments, "data segment")
	d.numData = count
	d.call(load.Position(), d.v.DataSection(count))

	for i := uint32(0); i < count; i++ {
		offset := load.Position()

		var seg DataSegment

		switch flags := load.Varuint32(); flags {
		case 0:
			seg.Offset = constExpr(load)

		case 1:
			seg.Mode = Passive

		case 2:
			seg.Memory = load.Varuint32()
			seg.Offset = constExpr(load)

		default:
			loader.Fail(offset, "invalid flags of data segment #%d: 0x%x", i, flags)
		}

		size := load.Varuint32()
		seg.Init = load.Bytes(size)

		d.call(offset, d.v.Data(i, seg))
	}
}

func valueType(load loader.L) wa.Type {
	offset := load.Position()
	t := wa.Type(load.Byte())
	if !t.Valid() {
		loader.Fail(offset, "invalid value type: 0x%02x", byte(t))
	}
	return t
}

func refType(load loader.L) wa.Type {
	offset := load.Position()
	t := wa.Type(load.Byte())
	if !t.Reference() {
		loader.Fail(offset, "invalid reference type: 0x%02x", byte(t))
	}
	return t
}

func globalType(load loader.L) wa.GlobalType {
	t := valueType(load)

	offset := load.Position()
	switch mut := load.Byte(); mut {
	case 0:
		return wa.MakeGlobalType(t, false)

	case 1:
		return wa.MakeGlobalType(t, true)

	default:
		loader.Fail(offset, "invalid global mutability: 0x%02x", mut)
		panic("unreachable")
	}
}

func tableType(load loader.L) wa.TableType {
	elem := refType(load)
	return wa.TableType{
		Elem:   elem,
		Limits: limits(load, maxTableSize, "table"),
	}
}

func memoryLimits(load loader.L) wa.Limits {
	return limits(load, wa.MaxPages, "memory")
}

func limits(load loader.L, maxValue uint32, kind string) (l wa.Limits) {
	offset := load.Position()

	switch flags := load.Byte(); flags {
	case 0:

	case 1:
		l.HasMax = true

	default:
		loader.Fail(offset, "invalid %s limits flags: 0x%02x", kind, flags)
	}

	minOffset := load.Position()
	l.Min = load.Varuint32()
	if l.Min > maxValue {
		loader.Fail(minOffset, "initial %s size is too large: %d", kind, l.Min)
	}

	if l.HasMax {
		maxOffset := load.Position()
		l.Max = load.Varuint32()
		if l.Max > maxValue {
			loader.Fail(maxOffset, "maximum %s size is too large: %d", kind, l.Max)
		}
		if l.Max < l.Min {
			loader.Fail(maxOffset, "maximum %s size %d is smaller than initial %s size %d", kind, l.Max, kind, l.Min)
		}
	}

	return
}

// vecCap limits preallocation by the number of remaining bytes, as each item
// takes at least one.
func vecCap(load loader.L, n uint32) int {
	if r := load.Remaining(); r >= 0 && int64(n) > r {
		return int(r)
	}
	return int(n)
}
