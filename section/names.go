// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section

import (
	"gate.computer/wacore/errors"
	"gate.computer/wacore/internal/errorpanic"
	"gate.computer/wacore/internal/loader"
)

const (
	maxFuncNames  = 1000000 // Industry standard.
	maxLocalNames = 50000   // Industry standard.
	maxNameLen    = 100000
)

const CustomName = "name"

const (
	nameSubsectionModuleName byte = iota
	nameSubsectionFunctionNames
	nameSubsectionLocalNames
)

type LocalName struct {
	Index uint32
	Name  string
}

type FuncName struct {
	Index      uint32
	FuncName   string
	LocalNames []LocalName
}

type NameSection struct {
	ModuleName string
	FuncNames  []FuncName

	index map[uint32]int
}

// Func looks up names of a function, if any.
func (ns *NameSection) Func(index uint32) *FuncName {
	if ns.index == nil {
		ns.index = make(map[uint32]int, len(ns.FuncNames))
		for i, fn := range ns.FuncNames {
			ns.index[fn.Index] = i
		}
	}
	if i, found := ns.index[index]; found {
		return &ns.FuncNames[i]
	}
	return nil
}

func (ns *NameSection) add(fn FuncName) {
	ns.Func(fn.Index) // Initialize index.
	ns.index[fn.Index] = len(ns.FuncNames)
	ns.FuncNames = append(ns.FuncNames, fn)
}

// DecodeNames parses the payload of a "name" custom section (after the section
// name).  Offset is the absolute position of the payload within the module.
// Unknown subsections are skipped.  Content which overruns the payload or a
// subsection is malformed, since the payload itself has been framed already.
func DecodeNames(payload []byte, offset int64) (ns *NameSection, err error) {
	defer func() {
		if x := recover(); x != nil {
			ns = nil
			err = errorpanic.Handle(x)

			if e, ok := err.(*errors.Error); ok && e.Kind == errors.Truncated {
				overrun := errors.Wrap(errors.Malformed, e, "name section content exceeds its declared size")
				overrun.Offset = e.Offset
				err = overrun
			}
		}
	}()

	ns = new(NameSection)
	load := loader.NewBounded(payload, offset)

	for prevID := -1; load.Remaining() > 0; {
		idOffset := load.Position()
		id := load.Byte()
		if int(id) <= prevID {
			loader.Fail(idOffset, "name subsection 0x%x out of order", id)
		}
		prevID = int(id)

		contentSize := load.Varuint32()
		contentOffset := load.Position()
		content := load.Bytes(contentSize)

		sub := loader.NewBounded(content, contentOffset)
		ns.readSubsection(id, sub)

		if n := sub.Remaining(); n != 0 {
			err := errors.Errorf(errors.SectionSizeMismatch, "name subsection %d has %d trailing bytes", id, n)
			err.Offset = sub.Position()
			panic(err)
		}
	}

	return
}

func (ns *NameSection) readSubsection(id byte, load loader.L) {
	switch id {
	case nameSubsectionModuleName:
		ns.ModuleName = load.Name(maxNameLen, "name section: module name")

	case nameSubsectionFunctionNames:
		count := load.Count(maxFuncNames, "function name")
		for i := uint32(0); i < count; i++ {
			funcIndex := load.Varuint32()
			name := load.Name(maxNameLen, "name section: function name")

			if fn := ns.Func(funcIndex); fn != nil {
				fn.FuncName = name
			} else {
				ns.add(FuncName{Index: funcIndex, FuncName: name})
			}
		}

	case nameSubsectionLocalNames:
		count := load.Count(maxFuncNames, "local name function")
		for i := uint32(0); i < count; i++ {
			funcIndex := load.Varuint32()
			numLocals := load.Count(maxLocalNames, "local name")

			locals := make([]LocalName, 0, numLocals)
			for j := uint32(0); j < numLocals; j++ {
				localIndex := load.Varuint32()
				name := load.Name(maxNameLen, "name section: local name")
				locals = append(locals, LocalName{localIndex, name})
			}

			if fn := ns.Func(funcIndex); fn != nil {
				fn.LocalNames = locals
			} else {
				ns.add(FuncName{Index: funcIndex, LocalNames: locals})
			}
		}

	default:
		load.Discard(uint32(load.Remaining()))
	}
}
