// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package module

import (
	"go.uber.org/zap"

	"gate.computer/wacore/binary"
	"gate.computer/wacore/decode"
	"gate.computer/wacore/errors"
	"gate.computer/wacore/heap"
	"gate.computer/wacore/internal/initexpr"
	"gate.computer/wacore/internal/log"
	"gate.computer/wacore/memory"
)

// KlassName of module cells.
const KlassName = "module"

// Load decodes a module and stores it in a native cell of the context.
// Nothing is allocated if decoding fails.
func Load(ctx *heap.Context, r binary.Reader, config *decode.Config) (*Module, heap.Handle, error) {
	b := NewBuilder()
	if err := decode.Decode(r, b, config); err != nil {
		return nil, heap.Handle{}, err
	}

	m := b.Module()

	h, err := ctx.NewNative(m, m.Footprint())
	if err != nil {
		return nil, heap.Handle{}, err
	}
	ctx.Tag(h, ctx.System().DefineKlass(KlassName))

	log.Logger().Debug("module loaded",
		zap.Stringer("cell", h),
		zap.Int("types", len(m.Types)),
		zap.Uint32("functions", m.NumFuncs()),
		zap.String("name", m.Names.Module))

	return m, h, nil
}

// NewMemory creates the linear memory of the module in the context, and
// initializes it with active data segments.  Nil memory is returned if the
// module has no memory.
func (m *Module) NewMemory(ctx *heap.Context, config *memory.Config) (*memory.Linear, error) {
	limits, found := m.MemoryLimits()
	if !found {
		return nil, nil
	}

	maximum := memory.Unbounded
	if limits.HasMax {
		maximum = limits.Max
	}

	mem, err := memory.New(ctx, limits.Min, maximum, config)
	if err != nil {
		return nil, err
	}

	for i, seg := range m.Data {
		if seg.Mode != decode.Active {
			continue
		}

		offset, err := initexpr.Offset(seg.Offset, m.GlobalValue)
		if err != nil {
			mem.Close()
			return nil, err
		}

		if !mem.Write(offset, seg.Init) {
			mem.Close()
			return nil, errors.Errorf(errors.Malformed, "data segment #%d out of bounds: offset %d, length %d, memory size %d bytes", i, offset, len(seg.Init), mem.Len())
		}
	}

	return mem, nil
}
