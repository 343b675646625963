// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package module

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"gate.computer/wacore/decode"
	"gate.computer/wacore/errors"
	"gate.computer/wacore/heap"
	"gate.computer/wacore/internal/test/modgen"
	"gate.computer/wacore/memory"
	"gate.computer/wacore/section"
	"gate.computer/wacore/wa"
)

func newContext(t *testing.T) *heap.Context {
	t.Helper()

	s, err := heap.NewSystem(heap.Config{MinimumHeapSize: 4096, MaximumHeapSize: 1 << 20})
	require.NoError(t, err)

	ctx, err := s.NewContext()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, ctx.Close())
		assert.NoError(t, s.Close())
	})
	return ctx
}

type testModule struct {
	exports [][]byte
	start   []byte
	code    []byte
	data    []byte
}

func (tm testModule) encode() []byte {
	if tm.exports == nil {
		tm.exports = [][]byte{modgen.Cat(modgen.Name("run"), []byte{0x00}, modgen.U32(1))}
	}
	if tm.code == nil {
		tm.code = []byte{
			0x41, 0x07, // i32.const 7
			0x10, 0x00, // call 0
			0x0b,
		}
	}
	if tm.data == nil {
		tm.data = modgen.Cat(modgen.U32(0), modgen.I32Const(16), modgen.Sized([]byte("abc")))
	}

	m := modgen.New().
		Section(section.Type, modgen.Vec(
			modgen.FuncType(nil, nil),
			modgen.FuncType([]wa.Type{wa.I32}, nil),
		)).
		Section(section.Import, modgen.Vec(
			modgen.Cat(modgen.Name("env"), modgen.Name("log"), []byte{0x00}, modgen.U32(1)),
		)).
		Section(section.Function, modgen.Vec(modgen.U32(0))).
		Section(section.Memory, modgen.Vec([]byte{0x01, 0x01, 0x02})).
		Section(section.Export, modgen.Vec(tm.exports...))

	if tm.start != nil {
		m.Section(section.Start, tm.start)
	}

	return m.
		Section(section.Code, modgen.Vec(modgen.Body(modgen.Vec(modgen.Locals(2, wa.I64)), tm.code...))).
		Section(section.Data, modgen.Vec(tm.data)).
		Custom("name", []byte{0}, modgen.Sized(modgen.Name("test"))).
		Bytes()
}

func load(t *testing.T, ctx *heap.Context, tm testModule) (*Module, heap.Handle, error) {
	t.Helper()
	return Load(ctx, bytes.NewReader(tm.encode()), nil)
}

func TestLoad(t *testing.T) {
	ctx := newContext(t)

	m, h, err := load(t, ctx, testModule{start: modgen.U32(1)})
	require.NoError(t, err)

	assert.Len(t, m.Types, 2)
	assert.Equal(t, uint32(1), m.NumImports(decode.ExternalKindFunction))
	assert.Equal(t, uint32(2), m.NumFuncs())
	assert.Equal(t, uint32(1), m.NumMemories())
	assert.True(t, m.HasStart)
	assert.Equal(t, uint32(1), m.Start)
	assert.Equal(t, "test", m.Names.Module)

	t0, found := m.FuncType(0)
	require.True(t, found)
	assert.Equal(t, []wa.Type{wa.I32}, t0.Params)

	t1, found := m.FuncType(1)
	require.True(t, found)
	assert.Empty(t, t1.Params)

	_, found = m.FuncType(2)
	assert.False(t, found)

	exp, found := m.Export("run")
	require.True(t, found)
	assert.Equal(t, decode.ExternalKindFunction, exp.Kind)
	assert.Equal(t, uint32(1), exp.Index)

	require.Len(t, m.Code, 1)
	assert.Equal(t, uint64(2), m.Code[0].NumLocals())
	assert.Len(t, m.Code[0].Code, 3)

	require.Len(t, m.Custom, 1)
	assert.Equal(t, "name", m.Custom[0].Name)

	assert.True(t, ctx.Valid(h))
	assert.Equal(t, heap.Native, ctx.Cell(h).Kind)
	assert.Equal(t, KlassName, ctx.System().KlassName(ctx.Cell(h).Klass))
	assert.Equal(t, m.Footprint(), ctx.Cell(h).Size)

	same, ok := heap.NativeOf[*Module](ctx, h)
	require.True(t, ok)
	assert.Same(t, m, same)
}

func TestNewMemory(t *testing.T) {
	ctx := newContext(t)

	m, _, err := load(t, ctx, testModule{})
	require.NoError(t, err)

	mem, err := m.NewMemory(ctx, nil)
	require.NoError(t, err)
	defer mem.Close()

	assert.Equal(t, uint32(1), mem.Size())
	assert.Equal(t, uint32(2), mem.Max())

	b, ok := mem.Read(16, 3)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), b)

	x, ok := mem.ReadUint8(15)
	require.True(t, ok)
	assert.Equal(t, byte(0), x)

	assert.True(t, ctx.Valid(mem.Handle()))
	require.NoError(t, mem.Close())
	assert.False(t, ctx.Valid(mem.Handle()))
}

func TestDataSegmentOutOfBounds(t *testing.T) {
	ctx := newContext(t)

	m, _, err := load(t, ctx, testModule{
		data: modgen.Cat(modgen.U32(0), modgen.I32Const(65535), modgen.Sized([]byte("xy"))),
	})
	require.NoError(t, err)

	live := ctx.Live()

	_, err = m.NewMemory(ctx, nil)
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
	assert.Equal(t, live, ctx.Live())
}

func TestInvalidModules(t *testing.T) {
	for name, tm := range map[string]testModule{
		"duplicate export": {
			exports: [][]byte{
				modgen.Cat(modgen.Name("x"), []byte{0x00}, modgen.U32(0)),
				modgen.Cat(modgen.Name("x"), []byte{0x00}, modgen.U32(1)),
			},
		},
		"export index": {
			exports: [][]byte{modgen.Cat(modgen.Name("g"), []byte{0x03}, modgen.U32(0))},
		},
		"start signature": {
			start: modgen.U32(0),
		},
		"start index": {
			start: modgen.U32(5),
		},
		"call index": {
			code: []byte{0x10, 0x09, 0x0b},
		},
		"data memory": {
			data: modgen.Cat(modgen.U32(2), modgen.U32(1), modgen.I32Const(0), modgen.Sized()),
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := newContext(t)

			m, h, err := load(t, ctx, tm)
			require.Error(t, err)
			assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
			assert.Nil(t, m)
			assert.True(t, h.IsZero())
			assert.Equal(t, 0, ctx.Live())
		})
	}
}

func TestDataOffsetGlobal(t *testing.T) {
	ctx := newContext(t)

	data := modgen.New().
		Section(section.Memory, modgen.Vec([]byte{0x00, 0x01})).
		Section(section.Global, modgen.Vec(
			modgen.Global(wa.MakeGlobalType(wa.I32, false), modgen.I32Const(32)),
			modgen.Global(wa.MakeGlobalType(wa.I32, true), modgen.I32Const(64)),
		)).
		Section(section.Data, modgen.Vec(
			modgen.Cat(modgen.U32(0), []byte{0x23, 0x00, 0x0b}, modgen.Sized([]byte("ok"))),
		)).
		Bytes()

	m, _, err := Load(ctx, bytes.NewReader(data), nil)
	require.NoError(t, err)

	value, typ, found := m.GlobalValue(0)
	require.True(t, found)
	assert.Equal(t, wa.I32, typ)
	assert.Equal(t, uint64(32), value)

	_, _, found = m.GlobalValue(1)
	assert.False(t, found, "mutable")

	mem, err := m.NewMemory(ctx, &memory.Config{MaxReservePages: 4})
	require.NoError(t, err)
	defer mem.Close()

	assert.Equal(t, uint32(4), mem.Max())

	b, ok := mem.Read(32, 2)
	require.True(t, ok)
	assert.Equal(t, []byte("ok"), b)
}
