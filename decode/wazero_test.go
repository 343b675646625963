// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"gate.computer/wacore/internal/test/modgen"
	"gate.computer/wacore/section"
	"gate.computer/wacore/wa"
)

func calcModule() []byte {
	types := modgen.Vec(
		modgen.FuncType([]wa.Type{wa.I32, wa.I32}, []wa.Type{wa.I32}),
		modgen.FuncType(nil, nil),
	)

	add := modgen.Body(modgen.Vec(),
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x6a, // i32.add
		0x0b)

	fill := modgen.Body(modgen.Vec(modgen.Locals(1, wa.I64)),
		0x41, 0x00, // i32.const 0
		0x41, 0x2a, // i32.const 42
		0x41, 0x04, // i32.const 4
		0xfc, 0x0b, 0x00, // memory.fill
		0x0b)

	exports := modgen.Vec(
		modgen.Cat(modgen.Name("add"), []byte{0x00}, modgen.U32(0)),
		modgen.Cat(modgen.Name("fill"), []byte{0x00}, modgen.U32(1)),
		modgen.Cat(modgen.Name("mem"), []byte{0x02}, modgen.U32(0)),
	)

	names := modgen.Cat(
		[]byte{0}, modgen.Sized(modgen.Name("calc")),
		[]byte{1}, modgen.Sized(modgen.Vec(
			modgen.Cat(modgen.U32(0), modgen.Name("add")),
			modgen.Cat(modgen.U32(1), modgen.Name("fill")),
		)),
	)

	return modgen.New().
		Section(section.Type, types).
		Section(section.Function, modgen.Vec(modgen.U32(0), modgen.U32(1))).
		Section(section.Memory, modgen.Vec([]byte{0x01, 0x01, 0x02})).
		Section(section.Export, exports).
		Section(section.Code, modgen.Vec(add, fill)).
		Section(section.Data, modgen.Vec(modgen.Cat(modgen.U32(0), modgen.I32Const(8), modgen.Sized([]byte("hi"))))).
		Custom("name", names).
		Bytes()
}

// TestWazeroAgreement checks that an independent implementation accepts the
// same module and sees the same structure.
func TestWazeroAgreement(t *testing.T) {
	data := calcModule()

	var r recorder
	require.NoError(t, decodeBytes(data, &r))

	ctx := context.Background()

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, data)
	require.NoError(t, err)

	assert.Equal(t, "calc", compiled.Name())
	assert.Contains(t, r.events, `module name "calc"`)

	var funcNames []string
	for name := range compiled.ExportedFunctions() {
		funcNames = append(funcNames, name)
	}
	sort.Strings(funcNames)
	assert.Equal(t, []string{"add", "fill"}, funcNames)

	def := compiled.ExportedFunctions()["add"]
	assert.Equal(t, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, def.ParamTypes())
	assert.Equal(t, []api.ValueType{api.ValueTypeI32}, def.ResultTypes())
	assert.Contains(t, r.events, "type 0 (i32, i32) i32")

	mem, found := compiled.ExportedMemories()["mem"]
	require.True(t, found)
	assert.Equal(t, uint32(1), mem.Min())
	max, hasMax := mem.Max()
	assert.True(t, hasMax)
	assert.Equal(t, uint32(2), max)
	assert.Contains(t, r.events, "memory 0 1 2")

	assert.Contains(t, r.events, `export 0 "add" function 0`)
	assert.Contains(t, r.events, `export 2 "mem" memory 0`)
	assert.Contains(t, r.events, `data 0 active "hi"`)

	instance, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	require.NoError(t, err)

	results, err := instance.ExportedFunction("add").Call(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, results)

	b, ok := instance.Memory().Read(8, 2)
	require.True(t, ok)
	assert.Equal(t, []byte("hi"), b)
}
