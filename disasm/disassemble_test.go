// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"gate.computer/wacore/errors"
	"gate.computer/wacore/internal/test/modgen"
	"gate.computer/wacore/section"
	"gate.computer/wacore/wa"
)

func testModule() *modgen.Module {
	code := []byte{
		0x20, 0x00, // local.get 0
		0x04, 0x7f, // if i32
		0x41, 0x7f, // i32.const -1
		0x05,       // else
		0x20, 0x00, // local.get 0
		0x10, 0x00, // call 0
		0x0b, // end
		0x0b,
	}

	return modgen.New().
		Section(section.Type, modgen.Vec(modgen.FuncType([]wa.Type{wa.I32}, []wa.Type{wa.I32}))).
		Section(section.Function, modgen.Vec(modgen.U32(0))).
		Section(section.Export, modgen.Vec(modgen.Cat(modgen.Name("f"), []byte{0x00}, modgen.U32(0)))).
		Section(section.Code, modgen.Vec(modgen.Body(modgen.Vec(modgen.Locals(1, wa.I32)), code...))).
		Custom("name", []byte{1}, modgen.Sized(modgen.Vec(modgen.Cat(modgen.U32(0), modgen.Name("fact")))))
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, testModule().Reader(), nil))

	text := buf.String()
	t.Log(text)

	assert.True(t, strings.HasPrefix(text, "wasm version 1\n"))
	assert.Contains(t, text, "\ntype section at 0x8 (")
	assert.Contains(t, text, "\ttype 0\t(i32) i32\n")
	assert.Contains(t, text, "\texport 0\t\"f\" function 0\n")
	assert.Contains(t, text, "\tcustom\t\"name\" (")

	assert.True(t, strings.HasSuffix(text, "\nfact:\n"+
		"\t.local\ti32 x1\n"+
		"\tlocal.get\t0\n"+
		"\tif\ti32\n"+
		"\t\ti32.const\t-1\n"+
		"\telse\n"+
		"\t\tlocal.get\t0\n"+
		"\t\tcall\tfact\n"+
		"\tend\n"+
		"\tend\n"), text)
}

func TestFprintError(t *testing.T) {
	data := testModule().Bytes()

	var buf bytes.Buffer
	err := Fprint(&buf, bytes.NewReader(data[:len(data)-3]), nil)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, errors.SectionSizeMismatch), "%v", err)

	text := buf.String()
	assert.Contains(t, text, "\texport 0\t\"f\" function 0\n")
	assert.Contains(t, text, "\nfunc_0:\n")
}

func TestConstExpr(t *testing.T) {
	data := modgen.New().
		Section(section.Global, modgen.Vec(
			modgen.Global(wa.MakeGlobalType(wa.I64, true), modgen.Cat([]byte{0x42}, modgen.I64(-7), []byte{0x0b})),
		)).
		Bytes()

	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, bytes.NewReader(data), nil))
	assert.Contains(t, buf.String(), "\tglobal 0\t(mut i64) = (i64.const -7)\n")
}
