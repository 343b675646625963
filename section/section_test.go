// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"gate.computer/wacore/errors"
)

func TestOrder(t *testing.T) {
	assert.Equal(t, 0, Custom.Order())
	assert.Less(t, Element.Order(), DataCount.Order())
	assert.Less(t, DataCount.Order(), Code.Order())
	assert.Less(t, Code.Order(), Data.Order())
	assert.Equal(t, -1, ID(13).Order())
	assert.False(t, ID(13).Known())
	assert.Equal(t, "datacount", DataCount.String())
	assert.Equal(t, "<unknown section 0x0d>", ID(13).String())
}

func TestMap(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.PutSection(Code, 100, 10, 8))

	assert.Equal(t, ByteRange{100, 10}, m.Sections[Code])
	assert.Equal(t, ByteRange{102, 8}, m.Payloads[Code])
	assert.Equal(t, int64(110), m.Sections[Code].End())
}

func nameEntry(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func TestDecodeNames(t *testing.T) {
	var payload []byte

	module := nameEntry("mod")
	payload = append(payload, 0, byte(len(module)))
	payload = append(payload, module...)

	funcs := []byte{2}
	funcs = append(funcs, 0)
	funcs = append(funcs, nameEntry("main")...)
	funcs = append(funcs, 3)
	funcs = append(funcs, nameEntry("helper")...)
	payload = append(payload, 1, byte(len(funcs)))
	payload = append(payload, funcs...)

	locals := []byte{1, 3, 2}
	locals = append(locals, 0)
	locals = append(locals, nameEntry("x")...)
	locals = append(locals, 1)
	locals = append(locals, nameEntry("y")...)
	payload = append(payload, 2, byte(len(locals)))
	payload = append(payload, locals...)

	payload = append(payload, 9, 2, 0xff, 0xff) // Unknown subsection.

	ns, err := DecodeNames(payload, 50)
	require.NoError(t, err)

	assert.Equal(t, "mod", ns.ModuleName)
	require.Len(t, ns.FuncNames, 2)
	assert.Equal(t, "main", ns.Func(0).FuncName)
	assert.Nil(t, ns.Func(1))

	helper := ns.Func(3)
	require.NotNil(t, helper)
	assert.Equal(t, "helper", helper.FuncName)
	assert.Equal(t, []LocalName{{0, "x"}, {1, "y"}}, helper.LocalNames)
}

func TestDecodeNamesErrors(t *testing.T) {
	_, err := DecodeNames([]byte{1, 1, 0, 0, 1, 0}, 10)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
	var e *errors.Error
	require.True(t, xerrors.As(err, &e))
	assert.Equal(t, int64(13), e.Offset)

	_, err = DecodeNames([]byte{0, 3, 1, 'a', 'b'}, 0)
	assert.True(t, xerrors.Is(err, errors.SectionSizeMismatch), "%v", err)

	_, err = DecodeNames([]byte{0, 5, 1, 'a'}, 0)
	assert.Equal(t, errors.Malformed, errors.KindOf(err), "%v", err)
	assert.True(t, xerrors.Is(err, errors.Truncated), "%v", err)

	// Subsection framing is exact but the name overruns it.
	_, err = DecodeNames([]byte{0, 2, 5, 'a'}, 100)
	assert.Equal(t, errors.Malformed, errors.KindOf(err), "%v", err)
	assert.False(t, xerrors.Is(err, errors.SectionSizeMismatch), "%v", err)
	require.True(t, xerrors.As(err, &e))
	assert.Equal(t, int64(104), e.Offset)

	_, err = DecodeNames([]byte{0, 2, 1, 0xff}, 0)
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
}
