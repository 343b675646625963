// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"gate.computer/wacore/errors"
)

func newTestSystem(t *testing.T, min, max int64) *System {
	t.Helper()

	s, err := NewSystem(Config{MinimumHeapSize: min, MaximumHeapSize: max})
	require.NoError(t, err)
	return s
}

func TestSystemLifecycle(t *testing.T) {
	s := newTestSystem(t, 4096, 1<<20)

	ctx, err := s.NewContext()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Contexts())

	err = s.Close()
	assert.True(t, xerrors.Is(err, errors.InvalidState), err)

	require.NoError(t, ctx.Close())
	assert.Equal(t, 0, s.Contexts())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), errors.InvalidState)

	_, err = s.NewContext()
	assert.ErrorIs(t, err, errors.InvalidState)
}

func TestSystemConfig(t *testing.T) {
	_, err := NewSystem(Config{MinimumHeapSize: 2 << 20, MaximumHeapSize: 1 << 20})
	assert.ErrorIs(t, err, errors.InvalidState)

	s, err := NewSystem(Config{})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, int64(DefaultMinimumHeapSize), s.Config().MinimumHeapSize)
	assert.Equal(t, int64(DefaultMaximumHeapSize), s.Config().MaximumHeapSize)
	assert.GreaterOrEqual(t, s.Committed(), int64(DefaultMinimumHeapSize))
}

func TestManagedCells(t *testing.T) {
	s := newTestSystem(t, 4096, 1<<20)
	defer s.Close()

	ctx, err := s.NewContext()
	require.NoError(t, err)
	defer ctx.Close()

	h1, err := ctx.Allocate(Managed, 10)
	require.NoError(t, err)
	h2, err := ctx.Allocate(Managed, 100)
	require.NoError(t, err)

	b1 := ctx.Bytes(h1)
	require.Len(t, b1, 10)
	for i := range b1 {
		b1[i] = 0xff
	}

	b2 := ctx.Bytes(h2)
	require.Len(t, b2, 100)
	for _, x := range b2 {
		require.Equal(t, byte(0), x)
	}

	assert.Equal(t, Cell{Kind: Managed, Size: 10}, ctx.Cell(h1))
	assert.Equal(t, 2, ctx.Live())
	assert.Equal(t, int64(16+112), ctx.Used())
	assert.Equal(t, ctx.Used(), s.Used())

	require.NoError(t, ctx.Free(h1))
	assert.False(t, ctx.Valid(h1))
	assert.Equal(t, 1, ctx.Live())

	// The freed span is reused and cleared.
	h3, err := ctx.Allocate(Managed, 16)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
	for _, x := range ctx.Bytes(h3) {
		require.Equal(t, byte(0), x)
	}
}

func TestOutOfMemory(t *testing.T) {
	s := newTestSystem(t, 4096, 64<<10)
	defer s.Close()

	ctx, err := s.NewContext()
	require.NoError(t, err)
	defer ctx.Close()

	_, err = ctx.Allocate(Managed, 32<<10)
	require.NoError(t, err)

	_, err = ctx.Allocate(Managed, 64<<10)
	assert.ErrorIs(t, err, errors.OutOfMemory)

	_, err = ctx.NewNative("x", 64<<10)
	assert.ErrorIs(t, err, errors.OutOfMemory)

	assert.Equal(t, 1, ctx.Live())
	assert.Equal(t, int64(32<<10), s.Used())
}

type closer struct {
	closed *[]string
	name   string
	err    error
}

func (c closer) Close() error {
	*c.closed = append(*c.closed, c.name)
	return c.err
}

func TestNativeCells(t *testing.T) {
	s := newTestSystem(t, 4096, 1<<20)
	defer s.Close()

	ctx, err := s.NewContext()
	require.NoError(t, err)

	var closed []string
	failure := xerrors.New("close failure")

	ha, err := ctx.NewNative(closer{&closed, "a", nil}, 100)
	require.NoError(t, err)
	hb, err := ctx.NewNative(closer{&closed, "b", failure}, 100)
	require.NoError(t, err)
	hs, err := ctx.NewNative("plain", 0)
	require.NoError(t, err)

	str, ok := NativeOf[string](ctx, hs)
	assert.True(t, ok)
	assert.Equal(t, "plain", str)

	_, ok = NativeOf[int](ctx, hs)
	assert.False(t, ok)

	k := s.DefineKlass("Module")
	assert.Equal(t, k, s.DefineKlass("Module"))
	assert.Equal(t, "Module", s.KlassName(k))
	assert.Equal(t, "", s.KlassName(NoKlass))

	ctx.Tag(ha, k)
	assert.Equal(t, Cell{Kind: Native, Klass: k, Size: 100}, ctx.Cell(ha))

	assert.Panics(t, func() { ctx.Bytes(ha) })

	err = ctx.Close()
	assert.True(t, xerrors.Is(err, failure))
	assert.Equal(t, []string{"b", "a"}, closed)
	assert.Equal(t, int64(0), s.Used())

	_ = hb
}

func TestStaleHandles(t *testing.T) {
	s := newTestSystem(t, 4096, 1<<20)
	defer s.Close()

	ctx1, err := s.NewContext()
	require.NoError(t, err)
	ctx2, err := s.NewContext()
	require.NoError(t, err)
	defer ctx2.Close()

	h, err := ctx1.Allocate(Managed, 8)
	require.NoError(t, err)

	assert.False(t, ctx2.Valid(h))
	assertInvalidState(t, func() { ctx2.Cell(h) })
	assertInvalidState(t, func() { ctx1.Cell(Handle{}) })

	require.NoError(t, ctx1.Free(h))
	assertInvalidState(t, func() { ctx1.Free(h) })

	h, err = ctx1.Allocate(Managed, 8)
	require.NoError(t, err)
	require.NoError(t, ctx1.Close())

	assertInvalidState(t, func() { ctx1.Bytes(h) })
	assert.ErrorIs(t, ctx1.Close(), errors.InvalidState)

	_, err = ctx1.Allocate(Native, 0)
	assert.ErrorIs(t, err, errors.InvalidState)
}

func assertInvalidState(t *testing.T, f func()) {
	t.Helper()

	defer func() {
		t.Helper()

		x := recover()
		require.NotNil(t, x, "no panic")
		err, ok := x.(error)
		require.True(t, ok, "panic value is not an error: %v", x)
		assert.ErrorIs(t, err, errors.InvalidState)
	}()

	f()
}

func TestArenaCoalescing(t *testing.T) {
	s := newTestSystem(t, 4096, 1<<20)
	defer s.Close()

	ctx, err := s.NewContext()
	require.NoError(t, err)
	defer ctx.Close()

	var hs []Handle
	for i := 0; i < 4; i++ {
		h, err := ctx.Allocate(Managed, 32)
		require.NoError(t, err)
		hs = append(hs, h)
	}

	require.NoError(t, ctx.Free(hs[1]))
	require.NoError(t, ctx.Free(hs[2]))
	assert.Equal(t, []span{{32, 64}}, s.arena.spans)

	require.NoError(t, ctx.Free(hs[3]))
	assert.Empty(t, s.arena.spans)
	assert.Equal(t, int64(32), s.arena.top)
}
