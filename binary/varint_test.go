// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"gate.computer/wacore/errors"
)

func TestVaruint32(t *testing.T) {
	for _, c := range []struct {
		in  []byte
		out uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0x80, 0x00}, 0}, // Redundant but within the length limit.
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, math.MaxUint32},
	} {
		x, n, err := Varuint32(bytes.NewReader(c.in))
		require.NoError(t, err, "%x", c.in)
		assert.Equal(t, c.out, x, "%x", c.in)
		assert.Equal(t, len(c.in), n)
	}
}

func TestVaruint32Errors(t *testing.T) {
	_, n, err := Varuint32(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x1f}))
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
	assert.Equal(t, 5, n)

	_, n, err = Varuint32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}))
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
	assert.Equal(t, 5, n)

	_, n, err = Varuint32(bytes.NewReader([]byte{0x80, 0x80}))
	assert.True(t, xerrors.Is(err, errors.Truncated), "%v", err)
	assert.True(t, xerrors.Is(err, io.ErrUnexpectedEOF), "%v", err)
	assert.Equal(t, 2, n)

	_, n, err = Varuint32(bytes.NewReader(nil))
	assert.True(t, xerrors.Is(err, errors.Truncated), "%v", err)
	assert.Equal(t, 0, n)
}

func TestVarint32(t *testing.T) {
	for _, c := range []struct {
		in  []byte
		out int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x3f}, 63},
		{[]byte{0x40}, -64},
		{[]byte{0x7f}, -1},
		{[]byte{0x80, 0x7f}, -128},
		{[]byte{0xc0, 0xbb, 0x78}, -123456},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x07}, math.MaxInt32},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, math.MinInt32},
	} {
		x, n, err := Varint32(bytes.NewReader(c.in))
		require.NoError(t, err, "%x", c.in)
		assert.Equal(t, c.out, x, "%x", c.in)
		assert.Equal(t, len(c.in), n)
	}

	for _, in := range [][]byte{
		{0xff, 0xff, 0xff, 0xff, 0x08},
		{0x80, 0x80, 0x80, 0x80, 0x77},
		{0x80, 0x80, 0x80, 0x80, 0x80, 0x00},
	} {
		_, _, err := Varint32(bytes.NewReader(in))
		assert.True(t, xerrors.Is(err, errors.Malformed), "%x: %v", in, err)
	}
}

func TestVarint33(t *testing.T) {
	x, _, err := Varint33(bytes.NewReader([]byte{0x40}))
	require.NoError(t, err)
	assert.Equal(t, int64(-64), x)

	x, _, err = Varint33(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxUint32), x)

	x, _, err = Varint33(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x70}))
	require.NoError(t, err)
	assert.Equal(t, int64(-1)<<32, x)

	_, _, err = Varint33(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x1f}))
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
}

func TestVarint64(t *testing.T) {
	x, n, err := Varint64(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7f}))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), x)
	assert.Equal(t, 10, n)

	x, _, err = Varint64(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), x)

	_, _, err = Varint64(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}))
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
}

func TestVaruint64(t *testing.T) {
	x, _, err := Varuint64(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), x)

	_, _, err = Varuint64(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}))
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
}

func TestSmallValues(t *testing.T) {
	b, _, err := Varuint1(bytes.NewReader([]byte{1}))
	require.NoError(t, err)
	assert.True(t, b)

	_, _, err = Varuint1(bytes.NewReader([]byte{2}))
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)

	x, _, err := Varint7(bytes.NewReader([]byte{0x7f}))
	require.NoError(t, err)
	assert.Equal(t, int8(-1), x)

	_, _, err = Varint7(bytes.NewReader([]byte{0x80}))
	assert.True(t, xerrors.Is(err, errors.Malformed), "%v", err)
}

func TestFixedWidth(t *testing.T) {
	x, n, err := Uint32(bytes.NewReader([]byte{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), x)
	assert.Equal(t, 4, n)

	y, _, err := Uint64(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), y)

	_, n, err = Uint32(bytes.NewReader([]byte{1, 2}))
	assert.True(t, xerrors.Is(err, errors.Truncated), "%v", err)
	assert.Equal(t, 2, n)
}

// requireTruncated checks that a multi-byte encoding fails to decode without
// its final byte.
func requireTruncated(t *testing.T, b []byte, decode func(Reader) (int, error)) {
	t.Helper()

	if len(b) < 2 {
		return
	}

	n, err := decode(bytes.NewReader(b[:len(b)-1]))
	assert.True(t, xerrors.Is(err, errors.Truncated), "% x: %v", b, err)
	assert.Equal(t, len(b)-1, n, "% x", b)
}

func TestAppendRoundTrip(t *testing.T) {
	for _, x := range []int64{0, 1, -1, 63, 64, -64, -65, 127, 128, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64} {
		b := AppendVarint64(nil, x)
		y, n, err := Varint64(bytes.NewReader(b))
		require.NoError(t, err)
		assert.Equal(t, x, y)
		assert.Equal(t, len(b), n)

		requireTruncated(t, b, func(r Reader) (int, error) {
			_, n, err := Varint64(r)
			return n, err
		})

		if x >= math.MinInt32 && x <= math.MaxInt32 {
			b := AppendVarint32(nil, int32(x))
			y, _, err := Varint32(bytes.NewReader(b))
			require.NoError(t, err)
			assert.Equal(t, int32(x), y)

			requireTruncated(t, b, func(r Reader) (int, error) {
				_, n, err := Varint32(r)
				return n, err
			})
			requireTruncated(t, b, func(r Reader) (int, error) {
				_, n, err := Varint33(r)
				return n, err
			})
		}
	}

	for _, x := range []uint64{0, 1, 127, 128, 16383, 16384, math.MaxUint32, math.MaxUint64} {
		b := AppendVaruint64(nil, x)
		y, _, err := Varuint64(bytes.NewReader(b))
		require.NoError(t, err)
		assert.Equal(t, x, y)

		requireTruncated(t, b, func(r Reader) (int, error) {
			_, n, err := Varuint64(r)
			return n, err
		})

		if x <= math.MaxUint32 {
			b := AppendVaruint32(nil, uint32(x))
			y, _, err := Varuint32(bytes.NewReader(b))
			require.NoError(t, err)
			assert.Equal(t, uint32(x), y)

			requireTruncated(t, b, func(r Reader) (int, error) {
				_, n, err := Varuint32(r)
				return n, err
			})
		}
	}

	assert.Equal(t, []byte{0xe5, 0x8e, 0x26}, AppendVaruint32(nil, 624485))
	assert.Equal(t, []byte{0xc0, 0xbb, 0x78}, AppendVarint32(nil, -123456))
	assert.Equal(t, []byte{0x40}, AppendVarint32(nil, -64))
	assert.Equal(t, []byte{0xc0, 0x00}, AppendVarint32(nil, 64))
}
