// Copyright (c) 2015 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"io"
	"unicode/utf8"

	"gate.computer/wacore/binary"
	"gate.computer/wacore/errors"
	"gate.computer/wacore/internal/reader"
)

// L provides panicking reading and integer decoding methods.  Errors are
// annotated with the offset of the item which failed to decode.
type L struct {
	*reader.Cursor
}

// New loader over an unbounded stream.
func New(r binary.Reader) L {
	return L{reader.New(r)}
}

// NewBounded loader over a buffered payload which begins at the given absolute
// position.
func NewBounded(b []byte, pos int64) L {
	return L{reader.NewBounded(b, pos)}
}

// Check panics if err is non-nil.  Errors without offset are attributed to
// the given position.
func Check(err error, offset int64) {
	if err != nil {
		panic(errors.At(err, offset, errors.Malformed))
	}
}

// Fail panics with a Malformed error at the given position.
func Fail(offset int64, format string, args ...interface{}) {
	err := errors.Errorf(errors.Malformed, format, args...)
	err.Offset = offset
	panic(err)
}

func (load L) Bytes(n uint32) []byte {
	offset := load.Position()
	data, err := load.Take(int64(n))
	Check(err, offset)
	return data
}

func (load L) String(n uint32, name string) string {
	offset := load.Position()
	return String(load.Bytes(n), name, offset)
}

// Name reads a length-prefixed UTF-8 string.
func (load L) Name(maxLen uint32, name string) string {
	offset := load.Position()
	n := load.Varuint32()
	if n > maxLen {
		Fail(offset, "%s is too long: %d bytes", name, n)
	}
	return load.String(n, name)
}

func (load L) Discard(n uint32) {
	offset := load.Position()
	Check(load.Skip(int64(n)), offset)
}

func (load L) Byte() byte {
	offset := load.Position()
	x, err := load.ReadByte()
	if err == io.EOF {
		err = errors.UnexpectedEOF()
	}
	Check(err, offset)
	return x
}

func (load L) Uint32() uint32 {
	offset := load.Position()
	x, _, err := binary.Uint32(load)
	Check(err, offset)
	return x
}

func (load L) Uint64() uint64 {
	offset := load.Position()
	x, _, err := binary.Uint64(load)
	Check(err, offset)
	return x
}

func (load L) Varint7() int8 {
	offset := load.Position()
	x, _, err := binary.Varint7(load)
	Check(err, offset)
	return x
}

func (load L) Varint32() int32 {
	offset := load.Position()
	x, _, err := binary.Varint32(load)
	Check(err, offset)
	return x
}

func (load L) Varint33() int64 {
	offset := load.Position()
	x, _, err := binary.Varint33(load)
	Check(err, offset)
	return x
}

func (load L) Varint64() int64 {
	offset := load.Position()
	x, _, err := binary.Varint64(load)
	Check(err, offset)
	return x
}

func (load L) Varuint1() bool {
	offset := load.Position()
	x, _, err := binary.Varuint1(load)
	Check(err, offset)
	return x
}

func (load L) Varuint32() uint32 {
	offset := load.Position()
	x, _, err := binary.Varuint32(load)
	Check(err, offset)
	return x
}

func (load L) Varuint64() uint64 {
	offset := load.Position()
	x, _, err := binary.Varuint64(load)
	Check(err, offset)
	return x
}

// Count reads a varuint32 for iteration.
func (load L) Count(maxCount uint32, name string) uint32 {
	offset := load.Position()
	count := load.Varuint32()
	if count > maxCount {
		Fail(offset, "%s count is too large: 0x%x", name, count)
	}
	return count
}

func String(b []byte, name string, offset int64) string {
	if !utf8.Valid(b) {
		Fail(offset, "%s is not a valid UTF-8 string", name)
	}
	return string(b)
}
