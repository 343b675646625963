// Copyright (c) 2021 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binary implements WebAssembly integer decoding and encoding.
//
// The Reader interface is overly specific as a performance optimization; see
// https://savo.la/sneaky-go-interface-conversion.html for background.
package binary

import (
	"encoding/binary"
	"io"

	"gate.computer/wacore/errors"
)

// Maximum encoded lengths: ceil(bits/7).
const (
	MaxVarint32Len = 5
	MaxVarint33Len = 5
	MaxVarint64Len = 10
)

// Reader is appropriate for decoding WebAssembly modules.
type Reader interface {
	io.Reader
	io.ByteScanner
}

// Uint32 reads a little-endian value.  The number of bytes read is also
// returned (4 if successful).
func Uint32(r Reader) (uint32, int, error) {
	b := make([]byte, 4)

	n, err := io.ReadFull(r, b)
	if err != nil {
		return 0, n, readError(err)
	}

	return binary.LittleEndian.Uint32(b), n, nil
}

// Uint64 reads a little-endian value.  The number of bytes read is also
// returned (8 if successful).
func Uint64(r Reader) (uint64, int, error) {
	b := make([]byte, 8)

	n, err := io.ReadFull(r, b)
	if err != nil {
		return 0, n, readError(err)
	}

	return binary.LittleEndian.Uint64(b), n, nil
}

// Varuint1 reads a bit (in a byte).  The number of bytes read is also returned
// (0 or 1).
func Varuint1(r Reader) (bool, int, error) {
	var n int

	b, err := r.ReadByte()
	if err != nil {
		return false, n, readError(err)
	}
	n++

	if b > 1 {
		return false, n, errors.New(errors.Malformed, "varuint1 value is too large")
	}
	return b == 1, n, nil
}

// Varint7 reads a byte using the variable-length encoding for signed integers.
// The number of bytes read is also returned (0 or 1).
func Varint7(r Reader) (int8, int, error) {
	var n int

	b, err := r.ReadByte()
	if err != nil {
		return 0, n, readError(err)
	}
	n++

	if b&0x80 != 0 {
		return 0, n, errors.New(errors.Malformed, "varint7 encoding is too long")
	}
	if b&0x40 != 0 {
		b |= 0x80
	}
	return int8(b), n, nil
}

// Varint32 reads variably encoded value.  The number of bytes read is also
// returned.
func Varint32(r Reader) (int32, int, error) {
	var x int32
	var n int
	var shift uint

	for n < MaxVarint32Len {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, readError(err)
		}
		n++

		x |= (int32(b) & 0x7f) << shift
		shift += 7

		if b&0x80 == 0 {
			neg := b&0x40 != 0
			if n == MaxVarint32Len {
				if !neg {
					if b > 0x07 {
						return 0, n, errors.New(errors.Malformed, "varint32 value is too large")
					}
				} else {
					if b < 0x78 {
						return 0, n, errors.New(errors.Malformed, "varint32 value is too small")
					}
				}
			} else {
				if neg {
					x |= -1 << shift
				}
			}
			return x, n, nil
		}
	}

	return 0, n, errors.New(errors.Malformed, "varint32 encoding is too long")
}

// Varint33 reads variably encoded 33-bit value (used by block types).  The
// number of bytes read is also returned.
func Varint33(r Reader) (int64, int, error) {
	var x int64
	var n int
	var shift uint

	for n < MaxVarint33Len {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, readError(err)
		}
		n++

		x |= (int64(b) & 0x7f) << shift
		shift += 7

		if b&0x80 == 0 {
			neg := b&0x40 != 0
			if n == MaxVarint33Len {
				if !neg {
					if b > 0x0f {
						return 0, n, errors.New(errors.Malformed, "varint33 value is too large")
					}
				} else {
					if b < 0x70 {
						return 0, n, errors.New(errors.Malformed, "varint33 value is too small")
					}
				}
				if neg {
					x |= -1 << 33
				}
			} else {
				if neg {
					x |= -1 << shift
				}
			}
			return x, n, nil
		}
	}

	return 0, n, errors.New(errors.Malformed, "varint33 encoding is too long")
}

// Varint64 reads variably encoded value.  The number of bytes read is also
// returned.
func Varint64(r Reader) (int64, int, error) {
	var x int64
	var n int
	var shift uint

	for n < MaxVarint64Len {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, readError(err)
		}
		n++

		x |= (int64(b) & 0x7f) << shift
		shift += 7

		if b&0x80 == 0 {
			neg := b&0x40 != 0
			if n == MaxVarint64Len {
				if !neg {
					if b != 0 {
						return 0, n, errors.New(errors.Malformed, "varint64 value is too large")
					}
				} else {
					if b != 0x7f {
						return 0, n, errors.New(errors.Malformed, "varint64 value is too small")
					}
				}
			} else {
				if neg {
					x |= -1 << shift
				}
			}
			return x, n, nil
		}
	}

	return 0, n, errors.New(errors.Malformed, "varint64 encoding is too long")
}

// Varuint32 reads variably encoded value.  The number of bytes read is also
// returned (up to 5).
func Varuint32(r Reader) (uint32, int, error) {
	var x uint32
	var n int
	var shift uint

	for n < MaxVarint32Len {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, readError(err)
		}
		n++

		if b < 0x80 {
			if n == MaxVarint32Len && b > 0xf {
				return 0, n, errors.New(errors.Malformed, "varuint32 value is too large")
			}
			return x | uint32(b)<<shift, n, nil
		}

		x |= (uint32(b) & 0x7f) << shift
		shift += 7
	}

	return 0, n, errors.New(errors.Malformed, "varuint32 encoding is too long")
}

// Varuint64 reads variably encoded value.  The number of bytes read is also
// returned (up to 10).
func Varuint64(r Reader) (uint64, int, error) {
	var x uint64
	var n int
	var shift uint

	for n < MaxVarint64Len {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, readError(err)
		}
		n++

		if b < 0x80 {
			if n == MaxVarint64Len && b > 1 {
				return 0, n, errors.New(errors.Malformed, "varuint64 value is too large")
			}
			return x | uint64(b)<<shift, n, nil
		}

		x |= (uint64(b) & 0x7f) << shift
		shift += 7
	}

	return 0, n, errors.New(errors.Malformed, "varuint64 encoding is too long")
}

// readError converts end of input into a Truncated error.  Other errors are
// passed through.
func readError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.UnexpectedEOF()
	}
	return err
}
