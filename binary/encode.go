// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

// AppendVaruint32 appends the minimal encoding of x.
func AppendVaruint32(b []byte, x uint32) []byte {
	return AppendVaruint64(b, uint64(x))
}

// AppendVaruint64 appends the minimal encoding of x.
func AppendVaruint64(b []byte, x uint64) []byte {
	for {
		c := byte(x & 0x7f)
		x >>= 7
		if x == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// AppendVarint32 appends the minimal encoding of x.
func AppendVarint32(b []byte, x int32) []byte {
	return AppendVarint64(b, int64(x))
}

// AppendVarint64 appends the minimal encoding of x.
func AppendVarint64(b []byte, x int64) []byte {
	for {
		c := byte(x & 0x7f)
		x >>= 7 // arithmetic
		if (x == 0 && c&0x40 == 0) || (x == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
