// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm reserves address space and commits it incrementally.  The base
// address of a region never changes.
package vm

import (
	"unsafe"

	"gate.computer/wacore/errors"
)

// Region of reserved address space.  A prefix of it is committed (readable
// and writable).
type Region struct {
	mem       []byte
	committed int
}

// Reserve address space without committing any of it.
func Reserve(size int) (*Region, error) {
	if size < 0 {
		return nil, errors.Errorf(errors.InvalidState, "negative reservation size: %d", size)
	}
	if size == 0 {
		return new(Region), nil
	}

	mem, err := reserve(AlignSize(size))
	if err != nil {
		return nil, errors.Wrap(errors.OutOfMemory, err, "address space reservation failed")
	}
	return &Region{mem: mem}, nil
}

// Len of the reservation.
func (r *Region) Len() int { return len(r.mem) }

// Committed size.
func (r *Region) Committed() int { return r.committed }

// Bytes of the committed prefix.
func (r *Region) Bytes() []byte { return r.mem[:r.committed:r.committed] }

// Reserved bytes, including the uncommitted part which must not be accessed.
func (r *Region) Reserved() []byte { return r.mem }

// Base address, or zero if nothing is reserved.
func (r *Region) Base() uintptr {
	if len(r.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// Commit extends the committed prefix to cover at least size bytes.
func (r *Region) Commit(size int) error {
	if size <= r.committed {
		return nil
	}
	if size > len(r.mem) {
		return errors.Errorf(errors.OutOfMemory, "commit size %d exceeds reservation %d", size, len(r.mem))
	}

	size = AlignSize(size)
	if size > len(r.mem) {
		size = len(r.mem)
	}

	if err := commit(r.mem[r.committed:size]); err != nil {
		return errors.Wrap(errors.OutOfMemory, err, "memory commit failed")
	}
	r.committed = size
	return nil
}

// Release the reservation.  The region must not be used afterwards.
func (r *Region) Release() (err error) {
	if r.mem != nil {
		err = release(r.mem)
		r.mem = nil
		r.committed = 0
	}
	return
}

// AlignSize rounds size up to page granularity.
func AlignSize(size int) int {
	return (size + (PageSize - 1)) &^ (PageSize - 1)
}
