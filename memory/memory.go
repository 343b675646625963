// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memory implements WebAssembly linear memory.
//
// Address space is reserved for the maximum size up front and committed as
// the memory grows, so the base address never changes and growth never copies
// content.
package memory

import (
	"encoding/binary"
	"math"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gate.computer/wacore/errors"
	"gate.computer/wacore/heap"
	"gate.computer/wacore/internal/log"
	"gate.computer/wacore/internal/vm"
	"gate.computer/wacore/wa"
)

const (
	PageSize = wa.PageSize

	// Unbounded maximum size is capped by Config.MaxReservePages.
	Unbounded = ^uint32(0)

	DefaultMaxReservePages = wa.MaxPages
)

// maxReserveSize in bytes is limited by the int type of the host.
var maxReserveSize uint64 = math.MaxInt

type Config struct {
	// MaxReservePages caps the reservation of memories without maximum size.
	// Zero means DefaultMaxReservePages.
	MaxReservePages uint32
}

func (c *Config) maxReservePages() uint32 {
	if c == nil || c.MaxReservePages == 0 || c.MaxReservePages > wa.MaxPages {
		return DefaultMaxReservePages
	}
	return c.MaxReservePages
}

// Linear memory instance.  It must not be used concurrently.
type Linear struct {
	region *vm.Region
	pages  uint32
	max    uint32
	ctx    *heap.Context
	handle heap.Handle
	closed bool
}

// New linear memory, registered as a native cell of the context.  Closing the
// context closes the memory.  Linear memory pages are not accounted against
// the heap budget.
func New(ctx *heap.Context, initialPages, maximumPages uint32, config *Config) (*Linear, error) {
	limit := maximumPages
	if maximumPages == Unbounded {
		limit = config.maxReservePages()
	} else if maximumPages > wa.MaxPages {
		return nil, errors.Errorf(errors.Malformed, "maximum memory size is too large: %d pages", maximumPages)
	}

	if initialPages > limit {
		if maximumPages == Unbounded {
			return nil, errors.Errorf(errors.OutOfMemory, "initial memory size %d pages exceeds reservation limit %d", initialPages, limit)
		}
		return nil, errors.Errorf(errors.Malformed, "initial memory size %d exceeds maximum memory size %d", initialPages, maximumPages)
	}

	size := uint64(limit) * PageSize
	if size > maxReserveSize {
		return nil, errors.Errorf(errors.OutOfMemory, "memory reservation of %d pages exceeds host address space", limit)
	}

	region, err := vm.Reserve(int(size))
	if err != nil {
		return nil, err
	}

	if err := region.Commit(int(uint64(initialPages) * PageSize)); err != nil {
		region.Release()
		return nil, err
	}

	m := &Linear{
		region: region,
		pages:  initialPages,
		max:    limit,
	}

	if ctx != nil {
		h, err := ctx.NewNative(m, 0)
		if err != nil {
			region.Release()
			return nil, err
		}
		m.ctx = ctx
		m.handle = h
	}

	log.Logger().Debug("linear memory reserved",
		zap.Uint32("initial", initialPages),
		zap.Uint32("maximum", limit),
		zap.String("reservation", humanize.IBytes(uint64(region.Len()))))

	return m, nil
}

// Handle of the native cell, or zero handle if not bound to a context.
func (m *Linear) Handle() heap.Handle { return m.handle }

// Size in pages.
func (m *Linear) Size() uint32 { return m.pages }

// Max size in pages.
func (m *Linear) Max() uint32 { return m.max }

// Len in bytes.
func (m *Linear) Len() uint64 { return uint64(m.pages) * PageSize }

// Base address.  It doesn't change during the lifetime of the memory.
func (m *Linear) Base() uintptr { return m.region.Base() }

// Bytes of the current size.  A slice stays valid across growth.
func (m *Linear) Bytes() []byte {
	if m.closed {
		return nil
	}
	n := m.Len()
	return m.region.Bytes()[:n:n]
}

// Grow by delta pages.  The previous size is returned on success.  Failure
// leaves the memory unchanged.
func (m *Linear) Grow(delta uint32) (previous uint32, ok bool) {
	if m.closed {
		return 0, false
	}

	previous = m.pages
	if delta == 0 {
		return previous, true
	}

	newPages := uint64(previous) + uint64(delta)
	if newPages > uint64(m.max) {
		return previous, false
	}

	if err := m.region.Commit(int(newPages * PageSize)); err != nil {
		log.Logger().Warn("linear memory growth failed", zap.Uint32("pages", previous), zap.Uint32("delta", delta), zap.Error(err))
		return previous, false
	}

	m.pages = uint32(newPages)
	return previous, true
}

// Close releases the reservation.  Base address and byte slices become
// invalid.
func (m *Linear) Close() (err error) {
	if m.closed {
		return nil
	}
	m.closed = true
	m.pages = 0

	err = m.region.Release()

	if m.ctx != nil && m.ctx.Valid(m.handle) {
		err = multierr.Append(err, m.ctx.Free(m.handle))
	}
	return
}

func (m *Linear) hasSize(offset uint32, n uint64) bool {
	return uint64(offset)+n <= m.Len()
}

func (m *Linear) ReadUint8(offset uint32) (byte, bool) {
	if !m.hasSize(offset, 1) {
		return 0, false
	}
	return m.region.Bytes()[offset], true
}

func (m *Linear) ReadUint32Le(offset uint32) (uint32, bool) {
	if !m.hasSize(offset, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.region.Bytes()[offset:]), true
}

func (m *Linear) ReadUint64Le(offset uint32) (uint64, bool) {
	if !m.hasSize(offset, 8) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(m.region.Bytes()[offset:]), true
}

func (m *Linear) ReadFloat64Le(offset uint32) (float64, bool) {
	v, ok := m.ReadUint64Le(offset)
	return math.Float64frombits(v), ok
}

// Read returns a view of memory, not a copy.
func (m *Linear) Read(offset, n uint32) ([]byte, bool) {
	if !m.hasSize(offset, uint64(n)) {
		return nil, false
	}
	end := uint64(offset) + uint64(n)
	return m.region.Bytes()[offset:end:end], true
}

func (m *Linear) WriteUint8(offset uint32, v byte) bool {
	if !m.hasSize(offset, 1) {
		return false
	}
	m.region.Bytes()[offset] = v
	return true
}

func (m *Linear) WriteUint32Le(offset, v uint32) bool {
	if !m.hasSize(offset, 4) {
		return false
	}
	binary.LittleEndian.PutUint32(m.region.Bytes()[offset:], v)
	return true
}

func (m *Linear) WriteUint64Le(offset uint32, v uint64) bool {
	if !m.hasSize(offset, 8) {
		return false
	}
	binary.LittleEndian.PutUint64(m.region.Bytes()[offset:], v)
	return true
}

func (m *Linear) WriteFloat64Le(offset uint32, v float64) bool {
	return m.WriteUint64Le(offset, math.Float64bits(v))
}

func (m *Linear) Write(offset uint32, data []byte) bool {
	if !m.hasSize(offset, uint64(len(data))) {
		return false
	}
	copy(m.region.Bytes()[offset:], data)
	return true
}
