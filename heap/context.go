// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gate.computer/wacore/errors"
)

// Context is an allocation scope.  It must not be used concurrently.
//
// Methods which dereference a handle panic with an InvalidState error if the
// handle is stale, belongs to another context, or the context is closed.
type Context struct {
	sys    *System
	id     uint64
	cells  []cell
	free   []uint32
	live   int
	used   int64
	closed bool
}

func (ctx *Context) System() *System { return ctx.sys }

// Allocate a cell of at least size bytes.  Native cells only account the size
// against the heap budget; SetNative attaches the host object.
func (ctx *Context) Allocate(kind Kind, size int64) (Handle, error) {
	if ctx.closed {
		return Handle{}, errors.New(errors.InvalidState, "heap context is closed")
	}
	if kind != Native && kind != Managed {
		return Handle{}, errors.Errorf(errors.InvalidState, "invalid cell kind: %d", uint8(kind))
	}
	if size < 0 {
		return Handle{}, errors.Errorf(errors.InvalidState, "negative cell size: %d", size)
	}

	offset, accounted, err := ctx.sys.account(kind, size)
	if err != nil {
		return Handle{}, err
	}

	var slot uint32
	if n := len(ctx.free); n > 0 {
		slot = ctx.free[n-1]
		ctx.free = ctx.free[:n-1]
	} else {
		slot = uint32(len(ctx.cells))
		ctx.cells = append(ctx.cells, cell{})
	}

	c := &ctx.cells[slot]
	c.gen++
	c.live = true
	c.Cell = Cell{Kind: kind, Size: size}
	c.offset = offset
	c.accounted = accounted
	c.object = nil

	ctx.live++
	ctx.used += accounted

	return Handle{ctx.id, slot, c.gen}, nil
}

// NewNative wraps a host object in a native cell.  Size is the number of bytes
// accounted against the heap budget on its behalf.  If the object implements
// io.Closer, it is closed when the cell is freed.
func (ctx *Context) NewNative(object any, size int64) (Handle, error) {
	h, err := ctx.Allocate(Native, size)
	if err != nil {
		return Handle{}, err
	}
	ctx.cells[h.slot].object = object
	return h, nil
}

// SetNative replaces the host object of a native cell.
func (ctx *Context) SetNative(h Handle, object any) {
	c := ctx.lookup(h)
	if c.Kind != Native {
		panic(errors.Errorf(errors.InvalidState, "cell %s is not native", h))
	}
	c.object = object
}

// Native object of a native cell.
func (ctx *Context) Native(h Handle) any {
	c := ctx.lookup(h)
	if c.Kind != Native {
		panic(errors.Errorf(errors.InvalidState, "cell %s is not native", h))
	}
	return c.object
}

// Bytes of a managed cell.  The slice is valid until the cell is freed.
func (ctx *Context) Bytes(h Handle) []byte {
	c := ctx.lookup(h)
	if c.Kind != Managed {
		panic(errors.Errorf(errors.InvalidState, "cell %s is not managed", h))
	}
	return ctx.sys.bytes(c.offset, c.accounted)[:c.Size]
}

// Cell description.
func (ctx *Context) Cell(h Handle) Cell {
	return ctx.lookup(h).Cell
}

// Tag a cell with metadata.
func (ctx *Context) Tag(h Handle, k Klass) {
	ctx.lookup(h).Klass = k
}

// Valid reports whether the handle refers to a live cell of this context.
func (ctx *Context) Valid(h Handle) bool {
	return ctx.find(h) != nil
}

// Free a cell.  The error of closing a native object is returned.
func (ctx *Context) Free(h Handle) error {
	c := ctx.lookup(h)
	err := ctx.release(c)
	ctx.free = append(ctx.free, h.slot)
	return err
}

// Live is the number of cells.
func (ctx *Context) Live() int { return ctx.live }

// Used is the number of bytes accounted to the cells.
func (ctx *Context) Used() int64 { return ctx.used }

func (ctx *Context) Closed() bool { return ctx.closed }

// Close frees all cells and detaches the context from its system.  Errors
// from closing native objects are combined.
func (ctx *Context) Close() (err error) {
	if ctx.closed {
		return errors.New(errors.InvalidState, "heap context already closed")
	}

	// Newest first, so that objects are closed before their dependencies.
	for i := len(ctx.cells) - 1; i >= 0; i-- {
		if c := &ctx.cells[i]; c.live {
			err = multierr.Append(err, ctx.release(c))
		}
	}

	ctx.cells = nil
	ctx.free = nil
	ctx.closed = true
	ctx.sys.detach(ctx)

	ctx.sys.log.Debug("heap context closed", zap.Uint64("context", ctx.id), zap.Error(err))
	return
}

// release marks the cell dead before closing its object, so that the object
// may free its own handle while being closed.
func (ctx *Context) release(c *cell) (err error) {
	object := c.object

	c.live = false
	c.object = nil

	ctx.sys.unaccount(c.Kind, c.offset, c.accounted)

	ctx.live--
	ctx.used -= c.accounted

	if closer, ok := object.(io.Closer); ok && c.Kind == Native {
		err = closer.Close()
	}
	return
}

func (ctx *Context) find(h Handle) *cell {
	if ctx.closed || h.ctx != ctx.id || int(h.slot) >= len(ctx.cells) {
		return nil
	}
	if c := &ctx.cells[h.slot]; c.live && c.gen == h.gen {
		return c
	}
	return nil
}

func (ctx *Context) lookup(h Handle) *cell {
	if ctx.closed {
		panic(errors.Errorf(errors.InvalidState, "cell %s used after its context was closed", h))
	}
	c := ctx.find(h)
	if c == nil {
		panic(errors.Errorf(errors.InvalidState, "stale or foreign cell handle: %s", h))
	}
	return c
}

// NativeOf returns the host object of a native cell, if it has type T.
func NativeOf[T any](ctx *Context, h Handle) (object T, ok bool) {
	object, ok = ctx.Native(h).(T)
	return
}
