// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"fmt"
)

// Kind of a cell.
type Kind uint8

const (
	// Native cell wraps a host object which is never relocated.
	Native = Kind(iota + 1)

	// Managed cell owns bytes in the heap arena.  References to managed
	// cells are handles; their addresses are not stable across collection.
	Managed
)

func (k Kind) String() string {
	switch k {
	case Native:
		return "native"

	case Managed:
		return "managed"

	default:
		return fmt.Sprintf("<invalid cell kind %d>", uint8(k))
	}
}

// Klass identifies shared metadata defined in a System.
type Klass uint32

const NoKlass Klass = 0

// Handle refers to a cell through its context.  The zero value refers to
// nothing.  A handle outlived by its cell is stale; using it is a programming
// error.
type Handle struct {
	ctx  uint64
	slot uint32
	gen  uint32
}

func (h Handle) IsZero() bool { return h == Handle{} }

func (h Handle) String() string {
	if h.IsZero() {
		return "<nil handle>"
	}
	return fmt.Sprintf("%d:%d.%d", h.ctx, h.slot, h.gen)
}

// Cell describes a live cell.
type Cell struct {
	Kind  Kind
	Klass Klass
	Size  int64 // As requested.
}

type cell struct {
	Cell
	gen       uint32
	live      bool
	offset    int64 // Arena offset of a managed cell.
	accounted int64
	object    any
}
