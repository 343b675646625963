// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"sort"

	"gate.computer/wacore/errors"
	"gate.computer/wacore/internal/vm"
)

const cellAlign = 16

type span struct {
	offset int64
	size   int64
}

// arena carves managed cells out of a reserved region.  Freed spans are kept
// sorted by offset and coalesced; the top of the arena shrinks when the last
// span is freed.
type arena struct {
	region *vm.Region
	limit  int64
	top    int64
	spans  []span
}

func alignCell(size int64) int64 {
	if size <= 0 {
		return cellAlign
	}
	return (size + (cellAlign - 1)) &^ (cellAlign - 1)
}

func (a *arena) alloc(size int64) (offset, aligned int64, err error) {
	aligned = alignCell(size)

	for i, sp := range a.spans {
		if sp.size < aligned {
			continue
		}

		offset = sp.offset
		if sp.size == aligned {
			a.spans = append(a.spans[:i], a.spans[i+1:]...)
		} else {
			a.spans[i] = span{sp.offset + aligned, sp.size - aligned}
		}
		clear(a.bytes(offset, aligned))
		return
	}

	end := a.top + aligned
	if end > a.limit || end > int64(a.region.Len()) {
		err = errors.Errorf(errors.OutOfMemory, "heap arena exhausted: %d bytes requested", aligned)
		return
	}

	if err = a.region.Commit(int(end)); err != nil {
		return
	}

	offset = a.top
	a.top = end
	clear(a.bytes(offset, aligned))
	return
}

func (a *arena) free(offset, size int64) {
	i := sort.Search(len(a.spans), func(i int) bool {
		return a.spans[i].offset > offset
	})

	a.spans = append(a.spans, span{})
	copy(a.spans[i+1:], a.spans[i:])
	a.spans[i] = span{offset, size}

	if i+1 < len(a.spans) && a.spans[i].offset+a.spans[i].size == a.spans[i+1].offset {
		a.spans[i].size += a.spans[i+1].size
		a.spans = append(a.spans[:i+1], a.spans[i+2:]...)
	}
	if i > 0 && a.spans[i-1].offset+a.spans[i-1].size == a.spans[i].offset {
		a.spans[i-1].size += a.spans[i].size
		a.spans = append(a.spans[:i], a.spans[i+1:]...)
	}

	if n := len(a.spans); n > 0 {
		if last := a.spans[n-1]; last.offset+last.size == a.top {
			a.top = last.offset
			a.spans = a.spans[:n-1]
		}
	}
}

func (a *arena) bytes(offset, size int64) []byte {
	return a.region.Bytes()[offset : offset+size : offset+size]
}

func (a *arena) release() error {
	a.spans = nil
	a.top = 0
	return a.region.Release()
}
