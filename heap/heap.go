// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heap implements the object model which hosts decoded modules and
// runtime values.
//
// A System holds the heap policy and its backing address space.  Contexts are
// allocation scopes bound to a System; cells allocated through a Context are
// referred to by Handle values and die with the Context.
package heap

import (
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"gate.computer/wacore/errors"
	"gate.computer/wacore/internal/log"
	"gate.computer/wacore/internal/vm"
)

const (
	DefaultMinimumHeapSize = 1 << 20
	DefaultMaximumHeapSize = 256 << 20
)

// Config is the heap sizing policy of a System.  Zero fields are replaced with
// defaults.
type Config struct {
	MinimumHeapSize int64
	MaximumHeapSize int64
}

func (c Config) withDefaults() Config {
	if c.MinimumHeapSize == 0 {
		c.MinimumHeapSize = DefaultMinimumHeapSize
	}
	if c.MaximumHeapSize == 0 {
		c.MaximumHeapSize = DefaultMaximumHeapSize
		if c.MaximumHeapSize < c.MinimumHeapSize {
			c.MaximumHeapSize = c.MinimumHeapSize
		}
	}
	return c
}

func (c Config) validate() error {
	if c.MinimumHeapSize < 0 || c.MaximumHeapSize < 0 {
		return errors.New(errors.InvalidState, "negative heap size")
	}
	if c.MinimumHeapSize > c.MaximumHeapSize {
		return errors.Errorf(errors.InvalidState, "minimum heap size %d exceeds maximum heap size %d", c.MinimumHeapSize, c.MaximumHeapSize)
	}
	return nil
}

// System is the heap of a runtime instance.  Its methods may be called
// concurrently.
type System struct {
	config Config
	log    *zap.Logger

	mu       sync.Mutex
	arena    arena
	used     int64 // Bytes accounted to live cells of all contexts.
	klasses  []string
	contexts map[uint64]*Context
	nextID   uint64
	closed   bool
}

// NewSystem reserves address space for the maximum heap size and commits the
// minimum.  OutOfMemory error is returned if that can't be done.
func NewSystem(config Config) (*System, error) {
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	region, err := vm.Reserve(int(config.MaximumHeapSize))
	if err != nil {
		return nil, err
	}

	if err := region.Commit(int(config.MinimumHeapSize)); err != nil {
		region.Release()
		return nil, err
	}

	s := &System{
		config:   config,
		log:      log.Logger(),
		arena:    arena{region: region, limit: config.MaximumHeapSize},
		contexts: make(map[uint64]*Context),
	}

	s.log.Info("heap system initialized",
		zap.String("minimum", humanize.IBytes(uint64(config.MinimumHeapSize))),
		zap.String("maximum", humanize.IBytes(uint64(config.MaximumHeapSize))))

	return s, nil
}

func (s *System) Config() Config { return s.config }

// Close releases the backing storage.  It fails if contexts are still live.
func (s *System) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.InvalidState, "heap system already closed")
	}
	if n := len(s.contexts); n > 0 {
		return errors.Errorf(errors.InvalidState, "heap system has %d live contexts", n)
	}

	s.closed = true

	if err := s.arena.release(); err != nil {
		return errors.Wrap(errors.InvalidState, err, "heap release failed")
	}

	s.log.Info("heap system closed")
	return nil
}

// NewContext binds a new allocation scope to the system.
func (s *System) NewContext() (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New(errors.InvalidState, "heap system is closed")
	}

	s.nextID++
	ctx := &Context{
		sys: s,
		id:  s.nextID,
	}
	s.contexts[ctx.id] = ctx

	s.log.Debug("heap context created", zap.Uint64("context", ctx.id))
	return ctx, nil
}

// Contexts is the number of live contexts.
func (s *System) Contexts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

// Used is the number of bytes accounted to live cells.
func (s *System) Used() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Committed is the size of the committed part of the backing arena.
func (s *System) Committed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.arena.region.Committed())
}

// DefineKlass registers shared metadata.  Cells refer to it by the returned
// id.  Defining the same name twice returns the same id.
func (s *System) DefineKlass(name string) Klass {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.klasses {
		if n == name {
			return Klass(i + 1)
		}
	}

	s.klasses = append(s.klasses, name)
	return Klass(len(s.klasses))
}

// KlassName of a defined klass, or empty string.
func (s *System) KlassName(k Klass) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k == NoKlass || int(k) > len(s.klasses) {
		return ""
	}
	return s.klasses[k-1]
}

// account reserves budget for a cell.  Managed cells also get arena space,
// rounded up to cell alignment.
func (s *System) account(kind Kind, size int64) (offset, accounted int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		err = errors.New(errors.InvalidState, "heap system is closed")
		return
	}

	accounted = size
	if kind == Managed {
		offset, accounted, err = s.arena.alloc(size)
		if err != nil {
			return
		}
	}

	if s.used+accounted > s.config.MaximumHeapSize {
		if kind == Managed {
			s.arena.free(offset, accounted)
		}
		err = errors.Errorf(errors.OutOfMemory, "heap exhausted: %d bytes in use, %d requested, maximum is %d", s.used, accounted, s.config.MaximumHeapSize)
		return
	}

	s.used += accounted
	return
}

func (s *System) unaccount(kind Kind, offset, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == Managed {
		s.arena.free(offset, size)
	}
	s.used -= size
}

// bytes of a managed allocation.  The backing doesn't move, so the slice stays
// valid while the cell is live.
func (s *System) bytes(offset, size int64) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.arena.bytes(offset, size)
}

func (s *System) detach(ctx *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.contexts, ctx.id)
}
