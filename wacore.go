// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wacore ties together the WebAssembly module decoder, the heap object
// model and linear memory.
//
// A Runtime owns a heap System configured by a config.Config.  Modules are
// loaded into heap Contexts, their linear memories are created in the same
// Contexts, and their functions can be handed to a compile.Backend.
package wacore

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"gate.computer/wacore/binary"
	"gate.computer/wacore/compile"
	"gate.computer/wacore/config"
	"gate.computer/wacore/heap"
	"gate.computer/wacore/internal/log"
	"gate.computer/wacore/memory"
	"gate.computer/wacore/module"
)

type Runtime struct {
	System *heap.System

	config *config.Config
	logger *zap.Logger
}

// New runtime.  Nil config means defaults.  The logger configured by the log
// section is installed for all packages.
func New(c *config.Config) (*Runtime, error) {
	if c == nil {
		c = config.Default()
	}

	logger, err := c.NewLogger()
	if err != nil {
		return nil, err
	}
	log.SetLogger(logger)

	sys, err := heap.NewSystem(c.HeapConfig())
	if err != nil {
		return nil, err
	}

	return &Runtime{
		System: sys,
		config: c,
		logger: logger,
	}, nil
}

func (rt *Runtime) Config() *config.Config { return rt.config }

// Load a module into a context.
func (rt *Runtime) Load(ctx *heap.Context, r binary.Reader) (*module.Module, heap.Handle, error) {
	return module.Load(ctx, r, rt.config.DecodeConfig())
}

// NewMemory creates the linear memory of a module in a context.
func (rt *Runtime) NewMemory(ctx *heap.Context, m *module.Module) (*memory.Linear, error) {
	return m.NewMemory(ctx, rt.config.MemoryConfig())
}

// Compile the functions of a module in the background, using all CPUs.
func (rt *Runtime) Compile(ctx context.Context, m *module.Module, backend compile.Backend) *compile.Program {
	return compile.Start(ctx, backend, compile.Functions(m), runtime.GOMAXPROCS(0))
}

// Close the heap System.  It fails if contexts are still open.
func (rt *Runtime) Close() error {
	if err := rt.System.Close(); err != nil {
		return err
	}
	rt.logger.Sync() // Syncing stderr fails on some systems.
	return nil
}
