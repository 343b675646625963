// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compile drives a code generation backend over the functions of a
// decoded module.
//
// Code generation itself is not implemented here: a Backend turns each
// Function into an opaque Entry.  Functions are compiled in the background,
// and callers wait for the Program to become ready.
package compile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"gate.computer/wacore/decode"
	"gate.computer/wacore/internal/log"
	"gate.computer/wacore/internal/synchronic"
	"gate.computer/wacore/module"
	"gate.computer/wacore/wa"
)

// Entry is a compiled function.  Its meaning is up to the backend.
type Entry any

// Backend generates code for a function.  Compile may be called
// concurrently for different functions.
type Backend interface {
	Compile(ctx context.Context, f *Function) (Entry, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, f *Function) (Entry, error)

func (f BackendFunc) Compile(ctx context.Context, fn *Function) (Entry, error) {
	return f(ctx, fn)
}

// Function is the input of a backend.  The instruction list includes the
// final end.
type Function struct {
	Index  uint32 // In the function index space (imports first).
	Name   string
	Type   wa.FuncType
	Locals []wa.LocalEntry
	Body   []decode.Instruction
}

// Functions defined by a module.  Imported functions are not included.
func Functions(m *module.Module) []*Function {
	numImports := m.NumImports(decode.ExternalKindFunction)

	funcs := make([]*Function, len(m.Code))
	for i, body := range m.Code {
		index := numImports + uint32(i)
		t, _ := m.FuncType(index)

		funcs[i] = &Function{
			Index:  index,
			Name:   m.Names.Funcs[index],
			Type:   t,
			Locals: body.Locals,
			Body:   body.Code,
		}
	}
	return funcs
}

// State of a Program.
type State int

const (
	Pending = State(iota)
	Compiling
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"

	case Compiling:
		return "compiling"

	case Done:
		return "done"

	case Failed:
		return "failed"

	default:
		return fmt.Sprintf("<invalid state %d>", int(s))
	}
}

// Finished state.
func (s State) Finished() bool {
	return s == Done || s == Failed
}

// Program is being compiled or has been compiled.
type Program struct {
	state   *synchronic.Synchronic[State]
	cancel  context.CancelFunc
	index   map[uint32]int
	entries []Entry
	err     error
}

// Start compiling functions in the background.  At most parallelism backend
// calls are made at a time; zero or negative means no limit.  The first
// backend error cancels the others.
func Start(ctx context.Context, backend Backend, funcs []*Function, parallelism int) *Program {
	ctx, cancel := context.WithCancel(ctx)

	p := &Program{
		state:   synchronic.New(Pending),
		cancel:  cancel,
		index:   make(map[uint32]int, len(funcs)),
		entries: make([]Entry, len(funcs)),
	}

	for i, f := range funcs {
		p.index[f.Index] = i
	}

	go p.run(ctx, backend, funcs, parallelism)
	return p
}

func (p *Program) run(ctx context.Context, backend Backend, funcs []*Function, parallelism int) {
	defer p.cancel()

	p.state.Store(Compiling)
	t0 := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for i, f := range funcs {
		i, f := i, f

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			e, err := backend.Compile(ctx, f)
			if err != nil {
				return xerrors.Errorf("compiling function #%d: %w", f.Index, err)
			}

			p.entries[i] = e
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Logger().Debug("compilation failed", zap.Error(err))
		p.err = err
		p.state.Store(Failed)
		return
	}

	log.Logger().Debug("compilation done",
		zap.Int("functions", len(funcs)),
		zap.Duration("duration", time.Since(t0)))

	p.state.Store(Done)
}

// State of compilation.
func (p *Program) State() State {
	return p.state.Load()
}

// Wait until compilation has finished, and return its error.  The context
// error is returned if ctx is done first.
func (p *Program) Wait(ctx context.Context) error {
	s, err := p.state.WaitUntil(ctx, State.Finished)
	if err != nil {
		return err
	}
	if s == Failed {
		return p.err
	}
	return nil
}

// Cancel compilation.  Wait returns an error unless compilation had already
// succeeded.
func (p *Program) Cancel() {
	p.cancel()
}

// Entry of a function, available after successful compilation.
func (p *Program) Entry(funcIndex uint32) (e Entry, found bool) {
	if p.state.Load() != Done {
		return
	}
	i, found := p.index[funcIndex]
	if !found {
		return
	}
	return p.entries[i], true
}
