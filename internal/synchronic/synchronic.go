// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package synchronic provides a value which can be waited on.
package synchronic

import (
	"context"
	"sync"
)

// Synchronic holds a value.  Stores wake up goroutines waiting for a
// condition.  The zero value holds the zero value of T.
type Synchronic[T comparable] struct {
	mu      sync.Mutex
	value   T
	changed chan struct{}
}

// New holds an initial value.
func New[T comparable](value T) *Synchronic[T] {
	return &Synchronic[T]{value: value}
}

func (s *Synchronic[T]) Load() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Store a value and notify all waiters.
func (s *Synchronic[T]) Store(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	if s.changed != nil {
		close(s.changed)
		s.changed = nil
	}
}

// CompareAndStore stores new if the current value is old.
func (s *Synchronic[T]) CompareAndStore(old, new T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value != old {
		return false
	}

	s.value = new
	if s.changed != nil {
		close(s.changed)
		s.changed = nil
	}
	return true
}

// WaitFor blocks until the value equals want.
func (s *Synchronic[T]) WaitFor(ctx context.Context, want T) error {
	_, err := s.WaitUntil(ctx, func(value T) bool {
		return value == want
	})
	return err
}

// WaitUntil blocks until the value satisfies the condition, and returns it.
// The context error is returned if the context is done first.
func (s *Synchronic[T]) WaitUntil(ctx context.Context, cond func(T) bool) (T, error) {
	for {
		s.mu.Lock()
		value := s.value
		if cond(value) {
			s.mu.Unlock()
			return value, nil
		}
		if s.changed == nil {
			s.changed = make(chan struct{})
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:

		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
