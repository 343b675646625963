// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synchronic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestWaitFor(t *testing.T) {
	s := New(0)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			return s.WaitFor(context.Background(), 3)
		})
	}

	for i := 1; i <= 3; i++ {
		time.Sleep(time.Millisecond)
		s.Store(i)
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, 3, s.Load())
}

func TestWaitUntilImmediate(t *testing.T) {
	s := New("done")

	value, err := s.WaitUntil(context.Background(), func(v string) bool { return v != "" })
	require.NoError(t, err)
	assert.Equal(t, "done", value)
}

func TestWaitCanceled(t *testing.T) {
	var s Synchronic[bool]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.WaitFor(ctx, true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompareAndStore(t *testing.T) {
	s := New(1)
	assert.False(t, s.CompareAndStore(2, 3))
	assert.True(t, s.CompareAndStore(1, 3))
	assert.Equal(t, 3, s.Load())
}
