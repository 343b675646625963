// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log holds the logger shared by the decoder, heap and memory
// packages.  It is a no-op logger unless configured.
package log

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the configured logger, or a no-op logger.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nop
}

// SetLogger configures the logger.  Nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}

var nop = zap.NewNop()
