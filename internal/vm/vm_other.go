// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package vm

import (
	"os"
)

var PageSize = os.Getpagesize()

// reserve allocates eagerly; there is no way to commit incrementally.
func reserve(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func commit([]byte) error { return nil }

func release([]byte) error { return nil }
