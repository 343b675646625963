// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errorpanic

import (
	"io"
	"runtime"

	"gate.computer/wacore/errors"
	"golang.org/x/xerrors"
)

// Handle a recovered value.  Errors are returned; runtime errors and non-error
// values are panicked again, since they indicate bugs rather than bad input.
func Handle(x interface{}) (err error) {
	if x != nil {
		err, _ = x.(error)
		if err == nil {
			panic(x)
		}

		if _, ok := err.(runtime.Error); ok {
			panic(x)
		}

		switch {
		case err == io.EOF, err == io.ErrUnexpectedEOF:
			err = errors.UnexpectedEOF()

		case xerrors.Is(err, io.EOF) && errors.KindOf(err) == 0:
			err = errors.Wrap(errors.Truncated, err, "unexpected end of input")
		}
	}

	return
}
