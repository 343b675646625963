// Copyright (c) 2022 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errordata helps with error serialization.
package errordata

import (
	"io"

	"golang.org/x/xerrors"

	"gate.computer/wacore/errors"
)

// Data is a serializable representation of an error.
type Data struct {
	Error  string  `json:"error"`
	Public *Public `json:"public,omitempty"` // Nil if the error has no kind.
}

// Public details of an error.
type Public struct {
	Error         string `json:"error"`
	Kind          string `json:"kind"`
	Offset        int64  `json:"offset"` // Negative if not applicable.
	UnexpectedEOF bool   `json:"unexpected_eof,omitempty"`
}

// Deconstruct an error on best-effort basis.
func Deconstruct(err error) *Data {
	x := &Data{
		Error: err.Error(),
	}

	var e *errors.Error
	if xerrors.As(err, &e) {
		x.Public = &Public{
			Error:         e.PublicError(),
			Kind:          e.Kind.String(),
			Offset:        e.Offset,
			UnexpectedEOF: xerrors.Is(err, io.ErrUnexpectedEOF),
		}
	}

	return x
}

// GetPublic representation which is well-formed even if there are no public
// details.
func (x *Data) GetPublic() *Public {
	if x.Public != nil {
		return x.Public
	}

	return &Public{
		Error:  "internal error",
		Offset: -1,
	}
}

// Reconstruct an error.  Errors with a known kind become *errors.Error
// values which match the kind.
func (x *Data) Reconstruct() error {
	if x.Public == nil {
		return xerrors.New(x.Error)
	}
	return x.Public.Reconstruct()
}

// Reconstruct an error without internal details.
func (x *Public) Reconstruct() error {
	kind, found := errors.ParseKind(x.Kind)
	if !found {
		return xerrors.New(x.Error)
	}

	e := errors.New(kind, x.Error)
	e.Offset = x.Offset
	if x.UnexpectedEOF {
		e.Cause = io.ErrUnexpectedEOF
	}
	return e
}
