// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error taxonomy shared by the decoder, the heap
// and linear memory.
//
// Every error produced by this module is an *Error carrying a Kind.  Kinds
// are themselves errors, so callers can match them with errors.Is (or
// xerrors.Is):
//
//	if xerrors.Is(err, errors.Truncated) { ... }
package errors

import (
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// Kind of failure.
type Kind int

const (
	Truncated           = Kind(iota + 1) // Input ended early.
	Malformed                            // Invalid content.
	SectionSizeMismatch                  // Payload length differs from declared size.
	UnknownSection                       // Section id outside the known range.
	UnknownOpcode                        // Opcode absent from the dispatch table.
	InvalidMagic                         // Not a WebAssembly binary module.
	UnsupportedVersion                   // Binary format version is not 1.
	OutOfMemory                          // Heap or linear memory exhaustion.
	InvalidState                         // Lifecycle misuse.
)

var kindStrings = [...]string{
	Truncated:           "truncated",
	Malformed:           "malformed",
	SectionSizeMismatch: "section size mismatch",
	UnknownSection:      "unknown section",
	UnknownOpcode:       "unknown opcode",
	InvalidMagic:        "invalid magic number",
	UnsupportedVersion:  "unsupported version",
	OutOfMemory:         "out of memory",
	InvalidState:        "invalid state",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return fmt.Sprintf("<unknown error kind %d>", int(k))
}

func (k Kind) Error() string { return k.String() }

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindStrings {
		if name != "" && name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Module reports whether the kind describes a defect of the input module (as
// opposed to a resource or lifecycle problem of the host).
func (k Kind) Module() bool {
	return k >= Truncated && k <= UnsupportedVersion
}

// Error describes a failure.  Offset is the byte position within the module
// binary where a decode error was detected, or -1 if not applicable.
type Error struct {
	Kind   Kind
	Offset int64
	Text   string
	Cause  error
}

func New(kind Kind, text string) *Error {
	return &Error{kind, -1, text, nil}
}

func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind, -1, fmt.Sprintf(format, args...), nil}
}

func Wrap(kind Kind, cause error, text string) *Error {
	return &Error{kind, -1, text, cause}
}

// UnexpectedEOF is a Truncated error which also matches io.ErrUnexpectedEOF.
func UnexpectedEOF() *Error {
	return Wrap(Truncated, io.ErrUnexpectedEOF, "unexpected end of input")
}

func (e *Error) Error() string {
	s := e.Text
	if s == "" {
		s = e.Kind.String()
	}
	if e.Offset >= 0 {
		s = fmt.Sprintf("%s (at offset 0x%x)", s, e.Offset)
	}
	return s
}

// PublicError omits the offset.
func (e *Error) PublicError() string {
	if e.Text == "" {
		return e.Kind.String()
	}
	return e.Text
}

// ModuleError is the wag convention for errors caused by the input module.
func (e *Error) ModuleError() bool { return e.Kind.Module() }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the kind of the first *Error in the chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// At attaches a byte offset to err.  An *Error which already has an offset is
// returned as is.  Other errors are wrapped, keeping their kind if they have
// one; kindless errors (e.g. raised by a visitor) are classified as fallback.
// The original error is the cause of the wrapper.
func At(err error, offset int64, fallback Kind) error {
	if err == nil {
		return nil
	}

	if e, ok := err.(*Error); ok {
		if e.Offset >= 0 {
			return e
		}
		return &Error{e.Kind, offset, e.Text, e}
	}

	kind := KindOf(err)
	if kind == 0 {
		kind = fallback
	}
	return &Error{kind, offset, err.Error(), err}
}
