// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"testing"

	"golang.org/x/xerrors"

	"gate.computer/wacore/errors"
	"gate.computer/wacore/internal/test/modgen"
	"gate.computer/wacore/section"
)

func FuzzDecode(f *testing.F) {
	f.Add(modgen.Header)
	f.Add(calcModule())
	f.Add(modgen.New().Section(section.Type, modgen.Vec(modgen.FuncType(nil, nil))).Bytes())
	f.Add(modgen.New().Raw(byte(section.Type), 0x80).Bytes())

	f.Fuzz(func(t *testing.T, data []byte) {
		err := decodeBytes(data, NopVisitor{})
		if err == nil {
			return
		}

		var e *errors.Error
		if !xerrors.As(err, &e) {
			t.Fatalf("unexpected error type: %T: %v", err, err)
		}
		if e.Kind == 0 {
			t.Fatalf("error without kind: %v", err)
		}
		if e.Offset < 0 || e.Offset > int64(len(data)) {
			t.Fatalf("offset %d out of range [0, %d]: %v", e.Offset, len(data), err)
		}
	})
}
