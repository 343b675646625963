// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errordata

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"gate.computer/wacore/errors"
)

func TestModuleError(t *testing.T) {
	orig := errors.UnexpectedEOF()
	orig.Offset = 42

	data, err := json.Marshal(Deconstruct(xerrors.Errorf("loading: %w", orig)))
	require.NoError(t, err)

	var x Data
	require.NoError(t, json.Unmarshal(data, &x))
	assert.Equal(t, "unexpected end of input", x.GetPublic().Error)
	assert.Equal(t, int64(42), x.GetPublic().Offset)

	err = x.Reconstruct()
	assert.True(t, xerrors.Is(err, errors.Truncated), "%v", err)
	assert.True(t, xerrors.Is(err, io.ErrUnexpectedEOF), "%v", err)

	var e *errors.Error
	require.True(t, xerrors.As(err, &e))
	assert.Equal(t, int64(42), e.Offset)
}

func TestInternalError(t *testing.T) {
	x := Deconstruct(xerrors.New("disk on fire"))
	assert.Nil(t, x.Public)
	assert.Equal(t, "internal error", x.GetPublic().Error)
	assert.Equal(t, "disk on fire", x.Reconstruct().Error())
	assert.Equal(t, errors.Kind(0), errors.KindOf(x.Reconstruct()))
}

func TestUnknownKind(t *testing.T) {
	x := &Public{Error: "odd", Kind: "weird"}
	err := x.Reconstruct()
	assert.Equal(t, "odd", err.Error())
	assert.Equal(t, errors.Kind(0), errors.KindOf(err))
}
