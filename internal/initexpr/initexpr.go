// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package initexpr

import (
	"gate.computer/wacore/decode"
	"gate.computer/wacore/errors"
	"gate.computer/wacore/wa"
	"gate.computer/wacore/wa/opcode"
)

// GlobalResolver returns the value of a global which an initializer
// expression refers to.
type GlobalResolver func(index uint32) (valueBits uint64, t wa.Type, found bool)

// Eval a single-instruction initializer expression.
func Eval(expr decode.ConstExpr, globals GlobalResolver) (valueBits uint64, t wa.Type, err error) {
	if len(expr.Instructions) != 1 {
		err = errors.Errorf(errors.Malformed, "unsupported initializer expression length: %d", len(expr.Instructions))
		return
	}

	insn := expr.Instructions[0]

	switch insn.Op {
	case opcode.I32Const:
		return insn.Value, wa.I32, nil

	case opcode.I64Const:
		return insn.Value, wa.I64, nil

	case opcode.F32Const:
		return insn.Value, wa.F32, nil

	case opcode.F64Const:
		return insn.Value, wa.F64, nil

	case opcode.GlobalGet:
		if globals != nil {
			if valueBits, t, found := globals(insn.Index); found {
				return valueBits, t, nil
			}
		}
		err = errors.Errorf(errors.Malformed, "global index in initializer expression cannot be resolved: %d", insn.Index)
		return

	default:
		err = errors.Errorf(errors.Malformed, "unsupported operation in initializer expression: %s", insn.Name())
		return
	}
}

// Offset of an active segment.  The expression must have type i32.
func Offset(expr decode.ConstExpr, globals GlobalResolver) (uint32, error) {
	value, t, err := Eval(expr, globals)
	if err != nil {
		return 0, err
	}
	if t != wa.I32 {
		return 0, errors.Errorf(errors.Malformed, "offset initializer expression has invalid type: %s", t)
	}
	return uint32(value), nil
}
