// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wa

type GlobalType struct {
	Type    Type
	Mutable bool
}

func MakeGlobalType(t Type, mutable bool) GlobalType {
	return GlobalType{t, mutable}
}

// Encode as WebAssembly.
func (g GlobalType) Encode() (buf [2]byte) {
	buf[0] = g.Type.Encode()
	if g.Mutable {
		buf[1] = 1
	}
	return
}

func (g GlobalType) String() string {
	if g.Mutable {
		return "(mut " + g.Type.String() + ")"
	}
	return g.Type.String()
}
