// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package section contains section identifiers and positional information.
package section

import (
	"fmt"
)

type ID byte

const (
	Custom = ID(iota)
	Type
	Import
	Function
	Table
	Memory
	Global
	Export
	Start
	Element
	Code
	Data
	DataCount

	NumSections
)

var idStrings = [NumSections]string{
	Custom:    "custom",
	Type:      "type",
	Import:    "import",
	Function:  "function",
	Table:     "table",
	Memory:    "memory",
	Global:    "global",
	Export:    "export",
	Start:     "start",
	Element:   "element",
	Code:      "code",
	Data:      "data",
	DataCount: "datacount",
}

func (id ID) String() string {
	if id < NumSections {
		return idStrings[id]
	}
	return fmt.Sprintf("<unknown section 0x%02x>", byte(id))
}

// Known section id.
func (id ID) Known() bool {
	return id < NumSections
}

// order of standard sections within a module.  The data count section sits
// between element and code sections.
var order = [NumSections]int{
	Type:      1,
	Import:    2,
	Function:  3,
	Table:     4,
	Memory:    5,
	Global:    6,
	Export:    7,
	Start:     8,
	Element:   9,
	DataCount: 10,
	Code:      11,
	Data:      12,
}

// Order of a standard section.  Custom sections have order 0: they may appear
// anywhere.
func (id ID) Order() int {
	if id < NumSections {
		return order[id]
	}
	return -1
}
