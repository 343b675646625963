// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section

type ByteRange struct {
	Offset int64
	Length int64
}

// End offset.
func (r ByteRange) End() int64 {
	return r.Offset + r.Length
}

// Map of section positions within the WebAssembly binary module.  Offset and
// Length are nonzero if a section is present.  Sections[Custom] holds
// information about the last (or latest) custom section.  Payloads holds the
// ranges of the section contents without the id byte and size field.
type Map struct {
	Sections [NumSections]ByteRange
	Payloads [NumSections]ByteRange
}

func NewMap() *Map {
	return new(Map)
}

// PutSection implements decode.ModuleMapper.  Section offset is the position
// of the section id.  Section size covers section id byte, encoded payload
// length, and payload content.
func (m *Map) PutSection(id ID, sectionOffset int64, sectionSize, payloadSize uint32) error {
	m.Sections[id] = ByteRange{sectionOffset, int64(sectionSize)}
	m.Payloads[id] = ByteRange{sectionOffset + int64(sectionSize-payloadSize), int64(payloadSize)}
	return nil
}
