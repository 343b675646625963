// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decode reads WebAssembly binary modules and reports their contents
// to a Visitor.
//
// Decoding is forward-only and streaming: each section payload is buffered
// separately, so a module is never held in memory as a whole.  Structural
// integrity (framing, ordering, encodings, nesting) is enforced; type checking
// is left to the visitor.
package decode

import (
	"io"

	"go.uber.org/zap"

	"gate.computer/wacore/binary"
	"gate.computer/wacore/errors"
	"gate.computer/wacore/internal/errorpanic"
	"gate.computer/wacore/internal/loader"
	"gate.computer/wacore/internal/log"
	"gate.computer/wacore/section"
)

const (
	Magic   = 0x6d736100 // "\0asm" in little-endian byte order.
	Version = 1

	DefaultMaxSectionSize = 1 << 30
)

var magicBytes = [4]byte{0x00, 0x61, 0x73, 0x6d}

// ModuleMapper gathers information about positions of sections.  PutSection
// is invoked just after the payload size has been read.  Section offset is the
// position of the section id.  Section size covers the id byte, the encoded
// payload size and the payload.
type ModuleMapper interface {
	PutSection(id section.ID, sectionOffset int64, sectionSize, payloadSize uint32) error
}

var _ ModuleMapper = (*section.Map)(nil)

// Config for decoding.  The zero value is valid.
type Config struct {
	// MaxSectionSize limits the amount of memory buffered for a section
	// payload.  Zero means DefaultMaxSectionSize.
	MaxSectionSize uint32

	ModuleMapper ModuleMapper
}

func (c *Config) maxSectionSize() uint32 {
	if c.MaxSectionSize == 0 {
		return DefaultMaxSectionSize
	}
	return c.MaxSectionSize
}

// Decode a module, invoking visitor methods in document order.  Errors are
// *errors.Error values with a byte offset; visitor errors are wrapped.
func Decode(r binary.Reader, v Visitor, config *Config) (err error) {
	if config == nil {
		config = new(Config)
	}

	defer func() {
		if x := recover(); x != nil {
			if f, ok := x.(final); ok {
				x = f.err
			}
			err = errorpanic.Handle(x)
			log.Logger().Debug("decode failed", zap.Error(err))
		}
	}()

	d := decoder{
		v:      v,
		config: config,
		log:    log.Logger(),
	}
	d.decode(loader.New(r))
	return
}

type decoder struct {
	v      Visitor
	config *Config
	log    *zap.Logger

	numFuncs      uint32
	numCodes      uint32
	dataCount     uint32
	haveDataCount bool
	numData       uint32
}

// final error is propagated without reclassification by the bounded payload
// decoders.  Errors returned by visitors are not caused by the framing.
type final struct {
	err error
}

// call checks a visitor result.
func (d *decoder) call(offset int64, err error) {
	if err != nil {
		panic(final{errors.At(err, offset, errors.Malformed)})
	}
}

func (d *decoder) decode(load loader.L) {
	d.header(load)

	var prevID section.ID

	for {
		sectionOffset := load.Position()

		b, err := load.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			loader.Check(err, sectionOffset)
		}

		id := section.ID(b)
		if !id.Known() {
			err := errors.Errorf(errors.UnknownSection, "unknown section id: 0x%02x", b)
			err.Offset = sectionOffset
			panic(err)
		}

		if id != section.Custom {
			if prevID != section.Custom && id.Order() <= prevID.Order() {
				loader.Fail(sectionOffset, "%s section follows %s section", id, prevID)
			}
			prevID = id
		}

		d.section(id, sectionOffset, load)
	}

	d.finish(load.Position())
}

func (d *decoder) header(load loader.L) {
	for i, expect := range magicBytes {
		offset := load.Position()
		if b := load.Byte(); b != expect {
			err := errors.Errorf(errors.InvalidMagic, "not a WebAssembly module: byte %d is 0x%02x", i, b)
			err.Offset = offset
			panic(err)
		}
	}

	offset := load.Position()
	version := load.Uint32()
	if version != Version {
		err := errors.Errorf(errors.UnsupportedVersion, "unsupported module version: %d", version)
		err.Offset = offset
		panic(err)
	}

	d.call(offset, d.v.Header(version))
}

func (d *decoder) section(id section.ID, sectionOffset int64, load loader.L) {
	payloadSize := load.Varuint32()
	payloadOffset := load.Position()

	if payloadSize > d.config.maxSectionSize() {
		loader.Fail(payloadOffset, "%s section is too large: %d bytes", id, payloadSize)
	}

	if d.config.ModuleMapper != nil {
		sectionSize := uint32(payloadOffset-sectionOffset) + payloadSize
		d.call(sectionOffset, d.config.ModuleMapper.PutSection(id, sectionOffset, sectionSize, payloadSize))
	}

	payload, err := load.Take(int64(payloadSize))
	if err != nil {
		if errors.KindOf(err) == errors.Truncated {
			err := errors.Errorf(errors.SectionSizeMismatch, "%s section payload is shorter than declared size %d", id, payloadSize)
			err.Offset = payloadOffset
			panic(err)
		}
		loader.Check(err, payloadOffset)
	}

	d.log.Debug("section",
		zap.Stringer("id", id),
		zap.Int64("offset", sectionOffset),
		zap.Uint32("size", payloadSize))

	d.call(sectionOffset, d.v.BeginSection(id, sectionOffset, payloadSize))

	sub := loader.NewBounded(payload, payloadOffset)
	d.payload(id, sub)

	if n := sub.Remaining(); n != 0 {
		err := errors.Errorf(errors.SectionSizeMismatch, "%s section has %d unused payload bytes", id, n)
		err.Offset = sub.Position()
		panic(err)
	}

	d.call(sub.Position(), d.v.EndSection(id))
}

// payload decoder runs within a bounded loader; running out of bytes means
// that the declared size is too small for the content.
func (d *decoder) payload(id section.ID, load loader.L) {
	defer func() {
		if x := recover(); x != nil {
			if e, ok := x.(*errors.Error); ok && e.Kind == errors.Truncated {
				err := errors.Wrap(errors.SectionSizeMismatch, e, id.String()+" section content exceeds declared payload size")
				err.Offset = e.Offset
				x = err
			}
			panic(x)
		}
	}()

	sectionDecoders[id](d, load)
}

func (d *decoder) finish(offset int64) {
	if d.numFuncs != d.numCodes {
		loader.Fail(offset, "function and code section have inconsistent lengths: %d and %d", d.numFuncs, d.numCodes)
	}
	if d.haveDataCount && d.dataCount != d.numData {
		loader.Fail(offset, "data count and data section have inconsistent lengths: %d and %d", d.dataCount, d.numData)
	}

	d.call(offset, d.v.End())
}

var sectionDecoders = [section.NumSections]func(*decoder, loader.L){
	section.Custom:    (*decoder).customSection,
	section.Type:      (*decoder).typeSection,
	section.Import:    (*decoder).importSection,
	section.Function:  (*decoder).functionSection,
	section.Table:     (*decoder).tableSection,
	section.Memory:    (*decoder).memorySection,
	section.Global:    (*decoder).globalSection,
	section.Export:    (*decoder).exportSection,
	section.Start:     (*decoder).startSection,
	section.Element:   (*decoder).elementSection,
	section.Code:      (*decoder).codeSection,
	section.Data:      (*decoder).dataSection,
	section.DataCount: (*decoder).dataCountSection,
}
