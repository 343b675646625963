// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reader

import (
	"bytes"
	"io"

	"gate.computer/wacore/binary"
	"gate.computer/wacore/errors"
)

// Cursor consumes bytes from an underlying reader, forward only, keeping
// track of the position.  A bounded cursor refuses to read beyond its end.
//
// Positions are absolute: a cursor over a buffered section payload reports
// offsets within the whole module.
type Cursor struct {
	r      binary.Reader
	pos    int64
	end    int64 // Negative if unbounded.
	unread bool  // Last operation was a successful ReadByte.
}

// New unbounded cursor.
func New(r binary.Reader) *Cursor {
	return &Cursor{r: r, end: -1}
}

// NewBounded cursor over b, which starts at the given absolute position.
func NewBounded(b []byte, pos int64) *Cursor {
	return &Cursor{r: bytes.NewReader(b), pos: pos, end: pos + int64(len(b))}
}

// Position of the next byte.
func (c *Cursor) Position() int64 { return c.pos }

// Remaining number of bytes, or -1 if the cursor is unbounded.
func (c *Cursor) Remaining() int64 {
	if c.end < 0 {
		return -1
	}
	return c.end - c.pos
}

// Bounded cursor has an end.
func (c *Cursor) Bounded() bool { return c.end >= 0 }

func (c *Cursor) Read(b []byte) (n int, err error) {
	c.unread = false

	if c.end >= 0 {
		if c.pos >= c.end {
			return 0, io.EOF
		}
		if remain := c.end - c.pos; int64(len(b)) > remain {
			b = b[:remain]
		}
	}

	n, err = c.r.Read(b)
	c.pos += int64(n)
	return
}

func (c *Cursor) ReadByte() (b byte, err error) {
	c.unread = false

	if c.end >= 0 && c.pos >= c.end {
		return 0, io.EOF
	}

	b, err = c.r.ReadByte()
	if err == nil {
		c.pos++
		c.unread = true
	}
	return
}

// UnreadByte undoes the most recent ReadByte.  It is the only way to move
// backwards.
func (c *Cursor) UnreadByte() error {
	if !c.unread {
		return errors.New(errors.InvalidState, "cursor can only unread the last byte")
	}

	if err := c.r.UnreadByte(); err != nil {
		return err
	}
	c.pos--
	c.unread = false
	return nil
}

// Peek at the next byte without consuming it.
func (c *Cursor) Peek() (byte, error) {
	b, err := c.ReadByte()
	if err != nil {
		return 0, c.truncated(err)
	}
	if err := c.UnreadByte(); err != nil {
		return 0, err
	}
	return b, nil
}

// Take exactly n bytes.  A bounded cursor fails without consuming anything if
// fewer than n bytes remain.  The buffer grows with the data actually
// received, so a bogus n doesn't cause a huge allocation up front.
func (c *Cursor) Take(n int64) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf(errors.Malformed, "negative length: %d", n)
	}
	if c.end >= 0 && n > c.end-c.pos {
		return nil, c.short()
	}

	const maxUpfront = 65536

	var buf bytes.Buffer
	if n <= maxUpfront {
		buf.Grow(int(n))
	} else {
		buf.Grow(maxUpfront)
	}

	if _, err := io.CopyN(&buf, c, n); err != nil {
		return nil, c.truncated(err)
	}
	return buf.Bytes(), nil
}

// Skip exactly n bytes.
func (c *Cursor) Skip(n int64) error {
	if n < 0 {
		return errors.Errorf(errors.Malformed, "negative length: %d", n)
	}
	if c.end >= 0 && n > c.end-c.pos {
		return c.short()
	}

	if _, err := io.CopyN(io.Discard, c, n); err != nil {
		return c.truncated(err)
	}
	return nil
}

func (c *Cursor) short() error {
	err := errors.UnexpectedEOF()
	err.Offset = c.end
	return err
}

func (c *Cursor) truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		e := errors.UnexpectedEOF()
		e.Offset = c.pos
		return e
	}
	return err
}
