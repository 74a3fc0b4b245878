// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import (
	"io"

	"go.chromium.org/luci/common/errors"
)

// signPositive, signNegative and signNull are the valid values of the sign
// byte that precedes every sign-magnitude integer in the archive.
const (
	signPositive byte = 0
	signNegative byte = 1
	signNull     byte = 2
)

// IntCodec encodes and decodes the sign-magnitude integers, offsets and
// length-prefixed strings that make up the entirety of an archive's byte
// format, once intSize and offSize have been negotiated from the header.
type IntCodec struct {
	IntSize int
	OffSize int
}

// ReadByte reads a single byte from r.
func ReadByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Annotate(err).Reason("reading byte").Err()
	}
	return buf[0], nil
}

// WriteByte writes a single byte to w.
func WriteByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return errors.Annotate(err).Reason("writing byte").Err()
}

// ReadInt reads a sign-magnitude integer of c.IntSize magnitude bytes. A sign
// byte outside {0, 1} other than the null sentinel is a format error.
func (c *IntCodec) ReadInt(r io.Reader) (int64, error) {
	v, null, err := c.readMagnitude(r, c.IntSize)
	if err != nil {
		return 0, err
	}
	if null {
		return 0, errors.Reason("unexpected null sentinel reading integer").Err()
	}
	return v, nil
}

// ReadNullableInt is ReadInt, but tolerates the null-sentinel sign byte (2),
// reporting it via the second return value instead of failing.
func (c *IntCodec) ReadNullableInt(r io.Reader) (int64, bool, error) {
	return c.readMagnitude(r, c.IntSize)
}

func (c *IntCodec) readMagnitude(r io.Reader, width int) (int64, bool, error) {
	sign, err := ReadByte(r)
	if err != nil {
		return 0, false, errors.Annotate(err).Reason("reading sign byte").Err()
	}

	switch sign {
	case signPositive, signNegative:
	case signNull:
		// Magnitude bytes are still present on disk; consume and discard them.
		if _, err := io.CopyN(io.Discard, r, int64(width)); err != nil {
			return 0, false, errors.Annotate(err).Reason("skipping null magnitude").Err()
		}
		return 0, true, nil
	default:
		return 0, false, FormatErrorTag.Apply(errors.Reason("invalid sign byte 0x%(b)x").D("b", sign).Err())
	}

	var value int64
	for shift := 0; shift < width; shift++ {
		b, err := ReadByte(r)
		if err != nil {
			return 0, false, errors.Annotate(err).Reason("reading magnitude byte").Err()
		}
		if b != 0 {
			value += int64(b) << uint(shift*8)
		}
	}
	if sign == signNegative {
		value = -value
	}
	return value, false, nil
}

// WriteInt writes value as a sign-magnitude integer of c.IntSize magnitude
// bytes.
func (c *IntCodec) WriteInt(w io.Writer, value int64) error {
	return c.writeMagnitude(w, value, c.IntSize)
}

func (c *IntCodec) writeMagnitude(w io.Writer, value int64, width int) error {
	sign := signPositive
	if value < 0 {
		sign = signNegative
		value = -value
	}
	if err := WriteByte(w, sign); err != nil {
		return err
	}
	for shift := 0; shift < width; shift++ {
		if err := WriteByte(w, byte(value&0xFF)); err != nil {
			return errors.Annotate(err).Reason("writing magnitude byte").Err()
		}
		value >>= 8
	}
	return nil
}

// ReadOffset reads an unsigned, c.OffSize-wide little-endian offset, as used
// for an entry's data_state/offset pair (no sign byte — offsets are never
// negative).
func (c *IntCodec) ReadOffset(r io.Reader) (uint64, error) {
	var value uint64
	for shift := 0; shift < c.OffSize; shift++ {
		b, err := ReadByte(r)
		if err != nil {
			return 0, errors.Annotate(err).Reason("reading offset byte").Err()
		}
		value |= uint64(b) << uint(shift*8)
	}
	return value, nil
}

// WriteOffset writes value as an unsigned, c.OffSize-wide little-endian
// offset.
func (c *IntCodec) WriteOffset(w io.Writer, value uint64) error {
	for shift := 0; shift < c.OffSize; shift++ {
		if err := WriteByte(w, byte(value&0xFF)); err != nil {
			return errors.Annotate(err).Reason("writing offset byte").Err()
		}
		value >>= 8
	}
	return nil
}

// ReadString reads a signed-varint-length-prefixed string. A length of -1
// denotes a null string (returned with null=true); a length of 0 denotes
// the empty string.
func (c *IntCodec) ReadString(r io.Reader) (value string, null bool, err error) {
	length, err := c.ReadInt(r)
	if err != nil {
		return "", false, errors.Annotate(err).Reason("reading string length").Err()
	}
	if length < -1 {
		return "", false, FormatErrorTag.Apply(errors.Reason("invalid string length %(length)d").D("length", length).Err())
	}
	if length == -1 {
		return "", true, nil
	}
	if length == 0 {
		return "", false, nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", false, errors.Annotate(err).Reason("reading string body").Err()
	}
	return string(buf), false, nil
}

// WriteString writes value as a length-prefixed string. An empty string is
// written with length 0, never as null; use WriteNullString to emit length
// -1.
func (c *IntCodec) WriteString(w io.Writer, value string) error {
	if err := c.WriteInt(w, int64(len(value))); err != nil {
		return errors.Annotate(err).Reason("writing string length").Err()
	}
	if len(value) == 0 {
		return nil
	}
	_, err := w.Write([]byte(value))
	return errors.Annotate(err).Reason("writing string body").Err()
}

// WriteNullString writes the null-string sentinel (length -1).
func (c *IntCodec) WriteNullString(w io.Writer) error {
	return c.WriteInt(w, -1)
}
