// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import (
	"bytes"
	"testing"

	. "go.chromium.org/luci/common/testing/assertions"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIntCodec(t *testing.T) {
	t.Parallel()

	Convey("IntCodec", t, func() {
		c := &IntCodec{IntSize: 4, OffSize: 8}

		Convey("ReadInt/WriteInt round trip", func() {
			for _, v := range []int64{0, 1, -1, 12345, -12345, 1 << 30} {
				buf := &bytes.Buffer{}
				So(c.WriteInt(buf, v), ShouldBeNil)
				got, err := c.ReadInt(buf)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, v)
			}
		})

		Convey("ReadInt rejects the null sentinel", func() {
			buf := &bytes.Buffer{}
			buf.WriteByte(signNull)
			buf.Write(make([]byte, c.IntSize))
			_, err := c.ReadInt(buf)
			So(err, ShouldErrLike, "unexpected null sentinel")
		})

		Convey("ReadInt rejects an invalid sign byte", func() {
			buf := &bytes.Buffer{}
			buf.WriteByte(7)
			buf.Write(make([]byte, c.IntSize))
			_, err := c.ReadInt(buf)
			So(err, ShouldErrLike, "invalid sign byte")
		})

		Convey("ReadNullableInt reports null", func() {
			buf := &bytes.Buffer{}
			buf.WriteByte(signNull)
			buf.Write(make([]byte, c.IntSize))
			v, null, err := c.ReadNullableInt(buf)
			So(err, ShouldBeNil)
			So(null, ShouldBeTrue)
			So(v, ShouldEqual, 0)
		})

		Convey("ReadOffset/WriteOffset round trip", func() {
			buf := &bytes.Buffer{}
			So(c.WriteOffset(buf, 0xdeadbeef), ShouldBeNil)
			got, err := c.ReadOffset(buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, uint64(0xdeadbeef))
		})

		Convey("ReadString/WriteString round trip", func() {
			Convey("non-empty", func() {
				buf := &bytes.Buffer{}
				So(c.WriteString(buf, "hello"), ShouldBeNil)
				s, null, err := c.ReadString(buf)
				So(err, ShouldBeNil)
				So(null, ShouldBeFalse)
				So(s, ShouldEqual, "hello")
			})

			Convey("empty", func() {
				buf := &bytes.Buffer{}
				So(c.WriteString(buf, ""), ShouldBeNil)
				s, null, err := c.ReadString(buf)
				So(err, ShouldBeNil)
				So(null, ShouldBeFalse)
				So(s, ShouldEqual, "")
			})

			Convey("null", func() {
				buf := &bytes.Buffer{}
				So(c.WriteNullString(buf), ShouldBeNil)
				s, null, err := c.ReadString(buf)
				So(err, ShouldBeNil)
				So(null, ShouldBeTrue)
				So(s, ShouldEqual, "")
			})

			Convey("invalid length", func() {
				buf := &bytes.Buffer{}
				So(c.WriteInt(buf, -5), ShouldBeNil)
				_, _, err := c.ReadString(buf)
				So(err, ShouldErrLike, "invalid string length")
			})
		})
	})
}
