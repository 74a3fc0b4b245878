// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import (
	"bytes"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFramedBlock(t *testing.T) {
	t.Parallel()

	Convey("Framed block", t, func() {
		codec := &IntCodec{IntSize: 4, OffSize: 8}
		payload := bytes.Repeat([]byte("hello world, this is a row of data\n"), 500)

		Convey("uncompressed round trip", func() {
			buf := &bytes.Buffer{}
			So(WriteFramedBlock(buf, codec, bytes.NewReader(payload), false, 0), ShouldBeNil)

			rc, err := ReadFramedBlock(buf, codec)
			So(err, ShouldBeNil)
			got, err := io.ReadAll(rc)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, payload)
			So(rc.Close(), ShouldBeNil)
		})

		Convey("compressed round trip", func() {
			buf := &bytes.Buffer{}
			So(WriteFramedBlock(buf, codec, bytes.NewReader(payload), true, 6), ShouldBeNil)
			So(buf.Len(), ShouldBeLessThan, len(payload))

			rc, err := ReadFramedBlock(buf, codec)
			So(err, ShouldBeNil)
			got, err := io.ReadAll(rc)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, payload)
			So(rc.Close(), ShouldBeNil)
		})

		Convey("empty payload", func() {
			buf := &bytes.Buffer{}
			So(WriteFramedBlock(buf, codec, bytes.NewReader(nil), false, 0), ShouldBeNil)

			rc, err := ReadFramedBlock(buf, codec)
			So(err, ShouldBeNil)
			got, err := io.ReadAll(rc)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 0)
		})
	})
}
