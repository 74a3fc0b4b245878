// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import (
	"io"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	t.Parallel()

	Convey("Store", t, func() {
		dir, err := os.MkdirTemp("", "pgdumplib-store-")
		So(err, ShouldBeNil)
		Reset(func() { os.RemoveAll(dir) })

		s, err := NewStore(dir, 42)
		So(err, ShouldBeNil)

		Convey("row write/read round trip", func() {
			w, err := s.RawWriter()
			So(err, ShouldBeNil)
			rw := NewRowWriter(w)
			So(rw.Append("1", "alice", nil), ShouldBeNil)
			So(rw.Append("2", "bob", "42"), ShouldBeNil)
			So(rw.Close(), ShouldBeNil)

			r, err := s.RawReader()
			So(err, ShouldBeNil)
			it := NewRowIter(r)

			fields, ok := it.Next()
			So(ok, ShouldBeTrue)
			So(fields, ShouldResemble, []string{"1", "alice", `\N`})

			fields, ok = it.Next()
			So(ok, ShouldBeTrue)
			So(fields, ShouldResemble, []string{"2", "bob", "42"})

			_, ok = it.Next()
			So(ok, ShouldBeFalse)
			So(it.Err(), ShouldBeNil)
			So(it.Close(), ShouldBeNil)
		})

		Convey("raw blob round trip", func() {
			w, err := s.RawWriter()
			So(err, ShouldBeNil)
			rw := NewRowWriter(w)
			So(rw.AppendRaw([]byte("binary data")), ShouldBeNil)
			So(rw.Close(), ShouldBeNil)

			r, err := s.RawReader()
			So(err, ShouldBeNil)
			got, err := io.ReadAll(r)
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "binary data")
			So(r.Close(), ShouldBeNil)
		})

		Convey("Remove", func() {
			So(s.Remove(), ShouldBeNil)
			So(s.Remove(), ShouldBeNil) // idempotent
		})
	})
}
