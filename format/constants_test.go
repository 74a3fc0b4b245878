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

func TestMagic(t *testing.T) {
	t.Parallel()

	Convey("Magic", t, func() {
		Convey("write", func() {
			buf := &bytes.Buffer{}
			So(WriteMagic(buf), ShouldBeNil)
			So(buf.Bytes(), ShouldResemble, []byte{'P', 'G', 'D', 'M', 'P'})
		})

		Convey("read good", func() {
			buf := bytes.NewReader([]byte{'P', 'G', 'D', 'M', 'P'})
			So(ReadMagic(buf), ShouldBeNil)
		})

		Convey("read bad", func() {
			buf := bytes.NewReader([]byte{'P', 'K', 3, 4, 0})
			err := ReadMagic(buf)
			So(err, ShouldErrLike, "bad magic")
		})
	})
}

func TestSectionOf(t *testing.T) {
	t.Parallel()

	Convey("SectionOf", t, func() {
		Convey("known descriptors", func() {
			s, err := SectionOf("TABLE")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, SectionPreData)

			s, err = SectionOf("TABLE DATA")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, SectionData)

			s, err = SectionOf("INDEX")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, SectionPostData)

			s, err = SectionOf("COMMENT")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, SectionNone)
		})

		Convey("unknown descriptor", func() {
			_, err := SectionOf("NOT A REAL DESCRIPTOR")
			So(err, ShouldErrLike, "unknown descriptor")
		})
	})
}

func TestIsKnownDescriptor(t *testing.T) {
	t.Parallel()

	Convey("IsKnownDescriptor", t, func() {
		So(IsKnownDescriptor("TABLE"), ShouldBeTrue)
		So(IsKnownDescriptor("NOPE"), ShouldBeFalse)
	})
}

func TestArchiveVersion(t *testing.T) {
	t.Parallel()

	Convey("ArchiveVersion", t, func() {
		Convey("String", func() {
			So(V1_14.String(), ShouldEqual, "1.14.0")
		})

		Convey("Before/AtLeast", func() {
			So(V1_12.Before(V1_14), ShouldBeTrue)
			So(V1_14.Before(V1_12), ShouldBeFalse)
			So(V1_14.AtLeast(V1_14), ShouldBeTrue)
			So(V1_14.AtLeast(V1_15), ShouldBeFalse)
		})

		Convey("Supported", func() {
			So(V1_14.Supported(), ShouldBeTrue)
			So(ArchiveVersion{1, 11, 0}.Supported(), ShouldBeFalse)
			So(ArchiveVersion{1, 17, 0}.Supported(), ShouldBeFalse)
		})

		Convey("Supported at the exact lower and upper bounds", func() {
			So(V1_12.Supported(), ShouldBeTrue)
			So(V1_16.Supported(), ShouldBeTrue)
		})
	})
}

func TestServerVersionToArchiveVersion(t *testing.T) {
	t.Parallel()

	Convey("ServerVersionToArchiveVersion", t, func() {
		So(ServerVersionToArchiveVersion("9.6.24"), ShouldEqual, V1_12)
		So(ServerVersionToArchiveVersion("13.2"), ShouldEqual, V1_13)
		So(ServerVersionToArchiveVersion("15.0"), ShouldEqual, V1_14)
		So(ServerVersionToArchiveVersion("16.2"), ShouldEqual, V1_15)
		So(ServerVersionToArchiveVersion("17.1"), ShouldEqual, V1_16)
		So(ServerVersionToArchiveVersion("not a version"), ShouldEqual, DefaultVersion)
	})
}
