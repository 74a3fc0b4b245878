// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package converters

import (
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	Convey("Default", t, func() {
		got, err := Default{}.Convert([]string{"1", `\N`, "hello"})
		So(err, ShouldBeNil)
		So(got, ShouldResemble, []any{"1", nil, "hello"})
	})
}

func TestNoOp(t *testing.T) {
	t.Parallel()

	Convey("NoOp", t, func() {
		got, err := NoOp{}.Convert([]string{"1", `\N`, "hello"})
		So(err, ShouldBeNil)
		So(got, ShouldResemble, []any{"1", `\N`, "hello"})
	})
}

func TestSmart(t *testing.T) {
	t.Parallel()

	Convey("Smart", t, func() {
		Convey("null", func() {
			got, err := Smart{}.Convert([]string{`\N`})
			So(err, ShouldBeNil)
			So(got[0], ShouldBeNil)
		})

		Convey("integer", func() {
			got, err := Smart{}.Convert([]string{"-42"})
			So(err, ShouldBeNil)
			So(got[0], ShouldEqual, int64(-42))
		})

		Convey("ip address", func() {
			got, err := Smart{}.Convert([]string{"192.168.1.1"})
			So(err, ShouldBeNil)
			So(got[0], ShouldResemble, netip.MustParseAddr("192.168.1.1"))
		})

		Convey("ip network", func() {
			got, err := Smart{}.Convert([]string{"10.0.0.0/8"})
			So(err, ShouldBeNil)
			So(got[0], ShouldResemble, netip.MustParsePrefix("10.0.0.0/8"))
		})

		Convey("uuid", func() {
			id := uuid.New()
			got, err := Smart{}.Convert([]string{id.String()})
			So(err, ShouldBeNil)
			So(got[0], ShouldResemble, id)
		})

		Convey("timestamp", func() {
			got, err := Smart{}.Convert([]string{"2026-08-03 10:30:00"})
			So(err, ShouldBeNil)
			t, ok := got[0].(time.Time)
			So(ok, ShouldBeTrue)
			So(t.Year(), ShouldEqual, 2026)
		})

		Convey("decimal", func() {
			got, err := Smart{}.Convert([]string{"19.99"})
			So(err, ShouldBeNil)
			d, ok := got[0].(decimal.Decimal)
			So(ok, ShouldBeTrue)
			So(d.Equal(decimal.NewFromFloat(19.99)), ShouldBeTrue)
		})

		Convey("plain string", func() {
			got, err := Smart{}.Convert([]string{"widgets"})
			So(err, ShouldBeNil)
			So(got[0], ShouldEqual, "widgets")
		})
	})
}
