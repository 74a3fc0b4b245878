// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import (
	"fmt"
	"testing"

	. "go.chromium.org/luci/common/testing/assertions"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntryByDumpID(t *testing.T) {
	t.Parallel()

	Convey("EntryByDumpID", t, func() {
		tab := New()
		e, err := tab.AddEntry(EntryOptions{Desc: "TABLE", Tag: "a"})
		So(err, ShouldBeNil)

		got, err := tab.EntryByDumpID(e.DumpID)
		So(err, ShouldBeNil)
		So(got, ShouldEqual, e)

		_, err = tab.EntryByDumpID(999)
		So(err, ShouldErrLike, "no entry with dump id")
	})
}

func TestLookupEntry(t *testing.T) {
	t.Parallel()

	Convey("LookupEntry", t, func() {
		tab := New()
		e, err := tab.AddEntry(EntryOptions{Desc: "TABLE", Tag: "widgets", Namespace: "public"})
		So(err, ShouldBeNil)

		got, err := tab.LookupEntry("TABLE", "public", "widgets")
		So(err, ShouldBeNil)
		So(got, ShouldEqual, e)

		_, err = tab.LookupEntry("TABLE", "public", "nope")
		So(err, ShouldErrLike, "no TABLE entry")
	})
}

func TestDependents(t *testing.T) {
	t.Parallel()

	Convey("Dependents", t, func() {
		tab := New()
		table, err := tab.AddEntry(EntryOptions{Desc: "TABLE", Tag: "widgets"})
		So(err, ShouldBeNil)
		data, err := tab.AddEntry(EntryOptions{Desc: "TABLE DATA", Tag: "widgets", Dependencies: []int32{table.DumpID}})
		So(err, ShouldBeNil)
		index, err := tab.AddEntry(EntryOptions{Desc: "INDEX", Tag: "widgets_pkey", Dependencies: []int32{table.DumpID}})
		So(err, ShouldBeNil)

		So(tab.Dependents(table.DumpID), ShouldResemble, []int32{data.DumpID, index.DumpID})
		So(tab.Dependents(data.DumpID), ShouldBeNil)
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Parallel()

	Convey("TopologicalOrder", t, func() {
		Convey("empty", func() {
			tab := New()
			order, err := tab.TopologicalOrder()
			So(err, ShouldBeNil)
			So(order, ShouldBeNil)
		})

		Convey("respects dependencies across sections", func() {
			tab := New()
			table, err := tab.AddEntry(EntryOptions{Desc: "TABLE", Tag: "widgets"})
			So(err, ShouldBeNil)
			index, err := tab.AddEntry(EntryOptions{Desc: "INDEX", Tag: "widgets_pkey", Dependencies: []int32{table.DumpID}})
			So(err, ShouldBeNil)
			data, err := tab.AddEntry(EntryOptions{Desc: "TABLE DATA", Tag: "widgets", Dependencies: []int32{table.DumpID}})
			So(err, ShouldBeNil)

			order, err := tab.TopologicalOrder()
			So(err, ShouldBeNil)
			So(len(order), ShouldEqual, 3)

			pos := map[int32]int{}
			for i, e := range order {
				pos[e.DumpID] = i
			}
			So(pos[table.DumpID], ShouldBeLessThan, pos[data.DumpID])
			So(pos[table.DumpID], ShouldBeLessThan, pos[index.DumpID])
			// Data section (1) sorts before Post-Data (2) when both are ready.
			So(pos[data.DumpID], ShouldBeLessThan, pos[index.DumpID])
		})

		Convey("stable insertion order within a section", func() {
			tab := New()
			a, err := tab.AddEntry(EntryOptions{Desc: "TABLE", Tag: "a"})
			So(err, ShouldBeNil)
			b, err := tab.AddEntry(EntryOptions{Desc: "TABLE", Tag: "b"})
			So(err, ShouldBeNil)

			order, err := tab.TopologicalOrder()
			So(err, ShouldBeNil)
			So(order[0].DumpID, ShouldEqual, a.DumpID)
			So(order[1].DumpID, ShouldEqual, b.DumpID)
		})

		Convey("deep dependency chain at scale", func() {
			tab := New()
			const n = 500
			entries := make([]*Entry, n)
			for i := 0; i < n; i++ {
				opts := EntryOptions{Desc: "TABLE", Tag: fmt.Sprintf("t%d", i)}
				if i > 0 {
					opts.Dependencies = []int32{entries[i-1].DumpID}
				}
				e, err := tab.AddEntry(opts)
				So(err, ShouldBeNil)
				entries[i] = e
			}

			order, err := tab.TopologicalOrder()
			So(err, ShouldBeNil)
			So(len(order), ShouldEqual, n)

			pos := map[int32]int{}
			for i, e := range order {
				pos[e.DumpID] = i
			}
			for i := 1; i < n; i++ {
				So(pos[entries[i-1].DumpID], ShouldBeLessThan, pos[entries[i].DumpID])
			}
			// With a single linear chain and every entry in the same
			// section, the heap tie-break degenerates to insertion order.
			for i := 0; i < n; i++ {
				So(order[i].DumpID, ShouldEqual, entries[i].DumpID)
			}
		})

		Convey("cyclic dependency", func() {
			tab := New()
			a, err := tab.AddEntry(EntryOptions{Desc: "TABLE", Tag: "a"})
			So(err, ShouldBeNil)
			b, err := tab.AddEntry(EntryOptions{Desc: "TABLE", Tag: "b", Dependencies: []int32{a.DumpID}})
			So(err, ShouldBeNil)
			// Introduce a cycle by hand; AddEntry alone can't express one
			// since it only accepts dependencies that already exist.
			a.Dependencies = append(a.Dependencies, b.DumpID)

			_, err = tab.TopologicalOrder()
			So(err, ShouldErrLike, "cyclic dependency")
		})
	})
}

func TestEncodingFromEntries(t *testing.T) {
	t.Parallel()

	Convey("EncodingFromEntries", t, func() {
		entries := []*Entry{
			{Desc: "ENCODING", Defn: "SET client_encoding = 'UTF8';"},
		}
		So(EncodingFromEntries(entries), ShouldEqual, "UTF8")
		So(EncodingFromEntries(nil), ShouldEqual, "")
	})
}

func TestStdStringsFromEntries(t *testing.T) {
	t.Parallel()

	Convey("StdStringsFromEntries", t, func() {
		So(StdStringsFromEntries([]*Entry{
			{Desc: "STDSTRINGS", Defn: "SET standard_conforming_strings = 'on';"},
		}), ShouldBeTrue)
		So(StdStringsFromEntries([]*Entry{
			{Desc: "STDSTRINGS", Defn: "SET standard_conforming_strings = 'off';"},
		}), ShouldBeFalse)
		So(StdStringsFromEntries(nil), ShouldBeFalse)
	})
}

func TestSearchPathFromEntries(t *testing.T) {
	t.Parallel()

	Convey("SearchPathFromEntries", t, func() {
		So(SearchPathFromEntries([]*Entry{
			{Desc: "SEARCHPATH", Defn: "SELECT pg_catalog.set_config('search_path', '', false);"},
		}), ShouldEqual, "SELECT pg_catalog.set_config('search_path', '', false);")
		So(SearchPathFromEntries(nil), ShouldEqual, "")
	})
}
