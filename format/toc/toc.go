// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import (
	"container/heap"
	"regexp"
	"sort"

	"go.chromium.org/luci/common/errors"

	"github.com/gmr/pgdumplib/format"
)

// TOC is the ordered table of contents of an archive: every database
// object, in insertion order (on-disk order for a loaded archive). Save
// writes entries in TopologicalOrder but does not reorder Entries itself.
type TOC struct {
	Entries []*Entry

	byID   map[int32]*Entry
	maxID  int32
}

// New returns an empty TOC.
func New() *TOC {
	return &TOC{byID: map[int32]*Entry{}}
}

func (t *TOC) append(e *Entry) {
	if t.byID == nil {
		t.byID = map[int32]*Entry{}
	}
	t.byID[e.DumpID] = e
	if e.DumpID > t.maxID {
		t.maxID = e.DumpID
	}
	t.Entries = append(t.Entries, e)
}

func (t *TOC) nextDumpID() int32 {
	return t.maxID + 1
}

// EntryByDumpID returns the entry with the given dump id, or
// *entity-not-found*.
func (t *TOC) EntryByDumpID(id int32) (*Entry, error) {
	if e, ok := t.byID[id]; ok {
		return e, nil
	}
	return nil, EntityNotFoundTag.Apply(errors.Reason("no entry with dump id %(id)d").D("id", id).Err())
}

// LookupEntry returns the entry matching desc, namespace and tag, or
// *entity-not-found*.
func (t *TOC) LookupEntry(desc, namespace, tag string) (*Entry, error) {
	for _, e := range t.Entries {
		if e.Desc == desc && e.Namespace == namespace && e.Tag == tag {
			return e, nil
		}
	}
	return nil, EntityNotFoundTag.Apply(errors.Reason("no %(desc)s entry for %(ns)s.%(tag)s").
		D("desc", desc).D("ns", namespace).D("tag", tag).Err())
}

// Dependents returns the dump ids of every entry that directly depends on
// id, in TOC order.
func (t *TOC) Dependents(id int32) []int32 {
	var out []int32
	for _, e := range t.Entries {
		for _, dep := range e.Dependencies {
			if dep == id {
				out = append(out, e.DumpID)
				break
			}
		}
	}
	return out
}

// sectionRank gives the Pre-Data < Data < Post-Data < None ordering used as
// the topological sort's tie-break.
func sectionRank(s format.Section) int {
	switch s {
	case format.SectionPreData:
		return 0
	case format.SectionData:
		return 1
	case format.SectionPostData:
		return 2
	default:
		return 3
	}
}

// idHeap is a min-heap over priority ranks, used by TopologicalOrder's
// Kahn's-algorithm pass to pick the lowest-ranked ready entry at each step.
type idHeap []int

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)         { *h = append(*h, x.(int)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// TopologicalOrder returns the entries sorted so that every entry appears
// after all of its dependencies, breaking ties by section (Pre-Data <
// Data < Post-Data < None) and then by original insertion order. It fails
// with *cyclic-dependencies* if the dependency graph has a cycle.
func (t *TOC) TopologicalOrder() ([]*Entry, error) {
	n := len(t.Entries)
	if n == 0 {
		return nil, nil
	}

	candidates := make([]*Entry, n)
	copy(candidates, t.Entries)
	sort.SliceStable(candidates, func(i, j int) bool {
		return sectionRank(candidates[i].Section) < sectionRank(candidates[j].Section)
	})

	rank := make(map[int32]int, n)
	for i, e := range candidates {
		rank[e.DumpID] = i
	}

	inDegree := make(map[int32]int, n)
	dependents := make(map[int32][]int32, n)
	for _, e := range t.Entries {
		for _, dep := range e.Dependencies {
			if _, ok := t.byID[dep]; !ok {
				continue
			}
			inDegree[e.DumpID]++
			dependents[dep] = append(dependents[dep], e.DumpID)
		}
	}

	ready := &idHeap{}
	for _, e := range candidates {
		if inDegree[e.DumpID] == 0 {
			heap.Push(ready, rank[e.DumpID])
		}
	}

	result := make([]*Entry, 0, n)
	for ready.Len() > 0 {
		r := heap.Pop(ready).(int)
		e := candidates[r]
		result = append(result, e)
		for _, depID := range dependents[e.DumpID] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				heap.Push(ready, rank[depID])
			}
		}
	}

	if len(result) != n {
		return nil, CyclicDependenciesTag.Apply(errors.Reason("cyclic dependency detected among %(n)d unresolved entries").
			D("n", n-len(result)).Err())
	}
	return result, nil
}

var encodingPattern = regexp.MustCompile(`(?i)^\s*SET\s+client_encoding\s*=\s*'(.*)'\s*;?\s*$`)

// EncodingFromEntries scrapes the client_encoding value out of the
// ENCODING descriptor's DDL, for archive versions older than 1.13 that
// don't carry encoding in the header. Returns "" if no ENCODING entry is
// present.
func EncodingFromEntries(entries []*Entry) string {
	for _, e := range entries {
		if e.Desc == "ENCODING" {
			if m := encodingPattern.FindStringSubmatch(e.Defn); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

// StdStringsFromEntries scrapes the standard_conforming_strings value out
// of the STDSTRINGS descriptor's DDL, for the same pre-1.13 fallback as
// EncodingFromEntries.
func StdStringsFromEntries(entries []*Entry) bool {
	for _, e := range entries {
		if e.Desc == "STDSTRINGS" {
			return regexp.MustCompile(`(?i)=\s*'on'`).MatchString(e.Defn)
		}
	}
	return false
}

// SearchPathFromEntries returns the DDL of the SEARCHPATH descriptor entry,
// if present.
func SearchPathFromEntries(entries []*Entry) string {
	for _, e := range entries {
		if e.Desc == "SEARCHPATH" {
			return e.Defn
		}
	}
	return ""
}
