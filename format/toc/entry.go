// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import (
	"go.chromium.org/luci/common/errors"

	"github.com/gmr/pgdumplib/format"
)

// DataState records whether and how an Entry's data block can be located.
type DataState byte

// The three data states an Entry can be in, using the wire values pg_dump
// itself assigns them (not a 0-based enum) so the codec can write DataState
// values directly.
const (
	// DataStateHasData means the entry has a data block, but its byte
	// offset in the archive is not (yet) known. The Archive reader does not
	// scan for such blocks; it only opens blocks whose offset is recorded.
	DataStateHasData DataState = 1
	// DataStateHasOffset means the entry has a data block and its offset
	// is recorded directly in Entry.Offset.
	DataStateHasOffset DataState = 2
	// DataStateNone means the entry carries no data block.
	DataStateNone DataState = 3
)

// Entry is a single TOC record: a database object, and optionally a pointer
// to its data block.
type Entry struct {
	DumpID int32

	HadDumper bool

	TableOID string
	OID      string
	Tag      string
	Desc     string

	Section format.Section

	Defn     string
	DropStmt string
	CopyStmt string

	Namespace  string
	Tablespace string

	// TableAccessMethod is only meaningful for archive versions >= 1.14.
	TableAccessMethod string
	// Relkind is only meaningful for archive versions >= 1.16.
	Relkind string

	Owner string

	// WithOids is a legacy pre-8.0 field, carried through for wire fidelity.
	WithOids bool

	// Dependencies holds the dump ids of entries that must be restored
	// before this one.
	Dependencies []int32

	DataState DataState
	Offset    uint64
}

// EntryOptions carries the caller-supplied fields for AddEntry; DumpID,
// Section, DataState and Offset are computed or defaulted by the factory.
type EntryOptions struct {
	DumpID int32 // 0 means auto-assign

	TableOID string
	OID      string
	Tag      string
	Desc     string

	Defn     string
	DropStmt string
	CopyStmt string

	Namespace  string
	Tablespace string

	TableAccessMethod string
	Relkind           string

	Owner string

	Dependencies []int32
}

// AddEntry validates opts against t's invariants and appends a new Entry to
// the TOC.
//
//   - DumpID 0 defaults to one greater than the highest existing id.
//   - A supplied DumpID that is negative or already in use fails with
//     *invalid-id*.
//   - Desc must resolve via format.SectionOf, or this fails with
//     *unknown-descriptor*.
//   - Every id in Dependencies must already exist in the TOC, or this fails
//     with *missing-dependency*.
func (t *TOC) AddEntry(opts EntryOptions) (*Entry, error) {
	section, err := format.SectionOf(opts.Desc)
	if err != nil {
		return nil, err
	}

	dumpID := opts.DumpID
	if dumpID == 0 {
		dumpID = t.nextDumpID()
	} else if dumpID < 0 {
		return nil, InvalidIDTag.Apply(errors.Reason("invalid dump id %(id)d: must be positive").D("id", dumpID).Err())
	} else if _, exists := t.byID[dumpID]; exists {
		return nil, InvalidIDTag.Apply(errors.Reason("invalid dump id %(id)d: already in use").D("id", dumpID).Err())
	}

	for _, dep := range opts.Dependencies {
		if _, ok := t.byID[dep]; !ok {
			return nil, MissingDependencyTag.Apply(errors.Reason("missing dependency %(dep)d").D("dep", dep).Err())
		}
	}

	e := &Entry{
		DumpID:            dumpID,
		TableOID:          opts.TableOID,
		OID:               opts.OID,
		Tag:               opts.Tag,
		Desc:              opts.Desc,
		Section:           section,
		Defn:              opts.Defn,
		DropStmt:          opts.DropStmt,
		CopyStmt:          opts.CopyStmt,
		Namespace:         opts.Namespace,
		Tablespace:        opts.Tablespace,
		TableAccessMethod: opts.TableAccessMethod,
		Relkind:           opts.Relkind,
		Owner:             opts.Owner,
		Dependencies:      append([]int32(nil), opts.Dependencies...),
		DataState:         DataStateNone,
	}
	t.append(e)
	return e, nil
}
