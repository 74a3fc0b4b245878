// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import (
	"context"
	"encoding/binary"
	"io"
	"strconv"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/gmr/pgdumplib/format"
)

// fieldSet captures which version-gated fields a given archive version
// carries, computed once per Codec rather than branching on the version
// repeatedly inside the read/write loop.
type fieldSet struct {
	hasTableAM bool
	hasRelkind bool
}

func fieldSetFor(version format.ArchiveVersion) fieldSet {
	return fieldSet{
		hasTableAM: version.AtLeast(format.V1_14),
		hasRelkind: version.AtLeast(format.V1_16),
	}
}

// Codec reads and writes the TOC for one negotiated archive version.
type Codec struct {
	Version format.ArchiveVersion
	Ints    *format.IntCodec

	fields fieldSet
}

// NewCodec returns a Codec for the given version and integer/offset widths.
func NewCodec(version format.ArchiveVersion, ints *format.IntCodec) *Codec {
	return &Codec{Version: version, Ints: ints, fields: fieldSetFor(version)}
}

// ReadTOC reads the entry count and every entry, returning a populated TOC.
// Entries are appended directly (bypassing the AddEntry validation path,
// which assumes a caller building a new archive) but still rejects a
// duplicate dump id as a *format-error*, since that can never happen in a
// well-formed archive.
func (c *Codec) ReadTOC(ctx context.Context, r io.Reader) (*TOC, error) {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, errors.Annotate(err).Reason("reading entry count").Err()
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	t := New()
	for i := uint32(0); i < count; i++ {
		e, err := c.readEntry(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading entry %(i)d of %(n)d").D("i", i).D("n", count).Err()
		}
		if _, exists := t.byID[e.DumpID]; exists {
			return nil, format.FormatErrorTag.Apply(errors.Reason("duplicate dump id %(id)d").D("id", e.DumpID).Err())
		}
		t.append(e)
	}
	logging.Debugf(ctx, "read %d TOC entries", count)
	return t, nil
}

// WriteTOC writes the entry count and every entry, in the order given.
func (c *Codec) WriteTOC(w io.Writer, entries []*Entry) error {
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(entries)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return errors.Annotate(err).Reason("writing entry count").Err()
	}
	for _, e := range entries {
		if err := c.writeEntry(w, e); err != nil {
			return errors.Annotate(err).Reason("writing entry %(id)d").D("id", e.DumpID).Err()
		}
	}
	return nil
}

func (c *Codec) readEntry(r io.Reader) (*Entry, error) {
	e := &Entry{}

	dumpID, err := c.Ints.ReadInt(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading dump_id").Err()
	}
	e.DumpID = int32(dumpID)

	hadDumper, err := c.Ints.ReadInt(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading had_dumper").Err()
	}
	e.HadDumper = hadDumper != 0

	if e.TableOID, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading table_oid").Err()
	}
	if e.OID, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading oid").Err()
	}
	if e.Tag, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading tag").Err()
	}
	if e.Desc, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading desc").Err()
	}

	wireSection, err := c.Ints.ReadInt(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading section").Err()
	}
	_ = wireSection // canonical section is always derived from desc, per spec

	section, err := format.SectionOf(e.Desc)
	if err != nil {
		return nil, err
	}
	e.Section = section

	if e.Defn, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading defn").Err()
	}
	if e.DropStmt, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading drop_stmt").Err()
	}
	if e.CopyStmt, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading copy_stmt").Err()
	}
	if e.Namespace, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading namespace").Err()
	}
	if e.Tablespace, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading tablespace").Err()
	}

	if c.fields.hasTableAM {
		if e.TableAccessMethod, _, err = c.Ints.ReadString(r); err != nil {
			return nil, errors.Annotate(err).Reason("reading tableam").Err()
		}
	}
	if c.fields.hasRelkind {
		if e.Relkind, _, err = c.Ints.ReadString(r); err != nil {
			return nil, errors.Annotate(err).Reason("reading relkind").Err()
		}
	}

	if e.Owner, _, err = c.Ints.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading owner").Err()
	}

	withOidsStr, _, err := c.Ints.ReadString(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading with_oids").Err()
	}
	e.WithOids = withOidsStr == "true"

	for {
		s, null, err := c.Ints.ReadString(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading dependency").Err()
		}
		if null {
			break
		}
		id, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Annotate(err).Reason("parsing dependency %(s)q").D("s", s).Err()
		}
		e.Dependencies = append(e.Dependencies, int32(id))
	}

	stateByte, err := format.ReadByte(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading data_state").Err()
	}
	e.DataState = DataState(stateByte)

	offset, err := c.Ints.ReadOffset(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading offset").Err()
	}
	if e.DataState == DataStateHasOffset {
		e.Offset = offset
	}

	return e, nil
}

// WriteEntryTrailer writes the data_state byte and the offset-sized offset
// field that follows it — the part of an entry record eligible for in-place
// patching after the data blocks have been written.
func (c *Codec) WriteEntryTrailer(w io.Writer, state DataState, offset uint64) error {
	if err := format.WriteByte(w, byte(state)); err != nil {
		return errors.Annotate(err).Reason("writing data_state").Err()
	}
	if state != DataStateHasOffset {
		offset = 0
	}
	if err := c.Ints.WriteOffset(w, offset); err != nil {
		return errors.Annotate(err).Reason("writing offset").Err()
	}
	return nil
}

// TrailerSize is the fixed byte width of a WriteEntryTrailer call for this
// codec's offset size: one data_state byte plus Ints.OffSize offset bytes.
func (c *Codec) TrailerSize() int64 {
	return 1 + int64(c.Ints.OffSize)
}

func (c *Codec) writeEntry(w io.Writer, e *Entry) error {
	if err := c.WriteEntryHeader(w, e); err != nil {
		return err
	}
	return c.WriteEntryTrailer(w, e.DataState, e.Offset)
}

// WriteEntryHeader writes every field of e except data_state and offset. The
// two-pass Archive Writer calls this directly so it can note the stream
// position right before the trailer and come back to patch it once the
// entry's real offset is known; WriteTOC uses it as the first half of a
// normal single-pass entry write.
func (c *Codec) WriteEntryHeader(w io.Writer, e *Entry) error {
	if err := c.Ints.WriteInt(w, int64(e.DumpID)); err != nil {
		return errors.Annotate(err).Reason("writing dump_id").Err()
	}

	hadDumper := int64(0)
	if e.HadDumper {
		hadDumper = 1
	}
	if err := c.Ints.WriteInt(w, hadDumper); err != nil {
		return errors.Annotate(err).Reason("writing had_dumper").Err()
	}

	for _, s := range []string{e.TableOID, e.OID, e.Tag, e.Desc} {
		if err := c.Ints.WriteString(w, s); err != nil {
			return errors.Annotate(err).Reason("writing string field").Err()
		}
	}

	if err := c.Ints.WriteInt(w, int64(e.Section)+1); err != nil {
		return errors.Annotate(err).Reason("writing section").Err()
	}

	for _, s := range []string{e.Defn, e.DropStmt, e.CopyStmt, e.Namespace, e.Tablespace} {
		if err := c.Ints.WriteString(w, s); err != nil {
			return errors.Annotate(err).Reason("writing string field").Err()
		}
	}

	if c.fields.hasTableAM {
		if err := c.Ints.WriteString(w, e.TableAccessMethod); err != nil {
			return errors.Annotate(err).Reason("writing tableam").Err()
		}
	}
	if c.fields.hasRelkind {
		if err := c.Ints.WriteString(w, e.Relkind); err != nil {
			return errors.Annotate(err).Reason("writing relkind").Err()
		}
	}

	if err := c.Ints.WriteString(w, e.Owner); err != nil {
		return errors.Annotate(err).Reason("writing owner").Err()
	}

	withOidsStr := "false"
	if e.WithOids {
		withOidsStr = "true"
	}
	if err := c.Ints.WriteString(w, withOidsStr); err != nil {
		return errors.Annotate(err).Reason("writing with_oids").Err()
	}

	for _, dep := range e.Dependencies {
		if err := c.Ints.WriteString(w, strconv.Itoa(int(dep))); err != nil {
			return errors.Annotate(err).Reason("writing dependency").Err()
		}
	}
	if err := c.Ints.WriteNullString(w); err != nil {
		return errors.Annotate(err).Reason("writing dependency terminator").Err()
	}

	return nil
}
