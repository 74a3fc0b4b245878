// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pgdumplib

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.chromium.org/luci/common/errors"

	"github.com/gmr/pgdumplib/converters"
	"github.com/gmr/pgdumplib/format"
	"github.com/gmr/pgdumplib/format/toc"
)

// RowIter is a lazy, forward-only sequence of a TABLE DATA entry's rows,
// each already run through the archive's converters.Converter. A fresh
// RowIter from TableData is required to iterate the same entry again.
type RowIter struct {
	inner *format.RowIter
	conv  converters.Converter
}

// Next advances to the next row, returning its converted column values. ok
// is false at end-of-data or on error; call the returned err to
// distinguish the two.
func (it *RowIter) Next() (values []any, ok bool, err error) {
	fields, ok := it.inner.Next()
	if !ok {
		if ierr := it.inner.Err(); ierr != nil {
			return nil, false, tagKind(errors.Annotate(ierr).Reason("reading row").Err(), KindIOError)
		}
		return nil, false, nil
	}
	values, cerr := it.conv.Convert(fields)
	if cerr != nil {
		return nil, false, tagKind(errors.Annotate(cerr).Reason("converting row").Err(), KindConverterError)
	}
	return values, true, nil
}

// Close releases the underlying data block reader.
func (it *RowIter) Close() error {
	return it.inner.Close()
}

// TableData returns a RowIter over the TABLE DATA entry for namespace.tag.
func (a *Archive) TableData(ctx context.Context, namespace, tag string) (*RowIter, error) {
	e, err := a.toc.LookupEntry("TABLE DATA", namespace, tag)
	if err != nil {
		return nil, classify(err)
	}
	rc, err := a.entryDataReader(e)
	if err != nil {
		return nil, err
	}
	return &RowIter{inner: format.NewRowIter(rc), conv: a.opts.converter}, nil
}

// TableDataWriter is a scoped, append-only writer for one TABLE DATA
// entry's rows, opened via Archive.TableDataWriter.
type TableDataWriter struct {
	entry *toc.Entry
	rw    *format.RowWriter
}

// Append writes one row. A nil value is encoded as the COPY NULL token.
func (w *TableDataWriter) Append(values ...any) error {
	if err := w.rw.Append(values...); err != nil {
		return tagKind(err, KindIOError)
	}
	return nil
}

// Close flushes and closes the writer's backing Store.
func (w *TableDataWriter) Close() error {
	if err := w.rw.Close(); err != nil {
		return tagKind(err, KindIOError)
	}
	return nil
}

// TableDataWriter opens entry's TABLE DATA for appending rows. entry must
// be a TABLE entry previously returned by AddEntry; the associated TABLE
// DATA entry is created automatically on first use, depending on entry and
// carrying a COPY statement synthesized from columns — the same implicit
// pairing pg_dump itself produces between a TABLE and its TABLE DATA.
func (a *Archive) TableDataWriter(entry *toc.Entry, columns []string) (*TableDataWriter, error) {
	if entry.Desc != "TABLE" {
		return nil, tagKind(errors.Reason("entry %(tag)q is a %(desc)s entry, not TABLE").
			D("tag", entry.Tag).D("desc", entry.Desc).Err(), KindInvalidID)
	}

	data, err := a.toc.LookupEntry("TABLE DATA", entry.Namespace, entry.Tag)
	if err != nil {
		data, err = a.toc.AddEntry(toc.EntryOptions{
			Desc:         "TABLE DATA",
			Tag:          entry.Tag,
			Namespace:    entry.Namespace,
			TableOID:     entry.OID,
			CopyStmt:     formatCopyStmt(entry.Namespace, entry.Tag, columns),
			Dependencies: []int32{entry.DumpID},
		})
		if err != nil {
			return nil, classify(err)
		}
	}

	s, err := a.entryStore(data)
	if err != nil {
		return nil, err
	}
	rawW, err := s.RawWriter()
	if err != nil {
		return nil, tagKind(err, KindIOError)
	}

	data.HadDumper = true
	data.DataState = toc.DataStateHasData

	return &TableDataWriter{entry: data, rw: format.NewRowWriter(rawW)}, nil
}

func formatCopyStmt(namespace, tag string, columns []string) string {
	var b strings.Builder
	b.WriteString("COPY ")
	if namespace != "" {
		b.WriteString(fmt.Sprintf("%q.", namespace))
	}
	b.WriteString(fmt.Sprintf("%q ", tag))
	b.WriteByte('(')
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%q", c))
	}
	b.WriteString(") FROM stdin;\n")
	return b.String()
}

// Blob is one large object yielded by Archive.Blobs: its OID and a
// forward-only reader over its raw bytes.
type Blob struct {
	OID  string
	Data io.ReadCloser
}

// BlobIter is a lazy, forward-only sequence of an archive's BLOB entries.
type BlobIter struct {
	a       *Archive
	entries []*toc.Entry
	idx     int
}

// Blobs returns an iterator over every BLOB entry with data in the archive,
// in TOC order.
func (a *Archive) Blobs(ctx context.Context) (*BlobIter, error) {
	var entries []*toc.Entry
	for _, e := range a.toc.Entries {
		if e.Desc == "BLOB" && e.HadDumper {
			entries = append(entries, e)
		}
	}
	return &BlobIter{a: a, entries: entries}, nil
}

// Next returns the next blob, or ok=false once the sequence is exhausted.
// The caller must Close the returned Blob.Data before calling Next again.
func (it *BlobIter) Next() (blob Blob, ok bool, err error) {
	if it.idx >= len(it.entries) {
		return Blob{}, false, nil
	}
	e := it.entries[it.idx]
	it.idx++

	rc, err := it.a.entryDataReader(e)
	if err != nil {
		return Blob{}, false, err
	}
	oid := e.OID
	if oid == "" {
		oid = e.Tag
	}
	return Blob{OID: oid, Data: rc}, true, nil
}

// AddBlob adds a BLOB entry for oid (creating it if this is the first call
// for that oid) and appends data to its contents. oid becomes the entry's
// OID, Tag and (via LookupEntry) lookup key.
func (a *Archive) AddBlob(oid string, data io.Reader) error {
	e, err := a.toc.LookupEntry("BLOB", "", oid)
	if err != nil {
		e, err = a.toc.AddEntry(toc.EntryOptions{
			Desc: "BLOB",
			Tag:  oid,
			OID:  oid,
		})
		if err != nil {
			return classify(err)
		}
	}

	s, err := a.entryStore(e)
	if err != nil {
		return err
	}
	w, err := s.RawWriter()
	if err != nil {
		return tagKind(err, KindIOError)
	}
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return tagKind(errors.Annotate(err).Reason("writing blob %(oid)q").D("oid", oid).Err(), KindIOError)
	}
	if err := w.Close(); err != nil {
		return tagKind(err, KindIOError)
	}

	e.HadDumper = true
	e.DataState = toc.DataStateHasData
	return nil
}
