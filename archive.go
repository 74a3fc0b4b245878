// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pgdumplib

import (
	"context"
	"io"
	"os"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/gmr/pgdumplib/converters"
	"github.com/gmr/pgdumplib/format"
	"github.com/gmr/pgdumplib/format/toc"
)

// appearsAsServerVersion is the server version string the Python original
// (pgdumplib) stamps into archives it creates from scratch (APPEAR_AS).
const appearsAsServerVersion = "11.3"

// dumpVersionString is written into the header's dump_version_string field
// by New, identifying this library as the producer.
const dumpVersionString = "pgdumplib 1.0"

// Archive is an in-memory, loaded-or-under-construction custom-format
// pg_dump archive. The zero value is not usable; construct one with Load
// or New.
type Archive struct {
	header *format.Header
	toc    *toc.TOC
	opts   options

	// path is the backing file for a loaded archive, used to lazily reopen
	// data blocks by their recorded offset. Empty for an archive built with
	// New until it has been saved at least once.
	path string

	// tempDir holds one gzip-compressed Store per data-bearing entry added
	// via TableDataWriter or AddBlob during construction.
	tempDir string
	stores  map[int32]*format.Store

	closed bool
}

// TOC returns the archive's table of contents.
func (a *Archive) TOC() *toc.TOC {
	return a.toc
}

// DBName returns the database name recorded in the archive header.
func (a *Archive) DBName() string {
	return a.header.DBName
}

// FormatVersion returns the negotiated archive format version.
func (a *Archive) FormatVersion() format.ArchiveVersion {
	return a.header.Version
}

// Load opens an existing custom-format archive at path, reading its header
// and full table of contents. Data blocks are not read until TableData or
// Blobs is called against a specific entry.
func Load(ctx context.Context, path string, opts ...Option) (*Archive, error) {
	o := options{converter: converters.Default{}}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, tagKind(errors.Annotate(err).Reason("opening archive %(path)q").D("path", path).Err(), KindIOError)
	}
	defer f.Close()

	h, err := format.ReadHeader(f)
	if err != nil {
		return nil, classify(err)
	}

	codec := toc.NewCodec(h.Version, h.IntCodec())
	t, err := codec.ReadTOC(ctx, f)
	if err != nil {
		return nil, classify(err)
	}

	if h.Version.Before(format.V1_13) {
		h.Encoding = toc.EncodingFromEntries(t.Entries)
		h.StdStrings = toc.StdStringsFromEntries(t.Entries)
	}

	logging.Debugf(ctx, "pgdumplib: loaded %s: %d entries, format %s",
		path, len(t.Entries), h.Version.String())

	dir, err := os.MkdirTemp("", "pgdumplib-")
	if err != nil {
		return nil, tagKind(errors.Annotate(err).Reason("creating temp dir").Err(), KindIOError)
	}

	return &Archive{
		header:  h,
		toc:     t,
		opts:    o,
		path:    path,
		tempDir: dir,
		stores:  map[int32]*format.Store{},
	}, nil
}

// New starts a fresh, empty archive for dbname, ready to accept entries via
// AddEntry and data via TableDataWriter/AddBlob.
func New(dbname string, opts ...Option) (*Archive, error) {
	o := options{
		converter:     converters.Default{},
		serverVersion: appearsAsServerVersion,
		encoding:      "UTF8",
	}
	for _, opt := range opts {
		opt(&o)
	}

	version := o.formatVersion
	if !o.hasFormatVersion {
		version = format.ServerVersionToArchiveVersion(o.serverVersion)
	}

	h := &format.Header{
		Version:           version,
		IntSize:           4,
		OffSize:           8,
		Format:            format.FormatCustom,
		Timestamp:         time.Now(),
		DBName:            dbname,
		ServerVersion:     o.serverVersion,
		DumpVersionString: dumpVersionString,
		Encoding:          o.encoding,
		StdStrings:        true,
	}
	h.CompressionLevel = o.compressionLevel
	if o.compressionLevel > 0 {
		h.CompressionAlgorithm = format.CompressionGzip
	} else {
		h.CompressionAlgorithm = format.CompressionNone
	}

	dir, err := os.MkdirTemp("", "pgdumplib-")
	if err != nil {
		return nil, tagKind(errors.Annotate(err).Reason("creating temp dir").Err(), KindIOError)
	}

	return &Archive{
		header:  h,
		toc:     toc.New(),
		opts:    o,
		tempDir: dir,
		stores:  map[int32]*format.Store{},
	}, nil
}

// Close releases the archive's temp directory and any resources held for
// its construction. It is idempotent and safe to defer immediately after
// Load or New.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.tempDir == "" {
		return nil
	}
	if err := os.RemoveAll(a.tempDir); err != nil {
		return tagKind(errors.Annotate(err).Reason("removing temp dir %(dir)q").D("dir", a.tempDir).Err(), KindIOError)
	}
	return nil
}

// AddEntry appends a new TOC entry, per the invariants in format/toc.
func (a *Archive) AddEntry(opts toc.EntryOptions) (*toc.Entry, error) {
	e, err := a.toc.AddEntry(opts)
	if err != nil {
		return nil, classify(err)
	}
	return e, nil
}

// LookupEntry returns the entry matching desc, namespace and tag, or
// KindEntityNotFound.
func (a *Archive) LookupEntry(desc, namespace, tag string) (*toc.Entry, error) {
	e, err := a.toc.LookupEntry(desc, namespace, tag)
	if err != nil {
		return nil, classify(err)
	}
	return e, nil
}

// entryStore returns (creating if necessary) the construction-time Store
// backing entry's data. Load and New both create the temp directory it
// lives in, so this works for either kind of archive.
func (a *Archive) entryStore(e *toc.Entry) (*format.Store, error) {
	if a.tempDir == "" {
		return nil, tagKind(errors.Reason("archive has no temp directory").Err(), KindIOError)
	}
	if s, ok := a.stores[e.DumpID]; ok {
		return s, nil
	}
	s, err := format.NewStore(a.tempDir, e.DumpID)
	if err != nil {
		return nil, tagKind(err, KindIOError)
	}
	a.stores[e.DumpID] = s
	return s, nil
}

// entryDataReader returns a fresh, forward-only reader over entry's
// decoded data bytes, whether the entry's data lives in a construction-time
// Store or in the archive's backing file (for a loaded archive, or one
// re-saved after being loaded).
func (a *Archive) entryDataReader(e *toc.Entry) (io.ReadCloser, error) {
	if s, ok := a.stores[e.DumpID]; ok {
		rc, err := s.RawReader()
		if err != nil {
			return nil, tagKind(err, KindIOError)
		}
		return rc, nil
	}
	if a.path == "" || e.DataState != toc.DataStateHasOffset {
		return nil, tagKind(errors.Reason("entry %(tag)q has no data block").D("tag", e.Tag).Err(), KindEntityNotFound)
	}

	f, err := os.Open(a.path)
	if err != nil {
		return nil, tagKind(errors.Annotate(err).Reason("opening archive %(path)q").D("path", a.path).Err(), KindIOError)
	}
	if _, err := f.Seek(int64(e.Offset), io.SeekStart); err != nil {
		f.Close()
		return nil, tagKind(errors.Annotate(err).Reason("seeking to data block for %(tag)q").D("tag", e.Tag).Err(), KindIOError)
	}
	rc, err := format.ReadFramedBlock(f, a.header.IntCodec())
	if err != nil {
		f.Close()
		return nil, classify(err)
	}
	return &fileBoundReader{rc: rc, f: f}, nil
}

// fileBoundReader closes both the decoded block reader and the archive file
// handle it was opened against.
type fileBoundReader struct {
	rc io.ReadCloser
	f  *os.File
}

func (r *fileBoundReader) Read(p []byte) (int, error) { return r.rc.Read(p) }

func (r *fileBoundReader) Close() error {
	err := r.rc.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// classify maps an error originating in format or format/toc to this
// package's Kind taxonomy, applying the corresponding tag. Errors already
// carrying no recognized tag are classified as KindIOError, since by the
// time they reach this package they are already wrapped file or stream
// errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case format.NotAnArchiveTag.In(err):
		return tagKind(err, KindNotAnArchive)
	case format.UnsupportedVersionTag.In(err):
		return tagKind(err, KindUnsupportedVersion)
	case format.UnknownDescriptorTag.In(err):
		return tagKind(err, KindUnknownDescriptor)
	case format.FormatErrorTag.In(err):
		return tagKind(err, KindFormatError)
	case toc.InvalidIDTag.In(err):
		return tagKind(err, KindInvalidID)
	case toc.MissingDependencyTag.In(err):
		return tagKind(err, KindMissingDependency)
	case toc.CyclicDependenciesTag.In(err):
		return tagKind(err, KindCyclicDependencies)
	case toc.EntityNotFoundTag.In(err):
		return tagKind(err, KindEntityNotFound)
	default:
		return tagKind(err, KindIOError)
	}
}
