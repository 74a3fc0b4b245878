// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.chromium.org/luci/common/errors"
)

// chunkSize bounds the length of a single (length, bytes) record emitted by
// the archive-level block framing. It mirrors the 4KB staging buffer the
// Python original used for its zlib in/out buffers.
const chunkSize = 4096

// BlockUncompressed and BlockCompressed are the framing-selector byte values
// that precede a data block in the archive.
const (
	BlockUncompressed byte = 0x01
	BlockCompressed   byte = 0x02
)

// Store is the out-of-core, gzip-compressed staging area for one Entry's
// data: the rows of a TABLE DATA entry, or the raw bytes of a BLOB entry.
// It is append-only while building an archive, and supports any number of
// independent, forward-only reads afterward.
type Store struct {
	path string
}

// NewStore creates the backing temp file for dumpID inside dir. dir is not
// created by Store; callers own the temp directory's lifecycle.
func NewStore(dir string, dumpID int32) (*Store, error) {
	path := filepath.Join(dir, strconv.Itoa(int(dumpID))+".gz")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Annotate(err).Reason("creating data store %(path)q").D("path", path).Err()
	}
	if err := f.Close(); err != nil {
		return nil, errors.Annotate(err).Reason("closing new data store %(path)q").D("path", path).Err()
	}
	return &Store{path: path}, nil
}

// Remove deletes the backing temp file. It is safe to call on an already
// removed Store.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Annotate(err).Reason("removing data store %(path)q").D("path", s.path).Err()
	}
	return nil
}

// RawWriter opens the store for append-only writing, gzip-compressed on
// disk regardless of the enclosing archive's negotiated compression. Each
// writer adds its own gzip member after any data already in the store, and
// RawReader reads all members back as one stream.
func (s *Store) RawWriter() (io.WriteCloser, error) {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Annotate(err).Reason("opening data store %(path)q for write").D("path", s.path).Err()
	}
	gz, err := gzip.NewWriterLevel(f, gzip.BestSpeed)
	if err != nil {
		f.Close()
		return nil, errors.Annotate(err).Reason("opening gzip writer for %(path)q").D("path", s.path).Err()
	}
	return &writeCloser{gz, f}, nil
}

// RawReader opens a fresh, forward-only read of the store's decompressed
// contents.
func (s *Store) RawReader() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Annotate(err).Reason("opening data store %(path)q for read").D("path", s.path).Err()
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Annotate(err).Reason("opening gzip reader for %(path)q").D("path", s.path).Err()
	}
	return &readCloser{gz, f}, nil
}

type writeCloser struct {
	w io.WriteCloser
	f *os.File
}

func (c *writeCloser) Write(p []byte) (int, error) { return c.w.Write(p) }

func (c *writeCloser) Close() error {
	if err := c.w.Close(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

type readCloser struct {
	r io.ReadCloser
	f *os.File
}

func (c *readCloser) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *readCloser) Close() error {
	if err := c.r.Close(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

// RowWriter appends rows in PostgreSQL COPY text representation to a Store.
type RowWriter struct {
	w io.WriteCloser
}

// NewRowWriter wraps w (typically a Store's RawWriter) as a RowWriter.
func NewRowWriter(w io.WriteCloser) *RowWriter {
	return &RowWriter{w: w}
}

// Append writes one row. A nil value is encoded as the COPY NULL token
// (\N); anything else is written with its string form, tab-joined and
// newline-terminated.
func (rw *RowWriter) Append(values ...any) error {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte('\t')
		}
		if v == nil {
			b.WriteString(`\N`)
			continue
		}
		if s, ok := v.(string); ok {
			b.WriteString(s)
			continue
		}
		b.WriteString(toString(v))
	}
	b.WriteByte('\n')
	_, err := rw.w.Write([]byte(b.String()))
	return errors.Annotate(err).Reason("appending row").Err()
}

// AppendRaw writes b verbatim for a BLOB entry, with no length prefix.
// Unlike Append, it carries no row framing — callers are expected to call it
// once per blob with the blob's full contents.
func (rw *RowWriter) AppendRaw(b []byte) error {
	_, err := rw.w.Write(b)
	return errors.Annotate(err).Reason("appending blob bytes").Err()
}

// Close flushes and closes the underlying store writer.
func (rw *RowWriter) Close() error {
	return rw.w.Close()
}

// RowIter is a lazy, forward-only, non-restartable sequence of COPY rows.
type RowIter struct {
	sc  *bufio.Scanner
	rc  io.ReadCloser
	err error
}

// NewRowIter wraps r (typically a Store's RawReader) as a RowIter.
func NewRowIter(r io.ReadCloser) *RowIter {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &RowIter{sc: sc, rc: r}
}

// Next advances to the next row, returning its tab-split fields. It returns
// ok=false at end-of-data or on error; call Err to distinguish the two. The
// literal `\.` end-of-data marker is consumed, not yielded.
func (it *RowIter) Next() (fields []string, ok bool) {
	if !it.sc.Scan() {
		it.err = it.sc.Err()
		return nil, false
	}
	line := it.sc.Text()
	if line == `\.` {
		return nil, false
	}
	return strings.Split(line, "\t"), true
}

// Err returns any error encountered during iteration.
func (it *RowIter) Err() error {
	return it.err
}

// Close releases the underlying reader.
func (it *RowIter) Close() error {
	return it.rc.Close()
}

func toString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
