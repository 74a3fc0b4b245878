// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"go.chromium.org/luci/common/errors"
)

// WriteFramedBlock copies all of src into w as the wire-format data-block
// framing described by spec §6.1: a block_type selector byte, followed by
// repeated (chunk_len, chunk bytes) records terminated by a zero-length
// record. When compress is true, the concatenated chunk payload is itself a
// valid gzip stream at the given level.
func WriteFramedBlock(w io.Writer, codec *IntCodec, src io.Reader, compress bool, level int) error {
	blockType := BlockUncompressed
	if compress {
		blockType = BlockCompressed
	}
	if err := WriteByte(w, blockType); err != nil {
		return errors.Annotate(err).Reason("writing block type").Err()
	}

	cw := &chunkWriter{w: w, codec: codec}
	var dst io.Writer = cw
	var gz *gzip.Writer
	if compress {
		var err error
		gz, err = gzip.NewWriterLevel(cw, level)
		if err != nil {
			return errors.Annotate(err).Reason("opening gzip writer").Err()
		}
		dst = gz
	}

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Annotate(err).Reason("copying block payload").Err()
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return errors.Annotate(err).Reason("closing gzip writer").Err()
		}
	}
	if err := cw.flush(); err != nil {
		return errors.Annotate(err).Reason("flushing final chunk").Err()
	}
	return cw.terminate()
}

// ReadFramedBlock opens a data block at the reader's current position,
// returning a ReadCloser over the decoded payload bytes.
func ReadFramedBlock(r io.Reader, codec *IntCodec) (io.ReadCloser, error) {
	blockType, err := ReadByte(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading block type").Err()
	}

	cr := &chunkReader{r: r, codec: codec}
	switch blockType {
	case BlockUncompressed:
		return io.NopCloser(cr), nil
	case BlockCompressed:
		gz, err := gzip.NewReader(cr)
		if err != nil {
			return nil, errors.Annotate(err).Reason("opening gzip reader").Err()
		}
		return gz, nil
	default:
		return nil, FormatErrorTag.Apply(errors.Reason("unknown block type 0x%(t)x").D("t", blockType).Err())
	}
}

// chunkWriter buffers writes into chunkSize-bounded (length, bytes) records.
type chunkWriter struct {
	w     io.Writer
	codec *IntCodec
	buf   []byte
}

func (c *chunkWriter) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		room := chunkSize - len(c.buf)
		n := room
		if n > len(p) {
			n = len(p)
		}
		c.buf = append(c.buf, p[:n]...)
		p = p[n:]
		if len(c.buf) == chunkSize {
			if err := c.flush(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

func (c *chunkWriter) flush() error {
	if len(c.buf) == 0 {
		return nil
	}
	if err := c.codec.WriteInt(c.w, int64(len(c.buf))); err != nil {
		return err
	}
	if _, err := c.w.Write(c.buf); err != nil {
		return err
	}
	c.buf = c.buf[:0]
	return nil
}

func (c *chunkWriter) terminate() error {
	return c.codec.WriteInt(c.w, 0)
}

// chunkReader presents a sequence of (length, bytes) records as a single
// io.Reader, stopping at the zero-length terminator.
type chunkReader struct {
	r     io.Reader
	codec *IntCodec
	rem   int64
	done  bool
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.done {
		return 0, io.EOF
	}
	for c.rem == 0 {
		length, err := c.codec.ReadInt(c.r)
		if err != nil {
			return 0, errors.Annotate(err).Reason("reading chunk length").Err()
		}
		if length == 0 {
			c.done = true
			return 0, io.EOF
		}
		if length < 0 {
			return 0, FormatErrorTag.Apply(errors.Reason("negative chunk length %(length)d").D("length", length).Err())
		}
		c.rem = length
	}
	if int64(len(p)) > c.rem {
		p = p[:c.rem]
	}
	n, err := c.r.Read(p)
	c.rem -= int64(n)
	return n, err
}
