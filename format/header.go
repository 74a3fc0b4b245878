// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import (
	"io"
	"time"

	"go.chromium.org/luci/common/errors"
)

// FormatCustom is the only archive format this library reads or writes (the
// pg_dump "directory" and "tar" formats are out of scope).
const FormatCustom byte = 1

// CompressionNone and CompressionGzip are the compression_algorithm values
// carried in the header for format >= 1.15.
const (
	CompressionNone byte = 0
	CompressionGzip byte = 1
)

// Header is the fixed preamble of a custom-format archive: everything that
// precedes the table of contents.
type Header struct {
	Version ArchiveVersion

	IntSize int
	OffSize int
	Format  byte

	CompressionAlgorithm byte
	CompressionLevel     int

	Timestamp time.Time

	DBName            string
	ServerVersion     string
	DumpVersionString string

	// Encoding and StdStrings are populated here directly for archives
	// whose version is >= 1.13; for older archives they are left zero and
	// must be resolved from the ENCODING/STDSTRINGS TOC entries once the
	// TOC has been read (see toc.EncodingFromEntries).
	Encoding   string
	StdStrings bool
}

// Compressed reports whether the header declares any compression at all.
func (h *Header) Compressed() bool {
	return h.CompressionAlgorithm != CompressionNone && h.CompressionLevel > 0
}

// IntCodec returns an IntCodec configured for this header's negotiated
// field widths.
func (h *Header) IntCodec() *IntCodec {
	return &IntCodec{IntSize: h.IntSize, OffSize: h.OffSize}
}

// ReadHeader reads and validates the archive header, including the magic.
func ReadHeader(r io.Reader) (*Header, error) {
	if err := ReadMagic(r); err != nil {
		return nil, err
	}

	var vmaj, vmin, vrev byte
	var err error
	if vmaj, err = ReadByte(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading major version").Err()
	}
	if vmin, err = ReadByte(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading minor version").Err()
	}
	if vrev, err = ReadByte(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading revision version").Err()
	}

	h := &Header{Version: ArchiveVersion{vmaj, vmin, vrev}}
	if !h.Version.Supported() {
		return nil, UnsupportedVersionTag.Apply(errors.Reason("unsupported archive version %(v)s").D("v", h.Version.String()).Err())
	}

	intSize, err := ReadByte(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading intsize").Err()
	}
	offSize, err := ReadByte(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading offsize").Err()
	}
	h.IntSize, h.OffSize = int(intSize), int(offSize)

	format, err := ReadByte(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading format").Err()
	}
	if format != FormatCustom {
		return nil, FormatErrorTag.Apply(errors.Reason("unsupported archive format %(f)d (only custom is supported)").D("f", format).Err())
	}
	h.Format = format

	codec := h.IntCodec()

	if h.Version.AtLeast(V1_15) {
		alg, err := ReadByte(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading compression algorithm").Err()
		}
		level, err := codec.ReadInt(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading compression level").Err()
		}
		h.CompressionAlgorithm, h.CompressionLevel = alg, int(level)
	} else {
		level, err := codec.ReadInt(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading compression level").Err()
		}
		h.CompressionLevel = int(level)
		if level > 0 {
			h.CompressionAlgorithm = CompressionGzip
		}
	}

	ts, err := readTimestamp(codec, r, h.Version)
	if err != nil {
		return nil, err
	}
	h.Timestamp = ts

	if h.DBName, _, err = codec.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading dbname").Err()
	}
	if h.ServerVersion, _, err = codec.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading server_version").Err()
	}
	if h.DumpVersionString, _, err = codec.ReadString(r); err != nil {
		return nil, errors.Annotate(err).Reason("reading dump_version_string").Err()
	}

	if h.Version.AtLeast(V1_13) {
		if h.Encoding, _, err = codec.ReadString(r); err != nil {
			return nil, errors.Annotate(err).Reason("reading encoding").Err()
		}
		stdStrings, err := ReadByte(r)
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading std_strings").Err()
		}
		h.StdStrings = stdStrings != 0
	}

	return h, nil
}

// WriteHeader writes the archive header, including the magic.
func WriteHeader(w io.Writer, h *Header) error {
	if err := WriteMagic(w); err != nil {
		return err
	}
	for _, b := range []byte{h.Version[0], h.Version[1], h.Version[2], byte(h.IntSize), byte(h.OffSize), FormatCustom} {
		if err := WriteByte(w, b); err != nil {
			return errors.Annotate(err).Reason("writing header byte").Err()
		}
	}

	codec := h.IntCodec()

	if h.Version.AtLeast(V1_15) {
		if err := WriteByte(w, h.CompressionAlgorithm); err != nil {
			return errors.Annotate(err).Reason("writing compression algorithm").Err()
		}
		if err := codec.WriteInt(w, int64(h.CompressionLevel)); err != nil {
			return errors.Annotate(err).Reason("writing compression level").Err()
		}
	} else {
		if err := codec.WriteInt(w, int64(h.CompressionLevel)); err != nil {
			return errors.Annotate(err).Reason("writing compression level").Err()
		}
	}

	if err := writeTimestamp(codec, w, h.Timestamp, h.Version); err != nil {
		return err
	}

	if err := codec.WriteString(w, h.DBName); err != nil {
		return errors.Annotate(err).Reason("writing dbname").Err()
	}
	if err := codec.WriteString(w, h.ServerVersion); err != nil {
		return errors.Annotate(err).Reason("writing server_version").Err()
	}
	if err := codec.WriteString(w, h.DumpVersionString); err != nil {
		return errors.Annotate(err).Reason("writing dump_version_string").Err()
	}

	if h.Version.AtLeast(V1_13) {
		if err := codec.WriteString(w, h.Encoding); err != nil {
			return errors.Annotate(err).Reason("writing encoding").Err()
		}
		stdStrings := byte(0)
		if h.StdStrings {
			stdStrings = 1
		}
		if err := WriteByte(w, stdStrings); err != nil {
			return errors.Annotate(err).Reason("writing std_strings").Err()
		}
	}

	return nil
}

func readTimestamp(codec *IntCodec, r io.Reader, version ArchiveVersion) (time.Time, error) {
	sec, err := codec.ReadInt(r)
	if err != nil {
		return time.Time{}, errors.Annotate(err).Reason("reading timestamp second").Err()
	}
	min, err := codec.ReadInt(r)
	if err != nil {
		return time.Time{}, errors.Annotate(err).Reason("reading timestamp minute").Err()
	}
	hour, err := codec.ReadInt(r)
	if err != nil {
		return time.Time{}, errors.Annotate(err).Reason("reading timestamp hour").Err()
	}
	mday, err := codec.ReadInt(r)
	if err != nil {
		return time.Time{}, errors.Annotate(err).Reason("reading timestamp day").Err()
	}
	mon, err := codec.ReadInt(r)
	if err != nil {
		return time.Time{}, errors.Annotate(err).Reason("reading timestamp month").Err()
	}
	year, err := codec.ReadInt(r)
	if err != nil {
		return time.Time{}, errors.Annotate(err).Reason("reading timestamp year").Err()
	}
	if _, err := codec.ReadInt(r); err != nil { // isdst, unused
		return time.Time{}, errors.Annotate(err).Reason("reading timestamp isdst").Err()
	}

	if version.Before(V1_15) {
		year += 1900
	}
	return time.Date(int(year), time.Month(mon+1), int(mday), int(hour), int(min), int(sec), 0, time.UTC), nil
}

func writeTimestamp(codec *IntCodec, w io.Writer, t time.Time, version ArchiveVersion) error {
	t = t.UTC()
	year := int64(t.Year())
	if version.Before(V1_15) {
		year -= 1900
	}
	values := []int64{
		int64(t.Second()), int64(t.Minute()), int64(t.Hour()),
		int64(t.Day()), int64(t.Month()) - 1, year, 0,
	}
	for _, v := range values {
		if err := codec.WriteInt(w, v); err != nil {
			return errors.Annotate(err).Reason("writing timestamp field").Err()
		}
	}
	return nil
}
