// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pgdumplib

import (
	"github.com/gmr/pgdumplib/converters"
	"github.com/gmr/pgdumplib/format"
)

// options carries every factory-time setting Load and New accept. Not every
// field applies to both factories: Load ignores CompressionLevel, Encoding
// and FormatVersion, since those are negotiated from the archive itself.
type options struct {
	converter converters.Converter

	compressionLevel int
	encoding         string
	serverVersion    string

	formatVersion    format.ArchiveVersion
	hasFormatVersion bool
}

// Option configures a call to Load or New.
type Option func(*options)

// WithConverter selects the Converter used to turn COPY text fields into
// Go values for TableData iteration. The default is converters.Default{}.
func WithConverter(c converters.Converter) Option {
	return func(o *options) { o.converter = c }
}

// WithCompressionLevel sets the gzip level (1-9) New negotiates for the
// archive's TABLE DATA and BLOB blocks; 0 (the default) disables
// compression. Ignored by Load, which reads the level from the header.
func WithCompressionLevel(level int) Option {
	return func(o *options) { o.compressionLevel = level }
}

// WithEncoding overrides the "UTF8" default New stamps into a fresh
// archive's header. Ignored by Load.
func WithEncoding(encoding string) Option {
	return func(o *options) { o.encoding = encoding }
}

// WithServerVersion sets the PostgreSQL server version string New stamps
// into the header and uses, via format.ServerVersionToArchiveVersion, to
// pick a default target archive format version. Ignored by Load.
func WithServerVersion(serverVersion string) Option {
	return func(o *options) { o.serverVersion = serverVersion }
}

// WithFormatVersion pins the target archive format version New writes,
// overriding the version format.ServerVersionToArchiveVersion would have
// picked from the server version. Ignored by Load.
func WithFormatVersion(v format.ArchiveVersion) Option {
	return func(o *options) {
		o.formatVersion = v
		o.hasFormatVersion = true
	}
}
