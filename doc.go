// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package pgdumplib reads and writes PostgreSQL backup archives produced by
// pg_dump's custom container format (the -Fc flag).
//
// Such an archive is a single file: a fixed header, a table of contents
// (TOC) enumerating every database object and its DDL, and optional binary
// data blocks holding row data for TABLE DATA entries and raw bytes for
// BLOB entries. Load opens an existing archive; New starts a fresh one.
// Both return an *Archive, whose TOC, AddEntry, LookupEntry, TableData,
// TableDataWriter, Blobs and AddBlob methods make up the programmatic
// surface, alongside Save, Close and the DBName/FormatVersion accessors.
// Archive.Save writes entries in dependency-resolved order. With data, it
// writes the TOC with placeholder offsets, appends the data blocks while
// noting where each starts, then patches each entry's offset in place;
// without data, it writes the TOC in a single pass.
//
// The byte-level codec, constant tables and TOC wire encoding live in the
// format and format/toc packages; converters turns a row's raw COPY text
// fields into Go values on the way out of a TableData iterator.
//
// This package does not produce or consume the "directory" or "tar"
// pg_dump formats, does not restore into a live database, and does not
// translate between archive format versions.
package pgdumplib
