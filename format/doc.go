// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package format implements the low-level byte codec, constant tables and
// data-block framing used by pg_dump custom-format (-Fc) archives.
//
// It knows nothing about dependency ordering or the TOC entry model; see
// the toc subpackage for that. format is the layer that turns bytes on disk
// into ints, strings and framed chunks, and back.
package format
