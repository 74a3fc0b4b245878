// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package toc implements the in-memory table-of-contents model for a
// pg_dump custom-format archive: the Entry record, its invariants, and the
// dependency-aware, section-ordered sort that the Archive Writer applies
// before a save. The version-specific wire encoding of this model lives in
// codec.go; the byte-level primitives it's built from live in the sibling
// format package.
package toc
