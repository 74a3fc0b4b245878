// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pgdumplib

import "go.chromium.org/luci/common/errors"

// Kind classifies the failure modes this library's operations can return.
type Kind int

// The error kinds an Archive operation can fail with.
const (
	KindUnknown Kind = iota
	KindNotAnArchive
	KindUnsupportedVersion
	KindFormatError
	KindInvalidID
	KindMissingDependency
	KindCyclicDependencies
	KindUnknownDescriptor
	KindEntityNotFound
	KindIOError
	KindConverterError
)

// kindTags pairs each Kind with its own BoolTag, so a caller can narrow an
// error down to exactly one Kind via errors.Is-style tag matching rather
// than string matching on the message.
var kindTags = map[Kind]errors.BoolTag{
	KindNotAnArchive:       {Key: errors.NewTagKey("not an archive")},
	KindUnsupportedVersion: {Key: errors.NewTagKey("unsupported version")},
	KindFormatError:        {Key: errors.NewTagKey("format error")},
	KindInvalidID:          {Key: errors.NewTagKey("invalid id")},
	KindMissingDependency:  {Key: errors.NewTagKey("missing dependency")},
	KindCyclicDependencies: {Key: errors.NewTagKey("cyclic dependencies")},
	KindUnknownDescriptor:  {Key: errors.NewTagKey("unknown descriptor")},
	KindEntityNotFound:     {Key: errors.NewTagKey("entity not found")},
	KindIOError:            {Key: errors.NewTagKey("io error")},
	KindConverterError:     {Key: errors.NewTagKey("converter error")},
}

// tagKind applies kind's tag to err, returning the tagged error.
func tagKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	if tag, ok := kindTags[kind]; ok {
		return tag.Apply(err)
	}
	return err
}

// KindOf reports the Kind attached to err by this package, or KindUnknown if
// none was attached (e.g. a raw I/O error from a caller-supplied reader
// that never passed through tagKind).
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for kind, tag := range kindTags {
		if tag.In(err) {
			return kind
		}
	}
	return KindUnknown
}
