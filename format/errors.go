// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import "go.chromium.org/luci/common/errors"

// The tags applied to errors this package originates, so callers further up
// the stack (the root pgdumplib package's Kind enum) can classify a failure
// without matching on its message text.
var (
	NotAnArchiveTag       = errors.BoolTag{Key: errors.NewTagKey("not an archive")}
	UnsupportedVersionTag = errors.BoolTag{Key: errors.NewTagKey("unsupported archive version")}
	FormatErrorTag        = errors.BoolTag{Key: errors.NewTagKey("archive format error")}
	UnknownDescriptorTag  = errors.BoolTag{Key: errors.NewTagKey("unknown descriptor")}
)
