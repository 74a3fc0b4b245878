// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import "go.chromium.org/luci/common/errors"

// The tags applied to errors this package originates, so callers further up
// the stack (the root pgdumplib package's Kind enum) can classify a failure
// without matching on its message text.
var (
	InvalidIDTag          = errors.BoolTag{Key: errors.NewTagKey("invalid dump id")}
	MissingDependencyTag  = errors.BoolTag{Key: errors.NewTagKey("missing dependency")}
	CyclicDependenciesTag = errors.BoolTag{Key: errors.NewTagKey("cyclic dependencies")}
	EntityNotFoundTag     = errors.BoolTag{Key: errors.NewTagKey("entity not found")}
)
