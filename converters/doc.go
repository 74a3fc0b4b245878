// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package converters turns the tab-split, COPY-encoded text fields a
// format.RowIter yields into Go values. Default only resolves the COPY NULL
// token; NoOp leaves every field a string; Smart makes a best-effort guess
// at richer native types.
package converters
