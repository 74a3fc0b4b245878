// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package converters

import (
	"net/netip"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// copyNull is the literal token pg_dump's COPY text format uses for a null
// column.
const copyNull = `\N`

// Converter turns one row's already tab-split fields into column values.
// The three built-ins never fail; the error return exists for user-supplied
// converters, whose failures the caller surfaces as *converter-error*.
type Converter interface {
	Convert(fields []string) ([]any, error)
}

// Default resolves only the COPY NULL token; every other field is returned
// as its raw string.
type Default struct{}

// Convert implements Converter.
func (Default) Convert(fields []string) ([]any, error) {
	out := make([]any, len(fields))
	for i, f := range fields {
		if f == copyNull {
			out[i] = nil
			continue
		}
		out[i] = f
	}
	return out, nil
}

// NoOp returns every field verbatim, including the literal COPY NULL token.
// It exists for callers re-emitting rows byte-for-byte (e.g. copying a
// table's data into another archive without inspecting it).
type NoOp struct{}

// Convert implements Converter.
func (NoOp) Convert(fields []string) ([]any, error) {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out, nil
}

// Smart attempts to parse each field into the narrowest native type that
// round-trips it: nil, int64, netip.Addr, netip.Prefix, uuid.UUID,
// time.Time, decimal.Decimal, falling back to string.
type Smart struct{}

// Convert implements Converter.
func (Smart) Convert(fields []string) ([]any, error) {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = convertColumn(f)
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func convertColumn(column string) any {
	if column == copyNull {
		return nil
	}

	if v, err := strconv.ParseInt(column, 10, 64); err == nil {
		return v
	}

	if addr, err := netip.ParseAddr(column); err == nil {
		return addr
	}
	if prefix, err := netip.ParsePrefix(column); err == nil {
		return prefix
	}

	if id, err := uuid.Parse(column); err == nil {
		return id
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, column); err == nil {
			return t
		}
	}

	if looksNumeric(column) {
		if d, err := decimal.NewFromString(column); err == nil {
			return d
		}
	}

	return column
}

// looksNumeric filters candidates for decimal parsing so that strings like
// table names or UUIDs (already handled above) never reach
// decimal.NewFromString only to be rejected.
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	seenDigit, seenDot := false, false
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot:
			seenDot = true
		case c == '-' && i == 0:
		default:
			return false
		}
	}
	return seenDigit
}
