// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package format

import (
	"io"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
)

// Magic is the five-byte signature at the start of every custom-format
// archive.
var Magic = [5]byte{'P', 'G', 'D', 'M', 'P'}

// WriteMagic writes the archive magic to w.
func WriteMagic(w io.Writer) error {
	_, err := w.Write(Magic[:])
	return errors.Annotate(err).Reason("writing magic").Err()
}

// ReadMagic reads and validates the archive magic from r.
func ReadMagic(r io.Reader) error {
	var buf [5]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return errors.Annotate(err).Reason("reading magic").Err()
	}
	if buf != Magic {
		return NotAnArchiveTag.Apply(errors.Reason("bad magic: %(magic)q").D("magic", string(buf[:])).Err())
	}
	return nil
}

// Section classifies where in a restore's DDL phases an Entry's statements
// belong.
type Section int

// The four sections a descriptor can resolve to.
const (
	SectionNone Section = iota
	SectionPreData
	SectionData
	SectionPostData
)

func (s Section) String() string {
	switch s {
	case SectionNone:
		return "None"
	case SectionPreData:
		return "Pre-Data"
	case SectionData:
		return "Data"
	case SectionPostData:
		return "Post-Data"
	default:
		return "Unknown"
	}
}

// sectionByDescriptor is the fixed map from object-type descriptor to
// section, per the pg_dump archiver's ArchiveEntry call sites.
var sectionByDescriptor = map[string]Section{
	"SCHEMA":                    SectionPreData,
	"EXTENSION":                 SectionPreData,
	"SHELL TYPE":                SectionPreData,
	"TYPE":                      SectionPreData,
	"DOMAIN":                    SectionPreData,
	"FUNCTION":                  SectionPreData,
	"AGGREGATE":                 SectionPreData,
	"OPERATOR":                  SectionPreData,
	"OPERATOR CLASS":            SectionPreData,
	"OPERATOR FAMILY":           SectionPreData,
	"COLLATION":                 SectionPreData,
	"CONVERSION":                SectionPreData,
	"TABLE":                     SectionPreData,
	"SEQUENCE":                  SectionPreData,
	"VIEW":                      SectionPreData,
	"FOREIGN TABLE":             SectionPreData,
	"FOREIGN DATA WRAPPER":      SectionPreData,
	"SERVER":                    SectionPreData,
	"TEXT SEARCH PARSER":        SectionPreData,
	"TEXT SEARCH DICTIONARY":    SectionPreData,
	"TEXT SEARCH TEMPLATE":      SectionPreData,
	"TEXT SEARCH CONFIGURATION": SectionPreData,
	"PROCEDURAL LANGUAGE":       SectionPreData,
	"CAST":                      SectionPreData,
	"TRANSFORM":                 SectionPreData,
	"STATISTICS":                SectionPreData,
	"PUBLICATION":               SectionPreData,
	"SUBSCRIPTION":              SectionPreData,

	"TABLE DATA":             SectionData,
	"BLOBS":                  SectionData,
	"BLOB METADATA":          SectionData,
	"SEQUENCE SET":           SectionData,
	"MATERIALIZED VIEW DATA": SectionData,
	"LARGE OBJECT DATA":      SectionData,

	"INDEX":             SectionPostData,
	"CONSTRAINT":        SectionPostData,
	"FK CONSTRAINT":     SectionPostData,
	"CHECK CONSTRAINT":  SectionPostData,
	"RULE":              SectionPostData,
	"TRIGGER":           SectionPostData,
	"EVENT TRIGGER":     SectionPostData,
	"DEFAULT":           SectionPostData,
	"POLICY":            SectionPostData,
	"ROW SECURITY":      SectionPostData,
	"MATERIALIZED VIEW": SectionPostData,
	"USER MAPPING":      SectionPostData,

	"ACL":                SectionNone,
	"COMMENT":            SectionNone,
	"SECURITY LABEL":     SectionNone,
	"ENCODING":           SectionNone,
	"STDSTRINGS":         SectionNone,
	"SEARCHPATH":         SectionNone,
	"DATABASE":           SectionNone,
	"BLOB":               SectionNone,
	"LARGE OBJECT":       SectionNone,
	"DEFAULT ACL":        SectionNone,
	"PUBLICATION TABLE":  SectionNone,
}

// knownDescriptors is the membership set backing IsKnownDescriptor, derived
// once from sectionByDescriptor.
var knownDescriptors = func() stringset.Set {
	s := stringset.New(len(sectionByDescriptor))
	for d := range sectionByDescriptor {
		s.Add(d)
	}
	return s
}()

// IsKnownDescriptor reports whether desc is a recognized object-type
// descriptor.
func IsKnownDescriptor(desc string) bool {
	return knownDescriptors.Has(desc)
}

// SectionOf returns the section a descriptor resolves to. It fails with an
// *unknown-descriptor* error for anything not in the fixed table.
func SectionOf(desc string) (Section, error) {
	section, ok := sectionByDescriptor[desc]
	if !ok {
		return SectionNone, UnknownDescriptorTag.Apply(errors.Reason("unknown descriptor %(desc)q").D("desc", desc).Err())
	}
	return section, nil
}

// ArchiveVersion is a pg_dump custom-format version, e.g. 1.14.0.
type ArchiveVersion [3]byte

// The archive format versions this library understands.
var (
	V1_12 = ArchiveVersion{1, 12, 0}
	V1_13 = ArchiveVersion{1, 13, 0}
	V1_14 = ArchiveVersion{1, 14, 0}
	V1_15 = ArchiveVersion{1, 15, 0}
	V1_16 = ArchiveVersion{1, 16, 0}
)

// DefaultVersion is what ServerVersionToArchiveVersion returns for a server
// version string it cannot parse or map.
var DefaultVersion = V1_14

// MinVersion and MaxVersion bound the versions Load will accept.
var (
	MinVersion = V1_12
	MaxVersion = V1_16
)

func (v ArchiveVersion) String() string {
	return itoa(int(v[0])) + "." + itoa(int(v[1])) + "." + itoa(int(v[2]))
}

// Before reports whether v sorts strictly before other.
func (v ArchiveVersion) Before(other ArchiveVersion) bool {
	return compareVersion(v, other) < 0
}

// AtLeast reports whether v sorts at or after other.
func (v ArchiveVersion) AtLeast(other ArchiveVersion) bool {
	return compareVersion(v, other) >= 0
}

func compareVersion(a, b ArchiveVersion) int {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Supported reports whether v falls within [MinVersion, MaxVersion].
func (v ArchiveVersion) Supported() bool {
	return v.AtLeast(MinVersion) && !MaxVersion.Before(v)
}

// serverVersionRange maps a contiguous range of PostgreSQL server major
// version numbers to the archive version pg_dump emits for that server.
type serverVersionRange struct {
	minMajor int
	maxMajor int // 0 means unbounded
	version  ArchiveVersion
}

// serverVersionTable is ordered oldest-first; the write path walks it to
// find the archive version for a caller-supplied target server version.
var serverVersionTable = []serverVersionRange{
	{minMajor: 0, maxMajor: 11, version: V1_12},
	{minMajor: 12, maxMajor: 13, version: V1_13},
	{minMajor: 14, maxMajor: 15, version: V1_14},
	{minMajor: 16, maxMajor: 16, version: V1_15},
	{minMajor: 17, maxMajor: 0, version: V1_16},
}

// ServerVersionToArchiveVersion maps a PostgreSQL server version string
// (e.g. "16.2" or "9.6.24") to the archive format version pg_dump would
// produce against that server. Unknown/unparseable versions fall back to
// DefaultVersion.
func ServerVersionToArchiveVersion(serverVersion string) ArchiveVersion {
	major := parseMajor(serverVersion)
	if major < 0 {
		return DefaultVersion
	}
	for _, r := range serverVersionTable {
		if major >= r.minMajor && (r.maxMajor == 0 || major <= r.maxMajor) {
			return r.version
		}
	}
	return DefaultVersion
}

func parseMajor(serverVersion string) int {
	serverVersion = strings.TrimSpace(serverVersion)
	end := strings.IndexByte(serverVersion, '.')
	if end < 0 {
		end = len(serverVersion)
	}
	if end == 0 {
		return -1
	}
	major := 0
	for i := 0; i < end; i++ {
		c := serverVersion[i]
		if c < '0' || c > '9' {
			return -1
		}
		major = major*10 + int(c-'0')
	}
	return major
}
