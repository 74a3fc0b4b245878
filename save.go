// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pgdumplib

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/gmr/pgdumplib/format"
	"github.com/gmr/pgdumplib/format/toc"
)

// Save writes the archive to path: entries are resolved into a dependency-
// and section-respecting order (format/toc.TOC.TopologicalOrder), then
// written with a single pass if no entry carries data, or the format's
// two-pass strategy otherwise — first learning every data block's offset,
// then patching the already-written TOC in place. The file is assembled at
// a sibling temp path and atomically renamed into place, so a failure
// never leaves path partially written.
func (a *Archive) Save(ctx context.Context, path string) (err error) {
	ordered, err := a.toc.TopologicalOrder()
	if err != nil {
		return classify(err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return tagKind(errors.Annotate(err).Reason("creating temp file in %(dir)q").D("dir", dir).Err(), KindIOError)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		tmp.Close()
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	hasData := false
	for _, e := range ordered {
		if e.HadDumper {
			hasData = true
			break
		}
	}

	codec := toc.NewCodec(a.header.Version, a.header.IntCodec())

	if err := format.WriteHeader(tmp, a.header); err != nil {
		return classify(err)
	}

	if !hasData {
		for _, e := range ordered {
			e.DataState = toc.DataStateNone
			e.Offset = 0
		}
		if err := codec.WriteTOC(tmp, ordered); err != nil {
			return classify(err)
		}
	} else if err := a.saveTwoPass(ctx, tmp, codec, ordered); err != nil {
		return err
	}

	if err := tmp.Sync(); err != nil {
		return tagKind(errors.Annotate(err).Reason("syncing %(path)q").D("path", tmpPath).Err(), KindIOError)
	}
	if err := tmp.Close(); err != nil {
		return tagKind(errors.Annotate(err).Reason("closing %(path)q").D("path", tmpPath).Err(), KindIOError)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return tagKind(errors.Annotate(err).Reason("renaming %(tmp)q to %(path)q").D("tmp", tmpPath).D("path", path).Err(), KindIOError)
	}
	committed = true
	a.path = path

	logging.Debugf(ctx, "pgdumplib: saved %s: %d entries", path, len(ordered))
	return nil
}

// saveTwoPass writes entry count + every entry's header and a placeholder
// trailer, then appends each data-bearing entry's block in order, noting
// its start offset, then seeks back to patch each entry's trailer in
// place with its final data_state/offset.
func (a *Archive) saveTwoPass(ctx context.Context, tmp *os.File, codec *toc.Codec, ordered []*toc.Entry) error {
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(ordered)))
	if _, err := tmp.Write(countBuf[:]); err != nil {
		return tagKind(errors.Annotate(err).Reason("writing entry count").Err(), KindIOError)
	}

	trailerPos := make(map[int32]int64, len(ordered))
	for _, e := range ordered {
		if err := codec.WriteEntryHeader(tmp, e); err != nil {
			return classify(err)
		}
		pos, err := tmp.Seek(0, io.SeekCurrent)
		if err != nil {
			return tagKind(errors.Annotate(err).Reason("finding trailer position").Err(), KindIOError)
		}
		state := toc.DataStateNone
		if e.HadDumper {
			state = toc.DataStateHasData
			trailerPos[e.DumpID] = pos
		}
		if err := codec.WriteEntryTrailer(tmp, state, 0); err != nil {
			return classify(err)
		}
	}

	compress := a.header.Compressed()
	level := a.header.CompressionLevel

	for _, e := range ordered {
		if !e.HadDumper {
			continue
		}
		offset, err := tmp.Seek(0, io.SeekCurrent)
		if err != nil {
			return tagKind(errors.Annotate(err).Reason("finding data offset for %(tag)q").D("tag", e.Tag).Err(), KindIOError)
		}
		if err := a.writeEntryData(tmp, e, compress, level); err != nil {
			return err
		}
		e.Offset = uint64(offset)
		e.DataState = toc.DataStateHasOffset
	}

	for _, e := range ordered {
		if !e.HadDumper {
			continue
		}
		if _, err := tmp.Seek(trailerPos[e.DumpID], io.SeekStart); err != nil {
			return tagKind(errors.Annotate(err).Reason("seeking to trailer for %(tag)q").D("tag", e.Tag).Err(), KindIOError)
		}
		if err := codec.WriteEntryTrailer(tmp, e.DataState, e.Offset); err != nil {
			return classify(err)
		}
	}
	return nil
}

func (a *Archive) writeEntryData(tmp *os.File, e *toc.Entry, compress bool, level int) error {
	src, err := a.entryDataReader(e)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := format.WriteFramedBlock(tmp, a.header.IntCodec(), src, compress, level); err != nil {
		return tagKind(errors.Annotate(err).Reason("writing data block for %(tag)q").D("tag", e.Tag).Err(), KindIOError)
	}
	return nil
}
