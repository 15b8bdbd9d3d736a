// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package query implements the time-range, aggregate and downsample
// executors (SPEC_FULL.md §4.G/§4.H): they walk the TSM files a shard has
// accumulated, consult the in-memory index to read only the blocks a
// window overlaps, and fall back to a row-oriented scan of any staging
// file conversion hasn't caught up to yet.
package query

import (
	"fmt"
	"os"

	"github.com/solidcoredata/vints/internal/convert"
	"github.com/solidcoredata/vints/internal/index"
	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/staging"
	"github.com/solidcoredata/vints/internal/tsmfile"
)

// Executor answers the three window-shaped query families for one table.
type Executor struct {
	root string
	sch  *schema.Schema
	idx  *index.Manager
}

// NewExecutor returns an Executor reading table data under root.
func NewExecutor(root string, sch *schema.Schema, idx *index.Manager) *Executor {
	return &Executor{root: root, sch: sch, idx: idx}
}

// ceilDiv and floorDiv implement integer division rounding toward
// +/-infinity respectively, needed because Go's "/" truncates toward
// zero and ts_idx bounds must round the way the spec's half-open
// millisecond window implies.
func ceilDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// tsRangeToIdx converts a half-open [tsLo, tsHi) millisecond range to an
// inclusive ts_idx range, clipped to the engine's addressable window.
// ok is false when the requested range does not overlap the window at
// all, per §4.G's "reject out-of-range queries silently".
func tsRangeToIdx(tsLo, tsHi int64) (lo, hi int, ok bool) {
	if tsHi <= tsLo {
		return 0, 0, false
	}
	loIdx := ceilDiv(tsLo-schema.TSBaseMilli, 1000)
	hiIdx := floorDiv(tsHi-schema.TSBaseMilli-1, 1000)
	if loIdx < 0 {
		loIdx = 0
	}
	if hiIdx >= schema.TimeRange {
		hiIdx = schema.TimeRange - 1
	}
	if loIdx > hiIdx {
		return 0, 0, false
	}
	return int(loIdx), int(hiIdx), true
}

// overlappingFiles returns the file ordinals [lo_idx/FileWidth ..
// hi_idx/FileWidth] that a ts_idx range might touch.
func overlappingFiles(loIdx, hiIdx int) []int {
	first := loIdx / schema.FileWidth
	last := hiIdx / schema.FileWidth
	out := make([]int, 0, last-first+1)
	for f := first; f <= last; f++ {
		out = append(out, f)
	}
	return out
}

// fileLocalRange clips [loIdx, hiIdx] to file ordinal's span and
// converts it to file-local coordinates.
func fileLocalRange(ordinal, loIdx, hiIdx int) (int, int) {
	base := ordinal * schema.FileWidth
	lo := loIdx - base
	hi := hiIdx - base
	if lo < 0 {
		lo = 0
	}
	if hi >= schema.FileWidth {
		hi = schema.FileWidth - 1
	}
	return lo, hi
}

// columnValues holds what readColumn produces: the values of one column
// in one converted file over [loLocal, hiLocal], every covering block
// decoded and concatenated in ts_idx order, alongside the index entries
// and per-entry coverage it read them from. Aggregate queries make their
// own index lookup to decide whether decoding can be skipped.
type columnValues struct {
	entries []tsmfile.IndexEntry
	ranges  []index.Range
	i32     []int32
	f64     []float64
	str     []string
	colType schema.Type
}

func (e *Executor) readColumn(shard uint16, ordinal int, column string, loLocal, hiLocal int) (columnValues, error) {
	entries, ranges := e.idx.Query(shard, ordinal, column, loLocal, hiLocal)
	if len(entries) == 0 {
		return columnValues{}, nil
	}

	col, ok := e.sch.Column(column)
	if !ok {
		return columnValues{}, fmt.Errorf("query: unknown column %q", column)
	}

	f, err := os.Open(convert.CompactionPath(e.root, shard, ordinal))
	if err != nil {
		return columnValues{}, fmt.Errorf("query: opening TSM file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return columnValues{}, fmt.Errorf("query: stat TSM file: %w", err)
	}
	reader, err := tsmfile.Open(f, info.Size())
	if err != nil {
		return columnValues{}, fmt.Errorf("query: opening TSM index: %w", err)
	}

	cv := columnValues{entries: entries, ranges: ranges, colType: col.Type}
	for i, entry := range entries {
		tag, payload, err := reader.ReadBlock(entry)
		if err != nil {
			return columnValues{}, fmt.Errorf("query: reading block: %w", err)
		}
		r := ranges[i]
		switch col.Type {
		case schema.Int32:
			values, err := codecDecodeInt32(tag, payload)
			if err != nil {
				return columnValues{}, err
			}
			cv.i32 = append(cv.i32, values[r.Start:r.End]...)
		case schema.Float64:
			values, err := codecDecodeFloat64(tag, payload)
			if err != nil {
				return columnValues{}, err
			}
			cv.f64 = append(cv.f64, values[r.Start:r.End]...)
		case schema.String:
			values, err := codecDecodeString(tag, payload)
			if err != nil {
				return columnValues{}, err
			}
			cv.str = append(cv.str, values[r.Start:r.End]...)
		}
	}
	return cv, nil
}

// scanStagingRows parses an unconverted staging file row by row,
// filtering to [tsLo, tsHi), for the slow path used whenever a file
// ordinal a query needs hasn't been converted yet.
func scanStagingRows(root string, sch *schema.Schema, shard uint16, ordinal int, tsLo, tsHi int64) ([]schema.Row, error) {
	path := convert.StagingPath(root, shard, ordinal)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query: reading staging file: %w", err)
	}
	headerLen, err := staging.DecodeHeader(raw, sch)
	if err != nil {
		return nil, fmt.Errorf("query: %s: %w", path, err)
	}
	buf := raw[headerLen:]

	var rows []schema.Row
	for len(buf) > 0 {
		row, n, err := staging.DecodeRow(sch, buf)
		if err != nil {
			break // trailing partial row from a file still being appended to
		}
		buf = buf[n:]
		if row.TSMilli >= tsLo && row.TSMilli < tsHi {
			row.Shard = shard
			rows = append(rows, row)
		}
	}
	return rows, nil
}
