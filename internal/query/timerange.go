// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"fmt"

	"github.com/solidcoredata/vints/internal/schema"
)

// TimeRange answers SPEC_FULL.md §4.G: for one shard and a half-open
// millisecond window, return the requested columns of every row in
// range, in ts_idx order. Out-of-window or empty requests return an
// empty, non-error result.
func (e *Executor) TimeRange(shard uint16, tsLo, tsHi int64, columns []string) ([]schema.Row, error) {
	if len(columns) == 0 {
		return nil, nil
	}
	loIdx, hiIdx, ok := tsRangeToIdx(tsLo, tsHi)
	if !ok {
		return nil, nil
	}

	converted := make(map[int]bool)
	for _, ord := range e.idx.FileOrdinals(shard) {
		converted[ord] = true
	}

	var rows []schema.Row
	for _, ordinal := range overlappingFiles(loIdx, hiIdx) {
		if converted[ordinal] {
			fileRows, err := e.timeRangeFile(shard, ordinal, loIdx, hiIdx, columns)
			if err != nil {
				return nil, err
			}
			rows = append(rows, fileRows...)
			continue
		}
		fileRows, err := scanStagingRows(e.root, e.sch, shard, ordinal, tsLo, tsHi)
		if err != nil {
			return nil, err
		}
		for _, r := range fileRows {
			rows = append(rows, projectColumns(r, columns))
		}
	}
	return rows, nil
}

func (e *Executor) timeRangeFile(shard uint16, ordinal, loIdx, hiIdx int, columns []string) ([]schema.Row, error) {
	loLocal, hiLocal := fileLocalRange(ordinal, loIdx, hiIdx)
	n := hiLocal - loLocal + 1
	if n <= 0 {
		return nil, nil
	}

	data := make(map[string]columnValues, len(columns))
	for _, col := range columns {
		cv, err := e.readColumn(shard, ordinal, col, loLocal, hiLocal)
		if err != nil {
			return nil, err
		}
		if columnValuesLen(cv) != n {
			return nil, fmt.Errorf("query: column %q returned %d values, expected %d", col, columnValuesLen(cv), n)
		}
		data[col] = cv
	}

	fileBase := ordinal * schema.FileWidth
	rows := make([]schema.Row, n)
	for p := 0; p < n; p++ {
		row := schema.Row{
			Shard:   shard,
			TSMilli: schema.DecodeTSIdx(uint16(fileBase + loLocal + p)),
			Columns: make(map[string]schema.Value, len(columns)),
		}
		for _, col := range columns {
			row.Columns[col] = valueAt(data[col], p)
		}
		rows[p] = row
	}
	return rows, nil
}

func columnValuesLen(cv columnValues) int {
	switch cv.colType {
	case schema.Int32:
		return len(cv.i32)
	case schema.Float64:
		return len(cv.f64)
	case schema.String:
		return len(cv.str)
	default:
		return 0
	}
}

func valueAt(cv columnValues, p int) schema.Value {
	switch cv.colType {
	case schema.Int32:
		return schema.Value{I32: cv.i32[p]}
	case schema.Float64:
		return schema.Value{F64: cv.f64[p]}
	case schema.String:
		return schema.Value{Str: cv.str[p]}
	default:
		return schema.Value{}
	}
}

func projectColumns(row schema.Row, columns []string) schema.Row {
	out := schema.Row{Shard: row.Shard, TSMilli: row.TSMilli, Columns: make(map[string]schema.Value, len(columns))}
	for _, c := range columns {
		out.Columns[c] = row.Columns[c]
	}
	return out
}
