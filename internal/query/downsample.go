// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"fmt"
	"math"

	"github.com/solidcoredata/vints/internal/schema"
)

// CompareOp is the comparison a downsample Filter applies to one row's
// column value.
type CompareOp int

const (
	OpEQ CompareOp = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
)

// Filter is the optional per-row predicate a downsample query applies
// before aggregating each sub-interval. A zero-value Filter (Active
// false) matches every row.
type Filter struct {
	Active     bool
	Op         CompareOp
	IntValue   int32
	FloatValue float64
}

func (f Filter) matchInt32(v int32) bool {
	if !f.Active {
		return true
	}
	switch f.Op {
	case OpEQ:
		return v == f.IntValue
	case OpNE:
		return v != f.IntValue
	case OpLT:
		return v < f.IntValue
	case OpLE:
		return v <= f.IntValue
	case OpGT:
		return v > f.IntValue
	case OpGE:
		return v >= f.IntValue
	default:
		return false
	}
}

func (f Filter) matchFloat64(v float64) bool {
	if !f.Active {
		return true
	}
	switch f.Op {
	case OpEQ:
		return v == f.FloatValue
	case OpNE:
		return v != f.FloatValue
	case OpLT:
		return v < f.FloatValue
	case OpLE:
		return v <= f.FloatValue
	case OpGT:
		return v > f.FloatValue
	case OpGE:
		return v >= f.FloatValue
	default:
		return false
	}
}

// subrangeState is the three-way outcome of one downsample sub-interval,
// combined across every file/staging-scan that touches it.
type subrangeState int

const (
	stateNoData subrangeState = iota
	stateHaveData
	stateFilterAll
)

// merge implements the state transition table in SPEC_FULL.md §4.H:
// NO_DATA | HAVE_DATA = HAVE_DATA; NO_DATA | FILTER_ALL = FILTER_ALL;
// HAVE_DATA | anything = HAVE_DATA.
func (s subrangeState) merge(other subrangeState) subrangeState {
	if s == stateHaveData || other == stateHaveData {
		return stateHaveData
	}
	if s == stateFilterAll || other == stateFilterAll {
		return stateFilterAll
	}
	return stateNoData
}

// DownsampleRow is one emitted sub-interval: its lower timestamp bound
// and either an aggregated value or a NaN sentinel.
type DownsampleRow struct {
	TSLo  int64
	Value schema.Value
}

// Downsample answers SPEC_FULL.md §4.H: split [tsLo, tsHi) into
// intervalMs-wide sub-ranges, aggregate column within each after
// applying filter, and emit one row per sub-range that saw any data.
func (e *Executor) Downsample(shard uint16, column string, tsLo, tsHi, intervalMs int64, agg Aggregator, filter Filter) ([]DownsampleRow, error) {
	col, found := e.sch.Column(column)
	if !found || col.Type == schema.String {
		return nil, fmt.Errorf("query: column %q is not numeric", column)
	}
	if intervalMs <= 0 || (tsHi-tsLo)%intervalMs != 0 {
		return nil, fmt.Errorf("query: interval %d does not evenly divide range [%d, %d)", intervalMs, tsLo, tsHi)
	}

	converted := make(map[int]bool)
	for _, ord := range e.idx.FileOrdinals(shard) {
		converted[ord] = true
	}

	var out []DownsampleRow
	for sub := tsLo; sub < tsHi; sub += intervalMs {
		subHi := sub + intervalMs
		state, value, err := e.downsampleOne(shard, col.Type, column, sub, subHi, agg, filter, converted)
		if err != nil {
			return nil, err
		}
		switch state {
		case stateHaveData:
			out = append(out, DownsampleRow{TSLo: sub, Value: value})
		case stateFilterAll:
			out = append(out, DownsampleRow{TSLo: sub, Value: sentinelValue(col.Type)})
		case stateNoData:
			// emit nothing
		}
	}
	return out, nil
}

func sentinelValue(t schema.Type) schema.Value {
	if t == schema.Int32 {
		return schema.Value{I32: schema.IntNaN}
	}
	return schema.Value{F64: math.NaN()}
}

func (e *Executor) downsampleOne(shard uint16, colType schema.Type, column string, tsLo, tsHi int64, agg Aggregator, filter Filter, converted map[int]bool) (subrangeState, schema.Value, error) {
	loIdx, hiIdx, ok := tsRangeToIdx(tsLo, tsHi)
	if !ok {
		return stateNoData, schema.Value{}, nil
	}

	state := stateNoData
	agState := newAggState(colType)

	for _, ordinal := range overlappingFiles(loIdx, hiIdx) {
		var rowState subrangeState
		var err error
		if converted[ordinal] {
			rowState, err = e.downsampleConvertedFile(shard, ordinal, column, colType, loIdx, hiIdx, filter, agState)
		} else {
			rowState, err = e.downsampleStagingFile(shard, ordinal, column, colType, tsLo, tsHi, filter, agState)
		}
		if err != nil {
			return stateNoData, schema.Value{}, err
		}
		state = state.merge(rowState)
	}

	if state != stateHaveData {
		return state, schema.Value{}, nil
	}
	return state, agState.result(agg), nil
}

// downsampleConvertedFile decodes every block the sub-range touches.
// When a filter is active the precomputed sum/max cannot be reused
// (SPEC_FULL.md §4.H), so this always goes through the value path.
func (e *Executor) downsampleConvertedFile(shard uint16, ordinal int, column string, colType schema.Type, loIdx, hiIdx int, filter Filter, agState *aggState) (subrangeState, error) {
	loLocal, hiLocal := fileLocalRange(ordinal, loIdx, hiIdx)
	cv, err := e.readColumn(shard, ordinal, column, loLocal, hiLocal)
	if err != nil {
		return stateNoData, err
	}
	n := columnValuesLen(cv)
	if n == 0 {
		return stateNoData, nil
	}

	sawRow := false
	sawMatch := false
	if colType == schema.Int32 {
		for _, v := range cv.i32 {
			sawRow = true
			if filter.matchInt32(v) {
				sawMatch = true
				agState.addInt32Values([]int32{v})
			}
		}
	} else {
		for _, v := range cv.f64 {
			sawRow = true
			if filter.matchFloat64(v) {
				sawMatch = true
				agState.addFloat64Values([]float64{v})
			}
		}
	}
	switch {
	case sawMatch:
		return stateHaveData, nil
	case sawRow:
		return stateFilterAll, nil
	default:
		return stateNoData, nil
	}
}

func (e *Executor) downsampleStagingFile(shard uint16, ordinal int, column string, colType schema.Type, tsLo, tsHi int64, filter Filter, agState *aggState) (subrangeState, error) {
	rows, err := scanStagingRows(e.root, e.sch, shard, ordinal, tsLo, tsHi)
	if err != nil {
		return stateNoData, err
	}
	if len(rows) == 0 {
		return stateNoData, nil
	}
	sawMatch := false
	for _, r := range rows {
		v := r.Columns[column]
		if colType == schema.Int32 {
			if filter.matchInt32(v.I32) {
				sawMatch = true
				agState.addInt32Values([]int32{v.I32})
			}
		} else {
			if filter.matchFloat64(v.F64) {
				sawMatch = true
				agState.addFloat64Values([]float64{v.F64})
			}
		}
	}
	if sawMatch {
		return stateHaveData, nil
	}
	return stateFilterAll, nil
}
