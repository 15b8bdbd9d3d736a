// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vints

import (
	"fmt"

	"github.com/solidcoredata/vints/internal/latest"
	"github.com/solidcoredata/vints/internal/schema"
)

// LatestQuery returns, per requested vehicle, the row with the largest
// timestamp ever written for it — consulting both the converter's
// persisted latest-row table and a slow scan of any staging files
// conversion has not yet caught up to (SPEC_FULL.md §5's ordering
// guarantee: a written row is visible to queries immediately, whether
// or not it has been compacted). A vehicle with no rows is simply
// absent from the result, not an error; an unparseable vehicle id is.
func (e *Engine) LatestQuery(table string, vehicleIDs [][VinLength]byte, columns []string) ([]Row, error) {
	tbl, err := e.table(table)
	if err != nil {
		return nil, err
	}
	if len(vehicleIDs) == 0 {
		return nil, ErrEmptyRequest
	}

	var out []Row
	for _, vid := range vehicleIDs {
		shard := e.vinCodec.DecodeVin(vid)
		if shard == schema.InvalidShard {
			return nil, fmt.Errorf("%w: %x", ErrInvalidShard, vid)
		}
		row, ok, err := latestRowForShard(tbl, shard)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, fromSchemaRow(vid, row, columns))
	}
	return out, nil
}

func latestRowForShard(tbl *table, shard uint16) (schema.Row, bool, error) {
	converted, hasConverted := tbl.lat.Get(shard)
	staged, hasStaged, err := latest.ScanStagingSlowPath(tbl.dir, shard, tbl.sch)
	if err != nil {
		return schema.Row{}, false, err
	}
	switch {
	case hasConverted && hasStaged:
		if staged.TSMilli > converted.TSMilli {
			return staged, true, nil
		}
		return converted, true, nil
	case hasStaged:
		return staged, true, nil
	case hasConverted:
		return converted, true, nil
	default:
		return schema.Row{}, false, nil
	}
}

// TimeRangeQuery returns every row for vehicleID in [tsLo, tsHi),
// projected to columns, in timestamp order.
func (e *Engine) TimeRangeQuery(table string, vehicleID [VinLength]byte, tsLo, tsHi int64, columns []string) ([]Row, error) {
	tbl, err := e.table(table)
	if err != nil {
		return nil, err
	}
	shard := e.vinCodec.DecodeVin(vehicleID)
	if shard == schema.InvalidShard {
		return nil, fmt.Errorf("%w: %x", ErrInvalidShard, vehicleID)
	}
	rows, err := tbl.exec.TimeRange(shard, tsLo, tsHi, columns)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = fromSchemaRow(vehicleID, r, columns)
	}
	return out, nil
}

// AggregateQuery reduces one numeric column over [tsLo, tsHi) for
// vehicleID with agg (Max or Avg). ok is false when the range contains
// no rows for that vehicle.
func (e *Engine) AggregateQuery(table string, vehicleID [VinLength]byte, tsLo, tsHi int64, column string, agg Aggregator) (Value, bool, error) {
	tbl, err := e.table(table)
	if err != nil {
		return Value{}, false, err
	}
	shard := e.vinCodec.DecodeVin(vehicleID)
	if shard == schema.InvalidShard {
		return Value{}, false, fmt.Errorf("%w: %x", ErrInvalidShard, vehicleID)
	}
	return tbl.exec.Aggregate(shard, column, tsLo, tsHi, agg)
}

// DownsampleQuery splits [tsLo, tsHi) into intervalMs-wide buckets,
// applies filter and aggregates column within each bucket that has any
// matching row; buckets with rows but no match emit a NaN/IntNaN
// sentinel, buckets with no rows at all emit nothing.
func (e *Engine) DownsampleQuery(table string, vehicleID [VinLength]byte, tsLo, tsHi, intervalMs int64, column string, agg Aggregator, filter Filter) ([]DownsampleRow, error) {
	tbl, err := e.table(table)
	if err != nil {
		return nil, err
	}
	shard := e.vinCodec.DecodeVin(vehicleID)
	if shard == schema.InvalidShard {
		return nil, fmt.Errorf("%w: %x", ErrInvalidShard, vehicleID)
	}
	if intervalMs <= 0 || (tsHi-tsLo)%intervalMs != 0 {
		return nil, ErrMisalignedInterval
	}
	rows, err := tbl.exec.Downsample(shard, column, tsLo, tsHi, intervalMs, agg, filter)
	if err != nil {
		return nil, err
	}
	out := make([]DownsampleRow, len(rows))
	for i, r := range rows {
		out[i] = DownsampleRow{TSLo: r.TSLo, Value: r.Value}
	}
	return out, nil
}

func fromSchemaRow(vehicleID [VinLength]byte, row schema.Row, columns []string) Row {
	cols := make(map[string]Value, len(columns))
	for _, c := range columns {
		cols[c] = row.Columns[c]
	}
	return Row{VehicleID: vehicleID, TSMilli: row.TSMilli, Columns: cols}
}
