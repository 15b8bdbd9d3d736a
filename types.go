// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vints

import (
	"github.com/solidcoredata/vints/internal/query"
	"github.com/solidcoredata/vints/internal/schema"
)

// Column, ColumnType and Value mirror the shared internal schema types;
// they are the public vocabulary every Engine method is expressed in.
type (
	Column     = schema.Column
	ColumnType = schema.Type
	Value      = schema.Value
)

const (
	Int32   = schema.Int32
	Float64 = schema.Float64
	String  = schema.String
)

// VinLength is the fixed byte width of a vehicle identifier.
const VinLength = schema.VinLength

// Row is one timestamped observation for one vehicle.
type Row struct {
	VehicleID [VinLength]byte
	TSMilli   int64
	Columns   map[string]Value
}

// Aggregator and Filter select and shape an aggregate or downsample
// query; they mirror internal/query's types one for one.
type (
	Aggregator = query.Aggregator
	CompareOp  = query.CompareOp
	Filter     = query.Filter
)

const (
	Max = query.Max
	Avg = query.Avg
)

const (
	OpEQ = query.OpEQ
	OpNE = query.OpNE
	OpLT = query.OpLT
	OpLE = query.OpLE
	OpGT = query.OpGT
	OpGE = query.OpGE
)

// DownsampleRow is one emitted sub-interval of a DownsampleQuery.
type DownsampleRow struct {
	TSLo  int64
	Value Value
}

func toSchemaRow(shard uint16, r Row) schema.Row {
	return schema.Row{Shard: shard, TSMilli: r.TSMilli, Columns: r.Columns}
}
