// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vints

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/vints/internal/schema"
)

func testColumns() []Column {
	return []Column{
		{Name: "col_i", Type: Int32},
		{Name: "col_d", Type: Float64},
		{Name: "col_s", Type: String},
	}
}

func vehicleFor(shard uint16) [VinLength]byte {
	return schema.EncodeVin(shard)
}

// Scenario 1: single row round trip, surviving a shutdown and reopen.
func TestSingleRowRoundTrip(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	require.NoError(t, eng.CreateTable("telemetry", testColumns()))

	vid := vehicleFor(0)
	err = eng.Write("telemetry", []Row{{
		VehicleID: vid,
		TSMilli:   schema.TSBaseMilli,
		Columns: map[string]Value{
			"col_i": {I32: 42},
			"col_d": {F64: 3.5},
			"col_s": {Str: "hi"},
		},
	}})
	require.NoError(t, err)
	require.NoError(t, eng.Shutdown())

	eng2, err := Connect(dir)
	require.NoError(t, err)
	defer eng2.Shutdown()

	rows, err := eng2.TimeRangeQuery("telemetry", vid, schema.TSBaseMilli, schema.TSBaseMilli+1, []string{"col_i", "col_d", "col_s"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int32(42), rows[0].Columns["col_i"].I32)
	require.InDelta(t, 3.5, rows[0].Columns["col_d"].F64, 1e-9)
	require.Equal(t, "hi", rows[0].Columns["col_s"].Str)
}

// Scenario 2: latest reflects the most recently written row.
func TestLatestOverTwoWrites(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	require.NoError(t, eng.CreateTable("telemetry", testColumns()))
	defer eng.Shutdown()

	vid := vehicleFor(0)
	require.NoError(t, eng.Write("telemetry", []Row{
		{VehicleID: vid, TSMilli: schema.TSBaseMilli, Columns: map[string]Value{"col_i": {I32: 1}}},
	}))
	require.NoError(t, eng.Write("telemetry", []Row{
		{VehicleID: vid, TSMilli: schema.TSBaseMilli + 1000, Columns: map[string]Value{"col_i": {I32: 2}}},
	}))

	rows, err := eng.LatestQuery("telemetry", [][VinLength]byte{vid}, []string{"col_i"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, schema.TSBaseMilli+1000, rows[0].TSMilli)
	require.Equal(t, int32(2), rows[0].Columns["col_i"].I32)
}

// Scenario 3: MAX over a sparse, unconverted block (2500 rows, well
// under one FlushSize-sized staging file).
func TestMaxOverSparseBlock(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	require.NoError(t, eng.CreateTable("telemetry", testColumns()))
	defer eng.Shutdown()

	vid := vehicleFor(0)
	const n = 2500
	rows := make([]Row, n)
	for k := 0; k < n; k++ {
		rows[k] = Row{
			VehicleID: vid,
			TSMilli:   schema.TSBaseMilli + int64(k)*1000,
			Columns:   map[string]Value{"col_i": {I32: int32(k)}},
		}
	}
	require.NoError(t, eng.Write("telemetry", rows))

	val, ok, err := eng.AggregateQuery("telemetry", vid, schema.TSBaseMilli, schema.TSBaseMilli+int64(n)*1000, "col_i", Max)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(n-1), val.I32)
}

// Scenario 4: AVG over an int32 column promotes the sum to int64 so it
// does not overflow.
func TestAvgI32PromotesToI64(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	require.NoError(t, eng.CreateTable("telemetry", testColumns()))
	defer eng.Shutdown()

	vid := vehicleFor(0)
	const n = 100
	rows := make([]Row, n)
	for k := 0; k < n; k++ {
		rows[k] = Row{
			VehicleID: vid,
			TSMilli:   schema.TSBaseMilli + int64(k)*1000,
			Columns:   map[string]Value{"col_i": {I32: math.MaxInt32}},
		}
	}
	require.NoError(t, eng.Write("telemetry", rows))

	val, ok, err := eng.AggregateQuery("telemetry", vid, schema.TSBaseMilli, schema.TSBaseMilli+int64(n)*1000, "col_i", Avg)
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, float64(math.MaxInt32), val.F64, 1e-6)
}

// Scenario 5: every sub-interval's rows are filtered out, so downsample
// emits a NaN sentinel for each of the 10 sub-intervals rather than
// nothing.
func TestDownsampleFilterAllSubIntervals(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	require.NoError(t, eng.CreateTable("telemetry", testColumns()))
	defer eng.Shutdown()

	vid := vehicleFor(0)
	const n = 100
	rows := make([]Row, n)
	for k := 0; k < n; k++ {
		rows[k] = Row{
			VehicleID: vid,
			TSMilli:   schema.TSBaseMilli + int64(k)*1000,
			Columns:   map[string]Value{"col_d": {F64: 0.0}},
		}
	}
	require.NoError(t, eng.Write("telemetry", rows))

	out, err := eng.DownsampleQuery("telemetry", vid, schema.TSBaseMilli, schema.TSBaseMilli+n*1000, 10*1000, "col_d", Avg, Filter{
		Active:     true,
		Op:         OpGT,
		FloatValue: 1.0,
	})
	require.NoError(t, err)
	require.Len(t, out, 10)
	for _, r := range out {
		require.True(t, math.IsNaN(r.Value.F64))
	}
}

// Scenario 6: a query straddling two TSM files' boundary returns
// exactly the rows in its window, none from beyond it.
func TestTimeRangeSpansFileBoundaryEndToEnd(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	require.NoError(t, eng.CreateTable("telemetry", testColumns()))

	vid := vehicleFor(0)
	const total = 2 * schema.FileWidth
	rows := make([]Row, total)
	for k := 0; k < total; k++ {
		rows[k] = Row{
			VehicleID: vid,
			TSMilli:   schema.TSBaseMilli + int64(k)*1000,
			Columns:   map[string]Value{"col_i": {I32: int32(k)}},
		}
	}
	require.NoError(t, eng.Write("telemetry", rows))
	require.NoError(t, eng.Shutdown())

	eng2, err := Connect(dir)
	require.NoError(t, err)
	defer eng2.Shutdown()

	mid := schema.FileWidth
	lo := schema.TSBaseMilli + int64(mid-1000)*1000
	hi := schema.TSBaseMilli + int64(mid+1000)*1000
	got, err := eng2.TimeRangeQuery("telemetry", vid, lo, hi, []string{"col_i"})
	require.NoError(t, err)
	require.Len(t, got, 2000)
}

func TestUnknownTableErrors(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	defer eng.Shutdown()

	_, err = eng.LatestQuery("nope", [][VinLength]byte{vehicleFor(0)}, []string{"col_i"})
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestInvalidVehicleIDRejectedByQueries(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	require.NoError(t, eng.CreateTable("telemetry", testColumns()))
	defer eng.Shutdown()

	var badVID [VinLength]byte
	copy(badVID[:], "not-a-valid-vin!!")
	_, _, err = eng.AggregateQuery("telemetry", badVID, schema.TSBaseMilli, schema.TSBaseMilli+1000, "col_i", Max)
	require.ErrorIs(t, err, ErrInvalidShard)
}

func TestWriteDropsInvalidVehicleID(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	require.NoError(t, eng.CreateTable("telemetry", testColumns()))
	defer eng.Shutdown()

	var badVID [VinLength]byte
	copy(badVID[:], "not-a-valid-vin!!")
	err = eng.Write("telemetry", []Row{{VehicleID: badVID, TSMilli: schema.TSBaseMilli, Columns: map[string]Value{"col_i": {I32: 1}}}})
	require.NoError(t, err)
}

func TestCreateTableRejectsDuplicate(t *testing.T) {
	dir := t.TempDir()
	eng, err := Connect(dir)
	require.NoError(t, err)
	defer eng.Shutdown()

	require.NoError(t, eng.CreateTable("telemetry", testColumns()))
	err = eng.CreateTable("telemetry", testColumns())
	require.ErrorIs(t, err, ErrTableExists)
}
