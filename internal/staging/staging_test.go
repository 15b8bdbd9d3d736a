// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package staging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/vints/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Column{
		{Name: "speed", Type: schema.Int32},
		{Name: "temp", Type: schema.Float64},
		{Name: "state", Type: schema.String},
		{Name: "rpm", Type: schema.Int32},
	})
	require.NoError(t, err)
	return sch
}

func TestRowRoundTrip(t *testing.T) {
	sch := testSchema(t)
	row := schema.Row{
		TSMilli: schema.TSBaseMilli + 5000,
		Columns: map[string]schema.Value{
			"speed": {I32: 42},
			"rpm":   {I32: -17},
			"temp":  {F64: 98.6},
			"state": {Str: "charging"},
		},
	}
	buf, err := EncodeRow(sch, row)
	require.NoError(t, err)
	require.Equal(t, RowSize(sch, row), len(buf))

	got, n, err := DecodeRow(sch, buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, row.TSMilli, got.TSMilli)
	require.Equal(t, row.Columns, got.Columns)
}

func TestHeaderRoundTrip(t *testing.T) {
	sch := testSchema(t)
	hdr := EncodeHeader(len(sch.Columns))
	n, err := DecodeHeader(hdr, sch)
	require.NoError(t, err)
	require.Equal(t, 6, n)
}

func TestHeaderRejectsSchemaMismatch(t *testing.T) {
	sch := testSchema(t)
	other, err := schema.New([]schema.Column{{Name: "only", Type: schema.Int32}})
	require.NoError(t, err)
	hdr := EncodeHeader(len(sch.Columns))
	_, err = DecodeHeader(hdr, other)
	require.Error(t, err)
}

type fakeSubmitter struct {
	calls [][]int
}

func (f *fakeSubmitter) Submit(shard uint16, ordinals []int) {
	cp := append([]int(nil), ordinals...)
	f.calls = append(f.calls, cp)
}

func TestWriterSealsAndSubmitsBatches(t *testing.T) {
	sch := testSchema(t)
	dir := t.TempDir()
	shardDir := filepath.Join(dir, "0")
	sub := &fakeSubmitter{}

	w, err := NewWriter(shardDir, 0, sch, sub)
	require.NoError(t, err)

	row := func(i int) schema.Row {
		return schema.Row{
			TSMilli: schema.TSBaseMilli + int64(i)*1000,
			Columns: map[string]schema.Value{
				"speed": {I32: int32(i)},
				"rpm":   {I32: int32(i)},
				"temp":  {F64: float64(i)},
				"state": {Str: "on"},
			},
		}
	}

	for i := 0; i < schema.FlushSize*schema.CompactionBatch; i++ {
		require.NoError(t, w.Append(row(i)))
	}
	require.Len(t, sub.calls, 1)
	require.Equal(t, []int{0, 1, 2, 3}, sub.calls[0])
	require.Equal(t, schema.CompactionBatch, w.SealedOrdinal())

	require.NoError(t, w.Append(row(0)))
	require.NoError(t, w.Finalize())
	require.Len(t, sub.calls, 2)
	require.Equal(t, []int{4}, sub.calls[1])

	entries, err := os.ReadDir(shardDir)
	require.NoError(t, err)
	require.Len(t, entries, schema.CompactionBatch+1)
}
