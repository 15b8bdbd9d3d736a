// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/tsmfile"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Column{{Name: "speed", Type: schema.Int32}})
	require.NoError(t, err)
	return sch
}

func sampleBlocks() []tsmfile.IndexBlock {
	entries := make([]tsmfile.IndexEntry, schema.DataBlockCount)
	for i := range entries {
		entries[i] = tsmfile.IndexEntry{Sum: int64(i), Max: int32(i)}
	}
	return []tsmfile.IndexBlock{{ColumnName: "speed", ColumnType: schema.Int32, Entries: entries}}
}

func TestQueryWithinSingleBlock(t *testing.T) {
	m := NewManager(testSchema(t))
	m.AddFile(3, 0, sampleBlocks())

	entries, ranges := m.Query(3, 0, "speed", 10, 50)
	require.Len(t, entries, 1)
	require.Equal(t, int64(0), entries[0].Sum)
	require.Equal(t, Range{Start: 10, End: 51}, ranges[0])
}

func TestQuerySpansBlocks(t *testing.T) {
	m := NewManager(testSchema(t))
	m.AddFile(3, 0, sampleBlocks())

	lo := schema.DataBlockItemNums - 5
	hi := schema.DataBlockItemNums + 5
	entries, ranges := m.Query(3, 0, "speed", lo, hi)
	require.Len(t, entries, 2)
	require.Equal(t, Range{Start: schema.DataBlockItemNums - 5, End: schema.DataBlockItemNums}, ranges[0])
	require.Equal(t, Range{Start: 0, End: 6}, ranges[1])
	require.True(t, FullyCovers(Range{Start: 0, End: schema.DataBlockItemNums}))
	require.False(t, FullyCovers(ranges[0]))
}

func TestQueryUnknownShardOrColumn(t *testing.T) {
	m := NewManager(testSchema(t))
	entries, ranges := m.Query(9, 0, "speed", 0, 10)
	require.Nil(t, entries)
	require.Nil(t, ranges)

	m.AddFile(3, 0, sampleBlocks())
	entries, ranges = m.Query(3, 0, "missing", 0, 10)
	require.Nil(t, entries)
	require.Nil(t, ranges)
}
