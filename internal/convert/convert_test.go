// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/staging"
	"github.com/solidcoredata/vints/internal/tsmfile"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Column{
		{Name: "speed", Type: schema.Int32},
		{Name: "state", Type: schema.String},
	})
	require.NoError(t, err)
	return sch
}

func writeStagingFile(t *testing.T, dir string, sch *schema.Schema, ordinal int) schema.Row {
	t.Helper()
	path := filepath.Join(dir, "0")
	require.NoError(t, os.MkdirAll(path, 0o755))
	file := filepath.Join(path, "0")
	f, err := os.Create(file)
	require.NoError(t, err)
	_, err = f.Write(staging.EncodeHeader(len(sch.Columns)))
	require.NoError(t, err)

	var latest schema.Row
	for i := 0; i < schema.FlushSize; i++ {
		row := schema.Row{
			TSMilli: schema.DecodeTSIdx(uint16(ordinal*schema.FileWidth + i)),
			Columns: map[string]schema.Value{
				"speed": {I32: int32(i % 100)},
				"state": {Str: "on"},
			},
		}
		latest = row
		buf, err := staging.EncodeRow(sch, row)
		require.NoError(t, err)
		_, err = f.Write(buf)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())
	return latest
}

func TestConvertFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sch := testSchema(t)
	latest := writeStagingFile(t, dir, sch, 0)

	image, latestRow, err := ConvertFile(sch, filepath.Join(dir, "0", "0"), 0)
	require.NoError(t, err)
	require.NotNil(t, latestRow)
	require.Equal(t, latest.TSMilli, latestRow.TSMilli)

	r, err := tsmfile.Open(byteReaderAt(image), int64(len(image)))
	require.NoError(t, err)
	blocks, err := r.ReadIndexBlocks(len(sch.Columns))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, "speed", blocks[0].ColumnName)
	require.Len(t, blocks[0].Entries, schema.DataBlockCount)

	var wantSum int64
	var wantMax int32
	for i := 0; i < schema.DataBlockItemNums; i++ {
		v := int32(i % 100)
		wantSum += int64(v)
		if v > wantMax {
			wantMax = v
		}
	}
	require.Equal(t, wantSum, blocks[0].Entries[0].Sum)
	require.Equal(t, wantMax, blocks[0].Entries[0].Max)
}

func TestConvertFileRejectsShortStagingFile(t *testing.T) {
	dir := t.TempDir()
	sch := testSchema(t)
	path := filepath.Join(dir, "0")
	require.NoError(t, os.MkdirAll(path, 0o755))
	file := filepath.Join(path, "0")
	require.NoError(t, os.WriteFile(file, staging.EncodeHeader(len(sch.Columns)), 0o644))

	_, _, err := ConvertFile(sch, file, 0)
	require.Error(t, err)
}
