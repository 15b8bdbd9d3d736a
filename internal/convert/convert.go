// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package convert implements the shard converter (SPEC_FULL.md §4.D): it
// transforms one sealed staging file into one immutable TSM file, column
// by column, and the bounded worker pool that runs these jobs.
package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/solidcoredata/vints/internal/codec"
	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/staging"
	"github.com/solidcoredata/vints/internal/tsmfile"
)

// columnBuilder accumulates one column's values across a file's blocks;
// writeTo computes each block's sum/max for its index entry.
type columnBuilder struct {
	col schema.Column

	i32 [][]int32   // [block][offset], for Int32 columns
	f64 [][]float64 // [block][offset], for Float64 columns
	str [][]string  // [block][offset], for String columns
}

func newColumnBuilder(col schema.Column) *columnBuilder {
	b := &columnBuilder{col: col}
	switch col.Type {
	case schema.Int32:
		b.i32 = make([][]int32, schema.DataBlockCount)
		for i := range b.i32 {
			b.i32[i] = make([]int32, schema.DataBlockItemNums)
		}
	case schema.Float64:
		b.f64 = make([][]float64, schema.DataBlockCount)
		for i := range b.f64 {
			b.f64[i] = make([]float64, schema.DataBlockItemNums)
		}
	case schema.String:
		b.str = make([][]string, schema.DataBlockCount)
		for i := range b.str {
			b.str[i] = make([]string, schema.DataBlockItemNums)
		}
	}
	return b
}

func (b *columnBuilder) set(blockIndex, offset int, v schema.Value) {
	switch b.col.Type {
	case schema.Int32:
		b.i32[blockIndex][offset] = v.I32
	case schema.Float64:
		b.f64[blockIndex][offset] = v.F64
	case schema.String:
		b.str[blockIndex][offset] = v.Str
	}
}

// writeTo encodes every block of this column into w, computing the
// index entry's sum/max from the decoded values it just encoded.
func (b *columnBuilder) writeTo(w *tsmfile.Writer) {
	w.BeginColumn(b.col.Name, b.col.Type)
	for block := 0; block < schema.DataBlockCount; block++ {
		switch b.col.Type {
		case schema.Int32:
			values := b.i32[block]
			var sum int64
			max := values[0]
			for _, v := range values {
				sum += int64(v)
				if v > max {
					max = v
				}
			}
			tag, payload := codec.EncodeInt32Block(values)
			w.AddBlock(tag, payload, tsmfile.IndexEntry{Sum: sum, Max: max})
		case schema.Float64:
			values := b.f64[block]
			var sum float64
			max := values[0]
			for _, v := range values {
				sum += v
				if v > max {
					max = v
				}
			}
			tag, payload := codec.EncodeFloat64Block(values)
			w.AddBlock(tag, payload, tsmfile.IndexEntry{SumF: sum, MaxF: max})
		case schema.String:
			values := b.str[block]
			tag, payload := codec.EncodeStringBlock(values)
			w.AddBlock(tag, payload, tsmfile.IndexEntry{})
		}
	}
}

// ConvertFile reads the staging file at stagingPath (file number ordinal)
// and produces the complete TSM file byte image. latestRow, if rows were
// present, is the row with the greatest timestamp seen in the file.
func ConvertFile(sch *schema.Schema, stagingPath string, ordinal int) (image []byte, latestRow *schema.Row, err error) {
	raw, err := os.ReadFile(stagingPath)
	if err != nil {
		return nil, nil, fmt.Errorf("convert: reading staging file %s: %w", stagingPath, err)
	}
	headerLen, err := staging.DecodeHeader(raw, sch)
	if err != nil {
		return nil, nil, fmt.Errorf("convert: %s: %w", stagingPath, err)
	}
	buf := raw[headerLen:]

	builders := make([]*columnBuilder, len(sch.Columns))
	for i, c := range sch.Columns {
		builders[i] = newColumnBuilder(c)
	}

	fileBase := ordinal * schema.FileWidth
	var rows int
	var latest schema.Row
	haveLatest := false

	for len(buf) > 0 {
		row, n, err := staging.DecodeRow(sch, buf)
		if err != nil {
			return nil, nil, fmt.Errorf("convert: %s: row %d: %w", stagingPath, rows, err)
		}
		buf = buf[n:]
		rows++

		if !haveLatest || row.TSMilli > latest.TSMilli {
			latest = row
			haveLatest = true
		}

		if !schema.InTimeRange(row.TSMilli) {
			continue
		}
		localIdx := int(schema.EncodeTSIdx(row.TSMilli)) - fileBase
		if localIdx < 0 || localIdx >= schema.FileWidth {
			continue
		}
		blockIndex := localIdx / schema.DataBlockItemNums
		offset := localIdx % schema.DataBlockItemNums
		for ci, col := range sch.Columns {
			builders[ci].set(blockIndex, offset, row.Columns[col.Name])
		}
	}

	if rows != schema.FlushSize {
		return nil, nil, fmt.Errorf("convert: %s: expected %d rows, found %d", stagingPath, schema.FlushSize, rows)
	}

	w := tsmfile.NewWriter()
	for _, b := range builders {
		b.writeTo(w)
	}
	image, err = w.Finish()
	if err != nil {
		return nil, nil, fmt.Errorf("convert: assembling TSM file for %s: %w", stagingPath, err)
	}
	if haveLatest {
		return image, &latest, nil
	}
	return image, nil, nil
}

// CompactionPath returns the path a shard's converted TSM file lives at.
func CompactionPath(root string, shard uint16, ordinal int) string {
	return filepath.Join(root, "compaction", fmt.Sprint(shard), fmt.Sprint(ordinal))
}

// StagingPath returns the path a shard's sealed staging file lives at.
func StagingPath(root string, shard uint16, ordinal int) string {
	return filepath.Join(root, "no-compaction", fmt.Sprint(shard), fmt.Sprint(ordinal))
}
