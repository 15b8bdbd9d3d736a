// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package staging implements the per-shard flush writer (SPEC_FULL.md
// §4.C): append-only row staging files, sealed at FlushSize rows and
// handed to conversion.
package staging

import (
	"encoding/binary"
	"fmt"

	"github.com/solidcoredata/vints/internal/schema"
)

// fileMagic and fileVersion form the short per-staging-file header
// supplemented from original_source/ (SPEC_FULL.md §12): enough to catch
// a staging file read against the wrong schema without persisting the
// full schema text per file.
const (
	fileMagic   = uint32(0x76_54_53_00) // "vTS\0"
	fileVersion = uint8(1)
)

// EncodeHeader returns the fixed-size staging file header: magic,
// version, and the column count the file was written against.
func EncodeHeader(columnCount int) []byte {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint32(buf[0:], fileMagic)
	buf[4] = fileVersion
	buf[5] = byte(columnCount)
	return buf
}

// DecodeHeader validates a staging file header against sch and returns
// the header length in bytes.
func DecodeHeader(buf []byte, sch *schema.Schema) (int, error) {
	const headerLen = 6
	if len(buf) < headerLen {
		return 0, fmt.Errorf("staging: header truncated")
	}
	if binary.LittleEndian.Uint32(buf[0:]) != fileMagic {
		return 0, fmt.Errorf("staging: bad file magic")
	}
	if buf[4] != fileVersion {
		return 0, fmt.Errorf("staging: unsupported file version %d", buf[4])
	}
	if int(buf[5]) != len(sch.Columns) {
		return 0, fmt.Errorf("staging: header column count %d does not match schema (%d)", buf[5], len(sch.Columns))
	}
	return headerLen, nil
}

// EncodeRow serializes one row as `timestamp | int cols | float cols |
// (len,bytes) string cols`, each group in schema order, per SPEC_FULL.md
// §3's staging file layout.
func EncodeRow(sch *schema.Schema, row schema.Row) ([]byte, error) {
	size := 8
	size += len(sch.IntCols) * 4
	size += len(sch.FloatCols) * 8
	for _, ci := range sch.StringCols {
		v := row.Columns[sch.Columns[ci].Name]
		if len(v.Str) > schema.MaxStringBytes {
			return nil, fmt.Errorf("staging: column %q value exceeds %d bytes", sch.Columns[ci].Name, schema.MaxStringBytes)
		}
		size += 1 + len(v.Str)
	}

	buf := make([]byte, size)
	pos := 0
	binary.LittleEndian.PutUint64(buf[pos:], uint64(row.TSMilli))
	pos += 8
	for _, ci := range sch.IntCols {
		v := row.Columns[sch.Columns[ci].Name]
		binary.LittleEndian.PutUint32(buf[pos:], uint32(v.I32))
		pos += 4
	}
	for _, ci := range sch.FloatCols {
		v := row.Columns[sch.Columns[ci].Name]
		binary.LittleEndian.PutUint64(buf[pos:], floatBits(v.F64))
		pos += 8
	}
	for _, ci := range sch.StringCols {
		v := row.Columns[sch.Columns[ci].Name]
		buf[pos] = byte(len(v.Str))
		pos++
		copy(buf[pos:], v.Str)
		pos += len(v.Str)
	}
	return buf, nil
}

// DecodeRow is the inverse of EncodeRow. It returns the row (without
// Shard populated — callers that know the shard set it) and the number
// of bytes consumed from buf.
func DecodeRow(sch *schema.Schema, buf []byte) (schema.Row, int, error) {
	if len(buf) < 8 {
		return schema.Row{}, 0, fmt.Errorf("staging: row truncated before timestamp")
	}
	row := schema.Row{
		TSMilli: int64(binary.LittleEndian.Uint64(buf)),
		Columns: make(map[string]schema.Value, len(sch.Columns)),
	}
	pos := 8
	for _, ci := range sch.IntCols {
		if pos+4 > len(buf) {
			return schema.Row{}, 0, fmt.Errorf("staging: row truncated in int columns")
		}
		row.Columns[sch.Columns[ci].Name] = schema.Value{I32: int32(binary.LittleEndian.Uint32(buf[pos:]))}
		pos += 4
	}
	for _, ci := range sch.FloatCols {
		if pos+8 > len(buf) {
			return schema.Row{}, 0, fmt.Errorf("staging: row truncated in float columns")
		}
		row.Columns[sch.Columns[ci].Name] = schema.Value{F64: floatFromBits(binary.LittleEndian.Uint64(buf[pos:]))}
		pos += 8
	}
	for _, ci := range sch.StringCols {
		if pos >= len(buf) {
			return schema.Row{}, 0, fmt.Errorf("staging: row truncated before string length")
		}
		l := int(buf[pos])
		pos++
		if pos+l > len(buf) {
			return schema.Row{}, 0, fmt.Errorf("staging: row truncated in string columns")
		}
		row.Columns[sch.Columns[ci].Name] = schema.Value{Str: string(buf[pos : pos+l])}
		pos += l
	}
	return row, pos, nil
}

// RowSize returns the serialized size of row under sch, matching what
// EncodeRow would produce, without allocating.
func RowSize(sch *schema.Schema, row schema.Row) int {
	size := 8 + len(sch.IntCols)*4 + len(sch.FloatCols)*8
	for _, ci := range sch.StringCols {
		size += 1 + len(row.Columns[sch.Columns[ci].Name].Str)
	}
	return size
}
