// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tsmfile reads and writes the columnar on-disk form produced by
// conversion (SPEC_FULL.md §4.B): per-column compressed data blocks,
// followed by per-column index blocks, followed by an 8-byte footer.
//
// Byte layout, little-endian throughout:
//
//	[data blocks for every (column, block_index) in schema order, block order]
//	[index block for column 0]
//	[index block for column 1]
//	...
//	[index_offset: u32][footer_offset: u32]
//
// An index block is `(count: u16, column_type: u8, name_len: u8)` followed
// by the column name bytes, followed by count fixed-size index entries.
// Each index entry is `[sum: 8B][max: 8B][offset: u32][size: u32]`.
package tsmfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/solidcoredata/vints/internal/codec"
	"github.com/solidcoredata/vints/internal/schema"
)

// IndexEntry describes one data block: its location in the file, its
// pre-computed reduction, and the column type that fills in sum/max.
type IndexEntry struct {
	Sum    int64   // integer columns only
	SumF   float64 // float columns only
	Max    int32   // integer columns only
	MaxF   float64 // float columns only
	Offset uint32
	Size   uint32
}

// IndexBlock is the fully decoded index for one column.
type IndexBlock struct {
	ColumnName string
	ColumnType schema.Type
	Entries    []IndexEntry
}

const indexEntrySize = 8 + 8 + 4 + 4 // sum, max, offset, size
const indexHeaderSize = 2 + 1 + 1    // count, column_type, name_len
const footerSize = 8

// Footer is the 8-byte trailer of a TSM file.
type Footer struct {
	IndexOffset  uint32
	FooterOffset uint32
}

// EncodeFooter serializes f.
func EncodeFooter(f Footer) []byte {
	buf := make([]byte, footerSize)
	binary.LittleEndian.PutUint32(buf[0:], f.IndexOffset)
	binary.LittleEndian.PutUint32(buf[4:], f.FooterOffset)
	return buf
}

// DecodeFooter parses the trailing 8 bytes of a TSM file.
func DecodeFooter(buf []byte) (Footer, error) {
	if len(buf) != footerSize {
		return Footer{}, &codec.ErrCorrupt{Reason: "footer must be exactly 8 bytes"}
	}
	return Footer{
		IndexOffset:  binary.LittleEndian.Uint32(buf[0:]),
		FooterOffset: binary.LittleEndian.Uint32(buf[4:]),
	}, nil
}

// EncodeIndexBlock serializes one column's index block.
func EncodeIndexBlock(b IndexBlock) ([]byte, error) {
	if len(b.ColumnName) > 255 {
		return nil, fmt.Errorf("tsmfile: column name %q exceeds 255 bytes", b.ColumnName)
	}
	if len(b.Entries) > 1<<16-1 {
		return nil, fmt.Errorf("tsmfile: index block for %q has too many entries", b.ColumnName)
	}
	out := make([]byte, indexHeaderSize+len(b.ColumnName)+len(b.Entries)*indexEntrySize)
	binary.LittleEndian.PutUint16(out[0:], uint16(len(b.Entries)))
	out[2] = byte(b.ColumnType)
	out[3] = byte(len(b.ColumnName))
	pos := indexHeaderSize
	copy(out[pos:], b.ColumnName)
	pos += len(b.ColumnName)
	for _, e := range b.Entries {
		switch b.ColumnType {
		case schema.Int32:
			binary.LittleEndian.PutUint64(out[pos:], uint64(e.Sum))
			binary.LittleEndian.PutUint64(out[pos+8:], uint64(uint32(e.Max)))
		case schema.Float64:
			binary.LittleEndian.PutUint64(out[pos:], floatBits(e.SumF))
			binary.LittleEndian.PutUint64(out[pos+8:], floatBits(e.MaxF))
		default:
			// String columns: sum/max unused, written as zero.
		}
		binary.LittleEndian.PutUint32(out[pos+16:], e.Offset)
		binary.LittleEndian.PutUint32(out[pos+20:], e.Size)
		pos += indexEntrySize
	}
	return out, nil
}

// DecodeIndexBlock parses one index block starting at buf[0] and returns
// the block plus the number of bytes consumed.
func DecodeIndexBlock(buf []byte) (IndexBlock, int, error) {
	if len(buf) < indexHeaderSize {
		return IndexBlock{}, 0, &codec.ErrCorrupt{Reason: "index block header truncated"}
	}
	count := int(binary.LittleEndian.Uint16(buf[0:]))
	colType := schema.Type(buf[2])
	nameLen := int(buf[3])
	pos := indexHeaderSize
	if len(buf) < pos+nameLen+count*indexEntrySize {
		return IndexBlock{}, 0, &codec.ErrCorrupt{Reason: "index block body truncated"}
	}
	name := string(buf[pos : pos+nameLen])
	pos += nameLen

	entries := make([]IndexEntry, count)
	for i := range entries {
		base := pos + i*indexEntrySize
		var e IndexEntry
		switch colType {
		case schema.Int32:
			e.Sum = int64(binary.LittleEndian.Uint64(buf[base:]))
			e.Max = int32(uint32(binary.LittleEndian.Uint64(buf[base+8:])))
		case schema.Float64:
			e.SumF = floatFromBits(binary.LittleEndian.Uint64(buf[base:]))
			e.MaxF = floatFromBits(binary.LittleEndian.Uint64(buf[base+8:]))
		}
		e.Offset = binary.LittleEndian.Uint32(buf[base+16:])
		e.Size = binary.LittleEndian.Uint32(buf[base+20:])
		entries[i] = e
	}
	pos += count * indexEntrySize
	return IndexBlock{ColumnName: name, ColumnType: colType, Entries: entries}, pos, nil
}

func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}

func floatFromBits(b uint64) float64 {
	return math.Float64frombits(b)
}
