// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tsmfile

import (
	"bytes"

	"github.com/solidcoredata/vints/internal/codec"
	"github.com/solidcoredata/vints/internal/schema"
)

// Writer assembles one TSM file: callers append data blocks column by
// column, in schema order, then Finish produces the full byte image
// (data region, index region, footer).
//
// Writer follows the sticky-error convention used across this engine:
// once err is set, every method becomes a no-op and the error surfaces
// from Finish.
type Writer struct {
	err  error
	data bytes.Buffer

	blocks  []IndexBlock
	current *IndexBlock
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

// BeginColumn starts a new column's index block. Columns must be added in
// schema order; AddBlock calls after BeginColumn belong to this column
// until the next BeginColumn.
func (w *Writer) BeginColumn(name string, typ schema.Type) {
	if w.err != nil {
		return
	}
	if w.current != nil {
		w.blocks = append(w.blocks, *w.current)
	}
	w.current = &IndexBlock{ColumnName: name, ColumnType: typ}
}

// AddBlock appends one compressed data block (tag-prefixed payload) for
// the current column and records its index entry. offset/size in entry
// are filled in by AddBlock; callers only need to set Sum/SumF/Max/MaxF.
func (w *Writer) AddBlock(tag codec.Tag, payload []byte, entry IndexEntry) {
	if w.err != nil {
		return
	}
	if w.current == nil {
		w.err = errNoColumn
		return
	}
	entry.Offset = uint32(w.data.Len())
	entry.Size = uint32(len(payload) + 1)
	w.data.WriteByte(byte(tag))
	w.data.Write(payload)
	w.current.Entries = append(w.current.Entries, entry)
}

// Finish closes the current column, writes the index region and footer,
// and returns the complete file image.
func (w *Writer) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.current != nil {
		w.blocks = append(w.blocks, *w.current)
		w.current = nil
	}

	indexOffset := uint32(w.data.Len())
	out := make([]byte, 0, w.data.Len()+4096)
	out = append(out, w.data.Bytes()...)

	for _, b := range w.blocks {
		enc, err := EncodeIndexBlock(b)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	footerOffset := uint32(len(out))
	out = append(out, EncodeFooter(Footer{IndexOffset: indexOffset, FooterOffset: footerOffset})...)
	return out, nil
}

var errNoColumn = &writerError{"AddBlock called before BeginColumn"}

type writerError struct{ msg string }

func (e *writerError) Error() string { return "tsmfile: " + e.msg }
