// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tsmfile

import (
	"io"

	"github.com/solidcoredata/vints/internal/codec"
)

// Reader answers random-access reads against one TSM file without holding
// the whole file in memory, per SPEC_FULL.md's read protocol: read the
// footer, seek to the index region, decode index blocks in schema order.
type Reader struct {
	ra   io.ReaderAt
	size int64
	foot Footer
}

// Open reads the trailing footer of a TSM file of the given size, backed
// by ra. It does not read the index or data regions.
func Open(ra io.ReaderAt, size int64) (*Reader, error) {
	if size < footerSize {
		return nil, &codec.ErrCorrupt{Reason: "file shorter than footer"}
	}
	buf := make([]byte, footerSize)
	if _, err := ra.ReadAt(buf, size-footerSize); err != nil {
		return nil, err
	}
	foot, err := DecodeFooter(buf)
	if err != nil {
		return nil, err
	}
	if int64(foot.IndexOffset) > size-footerSize || int64(foot.FooterOffset) != size-footerSize {
		return nil, &codec.ErrCorrupt{Reason: "footer offsets inconsistent with file size"}
	}
	return &Reader{ra: ra, size: size, foot: foot}, nil
}

// Footer returns the file's decoded footer.
func (r *Reader) Footer() Footer {
	return r.foot
}

// ReadIndexBlocks reads and decodes every index block in the file, in the
// order they were written (schema order).
func (r *Reader) ReadIndexBlocks(columnCount int) ([]IndexBlock, error) {
	regionLen := int64(r.foot.FooterOffset) - int64(r.foot.IndexOffset)
	buf := make([]byte, regionLen)
	if _, err := r.ra.ReadAt(buf, int64(r.foot.IndexOffset)); err != nil {
		return nil, err
	}
	blocks := make([]IndexBlock, 0, columnCount)
	pos := 0
	for len(blocks) < columnCount {
		if pos >= len(buf) {
			return nil, &codec.ErrCorrupt{Reason: "index region shorter than schema column count"}
		}
		b, n, err := DecodeIndexBlock(buf[pos:])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		pos += n
	}
	return blocks, nil
}

// ReadBlock reads the tag-prefixed payload for one index entry and splits
// off the tag byte.
func (r *Reader) ReadBlock(entry IndexEntry) (codec.Tag, []byte, error) {
	if entry.Size == 0 {
		return 0, nil, &codec.ErrCorrupt{Reason: "zero-size index entry"}
	}
	buf := make([]byte, entry.Size)
	if _, err := r.ra.ReadAt(buf, int64(entry.Offset)); err != nil {
		return 0, nil, err
	}
	return codec.Tag(buf[0]), buf[1:], nil
}
