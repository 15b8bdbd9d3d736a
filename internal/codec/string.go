// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"github.com/solidcoredata/vints/internal/schema"
)

// EncodeStringBlock length-prefixes each value (one byte per
// SPEC_FULL.md's MaxStringBytes=255 cap) and concatenates them, then picks
// ZSTD over PLAIN whichever is smaller.
func EncodeStringBlock(values []string) (Tag, []byte) {
	plain := encodeStringPlain(values)
	compressed := zstdCompress(plain)
	if len(compressed) < len(plain) {
		return TagStringZstd, compressed
	}
	return TagStringPlain, plain
}

// DecodeStringBlock is the inverse of EncodeStringBlock.
func DecodeStringBlock(tag Tag, buf []byte, n int) ([]string, error) {
	switch tag {
	case TagStringZstd:
		raw, err := zstdDecompress(buf, n*8)
		if err != nil {
			return nil, &ErrCorrupt{Reason: "string ZSTD: " + err.Error()}
		}
		return decodeStringPlain(raw, n)
	case TagStringPlain:
		return decodeStringPlain(buf, n)
	default:
		return nil, &ErrCorrupt{Reason: "unrecognized string tag"}
	}
}

func encodeStringPlain(values []string) []byte {
	size := 0
	for _, s := range values {
		size += 1 + len(s)
	}
	buf := make([]byte, 0, size)
	for _, s := range values {
		if len(s) > schema.MaxStringBytes {
			s = s[:schema.MaxStringBytes]
		}
		buf = append(buf, byte(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

func decodeStringPlain(buf []byte, n int) ([]string, error) {
	out := make([]string, 0, n)
	pos := 0
	for len(out) < n {
		if pos >= len(buf) {
			return nil, &ErrCorrupt{Reason: "string block truncated"}
		}
		l := int(buf[pos])
		pos++
		if pos+l > len(buf) {
			return nil, &ErrCorrupt{Reason: "string block truncated"}
		}
		out = append(out, string(buf[pos:pos+l]))
		pos += l
	}
	return out, nil
}
