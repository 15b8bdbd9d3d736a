// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/binary"

	"github.com/solidcoredata/vints/internal/schema"
)

// EncodeInt32Block picks SAME when every value is equal, BITPACKING when
// max-min is below BitpackingRangeLimit, and otherwise the smaller of
// SIMPLE8B_ZSTD and PLAIN, per SPEC_FULL.md §4.A, and returns the chosen tag
// together with its encoded payload (the tag itself is not included in the
// returned bytes; callers prefix it when writing the block).
func EncodeInt32Block(values []int32) (Tag, []byte) {
	if len(values) == 0 {
		return TagInt32Same, nil
	}
	min, max := values[0], values[0]
	same := true
	for _, v := range values[1:] {
		if v != values[0] {
			same = false
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if same {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(values[0]))
		return TagInt32Same, buf
	}

	rangeWidth := uint32(int64(max) - int64(min))
	if rangeWidth < schema.BitpackingRangeLimit {
		bits := bitWidth(rangeWidth + 1)
		rel := make([]uint32, len(values))
		for i, v := range values {
			rel[i] = uint32(int64(v) - int64(min))
		}
		packed := packBits(rel, bits)
		buf := make([]byte, 5+len(packed))
		binary.LittleEndian.PutUint32(buf, uint32(min))
		buf[4] = byte(bits)
		copy(buf[5:], packed)
		return TagInt32Bitpacking, buf
	}

	zz := make([]uint64, len(values))
	for i, v := range values {
		zz[i] = uint64(zigzagEncode32(v))
	}
	packed := simple8bEncode(zz)
	compressed := zstdCompress(packed)

	plain := encodeInt32Plain(values)
	if len(compressed) < len(plain) {
		return TagInt32Simple8bZstd, compressed
	}
	return TagInt32Plain, plain
}

// DecodeInt32Block is the inverse of EncodeInt32Block; n is the number of
// values the block is known to hold (DataBlockItemNums, or fewer for a
// final partial block).
func DecodeInt32Block(tag Tag, buf []byte, n int) ([]int32, error) {
	switch tag {
	case TagInt32Same:
		if len(buf) < 4 {
			return nil, &ErrCorrupt{Reason: "int32 SAME block too short"}
		}
		v := int32(binary.LittleEndian.Uint32(buf))
		out := make([]int32, n)
		for i := range out {
			out[i] = v
		}
		return out, nil
	case TagInt32Bitpacking:
		if len(buf) < 5 {
			return nil, &ErrCorrupt{Reason: "int32 BITPACKING block too short"}
		}
		min := int32(binary.LittleEndian.Uint32(buf))
		bits := uint(buf[4])
		rel := unpackBits(buf[5:], bits, n)
		out := make([]int32, n)
		for i, r := range rel {
			out[i] = min + int32(r)
		}
		return out, nil
	case TagInt32Simple8bZstd:
		raw, err := zstdDecompress(buf, n*8)
		if err != nil {
			return nil, &ErrCorrupt{Reason: "int32 SIMPLE8B_ZSTD: " + err.Error()}
		}
		zz := simple8bDecode(raw, n)
		out := make([]int32, n)
		for i, v := range zz {
			out[i] = zigzagDecode32(uint32(v))
		}
		return out, nil
	case TagInt32Plain:
		return decodeInt32Plain(buf, n)
	default:
		return nil, &ErrCorrupt{Reason: "unrecognized int32 tag"}
	}
}

func encodeInt32Plain(values []int32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

func decodeInt32Plain(buf []byte, n int) ([]int32, error) {
	if len(buf) < n*4 {
		return nil, &ErrCorrupt{Reason: "int32 PLAIN block too short"}
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}
