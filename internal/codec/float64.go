// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/binary"
	"math"
)

// EncodeFloat64Block picks the densest of SAME, GORILLA_ZSTD and PLAIN for
// values, per SPEC_FULL.md §4.A.
func EncodeFloat64Block(values []float64) (Tag, []byte) {
	if len(values) == 0 {
		return TagFloatSame, nil
	}
	same := true
	for _, v := range values[1:] {
		if v != values[0] || math.IsNaN(v) != math.IsNaN(values[0]) {
			same = false
			break
		}
	}
	if same {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(values[0]))
		return TagFloatSame, buf
	}

	bitsValues := make([]uint64, len(values))
	for i, v := range values {
		bitsValues[i] = math.Float64bits(v)
	}
	compressed := zstdCompress(gorillaEncode(bitsValues))

	plain := encodeFloat64Plain(values)
	if len(compressed) < len(plain) {
		return TagFloatGorillaZstd, compressed
	}
	return TagFloatPlain, plain
}

// DecodeFloat64Block is the inverse of EncodeFloat64Block.
func DecodeFloat64Block(tag Tag, buf []byte, n int) ([]float64, error) {
	switch tag {
	case TagFloatSame:
		if len(buf) < 8 {
			return nil, &ErrCorrupt{Reason: "float64 SAME block too short"}
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(buf))
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out, nil
	case TagFloatGorillaZstd:
		raw, err := zstdDecompress(buf, n*8)
		if err != nil {
			return nil, &ErrCorrupt{Reason: "float64 GORILLA_ZSTD: " + err.Error()}
		}
		bitsValues := gorillaDecode(raw, n)
		out := make([]float64, n)
		for i, b := range bitsValues {
			out[i] = math.Float64frombits(b)
		}
		return out, nil
	case TagFloatPlain:
		return decodeFloat64Plain(buf, n)
	default:
		return nil, &ErrCorrupt{Reason: "unrecognized float64 tag"}
	}
}

func encodeFloat64Plain(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloat64Plain(buf []byte, n int) ([]float64, error) {
	if len(buf) < n*8 {
		return nil, &ErrCorrupt{Reason: "float64 PLAIN block too short"}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out, nil
}
