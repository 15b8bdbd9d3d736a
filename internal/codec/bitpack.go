// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

// packBits bit-packs n values of width bits each (values[i] < 1<<bits for
// all i), MSB-first, padding the output to a 16-byte boundary as
// SPEC_FULL.md §4.A requires of the BITPACKING scheme.
func packBits(values []uint32, bits uint) []byte {
	w := &bitWriter{}
	for _, v := range values {
		w.writeBits(uint64(v), bits)
	}
	out := w.flush()
	if pad := (16 - len(out)%16) % 16; pad != 0 {
		out = append(out, make([]byte, pad)...)
	}
	return out
}

// unpackBits is the inverse of packBits for a known value count.
func unpackBits(buf []byte, bits uint, n int) []uint32 {
	r := newBitReader(buf)
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(r.readBits(bits))
	}
	return out
}

// bitWidth returns the minimum number of bits needed to represent values
// in [0, rangeWidth).
func bitWidth(rangeWidth uint32) uint {
	if rangeWidth <= 1 {
		return 0
	}
	var b uint
	// ceil(log2(rangeWidth))
	for v := rangeWidth - 1; v > 0; v >>= 1 {
		b++
	}
	return b
}
