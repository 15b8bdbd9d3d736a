// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import "math/bits"

// gorillaEncode XOR-compresses a run of float64 bit patterns using the
// classic Gorilla scheme (Pelkonen et al.): the first value is written in
// full; each subsequent value is XORed against its predecessor, and the
// result is encoded as either a single zero bit (identical to the
// predecessor), or a control bit plus the meaningful (non-zero) window of
// the XOR, reusing the previous window when it still covers the new XOR.
func gorillaEncode(bitsValues []uint64) []byte {
	w := &bitWriter{}
	if len(bitsValues) == 0 {
		return w.flush()
	}
	w.writeBits(bitsValues[0], 64)

	var prevLeading, prevTrailing = 64, 64 // out of range sentinel: no window yet
	prev := bitsValues[0]
	for _, v := range bitsValues[1:] {
		xor := prev ^ v
		if xor == 0 {
			w.writeBit(0)
			prev = v
			continue
		}
		w.writeBit(1)
		leading := bits.LeadingZeros64(xor)
		trailing := bits.TrailingZeros64(xor)
		if prevLeading != 64 && leading >= prevLeading && trailing >= prevTrailing {
			w.writeBit(0)
			meaningful := 64 - prevLeading - prevTrailing
			w.writeBits(xor>>uint(prevTrailing), uint(meaningful))
		} else {
			w.writeBit(1)
			if leading > 31 {
				leading = 31
			}
			w.writeBits(uint64(leading), 5)
			meaningful := 64 - leading - trailing
			// meaningful in [1, 64]; encode as meaningful-1 in 6 bits so
			// the full range fits.
			w.writeBits(uint64(meaningful-1), 6)
			w.writeBits(xor>>uint(trailing), uint(meaningful))
			prevLeading, prevTrailing = leading, trailing
		}
		prev = v
	}
	return w.flush()
}

// gorillaDecode is the inverse of gorillaEncode for a known value count.
func gorillaDecode(buf []byte, count int) []uint64 {
	out := make([]uint64, 0, count)
	if count == 0 {
		return out
	}
	r := newBitReader(buf)
	prev := r.readBits(64)
	out = append(out, prev)

	var prevLeading, prevTrailing int
	for len(out) < count {
		if r.readBit() == 0 {
			out = append(out, prev)
			continue
		}
		var leading, trailing, meaningful int
		if r.readBit() == 0 {
			leading, trailing = prevLeading, prevTrailing
			meaningful = 64 - leading - trailing
		} else {
			leading = int(r.readBits(5))
			meaningful = int(r.readBits(6)) + 1
			trailing = 64 - leading - meaningful
			prevLeading, prevTrailing = leading, trailing
		}
		bitsVal := r.readBits(uint(meaningful))
		xor := bitsVal << uint(trailing)
		prev = prev ^ xor
		out = append(out, prev)
	}
	return out
}
