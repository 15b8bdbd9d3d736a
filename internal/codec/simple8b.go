// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

// Simple-8b packs runs of small non-negative integers into 64-bit words:
// a 4-bit selector picks how many of the remaining 60 payload bits each
// value gets, trading value range for density. Selectors are tried from
// the most values-per-word down, so the greedy encoder always prefers the
// densest selector that fits the next run.
var simple8bSelectors = [16]struct {
	bits uint
	n    int
}{
	{0, 240}, {0, 120}, {1, 60}, {2, 30}, {3, 20}, {4, 15}, {5, 12}, {6, 10},
	{7, 8}, {8, 7}, {9, 6}, {10, 5}, {12, 4}, {15, 3}, {20, 2}, {60, 1},
}

const simple8bPayloadMask = (uint64(1) << 60) - 1

// simple8bEncode packs values (each value must fit in 60 bits) into a
// slice of 64-bit words, returned as little-endian bytes.
func simple8bEncode(values []uint64) []byte {
	words := make([]uint64, 0, len(values)/4+1)
	pos := 0
	for pos < len(values) {
		sel, n := simple8bPickSelector(values[pos:])
		bits := simple8bSelectors[sel].bits
		var payload uint64
		for i := 0; i < n; i++ {
			payload |= (values[pos+i] & ((uint64(1) << bits) - 1)) << (uint(i) * bits)
		}
		if bits == 0 {
			payload = 0
		}
		words = append(words, (uint64(sel)<<60)|(payload&simple8bPayloadMask))
		pos += n
	}
	out := make([]byte, len(words)*8)
	for i, w := range words {
		putUint64LE(out[i*8:], w)
	}
	return out
}

// simple8bPickSelector finds the selector packing the most leading values
// of vals into one word. Selectors are tried in order of decreasing
// values-per-word; the first whose leading run fits wins. When fewer
// values remain than the selector's full width, the remaining slots of
// that word are zero-padded — harmless, because the decoder only ever
// asks for the known total item count and ignores trailing padding.
func simple8bPickSelector(vals []uint64) (sel int, n int) {
	for s := 0; s < len(simple8bSelectors); s++ {
		bits := simple8bSelectors[s].bits
		cnt := simple8bSelectors[s].n
		if cnt > len(vals) {
			cnt = len(vals)
		}
		if cnt == 0 {
			continue
		}
		limit := uint64(1) << bits
		ok := true
		for i := 0; i < cnt; i++ {
			if bits == 0 {
				if vals[i] != 0 {
					ok = false
					break
				}
			} else if vals[i] >= limit {
				ok = false
				break
			}
		}
		if ok {
			return s, cnt
		}
	}
	// Every multi-value selector failed (values too large); selector 15
	// (60 bits, 1 value) always succeeds since inputs are <= 33 bits.
	return 15, 1
}

// simple8bDecode unpacks exactly count values from a little-endian byte
// stream produced by simple8bEncode.
func simple8bDecode(buf []byte, count int) []uint64 {
	out := make([]uint64, 0, count)
	for i := 0; i+8 <= len(buf) && len(out) < count; i += 8 {
		word := getUint64LE(buf[i:])
		sel := int(word >> 60)
		bits := simple8bSelectors[sel].bits
		n := simple8bSelectors[sel].n
		payload := word & simple8bPayloadMask
		for j := 0; j < n && len(out) < count; j++ {
			if bits == 0 {
				out = append(out, 0)
				continue
			}
			v := (payload >> (uint(j) * bits)) & ((uint64(1) << bits) - 1)
			out = append(out, v)
		}
	}
	return out
}

func putUint64LE(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

func getUint64LE(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

// zigzagEncode32 maps a signed 32-bit value to an unsigned 32-bit value
// so that small magnitudes (positive or negative) map to small unsigned
// values, as Simple-8b only packs non-negative integers.
func zigzagEncode32(v int32) uint32 {
	return uint32((v << 1) ^ (v >> 31))
}

func zigzagDecode32(v uint32) int32 {
	return int32(v>>1) ^ -int32(v&1)
}
