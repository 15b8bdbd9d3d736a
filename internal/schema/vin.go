// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

// VinLength is the fixed width of a vehicle identifier, in bytes.
const VinLength = 17

// InvalidShard marks a vehicle id that could not be decoded to a shard.
const InvalidShard uint16 = 0xFFFF

// vinDigitOffset is the byte offset, within the 17-byte id, of the
// 4-digit decimal suffix that carries the shard number. Vehicle ids in
// this workload look like "LSVNV2182E054<NNNN>".
const vinDigitOffset = 13

// DecodeVin decodes a 17-byte vehicle id to its shard number in
// [0, ShardCount), or InvalidShard if the id's trailing 4 bytes are not
// all ASCII digits.
func DecodeVin(vin [VinLength]byte) uint16 {
	var n uint16
	for i := 0; i < 4; i++ {
		d := vin[vinDigitOffset+i]
		if d < '0' || d > '9' {
			return InvalidShard
		}
		n = n*10 + uint16(d-'0')
	}
	if n >= ShardCount {
		return InvalidShard
	}
	return n
}

// EncodeVin produces a canonical vehicle id for a shard number, the
// inverse of DecodeVin. It panics if shard is out of range, matching the
// original implementation's precondition (callers own shard validity).
func EncodeVin(shard uint16) [VinLength]byte {
	if shard >= ShardCount {
		panic("schema: shard out of range")
	}
	var vin [VinLength]byte
	const prefix = "LSVNV2182E054"
	copy(vin[:], prefix)
	suffix := shard
	for i := 3; i >= 0; i-- {
		vin[vinDigitOffset+i] = byte('0' + suffix%10)
		suffix /= 10
	}
	return vin
}
