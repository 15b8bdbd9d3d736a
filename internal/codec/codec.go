// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec implements the block-level compression schemes of
// SPEC_FULL.md §4.A: per data block, a 1-byte codec tag prefixes the
// payload and decoders switch on it. Every codec must restore all
// DataBlockItemNums values exactly.
package codec

import "fmt"

// Tag is the 1-byte discriminator prefixing every compressed block.
type Tag byte

const (
	TagInt32Same Tag = iota + 1
	TagInt32Bitpacking
	TagInt32Simple8bZstd
	TagInt32Plain

	TagFloatSame
	TagFloatGorillaZstd
	TagFloatPlain

	TagStringZstd
	TagStringPlain
)

func (t Tag) String() string {
	switch t {
	case TagInt32Same:
		return "INT32_SAME"
	case TagInt32Bitpacking:
		return "INT32_BITPACKING"
	case TagInt32Simple8bZstd:
		return "INT32_SIMPLE8B_ZSTD"
	case TagInt32Plain:
		return "INT32_PLAIN"
	case TagFloatSame:
		return "FLOAT_SAME"
	case TagFloatGorillaZstd:
		return "FLOAT_GORILLA_ZSTD"
	case TagFloatPlain:
		return "FLOAT_PLAIN"
	case TagStringZstd:
		return "STRING_ZSTD"
	case TagStringPlain:
		return "STRING_PLAIN"
	default:
		return fmt.Sprintf("Tag(%d)", byte(t))
	}
}

// ErrCorrupt is returned when a block's tag is unrecognized or its
// decoded length does not match the expected item count — spec.md §7
// kind 4, fatal to the caller.
type ErrCorrupt struct {
	Reason string
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("codec: corrupt block: %s", e.Reason)
}
