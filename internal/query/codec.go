// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"github.com/solidcoredata/vints/internal/codec"
	"github.com/solidcoredata/vints/internal/schema"
)

// Every data block holds exactly DataBlockItemNums values (SPEC_FULL.md
// §2's resolved constants make FlushSize == FileWidth, so conversion
// never produces a partial tail block); these wrappers fix that count so
// callers just pass tag and payload.

func codecDecodeInt32(tag codec.Tag, payload []byte) ([]int32, error) {
	return codec.DecodeInt32Block(tag, payload, schema.DataBlockItemNums)
}

func codecDecodeFloat64(tag codec.Tag, payload []byte) ([]float64, error) {
	return codec.DecodeFloat64Block(tag, payload, schema.DataBlockItemNums)
}

func codecDecodeString(tag codec.Tag, payload []byte) ([]string, error) {
	return codec.DecodeStringBlock(tag, payload, schema.DataBlockItemNums)
}
