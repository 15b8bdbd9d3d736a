// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// A single shared encoder/decoder pair is reused across blocks; zstd's
// types are safe for concurrent use and expensive enough to construct
// that per-call creation would dominate conversion cost.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdOnce    sync.Once
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder) {
	zstdOnce.Do(func() {
		zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		zstdDecoder, _ = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder
}

// zstdCompress compresses src. Callers compare the result against len(src)
// and fall back to a PLAIN tag when compression does not shrink the block.
func zstdCompress(src []byte) []byte {
	enc, _ := zstdCodecs()
	return enc.EncodeAll(src, make([]byte, 0, len(src)))
}

func zstdDecompress(src []byte, sizeHint int) ([]byte, error) {
	_, dec := zstdCodecs()
	return dec.DecodeAll(src, make([]byte, 0, sizeHint))
}
