// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vints

import (
	"log"

	"github.com/solidcoredata/vints/internal/schema"
)

// VinCodec decodes a vehicle identifier to its shard number and encodes
// the inverse. The default is schema.DecodeVin/EncodeVin, the fixed
// digit-suffix scheme carried from the original implementation (see
// DESIGN.md). Swappable for deployments with a different vehicle id
// convention.
type VinCodec interface {
	DecodeVin(vin [schema.VinLength]byte) uint16
	EncodeVin(shard uint16) [schema.VinLength]byte
}

type defaultVinCodec struct{}

func (defaultVinCodec) DecodeVin(vin [schema.VinLength]byte) uint16 { return schema.DecodeVin(vin) }
func (defaultVinCodec) EncodeVin(shard uint16) [schema.VinLength]byte {
	return schema.EncodeVin(shard)
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithVinCodec overrides the default vehicle-id <-> shard mapping.
func WithVinCodec(c VinCodec) Option {
	return func(e *Engine) { e.vinCodec = c }
}

// WithLogger sets the logger table creation and shutdown report through.
// The default is the standard library logger writing to its default
// destination, following the teacher's cmd/dca/main.go call site
// (log.Print, no structured fields).
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPoolThreads overrides the converter pool's concurrency, schema.PoolThreads
// by default.
func WithPoolThreads(n int64) Option {
	return func(e *Engine) { e.poolThreads = n }
}
