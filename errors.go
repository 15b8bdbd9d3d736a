// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vints

import "errors"

// Sentinel errors for the "bad input" kind of SPEC_FULL.md §7, plus
// table lifecycle errors. Not-found conditions are never errors: they
// surface as empty results. There is no corruption sentinel: corruption,
// transient I/O and internal-invariant failures are wrapped as plain
// errors from the package that detects them (os, codec, tsmfile,
// convert) and propagate unchanged.
var (
	ErrUnknownTable       = errors.New("vints: unknown table")
	ErrTableExists        = errors.New("vints: table already exists")
	ErrInvalidSchema      = errors.New("vints: invalid schema")
	ErrInvalidShard       = errors.New("vints: invalid vehicle id")
	ErrEmptyRequest       = errors.New("vints: empty request")
	ErrMisalignedInterval = errors.New("vints: downsample interval does not evenly divide the range")
	ErrClosed             = errors.New("vints: engine is shut down")
)
