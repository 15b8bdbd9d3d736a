// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vints

import "github.com/solidcoredata/vints/internal/schema"

// Write appends rows to table, routing each to its vehicle's shard. A
// row whose vehicle id does not decode to a valid shard is dropped, per
// the data model's "invalid ids are dropped" (SPEC_FULL.md §3) — unlike
// the query entry points below, a malformed vehicle id on write is not
// itself fatal to the call. Duplicate (shard, timestamp) writes are
// undefined, matching spec.md §6.
func (e *Engine) Write(table string, rows []Row) error {
	tbl, err := e.table(table)
	if err != nil {
		return err
	}
	for _, row := range rows {
		shard := e.vinCodec.DecodeVin(row.VehicleID)
		if shard == schema.InvalidShard {
			continue
		}
		w, err := tbl.writerFor(shard)
		if err != nil {
			return err
		}
		if err := w.Append(toSchemaRow(shard, row)); err != nil {
			return err
		}
	}
	return nil
}
