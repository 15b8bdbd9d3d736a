// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command vints-demo wires together a vints.Engine the way a caller
// would: connect, create a table, write a handful of rows for one
// vehicle, run one query of each shape, and shut down cleanly. It is
// not a CLI for the engine — there is no flag surface for tables,
// schemas or queries, only a target directory to run the demo in.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/solidcoredata/vints"
	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/start"
)

var dataDir = flag.String("data", "", "directory to run the demo engine in (a temp directory is used if empty)")

func main() {
	flag.Parse()
	if err := start.Start(context.Background(), 5*time.Second, run); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	dir := *dataDir
	if dir == "" {
		d, err := os.MkdirTemp("", "vints-demo-")
		if err != nil {
			return fmt.Errorf("vints-demo: creating temp directory: %w", err)
		}
		dir = d
		log.Printf("vints-demo: running in %s", dir)
	}

	eng, err := vints.Connect(dir)
	if err != nil {
		return fmt.Errorf("vints-demo: connect: %w", err)
	}
	defer func() {
		if err := eng.Shutdown(); err != nil {
			log.Printf("vints-demo: shutdown: %v", err)
		}
	}()

	const table = "telemetry"
	err = eng.CreateTable(table, []vints.Column{
		{Name: "speed", Type: vints.Int32},
		{Name: "battery_pct", Type: vints.Float64},
		{Name: "state", Type: vints.String},
	})
	if err != nil && !errors.Is(err, vints.ErrTableExists) {
		return fmt.Errorf("vints-demo: create table: %w", err)
	}

	vehicle := schema.EncodeVin(7)
	const rowCount = 500
	rows := make([]vints.Row, rowCount)
	for i := 0; i < rowCount; i++ {
		rows[i] = vints.Row{
			VehicleID: vehicle,
			TSMilli:   schema.TSBaseMilli + int64(i)*1000,
			Columns: map[string]vints.Value{
				"speed":       {I32: int32(i % 120)},
				"battery_pct": {F64: 100 - float64(i)*0.01},
				"state":       {Str: "driving"},
			},
		}
	}
	if err := eng.Write(table, rows); err != nil {
		return fmt.Errorf("vints-demo: write: %w", err)
	}

	latest, err := eng.LatestQuery(table, [][vints.VinLength]byte{vehicle}, []string{"speed", "battery_pct"})
	if err != nil {
		return fmt.Errorf("vints-demo: latest query: %w", err)
	}
	log.Printf("vints-demo: latest: %+v", latest)

	tsLo := schema.TSBaseMilli
	tsHi := schema.TSBaseMilli + int64(rowCount)*1000
	window, err := eng.TimeRangeQuery(table, vehicle, tsLo, tsHi, []string{"speed"})
	if err != nil {
		return fmt.Errorf("vints-demo: time-range query: %w", err)
	}
	log.Printf("vints-demo: time range returned %d rows", len(window))

	maxSpeed, ok, err := eng.AggregateQuery(table, vehicle, tsLo, tsHi, "speed", vints.Max)
	if err != nil {
		return fmt.Errorf("vints-demo: aggregate query: %w", err)
	}
	if ok {
		log.Printf("vints-demo: max speed = %d", maxSpeed.I32)
	}

	buckets, err := eng.DownsampleQuery(table, vehicle, tsLo, tsHi, 50*1000, "speed", vints.Avg, vints.Filter{})
	if err != nil {
		return fmt.Errorf("vints-demo: downsample query: %w", err)
	}
	log.Printf("vints-demo: downsample produced %d buckets", len(buckets))

	return nil
}
