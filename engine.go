// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vints is an embeddable time-series storage engine for dense,
// vehicle-shaped telemetry: a fixed vehicle id decodes to a dense shard
// number, a millisecond timestamp decodes to an offset from a fixed
// base epoch, and rows land in per-shard append-only staging files
// before a background pool compacts them into immutable columnar TSM
// files. See SPEC_FULL.md for the full component design.
package vints

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/solidcoredata/vints/internal/convert"
	"github.com/solidcoredata/vints/internal/index"
	"github.com/solidcoredata/vints/internal/latest"
	"github.com/solidcoredata/vints/internal/query"
	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/staging"
)

// Engine owns every table rooted at one data directory. It is safe for
// concurrent use by multiple goroutines: writes and queries may run
// concurrently with each other and with Shutdown's drain.
type Engine struct {
	dataDir     string
	log         *log.Logger
	vinCodec    VinCodec
	poolThreads int64

	mu     sync.RWMutex
	tables map[string]*table
	closed bool
}

// table is the per-shard state bucket for one created table: one flush
// writer, one converter pool, one index manager, one latest manager and
// the query executor built on top of them, all keyed by shard.
type table struct {
	name string
	dir  string
	sch  *schema.Schema

	pool       *convert.Pool
	poolCancel context.CancelFunc
	idx        *index.Manager
	lat        *latest.Manager
	exec       *query.Executor

	writersMu sync.Mutex
	writers   map[uint16]*staging.Writer
}

// Connect opens (or creates) an engine rooted at dataDir, loading every
// table already present. If a table's "compaction finished" marker is
// present, its latest records and in-memory index are populated from
// disk before Connect returns; see DESIGN.md for why a missing marker
// means starting that table with an empty index rather than trusting an
// unclean shutdown's on-disk state.
func Connect(dataDir string, opts ...Option) (*Engine, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("vints: %w: data directory is empty", ErrInvalidSchema)
	}
	e := &Engine{
		dataDir:     dataDir,
		log:         log.Default(),
		vinCodec:    defaultVinCodec{},
		poolThreads: schema.PoolThreads,
		tables:      make(map[string]*table),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("vints: creating data directory: %w", err)
	}
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("vints: reading data directory: %w", err)
	}
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		tableDir := filepath.Join(dataDir, ent.Name())
		schPath := filepath.Join(tableDir, "schema.txt")
		if _, err := os.Stat(schPath); err != nil {
			continue
		}
		sch, err := readSchemaFile(schPath)
		if err != nil {
			return nil, fmt.Errorf("vints: loading table %q: %w", ent.Name(), err)
		}
		tbl, err := e.openTable(ent.Name(), tableDir, sch)
		if err != nil {
			return nil, fmt.Errorf("vints: loading table %q: %w", ent.Name(), err)
		}
		e.tables[ent.Name()] = tbl
	}
	return e, nil
}

func (e *Engine) openTable(name, dir string, sch *schema.Schema) (*table, error) {
	idx := index.NewManager(sch)
	lat := latest.NewManager(sch)

	markerPath := filepath.Join(dir, "finish_compaction")
	if _, err := os.Stat(markerPath); err == nil {
		if err := lat.LoadFromDisk(filepath.Join(dir, "latest_records")); err != nil {
			return nil, err
		}
		compactionDir := filepath.Join(dir, "compaction")
		shardEntries, err := os.ReadDir(compactionDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading compaction directory: %w", err)
		}
		for _, se := range shardEntries {
			shard, err := parseShardDirName(se.Name())
			if err != nil {
				continue
			}
			if err := idx.LoadFromDisk(dir, shard); err != nil {
				return nil, err
			}
		}
		// The marker only certifies the state as of the last clean
		// shutdown; remove it now so a crash partway through the next
		// session cannot be mistaken for another clean one.
		if err := os.Remove(markerPath); err != nil {
			return nil, fmt.Errorf("clearing compaction marker: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := convert.NewPool(ctx, dir, sch, e.poolThreadsOrDefault(), idx, lat)
	return &table{
		name:       name,
		dir:        dir,
		sch:        sch,
		pool:       pool,
		poolCancel: cancel,
		idx:        idx,
		lat:        lat,
		exec:       query.NewExecutor(dir, sch, idx),
		writers:    make(map[uint16]*staging.Writer),
	}, nil
}

func (e *Engine) poolThreadsOrDefault() int64 {
	if e.poolThreads <= 0 {
		return schema.PoolThreads
	}
	return e.poolThreads
}

func parseShardDirName(name string) (uint16, error) {
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, err
	}
	if n < 0 || n >= schema.ShardCount {
		return 0, fmt.Errorf("shard %d out of range", n)
	}
	return uint16(n), nil
}

// CreateTable creates a new table under the engine's data directory,
// persisting its schema and preparing its per-shard directories. It is
// an error to create a table that already exists.
func (e *Engine) CreateTable(name string, columns []Column) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if _, exists := e.tables[name]; exists {
		return fmt.Errorf("%w: %q", ErrTableExists, name)
	}
	sch, err := schema.New(columns)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	dir := filepath.Join(e.dataDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vints: creating table directory: %w", err)
	}
	if err := writeSchemaFile(filepath.Join(dir, "schema.txt"), sch); err != nil {
		return err
	}

	tbl, err := e.openTable(name, dir, sch)
	if err != nil {
		return err
	}
	e.tables[name] = tbl
	e.log.Printf("vints: created table %q with %d columns", name, len(sch.Columns))
	return nil
}

func (e *Engine) table(name string) (*table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	tbl, ok := e.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return tbl, nil
}

// Shutdown finalizes every table's writers (closing any partial staging
// file and submitting every sealed but unsubmitted file for conversion),
// waits for every converter pool to drain, persists latest records and
// writes each table's "compaction finished" marker. A partial staging
// file is not sealed or converted: it stays under no-compaction/ and is
// read through the staging scan. The engine must not be used after
// Shutdown returns.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	for name, tbl := range e.tables {
		if err := tbl.shutdown(); err != nil {
			return fmt.Errorf("vints: shutting down table %q: %w", name, err)
		}
		e.log.Printf("vints: table %q shut down cleanly", name)
	}
	return nil
}

func (t *table) shutdown() error {
	t.writersMu.Lock()
	for shard, w := range t.writers {
		if err := w.Finalize(); err != nil {
			t.writersMu.Unlock()
			return fmt.Errorf("finalizing shard %d: %w", shard, err)
		}
	}
	t.writersMu.Unlock()

	if err := t.pool.Wait(); err != nil {
		return fmt.Errorf("waiting for converter pool: %w", err)
	}
	t.poolCancel()

	if err := t.lat.Persist(filepath.Join(t.dir, "latest_records")); err != nil {
		return err
	}
	markerPath := filepath.Join(t.dir, "finish_compaction")
	if err := os.WriteFile(markerPath, []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing compaction marker: %w", err)
	}
	return nil
}

func (t *table) writerFor(shard uint16) (*staging.Writer, error) {
	t.writersMu.Lock()
	defer t.writersMu.Unlock()
	if w, ok := t.writers[shard]; ok {
		return w, nil
	}
	dir := filepath.Join(t.dir, "no-compaction", strconv.Itoa(int(shard)))
	w, err := staging.NewWriter(dir, shard, t.sch, t.pool)
	if err != nil {
		return nil, err
	}
	t.writers[shard] = w
	return w, nil
}
