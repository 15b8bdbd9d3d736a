// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/tsmfile"
)

// IndexReceiver is notified of a newly converted file's decoded index
// blocks, in schema order, so the in-memory index manager can stay
// current without re-reading the file it just wrote.
type IndexReceiver interface {
	AddFile(shard uint16, ordinal int, blocks []tsmfile.IndexBlock)
}

// LatestReceiver is notified of the newest row observed while converting
// a shard's file, so the latest-row manager can update its slot.
type LatestReceiver interface {
	Observe(shard uint16, row schema.Row)
}

// Pool is the bounded worker pool that runs shard converter jobs
// (SPEC_FULL.md §4.D/§5): PoolThreads concurrent jobs, serialized within
// a shard by a per-shard mutex, parallel across shards. Jobs of one shard
// never run concurrently, but the order in which they run is not
// guaranteed to match submission order. A converter error is fatal and
// is returned by Wait — there is no retry.
type Pool struct {
	root string
	sch  *schema.Schema

	sem *semaphore.Weighted
	g   *errgroup.Group
	ctx context.Context

	index  IndexReceiver
	latest LatestReceiver

	shardMuMu sync.Mutex
	shardMu   map[uint16]*sync.Mutex
}

// NewPool constructs a converter pool rooted at dataDir, using threads
// concurrent workers (schema.PoolThreads in production).
func NewPool(ctx context.Context, root string, sch *schema.Schema, threads int64, index IndexReceiver, latest LatestReceiver) *Pool {
	g, ctx := errgroup.WithContext(ctx)
	return &Pool{
		root:    root,
		sch:     sch,
		sem:     semaphore.NewWeighted(threads),
		g:       g,
		ctx:     ctx,
		index:   index,
		latest:  latest,
		shardMu: make(map[uint16]*sync.Mutex),
	}
}

func (p *Pool) shardMutex(shard uint16) *sync.Mutex {
	p.shardMuMu.Lock()
	defer p.shardMuMu.Unlock()
	mu, ok := p.shardMu[shard]
	if !ok {
		mu = &sync.Mutex{}
		p.shardMu[shard] = mu
	}
	return mu
}

// Submit implements staging.Submitter: it schedules ordinals (already
// sorted ascending) for conversion on shard. The job runs on the pool's
// errgroup and acquires the shard's mutex before touching its files, so
// two batches for the same shard never convert concurrently.
func (p *Pool) Submit(shard uint16, ordinals []int) {
	p.g.Go(func() error {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return err
		}
		defer p.sem.Release(1)

		mu := p.shardMutex(shard)
		mu.Lock()
		defer mu.Unlock()

		for _, ordinal := range ordinals {
			if err := p.convertOne(shard, ordinal); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Pool) convertOne(shard uint16, ordinal int) error {
	stagingPath := StagingPath(p.root, shard, ordinal)
	image, latestRow, err := ConvertFile(p.sch, stagingPath, ordinal)
	if err != nil {
		return err
	}

	finalPath := CompactionPath(p.root, shard, ordinal)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("convert: creating compaction directory for shard %d: %w", shard, err)
	}
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, image, 0o644); err != nil {
		return fmt.Errorf("convert: writing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("convert: renaming %s into place: %w", tmpPath, err)
	}

	blocks, err := decodeFreshIndexBlocks(image, len(p.sch.Columns))
	if err != nil {
		return fmt.Errorf("convert: re-reading index of %s: %w", finalPath, err)
	}
	p.index.AddFile(shard, ordinal, blocks)
	if latestRow != nil {
		latestRow.Shard = shard
		p.latest.Observe(shard, *latestRow)
	}

	// The TSM file is durably in place and published to the index; the
	// staging file it was built from is now redundant and would
	// otherwise accumulate forever under no-compaction/<shard>/.
	if err := os.Remove(stagingPath); err != nil {
		return fmt.Errorf("convert: removing staging file %s: %w", stagingPath, err)
	}
	return nil
}

// Wait blocks until every submitted job has completed, returning the
// first fatal error encountered, if any.
func (p *Pool) Wait() error {
	return p.g.Wait()
}

func decodeFreshIndexBlocks(image []byte, columnCount int) ([]tsmfile.IndexBlock, error) {
	r, err := tsmfile.Open(byteReaderAt(image), int64(len(image)))
	if err != nil {
		return nil, err
	}
	return r.ReadIndexBlocks(columnCount)
}
