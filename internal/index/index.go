// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package index implements the in-memory per-shard index manager
// (SPEC_FULL.md §4.E): once a TSM file's index blocks are decoded, range
// and aggregate queries can tell which blocks of which files cover a
// time window without touching the file's data region.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/tsmfile"
)

// Range is a half-open [Start, End) slice of positions within a block.
type Range struct {
	Start int
	End   int
}

// Manager is read-mostly after connect: every AddFile call (from a
// conversion completing) takes a write lock, every query takes a read
// lock, so queries never block each other.
type Manager struct {
	sch *schema.Schema

	mu     sync.RWMutex
	shards map[uint16]map[int]map[string]tsmfile.IndexBlock
}

// NewManager returns an empty index for sch.
func NewManager(sch *schema.Schema) *Manager {
	return &Manager{
		sch:    sch,
		shards: make(map[uint16]map[int]map[string]tsmfile.IndexBlock),
	}
}

// AddFile records the decoded index blocks of one newly converted TSM
// file. Implements convert.IndexReceiver.
func (m *Manager) AddFile(shard uint16, ordinal int, blocks []tsmfile.IndexBlock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byCol := make(map[string]tsmfile.IndexBlock, len(blocks))
	for _, b := range blocks {
		byCol[b.ColumnName] = b
	}
	files, ok := m.shards[shard]
	if !ok {
		files = make(map[int]map[string]tsmfile.IndexBlock)
		m.shards[shard] = files
	}
	files[ordinal] = byCol
}

// LoadFromDisk populates the manager from whatever TSM files already
// exist under root/compaction/<shard>/ at engine open (SPEC_FULL.md's
// decode_from_file). It does not assume a fixed file count; it reads
// whatever ordinals are present.
func (m *Manager) LoadFromDisk(root string, shard uint16) error {
	dir := filepath.Join(root, "compaction", strconv.Itoa(int(shard)))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("index: reading compaction directory for shard %d: %w", shard, err)
	}

	ordinals := make([]int, 0, len(entries))
	for _, e := range entries {
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ordinals = append(ordinals, n)
	}
	sort.Ints(ordinals)

	for _, ordinal := range ordinals {
		path := filepath.Join(dir, strconv.Itoa(ordinal))
		if err := m.loadFile(shard, ordinal, path); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) loadFile(shard uint16, ordinal int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("index: opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("index: stat %s: %w", path, err)
	}
	r, err := tsmfile.Open(f, info.Size())
	if err != nil {
		return fmt.Errorf("index: %s: %w", path, err)
	}
	blocks, err := r.ReadIndexBlocks(len(m.sch.Columns))
	if err != nil {
		return fmt.Errorf("index: %s: %w", path, err)
	}
	m.AddFile(shard, ordinal, blocks)
	return nil
}

// FileOrdinals returns the ordinals converted so far for shard, ascending.
func (m *Manager) FileOrdinals(shard uint16) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := m.shards[shard]
	out := make([]int, 0, len(files))
	for ord := range files {
		out = append(out, ord)
	}
	sort.Ints(out)
	return out
}

// Query answers (shard, file, column, [loIdx, hiIdx]) -> index entries
// plus the in-block ranges that fall within the window. loIdx and hiIdx
// are file-local ts_idx positions (i.e. already reduced modulo
// FileWidth), and the window is inclusive on both ends per
// SPEC_FULL.md §4.E.
func (m *Manager) Query(shard uint16, ordinal int, column string, loIdx, hiIdx int) ([]tsmfile.IndexEntry, []Range) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files, ok := m.shards[shard]
	if !ok {
		return nil, nil
	}
	byCol, ok := files[ordinal]
	if !ok {
		return nil, nil
	}
	block, ok := byCol[column]
	if !ok {
		return nil, nil
	}

	if loIdx < 0 {
		loIdx = 0
	}
	if hiIdx >= schema.FileWidth {
		hiIdx = schema.FileWidth - 1
	}
	if loIdx > hiIdx {
		return nil, nil
	}

	firstBlock := loIdx / schema.DataBlockItemNums
	lastBlock := hiIdx / schema.DataBlockItemNums

	var entries []tsmfile.IndexEntry
	var ranges []Range
	for b := firstBlock; b <= lastBlock && b < len(block.Entries); b++ {
		blockStart := b * schema.DataBlockItemNums
		start := 0
		if loIdx > blockStart {
			start = loIdx - blockStart
		}
		end := schema.DataBlockItemNums
		blockEnd := blockStart + schema.DataBlockItemNums - 1
		if hiIdx < blockEnd {
			end = hiIdx - blockStart + 1
		}
		entries = append(entries, block.Entries[b])
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return entries, ranges
}

// FullyCovers reports whether r spans its whole block, meaning the
// block's index entry's precomputed sum/max can be used without decoding.
func FullyCovers(r Range) bool {
	return r.Start == 0 && r.End == schema.DataBlockItemNums
}
