// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package latest implements the latest-row manager (SPEC_FULL.md §4.F):
// one newest-row slot per shard, persisted across restarts, with a slow
// scan of staging files as a fallback before compaction has caught up.
package latest

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/solidcoredata/vints/internal/schema"
	"github.com/solidcoredata/vints/internal/staging"
)

// Manager holds the newest observed row per shard.
type Manager struct {
	sch *schema.Schema

	mu   sync.RWMutex
	rows map[uint16]schema.Row
}

// NewManager returns an empty latest-row table for sch.
func NewManager(sch *schema.Schema) *Manager {
	return &Manager{sch: sch, rows: make(map[uint16]schema.Row)}
}

// Observe records row as the shard's newest if it postdates whatever is
// already recorded. Implements convert.LatestReceiver.
func (m *Manager) Observe(shard uint16, row schema.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rows[shard]; !ok || row.TSMilli > cur.TSMilli {
		m.rows[shard] = row
	}
}

// Get returns the recorded latest row for shard, if any.
func (m *Manager) Get(shard uint16) (schema.Row, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[shard]
	return row, ok
}

// Persist serializes every shard's latest row to path, in the engine's
// own on-disk format: repeated (shard: u16, ts_millis: u64, length: u32,
// row bytes).
func (m *Manager) Persist(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shards := make([]uint16, 0, len(m.rows))
	for s := range m.rows {
		shards = append(shards, s)
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("latest: creating %s: %w", tmp, err)
	}
	for _, shard := range shards {
		row := m.rows[shard]
		buf, err := staging.EncodeRow(m.sch, row)
		if err != nil {
			f.Close()
			return fmt.Errorf("latest: encoding shard %d: %w", shard, err)
		}
		if err := writeEntry(f, shard, row.TSMilli, buf); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("latest: closing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func writeEntry(f *os.File, shard uint16, tsMilli int64, row []byte) error {
	header := make([]byte, 2+8+4)
	binary.LittleEndian.PutUint16(header[0:], shard)
	binary.LittleEndian.PutUint64(header[2:], uint64(tsMilli))
	binary.LittleEndian.PutUint32(header[10:], uint32(len(row)))
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("latest: writing entry header: %w", err)
	}
	if _, err := f.Write(row); err != nil {
		return fmt.Errorf("latest: writing entry body: %w", err)
	}
	return nil
}

// LoadFromDisk replaces the in-memory table with the contents of path.
// A missing file means no rows have ever been persisted.
func (m *Manager) LoadFromDisk(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("latest: reading %s: %w", path, err)
	}

	rows := make(map[uint16]schema.Row)
	pos := 0
	for pos < len(raw) {
		if pos+14 > len(raw) {
			return fmt.Errorf("latest: %s: truncated entry header", path)
		}
		shard := binary.LittleEndian.Uint16(raw[pos:])
		tsMilli := int64(binary.LittleEndian.Uint64(raw[pos+2:]))
		rowLen := int(binary.LittleEndian.Uint32(raw[pos+10:]))
		pos += 14
		if pos+rowLen > len(raw) {
			return fmt.Errorf("latest: %s: truncated entry body", path)
		}
		row, _, err := staging.DecodeRow(m.sch, raw[pos:pos+rowLen])
		if err != nil {
			return fmt.Errorf("latest: %s: decoding shard %d: %w", path, shard, err)
		}
		row.Shard = shard
		row.TSMilli = tsMilli
		rows[shard] = row
		pos += rowLen
	}

	m.mu.Lock()
	m.rows = rows
	m.mu.Unlock()
	return nil
}

// ScanStagingSlowPath scans every staging file on disk for shard,
// returning the row with the greatest timestamp. LatestQuery calls it on
// every lookup and keeps whichever of its result and the persisted
// latest table is newer.
func ScanStagingSlowPath(root string, shard uint16, sch *schema.Schema) (schema.Row, bool, error) {
	dir := filepath.Join(root, "no-compaction", strconv.Itoa(int(shard)))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return schema.Row{}, false, nil
	}
	if err != nil {
		return schema.Row{}, false, fmt.Errorf("latest: reading %s: %w", dir, err)
	}

	var best schema.Row
	found := false
	for _, e := range entries {
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return schema.Row{}, false, fmt.Errorf("latest: reading %s: %w", e.Name(), err)
		}
		headerLen, err := staging.DecodeHeader(raw, sch)
		if err != nil {
			return schema.Row{}, false, fmt.Errorf("latest: %s/%s: %w", dir, e.Name(), err)
		}
		buf := raw[headerLen:]
		for len(buf) > 0 {
			row, n, err := staging.DecodeRow(sch, buf)
			if err != nil {
				break // partial trailing row from a file still being written
			}
			buf = buf[n:]
			if !found || row.TSMilli > best.TSMilli {
				best = row
				found = true
			}
		}
	}
	if found {
		best.Shard = shard
	}
	return best, found, nil
}
