// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/solidcoredata/vints/internal/schema"
)

// Submitter hands sealed staging file ordinals for one shard off to
// conversion. internal/convert implements this; staging does not import
// it, to keep the dependency direction write-path-down.
type Submitter interface {
	Submit(shard uint16, ordinals []int)
}

// Writer is the per-shard flush writer of SPEC_FULL.md §4.C: one open
// append-mode staging file, sealed at FlushSize rows.
type Writer struct {
	mu sync.Mutex

	dir       string
	shard     uint16
	sch       *schema.Schema
	submitter Submitter

	file        *os.File
	rowCount    int
	nextOrdinal int
	pending     []int // sealed ordinals not yet handed to the converter
}

// NewWriter opens (or creates) the staging directory for shard and
// resumes from whatever ordinal is already on disk.
func NewWriter(dir string, shard uint16, sch *schema.Schema, submitter Submitter) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: creating shard directory: %w", err)
	}
	next, err := nextOrdinalOnDisk(dir)
	if err != nil {
		return nil, err
	}
	return &Writer{
		dir:         dir,
		shard:       shard,
		sch:         sch,
		submitter:   submitter,
		nextOrdinal: next,
	}, nil
}

func nextOrdinalOnDisk(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("staging: reading shard directory: %w", err)
	}
	max := -1
	for _, e := range entries {
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (w *Writer) path(ordinal int) string {
	return filepath.Join(w.dir, strconv.Itoa(ordinal))
}

// Append serializes row and appends it to the shard's current staging
// file, sealing and submitting for conversion when FlushSize is reached.
func (w *Writer) Append(row schema.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.openNewLocked(); err != nil {
			return err
		}
	}

	buf, err := EncodeRow(w.sch, row)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return fmt.Errorf("staging: writing row to shard %d file %d: %w", w.shard, w.nextOrdinal, err)
	}
	w.rowCount++

	if w.rowCount == schema.FlushSize {
		if err := w.sealLocked(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) openNewLocked() error {
	f, err := os.OpenFile(w.path(w.nextOrdinal), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("staging: opening shard %d file %d: %w", w.shard, w.nextOrdinal, err)
	}
	if _, err := f.Write(EncodeHeader(len(w.sch.Columns))); err != nil {
		f.Close()
		return fmt.Errorf("staging: writing header for shard %d file %d: %w", w.shard, w.nextOrdinal, err)
	}
	w.file = f
	w.rowCount = 0
	return nil
}

// sealLocked closes the current file, advances the ordinal, and submits
// completed batches of COMPACTION_BATCH sealed files to the converter.
func (w *Writer) sealLocked() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("staging: closing shard %d file %d: %w", w.shard, w.nextOrdinal, err)
	}
	sealed := w.nextOrdinal
	w.file = nil
	w.rowCount = 0
	w.nextOrdinal++
	w.pending = append(w.pending, sealed)

	if len(w.pending) >= schema.CompactionBatch {
		w.submitPendingLocked()
	}
	return nil
}

func (w *Writer) submitPendingLocked() {
	if len(w.pending) == 0 {
		return
	}
	batch := w.pending
	w.pending = nil
	sort.Ints(batch)
	w.submitter.Submit(w.shard, batch)
}

// Finalize closes any partial file and submits every remaining sealed
// file for conversion. It does not wait for conversion to complete; the
// orchestrator waits on the converter pool as a whole after finalizing
// every shard's writer.
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("staging: closing partial file for shard %d: %w", w.shard, err)
		}
		w.file = nil
	}
	w.submitPendingLocked()
	return nil
}

// SealedOrdinal reports the ordinal of the next staging file this writer
// will create, which equals the number of files sealed so far when the
// writer started from an empty directory.
func (w *Writer) SealedOrdinal() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextOrdinal
}
