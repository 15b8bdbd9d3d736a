// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tsmfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solidcoredata/vints/internal/codec"
	"github.com/solidcoredata/vints/internal/schema"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()

	w.BeginColumn("speed", schema.Int32)
	tag, payload := codec.EncodeInt32Block([]int32{10, 20, 30})
	w.AddBlock(tag, payload, IndexEntry{Sum: 60, Max: 30})

	w.BeginColumn("temp", schema.Float64)
	ftag, fpayload := codec.EncodeFloat64Block([]float64{1.5, 2.5})
	w.AddBlock(ftag, fpayload, IndexEntry{SumF: 4, MaxF: 2.5})

	w.BeginColumn("state", schema.String)
	stag, spayload := codec.EncodeStringBlock([]string{"on", "off"})
	w.AddBlock(stag, spayload, IndexEntry{})

	require.NoError(t, w.Err())
	image, err := w.Finish()
	require.NoError(t, err)

	r, err := Open(bytes.NewReader(image), int64(len(image)))
	require.NoError(t, err)

	blocks, err := r.ReadIndexBlocks(3)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	require.Equal(t, "speed", blocks[0].ColumnName)
	require.Equal(t, schema.Int32, blocks[0].ColumnType)
	require.Len(t, blocks[0].Entries, 1)
	require.EqualValues(t, 60, blocks[0].Entries[0].Sum)
	require.EqualValues(t, 30, blocks[0].Entries[0].Max)

	gotTag, gotPayload, err := r.ReadBlock(blocks[0].Entries[0])
	require.NoError(t, err)
	decoded, err := codec.DecodeInt32Block(gotTag, gotPayload, 3)
	require.NoError(t, err)
	require.Equal(t, []int32{10, 20, 30}, decoded)

	require.Equal(t, "temp", blocks[1].ColumnName)
	fGotTag, fGotPayload, err := r.ReadBlock(blocks[1].Entries[0])
	require.NoError(t, err)
	fDecoded, err := codec.DecodeFloat64Block(fGotTag, fGotPayload, 2)
	require.NoError(t, err)
	require.Equal(t, []float64{1.5, 2.5}, fDecoded)

	require.Equal(t, "state", blocks[2].ColumnName)
	sGotTag, sGotPayload, err := r.ReadBlock(blocks[2].Entries[0])
	require.NoError(t, err)
	sDecoded, err := codec.DecodeStringBlock(sGotTag, sGotPayload, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"on", "off"}, sDecoded)
}

func TestFooterRejectsWrongSize(t *testing.T) {
	_, err := DecodeFooter([]byte{1, 2, 3})
	require.Error(t, err)
}
