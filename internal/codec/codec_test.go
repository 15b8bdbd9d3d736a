// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInt32RoundTrip(t *testing.T) {
	cases := map[string][]int32{
		"all_same":       repeatInt32(42, 2000),
		"all_zero":       repeatInt32(0, 2000),
		"small_range":    sequenceInt32(-10, 2000),
		"negative_run":   sequenceInt32(-1000, 2000),
		"wide_random":    randomInt32(2000, math.MinInt32, math.MaxInt32),
		"single_value":   {7},
		"two_values":     {-1, 1},
		"partial_block":  randomInt32(37, -100, 100),
		"boundary_range": sequenceInt32(math.MaxInt32-2000, 2000),
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			tag, buf := EncodeInt32Block(values)
			got, err := DecodeInt32Block(tag, buf, len(values))
			require.NoError(t, err)
			require.Equal(t, values, got)
		})
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	cases := map[string][]float64{
		"all_same":      repeatFloat64(3.5, 2000),
		"all_nan":       repeatFloat64(math.NaN(), 2000),
		"linear_ramp":   linearFloat64(0, 0.1, 2000),
		"wide_random":   randomFloat64(2000),
		"single_value":  {1.25},
		"partial_block": randomFloat64(13),
		"with_nan_mix":  mixedNaNFloat64(2000),
		"near_constant": alternatingAdjacentFloat64(1.0, 2000),
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			tag, buf := EncodeFloat64Block(values)
			got, err := DecodeFloat64Block(tag, buf, len(values))
			require.NoError(t, err)
			requireFloat64SliceEqual(t, values, got)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	cases := map[string][]string{
		"all_equal":  repeatString("idle", 2000),
		"varied":     varyStrings(2000),
		"empty_runs": repeatString("", 2000),
		"single":     {"only"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			tag, buf := EncodeStringBlock(values)
			got, err := DecodeStringBlock(tag, buf, len(values))
			require.NoError(t, err)
			require.Equal(t, values, got)
		})
	}
}

func TestBitPackRoundTrip(t *testing.T) {
	values := make([]uint32, 2000)
	for i := range values {
		values[i] = uint32(i % 63)
	}
	packed := packBits(values, bitWidth(63))
	got := unpackBits(packed, bitWidth(63), len(values))
	require.Equal(t, values, got)
}

func TestSimple8bRoundTrip(t *testing.T) {
	values := make([]uint64, 2000)
	for i := range values {
		values[i] = uint64(i % 500)
	}
	buf := simple8bEncode(values)
	got := simple8bDecode(buf, len(values))
	require.Equal(t, values, got)
}

func repeatInt32(v int32, n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sequenceInt32(start int32, n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = start + int32(i%64)
	}
	return out
}

func randomInt32(n int, lo, hi int64) []int32 {
	r := rand.New(rand.NewSource(1))
	out := make([]int32, n)
	span := hi - lo
	for i := range out {
		out[i] = int32(lo + r.Int63n(span))
	}
	return out
}

func repeatFloat64(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func linearFloat64(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func randomFloat64(n int) []float64 {
	r := rand.New(rand.NewSource(2))
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()*1000 - 500
	}
	return out
}

func mixedNaNFloat64(n int) []float64 {
	out := linearFloat64(0, 1, n)
	for i := 0; i < n; i += 97 {
		out[i] = math.NaN()
	}
	return out
}

// alternatingAdjacentFloat64 alternates between v and its next
// representable value, so consecutive XORs differ only in the lowest
// mantissa bit: leading = 63, past the 5-bit field Gorilla encodes it
// in, exercising the clamp-to-31 path.
func alternatingAdjacentFloat64(v float64, n int) []float64 {
	next := math.Nextafter(v, v+1)
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = v
		} else {
			out[i] = next
		}
	}
	return out
}

func repeatString(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func varyStrings(n int) []string {
	words := []string{"on", "off", "idle", "charging", "fault", ""}
	out := make([]string, n)
	for i := range out {
		out[i] = words[i%len(words)]
	}
	return out
}

func requireFloat64SliceEqual(t *testing.T, want, got []float64) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for i := range want {
		if math.IsNaN(want[i]) {
			require.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		require.Equal(t, want[i], got[i], "index %d", i)
	}
}
