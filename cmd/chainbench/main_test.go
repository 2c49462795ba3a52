// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/chainmap"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestXorshift32(t *testing.T) {
	s := xorshift32(1)
	require.EqualValues(t, 270369, s.next())
	// The state never returns to zero.
	for i := 0; i < 1000; i++ {
		require.NotZero(t, s.next())
	}
}

func TestSymbol(t *testing.T) {
	require.Equal(t, "sym_000000ab", string(symbol(0xab)))
	require.Equal(t, "sym_ffffffff", string(symbol(^uint32(0))))
}

func TestRunWorkload(t *testing.T) {
	optionSets := map[string][]chainmap.Option[int]{
		"default": nil,
		"cellar+stack": {
			chainmap.WithCellar[int](),
			chainmap.WithFreeStack[int](),
		},
		"pow2": {chainmap.WithPowerOfTwo[int]()},
	}
	for name, opts := range optionSets {
		t.Run(name, func(t *testing.T) {
			cfg := workloadConfig{ops: 20000, seed: 42, insertRatio: 0.6, capacity: 64}
			res, err := runWorkload(cfg, opts, discard)
			require.NoError(t, err)
			require.EqualValues(t, 20000, res.Ops)
			require.EqualValues(t, res.Ops, res.Inserts+res.Lookups)
			require.EqualValues(t, 2, res.Scopes)
			require.LessOrEqual(t, res.Hits, res.Lookups)
			require.Greater(t, res.Inserts, 10000)
			require.GreaterOrEqual(t, res.Stats.Used+res.Stats.CellarUsed, 32)
			require.Greater(t, res.Stats.Capacity, 64)
		})
	}

	_, err := runWorkload(workloadConfig{ops: 1, capacity: 8}, nil, discard)
	require.Error(t, err)
	_, err = runWorkload(workloadConfig{ops: 1, seed: 1, insertRatio: 2, capacity: 8}, nil, discard)
	require.Error(t, err)
	_, err = runWorkload(workloadConfig{ops: 1, seed: 1, capacity: 0}, nil, discard)
	require.ErrorIs(t, err, chainmap.ErrInvalidArgument)
}

func TestRunProfile(t *testing.T) {
	cfg := profileConfig{
		sizes:     []int{5, 16},
		minCap:    8,
		maxCap:    32,
		searchCap: 31,
	}
	cfg.data = randomKeys(cfg.keysNeeded()*16, 1)

	report, err := runProfile(cfg, []chainmap.Option[int]{chainmap.WithCellar[int]()}, discard)
	require.NoError(t, err)

	require.Len(t, report.Insertions, 6)
	for _, p := range report.Insertions {
		require.EqualValues(t, int(float64(p.InitialCapacity)*profileLoad), p.Inserts)
		require.EqualValues(t, p.Inserts, p.Stats.Used+p.Stats.CellarUsed)
		require.Len(t, p.Intervals, intervals)
	}

	require.NotEmpty(t, report.Searches)
	for _, p := range report.Searches {
		require.EqualValues(t, p.Keys, p.AllHits)
		require.EqualValues(t, p.Keys-p.Keys/2, p.HalfHits)
		require.EqualValues(t, 0, p.NoneHits)
	}

	require.Len(t, report.Removes, 2)
	for _, p := range report.Removes {
		require.EqualValues(t, 29, p.Removes)
		require.EqualValues(t, p.Removes, p.Stats.Used+p.Stats.CellarUsed)
	}

	cfg.data = cfg.data[:10]
	_, err = runProfile(cfg, nil, discard)
	require.Error(t, err)
}

func TestUUIDKeys(t *testing.T) {
	data := uuidKeys(10)
	require.Len(t, data, 160)
	keys := keySet{data: data, size: 16}
	require.EqualValues(t, 10, keys.len())
	require.NotEqual(t, keys.key(0), keys.key(1))
}

func TestParseSizes(t *testing.T) {
	sizes, err := parseSizes("5, 16,50")
	require.NoError(t, err)
	require.Equal(t, []int{5, 16, 50}, sizes)
	_, err = parseSizes("5,x")
	require.Error(t, err)
}

func TestAggregate(t *testing.T) {
	require.EqualValues(t, 410, percent5(8191))
	require.EqualValues(t, 5, percent5(100))
	require.EqualValues(t, 1, percent5(1))

	timings := []time.Duration{1, 2, 3, 4, 5}
	r := aggregate(timings, 2)
	require.Len(t, r, intervals)
	require.EqualValues(t, []time.Duration{3, 7, 5}, r[:3])
	require.Zero(t, r[3])
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, workloadResult{Ops: 3, Inserts: 2}))
	require.True(t, strings.Contains(buf.String(), `"ops":3`), buf.String())
	require.True(t, strings.Contains(buf.String(), `"inserts":2`), buf.String())

	buf.Reset()
	renderTable(&buf, "map", statsHeader, [][]string{statsRow(chainmap.Stats{
		Capacity: 100, Used: 12345, Chains: 7,
	})})
	require.True(t, strings.HasPrefix(buf.String(), "map\n"))
	require.True(t, strings.Contains(buf.String(), "12345+0/100+0"), buf.String())
}
