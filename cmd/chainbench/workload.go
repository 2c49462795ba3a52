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
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/chainmap"
)

// scopeSize is the number of short-lived symbols inserted and then removed
// on every simulated scope exit.
const scopeSize = 32

// scopeEvery is the op mask at which a scope is simulated.
const scopeEvery = 0x3fff

// workloadConfig describes a symbol-table workload: a warm-up that inserts
// capacity/2 symbols, followed by ops random inserts and lookups, with a
// burst of scoped inserts and removes every 16K ops.
type workloadConfig struct {
	ops         int
	seed        uint32
	insertRatio float64
	capacity    int
}

type workloadResult struct {
	Ops       int            `json:"ops"`
	Inserts   int            `json:"inserts"`
	Lookups   int            `json:"lookups"`
	Hits      int            `json:"hits"`
	Scopes    int            `json:"scopes"`
	Elapsed   time.Duration  `json:"elapsed_ns"`
	OpsPerSec float64        `json:"ops_per_sec"`
	Stats     chainmap.Stats `json:"stats"`
}

// xorshift32 is Marsaglia's 32-bit xorshift generator. The zero state is a
// fixed point and must not be used.
type xorshift32 uint32

func (s *xorshift32) next() uint32 {
	x := uint32(*s)
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	*s = xorshift32(x)
	return x
}

func symbol(v uint32) []byte {
	return []byte(fmt.Sprintf("sym_%08x", v))
}

func runWorkload(
	cfg workloadConfig, opts []chainmap.Option[int], log *slog.Logger,
) (workloadResult, error) {
	if cfg.seed == 0 {
		return workloadResult{}, errors.New("seed must be non-zero")
	}
	if cfg.insertRatio < 0 || cfg.insertRatio > 1 {
		return workloadResult{}, fmt.Errorf("insert ratio %g out of [0, 1]", cfg.insertRatio)
	}

	m, err := chainmap.New[int](cfg.capacity, opts...)
	if err != nil {
		return workloadResult{}, err
	}
	defer m.Close(nil)

	for i := 0; i < cfg.capacity/2; i++ {
		if _, err := m.Put(symbol(uint32(i)), i); err != nil {
			return workloadResult{}, fmt.Errorf("warm-up: %w", err)
		}
	}
	log.Debug("warmed up", "entries", m.Len(), "capacity", m.Cap())

	var res workloadResult
	rng := xorshift32(cfg.seed)
	start := time.Now()
	for op := 0; op < cfg.ops; op++ {
		r := rng.next()
		if float64(r&0xffff)/0xffff < cfg.insertRatio {
			p, err := m.Put(symbol(r), op)
			if err != nil {
				return res, fmt.Errorf("op %d: %w", op, err)
			}
			*p = op
			res.Inserts++
		} else {
			if m.Search(symbol(rng.next())) != nil {
				res.Hits++
			}
			res.Lookups++
		}

		if op&scopeEvery == 0 {
			for i := uint32(0); i < scopeSize; i++ {
				if _, err := m.Put(symbol(r+i), int(i)); err != nil {
					return res, fmt.Errorf("op %d: scope: %w", op, err)
				}
			}
			for i := uint32(0); i < scopeSize; i++ {
				m.Delete(symbol(r + i))
			}
			res.Scopes++
			log.Debug("scope", "op", op, "entries", m.Len(), "capacity", m.Cap())
		}
		res.Ops++
	}
	res.Elapsed = time.Since(start)
	if secs := res.Elapsed.Seconds(); secs > 0 {
		res.OpsPerSec = float64(res.Ops) / secs
	}
	res.Stats = m.Stats()
	return res, nil
}

func workloadCommand(args []string) error {
	var (
		f    mapFlags
		cfg  workloadConfig
		seed uint
	)
	fs := flag.NewFlagSet("workload", flag.ContinueOnError)
	fs.IntVar(&cfg.ops, "n", 200000, "number of operations")
	fs.UintVar(&seed, "seed", 42, "non-zero random seed")
	fs.Float64Var(&cfg.insertRatio, "ratio", 0.6, "fraction of operations that are inserts")
	fs.IntVar(&cfg.capacity, "cap", 1021, "initial capacity")
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.seed = uint32(seed)

	opts, err := f.options()
	if err != nil {
		return err
	}
	res, err := runWorkload(cfg, opts, f.logger())
	if err != nil {
		return err
	}

	if f.json {
		return writeJSON(os.Stdout, res)
	}
	s := res.Stats
	renderTable(os.Stdout, "workload",
		[]string{"ops", "inserts", "lookups", "hits", "scopes", "time", "ops/sec"},
		[][]string{{
			strconv.Itoa(res.Ops),
			strconv.Itoa(res.Inserts),
			strconv.Itoa(res.Lookups),
			strconv.Itoa(res.Hits),
			strconv.Itoa(res.Scopes),
			res.Elapsed.String(),
			fmt.Sprintf("%.0f", res.OpsPerSec),
		}})
	renderTable(os.Stdout, "map", statsHeader, [][]string{statsRow(s)})
	return nil
}
