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
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/chainmap"
	"github.com/google/uuid"
)

const (
	// The load at which insertion profiles stop and search profiles fill to.
	profileLoad = 0.95
	// Timings are aggregated into intervals of 5% of the map capacity.
	intervals = 20
)

type profileConfig struct {
	sizes     []int
	minCap    int
	maxCap    int
	searchCap int
	// data is the key material. Keys of size n are cut from it back to back.
	data []byte
}

type insertionProfile struct {
	InitialCapacity int             `json:"initial_capacity"`
	KeySize         int             `json:"key_size"`
	Inserts         int             `json:"inserts"`
	Expansions      int             `json:"expansions"`
	Elapsed         time.Duration   `json:"elapsed_ns"`
	Intervals       []time.Duration `json:"intervals_ns"`
	Stats           chainmap.Stats  `json:"stats"`
}

type searchProfile struct {
	KeySize  int            `json:"key_size"`
	Keys     int            `json:"keys"`
	AllHits  int            `json:"all_hits"`
	All      time.Duration  `json:"all_ns"`
	HalfHits int            `json:"half_hits"`
	Half     time.Duration  `json:"half_ns"`
	NoneHits int            `json:"none_hits"`
	None     time.Duration  `json:"none_ns"`
	Stats    chainmap.Stats `json:"stats"`
}

type removeProfile struct {
	KeySize   int             `json:"key_size"`
	Removes   int             `json:"removes"`
	Elapsed   time.Duration   `json:"elapsed_ns"`
	Intervals []time.Duration `json:"intervals_ns"`
	Stats     chainmap.Stats  `json:"stats"`
}

type profileReport struct {
	Insertions []insertionProfile `json:"insertions"`
	Searches   []searchProfile    `json:"searches"`
	Removes    []removeProfile    `json:"removes"`
}

// keySet cuts fixed size keys out of a byte buffer.
type keySet struct {
	data []byte
	size int
}

func (k keySet) len() int {
	return len(k.data) / k.size
}

func (k keySet) key(i int) []byte {
	return k.data[i*k.size : (i+1)*k.size]
}

// percent5 returns the number of entries that make up 5% of capacity,
// rounded up.
func percent5(capacity int) int {
	return (capacity*5 + 99) / 100
}

// aggregate sums timings into intervals of n consecutive operations.
func aggregate(timings []time.Duration, n int) []time.Duration {
	r := make([]time.Duration, intervals)
	for i, d := range timings {
		j := i / n
		if j >= intervals {
			j = intervals - 1
		}
		r[j] += d
	}
	return r
}

// keysNeeded returns an upper bound on the number of keys a profile run
// draws from its key material. Search profiles look up twice as many keys as
// they insert, and rounding to a power of 2 may double the capacity.
func (cfg profileConfig) keysNeeded() int {
	return max(cfg.maxCap, 4*cfg.searchCap)
}

func runProfile(
	cfg profileConfig, opts []chainmap.Option[int], log *slog.Logger,
) (profileReport, error) {
	var report profileReport
	for _, size := range cfg.sizes {
		if size < 1 {
			return report, fmt.Errorf("invalid key size %d", size)
		}
		keys := keySet{data: cfg.data, size: size}
		if need := cfg.keysNeeded(); keys.len() < need {
			return report, fmt.Errorf("key size %d: %d bytes of key data hold %d keys, need %d",
				size, len(cfg.data), keys.len(), need)
		}

		for c := cfg.minCap; c <= cfg.maxCap; c *= 2 {
			p, err := profileInsertions(c-1, int(float64(c-1)*profileLoad), keys, opts)
			if err != nil {
				return report, err
			}
			log.Debug("insertions", "key_size", size, "initial_capacity", c-1,
				"expansions", p.Expansions, "elapsed", p.Elapsed)
			report.Insertions = append(report.Insertions, p)
		}

		searches, remove, err := profileGeneral(cfg.searchCap, keys, opts)
		if err != nil {
			return report, err
		}
		log.Debug("searches", "key_size", size, "steps", len(searches))
		report.Searches = append(report.Searches, searches...)
		report.Removes = append(report.Removes, remove)
	}
	return report, nil
}

// profileInsertions times inserts into a map created with capacity,
// counting how often it grows.
func profileInsertions(
	capacity, inserts int, keys keySet, opts []chainmap.Option[int],
) (insertionProfile, error) {
	m, err := chainmap.New[int](capacity, opts...)
	if err != nil {
		return insertionProfile{}, err
	}
	defer m.Close(nil)

	p := insertionProfile{InitialCapacity: capacity, KeySize: keys.size}
	timings := make([]time.Duration, inserts)
	for i := 0; i < inserts; i++ {
		prev := m.Cap()
		start := time.Now()
		_, err := m.Put(keys.key(i), i)
		timings[i] = time.Since(start)
		if err != nil {
			return p, fmt.Errorf("insert %d: %w", i, err)
		}
		if m.Cap() > prev {
			p.Expansions++
		}
		p.Elapsed += timings[i]
	}
	p.Inserts = inserts
	p.Intervals = aggregate(timings, percent5(m.Cap()))
	p.Stats = m.Stats()
	return p, nil
}

// profileGeneral fills a map of the given capacity in steps of 5% up to the
// profile load. After every step it times lookups of keys that are all,
// half, and none present. It finishes by timing the removal of every key.
func profileGeneral(
	capacity int, keys keySet, opts []chainmap.Option[int],
) ([]searchProfile, removeProfile, error) {
	m, err := chainmap.New[int](capacity, opts...)
	if err != nil {
		return nil, removeProfile{}, err
	}
	defer m.Close(nil)

	limit := int(float64(m.Cap()) * profileLoad)
	step := percent5(m.Cap())
	var searches []searchProfile
	for n := 0; n < limit; {
		for j := 0; j < step && n < limit; j, n = j+1, n+1 {
			if _, err := m.Put(keys.key(n), n); err != nil {
				return nil, removeProfile{}, fmt.Errorf("insert %d: %w", n, err)
			}
		}
		p := searchProfile{KeySize: keys.size, Keys: n, Stats: m.Stats()}
		p.AllHits, p.All = timeSearches(m, keys, 0, n)
		p.HalfHits, p.Half = timeSearches(m, keys, n/2, n)
		p.NoneHits, p.None = timeSearches(m, keys, n, n)
		searches = append(searches, p)
	}

	remove := removeProfile{KeySize: keys.size, Stats: m.Stats()}
	timings := make([]time.Duration, 0, m.Len())
	for i, n := 0, m.Len(); i < n; i++ {
		start := time.Now()
		_, ok := m.Delete(keys.key(i))
		timings = append(timings, time.Since(start))
		if ok {
			remove.Removes++
		}
	}
	for _, d := range timings {
		remove.Elapsed += d
	}
	remove.Intervals = aggregate(timings, step)
	return searches, remove, nil
}

func timeSearches(m *chainmap.Map[int], keys keySet, from, n int) (hits int, elapsed time.Duration) {
	for i := from; i < from+n; i++ {
		k := keys.key(i)
		start := time.Now()
		v := m.Search(k)
		elapsed += time.Since(start)
		if v != nil {
			hits++
		}
	}
	return hits, elapsed
}

// uuidKeys returns n random (version 4) UUIDs back to back.
func uuidKeys(n int) []byte {
	data := make([]byte, 0, n*16)
	for i := 0; i < n; i++ {
		u := uuid.New()
		data = append(data, u[:]...)
	}
	return data
}

func randomKeys(n int, seed int64) []byte {
	data := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("key size %q: %w", f, err)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

func profileCommand(args []string) error {
	var (
		f        mapFlags
		cfg      profileConfig
		dataPath string
		sizes    string
		useUUIDs bool
		seed     int64
	)
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.StringVar(&dataPath, "data", "", "file to cut keys from (default: random bytes)")
	fs.StringVar(&sizes, "sizes", "5,16,50,100,251,379,610", "comma separated key sizes")
	fs.BoolVar(&useUUIDs, "uuid", false, "use random 16 byte UUID keys instead of -sizes")
	fs.Int64Var(&seed, "seed", 1, "seed for random key data")
	fs.IntVar(&cfg.minCap, "min-cap", 8, "smallest capacity for insertion profiles")
	fs.IntVar(&cfg.maxCap, "max-cap", 8192, "largest capacity for insertion profiles")
	fs.IntVar(&cfg.searchCap, "search-cap", 8191, "capacity for search and remove profiles")
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.minCap < 2 || cfg.maxCap < cfg.minCap || cfg.searchCap < 1 {
		return fmt.Errorf("invalid capacities: min=%d max=%d search=%d",
			cfg.minCap, cfg.maxCap, cfg.searchCap)
	}

	if useUUIDs {
		cfg.sizes = []int{16}
		cfg.data = uuidKeys(cfg.keysNeeded())
	} else {
		var err error
		if cfg.sizes, err = parseSizes(sizes); err != nil {
			return err
		}
		if dataPath != "" {
			if cfg.data, err = os.ReadFile(dataPath); err != nil {
				return err
			}
		} else {
			cfg.data = randomKeys(cfg.keysNeeded()*slices.Max(cfg.sizes), seed)
		}
	}

	opts, err := f.options()
	if err != nil {
		return err
	}
	log := f.logger()
	log.Info("profiling", "sizes", cfg.sizes, "hash", f.hash,
		"pow2", f.powerOfTwo, "cellar", f.cellar, "stack", f.freeStack)
	report, err := runProfile(cfg, opts, log)
	if err != nil {
		return err
	}

	if f.json {
		return writeJSON(os.Stdout, report)
	}
	renderProfile(report)
	return nil
}

func renderProfile(report profileReport) {
	var rows [][]string
	for _, p := range report.Insertions {
		rows = append(rows, append([]string{
			strconv.Itoa(p.InitialCapacity),
			strconv.Itoa(p.KeySize),
			strconv.Itoa(p.Inserts),
			strconv.Itoa(p.Expansions),
			p.Elapsed.String(),
		}, statsRow(p.Stats)...))
	}
	renderTable(os.Stdout, "insertions",
		append([]string{"initial cap", "key size", "inserts", "expansions", "time"}, statsHeader...),
		rows)

	rows = rows[:0]
	for _, p := range report.Searches {
		rows = append(rows, append([]string{
			strconv.Itoa(p.KeySize),
			strconv.Itoa(p.Keys),
			fmt.Sprintf("%d %s", p.AllHits, p.All),
			fmt.Sprintf("%d %s", p.HalfHits, p.Half),
			fmt.Sprintf("%d %s", p.NoneHits, p.None),
		}, statsRow(p.Stats)...))
	}
	renderTable(os.Stdout, "searches",
		append([]string{"key size", "keys", "all present", "half present", "none present"}, statsHeader...),
		rows)

	rows = rows[:0]
	for _, p := range report.Removes {
		rows = append(rows, append([]string{
			strconv.Itoa(p.KeySize),
			strconv.Itoa(p.Removes),
			p.Elapsed.String(),
		}, statsRow(p.Stats)...))
	}
	renderTable(os.Stdout, "removes",
		append([]string{"key size", "removes", "time"}, statsHeader...),
		rows)
}
