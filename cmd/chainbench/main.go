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

// chainbench drives a chainmap.Map through synthetic workloads and reports
// timings along with the chain statistics of the resulting map.
//
//	chainbench workload [-n ops] [-seed s] [-ratio r] [-cap c] [map flags]
//	chainbench profile [-data file] [-sizes 5,16,...] [-max-cap c] [map flags]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/chainmap"
	"github.com/cockroachdb/chainmap/hasher"
	color "github.com/logrusorgru/aurora/v3"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "workload":
		err = workloadCommand(os.Args[2:])
	case "profile":
		err = profileCommand(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		perrorf("unknown command %q", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		perrorf("%s: %s", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <workload|profile> [flags]\n", os.Args[0])
}

func perrorf(format string, args ...interface{}) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	_, _ = fmt.Fprintf(os.Stderr, color.Red(format).String(), args...)
}

// mapFlags are the flags shared by every command that select how the Map
// under test is built and how results are reported.
type mapFlags struct {
	hash       string
	powerOfTwo bool
	cellar     bool
	freeStack  bool
	json       bool
	verbose    bool
}

func (f *mapFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.hash, "hash", "murmur3",
		"hash function: "+strings.Join(hasher.Names(), ", "))
	fs.BoolVar(&f.powerOfTwo, "pow2", false, "round capacities up to powers of 2")
	fs.BoolVar(&f.cellar, "cellar", false, "reserve a cellar for colliding entries")
	fs.BoolVar(&f.freeStack, "stack", false, "track empty buckets on a free stack")
	fs.BoolVar(&f.json, "json", false, "write the report as JSON")
	fs.BoolVar(&f.verbose, "v", false, "log progress")
}

func (f *mapFlags) options() ([]chainmap.Option[int], error) {
	h, ok := hasher.Lookup(f.hash)
	if !ok {
		return nil, fmt.Errorf("unknown hash %q", f.hash)
	}
	opts := []chainmap.Option[int]{chainmap.WithHasher[int](h)}
	if f.powerOfTwo {
		opts = append(opts, chainmap.WithPowerOfTwo[int]())
	}
	if f.cellar {
		opts = append(opts, chainmap.WithCellar[int]())
	}
	if f.freeStack {
		opts = append(opts, chainmap.WithFreeStack[int]())
	}
	return opts, nil
}

func (f *mapFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
