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

// Package hasher provides the hash primitives a chainmap.Map can be built
// with. FNV1a32 and Murmur3 produce 32-bit values widened to uint64, XXHash64
// and SipHash produce full 64-bit values. A Map folds whatever it is given
// into its capacity, so any of them can be swapped in without changing the
// table layout.
package hasher

import (
	"encoding/binary"
	"math/bits"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
)

// Hasher maps a byte sequence to a hash value. Implementations must be
// deterministic: the same bytes always produce the same hash within a
// process. Callers never pass an empty slice.
type Hasher interface {
	Hash(b []byte) uint64
}

// Func adapts an ordinary function to the Hasher interface.
type Func func(b []byte) uint64

// Hash implements Hasher.
func (f Func) Hash(b []byte) uint64 {
	return f(b)
}

const (
	fnv32Prime  = 0x01000193
	fnv32Offset = 0x811c9dc5
)

type fnv1a32 struct{}

// FNV1a32 is the 32-bit Fowler/Noll/Vo FNV-1a hash: every octet is xor'ed
// into the state which is then multiplied by the FNV prime.
var FNV1a32 Hasher = fnv1a32{}

func (fnv1a32) Hash(b []byte) uint64 {
	h := uint32(fnv32Offset)
	for _, c := range b {
		h ^= uint32(c)
		h *= fnv32Prime
	}
	return uint64(h)
}

type murmur3 uint32

// Murmur3 is MurmurHash3 x86_32 with a zero seed. It is the default hasher of
// a chainmap.Map.
var Murmur3 Hasher = murmur3(0)

// NewMurmur3 returns MurmurHash3 x86_32 using the given seed.
func NewMurmur3(seed uint32) Hasher {
	return murmur3(seed)
}

const (
	murmurC1 = 0xcc9e2d51
	murmurC2 = 0x1b873593
)

func (m murmur3) Hash(b []byte) uint64 {
	h := uint32(m)
	nblocks := len(b) / 4
	for i := 0; i < nblocks; i++ {
		k := binary.LittleEndian.Uint32(b[i*4:])
		k = bits.RotateLeft32(k*murmurC1, 15) * murmurC2

		h = bits.RotateLeft32(h^k, 13)
		h = h*5 + 0xe6546b64
	}

	tail := b[nblocks*4:]
	var k uint32
	switch len(tail) {
	case 3:
		k ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k ^= uint32(tail[0])
		k = bits.RotateLeft32(k*murmurC1, 15) * murmurC2
		h ^= k
	}

	h ^= uint32(len(b))
	return uint64(fmix32(h))
}

// fmix32 forces all bits of a hash block to avalanche.
func fmix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

type xxh64 struct{}

// XXHash64 is the 64-bit xxHash algorithm.
var XXHash64 Hasher = xxh64{}

func (xxh64) Hash(b []byte) uint64 {
	return xxhash.Sum64(b)
}

type sipHash struct {
	k0, k1 uint64
}

// SipHash is SipHash-2-4 keyed with a fixed 128-bit key. Use NewSipHash to
// pick a key, e.g. a random one to make collisions harder to provoke.
var SipHash Hasher = sipHash{k0: 0x0706050403020100, k1: 0x0f0e0d0c0b0a0908}

// NewSipHash returns SipHash-2-4 keyed with k0 and k1.
func NewSipHash(k0, k1 uint64) Hasher {
	return sipHash{k0: k0, k1: k1}
}

func (s sipHash) Hash(b []byte) uint64 {
	return siphash.Hash(s.k0, s.k1, b)
}

var byName = map[string]Hasher{
	"fnv1a32":  FNV1a32,
	"murmur3":  Murmur3,
	"xxhash64": XXHash64,
	"siphash":  SipHash,
}

// Lookup returns the built-in Hasher registered under name.
func Lookup(name string) (Hasher, bool) {
	h, ok := byName[name]
	return h, ok
}

// Names returns the names accepted by Lookup, sorted.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
