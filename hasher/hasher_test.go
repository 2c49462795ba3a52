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

package hasher

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFNV1a32(t *testing.T) {
	// Cross-check against the standard library implementation.
	for i := 1; i < 64; i++ {
		b := make([]byte, i)
		rand.Read(b)
		h := fnv.New32a()
		_, _ = h.Write(b)
		require.EqualValues(t, h.Sum32(), FNV1a32.Hash(b))
	}
	require.EqualValues(t, 0xe40c292c, FNV1a32.Hash([]byte("a")))
	require.EqualValues(t, 0xbf9cf968, FNV1a32.Hash([]byte("foobar")))
}

func TestMurmur3(t *testing.T) {
	testCases := []struct {
		seed     uint32
		input    string
		expected uint64
	}{
		{0, "", 0},
		{1, "", 0x514e28b7},
		{0, "hello", 0x248bfa47},
		{0, "The quick brown fox jumps over the lazy dog", 0x2e4ff723},
	}
	for _, c := range testCases {
		t.Run(fmt.Sprintf("%d/%q", c.seed, c.input), func(t *testing.T) {
			require.EqualValues(t, c.expected, NewMurmur3(c.seed).Hash([]byte(c.input)))
		})
	}
	require.Equal(t, NewMurmur3(0).Hash([]byte("abc")), Murmur3.Hash([]byte("abc")))
}

func TestXXHash64(t *testing.T) {
	require.EqualValues(t, uint64(0xef46db3751d8e999), XXHash64.Hash(nil))
	require.EqualValues(t, uint64(0xd24ec4f1a98c6e5b), XXHash64.Hash([]byte("a")))
}

func TestSipHash(t *testing.T) {
	// First vector of the SipHash-2-4 reference test suite: key 00..0f and
	// an empty message.
	require.EqualValues(t, uint64(0x726fdb47dd0e0e31), SipHash.Hash(nil))
	require.NotEqual(t, SipHash.Hash([]byte("key")), NewSipHash(1, 2).Hash([]byte("key")))
}

func TestDeterministic(t *testing.T) {
	hashers := map[string]Hasher{
		"fnv1a32":  FNV1a32,
		"murmur3":  Murmur3,
		"xxhash64": XXHash64,
		"siphash":  SipHash,
	}
	mem := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 123}
	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, h.Hash(mem), h.Hash(append([]byte(nil), mem...)))
		})
	}
}

func TestFunc(t *testing.T) {
	h := Func(func(b []byte) uint64 { return uint64(len(b)) })
	require.EqualValues(t, 3, h.Hash([]byte("abc")))
}

func TestLookup(t *testing.T) {
	require.Equal(t, []string{"fnv1a32", "murmur3", "siphash", "xxhash64"}, Names())
	for _, name := range Names() {
		h, ok := Lookup(name)
		require.True(t, ok)
		require.NotNil(t, h)
	}
	h, ok := Lookup("murmur3")
	require.True(t, ok)
	require.EqualValues(t, Murmur3.Hash([]byte("hello")), h.Hash([]byte("hello")))

	_, ok = Lookup("crc32")
	require.False(t, ok)
}
