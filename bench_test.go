package chainmap

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
	"github.com/cockroachdb/chainmap/hasher"
)

var benchPolicies = []struct {
	name string
	p    policy
}{
	{"plain", policy{}},
	{"pow2", policy{powerOfTwo: true}},
	{"cellar", policy{cellar: true}},
	{"cellar+stack", policy{cellar: true, freeStack: true}},
	{"pow2+cellar+stack", policy{powerOfTwo: true, cellar: true, freeStack: true}},
}

func BenchmarkMapIter(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapIter))
	benchChainMaps(b, benchmarkChainMapIter)
}

func BenchmarkMapGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetHit))
	benchChainMaps(b, benchmarkChainMapGetHit)
}

func BenchmarkMapGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetMiss))
	benchChainMaps(b, benchmarkChainMapGetMiss)
}

func BenchmarkMapPutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutGrow))
	benchChainMaps(b, benchmarkChainMapPutGrow)
}

func BenchmarkMapPutPreAllocate(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutPreAllocate))
	benchChainMaps(b, benchmarkChainMapPutPreAllocate)
}

func BenchmarkMapPutDelete(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutDelete))
	benchChainMaps(b, benchmarkChainMapPutDelete)
}

func BenchmarkHasher(b *testing.B) {
	hashers := []struct {
		name string
		h    hasher.Hasher
	}{
		{"fnv1a32", hasher.FNV1a32},
		{"murmur3", hasher.Murmur3},
		{"xxhash64", hasher.XXHash64},
		{"siphash", hasher.SipHash},
	}
	for _, h := range hashers {
		b.Run("hash="+h.name, func(b *testing.B) {
			for _, size := range []int{5, 16, 50, 100, 251, 379, 610} {
				b.Run("size="+strconv.Itoa(size), func(b *testing.B) {
					buf := make([]byte, size)
					for i := range buf {
						buf[i] = byte(i)
					}
					cs := perfbench.Open(b)
					b.SetBytes(int64(size))
					b.ResetTimer()
					cs.Reset()
					var sum uint64
					for i := 0; i < b.N; i++ {
						sum += h.h.Hash(buf)
					}
					_ = sum
				})
			}
		})
	}
}

type chainBench func(b *testing.B, n int, p policy, genKeys func(start, end int) [][]byte)

func benchChainMaps(b *testing.B, f chainBench) {
	for _, c := range benchPolicies {
		b.Run("impl=chainMap/policy="+c.name, benchSizes(
			func(b *testing.B, n int, genKeys func(start, end int) [][]byte) {
				f(b, n, c.p, genKeys)
			}))
	}
}

func benchSizes(
	f func(b *testing.B, n int, genKeys func(start, end int) [][]byte),
) func(*testing.B) {
	var cases = []int{
		6, 12, 18, 24, 30,
		64,
		128,
		256,
		512,
		1024,
		2048,
		4096,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n, genKeys) })
		}
	}
}

func genKeys(start, end int) [][]byte {
	keys := make([][]byte, end-start)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("sym_%08x", uint32(start+i)))
	}
	return keys
}

func newBenchMap(b *testing.B, n int, p policy) *Map[int] {
	m, err := New[int](n, policyOptions[int](p)...)
	if err != nil {
		b.Fatal(err)
	}
	return m
}

func benchmarkRuntimeMapIter(b *testing.B, n int, genKeys func(start, end int) [][]byte) {
	m := make(map[string]int, n)
	for i, k := range genKeys(0, n) {
		m[string(k)] = i
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var tmp int
	for i := 0; i < b.N; i++ {
		for _, v := range m {
			tmp += v
		}
	}
}

func benchmarkChainMapIter(
	b *testing.B, n int, p policy, genKeys func(start, end int) [][]byte,
) {
	m := newBenchMap(b, n, p)
	for i, k := range genKeys(0, n) {
		_, _ = m.Put(k, i)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var tmp int
	for i := 0; i < b.N; i++ {
		m.All(func(_ []byte, v int) bool {
			tmp += v
			return true
		})
	}
}

func benchmarkRuntimeMapGetHit(b *testing.B, n int, genKeys func(start, end int) [][]byte) {
	m := make(map[string]int, n)
	keys := genKeys(0, n)
	for i, k := range keys {
		m[string(k)] = i
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		_ = m[string(keys[i%n])]
	}
}

func benchmarkChainMapGetHit(
	b *testing.B, n int, p policy, genKeys func(start, end int) [][]byte,
) {
	m := newBenchMap(b, n, p)
	keys := genKeys(0, n)
	for i, k := range keys {
		_, _ = m.Put(k, i)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		_, _ = m.Get(keys[i%n])
	}
}

func benchmarkRuntimeMapGetMiss(b *testing.B, n int, genKeys func(start, end int) [][]byte) {
	m := make(map[string]int, n)
	for i, k := range genKeys(0, n) {
		m[string(k)] = i
	}
	miss := genKeys(-n, 0)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		_ = m[string(miss[i%n])]
	}
}

func benchmarkChainMapGetMiss(
	b *testing.B, n int, p policy, genKeys func(start, end int) [][]byte,
) {
	m := newBenchMap(b, n, p)
	for i, k := range genKeys(0, n) {
		_, _ = m.Put(k, i)
	}
	miss := genKeys(-n, 0)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		_, _ = m.Get(miss[i%n])
	}
}

func benchmarkRuntimeMapPutGrow(b *testing.B, n int, genKeys func(start, end int) [][]byte) {
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		m := make(map[string]int)
		for j, k := range keys {
			m[string(k)] = j
		}
	}
}

func benchmarkChainMapPutGrow(
	b *testing.B, n int, p policy, genKeys func(start, end int) [][]byte,
) {
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		m := newBenchMap(b, 1, p)
		for j, k := range keys {
			_, _ = m.Put(k, j)
		}
		m.Close(nil)
	}
}

func benchmarkRuntimeMapPutPreAllocate(
	b *testing.B, n int, genKeys func(start, end int) [][]byte,
) {
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		m := make(map[string]int, n)
		for j, k := range keys {
			m[string(k)] = j
		}
	}
}

func benchmarkChainMapPutPreAllocate(
	b *testing.B, n int, p policy, genKeys func(start, end int) [][]byte,
) {
	keys := genKeys(0, n)
	// Sized so that no growth is needed.
	capacity := n*100/95 + 1
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		m := newBenchMap(b, capacity, p)
		for j, k := range keys {
			_, _ = m.Put(k, j)
		}
		m.Close(nil)
	}
}

func benchmarkRuntimeMapPutDelete(b *testing.B, n int, genKeys func(start, end int) [][]byte) {
	m := make(map[string]int, n)
	keys := genKeys(0, n)
	for i, k := range keys {
		m[string(k)] = i
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, string(keys[j]))
		m[string(keys[j])] = j
	}
}

func benchmarkChainMapPutDelete(
	b *testing.B, n int, p policy, genKeys func(start, end int) [][]byte,
) {
	m := newBenchMap(b, n, p)
	keys := genKeys(0, n)
	for i, k := range keys {
		_, _ = m.Put(k, i)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		j := i % n
		_, _ = m.Delete(keys[j])
		_, _ = m.Put(keys[j], j)
	}
}
