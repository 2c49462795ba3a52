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

// package chainmap is a hash table keyed by byte sequences that resolves
// collisions with chains threaded through a single bucket array. See
// https://en.wikipedia.org/wiki/Coalesced_hashing.
//
// # Layout
//
// A Map owns one contiguous array of buckets. The first capacity buckets form
// the primary region: a key's natural bucket is hash(key) mod capacity (or
// hash(key) & (capacity-1) when WithPowerOfTwo is used). When WithCellar is
// used, another capacity*14/86 buckets follow the primary region and form the
// cellar, an overflow area that is only ever used for colliding entries.
//
// Each bucket caches the hash of its key and carries the positions of the
// previous and next bucket of its collision chain. Positions are 1-based
// indexes into the combined primary+cellar array, 0 meaning none. Using
// positions rather than pointers lets the whole array be reallocated as a
// unit.
//
// # Insertion
//
// An entry whose natural bucket is empty is stored there. Otherwise an empty
// bucket is taken from elsewhere and appended at the tail of the chain that
// runs through the natural bucket. Chains therefore coalesce: a chain may
// hold entries with different natural buckets, but every entry is reachable
// by walking forward from its natural bucket.
//
// Empty buckets are found by scanning backwards from the end of the array,
// which visits the cellar first. With WithFreeStack, the empty buckets are
// instead kept on an intrusive doubly linked stack threaded through the same
// prev/next fields, which makes finding one O(1) and removing an arbitrary
// one (when it is claimed as a natural bucket) O(1) too. The stack is built
// from the last position down, so cellar buckets are on top.
//
// # Growth
//
// Before a new key is stored, the Map grows to twice its capacity if the
// cellar is full and more than 95% of the primary buckets are in use. Growth
// allocates a new array and re-places every entry using its cached hash.
//
// # Deletion
//
// Removing an entry from the middle of a coalesced chain can strand the
// entries behind it, whose natural buckets may precede it. After removing an
// entry, the rest of its chain is detached and every detached entry is
// re-homed in chain order: if its natural bucket is now empty it moves
// there, otherwise it is appended to the chain running through its natural
// bucket. This keeps chains short and leaves heads in their natural buckets
// whenever possible.
package chainmap

import (
	"bytes"
	"fmt"
	"math"
	"math/bits"
	"strings"
	"unsafe"

	"github.com/cockroachdb/chainmap/hasher"
)

const (
	debug = false

	// maxLoadFactor is the fraction of primary buckets that may be in use
	// before the insertion of a new key triggers growth.
	maxLoadFactor = 0.95

	// The cellar holds 14/86 of the primary capacity, i.e. ~14% of all
	// buckets, which is close to optimal for coalesced hashing at high load.
	cellarNumerator   = 14
	cellarDenominator = 86

	maxPositions  = math.MaxUint32
	maxPowerOfTwo = 1 << (bits.UintSize - 2)
)

// Bucket holds a key and value along with the links of its collision chain.
// A bucket is live iff it holds a key.
type Bucket[V any] struct {
	value V
	// The cached hash of key. Growth and deletion re-place entries using it
	// rather than rehashing the key.
	hash uint64
	key  Key
	// Positions of the previous and next buckets in the same chain, or, for
	// an empty bucket in a Map using WithFreeStack, in the free stack.
	prev uint32
	next uint32
}

func (b *Bucket[V]) live() bool {
	return b.key.buf != nil
}

type cellar struct {
	// The number of buckets in the cellar.
	capacity int
	// The number of live buckets in the cellar.
	used int
}

// table is the bucket array along with its bookkeeping. A Map replaces its
// table wholesale when it grows.
type table[V any] struct {
	// The number of primary buckets.
	capacity int
	// The number of live primary buckets.
	used   int
	cellar cellar
	// The position of the top of the free stack. Only maintained when
	// WithFreeStack is used.
	top uint32
	// buckets is capacity+cellar.capacity in length.
	buckets []Bucket[V]
}

// Map is a hash table from byte sequences to values of type V with Put, Get,
// Delete, and All operations. Keys are copied into the Map, which owns them
// until they are deleted or the Map is closed.
//
// A Map is NOT goroutine-safe.
type Map[V any] struct {
	config[V]
	table[V]
}

// New constructs a new Map with the specified initial capacity, which must be
// positive. The zero value for a Map is not usable.
func New[V any](capacity int, options ...Option[V]) (*Map[V], error) {
	m := &Map[V]{
		config: config[V]{
			hasher:    hasher.Murmur3,
			allocator: defaultAllocator[V]{},
		},
	}

	for _, op := range options {
		op.apply(&m.config)
	}
	if m.hasher == nil {
		return nil, fmt.Errorf("nil hasher: %w", ErrInvalidArgument)
	}
	if m.allocator == nil {
		return nil, fmt.Errorf("nil allocator: %w", ErrInvalidArgument)
	}

	t, err := m.newTable(capacity)
	if err != nil {
		return nil, err
	}
	m.table = t

	m.checkInvariants()
	return m, nil
}

// newTable allocates an empty table able to hold capacity primary buckets
// using the policies of m.
func (m *Map[V]) newTable(capacity int) (table[V], error) {
	if capacity < 1 {
		return table[V]{}, fmt.Errorf("capacity %d: %w", capacity, ErrInvalidArgument)
	}
	if m.powerOfTwo {
		if capacity > maxPowerOfTwo {
			return table[V]{}, fmt.Errorf("capacity %d overflows: %w", capacity, ErrAllocation)
		}
		capacity = 1 << bits.Len(uint(capacity-1))
	}

	var cellarCapacity int
	if m.useCellar {
		if capacity > math.MaxInt/cellarNumerator {
			return table[V]{}, fmt.Errorf("capacity %d overflows: %w", capacity, ErrAllocation)
		}
		cellarCapacity = (capacity * cellarNumerator) / cellarDenominator
	}

	var b Bucket[V]
	maxBuckets := uint64(math.MaxInt) / uint64(unsafe.Sizeof(b))
	if maxBuckets > maxPositions {
		maxBuckets = maxPositions
	}
	n := uint64(capacity) + uint64(cellarCapacity)
	if n > maxBuckets {
		return table[V]{}, fmt.Errorf("capacity %d overflows: %w", capacity, ErrAllocation)
	}

	buckets := m.allocator.AllocBuckets(int(n))
	if buckets == nil || cap(buckets) < int(n) {
		return table[V]{}, fmt.Errorf("%d buckets: %w", n, ErrAllocation)
	}

	t := table[V]{
		capacity: capacity,
		cellar:   cellar{capacity: cellarCapacity},
		buckets:  buckets[:n:n],
	}

	if m.freeStack {
		// Threading the stack from the end of the array places the cellar
		// buckets on top.
		var prev uint32
		for pos := uint32(n); pos > 0; pos-- {
			t.buckets[pos-1] = Bucket[V]{prev: prev, next: pos - 1}
			prev = pos
		}
		t.top = uint32(n)
	}

	if debug {
		fmt.Printf("new-table: capacity=%d+%d free-stack=%t\n",
			capacity, cellarCapacity, m.freeStack)
	}
	return t, nil
}

// valid returns true if the table's bookkeeping is within bounds. Operations
// refuse to act on an invalid table, e.g. one that was closed.
func (t *table[V]) valid() bool {
	return t.capacity > 0 && t.used >= 0 && t.used <= t.capacity &&
		t.cellar.used >= 0 && t.cellar.used <= t.cellar.capacity &&
		len(t.buckets) == t.capacity+t.cellar.capacity
}

// at returns the bucket at the 1-based position pos.
func (t *table[V]) at(pos uint32) *Bucket[V] {
	return &t.buckets[pos-1]
}

// inCellar returns true if pos lies in the cellar region.
func (t *table[V]) inCellar(pos uint32) bool {
	return int(pos) > t.capacity
}

// Close closes the map, invoking free (if non-nil) on every value, releasing
// every key and releasing the buckets back to the configured allocator. It is
// invalid to use a Map after it has been closed, though Close itself is
// idempotent.
func (m *Map[V]) Close(free FreeFunc[V]) {
	if m.valid() {
		for i := len(m.buckets) - 1; i >= 0; i-- {
			b := &m.buckets[i]
			if !b.live() {
				continue
			}
			if free != nil {
				free(b.value)
			}
			b.key.release(m.allocator)
			*b = Bucket[V]{}
		}
	}

	if m.buckets != nil && m.allocator != nil {
		m.allocator.FreeBuckets(m.buckets)
	}
	m.table = table[V]{}
}

// Clone returns a deep copy of the map with the same capacity and layout.
// Keys are always copied. Values are duplicated with dup, or copied as-is if
// dup is nil. A dup must be accompanied by a free, which is used to release
// the values duplicated so far if the clone fails part way.
func (m *Map[V]) Clone(dup DupFunc[V], free FreeFunc[V]) (*Map[V], error) {
	if !m.valid() {
		return nil, fmt.Errorf("clone: %w", ErrInvalidState)
	}
	if dup != nil && free == nil {
		return nil, fmt.Errorf("clone: dup without free: %w", ErrInvalidArgument)
	}

	n := len(m.buckets)
	buckets := m.allocator.AllocBuckets(n)
	if buckets == nil || cap(buckets) < n {
		return nil, fmt.Errorf("clone: %d buckets: %w", n, ErrAllocation)
	}

	c := &Map[V]{
		config: m.config,
		table: table[V]{
			capacity: m.capacity,
			used:     m.used,
			cellar:   m.cellar,
			top:      m.top,
			buckets:  buckets[:n:n],
		},
	}

	// Values that were not duplicated are shared with m and must not be
	// freed on rollback.
	var rollback FreeFunc[V]
	if dup != nil {
		rollback = free
	}

	for i := range m.buckets {
		src, dst := &m.buckets[i], &c.buckets[i]
		*dst = Bucket[V]{hash: src.hash, prev: src.prev, next: src.next}
		if !src.live() {
			continue
		}

		k, err := newKey(m.allocator, src.key.buf)
		if err != nil {
			c.Close(rollback)
			return nil, fmt.Errorf("clone: %w", err)
		}
		v := src.value
		if dup != nil {
			if v, err = dup(src.value); err != nil {
				k.release(m.allocator)
				c.Close(rollback)
				return nil, fmt.Errorf("clone: duplicating value: %w: %w", ErrAllocation, err)
			}
		}
		dst.key, dst.value = k, v
	}

	c.checkInvariants()
	return c, nil
}

// Hash returns the hash of key using the map's hasher. An empty key cannot be
// hashed.
func (m *Map[V]) Hash(key []byte) (uint64, error) {
	if m.hasher == nil {
		return 0, fmt.Errorf("hash: %w", ErrInvalidState)
	}
	if len(key) == 0 {
		return 0, fmt.Errorf("hash: empty key: %w", ErrInvalidArgument)
	}
	return m.hasher.Hash(key), nil
}

// fold maps hash h to the 0-based index of its natural bucket.
func (m *Map[V]) fold(h uint64) int {
	if m.powerOfTwo {
		return int(h & uint64(m.capacity-1))
	}
	return int(h % uint64(m.capacity))
}

// natural returns the position of the natural bucket of hash h.
func (m *Map[V]) natural(h uint64) uint32 {
	return uint32(m.fold(h)) + 1
}

// find returns the position of the bucket holding key, or 0 if there is no
// such bucket.
func (m *Map[V]) find(h uint64, key []byte) uint32 {
	pos := m.natural(h)
	if !m.at(pos).live() {
		return 0
	}

	for ; pos != 0; pos = m.at(pos).next {
		b := m.at(pos)
		if debug {
			fmt.Printf("find(checking): pos=%d key=%s\n", pos, b.key)
		}
		if b.hash == h && bytes.Equal(b.key.buf, key) {
			return pos
		}
	}
	return 0
}

// Search returns a pointer to the value stored for key, or nil if the key is
// not present. The pointer is invalidated by the next call to Put or Grow
// that grows the map.
func (m *Map[V]) Search(key []byte) *V {
	if !m.valid() {
		return nil
	}
	h, err := m.Hash(key)
	if err != nil {
		return nil
	}
	pos := m.find(h, key)
	if pos == 0 {
		return nil
	}
	return &m.at(pos).value
}

// Get retrieves the value from the map for the specified key, return ok=false
// if the key is not present.
func (m *Map[V]) Get(key []byte) (value V, ok bool) {
	if v := m.Search(key); v != nil {
		return *v, true
	}
	return value, false
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists. It returns a pointer to the stored
// value, which remains valid until the map next grows.
//
// On failure the map is left unchanged.
func (m *Map[V]) Put(key []byte, value V) (*V, error) {
	if !m.valid() {
		return nil, fmt.Errorf("put: %w", ErrInvalidState)
	}
	h, err := m.Hash(key)
	if err != nil {
		return nil, fmt.Errorf("put: %w", err)
	}

	if pos := m.find(h, key); pos != 0 {
		if debug {
			fmt.Printf("put(updating): pos=%d key=%x\n", pos, key)
		}
		b := m.at(pos)
		b.value = value
		return &b.value, nil
	}

	k, err := newKey(m.allocator, key)
	if err != nil {
		return nil, fmt.Errorf("put: %w", err)
	}
	if err := m.maybeGrow(); err != nil {
		k.release(m.allocator)
		return nil, fmt.Errorf("put: %w", err)
	}

	pos, err := m.place(Bucket[V]{value: value, hash: h, key: k})
	if err != nil {
		k.release(m.allocator)
		return nil, fmt.Errorf("put: %w", err)
	}
	if debug {
		fmt.Printf("put(inserting): pos=%d key=%x used=%d+%d\n",
			pos, key, m.used, m.cellar.used)
	}

	m.checkInvariants()
	return &m.at(pos).value, nil
}

// maybeGrow doubles the capacity of the map if another entry would overcrowd
// it. As long as the cellar has room there is no need to grow, regardless of
// the primary load.
func (m *Map[V]) maybeGrow() error {
	if m.cellar.used < m.cellar.capacity {
		return nil
	}
	if float64(m.used) <= maxLoadFactor*float64(m.capacity) {
		return nil
	}
	if m.capacity > math.MaxInt/2 {
		return fmt.Errorf("grow: capacity %d overflows: %w", m.capacity, ErrAllocation)
	}
	return m.Grow(2 * m.capacity)
}

// Grow resizes the map to hold capacity primary buckets by allocating a new
// bucket array and re-placing every entry using its cached hash. It is a noop
// if capacity does not exceed the current capacity. On failure the map is
// left unchanged.
func (m *Map[V]) Grow(capacity int) error {
	if !m.valid() {
		return fmt.Errorf("grow: %w", ErrInvalidState)
	}
	if capacity < 1 {
		return fmt.Errorf("grow: capacity %d: %w", capacity, ErrInvalidArgument)
	}
	if capacity <= m.capacity {
		return nil
	}

	t, err := m.newTable(capacity)
	if err != nil {
		return fmt.Errorf("grow: %w", err)
	}
	grown := Map[V]{config: m.config, table: t}

	if debug {
		fmt.Printf("grow: capacity=%d+%d->%d+%d used=%d+%d\n",
			m.capacity, m.cellar.capacity, t.capacity, t.cellar.capacity,
			m.used, m.cellar.used)
	}

	// Primary buckets first, then the cellar.
	for i := range m.buckets {
		b := &m.buckets[i]
		if !b.live() {
			continue
		}
		if _, err := grown.place(*b); err != nil {
			// The keys are still owned by m.
			m.allocator.FreeBuckets(grown.buckets)
			return fmt.Errorf("grow: %w", err)
		}
	}

	for i := range m.buckets {
		m.buckets[i] = Bucket[V]{}
	}
	m.allocator.FreeBuckets(m.buckets)
	m.table = grown.table

	m.checkInvariants()
	return nil
}

// place stores b, which must hold a key not present in the map, and returns
// its position. The entry goes to its natural bucket if that is empty, and
// otherwise to an empty bucket appended at the tail of the chain running
// through its natural bucket.
func (m *Map[V]) place(b Bucket[V]) (uint32, error) {
	b.prev, b.next = 0, 0
	pos := m.natural(b.hash)

	if n := m.at(pos); !n.live() {
		m.claim(pos)
		*n = b
		return pos, nil
	}

	empty := m.getEmpty()
	if empty == 0 {
		return 0, fmt.Errorf("placing hash %#x: %w", b.hash, ErrSaturated)
	}

	tail := pos
	for m.at(tail).next != 0 {
		tail = m.at(tail).next
	}
	m.at(tail).next = empty
	b.prev = tail
	*m.at(empty) = b
	m.markUsed(empty)

	if debug {
		fmt.Printf("place(colliding): natural=%d tail=%d pos=%d\n", pos, tail, empty)
	}
	return empty, nil
}

// claim readies the empty bucket at pos to be filled in place and accounts
// for it as used.
func (m *Map[V]) claim(pos uint32) {
	if m.freeStack {
		m.unlink(pos)
	}
	m.markUsed(pos)
}

// vacate clears the bucket at pos, accounts for it as unused and, when the
// free stack is in use, pushes it on the stack.
func (m *Map[V]) vacate(pos uint32) {
	b := m.at(pos)
	*b = Bucket[V]{}
	if m.inCellar(pos) {
		m.cellar.used--
	} else {
		m.used--
	}

	if m.freeStack {
		b.next = m.top
		if m.top != 0 {
			m.at(m.top).prev = pos
		}
		m.top = pos
	}
}

func (m *Map[V]) markUsed(pos uint32) {
	if m.inCellar(pos) {
		m.cellar.used++
	} else {
		m.used++
	}
}

// unlink removes the bucket at pos from the list it is linked into: a
// collision chain for a live bucket, or the free stack for an empty one.
func (m *Map[V]) unlink(pos uint32) {
	b := m.at(pos)
	if m.freeStack && m.top == pos {
		m.top = b.next
	}
	if b.next != 0 {
		m.at(b.next).prev = b.prev
	}
	if b.prev != 0 {
		m.at(b.prev).next = b.next
	}
	b.prev, b.next = 0, 0
}

// getEmpty returns the position of an empty bucket with cleared links, or 0
// if there is none. Cellar buckets are preferred.
func (m *Map[V]) getEmpty() uint32 {
	if m.freeStack {
		pos := m.top
		if pos != 0 {
			m.unlink(pos)
			*m.at(pos) = Bucket[V]{}
		}
		return pos
	}

	// Scan backwards so that the cellar, if it has room, is checked first.
	var n int
	if m.cellar.used < m.cellar.capacity {
		n += m.cellar.capacity
	}
	if m.used < m.capacity || n > 0 {
		n += m.capacity
	}
	for i := n; i > 0; i-- {
		if !m.buckets[i-1].live() {
			return uint32(i)
		}
	}
	return 0
}

// Delete deletes the entry corresponding to the specified key from the map,
// returning its value. It returns ok=false if the key is not present.
func (m *Map[V]) Delete(key []byte) (value V, ok bool) {
	if !m.valid() {
		return value, false
	}
	h, err := m.Hash(key)
	if err != nil {
		return value, false
	}
	pos := m.find(h, key)
	if pos == 0 {
		return value, false
	}

	b := m.at(pos)
	rest, prev := b.next, b.prev
	m.unlink(pos)
	// Detach the rest of the chain. Every entry in it is re-homed below.
	if prev != 0 {
		m.at(prev).next = 0
	}

	value = b.value
	b.key.release(m.allocator)
	m.vacate(pos)

	if debug {
		fmt.Printf("delete(%x): pos=%d rest=%d used=%d+%d\n",
			key, pos, rest, m.used, m.cellar.used)
	}

	m.rehome(rest)
	m.checkInvariants()
	return value, true
}

// rehome re-places the detached chain starting at pos, in chain order. An
// entry whose natural bucket is empty moves into it, vacating its current
// bucket. Any other entry stays where it is and is appended to the chain
// running through its natural bucket.
func (m *Map[V]) rehome(pos uint32) {
	for pos != 0 {
		w := m.at(pos)
		next := w.next
		w.prev, w.next = 0, 0

		natural := m.natural(w.hash)
		if n := m.at(natural); n.live() {
			tail := natural
			for m.at(tail).next != 0 {
				tail = m.at(tail).next
			}
			m.at(tail).next = pos
			w.prev = tail
			if debug {
				fmt.Printf("rehome(appending): pos=%d tail=%d\n", pos, tail)
			}
		} else {
			m.claim(natural)
			*n = *w
			m.vacate(pos)
			if debug {
				fmt.Printf("rehome(moving): pos=%d->%d\n", pos, natural)
			}
		}
		pos = next
	}
}

// All calls yield sequentially for each key and value present in the map, in
// bucket order. If yield returns false, iteration stops. The map must not be
// mutated during iteration, and the key slice must not be modified.
func (m *Map[V]) All(yield func(key []byte, value V) bool) {
	if !m.valid() {
		return
	}
	for i := range m.buckets {
		b := &m.buckets[i]
		if !b.live() {
			continue
		}
		if !yield(b.key.buf, b.value) {
			return
		}
	}
}

// Len returns the number of entries in the map.
func (m *Map[V]) Len() int {
	return m.used + m.cellar.used
}

// Cap returns the number of primary buckets.
func (m *Map[V]) Cap() int {
	return m.capacity
}

// CellarCap returns the number of cellar buckets, which is 0 unless the map
// was created using WithCellar.
func (m *Map[V]) CellarCap() int {
	return m.cellar.capacity
}

// ToString returns the entries of the map as "{key: value, ...}", rendering
// keys with Key.String and values with fn. Entries appear in bucket order.
func (m *Map[V]) ToString(fn StringFunc[V]) (string, error) {
	if !m.valid() {
		return "", fmt.Errorf("to-string: %w", ErrInvalidState)
	}
	if fn == nil {
		return "", fmt.Errorf("to-string: nil StringFunc: %w", ErrInvalidArgument)
	}

	var buf strings.Builder
	buf.WriteByte('{')
	sep := ""
	for i := range m.buckets {
		b := &m.buckets[i]
		if !b.live() {
			continue
		}
		buf.WriteString(sep)
		fmt.Fprintf(&buf, "%s: %s", b.key, fn(b.value))
		sep = ", "
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func (m *Map[V]) checkInvariants() {
	if invariants {
		if err := m.validate(); err != nil {
			panic(fmt.Sprintf("invariant failed: %v\n%s", err, m.debugString()))
		}
	}
}

// validate verifies the bookkeeping, the chain links, the reachability of
// every entry from its natural bucket and, if used, the free stack.
func (m *Map[V]) validate() error {
	if !m.valid() {
		return fmt.Errorf("invalid table: capacity=%d+%d used=%d+%d buckets=%d",
			m.capacity, m.cellar.capacity, m.used, m.cellar.used, len(m.buckets))
	}

	var used, cellarUsed int
	for i := range m.buckets {
		pos := uint32(i + 1)
		b := &m.buckets[i]
		if !b.live() {
			continue
		}
		if m.inCellar(pos) {
			cellarUsed++
		} else {
			used++
		}
		if b.next != 0 {
			if n := m.at(b.next); !n.live() || n.prev != pos {
				return fmt.Errorf("bucket(%d): broken next link to %d", pos, b.next)
			}
		}
		if b.prev != 0 {
			if p := m.at(b.prev); !p.live() || p.next != pos {
				return fmt.Errorf("bucket(%d): broken prev link to %d", pos, b.prev)
			}
		}
		if found := m.find(b.hash, b.key.buf); found != pos {
			return fmt.Errorf("bucket(%d): %s not found from natural bucket %d (found %d)",
				pos, b.key, m.natural(b.hash), found)
		}
	}

	if used != m.used {
		return fmt.Errorf("found %d used primary buckets, but used count is %d", used, m.used)
	}
	if cellarUsed != m.cellar.used {
		return fmt.Errorf("found %d used cellar buckets, but used count is %d",
			cellarUsed, m.cellar.used)
	}

	if m.freeStack {
		var free int
		var prev uint32
		for pos := m.top; pos != 0; pos = m.at(pos).next {
			b := m.at(pos)
			if b.live() {
				return fmt.Errorf("free stack: bucket(%d) is live", pos)
			}
			if b.prev != prev {
				return fmt.Errorf("free stack: bucket(%d) prev=%d, expected %d", pos, b.prev, prev)
			}
			if free++; free > len(m.buckets) {
				return fmt.Errorf("free stack: cycle")
			}
			prev = pos
		}
		if expected := len(m.buckets) - used - cellarUsed; free != expected {
			return fmt.Errorf("free stack: holds %d buckets, expected %d", free, expected)
		}
	}
	return nil
}

func (m *Map[V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d+%d  used=%d+%d  top=%d\n",
		m.capacity, m.cellar.capacity, m.used, m.cellar.used, m.top)
	for i := range m.buckets {
		b := &m.buckets[i]
		if !b.live() {
			fmt.Fprintf(&buf, "  %4d: empty [prev=%d next=%d]\n", i+1, b.prev, b.next)
			continue
		}
		fmt.Fprintf(&buf, "  %4d: %s [hash=%08x natural=%d prev=%d next=%d]\n",
			i+1, b.key, b.hash, m.natural(b.hash), b.prev, b.next)
	}
	return buf.String()
}
