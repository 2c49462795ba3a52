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

package chainmap

import "github.com/cockroachdb/chainmap/hasher"

// config holds the layout and algorithm policies of a Map. They are fixed when
// the Map is constructed and carried over to every table it grows into and
// to its clones.
type config[V any] struct {
	hasher    hasher.Hasher
	allocator Allocator[V]
	// powerOfTwo rounds capacities up to a power of 2 and folds hashes with
	// a mask instead of a modulo.
	powerOfTwo bool
	// useCellar reserves an overflow region after the primary buckets for
	// coalesced hashing.
	useCellar bool
	// freeStack threads the empty buckets into a stack so that an empty
	// bucket can be found in O(1) rather than by scanning.
	freeStack bool
}

// Option configures a Map while it is being created.
type Option[V any] interface {
	apply(c *config[V])
}

type hashOption[V any] struct {
	hasher hasher.Hasher
}

func (op hashOption[V]) apply(c *config[V]) {
	c.hasher = op.hasher
}

// WithHasher is an option to specify the hash function to use for a Map[V].
// The default is hasher.Murmur3.
func WithHasher[V any](h hasher.Hasher) Option[V] {
	return hashOption[V]{h}
}

type policyOption[V any] func(c *config[V])

func (op policyOption[V]) apply(c *config[V]) {
	op(c)
}

// WithPowerOfTwo is an option to round every capacity up to the next power of
// 2 and to map hashes to buckets using a bit mask.
func WithPowerOfTwo[V any]() Option[V] {
	return policyOption[V](func(c *config[V]) { c.powerOfTwo = true })
}

// WithCellar is an option to reserve a cellar of capacity*14/86 buckets after
// the primary buckets. Colliding entries are placed in the cellar first, and
// the Map does not grow while the cellar has room.
func WithCellar[V any]() Option[V] {
	return policyOption[V](func(c *config[V]) { c.useCellar = true })
}

// WithFreeStack is an option to keep the empty buckets on a stack so that
// collisions are placed in O(1). Cellar buckets sit on top of the stack.
func WithFreeStack[V any]() Option[V] {
	return policyOption[V](func(c *config[V]) { c.freeStack = true })
}

// Allocator specifies an interface for allocating and releasing the memory
// used by a Map. The default allocator utilizes Go's builtin make() and
// allows the GC to reclaim memory.
//
// An Allocator signals exhaustion by returning nil. The Map turns that into
// an ErrAllocation error and rolls back whatever the operation had done.
type Allocator[V any] interface {
	// AllocBuckets should return a slice equivalent to make([]Bucket[V], n),
	// or nil.
	AllocBuckets(n int) []Bucket[V]

	// AllocKey should return a slice equivalent to make([]byte, n), or nil.
	AllocKey(n int) []byte

	// FreeBuckets can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocBuckets.
	FreeBuckets(v []Bucket[V])

	// FreeKey can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by AllocKey.
	FreeKey(v []byte)
}

type defaultAllocator[V any] struct{}

func (defaultAllocator[V]) AllocBuckets(n int) []Bucket[V] {
	return make([]Bucket[V], n)
}

func (defaultAllocator[V]) AllocKey(n int) []byte {
	return make([]byte, n)
}

func (defaultAllocator[V]) FreeBuckets(v []Bucket[V]) {
}

func (defaultAllocator[V]) FreeKey(v []byte) {
}

type allocatorOption[V any] struct {
	allocator Allocator[V]
}

func (op allocatorOption[V]) apply(c *config[V]) {
	c.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map[V].
func WithAllocator[V any](allocator Allocator[V]) Option[V] {
	return allocatorOption[V]{allocator}
}
