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

import (
	"bytes"
	"fmt"
)

// Key is an owned, immutable copy of a non-empty byte sequence. The zero Key
// holds nothing and marks a free bucket.
type Key struct {
	buf []byte
}

// NewKey returns a Key holding a copy of b. An empty b is rejected.
func NewKey(b []byte) (Key, error) {
	return newKey(defaultAllocator[struct{}]{}, b)
}

type keyAllocator interface {
	AllocKey(n int) []byte
}

func newKey(a keyAllocator, b []byte) (Key, error) {
	if len(b) == 0 {
		return Key{}, fmt.Errorf("key: %w", ErrInvalidArgument)
	}
	buf := a.AllocKey(len(b))
	if buf == nil {
		return Key{}, fmt.Errorf("key of %d bytes: %w", len(b), ErrAllocation)
	}
	copy(buf, b)
	return Key{buf: buf[:len(b):len(b)]}, nil
}

// Len returns the length of the key in bytes.
func (k Key) Len() int {
	return len(k.buf)
}

// Bytes returns the key's contents. The returned slice must not be modified.
func (k Key) Bytes() []byte {
	return k.buf
}

// Equal reports whether the key holds exactly the bytes b.
func (k Key) Equal(b []byte) bool {
	return len(k.buf) == len(b) && bytes.Equal(k.buf, b)
}

// Clone returns an independent copy of the key.
func (k Key) Clone() Key {
	if k.buf == nil {
		return Key{}
	}
	return Key{buf: append([]byte(nil), k.buf...)}
}

// Release drops the key's contents. It is a noop on the zero Key.
func (k *Key) Release() {
	k.release(defaultAllocator[struct{}]{})
}

func (k *Key) release(a interface{ FreeKey([]byte) }) {
	if k.buf == nil {
		return
	}
	a.FreeKey(k.buf)
	k.buf = nil
}

// String returns a debug representation of the key: its length followed by
// its contents in hex.
func (k Key) String() string {
	return fmt.Sprintf("(%d, %x)", len(k.buf), k.buf)
}

// CompareKeys returns 0 if a and b hold the same bytes. Otherwise a shorter
// key sorts first, and keys of equal length are ordered bytewise.
func CompareKeys(a, b Key) int {
	switch {
	case len(a.buf) < len(b.buf):
		return -1
	case len(a.buf) > len(b.buf):
		return 1
	}
	return bytes.Compare(a.buf, b.buf)
}
