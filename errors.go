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

import "errors"

var (
	// ErrInvalidArgument is returned for a non-positive capacity, an empty
	// key, or a DupFunc supplied without a matching FreeFunc.
	ErrInvalidArgument = errors.New("chainmap: invalid argument")
	// ErrAllocation is returned when the Allocator is exhausted or when the
	// requested size cannot be represented.
	ErrAllocation = errors.New("chainmap: allocation failed")
	// ErrInvalidState is returned by operations on a Map that was closed or
	// never initialized.
	ErrInvalidState = errors.New("chainmap: invalid map state")
	// ErrSaturated is returned when no empty bucket is left for a colliding
	// entry. Growth normally makes this unreachable.
	ErrSaturated = errors.New("chainmap: no empty bucket available")
)
