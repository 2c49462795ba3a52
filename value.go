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

import "fmt"

// DupFunc duplicates a value when a Map is cloned. It returns an error if the
// copy cannot be made, which aborts the clone.
type DupFunc[V any] func(v V) (V, error)

// FreeFunc releases whatever a value owns. It is invoked for every live value
// when a Map is closed, and for already duplicated values when a Clone fails.
type FreeFunc[V any] func(v V)

// StringFunc renders a value for Map.ToString.
type StringFunc[V any] func(v V) string

// DupBytes is a DupFunc for []byte values.
func DupBytes(v []byte) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// FreeNothing is a FreeFunc for values that own no resources.
func FreeNothing[V any](V) {}

// Sprint is a StringFunc that formats any value with fmt.
func Sprint[V any](v V) string {
	return fmt.Sprint(v)
}
