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

// Stats describes the occupancy and chain structure of a Map.
type Stats struct {
	Capacity       int
	Used           int
	CellarCapacity int
	CellarUsed     int
	// Chains is the number of collision chains, counted by their heads. A
	// lone entry is a chain of length 1.
	Chains int
	// LongestChain is the length of the longest chain.
	LongestChain int
	// AvgChainLen is the mean chain length, or 0 for an empty map.
	AvgChainLen float64
}

// LoadFactor returns the fraction of primary buckets in use.
func (s Stats) LoadFactor() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Capacity)
}

// Stats walks every chain of the map and returns its statistics.
func (m *Map[V]) Stats() Stats {
	s := Stats{
		Capacity:       m.capacity,
		Used:           m.used,
		CellarCapacity: m.cellar.capacity,
		CellarUsed:     m.cellar.used,
	}
	if !m.valid() {
		return s
	}

	var total int
	for i := range m.buckets {
		b := &m.buckets[i]
		if !b.live() || b.prev != 0 {
			continue
		}
		n := 0
		for pos := uint32(i + 1); pos != 0; pos = m.at(pos).next {
			n++
		}
		s.Chains++
		total += n
		s.LongestChain = max(s.LongestChain, n)
	}
	if s.Chains > 0 {
		s.AvgChainLen = float64(total) / float64(s.Chains)
	}
	return s
}
