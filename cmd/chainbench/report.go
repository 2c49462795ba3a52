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

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/chainmap"
	"github.com/olekukonko/tablewriter"
	"github.com/sugawarayuuta/sonnet"
)

var statsHeader = []string{"used/cap", "chains", "avg chain", "longest chain", "load"}

func statsRow(s chainmap.Stats) []string {
	return []string{
		fmt.Sprintf("%d+%d/%d+%d", s.Used, s.CellarUsed, s.Capacity, s.CellarCapacity),
		strconv.Itoa(s.Chains),
		fmt.Sprintf("%.2f", s.AvgChainLen),
		strconv.Itoa(s.LongestChain),
		fmt.Sprintf("%.3f", s.LoadFactor()),
	}
}

func renderTable(w io.Writer, title string, header []string, rows [][]string) {
	fmt.Fprintf(w, "%s\n", title)
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := sonnet.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
