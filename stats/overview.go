// Copyright 2025 The tricklestat authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"fmt"
	"slices"
	"strings"

	"github.com/czcorpus/cnc-gokit/collections"
	mapset "github.com/deckarep/golang-set"
	"github.com/ebma/tricklestat/index"
	"github.com/ebma/tricklestat/record"
)

const unknownValue = "?"

// OverviewEntry is a number of distinct experiments sharing the same
// eavesdropper count, latency and file size
type OverviewEntry struct {
	Key            string `json:"key"`
	NumExperiments int    `json:"numExperiments"`
}

func attrOrUnknown(rec record.Attributed, name string) string {
	if v, ok := rec.Attr(name); ok && v != "" {
		return v
	}
	return unknownValue
}

// OverviewKey renders the configuration of a record
// as `<eavesCount>-<latencyMS>ms-<fileSize>byte`
func OverviewKey(rec record.Attributed) string {
	return fmt.Sprintf(
		"%s-%sms-%sbyte",
		attrOrUnknown(rec, record.AttrEavesCount),
		attrOrUnknown(rec, record.AttrLatencyMS),
		attrOrUnknown(rec, record.AttrFileSize),
	)
}

// Overview counts distinct experiments per configuration. Entries are
// sorted by the number of experiments (descending), then by key.
func Overview[T record.Attributed](records []T) []OverviewEntry {
	experiments := make(map[string]mapset.Set)
	for _, rec := range records {
		key := OverviewKey(rec)
		if _, ok := experiments[key]; !ok {
			experiments[key] = mapset.NewSet()
		}
		exp, _ := rec.Attr(record.AttrExperiment)
		experiments[key].Add(exp)
	}
	counts := make(map[string]int, len(experiments))
	for k, v := range experiments {
		counts[k] = v.Cardinality()
	}
	entries := collections.MapToEntriesSorted(
		counts,
		func(a, b collections.MapEntry[string, int]) int {
			if a.V != b.V {
				return b.V - a.V
			}
			return strings.Compare(a.K, b.K)
		},
	)
	ans := make([]OverviewEntry, len(entries))
	for i, e := range entries {
		ans[i] = OverviewEntry{Key: e.K, NumExperiments: e.V}
	}
	return ans
}

// DistinctValues lists values of an attribute found in records
// in natural order. Records without the attribute are ignored.
func DistinctValues[T record.Attributed](records []T, attr string) []string {
	values := mapset.NewSet()
	for _, rec := range records {
		if v, ok := rec.Attr(attr); ok {
			values.Add(v)
		}
	}
	ans := make([]string, 0, values.Cardinality())
	for v := range values.Iter() {
		ans = append(ans, v.(string))
	}
	slices.SortFunc(ans, index.CompareValues)
	return ans
}
