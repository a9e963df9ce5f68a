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

// Package stats provides descriptive statistics of scalar
// measurements (time to fetch, exchanged blocks etc.) collected
// along the experiments.
package stats

import (
	"fmt"

	"github.com/ebma/tricklestat/index"
	"github.com/ebma/tricklestat/record"
	mstats "github.com/montanaflynn/stats"
)

const (
	MetricTimeToFetch = "time_to_fetch"
	MetricBlocksSent  = "blks_sent"
	MetricDupBlocks   = "dup_blks_rcvd"
	MetricMsgsRcvd    = "msgs_rcvd"

	// outlierFactor defines outliers as values at least this
	// many times larger than the mean
	outlierFactor = 2.0
)

// MetricFilter selects metric records to summarize
type MetricFilter struct {
	Name string

	// NodeType restricts records to a node role (empty = any)
	NodeType string

	// ReplaceOutliers replaces values >= 2*mean with the mean
	ReplaceOutliers bool
}

func (f MetricFilter) accepts(m *record.MetricRecord) bool {
	if m.Name != f.Name {
		return false
	}
	if f.NodeType != "" {
		v, ok := m.Attr(record.AttrNodeType)
		return ok && v == f.NodeType
	}
	return true
}

// Summary describes values of a metric within one partition
type Summary struct {
	Key         index.GroupKey `json:"key"`
	Count       int            `json:"count"`
	Mean        float64        `json:"mean"`
	Median      float64        `json:"median"`
	StdDev      float64        `json:"stdDev"`
	Min         float64        `json:"min"`
	Max         float64        `json:"max"`
	NumOutliers int            `json:"numOutliers"`
}

// ReplaceOutliers returns a copy of values where each value
// at least twice as large as the mean is replaced by the mean.
func ReplaceOutliers(values []float64) ([]float64, int, error) {
	avg, err := mstats.Mean(values)
	if err != nil {
		return nil, 0, err
	}
	ans := make([]float64, len(values))
	var numReplaced int
	for i, v := range values {
		if v >= outlierFactor*avg {
			ans[i] = avg
			numReplaced++

		} else {
			ans[i] = v
		}
	}
	return ans, numReplaced, nil
}

func summarize(values []float64, replaceOutliers bool) (Summary, error) {
	var ans Summary
	if replaceOutliers {
		var err error
		values, ans.NumOutliers, err = ReplaceOutliers(values)
		if err != nil {
			return ans, err
		}
	}
	data := mstats.LoadRawData(values)
	var err error
	if ans.Mean, err = data.Mean(); err != nil {
		return ans, err
	}
	if ans.Median, err = data.Median(); err != nil {
		return ans, err
	}
	if ans.StdDev, err = data.StandardDeviation(); err != nil {
		return ans, err
	}
	if ans.Min, err = data.Min(); err != nil {
		return ans, err
	}
	if ans.Max, err = data.Max(); err != nil {
		return ans, err
	}
	ans.Count = len(values)
	return ans, nil
}

// Summarize computes descriptive statistics of the selected metric
// in each partition given by dims.
func Summarize(metrics []*record.MetricRecord, filter MetricFilter, dims ...string) ([]Summary, error) {
	selected := make([]*record.MetricRecord, 0, len(metrics))
	for _, m := range metrics {
		if filter.accepts(m) {
			selected = append(selected, m)
		}
	}
	parts, err := index.PartitionBy(selected, dims...)
	if err != nil {
		return nil, fmt.Errorf("failed to partition metric %s: %w", filter.Name, err)
	}
	ans := make([]Summary, 0, len(parts))
	for _, part := range parts {
		values := make([]float64, len(part.Items))
		for i, m := range part.Items {
			values[i] = m.Value
		}
		summary, err := summarize(values, filter.ReplaceOutliers)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize partition %s: %w", part.Key, err)
		}
		summary.Key = part.Key
		ans = append(ans, summary)
	}
	return ans, nil
}
