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

package eval

import (
	"context"
	"fmt"

	"github.com/ebma/tricklestat/eval/predict"
	"github.com/ebma/tricklestat/index"
	"github.com/ebma/tricklestat/record"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// PartitionResult is an accuracy of predictions within one partition.
// Partitions which could not be scored are kept with Skipped set
// so consumers can distinguish zero accuracy from a missing value.
type PartitionResult struct {
	Key index.GroupKey `json:"key"`
	Score
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

func (pr PartitionResult) Status() string {
	if pr.Skipped {
		return "skipped"
	}
	return "ok"
}

// Result contains per-partition results and their sum
type Result struct {
	Dimensions []string          `json:"dimensions"`
	Estimator  string            `json:"estimator"`
	Partitions []PartitionResult `json:"partitions"`
	Overall    PartitionResult   `json:"overall"`
}

// ------------------------------------

// Evaluator runs source attribution over targets partitioned
// by a list of dimensions.
type Evaluator struct {
	Estimator  predict.Estimator
	Dimensions []string

	// ShowProgress enables a progress bar on stderr
	ShowProgress bool
}

func (ev *Evaluator) scorePartition(
	part index.Partition[*record.GroundTruthRecord],
	messages []*record.MessageRecord,
) PartitionResult {
	ans := PartitionResult{Key: part.Key}
	msgs, err := index.Filter(messages, part.Key)
	if err != nil {
		ans.Skipped = true
		ans.Error = err.Error()
		return ans
	}
	score, err := ScoreTargets(ev.Estimator, msgs, part.Items)
	if err != nil {
		ans.Skipped = true
		ans.Error = err.Error()
		return ans
	}
	ans.Score = score
	return ans
}

// Run evaluates targets against the provided messages. Messages are
// expected to be observed by eavesdroppers already (see EavesdropperMessages).
// Targets get annotated with their predictions.
func (ev *Evaluator) Run(
	ctx context.Context,
	messages []*record.MessageRecord,
	targets []*record.GroundTruthRecord,
) (Result, error) {
	ans := Result{Dimensions: ev.Dimensions, Estimator: ev.Estimator.Name()}
	parts, err := index.PartitionBy(targets, ev.Dimensions...)
	if err != nil {
		return ans, fmt.Errorf("failed to partition targets: %w", err)
	}
	var bar *progressbar.ProgressBar
	if ev.ShowProgress {
		bar = progressbar.Default(int64(len(parts)), "evaluating partitions")
	}
	ans.Partitions = make([]PartitionResult, 0, len(parts))
	for _, part := range parts {
		select {
		case <-ctx.Done():
			return ans, ctx.Err()
		default:
		}
		res := ev.scorePartition(part, messages)
		if res.Skipped {
			log.Warn().
				Str("partition", res.Key.String()).
				Str("reason", res.Error).
				Msg("skipping partition")

		} else {
			log.Debug().
				Str("partition", res.Key.String()).
				Int("targets", res.NumTargets).
				Float64("rate", res.Rate).
				Msg("partition evaluated")
			ans.Overall.Score = ans.Overall.Score.add(res.Score)
		}
		ans.Partitions = append(ans.Partitions, res)
		if bar != nil {
			bar.Add(1)
		}
	}
	if ans.Overall.NumTargets == 0 {
		ans.Overall.Skipped = true
		ans.Overall.Error = (&EmptyGroupError{}).Error()
	}
	return ans, nil
}
