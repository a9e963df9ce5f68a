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
	"errors"
	"fmt"

	"github.com/ebma/tricklestat/eval/predict"
	"github.com/ebma/tricklestat/record"
)

// ErrEmptyGroup matches every EmptyGroupError via errors.Is
var ErrEmptyGroup = errors.New("no ground truth targets to score")

// EmptyGroupError is returned when scoring a group without any
// targets (the rate would be undefined).
type EmptyGroupError struct {
	Key string
}

func (e *EmptyGroupError) Error() string {
	if e.Key == "" {
		return ErrEmptyGroup.Error()
	}
	return fmt.Sprintf("%s (group %s)", ErrEmptyGroup, e.Key)
}

func (e *EmptyGroupError) Is(target error) bool {
	return target == ErrEmptyGroup
}

// ------------------------------------

// Score summarizes prediction accuracy over a set of targets
type Score struct {
	NumTargets int `json:"numTargets"`
	NumCorrect int `json:"numCorrect"`

	// NumNoPrediction counts targets for which eavesdroppers observed
	// nothing relevant. They are included in NumTargets as wrong answers.
	NumNoPrediction int `json:"numNoPrediction"`

	Rate float64 `json:"rate"`
}

func (s Score) add(other Score) Score {
	ans := Score{
		NumTargets:      s.NumTargets + other.NumTargets,
		NumCorrect:      s.NumCorrect + other.NumCorrect,
		NumNoPrediction: s.NumNoPrediction + other.NumNoPrediction,
	}
	if ans.NumTargets > 0 {
		ans.Rate = float64(ans.NumCorrect) / float64(ans.NumTargets)
	}
	return ans
}

// ScoreTargets predicts the source of every target and compares it
// with the true peer. Each target is predicted only from the messages
// of its own run (experiment, run, permutation index). Targets are
// annotated in place, messages are left untouched.
func ScoreTargets(
	est predict.Estimator,
	messages []*record.MessageRecord,
	targets []*record.GroundTruthRecord,
) (Score, error) {
	if len(targets) == 0 {
		return Score{}, &EmptyGroupError{}
	}
	byRun := make(map[record.RunKey][]*record.MessageRecord)
	for _, msg := range messages {
		rk := record.RunKeyOf(msg)
		byRun[rk] = append(byRun[rk], msg)
	}
	ans := Score{NumTargets: len(targets)}
	for _, target := range targets {
		p := est.Predict(byRun[record.RunKeyOf(target)], target.LookingFor)
		target.Annotate(p.Peer, p.Found())
		if !p.Found() {
			ans.NumNoPrediction++

		} else if target.PredictionCorrect {
			ans.NumCorrect++
		}
	}
	ans.Rate = float64(ans.NumCorrect) / float64(ans.NumTargets)
	return ans, nil
}
