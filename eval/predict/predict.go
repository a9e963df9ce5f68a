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

package predict

import (
	"cmp"
	"errors"
	"slices"

	"github.com/ebma/tricklestat/record"
)

const (
	EstimatorFirstTimestamp = "first-timestamp"
)

var ErrNoSuchEstimator = errors.New("no such estimator")

// Prediction is the outcome of source attribution for one content id
type Prediction struct {

	// Peer is the presumed source. Empty for NoPrediction.
	Peer string `json:"peer"`

	// Candidates is the number of observed messages relevant
	// to the content id
	Candidates int `json:"candidates"`
}

// Found tells whether the estimator observed anything relevant
func (p Prediction) Found() bool {
	return p.Candidates > 0
}

// NoPrediction means the eavesdroppers observed nothing relevant
// to the content id. It is a valid outcome, not an error.
var NoPrediction = Prediction{}

// Estimator predicts the true source of a content object from
// messages observed by eavesdroppers within a single logical run.
// Implementations must not modify the messages.
type Estimator interface {
	Predict(messages []*record.MessageRecord, cid string) Prediction
	Name() string
}

// ------------------------------------

// FirstTimestamp presumes the first peer requesting the content
// already holds it and forwards it.
type FirstTimestamp struct{}

func (est FirstTimestamp) Name() string {
	return EstimatorFirstTimestamp
}

func (est FirstTimestamp) Predict(messages []*record.MessageRecord, cid string) Prediction {
	relevant := make([]*record.MessageRecord, 0, 8)
	for _, msg := range messages {
		if msg.WantsContent(cid) {
			relevant = append(relevant, msg)
		}
	}
	if len(relevant) == 0 {
		return NoPrediction
	}
	// ties keep the input order
	slices.SortStableFunc(relevant, func(a, b *record.MessageRecord) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return Prediction{Peer: relevant[0].Sender, Candidates: len(relevant)}
}

// ------------------------------------

// GetEstimator returns an estimator by its configured name
func GetEstimator(name string) (Estimator, error) {
	switch name {
	case EstimatorFirstTimestamp:
		return FirstTimestamp{}, nil
	default:
		return nil, ErrNoSuchEstimator
	}
}
