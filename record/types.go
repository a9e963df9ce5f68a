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

package record

import "slices"

// InfoType distinguishes lines of the global info log
type InfoType string

const (
	InfoTypeLeech InfoType = "LeechInfo"
	InfoTypeNode  InfoType = "NodeInfo"
)

// MessageRecord is one logged protocol exchange as seen
// by its receiver.
type MessageRecord struct {
	Attributes Attributes `msgpack:"attrs" json:"attrs"`

	// Timestamp is a monotonic capture time (UnixNano in
	// current captures).
	Timestamp int64 `msgpack:"ts" json:"ts"`

	Sender   string `msgpack:"sender" json:"sender"`
	Receiver string `msgpack:"receiver" json:"receiver"`

	// Wants contains content identifiers requested by the sender
	Wants []string `msgpack:"wants" json:"wants"`
}

func (rec *MessageRecord) Attr(name string) (string, bool) {
	return rec.Attributes.Attr(name)
}

func (rec *MessageRecord) WantsContent(cid string) bool {
	return slices.Contains(rec.Wants, cid)
}

// ------------------------------------

// InfoRecord is a generic line of the global info log. Only lines of
// type InfoTypeLeech carry ground truth, the rest are auxiliary.
type InfoRecord struct {
	Attributes Attributes `msgpack:"attrs" json:"attrs"`
	Type       InfoType   `msgpack:"type" json:"type"`
}

func (rec *InfoRecord) Attr(name string) (string, bool) {
	return rec.Attributes.Attr(name)
}

// ------------------------------------

// GroundTruthRecord describes one fetch attempt together with
// its true source.
type GroundTruthRecord struct {
	Attributes Attributes `msgpack:"attrs" json:"attrs"`

	// LookingFor is the fetched content id
	LookingFor string `msgpack:"lookingFor" json:"lookingFor"`

	// Peer is the true source of the content
	Peer string `msgpack:"peer" json:"peer"`

	// Prediction is filled in by the scorer. Empty value with
	// Evaluated == true means no prediction was possible.
	Prediction string `msgpack:"prediction" json:"prediction"`

	PredictionCorrect bool `msgpack:"predictionCorrect" json:"predictionCorrect"`

	Evaluated bool `msgpack:"evaluated" json:"evaluated"`
}

func (rec *GroundTruthRecord) Attr(name string) (string, bool) {
	return rec.Attributes.Attr(name)
}

// Annotate stores an evaluation outcome
func (rec *GroundTruthRecord) Annotate(prediction string, found bool) {
	rec.Evaluated = true
	rec.Prediction = prediction
	rec.PredictionCorrect = found && prediction == rec.Peer
}

// Clone returns an unevaluated copy sharing no mutable state
// with the original.
func (rec *GroundTruthRecord) Clone() *GroundTruthRecord {
	return &GroundTruthRecord{
		Attributes: rec.Attributes.Clone(),
		LookingFor: rec.LookingFor,
		Peer:       rec.Peer,
	}
}

// CloneTargets clones a whole target collection
func CloneTargets(targets []*GroundTruthRecord) []*GroundTruthRecord {
	ans := make([]*GroundTruthRecord, len(targets))
	for i, t := range targets {
		ans[i] = t.Clone()
	}
	return ans
}

// ------------------------------------

// NodeInfoRecord announces a node role within a topology
type NodeInfoRecord struct {
	Attributes Attributes `msgpack:"attrs" json:"attrs"`
	NodeID     string     `msgpack:"nodeId" json:"nodeId"`
	NodeType   string     `msgpack:"nodeType" json:"nodeType"`
}

func (rec *NodeInfoRecord) Attr(name string) (string, bool) {
	return rec.Attributes.Attr(name)
}

// ------------------------------------

// MetricRecord is a scalar measurement (time to fetch, number
// of blocks etc.) tagged with experiment dimensions.
type MetricRecord struct {
	Attributes Attributes `msgpack:"attrs" json:"attrs"`

	// Name is the measurement name (e.g. time_to_fetch)
	Name  string  `msgpack:"name" json:"name"`
	Value float64 `msgpack:"value" json:"value"`
}

func (rec *MetricRecord) Attr(name string) (string, bool) {
	return rec.Attributes.Attr(name)
}
