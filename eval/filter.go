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

	mapset "github.com/deckarep/golang-set"
	"github.com/ebma/tricklestat/record"
)

const (
	FilterNodeType = "nodeType"
	FilterNodeInfo = "nodeInfo"
)

var ErrNoSuchFilter = errors.New("no such eavesdropper filter")

// EavesdropperFilter decides whether a message was observed
// by an eavesdropper.
type EavesdropperFilter interface {
	Accept(msg *record.MessageRecord) bool
}

// NodeTypeFilter relies on the `nodeType` attribute the capture tool
// writes into the composite field of each message.
type NodeTypeFilter struct{}

func (f NodeTypeFilter) Accept(msg *record.MessageRecord) bool {
	v, _ := msg.Attr(record.AttrNodeType)
	return v == record.NodeTypeEavesdropper
}

// NodeInfoFilter accepts messages received by nodes announced
// as eavesdroppers within the same experiment.
type NodeInfoFilter struct {
	eavesdroppers mapset.Set
}

func nodeSetKey(experiment, nodeID string) string {
	return experiment + "/" + nodeID
}

func NewNodeInfoFilter(nodes []*record.NodeInfoRecord) *NodeInfoFilter {
	ans := &NodeInfoFilter{eavesdroppers: mapset.NewSet()}
	for _, node := range nodes {
		if node.NodeType == record.NodeTypeEavesdropper {
			exp, _ := node.Attr(record.AttrExperiment)
			ans.eavesdroppers.Add(nodeSetKey(exp, node.NodeID))
		}
	}
	return ans
}

func (f *NodeInfoFilter) Accept(msg *record.MessageRecord) bool {
	exp, _ := msg.Attr(record.AttrExperiment)
	return f.eavesdroppers.Contains(nodeSetKey(exp, msg.Receiver))
}

func (f *NodeInfoFilter) NumEavesdroppers() int {
	return f.eavesdroppers.Cardinality()
}

// GetEavesdropperFilter creates a filter by its configured name.
// Node info records are used only by the nodeInfo filter.
func GetEavesdropperFilter(name string, nodes []*record.NodeInfoRecord) (EavesdropperFilter, error) {
	switch name {
	case FilterNodeType:
		return NodeTypeFilter{}, nil
	case FilterNodeInfo:
		return NewNodeInfoFilter(nodes), nil
	default:
		return nil, ErrNoSuchFilter
	}
}

// EavesdropperMessages returns messages accepted by the filter
// keeping their order.
func EavesdropperMessages(messages []*record.MessageRecord, filter EavesdropperFilter) []*record.MessageRecord {
	ans := make([]*record.MessageRecord, 0, len(messages))
	for _, msg := range messages {
		if filter.Accept(msg) {
			ans = append(ans, msg)
		}
	}
	return ans
}
