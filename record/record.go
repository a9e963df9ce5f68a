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

import (
	"fmt"
	"maps"
	"slices"
)

// Attribute names used across the capture formats. Values are always
// strings, numeric interpretation is up to the consumer.
const (
	AttrExperiment       = "experiment"
	AttrRun              = "run"
	AttrPermutationIndex = "permutationIndex"
	AttrLatencyMS        = "latencyMS"
	AttrBandwidthMB      = "bandwidthMB"
	AttrTricklingDelay   = "tricklingDelay"
	AttrFileSize         = "fileSize"
	AttrTopology         = "topology"
	AttrEavesCount       = "eavesCount"
	AttrExType           = "exType"
	AttrDialer           = "dialer"
	AttrNodeType         = "nodeType"
	AttrMeta             = "meta"

	AttrSender     = "sender"
	AttrReceiver   = "receiver"
	AttrTimestamp  = "timestamp"
	AttrValue      = "value"
	AttrType       = "type"
	AttrPeer       = "peer"
	AttrLookingFor = "lookingFor"
	AttrNodeID     = "nodeId"
)

// Node types as written by the capture tool.
const (
	NodeTypeLeech        = "Leech"
	NodeTypeSeed         = "Seed"
	NodeTypePassive      = "Passive"
	NodeTypeEavesdropper = "Eavesdropper"
)

// OptionalDefaults lists attributes older capture formats may omit
// together with the value they receive when missing.
var OptionalDefaults = map[string]string{
	AttrEavesCount:     "0",
	AttrTricklingDelay: "0",
	AttrExType:         "trickle",
	AttrDialer:         "edge",
}

// Attributed is anything which can be grouped and filtered by
// its attribute values.
type Attributed interface {
	Attr(name string) (string, bool)
}

// Attributes is a flat attribute name -> value mapping decoded
// from a log line.
type Attributes map[string]string

func (attrs Attributes) Attr(name string) (string, bool) {
	v, ok := attrs[name]
	return v, ok
}

// MustAttr returns the attribute value or an empty string
func (attrs Attributes) MustAttr(name string) string {
	return attrs[name]
}

func (attrs Attributes) Clone() Attributes {
	return maps.Clone(attrs)
}

// Names returns sorted attribute names
func (attrs Attributes) Names() []string {
	return slices.Sorted(maps.Keys(attrs))
}

// ------------------------------------

// RunKey identifies one logical run of an experiment.
type RunKey struct {
	Experiment       string
	Run              string
	PermutationIndex string
}

func (rk RunKey) String() string {
	return fmt.Sprintf("%s/%s/%s", rk.Experiment, rk.PermutationIndex, rk.Run)
}

// RunKeyOf extracts the run identification from a record. Missing
// attributes produce empty parts.
func RunKeyOf(rec Attributed) RunKey {
	exp, _ := rec.Attr(AttrExperiment)
	run, _ := rec.Attr(AttrRun)
	perm, _ := rec.Attr(AttrPermutationIndex)
	return RunKey{Experiment: exp, Run: run, PermutationIndex: perm}
}
