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

// Package logproc turns raw capture log lines into attribute records.
//
// A line is a JSON object with a few fixed fields and one composite
// string (`meta`, `name` or `info`) of the form `key:value/key:value/...`
// multiplexing the experiment dimensions. All decoding functions are pure.
package logproc

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ebma/tricklestat/record"
)

const (
	compositeSegmentSep = "/"
	compositeKVSep      = ":"
	topologyTokenSep    = "-"

	fieldMessage = "message"
	fieldWants   = "wants"
	fieldTS      = "ts"
)

// parsedLine is an intermediate result shared by the typed decoders
type parsedLine struct {
	format    Format
	fields    map[string]json.RawMessage
	attrs     record.Attributes
	magnitude json.RawMessage
}

// SplitComposite parses a composite attribute string. When a key
// repeats, the later occurrence wins.
func SplitComposite(composite string) (record.Attributes, error) {
	ans := make(record.Attributes)
	for _, segment := range strings.Split(composite, compositeSegmentSep) {
		k, v, found := strings.Cut(segment, compositeKVSep)
		if !found {
			return nil, &DecodeError{
				Reason:  "composite segment lacks key/value separator",
				Segment: segment,
			}
		}
		ans[k] = v
	}
	return ans, nil
}

// EavesCountFromTopology derives the number of eavesdroppers from
// a topology string like `(10-2-1-5)` or `star-5`, i.e. the first
// character of the last dash separated token. Only digits are accepted.
func EavesCountFromTopology(topology string) (string, bool) {
	tokens := strings.Split(topology, topologyTokenSep)
	last := tokens[len(tokens)-1]
	if last == "" || last[0] < '0' || last[0] > '9' {
		return "", false
	}
	return last[:1], true
}

func parseLine(line []byte, experimentID string) (*parsedLine, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, &DecodeError{Reason: "malformed line", Err: err}
	}
	if fields == nil {
		return nil, &DecodeError{Reason: "line is not an object"}
	}
	format, composite := detectFormat(fields)
	ans := &parsedLine{
		format: format,
		fields: fields,
		attrs:  make(record.Attributes),
	}

	var supplied bool
	if format.CompositeField != "" {
		attrs, err := SplitComposite(composite)
		if err != nil {
			return nil, err
		}
		ans.attrs = attrs
		_, supplied = attrs[record.AttrEavesCount]
	}

	// fixed (non-composite) fields go straight through
	for name, raw := range fields {
		if name == format.CompositeField {
			continue
		}
		if v, ok := scalarString(raw); ok {
			ans.attrs[name] = v
			continue
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil || nested == nil {
			continue
		}
		// legacy info lines store their properties as a nested object
		if name == FormatInfo.CompositeField {
			for k, v := range nested {
				if sv, ok := scalarString(v); ok {
					ans.attrs[k] = sv
					if k == record.AttrEavesCount {
						supplied = true
					}
				}
			}
		}
	}
	if _, ok := fields[record.AttrEavesCount]; ok {
		supplied = true
	}

	if raw, ok := lookupPath(fields, format.MagnitudePath); ok {
		ans.magnitude = raw

	} else if raw, ok := fields[fieldTS]; ok {
		ans.magnitude = raw

	} else if raw, ok := fields[record.AttrTimestamp]; ok {
		ans.magnitude = raw
	}
	if ans.magnitude != nil {
		if _, s, err := parseNumber(ans.magnitude); err == nil {
			if format == FormatName {
				ans.attrs[record.AttrValue] = s

			} else {
				ans.attrs[record.AttrTimestamp] = s
			}
		}
	}

	for k, v := range record.OptionalDefaults {
		if _, ok := ans.attrs[k]; !ok {
			ans.attrs[k] = v
		}
	}
	if topology, ok := ans.attrs[record.AttrTopology]; ok && !supplied {
		if ec, ok := EavesCountFromTopology(topology); ok {
			ans.attrs[record.AttrEavesCount] = ec
		}
	}
	ans.attrs[record.AttrExperiment] = experimentID
	return ans, nil
}

// Decode turns one raw log line into a flat attribute record.
// The result always contains the `experiment` attribute and the
// optional attributes listed in record.OptionalDefaults.
func Decode(line []byte, experimentID string) (record.Attributes, error) {
	p, err := parseLine(line, experimentID)
	if err != nil {
		return nil, err
	}
	return p.attrs, nil
}

// DecodeMessage decodes a message history line. Sender, receiver,
// timestamp and the wanted content list are required.
func DecodeMessage(line []byte, experimentID string) (*record.MessageRecord, error) {
	p, err := parseLine(line, experimentID)
	if err != nil {
		return nil, err
	}
	ans := &record.MessageRecord{Attributes: p.attrs}
	if ans.Sender = p.attrs[record.AttrSender]; ans.Sender == "" {
		return nil, missingField(record.AttrSender)
	}
	if ans.Receiver = p.attrs[record.AttrReceiver]; ans.Receiver == "" {
		return nil, missingField(record.AttrReceiver)
	}
	if p.magnitude == nil {
		return nil, missingField(fieldTS)
	}
	ans.Timestamp, err = parseTimestamp(p.magnitude)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid timestamp", Err: err}
	}
	// FormatName stores the magnitude as `value`, for a message it is
	// still a timestamp
	if p.format == FormatName {
		delete(ans.Attributes, record.AttrValue)
	}
	ans.Attributes[record.AttrTimestamp] = strconv.FormatInt(ans.Timestamp, 10)
	wantsRaw, ok := lookupPath(p.fields, fieldMessage+"."+fieldWants)
	if !ok {
		return nil, missingField(fieldMessage + "." + fieldWants)
	}
	if err := json.Unmarshal(wantsRaw, &ans.Wants); err != nil {
		return nil, &DecodeError{Reason: "invalid wants list", Err: err}
	}
	return ans, nil
}

// DecodeInfo decodes a line of the global info log.
func DecodeInfo(line []byte, experimentID string) (*record.InfoRecord, error) {
	p, err := parseLine(line, experimentID)
	if err != nil {
		return nil, err
	}
	tp := p.attrs[record.AttrType]
	if tp == "" {
		return nil, missingField(record.AttrType)
	}
	return &record.InfoRecord{Attributes: p.attrs, Type: record.InfoType(tp)}, nil
}

// ToGroundTruth converts a leech info record. Other info types
// produce ErrNotGroundTruth.
func ToGroundTruth(info *record.InfoRecord) (*record.GroundTruthRecord, error) {
	if info.Type != record.InfoTypeLeech {
		return nil, ErrNotGroundTruth
	}
	for _, req := range []string{
		record.AttrPeer, record.AttrLookingFor, record.AttrRun, record.AttrPermutationIndex} {
		if info.Attributes[req] == "" {
			return nil, missingField(req)
		}
	}
	return &record.GroundTruthRecord{
		Attributes: info.Attributes,
		LookingFor: info.Attributes[record.AttrLookingFor],
		Peer:       info.Attributes[record.AttrPeer],
	}, nil
}

func ToNodeInfo(info *record.InfoRecord) (*record.NodeInfoRecord, error) {
	if info.Type != record.InfoTypeNode {
		return nil, ErrNotNodeInfo
	}
	ans := &record.NodeInfoRecord{
		Attributes: info.Attributes,
		NodeID:     info.Attributes[record.AttrNodeID],
		NodeType:   info.Attributes[record.AttrNodeType],
	}
	if ans.NodeID == "" {
		return nil, missingField(record.AttrNodeID)
	}
	if ans.NodeType == "" {
		return nil, missingField(record.AttrNodeType)
	}
	return ans, nil
}

// DecodeMetric decodes a `results.out` line, i.e.
// `{"name": "<composite>/meta:<metric>", "measures": {"value": n}}`
func DecodeMetric(line []byte, experimentID string) (*record.MetricRecord, error) {
	p, err := parseLine(line, experimentID)
	if err != nil {
		return nil, err
	}
	if p.format.CompositeField == "" {
		return nil, missingField(FormatName.CompositeField)
	}
	ans := &record.MetricRecord{Attributes: p.attrs}
	if ans.Name = p.attrs[record.AttrMeta]; ans.Name == "" {
		return nil, missingField(record.AttrMeta)
	}
	raw, ok := lookupPath(p.fields, FormatName.MagnitudePath)
	if !ok {
		raw, ok = p.fields[record.AttrValue]
	}
	if !ok {
		return nil, missingField(FormatName.MagnitudePath)
	}
	ans.Value, _, err = parseNumber(raw)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid metric value", Err: err}
	}
	ans.Attributes[record.AttrValue] = strconv.FormatFloat(ans.Value, 'f', -1, 64)
	return ans, nil
}
