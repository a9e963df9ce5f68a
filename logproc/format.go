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

package logproc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format describes where a capture version stores its composite
// attribute string and its magnitude (a timestamp for messages,
// a measured value for metrics).
type Format struct {
	Name           string
	CompositeField string

	// MagnitudePath is a dot separated path to the magnitude field
	MagnitudePath string
}

var (
	FormatMeta = Format{Name: "meta", CompositeField: "meta", MagnitudePath: "ts"}
	FormatName = Format{Name: "name", CompositeField: "name", MagnitudePath: "measures.value"}
	FormatInfo = Format{Name: "info", CompositeField: "info", MagnitudePath: "timestamp"}

	// FormatPlain applies to lines without any composite field
	// (e.g. node announcements)
	FormatPlain = Format{Name: "plain", MagnitudePath: "timestamp"}

	knownFormats = []Format{FormatMeta, FormatName, FormatInfo}
)

// detectFormat resolves the capture version of a line. The first
// known format whose composite field holds a JSON string wins.
func detectFormat(fields map[string]json.RawMessage) (Format, string) {
	for _, f := range knownFormats {
		raw, ok := fields[f.CompositeField]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return f, s
		}
	}
	return FormatPlain, ""
}

func lookupPath(fields map[string]json.RawMessage, path string) (json.RawMessage, bool) {
	items := strings.Split(path, ".")
	curr := fields
	for i, item := range items {
		raw, ok := curr[item]
		if !ok {
			return nil, false
		}
		if i == len(items)-1 {
			return raw, true
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(raw, &next); err != nil || next == nil {
			return nil, false
		}
		curr = next
	}
	return nil, false
}

// parseNumber accepts both JSON numbers and numbers written
// as quoted decimal strings (the capture tool writes `"ts": "123"`).
func parseNumber(raw json.RawMessage) (float64, string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, "", fmt.Errorf("not a number: %s", string(raw))
		}
		s = n.String()
	}
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, "", fmt.Errorf("not a number: %w", err)
	}
	return v, s, nil
}

// parseTimestamp is parseNumber with exact integer handling
// (nanosecond timestamps do not fit into float64 mantissa)
func parseTimestamp(raw json.RawMessage) (int64, error) {
	_, s, err := parseNumber(raw)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid timestamp %s", s)
	}
	return int64(f), nil
}

// scalarString converts a JSON scalar into its attribute form.
// Objects, arrays and nulls are reported as not scalar.
func scalarString(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}
