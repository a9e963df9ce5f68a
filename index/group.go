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

// Package index partitions decoded records by their attribute values.
package index

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ebma/tricklestat/record"
)

// ErrMissingAttribute matches every MissingAttributeError via errors.Is
var ErrMissingAttribute = errors.New("record lacks grouping attribute")

// MissingAttributeError reports a record which cannot be grouped
// because it does not carry the requested attribute.
type MissingAttributeError struct {
	Attribute string

	// Position is the index of the offending record within the input
	Position int
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("%s %s (record %d)", ErrMissingAttribute, e.Attribute, e.Position)
}

func (e *MissingAttributeError) Is(target error) bool {
	return target == ErrMissingAttribute
}

// ------------------------------------

// Groups is the result of a single attribute grouping. Buckets
// keep the relative order of the input records.
type Groups[T record.Attributed] struct {
	attr    string
	keys    []string
	buckets map[string][]T
}

// Attr returns the name of the grouping attribute
func (g *Groups[T]) Attr() string {
	return g.attr
}

// Keys returns attribute values in order of their first appearance
func (g *Groups[T]) Keys() []string {
	return slices.Clone(g.keys)
}

// SortedKeys returns attribute values in natural order (numbers
// numerically, the rest lexicographically).
func (g *Groups[T]) SortedKeys() []string {
	ans := slices.Clone(g.keys)
	slices.SortFunc(ans, CompareValues)
	return ans
}

func (g *Groups[T]) Get(value string) []T {
	return g.buckets[value]
}

func (g *Groups[T]) Len() int {
	return len(g.keys)
}

// AsMap exposes the buckets as a plain map. The returned map
// must not be modified.
func (g *Groups[T]) AsMap() map[string][]T {
	return g.buckets
}

// Group performs a stable exact-match partition of records by the value
// of attr. Every record must carry the attribute, otherwise
// a MissingAttributeError is returned.
func Group[T record.Attributed](records []T, attr string) (*Groups[T], error) {
	ans := &Groups[T]{
		attr:    attr,
		buckets: make(map[string][]T),
	}
	for i, rec := range records {
		v, ok := rec.Attr(attr)
		if !ok {
			return nil, &MissingAttributeError{Attribute: attr, Position: i}
		}
		if _, seen := ans.buckets[v]; !seen {
			ans.keys = append(ans.keys, v)
		}
		ans.buckets[v] = append(ans.buckets[v], rec)
	}
	return ans, nil
}

// CompareValues orders attribute values naturally. When both values
// are numbers, they are compared numerically.
func CompareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return strings.Compare(a, b)
	}
	if errA == nil {
		return -1
	}
	if errB == nil {
		return 1
	}
	return strings.Compare(a, b)
}
