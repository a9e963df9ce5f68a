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

package index

import (
	"slices"
	"strconv"
	"strings"

	"github.com/ebma/tricklestat/record"
)

type KeyPart struct {
	Name  string `json:"name" msgpack:"name"`
	Value string `json:"value" msgpack:"value"`
}

// GroupKey is an ordered set of attribute name/value pairs identifying
// one partition. An empty key matches everything.
type GroupKey []KeyPart

// String renders the key in the composite form (`k:v/k:v`)
func (key GroupKey) String() string {
	var ans strings.Builder
	for i, p := range key {
		if i > 0 {
			ans.WriteString("/")
		}
		ans.WriteString(p.Name)
		ans.WriteString(":")
		ans.WriteString(p.Value)
	}
	return ans.String()
}

// Value returns the value of a named key part
func (key GroupKey) Value(name string) (string, bool) {
	for _, p := range key {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func (key GroupKey) Names() []string {
	ans := make([]string, len(key))
	for i, p := range key {
		ans[i] = p.Name
	}
	return ans
}

// Matches tests whether rec agrees on every attribute of the key.
// A record lacking any of the attributes never matches.
func (key GroupKey) Matches(rec record.Attributed) bool {
	for _, p := range key {
		v, ok := rec.Attr(p.Name)
		if !ok || v != p.Value {
			return false
		}
	}
	return true
}

// mapKey encodes the key values unambiguously (String() is not
// injective for values containing separators)
func (key GroupKey) mapKey() string {
	var ans strings.Builder
	for _, p := range key {
		ans.WriteString(strconv.Quote(p.Value))
	}
	return ans.String()
}

func compareKeys(a, b GroupKey) int {
	for i := 0; i < min(len(a), len(b)); i++ {
		if c := CompareValues(a[i].Value, b[i].Value); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// ------------------------------------

// Partition is a group of records sharing the same GroupKey
type Partition[T record.Attributed] struct {
	Key   GroupKey
	Items []T
}

// PartitionBy splits records along all the dimensions in one pass.
// Partitions are sorted by their keys (natural ordering, dimension
// by dimension), items keep the input order. With no dimensions,
// a single partition with an empty key is returned (if there are
// any records).
func PartitionBy[T record.Attributed](records []T, dims ...string) ([]Partition[T], error) {
	byKey := make(map[string]*Partition[T])
	var ans []*Partition[T]
	for i, rec := range records {
		key := make(GroupKey, len(dims))
		for j, d := range dims {
			v, ok := rec.Attr(d)
			if !ok {
				return nil, &MissingAttributeError{Attribute: d, Position: i}
			}
			key[j] = KeyPart{Name: d, Value: v}
		}
		ks := key.mapKey()
		part, ok := byKey[ks]
		if !ok {
			part = &Partition[T]{Key: key}
			byKey[ks] = part
			ans = append(ans, part)
		}
		part.Items = append(part.Items, rec)
	}
	slices.SortStableFunc(ans, func(a, b *Partition[T]) int {
		return compareKeys(a.Key, b.Key)
	})
	ret := make([]Partition[T], len(ans))
	for i, p := range ans {
		ret[i] = *p
	}
	return ret, nil
}

// Filter narrows records to the ones matching the key. Unlike the
// grouping functions, all the records must carry the key attributes.
func Filter[T record.Attributed](records []T, key GroupKey) ([]T, error) {
	ans := make([]T, 0, len(records))
	for i, rec := range records {
		for _, p := range key {
			if _, ok := rec.Attr(p.Name); !ok {
				return nil, &MissingAttributeError{Attribute: p.Name, Position: i}
			}
		}
		if key.Matches(rec) {
			ans = append(ans, rec)
		}
	}
	return ans, nil
}
