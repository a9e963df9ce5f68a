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

package dataimport

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// SaveSnapshot stores a decoded corpus so repeated evaluations
// do not need to parse the raw logs again.
func SaveSnapshot(path string, corpus *Corpus) error {
	srz, err := msgpack.Marshal(corpus)
	if err != nil {
		return fmt.Errorf("failed to serialize corpus: %w", err)
	}
	if err := os.WriteFile(path, srz, 0644); err != nil {
		return fmt.Errorf("failed to save corpus snapshot %s: %w", path, err)
	}
	return nil
}

func LoadSnapshot(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus snapshot %s: %w", path, err)
	}
	var ans Corpus
	if err := msgpack.Unmarshal(data, &ans); err != nil {
		return nil, fmt.Errorf("failed to deserialize corpus snapshot %s: %w", path, err)
	}
	return &ans, nil
}
