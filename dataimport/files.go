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
	"io/fs"
	"path/filepath"
	"strings"
)

const (
	MessageHistoryFile = "messageHistory.out"
	GlobalInfoFile     = "globalInfo.out"
	ResultsFile        = "results.out"

	DefaultExperimentPathDepth = 4
)

// Category is a kind of capture log file
type Category int

const (
	CategoryUnknown Category = iota
	CategoryMessages
	CategoryInfo
	CategoryMetrics
)

func (c Category) String() string {
	switch c {
	case CategoryMessages:
		return "messages"
	case CategoryInfo:
		return "info"
	case CategoryMetrics:
		return "metrics"
	default:
		return "unknown"
	}
}

// CategoryOf determines log category by the file name
func CategoryOf(path string) Category {
	switch filepath.Base(path) {
	case MessageHistoryFile:
		return CategoryMessages
	case GlobalInfoFile:
		return CategoryInfo
	case ResultsFile:
		return CategoryMetrics
	default:
		return CategoryUnknown
	}
}

// ExperimentIDFromPath returns the path segment `depth` positions from
// the end, the file name itself being at position 1.
func ExperimentIDFromPath(path string, depth int) (string, error) {
	if depth < 1 {
		return "", fmt.Errorf("invalid experiment path depth %d", depth)
	}
	items := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	if len(items) < depth {
		return "", fmt.Errorf("path %s is too short to contain experiment id at depth %d", path, depth)
	}
	ans := items[len(items)-depth]
	if ans == "" || ans == "." || ans == ".." {
		return "", fmt.Errorf("path %s does not contain experiment id at depth %d", path, depth)
	}
	return ans, nil
}

// LogFile is a discovered capture log together with its metadata
type LogFile struct {
	Path         string
	ExperimentID string
	Category     Category
}

// DiscoverLogFiles walks the results directory and collects all the
// recognized log files in lexical path order.
func DiscoverLogFiles(root string, depth int) ([]LogFile, error) {
	var ans []LogFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		cat := CategoryOf(path)
		if cat == CategoryUnknown {
			return nil
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		expID, err := ExperimentIDFromPath(absPath, depth)
		if err != nil {
			return err
		}
		ans = append(ans, LogFile{Path: path, ExperimentID: expID, Category: cat})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover log files in %s: %w", root, err)
	}
	return ans, nil
}
