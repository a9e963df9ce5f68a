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
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ebma/tricklestat/logproc"
	"github.com/ebma/tricklestat/record"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

const (
	DefaultMaxParallelReads = 4
)

// Corpus is a decoded set of capture logs
type Corpus struct {
	Messages []*record.MessageRecord     `msgpack:"messages"`
	Targets  []*record.GroundTruthRecord `msgpack:"targets"`
	Nodes    []*record.NodeInfoRecord    `msgpack:"nodes"`
	Metrics  []*record.MetricRecord      `msgpack:"metrics"`
	Stats    ImportStats                 `msgpack:"stats"`
}

// ImportStats describes the outcome of loading a corpus
type ImportStats struct {
	FileStats
	NumFiles int `msgpack:"numFiles" json:"numFiles"`

	// NumDuplicateTargets counts ground truth lines repeating an already
	// seen (experiment, run, permutation, content) tuple
	NumDuplicateTargets int `msgpack:"numDuplicateTargets" json:"numDuplicateTargets"`
}

// ------------------------------------

// ConcurrentErr collects errors from parallel readers
type ConcurrentErr struct {
	lock  sync.Mutex
	items []error
}

func (cerr *ConcurrentErr) Add(err error) {
	cerr.lock.Lock()
	cerr.items = append(cerr.items, err)
	cerr.lock.Unlock()
}

func (cerr *ConcurrentErr) Err() error {
	cerr.lock.Lock()
	defer cerr.lock.Unlock()
	return errors.Join(cerr.items...)
}

// ------------------------------------

// corpusPart collects records of a single log file. It implements
// LineProcessor.
type corpusPart struct {
	category Category
	messages []*record.MessageRecord
	targets  []*record.GroundTruthRecord
	nodes    []*record.NodeInfoRecord
	metrics  []*record.MetricRecord
	stats    FileStats
}

func (part *corpusPart) processInfo(line []byte, experimentID string) error {
	info, err := logproc.DecodeInfo(line, experimentID)
	if err != nil {
		return err
	}
	gt, err := logproc.ToGroundTruth(info)
	if err == nil {
		part.targets = append(part.targets, gt)
		return nil

	} else if !errors.Is(err, logproc.ErrNotGroundTruth) {
		return err
	}
	node, err := logproc.ToNodeInfo(info)
	if errors.Is(err, logproc.ErrNotNodeInfo) {
		return ErrIgnoredLine

	} else if err != nil {
		return err
	}
	part.nodes = append(part.nodes, node)
	return nil
}

func (part *corpusPart) ProcessLine(line []byte, experimentID string) error {
	switch part.category {
	case CategoryMessages:
		msg, err := logproc.DecodeMessage(line, experimentID)
		if err != nil {
			return err
		}
		part.messages = append(part.messages, msg)
	case CategoryInfo:
		return part.processInfo(line, experimentID)
	case CategoryMetrics:
		metric, err := logproc.DecodeMetric(line, experimentID)
		if err != nil {
			return err
		}
		part.metrics = append(part.metrics, metric)
	default:
		return ErrIgnoredLine
	}
	return nil
}

// ------------------------------------

type targetKey struct {
	run record.RunKey
	cid string
}

// add merges records of a file into the corpus. Ground truth targets
// are deduplicated, the first occurrence wins.
func (c *Corpus) add(part *corpusPart, seen map[targetKey]bool) {
	c.Messages = append(c.Messages, part.messages...)
	c.Nodes = append(c.Nodes, part.nodes...)
	c.Metrics = append(c.Metrics, part.metrics...)
	for _, t := range part.targets {
		k := targetKey{run: record.RunKeyOf(t), cid: t.LookingFor}
		if seen[k] {
			c.Stats.NumDuplicateTargets++
			continue
		}
		seen[k] = true
		c.Targets = append(c.Targets, t)
	}
	c.Stats.FileStats = c.Stats.FileStats.add(part.stats)
	c.Stats.NumFiles++
}

// LoadOptions configures LoadCorpus
type LoadOptions struct {
	ResultsDir          string
	ExperimentPathDepth int
	MaxParallelReads    int
	ShowProgress        bool
}

// LoadFiles reads and decodes the provided log files. Files are
// read in parallel but merged in their original order so the resulting
// corpus does not depend on scheduling.
func LoadFiles(ctx context.Context, files []LogFile, maxParallel int, showProgress bool) (*Corpus, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}
	parts := make([]*corpusPart, len(files))
	var cerr ConcurrentErr
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxParallel)
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.Default(int64(len(files)), "reading log files")
	}
	for i, file := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, file LogFile) {
			defer func() {
				<-sem
				wg.Done()
			}()
			part := &corpusPart{category: file.Category}
			st, err := ReadLogFile(ctx, file, part)
			if err != nil {
				cerr.Add(fmt.Errorf("failed to load %s: %w", file.Path, err))
				return
			}
			part.stats = st
			parts[i] = part
			if bar != nil {
				bar.Add(1)
			}
		}(i, file)
	}
	wg.Wait()
	if err := cerr.Err(); err != nil {
		return nil, err
	}
	ans := &Corpus{}
	seen := make(map[targetKey]bool)
	for _, part := range parts {
		ans.add(part, seen)
	}
	if ans.Stats.NumDuplicateTargets > 0 {
		log.Warn().
			Int("numDuplicates", ans.Stats.NumDuplicateTargets).
			Msg("found duplicate ground truth records, only the first ones kept")
	}
	return ans, nil
}

// LoadCorpus discovers all capture logs in the results directory
// and decodes them.
func LoadCorpus(ctx context.Context, opts LoadOptions) (*Corpus, error) {
	if opts.ExperimentPathDepth == 0 {
		opts.ExperimentPathDepth = DefaultExperimentPathDepth
	}
	files, err := DiscoverLogFiles(opts.ResultsDir, opts.ExperimentPathDepth)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no capture logs found in %s", opts.ResultsDir)
	}
	log.Info().
		Str("resultsDir", opts.ResultsDir).
		Int("numFiles", len(files)).
		Msg("loading capture logs")
	ans, err := LoadFiles(ctx, files, opts.MaxParallelReads, opts.ShowProgress)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("messages", len(ans.Messages)).
		Int("targets", len(ans.Targets)).
		Int("nodes", len(ans.Nodes)).
		Int("metrics", len(ans.Metrics)).
		Int("failedLines", ans.Stats.NumFailed).
		Msg("corpus loaded")
	return ans, nil
}
