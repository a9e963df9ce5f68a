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

package main

import (
	"context"
	"fmt"

	"github.com/czcorpus/cnc-gokit/fs"
	"github.com/ebma/tricklestat/cnf"
	"github.com/ebma/tricklestat/dataimport"
	"github.com/rs/zerolog/log"
)

// loadCorpus reads a snapshot if one is available (an explicit path
// has priority over the configured one). Otherwise all capture logs
// found in conf.ResultsDir are decoded.
func loadCorpus(ctx context.Context, conf *cnf.Conf, snapshotPath string, showProgress bool) (*dataimport.Corpus, error) {
	if snapshotPath != "" {
		return dataimport.LoadSnapshot(snapshotPath)
	}
	if conf.SnapshotPath != "" {
		isFile, err := fs.IsFile(conf.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load corpus: %w", err)
		}
		if isFile {
			log.Info().Str("file", conf.SnapshotPath).Msg("loading corpus snapshot")
			return dataimport.LoadSnapshot(conf.SnapshotPath)
		}
		if conf.ResultsDir == "" {
			return nil, fmt.Errorf("failed to load corpus: snapshot %s not found and no resultsDir set", conf.SnapshotPath)
		}
		log.Warn().Str("file", conf.SnapshotPath).Msg("snapshot not found, decoding capture logs")
	}
	corpus, err := dataimport.LoadCorpus(ctx, conf.LoadOptions(showProgress))
	if err != nil {
		return nil, err
	}
	logImportStats(corpus)
	return corpus, nil
}

func logImportStats(corpus *dataimport.Corpus) {
	log.Info().
		Int("files", corpus.Stats.NumFiles).
		Int("processedLines", corpus.Stats.NumProcessed).
		Int("failedLines", corpus.Stats.NumFailed).
		Int("ignoredLines", corpus.Stats.NumIgnored).
		Int("duplicateTargets", corpus.Stats.NumDuplicateTargets).
		Int("messages", len(corpus.Messages)).
		Int("targets", len(corpus.Targets)).
		Int("nodes", len(corpus.Nodes)).
		Int("metrics", len(corpus.Metrics)).
		Msg("capture logs decoded")
}
