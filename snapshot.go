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
	"os/signal"
	"syscall"

	"github.com/ebma/tricklestat/cnf"
	"github.com/ebma/tricklestat/dataimport"
	"github.com/rs/zerolog/log"
)

func decodeToSnapshot(ctx context.Context, conf *cnf.Conf, dstPath string, showProgress bool) (*dataimport.Corpus, error) {
	if dstPath == "" {
		dstPath = conf.SnapshotPath
	}
	if dstPath == "" {
		return nil, fmt.Errorf("no snapshot path specified")
	}
	if conf.ResultsDir == "" {
		return nil, fmt.Errorf("no resultsDir to decode capture logs from")
	}
	corpus, err := dataimport.LoadCorpus(ctx, conf.LoadOptions(showProgress))
	if err != nil {
		return nil, err
	}
	logImportStats(corpus)
	if err := dataimport.SaveSnapshot(dstPath, corpus); err != nil {
		return nil, err
	}
	log.Info().Str("file", dstPath).Msg("corpus snapshot saved")
	return corpus, nil
}

func runActionDecode(conf *cnf.Conf, dstPath string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corpus, err := decodeToSnapshot(ctx, conf, dstPath, true)
	if err != nil {
		exitWithErr(err, exitErrorLoadFailed)
	}
	fmt.Printf(
		"decoded %d files: %d messages, %d targets, %d nodes, %d metrics\n",
		corpus.Stats.NumFiles, len(corpus.Messages), len(corpus.Targets), len(corpus.Nodes), len(corpus.Metrics))
}
