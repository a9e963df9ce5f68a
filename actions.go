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
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ebma/tricklestat/apiserver"
	"github.com/ebma/tricklestat/cnf"
	"github.com/ebma/tricklestat/dataimport"
	"github.com/ebma/tricklestat/eval"
	"github.com/ebma/tricklestat/eval/predict"
	"github.com/ebma/tricklestat/stats"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

const (
	errColor  = color.FgHiRed
	okColor   = color.FgHiGreen
	skipColor = color.FgYellow
)

func runActionVersion(ver cnf.VersionInfo) {
	fmt.Printf("tricklestat %s\nbuild date: %s\nlast commit: %s\n", ver.Version, ver.BuildDate, ver.GitCommit)
}

// ------

func evaluateCorpus(
	ctx context.Context,
	conf *cnf.Conf,
	corpus *dataimport.Corpus,
	dims []string,
	showProgress bool,
) (eval.Result, error) {
	est, err := predict.GetEstimator(conf.Estimator)
	if err != nil {
		return eval.Result{}, err
	}
	filter, err := eval.GetEavesdropperFilter(conf.EavesdropperFilter, corpus.Nodes)
	if err != nil {
		return eval.Result{}, err
	}
	if nf, ok := filter.(*eval.NodeInfoFilter); ok {
		log.Info().Int("eavesdroppers", nf.NumEavesdroppers()).Msg("using node info to identify eavesdroppers")
	}
	messages := eval.EavesdropperMessages(corpus.Messages, filter)
	log.Info().
		Int("messages", len(messages)).
		Int("allMessages", len(corpus.Messages)).
		Msg("selected eavesdropper messages")
	if len(dims) == 0 {
		dims = conf.Dimensions
	}
	ev := &eval.Evaluator{
		Estimator:    est,
		Dimensions:   dims,
		ShowProgress: showProgress,
	}
	return ev.Run(ctx, messages, corpus.Targets)
}

func printRates(w io.Writer, res eval.Result) {
	fmt.Fprintf(w, "\nestimator: %s\n", res.Estimator)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 60))
	for _, pr := range res.Partitions {
		key := pr.Key.String()
		if key == "" {
			key = "*"
		}
		if pr.Skipped {
			color.New(skipColor).Fprintf(w, "%-40s skipped (%s)\n", key, pr.Error)
			continue
		}
		fmt.Fprintf(w, "%-40s %4d/%-4d ", key, pr.NumCorrect, pr.NumTargets)
		color.New(okColor).Fprintf(w, "%.4f\n", pr.Rate)
	}
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 60))
	if res.Overall.Skipped {
		color.New(skipColor).Fprintf(w, "overall: no targets evaluated\n")
		return
	}
	fmt.Fprintf(
		w, "overall: %d/%d correct, %d without prediction, rate ",
		res.Overall.NumCorrect, res.Overall.NumTargets, res.Overall.NumNoPrediction)
	color.New(okColor).Fprintf(w, "%.4f\n", res.Overall.Rate)
}

func writeReports(conf *cnf.Conf, corpus *dataimport.Corpus, res eval.Result) error {
	reporter := &eval.Reporter{OutputDir: conf.OutputDir}
	csvPath, err := reporter.SaveCSV(res)
	if err != nil {
		return err
	}
	jsonPath, err := reporter.SaveJSON(res)
	if err != nil {
		return err
	}
	tsvPath, err := reporter.SaveMispredicted(corpus.Targets)
	if err != nil {
		return err
	}
	log.Info().
		Str("csv", csvPath).
		Str("json", jsonPath).
		Str("mispredicted", tsvPath).
		Msg("reports saved")
	return nil
}

func runActionEvaluate(conf *cnf.Conf, dims []string, snapshotPath string, saveReports bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corpus, err := loadCorpus(ctx, conf, snapshotPath, true)
	if err != nil {
		exitWithErr(err, exitErrorLoadFailed)
	}
	res, err := evaluateCorpus(ctx, conf, corpus, dims, true)
	if err != nil {
		exitWithErr(err, exitErrorEvaluationFailed)
	}
	printRates(os.Stdout, res)
	if saveReports {
		if err := writeReports(conf, corpus, res); err != nil {
			exitWithErr(err, exitErrorReportFailed)
		}
	}
}

// ------

func printSummaries(w io.Writer, metric string, summaries []stats.Summary) {
	fmt.Fprintf(w, "\nmetric: %s\n", metric)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 60))
	for _, s := range summaries {
		key := s.Key.String()
		if key == "" {
			key = "*"
		}
		fmt.Fprintf(
			w, "%-40s n=%d mean=%.2f median=%.2f sd=%.2f min=%.2f max=%.2f",
			key, s.Count, s.Mean, s.Median, s.StdDev, s.Min, s.Max)
		if s.NumOutliers > 0 {
			color.New(skipColor).Fprintf(w, " (%d outliers replaced)", s.NumOutliers)
		}
		fmt.Fprintln(w)
	}
}

func runActionMetrics(
	conf *cnf.Conf,
	metric string,
	dims []string,
	snapshotPath, nodeType string,
	replaceOutliers bool,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corpus, err := loadCorpus(ctx, conf, snapshotPath, true)
	if err != nil {
		exitWithErr(err, exitErrorLoadFailed)
	}
	if len(dims) == 0 {
		dims = conf.Dimensions
	}
	filter := stats.MetricFilter{
		Name:            metric,
		NodeType:        nodeType,
		ReplaceOutliers: replaceOutliers,
	}
	summaries, err := stats.Summarize(corpus.Metrics, filter, dims...)
	if err != nil {
		exitWithErr(err, exitErrorEvaluationFailed)
	}
	if len(summaries) == 0 {
		exitWithErr(fmt.Errorf("no values found for metric %s", metric), exitErrorEvaluationFailed)
	}
	printSummaries(os.Stdout, metric, summaries)
}

// ------

func runActionOverview(conf *cnf.Conf, snapshotPath string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corpus, err := loadCorpus(ctx, conf, snapshotPath, true)
	if err != nil {
		exitWithErr(err, exitErrorLoadFailed)
	}
	fmt.Printf("\n%d targets, %d messages, %d nodes\n", len(corpus.Targets), len(corpus.Messages), len(corpus.Nodes))
	fmt.Printf("%s\n", strings.Repeat("-", 40))
	for _, entry := range stats.Overview(corpus.Targets) {
		fmt.Printf("%-30s %d\n", entry.Key, entry.NumExperiments)
	}
}

// ------

func runActionServer(conf *cnf.Conf, snapshotPath string, version cnf.VersionInfo) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corpus, err := loadCorpus(ctx, conf, snapshotPath, false)
	if err != nil {
		exitWithErr(err, exitErrorLoadFailed)
	}
	if err := apiserver.Run(ctx, conf, corpus, version); err != nil {
		exitWithErr(err, exitErrorServerFailed)
	}
}
