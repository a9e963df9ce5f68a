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
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/ebma/tricklestat/cnf"
	"github.com/fatih/color"
)

const (
	actionDecode   = "decode"
	actionEvaluate = "evaluate"
	actionMetrics  = "metrics"
	actionOverview = "overview"
	actionServer   = "server"
	actionVersion  = "version"
	actionHelp     = "help"
)

const (
	exitErrorGeneralFailure = iota + 1
	exitErrorInvalidConfig
	exitErrorLoadFailed
	exitErrorEvaluationFailed
	exitErrorReportFailed
	exitErrorServerFailed
)

var (
	version   string
	buildDate string
	gitCommit string
)

func topLevelUsage() {
	fmt.Fprintf(os.Stderr, "TRICKLESTAT - eavesdropper source attribution analysis\n")
	fmt.Fprintf(os.Stderr, "-----------------------------\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tshow version info\n", actionVersion)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tdecode capture logs into a corpus snapshot\n", actionDecode)
	fmt.Fprintf(os.Stderr, "\t%s\t\tcompute prediction rates per partition\n", actionEvaluate)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tsummarize a measured metric per partition\n", actionMetrics)
	fmt.Fprintf(os.Stderr, "\t%s\t\tshow number of experiments per configuration\n", actionOverview)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\trun HTTP API over a loaded corpus\n", actionServer)
	fmt.Fprintf(os.Stderr, "\nUse `tricklestat help ACTION` for information about a specific action\n\n")
}

func exitWithErr(err error, code int) {
	color.New(errColor).Fprintln(os.Stderr, err)
	os.Exit(code)
}

func setup(confPath string) *cnf.Conf {
	conf := cnf.LoadConfig(confPath)
	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	logging.SetupLogging(conf.Logging)
	if err := cnf.ValidateAndDefaults(conf); err != nil {
		exitWithErr(fmt.Errorf("invalid configuration: %w", err), exitErrorInvalidConfig)
	}
	return conf
}

func cleanVersionInfo(v string) string {
	return strings.TrimLeft(strings.Trim(v, "'"), "v")
}

func parseDims(v string) []string {
	if v == "" {
		return nil
	}
	ans := strings.Split(v, ",")
	for i, d := range ans {
		ans[i] = strings.TrimSpace(d)
	}
	return ans
}

func main() {
	version := cnf.VersionInfo{
		Version:   cleanVersionInfo(version),
		BuildDate: cleanVersionInfo(buildDate),
		GitCommit: cleanVersionInfo(gitCommit),
	}

	cmdVersion := flag.NewFlagSet(actionVersion, flag.ExitOnError)
	cmdVersion.Usage = func() {
		cmdVersion.PrintDefaults()
	}

	cmdHelp := flag.NewFlagSet(actionHelp, flag.ExitOnError)
	cmdHelp.Usage = func() {
		cmdHelp.PrintDefaults()
	}

	cmdDecode := flag.NewFlagSet(actionDecode, flag.ExitOnError)
	cmdDecode.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json [snapshot.msgpack]\n\t",
			filepath.Base(os.Args[0]), actionDecode)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdDecode.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nDecode all capture logs in resultsDir and store them as a corpus snapshot.\n")
		fmt.Fprintf(os.Stderr, "If the snapshot path is omitted, snapshotPath from the config is used.\n")
	}

	cmdEvaluate := flag.NewFlagSet(actionEvaluate, flag.ExitOnError)
	evalDims := cmdEvaluate.String("dims", "", "comma separated partition dimensions (default: config dimensions)")
	evalSnapshot := cmdEvaluate.String("snapshot", "", "read corpus from a snapshot instead of the configured source")
	evalNoReports := cmdEvaluate.Bool("no-reports", false, "do not write report files to outputDir")
	cmdEvaluate.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n\t",
			filepath.Base(os.Args[0]), actionEvaluate)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdEvaluate.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nPredict sources of all fetched contents and report prediction rates per partition\n")
	}

	cmdMetrics := flag.NewFlagSet(actionMetrics, flag.ExitOnError)
	metricsDims := cmdMetrics.String("dims", "", "comma separated partition dimensions (default: config dimensions)")
	metricsSnapshot := cmdMetrics.String("snapshot", "", "read corpus from a snapshot instead of the configured source")
	metricsNodeType := cmdMetrics.String("node-type", "", "consider only values reported by nodes of the type (e.g. Leech)")
	metricsOutliers := cmdMetrics.Bool("filter-outliers", false, "replace values >= 2*mean with the mean")
	cmdMetrics.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json metric_name\n\t",
			filepath.Base(os.Args[0]), actionMetrics)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdMetrics.PrintDefaults()
	}

	cmdOverview := flag.NewFlagSet(actionOverview, flag.ExitOnError)
	overviewSnapshot := cmdOverview.String("snapshot", "", "read corpus from a snapshot instead of the configured source")
	cmdOverview.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n\t",
			filepath.Base(os.Args[0]), actionOverview)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdOverview.PrintDefaults()
	}

	cmdServer := flag.NewFlagSet(actionServer, flag.ExitOnError)
	serverSnapshot := cmdServer.String("snapshot", "", "read corpus from a snapshot instead of the configured source")
	cmdServer.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n\t",
			filepath.Base(os.Args[0]), actionServer)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdServer.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nServe prediction rates and metric summaries via HTTP API\n")
	}

	action := actionHelp
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	switch action {
	case actionHelp:
		var subj string
		if len(os.Args) > 2 {
			cmdHelp.Parse(os.Args[2:])
			subj = cmdHelp.Arg(0)
		}
		if subj == "" {
			topLevelUsage()
			return
		}
		switch subj {
		case actionDecode:
			cmdDecode.Usage()
		case actionEvaluate:
			cmdEvaluate.Usage()
		case actionMetrics:
			cmdMetrics.Usage()
		case actionOverview:
			cmdOverview.Usage()
		case actionServer:
			cmdServer.Usage()
		default:
			topLevelUsage()
		}
	case actionVersion:
		cmdVersion.Parse(os.Args[2:])
		runActionVersion(version)
	case actionDecode:
		cmdDecode.Parse(os.Args[2:])
		conf := setup(cmdDecode.Arg(0))
		runActionDecode(conf, cmdDecode.Arg(1))
	case actionEvaluate:
		cmdEvaluate.Parse(os.Args[2:])
		conf := setup(cmdEvaluate.Arg(0))
		runActionEvaluate(conf, parseDims(*evalDims), *evalSnapshot, !*evalNoReports)
	case actionMetrics:
		cmdMetrics.Parse(os.Args[2:])
		conf := setup(cmdMetrics.Arg(0))
		if cmdMetrics.Arg(1) == "" {
			cmdMetrics.Usage()
			os.Exit(exitErrorGeneralFailure)
		}
		runActionMetrics(
			conf,
			cmdMetrics.Arg(1),
			parseDims(*metricsDims),
			*metricsSnapshot,
			*metricsNodeType,
			*metricsOutliers,
		)
	case actionOverview:
		cmdOverview.Parse(os.Args[2:])
		conf := setup(cmdOverview.Arg(0))
		runActionOverview(conf, *overviewSnapshot)
	case actionServer:
		cmdServer.Parse(os.Args[2:])
		conf := setup(cmdServer.Arg(0))
		runActionServer(conf, *serverSnapshot, version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown action, please use 'help' to get more information\n")
		os.Exit(exitErrorGeneralFailure)
	}
}
