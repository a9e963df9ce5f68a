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

package cnf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/ebma/tricklestat/dataimport"
	"github.com/ebma/tricklestat/eval"
	"github.com/ebma/tricklestat/eval/predict"
	"github.com/ebma/tricklestat/record"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	dfltServerReadTimeoutSecs  = 10
	dfltServerWriteTimeoutSecs = 30
	dfltListenAddress          = "127.0.0.1"
	dfltListenPort             = 8090
	dfltEstimator              = predict.EstimatorFirstTimestamp
	dfltEavesdropperFilter     = eval.FilterNodeType
)

// DefaultDimensions nest partitions as
// (latency -> experiment -> trickling delay)
var DefaultDimensions = []string{record.AttrLatencyMS, record.AttrExperiment, record.AttrTricklingDelay}

type Conf struct {
	srcPath string
	Logging logging.LoggingConf `json:"logging" yaml:"logging"`

	// ResultsDir is the root directory of captured experiment logs
	ResultsDir string `json:"resultsDir" yaml:"resultsDir"`

	// SnapshotPath is an optional msgpack file with an already decoded corpus.
	// If set and the file exists, it is preferred over ResultsDir.
	SnapshotPath string `json:"snapshotPath" yaml:"snapshotPath"`

	// ExperimentPathDepth specifies which path segment (counted from
	// the end, file name = 1) holds the experiment id
	ExperimentPathDepth int `json:"experimentPathDepth" yaml:"experimentPathDepth"`

	MaxParallelReads   int      `json:"maxParallelReads" yaml:"maxParallelReads"`
	Dimensions         []string `json:"dimensions" yaml:"dimensions"`
	Estimator          string   `json:"estimator" yaml:"estimator"`
	EavesdropperFilter string   `json:"eavesdropperFilter" yaml:"eavesdropperFilter"`
	OutputDir          string   `json:"outputDir" yaml:"outputDir"`

	ListenAddress          string   `json:"listenAddress" yaml:"listenAddress"`
	ListenPort             int      `json:"listenPort" yaml:"listenPort"`
	ServerReadTimeoutSecs  int      `json:"serverReadTimeoutSecs" yaml:"serverReadTimeoutSecs"`
	ServerWriteTimeoutSecs int      `json:"serverWriteTimeoutSecs" yaml:"serverWriteTimeoutSecs"`
	CorsAllowedOrigins     []string `json:"corsAllowedOrigins" yaml:"corsAllowedOrigins"`
}

// SrcPath returns the path the configuration was loaded from
func (conf *Conf) SrcPath() string {
	return conf.srcPath
}

// LoadOptions converts the configuration to corpus loading options
func (conf *Conf) LoadOptions(showProgress bool) dataimport.LoadOptions {
	return dataimport.LoadOptions{
		ResultsDir:          conf.ResultsDir,
		ExperimentPathDepth: conf.ExperimentPathDepth,
		MaxParallelReads:    conf.MaxParallelReads,
		ShowProgress:        showProgress,
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func loadConfig(path string) (*Conf, error) {
	if path == "" {
		return nil, fmt.Errorf("path not specified")
	}
	rawData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Conf
	conf.srcPath = path
	if isYAML(path) {
		err = yaml.Unmarshal(rawData, &conf)

	} else {
		err = json.Unmarshal(rawData, &conf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &conf, nil
}

// LoadConfig loads a JSON or YAML (by file extension) configuration.
// Any failure is fatal.
func LoadConfig(path string) *Conf {
	conf, err := loadConfig(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	return conf
}

// ValidateAndDefaults fills in missing values (with a warning)
// and returns an error for values which cannot be used.
func ValidateAndDefaults(conf *Conf) error {
	if conf.ResultsDir == "" && conf.SnapshotPath == "" {
		return fmt.Errorf("neither resultsDir nor snapshotPath specified")
	}
	if conf.ExperimentPathDepth == 0 {
		conf.ExperimentPathDepth = dataimport.DefaultExperimentPathDepth
		log.Warn().Msgf(
			"experimentPathDepth not specified, using default: %d",
			dataimport.DefaultExperimentPathDepth,
		)

	} else if conf.ExperimentPathDepth < 1 {
		return fmt.Errorf("invalid experimentPathDepth %d", conf.ExperimentPathDepth)
	}
	if conf.MaxParallelReads <= 0 {
		conf.MaxParallelReads = dataimport.DefaultMaxParallelReads
		log.Warn().Msgf(
			"maxParallelReads not specified, using default: %d",
			dataimport.DefaultMaxParallelReads,
		)
	}
	if len(conf.Dimensions) == 0 {
		conf.Dimensions = slices.Clone(DefaultDimensions)
		log.Warn().Strs("dimensions", conf.Dimensions).Msg("dimensions not specified, using default")
	}
	if conf.Estimator == "" {
		conf.Estimator = dfltEstimator
		log.Warn().Str("estimator", dfltEstimator).Msg("estimator not specified, using default")
	}
	if _, err := predict.GetEstimator(conf.Estimator); err != nil {
		return fmt.Errorf("invalid estimator %s: %w", conf.Estimator, err)
	}
	if conf.EavesdropperFilter == "" {
		conf.EavesdropperFilter = dfltEavesdropperFilter
		log.Warn().
			Str("eavesdropperFilter", dfltEavesdropperFilter).
			Msg("eavesdropperFilter not specified, using default")
	}
	if _, err := eval.GetEavesdropperFilter(conf.EavesdropperFilter, nil); err != nil {
		return fmt.Errorf("invalid eavesdropperFilter %s: %w", conf.EavesdropperFilter, err)
	}
	if conf.OutputDir == "" {
		conf.OutputDir = conf.ResultsDir
		if conf.OutputDir == "" {
			conf.OutputDir = filepath.Dir(conf.SnapshotPath)
		}
		log.Warn().Str("outputDir", conf.OutputDir).Msg("outputDir not specified, using data directory")
	}
	if conf.ListenAddress == "" {
		conf.ListenAddress = dfltListenAddress
		log.Warn().Str("address", dfltListenAddress).Msg("listenAddress not set, using default")
	}
	if conf.ListenPort == 0 {
		conf.ListenPort = dfltListenPort
		log.Warn().Msgf("listenPort not specified, using default: %d", dfltListenPort)
	}
	if conf.ServerReadTimeoutSecs == 0 {
		conf.ServerReadTimeoutSecs = dfltServerReadTimeoutSecs
		log.Warn().Msgf(
			"serverReadTimeoutSecs not specified, using default: %d",
			dfltServerReadTimeoutSecs,
		)
	}
	if conf.ServerWriteTimeoutSecs == 0 {
		conf.ServerWriteTimeoutSecs = dfltServerWriteTimeoutSecs
		log.Warn().Msgf(
			"serverWriteTimeoutSecs not specified, using default: %d",
			dfltServerWriteTimeoutSecs,
		)
	}
	return nil
}

// ------------------------------------

// VersionInfo provides a detailed information about the actual build
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}
