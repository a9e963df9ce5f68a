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

package eval

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ebma/tricklestat/record"
)

const (
	ratesCSVFile        = "rates.csv"
	ratesJSONFile       = "rates.json"
	mispredictedTSVFile = "mispredicted.tsv"
)

// PartitionCSV renders results as a semicolon separated table,
// one column per dimension followed by the score. Values containing
// separators, quotes or line breaks are quoted.
func PartitionCSV(res Result) string {
	var ans strings.Builder
	wr := csv.NewWriter(&ans)
	wr.Comma = ';'
	header := append(
		slices.Clone(res.Dimensions), "targets", "correct", "noPrediction", "rate", "status")
	wr.Write(header)
	for _, pr := range res.Partitions {
		row := make([]string, 0, len(header))
		for _, d := range res.Dimensions {
			v, _ := pr.Key.Value(d)
			row = append(row, v)
		}
		row = append(
			row,
			strconv.Itoa(pr.NumTargets),
			strconv.Itoa(pr.NumCorrect),
			strconv.Itoa(pr.NumNoPrediction),
			fmt.Sprintf("%.4f", pr.Rate),
			pr.Status(),
		)
		wr.Write(row)
	}
	wr.Flush()
	return ans.String()
}

// ------------------------

// Reporter writes evaluation results for external plotting tools
type Reporter struct {
	OutputDir string
}

func (reporter *Reporter) path(name string) string {
	return filepath.Join(reporter.OutputDir, name)
}

func (reporter *Reporter) writeFile(name string, fn func(w io.Writer) error) (string, error) {
	if reporter.OutputDir == "" {
		return "", fmt.Errorf("reporter output directory is not set")
	}
	if err := os.MkdirAll(reporter.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", reporter.OutputDir, err)
	}
	path := reporter.path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return "", fmt.Errorf("failed to write to file %s: %w", path, err)
	}
	return path, nil
}

func (reporter *Reporter) SaveCSV(res Result) (string, error) {
	return reporter.writeFile(ratesCSVFile, func(w io.Writer) error {
		_, err := io.WriteString(w, PartitionCSV(res))
		return err
	})
}

func (reporter *Reporter) SaveJSON(res Result) (string, error) {
	return reporter.writeFile(ratesJSONFile, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	})
}

// MispredictedTargets returns evaluated targets with a wrong (or missing)
// prediction ordered by experiment, permutation index and run.
func MispredictedTargets(targets []*record.GroundTruthRecord) []*record.GroundTruthRecord {
	ans := make([]*record.GroundTruthRecord, 0, len(targets))
	for _, t := range targets {
		if t.Evaluated && !t.PredictionCorrect {
			ans = append(ans, t)
		}
	}
	slices.SortStableFunc(ans, func(a, b *record.GroundTruthRecord) int {
		return strings.Compare(record.RunKeyOf(a).String(), record.RunKeyOf(b).String())
	})
	return ans
}

// SaveMispredicted writes mispredicted targets as TSV
func (reporter *Reporter) SaveMispredicted(targets []*record.GroundTruthRecord) (string, error) {
	return reporter.writeFile(mispredictedTSVFile, func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "experiment\trun\tpermutationIndex\tlookingFor\tpeer\tprediction"); err != nil {
			return err
		}
		for _, t := range MispredictedTargets(targets) {
			rk := record.RunKeyOf(t)
			prediction := t.Prediction
			if prediction == "" {
				prediction = "-"
			}
			_, err := fmt.Fprintf(
				w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rk.Experiment, rk.Run, rk.PermutationIndex, t.LookingFor, t.Peer, prediction)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
