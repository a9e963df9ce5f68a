package eval

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/ebma/tricklestat/index"
	"github.com/ebma/tricklestat/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() Result {
	return Result{
		Dimensions: []string{"latencyMS"},
		Estimator:  "first-timestamp",
		Partitions: []PartitionResult{
			{
				Key:   index.GroupKey{{Name: "latencyMS", Value: "5"}},
				Score: Score{NumTargets: 4, NumCorrect: 1, NumNoPrediction: 2, Rate: 0.25},
			},
			{
				Key:     index.GroupKey{{Name: "latencyMS", Value: "100"}},
				Skipped: true,
				Error:   "record lacks grouping attribute",
			},
		},
		Overall: PartitionResult{Score: Score{NumTargets: 4, NumCorrect: 1, Rate: 0.25}},
	}
}

func TestPartitionCSV(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(PartitionCSV(sampleResult())), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "latencyMS;targets;correct;noPrediction;rate;status", lines[0])
	assert.Equal(t, "5;4;1;2;0.2500;ok", lines[1])
	assert.Equal(t, "100;0;0;0;0.0000;skipped", lines[2])
}

func TestPartitionCSVQuotesValues(t *testing.T) {
	res := Result{
		Dimensions: []string{"topology"},
		Partitions: []PartitionResult{
			{
				Key:   index.GroupKey{{Name: "topology", Value: "a;b\nc"}},
				Score: Score{NumTargets: 1, NumCorrect: 1, Rate: 1},
			},
		},
	}
	rd := csv.NewReader(strings.NewReader(PartitionCSV(res)))
	rd.Comma = ';'
	rows, err := rd.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a;b\nc", "1", "1", "0", "1.0000", "ok"}, rows[1])
}

func TestReporterFiles(t *testing.T) {
	reporter := &Reporter{OutputDir: t.TempDir()}
	path, err := reporter.SaveCSV(sampleResult())
	require.NoError(t, err)
	assert.FileExists(t, path)

	path, err = reporter.SaveJSON(sampleResult())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0.25, decoded.Partitions[0].Rate)
	assert.True(t, decoded.Partitions[1].Skipped)
}

func TestReporterNoOutputDir(t *testing.T) {
	reporter := &Reporter{}
	_, err := reporter.SaveCSV(sampleResult())
	assert.Error(t, err)
}

func TestSaveMispredicted(t *testing.T) {
	ok := target("1", "cidA", "A")
	ok.Annotate("A", true)
	wrong := target("2", "cidB", "A")
	wrong.Annotate("B", true)
	none := target("1", "cidC", "A")
	none.Annotate("", false)
	notEvaluated := target("3", "cidD", "A")

	targets := []*record.GroundTruthRecord{wrong, ok, none, notEvaluated}
	assert.Equal(t, []*record.GroundTruthRecord{none, wrong}, MispredictedTargets(targets))

	reporter := &Reporter{OutputDir: t.TempDir()}
	path, err := reporter.SaveMispredicted(targets)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "exp1\t1\t0\tcidC\tA\t-", lines[1])
	assert.Equal(t, "exp1\t2\t0\tcidB\tA\tB", lines[2])
}
