package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ebma/tricklestat/cnf"
	"github.com/ebma/tricklestat/dataimport"
	"github.com/ebma/tricklestat/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMessages = `{"meta": "latencyMS:100/run:1/permutationIndex:0/nodeType:Eavesdropper", "receiver": "E1", "ts": "100", "sender": "Seed", "message": {"wants": ["cidA"]}}
{"meta": "latencyMS:100/run:2/permutationIndex:0/nodeType:Eavesdropper", "receiver": "E1", "ts": "120", "sender": "Other", "message": {"wants": ["cidB"]}}
`
	testInfo = `{"meta": "latencyMS:100/run:1/permutationIndex:0", "type": "LeechInfo", "peer": "Seed", "lookingFor": "cidA"}
{"meta": "latencyMS:100/run:2/permutationIndex:0", "type": "LeechInfo", "peer": "Seed", "lookingFor": "cidA"}
`
	testResults = `{"name": "latencyMS:100/run:1/nodeType:Leech/meta:time_to_fetch", "measures": {"value": 1200}}
{"name": "latencyMS:100/run:2/nodeType:Leech/meta:time_to_fetch", "measures": {"value": 800}}
`
)

func testConf(t *testing.T) *cnf.Conf {
	root := t.TempDir()
	base := filepath.Join(root, "exp1", "outputs", "single")
	require.NoError(t, os.MkdirAll(base, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, dataimport.MessageHistoryFile), []byte(testMessages), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, dataimport.GlobalInfoFile), []byte(testInfo), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, dataimport.ResultsFile), []byte(testResults), 0644))

	conf := &cnf.Conf{
		ResultsDir: root,
		Dimensions: []string{"latencyMS"},
		OutputDir:  filepath.Join(t.TempDir(), "reports"),
	}
	require.NoError(t, cnf.ValidateAndDefaults(conf))
	return conf
}

func TestParseDims(t *testing.T) {
	assert.Nil(t, parseDims(""))
	assert.Equal(t, []string{"latencyMS", "run"}, parseDims("latencyMS, run"))
}

func TestCleanVersionInfo(t *testing.T) {
	assert.Equal(t, "1.2.0", cleanVersionInfo("'v1.2.0'"))
}

func TestDecodeAndEvaluate(t *testing.T) {
	conf := testConf(t)
	conf.SnapshotPath = filepath.Join(t.TempDir(), "corpus.msgpack")
	ctx := context.Background()

	decoded, err := decodeToSnapshot(ctx, conf, "", false)
	require.NoError(t, err)
	assert.Len(t, decoded.Targets, 2)
	assert.FileExists(t, conf.SnapshotPath)

	// the snapshot is preferred over raw logs now
	require.NoError(t, os.RemoveAll(conf.ResultsDir))
	corpus, err := loadCorpus(ctx, conf, "", false)
	require.NoError(t, err)
	require.Len(t, corpus.Messages, 2)

	res, err := evaluateCorpus(ctx, conf, corpus, nil, false)
	require.NoError(t, err)
	require.Len(t, res.Partitions, 1)
	assert.Equal(t, 0.5, res.Overall.Rate)
	assert.Equal(t, 1, res.Overall.NumNoPrediction)

	var buf bytes.Buffer
	printRates(&buf, res)
	assert.Contains(t, buf.String(), "latencyMS:100")
	assert.Contains(t, buf.String(), "0.5000")

	require.NoError(t, writeReports(conf, corpus, res))
	assert.FileExists(t, filepath.Join(conf.OutputDir, "rates.csv"))
	assert.FileExists(t, filepath.Join(conf.OutputDir, "rates.json"))
	assert.FileExists(t, filepath.Join(conf.OutputDir, "mispredicted.tsv"))
}

func TestLoadCorpusWithoutSnapshot(t *testing.T) {
	conf := testConf(t)
	conf.SnapshotPath = filepath.Join(t.TempDir(), "missing.msgpack")
	corpus, err := loadCorpus(context.Background(), conf, "", false)
	require.NoError(t, err)
	assert.Len(t, corpus.Metrics, 2)
	assert.NoFileExists(t, conf.SnapshotPath)

	_, err = loadCorpus(context.Background(), conf, conf.SnapshotPath, false)
	assert.Error(t, err)
}

func TestEvaluateUnknownDimension(t *testing.T) {
	conf := testConf(t)
	corpus, err := loadCorpus(context.Background(), conf, "", false)
	require.NoError(t, err)
	_, err = evaluateCorpus(context.Background(), conf, corpus, []string{"topology"}, false)
	assert.Error(t, err)
}

func TestPrintSummaries(t *testing.T) {
	conf := testConf(t)
	corpus, err := loadCorpus(context.Background(), conf, "", false)
	require.NoError(t, err)
	summaries, err := stats.Summarize(
		corpus.Metrics, stats.MetricFilter{Name: stats.MetricTimeToFetch, NodeType: "Leech"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1000.0, summaries[0].Mean)

	var buf bytes.Buffer
	printSummaries(&buf, stats.MetricTimeToFetch, summaries)
	assert.Contains(t, buf.String(), "*")
	assert.Contains(t, buf.String(), "mean=1000.00")
}

func TestLoadCorpusSnapshotPathIsDirectory(t *testing.T) {
	conf := testConf(t)
	conf.SnapshotPath = t.TempDir()
	corpus, err := loadCorpus(context.Background(), conf, "", false)
	require.NoError(t, err)
	assert.Len(t, corpus.Targets, 2)

	conf.ResultsDir = ""
	_, err = loadCorpus(context.Background(), conf, "", false)
	assert.Error(t, err)
}
