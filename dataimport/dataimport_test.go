package dataimport

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ebma/tricklestat/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMessages = `{"meta": "latencyMS:100/run:1/permutationIndex:0/nodeType:Eavesdropper", "receiver": "E1", "ts": "100", "sender": "Seed", "message": {"wants": ["cidA"]}}
this line is broken

{"meta": "latencyMS:100/run:2/permutationIndex:0/nodeType:Eavesdropper", "receiver": "E1", "ts": "120", "sender": "Other", "message": {"wants": ["cidB"]}}
`
	testInfo = `{"meta": "latencyMS:100/run:1/permutationIndex:0", "type": "LeechInfo", "peer": "Seed", "lookingFor": "cidA"}
{"meta": "latencyMS:100/run:1/permutationIndex:0", "type": "LeechInfo", "peer": "Seed", "lookingFor": "cidA"}
{"meta": "latencyMS:100/run:2/permutationIndex:0", "type": "LeechInfo", "peer": "Seed", "lookingFor": "cidA"}
{"timestamp": "1", "type": "NodeInfo", "topology": "(0-1-1-1)", "nodeId": "E1", "nodeType": "Eavesdropper"}
{"timestamp": "1", "type": "PeerInfo", "nodeId": "X"}
`
	testResults = `{"name": "latencyMS:100/run:1/nodeType:Leech/meta:time_to_fetch", "measures": {"value": 1200}}
{"name": "latencyMS:100/run:1/nodeType:Leech/meta:blks_sent", "measures": {"value": 4}}
`
)

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func buildResultsTree(t *testing.T) string {
	root := t.TempDir()
	base := filepath.Join(root, "exp1", "outputs", "single")
	writeFile(t, filepath.Join(base, MessageHistoryFile), testMessages)
	writeFile(t, filepath.Join(base, GlobalInfoFile), testInfo)
	writeFile(t, filepath.Join(base, ResultsFile), testResults)
	writeFile(t, filepath.Join(base, "README.md"), "ignored")
	return root
}

func TestExperimentIDFromPath(t *testing.T) {
	id, err := ExperimentIDFromPath("/data/results/exp42/outputs/x/messageHistory.out", 4)
	require.NoError(t, err)
	assert.Equal(t, "exp42", id)

	id, err = ExperimentIDFromPath("exp42/messageHistory.out", 2)
	require.NoError(t, err)
	assert.Equal(t, "exp42", id)

	_, err = ExperimentIDFromPath("messageHistory.out", 4)
	assert.Error(t, err)
	_, err = ExperimentIDFromPath("a/b", 0)
	assert.Error(t, err)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryMessages, CategoryOf("/x/messageHistory.out"))
	assert.Equal(t, CategoryInfo, CategoryOf("globalInfo.out"))
	assert.Equal(t, CategoryMetrics, CategoryOf("a/results.out"))
	assert.Equal(t, CategoryUnknown, CategoryOf("a/results.txt"))
	assert.Equal(t, "metrics", CategoryMetrics.String())
}

func TestDiscoverLogFiles(t *testing.T) {
	root := buildResultsTree(t)
	files, err := DiscoverLogFiles(root, DefaultExperimentPathDepth)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		assert.Equal(t, "exp1", f.ExperimentID)
		assert.NotEqual(t, CategoryUnknown, f.Category)
	}
	assert.True(t, strings.HasSuffix(files[0].Path, GlobalInfoFile))
}

type countingProcessor struct {
	lines []string
}

func (cp *countingProcessor) ProcessLine(line []byte, experimentID string) error {
	if strings.HasPrefix(string(line), "skip") {
		return ErrIgnoredLine
	}
	if !strings.HasPrefix(string(line), "{") {
		return assert.AnError
	}
	cp.lines = append(cp.lines, experimentID+":"+string(line))
	return nil
}

func TestReadLogFileSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), MessageHistoryFile)
	writeFile(t, path, "{}\nbroken\n\nskip me\n{\"a\": 1}\n")
	proc := &countingProcessor{}
	st, err := ReadLogFile(
		context.Background(), LogFile{Path: path, ExperimentID: "e", Category: CategoryMessages}, proc)
	require.NoError(t, err)
	assert.Equal(t, FileStats{NumProcessed: 2, NumFailed: 1, NumIgnored: 1}, st)
	assert.Equal(t, []string{"e:{}", "e:{\"a\": 1}"}, proc.lines)
}

func TestReadLogFileMissing(t *testing.T) {
	_, err := ReadLogFile(
		context.Background(), LogFile{Path: filepath.Join(t.TempDir(), "none")}, &countingProcessor{})
	assert.Error(t, err)
}

func TestLoadCorpus(t *testing.T) {
	root := buildResultsTree(t)
	corpus, err := LoadCorpus(context.Background(), LoadOptions{ResultsDir: root, MaxParallelReads: 2})
	require.NoError(t, err)

	require.Len(t, corpus.Messages, 2)
	assert.Equal(t, "Seed", corpus.Messages[0].Sender)
	assert.Equal(t, "exp1", corpus.Messages[0].Attributes[record.AttrExperiment])

	require.Len(t, corpus.Targets, 2)
	assert.Equal(t, "1", corpus.Targets[0].Attributes[record.AttrRun])
	assert.Equal(t, "2", corpus.Targets[1].Attributes[record.AttrRun])
	assert.Equal(t, 1, corpus.Stats.NumDuplicateTargets)

	require.Len(t, corpus.Nodes, 1)
	assert.Equal(t, "E1", corpus.Nodes[0].NodeID)

	require.Len(t, corpus.Metrics, 2)
	assert.Equal(t, "time_to_fetch", corpus.Metrics[0].Name)

	assert.Equal(t, 3, corpus.Stats.NumFiles)
	assert.Equal(t, 1, corpus.Stats.NumFailed)
	assert.Equal(t, 1, corpus.Stats.NumIgnored)
}

func TestReadLine(t *testing.T) {
	rd := bufio.NewReaderSize(strings.NewReader("abc\r\n0123456789\nde\n0123456789"), 16)
	line, err := readLine(rd, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(line))

	_, err = readLine(rd, nil, 5)
	assert.ErrorIs(t, err, ErrLineTooLong)

	line, err = readLine(rd, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, "de", string(line))

	_, err = readLine(rd, nil, 5)
	assert.ErrorIs(t, err, ErrLineTooLong)

	line, err = readLine(rd, nil, 5)
	assert.Equal(t, io.EOF, err)
	assert.Empty(t, line)
}

func TestLoadCorpusSkipsOversizedLine(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "exp1", "outputs", "single", MessageHistoryFile)
	lines := strings.Split(strings.TrimSpace(testMessages), "\n")
	huge := `{"meta": "run:1", "pad": "` + strings.Repeat("x", MaxLineLength+1024*1024) + `"}`
	writeFile(t, path, lines[0]+"\n"+huge+"\n"+lines[3]+"\n")

	corpus, err := LoadCorpus(context.Background(), LoadOptions{ResultsDir: root})
	require.NoError(t, err)
	require.Len(t, corpus.Messages, 2)
	assert.Equal(t, "Seed", corpus.Messages[0].Sender)
	assert.Equal(t, "Other", corpus.Messages[1].Sender)
	assert.Equal(t, 1, corpus.Stats.NumFailed)
	assert.Equal(t, 2, corpus.Stats.NumProcessed)
}

func TestLoadCorpusIsDeterministic(t *testing.T) {
	root := buildResultsTree(t)
	c1, err := LoadCorpus(context.Background(), LoadOptions{ResultsDir: root, MaxParallelReads: 3})
	require.NoError(t, err)
	c2, err := LoadCorpus(context.Background(), LoadOptions{ResultsDir: root, MaxParallelReads: 1})
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestLoadCorpusEmptyDir(t *testing.T) {
	_, err := LoadCorpus(context.Background(), LoadOptions{ResultsDir: t.TempDir()})
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	root := buildResultsTree(t)
	corpus, err := LoadCorpus(context.Background(), LoadOptions{ResultsDir: root})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "corpus.msgpack")
	require.NoError(t, SaveSnapshot(path, corpus))
	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, corpus.Messages, loaded.Messages)
	assert.Equal(t, corpus.Targets, loaded.Targets)
	assert.Equal(t, corpus.Stats, loaded.Stats)
}
