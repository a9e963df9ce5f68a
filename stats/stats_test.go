package stats

import (
	"testing"

	"github.com/ebma/tricklestat/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metric(name, latency, nodeType string, value float64) *record.MetricRecord {
	return &record.MetricRecord{
		Attributes: record.Attributes{
			record.AttrExperiment: "exp1",
			record.AttrLatencyMS:  latency,
			record.AttrNodeType:   nodeType,
		},
		Name:  name,
		Value: value,
	}
}

func TestSummarize(t *testing.T) {
	metrics := []*record.MetricRecord{
		metric(MetricTimeToFetch, "100", record.NodeTypeLeech, 10),
		metric(MetricTimeToFetch, "100", record.NodeTypeLeech, 20),
		metric(MetricTimeToFetch, "100", record.NodeTypeLeech, 30),
		metric(MetricTimeToFetch, "5", record.NodeTypeLeech, 4),
		metric(MetricTimeToFetch, "5", record.NodeTypeSeed, 1000),
		metric(MetricBlocksSent, "5", record.NodeTypeLeech, 7),
	}
	ans, err := Summarize(
		metrics, MetricFilter{Name: MetricTimeToFetch, NodeType: record.NodeTypeLeech}, record.AttrLatencyMS)
	require.NoError(t, err)
	require.Len(t, ans, 2)
	assert.Equal(t, "latencyMS:5", ans[0].Key.String())
	assert.Equal(t, 1, ans[0].Count)
	assert.Equal(t, 4.0, ans[0].Mean)

	assert.Equal(t, "latencyMS:100", ans[1].Key.String())
	assert.Equal(t, 3, ans[1].Count)
	assert.Equal(t, 20.0, ans[1].Mean)
	assert.Equal(t, 20.0, ans[1].Median)
	assert.Equal(t, 10.0, ans[1].Min)
	assert.Equal(t, 30.0, ans[1].Max)
	assert.InDelta(t, 8.165, ans[1].StdDev, 0.001)
}

func TestSummarizeAnyNodeType(t *testing.T) {
	metrics := []*record.MetricRecord{
		metric(MetricBlocksSent, "5", record.NodeTypeLeech, 1),
		metric(MetricBlocksSent, "5", record.NodeTypeSeed, 3),
	}
	ans, err := Summarize(metrics, MetricFilter{Name: MetricBlocksSent})
	require.NoError(t, err)
	require.Len(t, ans, 1)
	assert.Empty(t, ans[0].Key)
	assert.Equal(t, 2.0, ans[0].Mean)
}

func TestSummarizeNothingSelected(t *testing.T) {
	ans, err := Summarize(nil, MetricFilter{Name: MetricMsgsRcvd}, record.AttrLatencyMS)
	require.NoError(t, err)
	assert.Empty(t, ans)
}

func TestSummarizeMissingDimension(t *testing.T) {
	metrics := []*record.MetricRecord{metric(MetricBlocksSent, "5", record.NodeTypeLeech, 1)}
	_, err := Summarize(metrics, MetricFilter{Name: MetricBlocksSent}, record.AttrTopology)
	assert.Error(t, err)
}

func TestReplaceOutliers(t *testing.T) {
	values := []float64{1, 1, 1, 9}
	ans, n, err := ReplaceOutliers(values)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []float64{1, 1, 1, 3}, ans)
	assert.Equal(t, 9.0, values[3])

	_, _, err = ReplaceOutliers([]float64{})
	assert.Error(t, err)
}

func TestSummarizeWithOutliers(t *testing.T) {
	metrics := []*record.MetricRecord{
		metric(MetricTimeToFetch, "5", record.NodeTypeLeech, 1),
		metric(MetricTimeToFetch, "5", record.NodeTypeLeech, 1),
		metric(MetricTimeToFetch, "5", record.NodeTypeLeech, 1),
		metric(MetricTimeToFetch, "5", record.NodeTypeLeech, 9),
	}
	ans, err := Summarize(metrics, MetricFilter{Name: MetricTimeToFetch, ReplaceOutliers: true})
	require.NoError(t, err)
	require.Len(t, ans, 1)
	assert.Equal(t, 1, ans[0].NumOutliers)
	assert.Equal(t, 1.5, ans[0].Mean)
	assert.Equal(t, 3.0, ans[0].Max)
}

func TestOverview(t *testing.T) {
	recs := []record.Attributes{
		{"experiment": "e1", "eavesCount": "1", "latencyMS": "100", "fileSize": "1024"},
		{"experiment": "e1", "eavesCount": "1", "latencyMS": "100", "fileSize": "1024"},
		{"experiment": "e2", "eavesCount": "1", "latencyMS": "100", "fileSize": "1024"},
		{"experiment": "e3", "eavesCount": "2", "latencyMS": "5", "fileSize": "1024"},
		{"experiment": "e4", "eavesCount": "0", "latencyMS": "5"},
	}
	ans := Overview(recs)
	require.Len(t, ans, 3)
	assert.Equal(t, OverviewEntry{Key: "1-100ms-1024byte", NumExperiments: 2}, ans[0])
	assert.Equal(t, OverviewEntry{Key: "0-5ms-?byte", NumExperiments: 1}, ans[1])
	assert.Equal(t, OverviewEntry{Key: "2-5ms-1024byte", NumExperiments: 1}, ans[2])
}

func TestDistinctValues(t *testing.T) {
	recs := []record.Attributes{
		{"latencyMS": "100"}, {"latencyMS": "5"}, {"latencyMS": "100"}, {"x": "y"},
	}
	assert.Equal(t, []string{"5", "100"}, DistinctValues(recs, "latencyMS"))
}
