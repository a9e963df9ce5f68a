package index

import (
	"testing"

	"github.com/ebma/tricklestat/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupKeyString(t *testing.T) {
	key := GroupKey{{Name: "latencyMS", Value: "100"}, {Name: "run", Value: "2"}}
	assert.Equal(t, "latencyMS:100/run:2", key.String())
	assert.Equal(t, "", GroupKey{}.String())
	v, ok := key.Value("run")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = key.Value("topology")
	assert.False(t, ok)
	assert.Equal(t, []string{"latencyMS", "run"}, key.Names())
}

func TestPartitionByValuesWithSeparators(t *testing.T) {
	records := []record.Attributes{
		attrs("x", "1/y:2", "y", "3"),
		attrs("x", "1", "y", "2/y:3"),
	}
	parts, err := PartitionBy(records, "x", "y")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	for _, p := range parts {
		require.Len(t, p.Items, 1)
		assert.True(t, p.Key.Matches(p.Items[0]))
	}
}

func TestGroupKeyMatches(t *testing.T) {
	key := GroupKey{{Name: "latencyMS", Value: "100"}}
	assert.True(t, key.Matches(attrs("latencyMS", "100", "x", "y")))
	assert.False(t, key.Matches(attrs("latencyMS", "5")))
	assert.False(t, key.Matches(attrs("x", "y")))
	assert.True(t, GroupKey{}.Matches(attrs()))
}

func TestPartitionBy(t *testing.T) {
	parts, err := PartitionBy(sampleRecords(), "latencyMS", "fileSize")
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Equal(t, "latencyMS:5/fileSize:1024", parts[0].Key.String())
	assert.Equal(t, "latencyMS:5/fileSize:2048", parts[1].Key.String())
	assert.Equal(t, "latencyMS:100/fileSize:1024", parts[2].Key.String())
	assert.Equal(t, "latencyMS:100/fileSize:2048", parts[3].Key.String())

	total := 0
	for _, p := range parts {
		for _, r := range p.Items {
			assert.True(t, p.Key.Matches(r))
			total++
		}
	}
	assert.Equal(t, 5, total)
	assert.Equal(t, "0", parts[2].Items[0]["id"])
	assert.Equal(t, "4", parts[2].Items[1]["id"])
}

func TestPartitionByNoDimensions(t *testing.T) {
	parts, err := PartitionBy(sampleRecords())
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Empty(t, parts[0].Key)
	assert.Len(t, parts[0].Items, 5)

	parts, err = PartitionBy([]record.Attributes{})
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestPartitionByMissingAttribute(t *testing.T) {
	_, err := PartitionBy(sampleRecords(), "latencyMS", "topology")
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestFilter(t *testing.T) {
	key := GroupKey{{Name: "fileSize", Value: "2048"}}
	ans, err := Filter(sampleRecords(), key)
	require.NoError(t, err)
	require.Len(t, ans, 2)
	assert.Equal(t, "2", ans[0]["id"])
	assert.Equal(t, "3", ans[1]["id"])

	_, err = Filter(sampleRecords(), GroupKey{{Name: "topology", Value: "x"}})
	assert.ErrorIs(t, err, ErrMissingAttribute)
}
