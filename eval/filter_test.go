package eval

import (
	"testing"

	"github.com/ebma/tricklestat/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeTypeFilter(t *testing.T) {
	eaves := message("1", 1, "A", "x")
	leech := message("1", 2, "B", "x")
	leech.Attributes[record.AttrNodeType] = record.NodeTypeLeech
	untyped := message("1", 3, "C", "x")
	delete(untyped.Attributes, record.AttrNodeType)

	ans := EavesdropperMessages([]*record.MessageRecord{eaves, leech, untyped}, NodeTypeFilter{})
	require.Len(t, ans, 1)
	assert.Equal(t, "A", ans[0].Sender)
}

func TestNodeInfoFilter(t *testing.T) {
	nodes := []*record.NodeInfoRecord{
		{Attributes: record.Attributes{record.AttrExperiment: "exp1"}, NodeID: "E1", NodeType: record.NodeTypeEavesdropper},
		{Attributes: record.Attributes{record.AttrExperiment: "exp1"}, NodeID: "L1", NodeType: record.NodeTypeLeech},
		{Attributes: record.Attributes{record.AttrExperiment: "exp2"}, NodeID: "E2", NodeType: record.NodeTypeEavesdropper},
	}
	filter := NewNodeInfoFilter(nodes)
	assert.Equal(t, 2, filter.NumEavesdroppers())

	m1 := message("1", 1, "A", "x")
	m2 := message("1", 1, "A", "x")
	m2.Receiver = "L1"
	m3 := message("1", 1, "A", "x")
	m3.Receiver = "E2"
	assert.True(t, filter.Accept(m1))
	assert.False(t, filter.Accept(m2))
	assert.False(t, filter.Accept(m3), "eavesdropper of a different experiment")
}

func TestGetEavesdropperFilter(t *testing.T) {
	f, err := GetEavesdropperFilter(FilterNodeType, nil)
	require.NoError(t, err)
	assert.IsType(t, NodeTypeFilter{}, f)

	f, err = GetEavesdropperFilter(FilterNodeInfo, nil)
	require.NoError(t, err)
	assert.IsType(t, &NodeInfoFilter{}, f)

	_, err = GetEavesdropperFilter("receiver", nil)
	assert.ErrorIs(t, err, ErrNoSuchFilter)
}
