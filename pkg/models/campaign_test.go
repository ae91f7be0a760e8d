package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFlow() *CampaignFlow {
	handle := "branch-a"

	return &CampaignFlow{
		ID:   "flow-1",
		Name: "Spring sale",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeCampaignStart, Data: CampaignStartData{Name: "Event"}},
			{ID: "split", Type: NodeTypeFunnelSplit, Data: FunnelSplitData{
				Attribute: "device",
				Branches:  []Branch{{ID: "branch-a"}, {ID: "branch-b"}},
			}},
			{ID: "send", Type: NodeTypeAction, Data: ActionData{ActionType: "sendEmail"}},
		},
		Edges: []*Edge{
			{ID: "e1", Source: "start", Target: "split"},
			{ID: "e2", Source: "split", SourceHandle: &handle, Target: "send"},
		},
	}
}

func TestCampaignFlow_MarshalJSON_EmptyCollections(t *testing.T) {
	out, err := json.Marshal(CampaignFlow{ID: "f", Name: "Empty"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"f","name":"Empty","nodes":[],"edges":[]}`, string(out))
}

func TestCampaignFlow_JSONRoundTrip(t *testing.T) {
	flow := sampleFlow()

	out, err := json.Marshal(flow)
	require.NoError(t, err)

	var decoded CampaignFlow

	err = json.Unmarshal(out, &decoded)
	require.NoError(t, err)

	assert.Equal(t, flow, &decoded)
}

func TestCampaignFlow_Snapshot_IsIndependent(t *testing.T) {
	flow := sampleFlow()
	snapshot := flow.Snapshot()

	require.Equal(t, flow, snapshot)

	flow.Name = "changed"
	flow.Nodes[0].Position.X = 99
	flow.Edges[1].Target = "start"
	*flow.Edges[1].SourceHandle = "other"

	split := flow.Nodes[1].Data.(FunnelSplitData)
	split.Branches[0].ID = "mutated"

	assert.Equal(t, "Spring sale", snapshot.Name)
	assert.Zero(t, snapshot.Nodes[0].Position.X)
	assert.Equal(t, "send", snapshot.Edges[1].Target)
	assert.Equal(t, "branch-a", *snapshot.Edges[1].SourceHandle)
	assert.Equal(t, "branch-a", snapshot.Nodes[1].Data.(FunnelSplitData).Branches[0].ID)
}

func TestCampaignFlow_Snapshot_Nil(t *testing.T) {
	var flow *CampaignFlow

	snapshot := flow.Snapshot()
	require.NotNil(t, snapshot)
	assert.Empty(t, snapshot.Nodes)
	assert.Empty(t, snapshot.Edges)
}

func TestCampaignFlow_RemoveNode(t *testing.T) {
	flow := sampleFlow()

	assert.True(t, flow.RemoveNode("split"))
	assert.Len(t, flow.Nodes, 2)
	assert.Empty(t, flow.Edges, "edges touching the removed node must be dropped")

	assert.False(t, flow.RemoveNode("split"))
}

func TestCampaignFlow_RemoveEdge(t *testing.T) {
	flow := sampleFlow()

	assert.True(t, flow.RemoveEdge("e1"))
	assert.Len(t, flow.Edges, 1)
	assert.Equal(t, "e2", flow.Edges[0].ID)
	assert.False(t, flow.RemoveEdge("e1"))
}

func TestCampaignFlow_Find(t *testing.T) {
	flow := sampleFlow()

	node, ok := flow.FindNode("send")
	require.True(t, ok)
	assert.Equal(t, NodeTypeAction, node.Type)

	_, ok = flow.FindNode("missing")
	assert.False(t, ok)

	edge, ok := flow.FindEdge("e2")
	require.True(t, ok)
	assert.Equal(t, "split", edge.Source)
}
