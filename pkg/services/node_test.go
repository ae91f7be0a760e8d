package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/campaignflow/pkg/nodes"
	"github.com/dukex/campaignflow/pkg/persistence"
	"github.com/dukex/campaignflow/pkg/persistence/file"
	redisstore "github.com/dukex/campaignflow/pkg/persistence/redis"
	"github.com/dukex/campaignflow/pkg/registry"
	"github.com/dukex/campaignflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testCampaignID = "campaign-123"

func newNodeService(t *testing.T) (*Node, *Campaign) {
	t.Helper()

	campaigns := newFileCampaignService(t)

	reg := registry.NewRegistry(testLogger())
	reg.RegisterDefaultNodes()

	counter := 0
	factory := nodes.NewFactory(
		nodes.WithClock(func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }),
		nodes.WithIDGenerator(func() string {
			counter++

			return fmt.Sprintf("node-%d", counter)
		}),
	)

	_, err := campaigns.Save(t.Context(), testutil.CreateTestFlow(testutil.WithFlowID(testCampaignID)))
	require.NoError(t, err)

	return NewNode(campaigns, reg, factory), campaigns
}

func stored(t *testing.T, campaigns *Campaign) *models.CampaignFlow {
	t.Helper()

	flow, err := campaigns.FetchByID(t.Context(), testCampaignID)
	require.NoError(t, err)

	return flow
}

func ptr[T any](v T) *T {
	return &v
}

func TestNode_AddNodeFallbackPosition(t *testing.T) {
	service, campaigns := newNodeService(t)

	first, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeCampaignStart, nil)
	require.NoError(t, err)
	assert.Equal(t, "node-1", first.ID)
	assert.Equal(t, models.Position{X: 200, Y: 140}, first.Position)

	second, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeAction, nil)
	require.NoError(t, err)
	assert.Equal(t, models.Position{X: 218, Y: 158}, second.Position)
	assert.Equal(t, models.ActionData{ActionType: "sendEmail", Payload: `{"templateId":"tmpl-001"}`}, second.Data)

	flow := stored(t, campaigns)
	require.Len(t, flow.Nodes, 2)
	assert.Equal(t, models.NodeTypeCampaignStart, flow.Nodes[0].Type)
	assert.Equal(t, models.NodeTypeAction, flow.Nodes[1].Type)
}

func TestNode_AddNodeExplicitPosition(t *testing.T) {
	service, _ := newNodeService(t)

	node, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeLlmText, &models.Position{X: 10, Y: -5})
	require.NoError(t, err)
	assert.Equal(t, models.Position{X: 10, Y: -5}, node.Position)
}

func TestNode_AddNodeErrors(t *testing.T) {
	service, _ := newNodeService(t)

	_, err := service.AddNode(t.Context(), testCampaignID, "webhook", nil)
	require.ErrorIs(t, err, ErrUnknownNodeType)
	assert.True(t, IsValidationError(err))

	_, err = service.AddNode(t.Context(), "missing", models.NodeTypeAction, nil)
	require.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestNode_UpdateNodeData(t *testing.T) {
	service, campaigns := newNodeService(t)

	node, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeAbTest, nil)
	require.NoError(t, err)

	updated, err := service.UpdateNodeData(t.Context(), testCampaignID, node.ID,
		json.RawMessage(`{"title":"Subject line","splitA":70}`))
	require.NoError(t, err)
	assert.Equal(t, models.AbTestData{Title: "Subject line", SplitA: 70}, updated.Data)

	flow := stored(t, campaigns)
	assert.Equal(t, models.AbTestData{Title: "Subject line", SplitA: 70}, flow.Nodes[0].Data)
}

func TestNode_UpdateNodeDataNormalizes(t *testing.T) {
	service, _ := newNodeService(t)

	node, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeLlmText, nil)
	require.NoError(t, err)

	updated, err := service.UpdateNodeData(t.Context(), testCampaignID, node.ID,
		json.RawMessage(`{"title":"AI","prompt":"p","mode":"generate","model":"m","temperature":3,"maxTokens":64}`))
	require.NoError(t, err)

	data, ok := updated.Data.(models.LlmTextData)
	require.True(t, ok)
	assert.InDelta(t, 1.5, data.Temperature, 0.0001)
	assert.Equal(t, 64, data.MaxTokens)
}

func TestNode_UpdateNodeDataRejectsInvalidPayload(t *testing.T) {
	service, campaigns := newNodeService(t)

	node, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeAbTest, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"split above range", `{"title":"t","splitA":150}`},
		{"split wrong type", `{"title":"t","splitA":"half"}`},
		{"not an object", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.UpdateNodeData(t.Context(), testCampaignID, node.ID, json.RawMessage(tt.raw))
			require.ErrorIs(t, err, ErrInvalidNodeData)
			assert.True(t, IsValidationError(err))
		})
	}

	flow := stored(t, campaigns)
	assert.Equal(t, models.AbTestData{Title: "Headline test", SplitA: 50}, flow.Nodes[0].Data)
}

func TestNode_UpdateNodeDataMissingNode(t *testing.T) {
	service, _ := newNodeService(t)

	_, err := service.UpdateNodeData(t.Context(), testCampaignID, "missing", json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestNode_MoveNode(t *testing.T) {
	service, campaigns := newNodeService(t)

	node, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeFilter, nil)
	require.NoError(t, err)

	moved, err := service.MoveNode(t.Context(), testCampaignID, node.ID, models.Position{X: 400, Y: 300})
	require.NoError(t, err)
	assert.Equal(t, models.Position{X: 400, Y: 300}, moved.Position)
	assert.Equal(t, models.Position{X: 400, Y: 300}, stored(t, campaigns).Nodes[0].Position)

	_, err = service.MoveNode(t.Context(), testCampaignID, "missing", models.Position{})
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestNode_ConnectAndDeleteEdge(t *testing.T) {
	service, campaigns := newNodeService(t)

	start, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeCampaignStart, nil)
	require.NoError(t, err)
	split, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeAbTest, nil)
	require.NoError(t, err)

	edge, err := service.Connect(t.Context(), testCampaignID, Connection{Source: start.ID, Target: split.ID})
	require.NoError(t, err)
	assert.Equal(t, "reactflow__edge-node-1-node-2", edge.ID)
	assert.Nil(t, edge.SourceHandle)

	handled, err := service.Connect(t.Context(), testCampaignID, Connection{
		Source: start.ID, SourceHandle: ptr("out"), Target: split.ID, TargetHandle: ptr("in"),
	})
	require.NoError(t, err)
	assert.Equal(t, "reactflow__edge-node-1out-node-2in", handled.ID)

	again, err := service.Connect(t.Context(), testCampaignID, Connection{Source: start.ID, Target: split.ID})
	require.NoError(t, err)
	assert.Equal(t, edge.ID, again.ID)

	assert.Len(t, stored(t, campaigns).Edges, 2)

	require.NoError(t, service.DeleteEdge(t.Context(), testCampaignID, edge.ID))
	assert.Len(t, stored(t, campaigns).Edges, 1)

	err = service.DeleteEdge(t.Context(), testCampaignID, edge.ID)
	require.ErrorIs(t, err, ErrEdgeNotFound)
}

func TestNode_ConnectSelfLoopIsStored(t *testing.T) {
	service, campaigns := newNodeService(t)

	node, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeFilter, nil)
	require.NoError(t, err)

	_, err = service.Connect(t.Context(), testCampaignID, Connection{Source: node.ID, Target: node.ID})
	require.NoError(t, err)

	result := campaigns.ValidateFlow(t.Context(), stored(t, campaigns))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.ForNode(node.ID))
}

func TestNode_ConnectRejectsInvalid(t *testing.T) {
	service, _ := newNodeService(t)

	node, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeFilter, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		conn Connection
	}{
		{"missing source", Connection{Target: node.ID}},
		{"missing target", Connection{Source: node.ID}},
		{"unknown target", Connection{Source: node.ID, Target: "ghost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Connect(t.Context(), testCampaignID, tt.conn)
			require.ErrorIs(t, err, ErrInvalidConnection)
		})
	}
}

func TestNode_DeleteNodeDropsIncidentEdges(t *testing.T) {
	service, campaigns := newNodeService(t)

	start, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeCampaignStart, nil)
	require.NoError(t, err)
	meta, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeCampaignMeta, nil)
	require.NoError(t, err)
	send, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeAction, nil)
	require.NoError(t, err)

	_, err = service.Connect(t.Context(), testCampaignID, Connection{Source: start.ID, Target: meta.ID})
	require.NoError(t, err)
	_, err = service.Connect(t.Context(), testCampaignID, Connection{Source: meta.ID, Target: send.ID})
	require.NoError(t, err)
	_, err = service.Connect(t.Context(), testCampaignID, Connection{Source: start.ID, Target: send.ID})
	require.NoError(t, err)

	require.NoError(t, service.DeleteNode(t.Context(), testCampaignID, meta.ID))

	flow := stored(t, campaigns)
	require.Len(t, flow.Nodes, 2)
	require.Len(t, flow.Edges, 1)
	assert.Equal(t, start.ID, flow.Edges[0].Source)
	assert.Equal(t, send.ID, flow.Edges[0].Target)

	require.ErrorIs(t, service.DeleteNode(t.Context(), testCampaignID, meta.ID), ErrNodeNotFound)
}

func TestEdgeID(t *testing.T) {
	assert.Equal(t, "reactflow__edge-a-b", EdgeID(Connection{Source: "a", Target: "b"}))
	assert.Equal(t, "reactflow__edge-ayes-b", EdgeID(Connection{Source: "a", SourceHandle: ptr("yes"), Target: "b"}))
	assert.Equal(t, "reactflow__edge-a-bin", EdgeID(Connection{Source: "a", Target: "b", TargetHandle: ptr("in")}))
}

func TestNode_ConcurrentEditsAreNotLost(t *testing.T) {
	backends := []struct {
		name  string
		store func(t *testing.T) persistence.Persistence
	}{
		{"file", func(t *testing.T) persistence.Persistence {
			return file.NewPersistence(testLogger(), t.TempDir())
		}},
		{"redis", func(t *testing.T) persistence.Persistence {
			mr := miniredis.RunT(t)
			store := redisstore.NewFromClient(testLogger(), redis.NewClient(&redis.Options{Addr: mr.Addr()}))

			t.Cleanup(func() {
				_ = store.Close(t.Context())
			})

			return store
		}},
	}

	const writers = 48

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			campaigns := NewCampaign(backend.store(t), WithLogger(testLogger()))

			reg := registry.NewRegistry(testLogger())
			reg.RegisterDefaultNodes()

			service := NewNode(campaigns, reg, nil)

			_, err := campaigns.Save(t.Context(), testutil.CreateTestFlow(testutil.WithFlowID(testCampaignID)))
			require.NoError(t, err)

			var wg sync.WaitGroup

			errs := make(chan error, writers)

			for range writers {
				wg.Add(1)

				go func() {
					defer wg.Done()

					_, err := service.AddNode(t.Context(), testCampaignID, models.NodeTypeAction, nil)
					errs <- err
				}()
			}

			wg.Wait()
			close(errs)

			for err := range errs {
				require.NoError(t, err)
			}

			flow := stored(t, campaigns)
			require.Len(t, flow.Nodes, writers)

			ids := make(map[string]bool, writers)
			for _, node := range flow.Nodes {
				ids[node.ID] = true
			}

			assert.Len(t, ids, writers)
		})
	}
}
