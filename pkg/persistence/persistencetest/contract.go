// Package persistencetest holds the behaviour every persistence backend must share.
package persistencetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/persistence"
	"github.com/dukex/campaignflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContract runs the shared persistence suite. newStore must return an empty store.
func RunContract(t *testing.T, newStore func(t *testing.T) persistence.Persistence) {
	t.Helper()

	t.Run("empty store", func(t *testing.T) {
		store := newStore(t)

		campaigns, err := store.Campaigns(t.Context())
		require.NoError(t, err)
		assert.Empty(t, campaigns)

		campaign, err := store.CampaignByID(t.Context(), "missing")
		require.NoError(t, err)
		assert.Nil(t, campaign)

		assert.NoError(t, store.HealthCheck(t.Context()))
	})

	t.Run("save and load keeps the graph", func(t *testing.T) {
		store := newStore(t)

		flow := sampleFlow("c1", "Spring sale")
		require.NoError(t, store.SaveCampaign(t.Context(), flow))

		loaded, err := store.CampaignByID(t.Context(), "c1")
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, flow.Name, loaded.Name)
		require.Len(t, loaded.Nodes, len(flow.Nodes))
		require.Len(t, loaded.Edges, len(flow.Edges))

		for i, node := range flow.Nodes {
			assert.Equal(t, node.ID, loaded.Nodes[i].ID)
			assert.Equal(t, node.Type, loaded.Nodes[i].Type)
			assert.Equal(t, node.Position, loaded.Nodes[i].Position)
			assert.Equal(t, node.Data, loaded.Nodes[i].Data)
		}

		assert.Equal(t, flow.Edges[1].SourceHandle, loaded.Edges[1].SourceHandle)
	})

	t.Run("save upserts in place and appends new campaigns", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c1", "First")))
		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c2", "Second")))
		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c1", "First v2")))

		campaigns, err := store.Campaigns(t.Context())
		require.NoError(t, err)
		require.Len(t, campaigns, 2)

		assert.Equal(t, "c1", campaigns[0].ID)
		assert.Equal(t, "First v2", campaigns[0].Name)
		assert.Equal(t, "c2", campaigns[1].ID)
	})

	t.Run("rename", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c1", "Old")))
		require.NoError(t, store.RenameCampaign(t.Context(), "c1", "New"))
		require.NoError(t, store.RenameCampaign(t.Context(), "missing", "Ignored"))

		loaded, err := store.CampaignByID(t.Context(), "c1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "New", loaded.Name)
		assert.Len(t, loaded.Nodes, 2)

		campaigns, err := store.Campaigns(t.Context())
		require.NoError(t, err)
		assert.Len(t, campaigns, 1)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c1", "One")))
		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c2", "Two")))

		require.NoError(t, store.DeleteCampaign(t.Context(), "c1"))
		require.NoError(t, store.DeleteCampaign(t.Context(), "missing"))

		deleted, err := store.CampaignByID(t.Context(), "c1")
		require.NoError(t, err)
		assert.Nil(t, deleted)

		campaigns, err := store.Campaigns(t.Context())
		require.NoError(t, err)
		require.Len(t, campaigns, 1)
		assert.Equal(t, "c2", campaigns[0].ID)
	})

	t.Run("update applies the change in place", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c1", "One")))
		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c2", "Two")))

		updated, err := store.UpdateCampaign(t.Context(), "c1", func(flow *models.CampaignFlow) error {
			flow.Name = "One v2"
			flow.Nodes = append(flow.Nodes, testutil.CreateTestNode("meta", models.NodeTypeCampaignMeta))

			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "c1", updated.ID)
		assert.Len(t, updated.Nodes, 3)

		campaigns, err := store.Campaigns(t.Context())
		require.NoError(t, err)
		require.Len(t, campaigns, 2)
		assert.Equal(t, "c1", campaigns[0].ID)
		assert.Equal(t, "One v2", campaigns[0].Name)
		assert.Len(t, campaigns[0].Nodes, 3)
	})

	t.Run("update of a missing campaign", func(t *testing.T) {
		store := newStore(t)

		_, err := store.UpdateCampaign(t.Context(), "missing", func(*models.CampaignFlow) error {
			return nil
		})
		require.ErrorIs(t, err, persistence.ErrCampaignNotFound)
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		store := newStore(t)
		rejected := errors.New("rejected")

		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c1", "One")))

		_, err := store.UpdateCampaign(t.Context(), "c1", func(flow *models.CampaignFlow) error {
			flow.Name = "Changed"

			return rejected
		})
		require.ErrorIs(t, err, rejected)

		loaded, err := store.CampaignByID(t.Context(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "One", loaded.Name)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SaveCampaign(t.Context(), sampleFlow("c1", "Busy")))

		const writers = 32

		var wg sync.WaitGroup

		errs := make(chan error, writers)

		for i := range writers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := store.UpdateCampaign(t.Context(), "c1", func(flow *models.CampaignFlow) error {
					flow.Nodes = append(flow.Nodes,
						testutil.CreateTestNode(fmt.Sprintf("node-%d", i), models.NodeTypeAction))

					return nil
				})
				errs <- err
			}()
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		loaded, err := store.CampaignByID(t.Context(), "c1")
		require.NoError(t, err)
		assert.Len(t, loaded.Nodes, 2+writers)
	})

	t.Run("rejects campaigns without id", func(t *testing.T) {
		store := newStore(t)

		err := store.SaveCampaign(t.Context(), &models.CampaignFlow{Name: "No id"})
		assert.True(t, persistence.IsInvalidCampaign(err))

		err = store.SaveCampaign(t.Context(), nil)
		assert.True(t, persistence.IsInvalidCampaign(err))
	})
}

func sampleFlow(id, name string) *models.CampaignFlow {
	return testutil.CreateTestFlow(
		testutil.WithFlowID(id),
		testutil.WithFlowName(name),
		testutil.WithNodes(
			testutil.CreateTestNode("start", models.NodeTypeCampaignStart, testutil.WithPosition(10, 20)),
			testutil.CreateTestNode("send", models.NodeTypeAction),
		),
		testutil.WithEdges(
			testutil.CreateTestEdge("start", "send"),
			testutil.CreateTestEdge("start", "send", testutil.WithEdgeID("e-handles"), testutil.WithHandles("out", "in")),
		),
	)
}
