// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/nodes"
	"github.com/google/uuid"
)

// CreateTestNode creates a node of nodeType with its default payload that can be overridden.
func CreateTestNode(id string, nodeType models.NodeType, overrides ...func(*models.Node)) *models.Node {
	// Unknown types get no payload.
	data, _ := nodes.CreateDefaultData(nodeType)

	node := &models.Node{
		ID:       id,
		Type:     nodeType,
		Position: models.Position{X: 100, Y: 200},
		Data:     data,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithData sets the node payload.
func WithData(data models.NodeData) func(*models.Node) {
	return func(n *models.Node) {
		n.Data = data
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// WithBranches replaces the funnel split branches with count generated branches.
func WithBranches(count int) func(*models.Node) {
	return func(n *models.Node) {
		funnel := models.FunnelSplitData{Attribute: "device"}
		for i := range count {
			funnel.Branches = append(funnel.Branches, models.Branch{
				ID:        fmt.Sprintf("branch-%d", i),
				Label:     fmt.Sprintf("Branch %d", i),
				Condition: fmt.Sprintf("device = %d", i),
			})
		}

		n.Data = funnel
	}
}

// CreateTestEdge creates an edge from source to target.
func CreateTestEdge(source, target string, overrides ...func(*models.Edge)) *models.Edge {
	edge := &models.Edge{
		ID:     fmt.Sprintf("e-%s-%s", source, target),
		Source: source,
		Target: target,
	}

	for _, override := range overrides {
		override(edge)
	}

	return edge
}

// WithEdgeID sets the edge id.
func WithEdgeID(id string) func(*models.Edge) {
	return func(e *models.Edge) {
		e.ID = id
	}
}

// WithHandles sets the source and target handles.
func WithHandles(sourceHandle, targetHandle string) func(*models.Edge) {
	return func(e *models.Edge) {
		e.SourceHandle = &sourceHandle
		e.TargetHandle = &targetHandle
	}
}

// CreateTestFlow creates an empty campaign flow with default values that can be overridden.
func CreateTestFlow(overrides ...func(*models.CampaignFlow)) *models.CampaignFlow {
	flow := &models.CampaignFlow{
		ID:    uuid.New().String(),
		Name:  "Test campaign",
		Nodes: []*models.Node{},
		Edges: []*models.Edge{},
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

// WithFlowID sets the flow id.
func WithFlowID(id string) func(*models.CampaignFlow) {
	return func(f *models.CampaignFlow) {
		f.ID = id
	}
}

// WithFlowName sets the flow name.
func WithFlowName(name string) func(*models.CampaignFlow) {
	return func(f *models.CampaignFlow) {
		f.Name = name
	}
}

// WithNodes appends nodes to the flow.
func WithNodes(nodes ...*models.Node) func(*models.CampaignFlow) {
	return func(f *models.CampaignFlow) {
		f.Nodes = append(f.Nodes, nodes...)
	}
}

// WithEdges appends edges to the flow.
func WithEdges(edges ...*models.Edge) func(*models.CampaignFlow) {
	return func(f *models.CampaignFlow) {
		f.Edges = append(f.Edges, edges...)
	}
}

// CreateLinearFlow creates a valid start -> action flow.
func CreateLinearFlow(overrides ...func(*models.CampaignFlow)) *models.CampaignFlow {
	base := []func(*models.CampaignFlow){
		WithNodes(
			CreateTestNode("start", models.NodeTypeCampaignStart),
			CreateTestNode("send", models.NodeTypeAction),
		),
		WithEdges(CreateTestEdge("start", "send")),
	}

	return CreateTestFlow(append(base, overrides...)...)
}
