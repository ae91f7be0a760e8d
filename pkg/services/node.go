package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/nodes"
	"github.com/dukex/campaignflow/pkg/registry"
)

// Connection is a request to link two nodes, optionally through named handles.
type Connection struct {
	Source       string
	SourceHandle *string
	Target       string
	TargetHandle *string
}

// Node handles node and edge editing inside a campaign. Every change is saved through
// the campaign service.
type Node struct {
	campaigns *Campaign
	registry  *registry.Registry
	factory   *nodes.Factory
}

// NewNode creates a new node service. A nil factory uses the default one.
func NewNode(campaigns *Campaign, reg *registry.Registry, factory *nodes.Factory) *Node {
	if factory == nil {
		factory = nodes.NewFactory()
	}

	return &Node{
		campaigns: campaigns,
		registry:  reg,
		factory:   factory,
	}
}

// AddNode appends a node with default data. Without a position the node is placed with
// nodes.FallbackPosition for the current node count.
func (n *Node) AddNode(
	ctx context.Context,
	campaignID string,
	nodeType models.NodeType,
	position *models.Position,
) (*models.Node, error) {
	if !nodeType.IsValid() {
		return nil, NewValidationError("AddNode", "UNKNOWN_NODE_TYPE",
			fmt.Sprintf("unknown node type: %s", nodeType), ErrUnknownNodeType)
	}

	var added *models.Node

	err := n.campaigns.update(ctx, campaignID, func(flow *models.CampaignFlow) error {
		pos := nodes.FallbackPosition(len(flow.Nodes))
		if position != nil {
			pos = *position
		}

		node, err := n.factory.BuildNode(nodeType, pos)
		if err != nil {
			return fmt.Errorf("failed to build node: %w", err)
		}

		flow.Nodes = append(flow.Nodes, node)
		added = node

		return nil
	})
	if err != nil {
		return nil, err
	}

	return added, nil
}

// UpdateNodeData replaces the payload of a node after checking it against the node type schema.
// Numeric fields are normalised (A/B split clamped, LLM temperature clamped).
func (n *Node) UpdateNodeData(ctx context.Context, campaignID, nodeID string, raw json.RawMessage) (*models.Node, error) {
	var updated *models.Node

	err := n.campaigns.update(ctx, campaignID, func(flow *models.CampaignFlow) error {
		node, found := flow.FindNode(nodeID)
		if !found {
			return newNotFoundError("UpdateNodeData", "NODE_NOT_FOUND", nodeID, ErrNodeNotFound)
		}

		err := n.registry.ValidateData(node.Type, raw)
		if err != nil {
			return NewValidationError("UpdateNodeData", "INVALID_NODE_DATA", err.Error(), ErrInvalidNodeData)
		}

		node.Data = models.NormalizeData(models.DecodeData(node.Type, raw))
		updated = node

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// MoveNode changes the canvas position of a node.
func (n *Node) MoveNode(ctx context.Context, campaignID, nodeID string, position models.Position) (*models.Node, error) {
	var moved *models.Node

	err := n.campaigns.update(ctx, campaignID, func(flow *models.CampaignFlow) error {
		node, found := flow.FindNode(nodeID)
		if !found {
			return newNotFoundError("MoveNode", "NODE_NOT_FOUND", nodeID, ErrNodeNotFound)
		}

		node.Position = position
		moved = node

		return nil
	})
	if err != nil {
		return nil, err
	}

	return moved, nil
}

// DeleteNode removes a node together with every edge touching it.
func (n *Node) DeleteNode(ctx context.Context, campaignID, nodeID string) error {
	return n.campaigns.update(ctx, campaignID, func(flow *models.CampaignFlow) error {
		if !flow.RemoveNode(nodeID) {
			return newNotFoundError("DeleteNode", "NODE_NOT_FOUND", nodeID, ErrNodeNotFound)
		}

		return nil
	})
}

// Connect adds an edge between two existing nodes. Connecting the same endpoints and handles
// twice returns the edge already present.
func (n *Node) Connect(ctx context.Context, campaignID string, conn Connection) (*models.Edge, error) {
	if conn.Source == "" || conn.Target == "" {
		return nil, NewValidationError("Connect", "INVALID_CONNECTION",
			"source and target are required", ErrInvalidConnection)
	}

	var connected *models.Edge

	err := n.campaigns.update(ctx, campaignID, func(flow *models.CampaignFlow) error {
		for _, id := range []string{conn.Source, conn.Target} {
			if _, found := flow.FindNode(id); !found {
				return NewValidationError("Connect", "INVALID_CONNECTION",
					fmt.Sprintf("node %s does not exist", id), ErrInvalidConnection)
			}
		}

		for _, edge := range flow.Edges {
			if edge != nil && sameConnection(edge, conn) {
				connected = edge

				return nil
			}
		}

		edge := &models.Edge{
			ID:           EdgeID(conn),
			Source:       conn.Source,
			SourceHandle: conn.SourceHandle,
			Target:       conn.Target,
			TargetHandle: conn.TargetHandle,
		}

		flow.Edges = append(flow.Edges, edge)
		connected = edge

		return nil
	})
	if err != nil {
		return nil, err
	}

	return connected, nil
}

// DeleteEdge removes an edge by id.
func (n *Node) DeleteEdge(ctx context.Context, campaignID, edgeID string) error {
	return n.campaigns.update(ctx, campaignID, func(flow *models.CampaignFlow) error {
		if !flow.RemoveEdge(edgeID) {
			return newNotFoundError("DeleteEdge", "EDGE_NOT_FOUND", edgeID, ErrEdgeNotFound)
		}

		return nil
	})
}

// EdgeID is "reactflow__edge-<source><sourceHandle>-<target><targetHandle>", the id format
// stored flows already use.
func EdgeID(conn Connection) string {
	return "reactflow__edge-" + conn.Source + handle(conn.SourceHandle) + "-" + conn.Target + handle(conn.TargetHandle)
}

func sameConnection(edge *models.Edge, conn Connection) bool {
	return edge.Source == conn.Source &&
		edge.Target == conn.Target &&
		handle(edge.SourceHandle) == handle(conn.SourceHandle) &&
		handle(edge.TargetHandle) == handle(conn.TargetHandle)
}

func handle(h *string) string {
	if h == nil {
		return ""
	}

	return *h
}
