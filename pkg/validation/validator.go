// Package validation checks the structure of a campaign flow graph.
//
// Validate is pure: it never mutates the flow, performs no I/O and reports every
// violation it finds. An invalid flow is a normal, user-correctable result, never a Go error.
package validation

import (
	"fmt"

	"github.com/dukex/campaignflow/pkg/models"
)

const (
	MsgMissingStart        = "Campaign must have exactly one start node."
	MsgDuplicateStart      = "Only one campaignStart node is allowed."
	MsgActionOutgoing      = "Action node cannot have outgoing edges."
	MsgAbTestFanOut        = "A/B Test node must have exactly two outgoing edges."
	MsgFunnelBranchCount   = "Funnel Split must define at least two branches."
	MsgFunnelOutgoingCount = "Funnel Split must have at least two outgoing edges."
	MsgFunnelBranchEdges   = "Funnel Split must have outgoing edges for every branch."
	MsgSelfLoop            = "Self-loops are not allowed."
)

// MsgMissingIncoming returns the message for a node of nodeType without incoming edges.
func MsgMissingIncoming(nodeType models.NodeType) string {
	return fmt.Sprintf("%s node must have an incoming edge.", nodeType)
}

// Error is a single finding. NodeID is empty for flow-level findings.
type Error struct {
	Message string `json:"message"`
	NodeID  string `json:"nodeId,omitempty"`
}

// Result is the outcome of validating a flow. Valid is true iff Errors is empty.
type Result struct {
	Valid  bool    `json:"valid"`
	Errors []Error `json:"errors"`
}

// ForNode returns the findings tagged with nodeID.
func (r Result) ForNode(nodeID string) []Error {
	var found []Error

	for _, e := range r.Errors {
		if e.NodeID == nodeID {
			found = append(found, e)
		}
	}

	return found
}

// FlowErrors returns the findings not tied to any node.
func (r Result) FlowErrors() []Error {
	return r.ForNode("")
}

// Messages returns the error messages in report order.
func (r Result) Messages() []string {
	var messages []string

	for _, e := range r.Errors {
		messages = append(messages, e.Message)
	}

	return messages
}

// Node types that must be reached by at least one edge. campaignStart is the entry
// point; audienceSegment is exempt as well.
var requiresIncoming = map[models.NodeType]bool{
	models.NodeTypeCampaignMeta: true,
	models.NodeTypeCampaignType: true,
	models.NodeTypeFilter:       true,
	models.NodeTypeFunnelSplit:  true,
	models.NodeTypeAbTest:       true,
	models.NodeTypeAction:       true,
}

// Validate checks flow against the structural rules and reports every violation.
//
// Errors are ordered: the start-node rule, then per node (in slice order) the incoming,
// action, A/B test and funnel split rules, then self-loops per edge. Edge endpoints are not
// checked against the node set. A nil flow is treated as empty.
func Validate(flow *models.CampaignFlow) Result {
	var nodes []*models.Node

	var edges []*models.Edge

	if flow != nil {
		nodes = flow.Nodes
		edges = flow.Edges
	}

	incoming := make(map[string]int, len(nodes))
	outgoing := make(map[string]int, len(nodes))

	for _, edge := range edges {
		if edge == nil {
			continue
		}

		outgoing[edge.Source]++
		incoming[edge.Target]++
	}

	errs := make([]Error, 0)

	errs = append(errs, checkStart(nodes)...)

	for _, node := range nodes {
		if node == nil {
			continue
		}

		errs = append(errs, checkNode(node, incoming[node.ID], outgoing[node.ID])...)
	}

	for _, edge := range edges {
		if edge != nil && edge.IsSelfLoop() {
			errs = append(errs, Error{Message: MsgSelfLoop, NodeID: edge.Source})
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func checkStart(nodes []*models.Node) []Error {
	var starts []string

	for _, node := range nodes {
		if node != nil && node.Type == models.NodeTypeCampaignStart {
			starts = append(starts, node.ID)
		}
	}

	switch len(starts) {
	case 0:
		return []Error{{Message: MsgMissingStart}}
	case 1:
		return nil
	default:
		// Every start node is reported, not only the extras.
		errs := make([]Error, 0, len(starts))
		for _, id := range starts {
			errs = append(errs, Error{Message: MsgDuplicateStart, NodeID: id})
		}

		return errs
	}
}

func checkNode(node *models.Node, in, out int) []Error {
	var errs []Error

	if requiresIncoming[node.Type] && in == 0 {
		errs = append(errs, Error{Message: MsgMissingIncoming(node.Type), NodeID: node.ID})
	}

	switch node.Type {
	case models.NodeTypeAction:
		if out > 0 {
			errs = append(errs, Error{Message: MsgActionOutgoing, NodeID: node.ID})
		}
	case models.NodeTypeAbTest:
		if out != 2 {
			errs = append(errs, Error{Message: MsgAbTestFanOut, NodeID: node.ID})
		}
	case models.NodeTypeFunnelSplit:
		branches := branchCount(node.Data)

		if branches < 2 {
			errs = append(errs, Error{Message: MsgFunnelBranchCount, NodeID: node.ID})
		}

		if out < 2 {
			errs = append(errs, Error{Message: MsgFunnelOutgoingCount, NodeID: node.ID})
		}

		if branches > 0 && out < branches {
			errs = append(errs, Error{Message: MsgFunnelBranchEdges, NodeID: node.ID})
		}
	}

	return errs
}

// branchCount treats a missing or foreign payload as zero branches.
func branchCount(data models.NodeData) int {
	switch d := data.(type) {
	case models.FunnelSplitData:
		return len(d.Branches)
	case *models.FunnelSplitData:
		if d == nil {
			return 0
		}

		return len(d.Branches)
	default:
		return 0
	}
}
