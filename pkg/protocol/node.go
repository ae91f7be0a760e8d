// Package protocol defines the interfaces and contracts for pluggable campaign node types.
package protocol

import "github.com/dukex/campaignflow/pkg/models"

// NodeFactory provides metadata and defaults for one campaign node type.
type NodeFactory interface {
	// ID returns the node type this factory describes
	ID() models.NodeType

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema of the node payload
	Schema() map[string]any

	// DefaultData returns the payload of a freshly created node
	DefaultData() (models.NodeData, error)
}
