// Package web provides HTTP request and response types for the campaign API.
package web

import (
	"encoding/json"

	"github.com/dukex/campaignflow/pkg/models"
)

// CreateCampaignRequest represents the request body for creating an empty campaign.
// A blank name is stored as "Untitled campaign".
type CreateCampaignRequest struct {
	Name string `json:"name" validate:"max=200"`
}

// RenameCampaignRequest represents the request body for renaming a campaign.
type RenameCampaignRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// AddNodeRequest represents the request body for adding a node to a campaign.
type AddNodeRequest struct {
	Type     models.NodeType  `json:"type"               validate:"required"`
	Position *models.Position `json:"position,omitempty"`
}

// UpdateNodeRequest changes the payload, the position, or both.
type UpdateNodeRequest struct {
	Data     json.RawMessage  `json:"data,omitempty"     validate:"required_without=Position"`
	Position *models.Position `json:"position,omitempty" validate:"required_without=Data"`
}

// ConnectRequest represents the request body for adding an edge.
type ConnectRequest struct {
	Source       string  `json:"source"                 validate:"required"`
	SourceHandle *string `json:"sourceHandle,omitempty"`
	Target       string  `json:"target"                 validate:"required"`
	TargetHandle *string `json:"targetHandle,omitempty"`
}

// NodeTypeResponse describes one available node type.
type NodeTypeResponse struct {
	Type        models.NodeType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema"`
}
