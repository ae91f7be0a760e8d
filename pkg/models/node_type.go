// Package models defines the core domain models for campaign flow graphs.
package models

// NodeType identifies the kind of a node and the shape of its payload.
type NodeType string

const (
	NodeTypeCampaignStart   NodeType = "campaignStart"   // Entry point of the flow
	NodeTypeCampaignMeta    NodeType = "campaignMeta"    // Campaign identity and budget
	NodeTypeCampaignType    NodeType = "campaignType"    // Placement channel
	NodeTypeAudienceSegment NodeType = "audienceSegment" // Audience conditions
	NodeTypeFilter          NodeType = "filter"          // Filtering conditions
	NodeTypeFunnelSplit     NodeType = "funnelSplit"     // Attribute based branching
	NodeTypeAbTest          NodeType = "abTest"          // Two-way percentage split
	NodeTypeAction          NodeType = "action"          // Terminal action
	NodeTypeLlmText         NodeType = "llmText"         // AI text generation
)

var allNodeTypes = []NodeType{
	NodeTypeCampaignStart,
	NodeTypeCampaignMeta,
	NodeTypeCampaignType,
	NodeTypeAudienceSegment,
	NodeTypeFilter,
	NodeTypeFunnelSplit,
	NodeTypeAbTest,
	NodeTypeAction,
	NodeTypeLlmText,
}

// AllNodeTypes returns every node type in declaration order.
func AllNodeTypes() []NodeType {
	types := make([]NodeType, len(allNodeTypes))
	copy(types, allNodeTypes)

	return types
}

// IsValid reports whether t is one of the known node types.
func (t NodeType) IsValid() bool {
	for _, known := range allNodeTypes {
		if t == known {
			return true
		}
	}

	return false
}

func (t NodeType) String() string {
	return string(t)
}
