package nodes

import (
	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/protocol"
)

// NodeFactory describes one campaign node type and builds its default payload.
type NodeFactory struct {
	factory     *Factory
	nodeType    models.NodeType
	name        string
	description string
	schema      map[string]any
}

// ID returns the node type.
func (n *NodeFactory) ID() models.NodeType {
	return n.nodeType
}

// Name returns the palette label.
func (n *NodeFactory) Name() string {
	return n.name
}

// Description returns what the node does.
func (n *NodeFactory) Description() string {
	return n.description
}

// Schema returns the JSON schema of the node payload.
func (n *NodeFactory) Schema() map[string]any {
	return n.schema
}

// DefaultData returns the payload of a freshly created node.
func (n *NodeFactory) DefaultData() (models.NodeData, error) {
	return n.factory.CreateDefaultData(n.nodeType)
}

// Catalog returns a NodeFactory for every node type, in palette order.
func Catalog(factory *Factory) []protocol.NodeFactory {
	if factory == nil {
		factory = defaultFactory
	}

	entries := []*NodeFactory{
		{
			nodeType:    models.NodeTypeCampaignStart,
			name:        "Event",
			description: "Entry point of the campaign; exactly one per flow",
			schema: objectSchema(map[string]any{
				"name":        stringSchema("Display name of the trigger"),
				"description": stringSchema("Free-form description"),
				"triggerType": stringSchema("How the campaign starts, e.g. immediate"),
			}),
		},
		{
			nodeType:    models.NodeTypeCampaignMeta,
			name:        "Meta",
			description: "Campaign identifier, budget and schedule",
			schema: objectSchema(map[string]any{
				"campaignId": stringSchema("External campaign identifier"),
				"budget": map[string]any{
					"type":        "number",
					"description": "Campaign budget",
					"minimum":     0,
				},
				"startDate": dateSchema("Start date (YYYY-MM-DD), optional"),
				"endDate":   dateSchema("End date (YYYY-MM-DD), optional"),
			}),
		},
		{
			nodeType:    models.NodeTypeCampaignType,
			name:        "Campaign type",
			description: "Delivery channel and its options",
			schema: objectSchema(map[string]any{
				"placementType": map[string]any{
					"type":        "string",
					"description": "Delivery channel",
					"enum": []string{
						models.PlacementEmail,
						models.PlacementPush,
						models.PlacementSMS,
						models.PlacementInApp,
					},
				},
				"placementOptions": map[string]any{
					"type":        "array",
					"description": "Ordered channel options",
					"items": objectSchema(map[string]any{
						"key":   stringSchema("Option name"),
						"value": stringSchema("Option value"),
					}, "key"),
				},
			}),
		},
		{
			nodeType:    models.NodeTypeAudienceSegment,
			name:        "Segment",
			description: "Selects the audience by conditions",
			schema: objectSchema(map[string]any{
				"conditions": conditionsSchema(),
			}),
		},
		{
			nodeType:    models.NodeTypeFilter,
			name:        "Filter",
			description: "Keeps only recipients matching the conditions",
			schema: objectSchema(map[string]any{
				"conditions": conditionsSchema(),
			}),
		},
		{
			nodeType:    models.NodeTypeFunnelSplit,
			name:        "Funnel split",
			description: "Routes recipients into branches by an attribute; one outgoing edge per branch",
			schema: objectSchema(map[string]any{
				"attribute": stringSchema("Attribute the split is based on"),
				"branches": map[string]any{
					"type":        "array",
					"description": "Ordered branches, ids unique within the node",
					"items": objectSchema(map[string]any{
						"id":        stringSchema("Branch identifier"),
						"label":     stringSchema("Branch label"),
						"condition": stringSchema("Branch condition"),
					}, "id"),
				},
			}),
		},
		{
			nodeType:    models.NodeTypeAbTest,
			name:        "A/B test",
			description: "Splits recipients between two variants; exactly two outgoing edges",
			schema: objectSchema(map[string]any{
				"title": stringSchema("Test title"),
				"splitA": map[string]any{
					"type":        "number",
					"description": "Share of variant A in percent; variant B gets the rest",
					"minimum":     0,
					"maximum":     100,
				},
			}),
		},
		{
			nodeType:    models.NodeTypeAction,
			name:        "Action",
			description: "Terminal step that performs an action",
			schema: objectSchema(map[string]any{
				"actionType": stringSchema("Action to perform, e.g. sendEmail"),
				"payload":    stringSchema("Action payload, usually serialized JSON"),
			}),
		},
		{
			nodeType:    models.NodeTypeLlmText,
			name:        "AI text",
			description: "Generates or transforms campaign copy with a language model",
			schema: objectSchema(map[string]any{
				"title":  stringSchema("Title"),
				"prompt": stringSchema("Prompt sent to the model"),
				"mode": map[string]any{
					"type": "string",
					"enum": []string{models.LlmModeGenerate, models.LlmModeTransform},
				},
				"model": stringSchema("Model name"),
				"temperature": map[string]any{
					"type":        "number",
					"description": "Sampling temperature, clamped to [0, 1.5]",
				},
				"maxTokens": map[string]any{
					"type":    "integer",
					"minimum": 1,
				},
				"variables": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"autoReplaceInput": map[string]any{"type": "boolean"},
			}),
		},
	}

	catalog := make([]protocol.NodeFactory, 0, len(entries))
	for _, entry := range entries {
		entry.factory = factory
		catalog = append(catalog, entry)
	}

	return catalog
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func stringSchema(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

func dateSchema(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"pattern":     `^(\d{4}-\d{2}-\d{2})?$`,
	}
}

func conditionsSchema() map[string]any {
	return map[string]any{
		"type":        "array",
		"description": "Ordered list of conditions",
		"items": objectSchema(map[string]any{
			"field": stringSchema("Profile field"),
			"operator": map[string]any{
				"type": "string",
				"enum": []string{
					models.OperatorEquals,
					models.OperatorContains,
					models.OperatorStartsWith,
					models.OperatorGt,
					models.OperatorLt,
					models.OperatorExists,
				},
			},
			"value": stringSchema("Compared value"),
		}, "field", "operator"),
	}
}
