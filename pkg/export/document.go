package export

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// flowDocumentSchema checks the shape of an uploaded campaign document. Node payloads are
// not checked here; they decode leniently and are validated per type on update.
var flowDocumentSchema = gojsonschema.NewGoLoader(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":   map[string]any{"type": "string"},
		"name": map[string]any{"type": "string"},
		"nodes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"id", "type"},
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"type": map[string]any{"type": "string"},
					"position": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"x": map[string]any{"type": "number"},
							"y": map[string]any{"type": "number"},
						},
					},
				},
			},
		},
		"edges": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"source", "target"},
				"properties": map[string]any{
					"id":           map[string]any{"type": "string"},
					"source":       map[string]any{"type": "string", "minLength": 1},
					"target":       map[string]any{"type": "string", "minLength": 1},
					"sourceHandle": map[string]any{"type": []string{"string", "null"}},
					"targetHandle": map[string]any{"type": []string{"string", "null"}},
				},
			},
		},
	},
})

var compiledFlowSchema = mustCompile(flowDocumentSchema)

func mustCompile(loader gojsonschema.JSONLoader) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		panic(fmt.Errorf("invalid campaign document schema: %w", err))
	}

	return schema
}

// Decode checks body against the campaign document schema and decodes it. The returned
// violations are meant for the client; err is set when body is not JSON at all.
func Decode(body []byte) (*models.CampaignFlow, []string, error) {
	result, err := compiledFlowSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			violations = append(violations, resultErr.String())
		}

		return nil, violations, nil
	}

	var flow models.CampaignFlow

	err = json.Unmarshal(body, &flow)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid campaign document: %w", err)
	}

	return &flow, nil, nil
}
