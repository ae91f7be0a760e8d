package export

import (
	"testing"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	body := []byte(`{
		"id": "c1",
		"name": "Imported",
		"nodes": [
			{"id": "start", "type": "campaignStart", "position": {"x": 1, "y": 2}, "data": {"name": "Event"}},
			{"id": "ext", "type": "webhook", "position": {"x": 0, "y": 0}, "data": {"url": "https://example.com"}}
		],
		"edges": [{"id": "e1", "source": "start", "target": "ext", "sourceHandle": null}]
	}`)

	flow, violations, err := Decode(body)
	require.NoError(t, err)
	require.Empty(t, violations)

	assert.Equal(t, "c1", flow.ID)
	require.Len(t, flow.Nodes, 2)
	assert.Equal(t, models.CampaignStartData{Name: "Event"}, flow.Nodes[0].Data)
	assert.Equal(t, models.NodeType("webhook"), flow.Nodes[1].Type)
	require.Len(t, flow.Edges, 1)
	assert.Nil(t, flow.Edges[0].SourceHandle)
}

func TestDecode_Violations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array root", `[]`},
		{"node without type", `{"nodes":[{"id":"a"}]}`},
		{"empty node id", `{"nodes":[{"id":"","type":"action"}]}`},
		{"edge without source", `{"edges":[{"target":"a"}]}`},
		{"position not numeric", `{"nodes":[{"id":"a","type":"action","position":{"x":"1"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, violations, err := Decode([]byte(tt.body))
			require.NoError(t, err)
			assert.Nil(t, flow)
			assert.NotEmpty(t, violations)
		})
	}
}

func TestDecode_NotJSON(t *testing.T) {
	_, _, err := Decode([]byte(`{"nodes": [`))
	assert.Error(t, err)
}

func TestDecode_MinimalDocument(t *testing.T) {
	flow, violations, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	require.Empty(t, violations)
	assert.Empty(t, flow.Nodes)
	assert.Empty(t, flow.Edges)
}
