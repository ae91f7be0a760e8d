package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/persistence/file"
	"github.com/dukex/campaignflow/pkg/registry"
	"github.com/dukex/campaignflow/pkg/services"
	"github.com/dukex/campaignflow/pkg/testutil"
	"github.com/dukex/campaignflow/pkg/validation"
	"github.com/dukex/campaignflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *services.Campaign) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	persistence := file.NewPersistence(logger, t.TempDir())
	campaignService := services.NewCampaign(persistence, services.WithLogger(logger))

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	nodeService := services.NewNode(campaignService, reg, nil)
	handlers := web.NewAPIHandlers(campaignService, nodeService, validator.New(validator.WithRequiredStructEnabled()), reg)

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return app, campaignService
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewBuffer(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func seedCampaign(t *testing.T, service *services.Campaign, flow *models.CampaignFlow) {
	t.Helper()

	_, err := service.Save(t.Context(), flow)
	require.NoError(t, err)
}

func TestAPIHandlers_CreateCampaign(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedName   string
	}{
		{"with name", web.CreateCampaignRequest{Name: "Spring sale"}, http.StatusCreated, "Spring sale"},
		{"blank name", web.CreateCampaignRequest{Name: "  "}, http.StatusCreated, services.DefaultCampaignName},
		{"invalid JSON", "{not json", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := setupTestApp(t)

			resp, body := doRequest(t, app, http.MethodPost, "/campaigns", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus != http.StatusCreated {
				return
			}

			var created models.CampaignFlow

			require.NoError(t, json.Unmarshal(body, &created))
			assert.Equal(t, tt.expectedName, created.Name)
			assert.NotEmpty(t, created.ID)
			assert.Contains(t, string(body), `"nodes":[]`)
		})
	}
}

func TestAPIHandlers_GetCampaigns(t *testing.T) {
	app, service := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/campaigns", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	seedCampaign(t, service, testutil.CreateLinearFlow(testutil.WithFlowID("c1")))
	seedCampaign(t, service, testutil.CreateLinearFlow(testutil.WithFlowID("c2")))

	resp, body = doRequest(t, app, http.MethodGet, "/campaigns", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var campaigns []models.CampaignFlow

	require.NoError(t, json.Unmarshal(body, &campaigns))
	require.Len(t, campaigns, 2)
	assert.Equal(t, "c1", campaigns[0].ID)
	assert.Equal(t, "c2", campaigns[1].ID)
}

func TestAPIHandlers_GetCampaign(t *testing.T) {
	app, service := setupTestApp(t)
	seedCampaign(t, service, testutil.CreateLinearFlow(testutil.WithFlowID("c1"), testutil.WithFlowName("Launch")))

	resp, body := doRequest(t, app, http.MethodGet, "/campaigns/c1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"Launch"`)

	resp, body = doRequest(t, app, http.MethodGet, "/campaigns/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "campaign_not_found")
}

func TestAPIHandlers_SaveCampaign(t *testing.T) {
	app, service := setupTestApp(t)

	document := `{
		"id": "ignored",
		"name": "  Imported ",
		"nodes": [
			{"id": "start", "type": "campaignStart", "position": {"x": 0, "y": 0}, "data": {"name": "Event"}},
			{"id": "send", "type": "action", "position": {"x": 10, "y": 20}, "data": {"actionType": "sendEmail"}}
		],
		"edges": [{"id": "e1", "source": "start", "target": "send"}]
	}`

	resp, body := doRequest(t, app, http.MethodPut, "/campaigns/c1", document)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	stored, err := service.FetchByID(t.Context(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Imported", stored.Name)
	assert.Len(t, stored.Nodes, 2)
	assert.Len(t, stored.Edges, 1)

	_, err = service.FetchByID(t.Context(), "ignored")
	require.ErrorIs(t, err, services.ErrCampaignNotFound)
}

func TestAPIHandlers_SaveCampaignRejectsMalformedDocument(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{"not JSON", `nodes: []`},
		{"array root", `[]`},
		{"node without id", `{"nodes":[{"type":"action"}],"edges":[]}`},
		{"edge without target", `{"nodes":[],"edges":[{"source":"a"}]}`},
		{"nodes not an array", `{"nodes":{"id":"a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := setupTestApp(t)

			resp, body := doRequest(t, app, http.MethodPut, "/campaigns/c1", tt.document)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), "validation_error")
		})
	}
}

func TestAPIHandlers_RenameAndDeleteCampaign(t *testing.T) {
	app, service := setupTestApp(t)
	seedCampaign(t, service, testutil.CreateLinearFlow(testutil.WithFlowID("c1")))

	resp, body := doRequest(t, app, http.MethodPatch, "/campaigns/c1", web.RenameCampaignRequest{Name: "Renamed"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"Renamed"`)

	resp, _ = doRequest(t, app, http.MethodPatch, "/campaigns/c1", web.RenameCampaignRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodDelete, "/campaigns/c1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodDelete, "/campaigns/c1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ValidateCampaign(t *testing.T) {
	app, service := setupTestApp(t)

	seedCampaign(t, service, testutil.CreateLinearFlow(testutil.WithFlowID("valid")))
	seedCampaign(t, service, testutil.CreateTestFlow(
		testutil.WithFlowID("invalid"),
		testutil.WithNodes(testutil.CreateTestNode("split", models.NodeTypeAbTest)),
	))

	resp, body := doRequest(t, app, http.MethodPost, "/campaigns/valid/validate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"valid":true,"errors":[]}`, string(body))

	resp, body = doRequest(t, app, http.MethodPost, "/campaigns/invalid/validate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "an invalid flow is not an HTTP error")

	var result validation.Result

	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		validation.MsgMissingStart,
		validation.MsgMissingIncoming(models.NodeTypeAbTest),
		validation.MsgAbTestFanOut,
	}, result.Messages())

	resp, _ = doRequest(t, app, http.MethodPost, "/campaigns/missing/validate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ValidateDocument(t *testing.T) {
	app, service := setupTestApp(t)

	document := `{"id":"draft","name":"Draft","nodes":[
		{"id":"s1","type":"campaignStart","position":{"x":0,"y":0},"data":{}},
		{"id":"s2","type":"campaignStart","position":{"x":0,"y":0},"data":{}}
	],"edges":[]}`

	resp, body := doRequest(t, app, http.MethodPost, "/validate", document)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result validation.Result

	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "s1", result.Errors[0].NodeID)
	assert.Equal(t, "s2", result.Errors[1].NodeID)

	campaigns, err := service.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, campaigns, "validating a document must not store it")

	resp, _ = doRequest(t, app, http.MethodPost, "/validate", `{"nodes":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_ExportCampaign(t *testing.T) {
	app, service := setupTestApp(t)
	seedCampaign(t, service, testutil.CreateLinearFlow(testutil.WithFlowID("c1"), testutil.WithFlowName("Spring Sale")))

	resp, body := doRequest(t, app, http.MethodGet, "/campaigns/c1/export", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `spring-sale-c1.json`)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Contains(t, string(body), "\n  \"id\": \"c1\"")
}

func TestAPIHandlers_NodeTypes(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/node-types", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var nodeTypes []web.NodeTypeResponse

	require.NoError(t, json.Unmarshal(body, &nodeTypes))
	require.Len(t, nodeTypes, len(models.AllNodeTypes()))

	for i, nodeType := range models.AllNodeTypes() {
		assert.Equal(t, nodeType, nodeTypes[i].Type)
		assert.NotEmpty(t, nodeTypes[i].Schema)
	}

	resp, body = doRequest(t, app, http.MethodGet, "/node-types/abTest/default", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"title":"Headline test","splitA":50}`, string(body))

	resp, _ = doRequest(t, app, http.MethodGet, "/node-types/webhook/default", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_NodeEditing(t *testing.T) {
	app, service := setupTestApp(t)
	seedCampaign(t, service, testutil.CreateTestFlow(testutil.WithFlowID("c1")))

	resp, body := doRequest(t, app, http.MethodPost, "/campaigns/c1/nodes", web.AddNodeRequest{Type: models.NodeTypeCampaignStart})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var start models.Node

	require.NoError(t, json.Unmarshal(body, &start))
	assert.Equal(t, models.Position{X: 200, Y: 140}, start.Position)

	resp, body = doRequest(t, app, http.MethodPost, "/campaigns/c1/nodes", web.AddNodeRequest{
		Type:     models.NodeTypeAbTest,
		Position: &models.Position{X: 50, Y: 60},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var split models.Node

	require.NoError(t, json.Unmarshal(body, &split))

	resp, body = doRequest(t, app, http.MethodPatch, "/campaigns/c1/nodes/"+split.ID, map[string]any{
		"data":     map[string]any{"title": "Subject", "splitA": 30},
		"position": map[string]any{"x": 1, "y": 2},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"splitA":30`)
	assert.Contains(t, string(body), `"position":{"x":1,"y":2}`)

	resp, _ = doRequest(t, app, http.MethodPatch, "/campaigns/c1/nodes/"+split.ID, map[string]any{
		"data": map[string]any{"splitA": 101},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPatch, "/campaigns/c1/nodes/"+split.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodPost, "/campaigns/c1/edges", web.ConnectRequest{Source: start.ID, Target: split.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var edge models.Edge

	require.NoError(t, json.Unmarshal(body, &edge))
	assert.Equal(t, "reactflow__edge-"+start.ID+"-"+split.ID, edge.ID)

	resp, _ = doRequest(t, app, http.MethodPost, "/campaigns/c1/edges", web.ConnectRequest{Source: start.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodDelete, "/campaigns/c1/edges/"+edge.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodDelete, "/campaigns/c1/edges/"+edge.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "edge_not_found")

	resp, _ = doRequest(t, app, http.MethodDelete, "/campaigns/c1/nodes/"+split.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodDelete, "/campaigns/c1/nodes/"+split.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "node_not_found")
}

func TestAPIHandlers_AddNodeUnknownType(t *testing.T) {
	app, service := setupTestApp(t)
	seedCampaign(t, service, testutil.CreateTestFlow(testutil.WithFlowID("c1")))

	resp, _ := doRequest(t, app, http.MethodPost, "/campaigns/c1/nodes", web.AddNodeRequest{Type: "webhook"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPost, "/campaigns/missing/nodes", web.AddNodeRequest{Type: models.NodeTypeAction})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any

	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}
