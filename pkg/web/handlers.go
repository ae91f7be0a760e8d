package web

import (
	"net/http"
	"time"

	"github.com/dukex/campaignflow/pkg/export"
	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/registry"
	"github.com/dukex/campaignflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	campaignService *services.Campaign
	nodeService     *services.Node
	validator       *validator.Validate
	registry        *registry.Registry
}

func NewAPIHandlers(
	campaignService *services.Campaign,
	nodeService *services.Node,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		campaignService: campaignService,
		nodeService:     nodeService,
		validator:       validator,
		registry:        registry,
	}
}

// RegisterRoutes mounts every campaign, node and node type endpoint on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Post("/validate", h.ValidateDocument)

	nodeTypes := router.Group("/node-types")
	nodeTypes.Get("/", h.GetNodeTypes)
	nodeTypes.Get("/:type/default", h.GetNodeTypeDefault)

	campaigns := router.Group("/campaigns")
	campaigns.Get("/", h.GetCampaigns)
	campaigns.Post("/", h.CreateCampaign)
	campaigns.Get("/:id", h.GetCampaign)
	campaigns.Put("/:id", h.SaveCampaign)
	campaigns.Patch("/:id", h.RenameCampaign)
	campaigns.Delete("/:id", h.DeleteCampaign)
	campaigns.Post("/:id/validate", h.ValidateCampaign)
	campaigns.Get("/:id/export", h.ExportCampaign)

	campaigns.Post("/:id/nodes", h.AddNode)
	campaigns.Patch("/:id/nodes/:nodeId", h.UpdateNode)
	campaigns.Delete("/:id/nodes/:nodeId", h.DeleteNode)
	campaigns.Post("/:id/edges", h.Connect)
	campaigns.Delete("/:id/edges/:edgeId", h.DeleteEdge)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := "Registry is healthy", true
	if err := h.registry.HealthCheck(); err != nil {
		registryCheck, regOk = "Registry is unhealthy: "+err.Error(), false
	}

	repositoryCheck, repOk := h.campaignService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Campaignflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Campaignflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetCampaigns(c fiber.Ctx) error {
	campaigns, err := h.campaignService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaigns)
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	campaign, err := h.campaignService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaign)
}

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	var req CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.campaignService.Create(c.Context(), req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// SaveCampaign stores a full campaign document under the id from the path.
func (h *APIHandlers) SaveCampaign(c fiber.Ctx) error {
	flow, err := h.decodeFlow(c)
	if flow == nil {
		return err
	}

	flow.ID = c.Params("id")

	saved, err := h.campaignService.Save(c.Context(), flow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) RenameCampaign(c fiber.Ctx) error {
	var req RenameCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	renamed, err := h.campaignService.Rename(c.Context(), c.Params("id"), req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(renamed)
}

func (h *APIHandlers) DeleteCampaign(c fiber.Ctx) error {
	err := h.campaignService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateCampaign validates a stored campaign. An invalid flow is a 200 with valid=false.
func (h *APIHandlers) ValidateCampaign(c fiber.Ctx) error {
	result, err := h.campaignService.Validate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// ValidateDocument validates an unsaved campaign document sent in the body.
func (h *APIHandlers) ValidateDocument(c fiber.Ctx) error {
	flow, err := h.decodeFlow(c)
	if flow == nil {
		return err
	}

	return c.JSON(h.campaignService.ValidateFlow(c.Context(), flow))
}

func (h *APIHandlers) ExportCampaign(c fiber.Ctx) error {
	filename, data, err := h.campaignService.Export(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)

	return c.Send(data)
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	available := h.registry.GetAvailableNodes()

	response := make([]NodeTypeResponse, 0, len(available))
	for _, factory := range available {
		response = append(response, NodeTypeResponse{
			Type:        factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetNodeTypeDefault(c fiber.Ctx) error {
	nodeType := models.NodeType(c.Params("type"))

	data, err := h.registry.CreateDefaultData(nodeType)
	if err != nil {
		return notFound(c, "node_type_not_found", "node type not found: "+string(nodeType))
	}

	return c.JSON(data)
}

func (h *APIHandlers) AddNode(c fiber.Ctx) error {
	var req AddNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.nodeService.AddNode(c.Context(), c.Params("id"), req.Type, req.Position)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

// UpdateNode applies a new payload and/or position to a node.
func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	campaignID, nodeID := c.Params("id"), c.Params("nodeId")

	var (
		node *models.Node
		err  error
	)

	if len(req.Data) > 0 {
		node, err = h.nodeService.UpdateNodeData(c.Context(), campaignID, nodeID, req.Data)
		if err != nil {
			return handleServiceError(c, err)
		}
	}

	if req.Position != nil {
		node, err = h.nodeService.MoveNode(c.Context(), campaignID, nodeID, *req.Position)
		if err != nil {
			return handleServiceError(c, err)
		}
	}

	return c.JSON(node)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	err := h.nodeService.DeleteNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Connect(c fiber.Ctx) error {
	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	edge, err := h.nodeService.Connect(c.Context(), c.Params("id"), services.Connection{
		Source:       req.Source,
		SourceHandle: req.SourceHandle,
		Target:       req.Target,
		TargetHandle: req.TargetHandle,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	err := h.nodeService.DeleteEdge(c.Context(), c.Params("id"), c.Params("edgeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// decodeFlow returns nil and the already written error response when the body is rejected.
func (h *APIHandlers) decodeFlow(c fiber.Ctx) (*models.CampaignFlow, error) {
	flow, violations, err := export.Decode(c.Body())
	if err != nil {
		return nil, badRequest(c, err.Error())
	}

	if len(violations) > 0 {
		return nil, badRequest(c, violationsDetail(violations))
	}

	if err := h.validator.Struct(flow); err != nil {
		return nil, badRequest(c, err.Error())
	}

	return flow, nil
}
