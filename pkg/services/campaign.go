package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/campaignflow/pkg/eventbus"
	"github.com/dukex/campaignflow/pkg/events"
	"github.com/dukex/campaignflow/pkg/export"
	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/otelhelper"
	"github.com/dukex/campaignflow/pkg/persistence"
	"github.com/dukex/campaignflow/pkg/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCampaignName replaces blank campaign names on save.
const DefaultCampaignName = "Untitled campaign"

const tracerName = "github.com/dukex/campaignflow/pkg/services"

// Campaign handles campaign-level business operations.
type Campaign struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	newID       func() string
}

type CampaignOption func(*Campaign)

// WithPublisher publishes campaign lifecycle events. Without it no events are sent.
func WithPublisher(publisher eventbus.EventPublisher) CampaignOption {
	return func(c *Campaign) {
		c.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) CampaignOption {
	return func(c *Campaign) {
		c.tracer = tracer
	}
}

func WithLogger(logger *slog.Logger) CampaignOption {
	return func(c *Campaign) {
		c.logger = logger
	}
}

// WithCampaignIDGenerator overrides the uuid generator used for new campaigns.
func WithCampaignIDGenerator(newID func() string) CampaignOption {
	return func(c *Campaign) {
		c.newID = newID
	}
}

// NewCampaign creates a new campaign service.
func NewCampaign(persistence persistence.Persistence, opts ...CampaignOption) *Campaign {
	c := &Campaign{
		persistence: persistence,
		tracer:      otelhelper.Tracer(tracerName),
		logger:      slog.Default(),
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NormalizeName trims the name and falls back to DefaultCampaignName.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultCampaignName
	}

	return name
}

// HealthCheck checks the health of the persistence layer.
func (c *Campaign) HealthCheck(ctx context.Context) (string, bool) {
	if c.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := c.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every stored campaign in storage order.
func (c *Campaign) List(ctx context.Context) ([]*models.CampaignFlow, error) {
	campaigns, err := c.persistence.Campaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, nil
}

// FetchByID returns the campaign or ErrCampaignNotFound.
func (c *Campaign) FetchByID(ctx context.Context, id string) (*models.CampaignFlow, error) {
	flow, err := c.persistence.CampaignByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	if flow == nil {
		return nil, newNotFoundError("FetchByID", "CAMPAIGN_NOT_FOUND", id, ErrCampaignNotFound)
	}

	return flow, nil
}

// Create stores a new, empty campaign.
func (c *Campaign) Create(ctx context.Context, name string) (*models.CampaignFlow, error) {
	return c.Save(ctx, &models.CampaignFlow{
		ID:    c.newID(),
		Name:  name,
		Nodes: []*models.Node{},
		Edges: []*models.Edge{},
	})
}

// Save stores a snapshot of flow, replacing any campaign with the same id. A missing id
// gets a fresh one and a blank name becomes DefaultCampaignName. The stored snapshot is returned.
func (c *Campaign) Save(ctx context.Context, flow *models.CampaignFlow) (*models.CampaignFlow, error) {
	if flow == nil {
		return nil, NewValidationError("Save", "INVALID_REQUEST", "campaign cannot be nil", ErrInvalidRequest)
	}

	snapshot := flow.Snapshot()
	snapshot.Name = NormalizeName(snapshot.Name)

	if strings.TrimSpace(snapshot.ID) == "" {
		snapshot.ID = c.newID()
	}

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "campaign.save",
		otelhelper.CampaignAttributes(snapshot.ID, snapshot.Name, len(snapshot.Nodes), len(snapshot.Edges))...)
	defer span.End()

	err := c.persistence.SaveCampaign(ctx, snapshot)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	c.publish(ctx, snapshot.ID, events.CampaignSaved{
		BaseEvent: events.NewBaseEvent(events.CampaignSavedEvent, snapshot.ID),
		Name:      snapshot.Name,
		NodeCount: len(snapshot.Nodes),
		EdgeCount: len(snapshot.Edges),
	})

	return snapshot, nil
}

// Rename changes the name of an existing campaign.
func (c *Campaign) Rename(ctx context.Context, id, name string) (*models.CampaignFlow, error) {
	flow, err := c.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	flow.Name = NormalizeName(name)

	err = c.persistence.RenameCampaign(ctx, id, flow.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to rename campaign: %w", err)
	}

	c.publish(ctx, id, events.CampaignRenamed{
		BaseEvent: events.NewBaseEvent(events.CampaignRenamedEvent, id),
		Name:      flow.Name,
	})

	return flow, nil
}

// Delete removes an existing campaign.
func (c *Campaign) Delete(ctx context.Context, id string) error {
	_, err := c.FetchByID(ctx, id)
	if err != nil {
		return err
	}

	err = c.persistence.DeleteCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	c.publish(ctx, id, events.CampaignDeleted{
		BaseEvent: events.NewBaseEvent(events.CampaignDeletedEvent, id),
	})

	return nil
}

// Validate runs the flow validator on a stored campaign.
func (c *Campaign) Validate(ctx context.Context, id string) (validation.Result, error) {
	flow, err := c.FetchByID(ctx, id)
	if err != nil {
		return validation.Result{}, err
	}

	return c.ValidateFlow(ctx, flow), nil
}

// ValidateFlow validates a snapshot of flow. Findings are returned as data; flow is never modified.
func (c *Campaign) ValidateFlow(ctx context.Context, flow *models.CampaignFlow) validation.Result {
	snapshot := flow.Snapshot()

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "campaign.validate",
		otelhelper.CampaignAttributes(snapshot.ID, snapshot.Name, len(snapshot.Nodes), len(snapshot.Edges))...)
	defer span.End()

	result := validation.Validate(snapshot)

	span.SetAttributes(
		attribute.Bool(otelhelper.ValidKey, result.Valid),
		attribute.Int(otelhelper.ValidationErrorCount, len(result.Errors)),
	)

	c.publish(ctx, snapshot.ID, events.CampaignValidated{
		BaseEvent:  events.NewBaseEvent(events.CampaignValidatedEvent, snapshot.ID),
		Valid:      result.Valid,
		ErrorCount: len(result.Errors),
	})

	return result
}

// Export returns the download filename and the indented JSON document of a stored campaign.
func (c *Campaign) Export(ctx context.Context, id string) (string, []byte, error) {
	flow, err := c.FetchByID(ctx, id)
	if err != nil {
		return "", nil, err
	}

	data, err := export.Marshal(flow)
	if err != nil {
		return "", nil, fmt.Errorf("failed to export campaign: %w", err)
	}

	return export.Filename(flow), data, nil
}

// update applies mutate to a stored campaign in one atomic persistence step, so concurrent
// edits of the same campaign are never lost. Errors returned by mutate pass through unchanged.
func (c *Campaign) update(ctx context.Context, id string, mutate func(flow *models.CampaignFlow) error) error {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "campaign.update", attribute.String(otelhelper.CampaignIDKey, id))
	defer span.End()

	var mutateErr error

	flow, err := c.persistence.UpdateCampaign(ctx, id, func(flow *models.CampaignFlow) error {
		mutateErr = mutate(flow)
		if mutateErr != nil {
			return mutateErr
		}

		flow.Name = NormalizeName(flow.Name)

		return nil
	})
	if err != nil {
		switch {
		case mutateErr != nil && errors.Is(err, mutateErr):
			return err
		case persistence.IsCampaignNotFound(err):
			return newNotFoundError("update", "CAMPAIGN_NOT_FOUND", id, ErrCampaignNotFound)
		}

		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to save campaign: %w", err)
	}

	span.SetAttributes(otelhelper.CampaignAttributes(flow.ID, flow.Name, len(flow.Nodes), len(flow.Edges))...)

	c.publish(ctx, flow.ID, events.CampaignSaved{
		BaseEvent: events.NewBaseEvent(events.CampaignSavedEvent, flow.ID),
		Name:      flow.Name,
		NodeCount: len(flow.Nodes),
		EdgeCount: len(flow.Edges),
	})

	return nil
}

// publish is best effort; a failing bus never fails the operation.
func (c *Campaign) publish(ctx context.Context, key string, event eventbus.Event) {
	if c.publisher == nil {
		return
	}

	err := c.publisher.Publish(ctx, key, event)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "campaign_id", key, "error", err)
	}
}
