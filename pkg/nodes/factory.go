// Package nodes provides the node factory: default payloads and fresh node construction
// for every campaign node type.
package nodes

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/google/uuid"
)

// ErrUnknownNodeType is returned when a factory is asked for a type outside the closed set.
var ErrUnknownNodeType = errors.New("unknown node type")

// Fallback placement used when the caller supplies no position.
const (
	fallbackOriginX = 200
	fallbackOriginY = 140
	fallbackStep    = 18
)

// Factory builds nodes with default payloads.
type Factory struct {
	now   func() time.Time
	newID func() string
}

// Option configures a Factory.
type Option func(*Factory)

// WithClock overrides the clock used for date defaults.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		f.now = now
	}
}

// WithIDGenerator overrides node id generation.
func WithIDGenerator(newID func() string) Option {
	return func(f *Factory) {
		f.newID = newID
	}
}

// NewFactory creates a factory with random UUID ids and the system clock.
func NewFactory(opts ...Option) *Factory {
	factory := &Factory{
		now:   time.Now,
		newID: NewNodeID,
	}

	for _, opt := range opts {
		opt(factory)
	}

	return factory
}

var defaultFactory = NewFactory()

// CreateDefaultData returns the canonical payload of a newly created node of type t.
func CreateDefaultData(t models.NodeType) (models.NodeData, error) {
	return defaultFactory.CreateDefaultData(t)
}

// BuildNode creates a node of type t at pos with a fresh id and default payload.
func BuildNode(t models.NodeType, pos models.Position) (*models.Node, error) {
	return defaultFactory.BuildNode(t, pos)
}

// CreateDefaultData returns the canonical payload of a newly created node of type t.
func (f *Factory) CreateDefaultData(t models.NodeType) (models.NodeData, error) {
	switch t {
	case models.NodeTypeCampaignStart:
		return models.CampaignStartData{
			Name:        "Event",
			Description: "Entry point",
			TriggerType: "immediate",
		}, nil
	case models.NodeTypeCampaignMeta:
		return models.CampaignMetaData{
			CampaignID: "cmp-001",
			Budget:     10000,
			StartDate:  f.now().UTC().Format(time.DateOnly),
			EndDate:    "",
		}, nil
	case models.NodeTypeCampaignType:
		return models.CampaignTypeData{
			PlacementType: models.PlacementEmail,
			PlacementOptions: []models.KeyValue{
				{Key: "Channel", Value: "Email"},
				{Key: "Cadence", Value: "Weekly"},
			},
		}, nil
	case models.NodeTypeAudienceSegment:
		return models.AudienceSegmentData{
			Conditions: []models.Condition{
				{Field: "country", Operator: models.OperatorEquals, Value: "RU"},
			},
		}, nil
	case models.NodeTypeFilter:
		return models.FilterData{
			Conditions: []models.Condition{
				{Field: "status", Operator: models.OperatorEquals, Value: "active"},
			},
		}, nil
	case models.NodeTypeFunnelSplit:
		return models.FunnelSplitData{
			Attribute: "device",
			Branches: []models.Branch{
				{ID: "branch-a", Label: "Mobile", Condition: "device = mobile"},
				{ID: "branch-b", Label: "Desktop", Condition: "device = desktop"},
			},
		}, nil
	case models.NodeTypeAbTest:
		return models.AbTestData{
			Title:  "Headline test",
			SplitA: 50,
		}, nil
	case models.NodeTypeAction:
		return models.ActionData{
			ActionType: "sendEmail",
			Payload:    `{"templateId":"tmpl-001"}`,
		}, nil
	case models.NodeTypeLlmText:
		return models.LlmTextData{
			Title:            "AI text",
			Prompt:           "Write a greeting for the campaign.",
			Mode:             models.LlmModeGenerate,
			Model:            "gpt-4.1",
			Temperature:      0.7,
			MaxTokens:        512,
			Variables:        []string{"product_name", "cta_url"},
			AutoReplaceInput: true,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
}

// BuildNode creates a node of type t at pos with a fresh id and default payload.
func (f *Factory) BuildNode(t models.NodeType, pos models.Position) (*models.Node, error) {
	data, err := f.CreateDefaultData(t)
	if err != nil {
		return nil, err
	}

	return &models.Node{
		ID:       f.newID(),
		Type:     t,
		Position: pos,
		Data:     data,
	}, nil
}

// FallbackPosition staggers new nodes diagonally based on how many nodes already exist.
func FallbackPosition(existing int) models.Position {
	offset := float64(existing * fallbackStep)

	return models.Position{
		X: fallbackOriginX + offset,
		Y: fallbackOriginY + offset,
	}
}

// NewNodeID returns a random UUID, falling back to a time-based token when the
// random source is unavailable.
func NewNodeID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("node-%d-%d", time.Now().UnixNano(), rand.IntN(10_000)) //nolint:gosec // uniqueness only
	}

	return id.String()
}
