// Package persistence provides the storage abstraction for campaign flows.
package persistence

import (
	"context"

	"github.com/dukex/campaignflow/pkg/models"
)

// Persistence stores campaign flows as an ordered collection keyed by id.
//
// CampaignByID returns nil, nil when the campaign does not exist. SaveCampaign replaces an
// existing campaign in place and appends new ones. DeleteCampaign and RenameCampaign are
// no-ops for unknown ids. A corrupt stored collection reads as empty.
//
// UpdateCampaign loads one campaign, applies mutate to it and stores the result as a single
// step with respect to every other writer. It returns ErrCampaignNotFound for unknown ids and
// mutate's own error unchanged; nothing is written in either case. Backends that retry on
// conflict may call mutate more than once, each time with freshly loaded state.
type Persistence interface {
	Campaigns(ctx context.Context) ([]*models.CampaignFlow, error)
	CampaignByID(ctx context.Context, id string) (*models.CampaignFlow, error)
	SaveCampaign(ctx context.Context, flow *models.CampaignFlow) error
	DeleteCampaign(ctx context.Context, id string) error
	RenameCampaign(ctx context.Context, id, name string) error
	UpdateCampaign(
		ctx context.Context,
		id string,
		mutate func(flow *models.CampaignFlow) error,
	) (*models.CampaignFlow, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
