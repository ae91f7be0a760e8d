// Package postgresql provides PostgreSQL persistence for campaign flows.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/persistence"
	"github.com/dukex/campaignflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	campaignRepo *CampaignRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Run migrations on initialization
	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return NewFromDB(logger, database), nil
}

// NewFromDB wraps an already migrated database handle.
func NewFromDB(logger *slog.Logger, database *sql.DB) *Persistence {
	return &Persistence{
		db:           database,
		logger:       logger,
		campaignRepo: NewCampaignRepository(database, logger),
	}
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Campaigns returns all campaigns in insertion order.
func (p *Persistence) Campaigns(ctx context.Context) ([]*models.CampaignFlow, error) {
	return p.campaignRepo.GetAll(ctx)
}

// CampaignByID returns a campaign by its ID.
func (p *Persistence) CampaignByID(ctx context.Context, id string) (*models.CampaignFlow, error) {
	return p.campaignRepo.GetByID(ctx, id)
}

// SaveCampaign inserts or updates a campaign.
func (p *Persistence) SaveCampaign(ctx context.Context, flow *models.CampaignFlow) error {
	err := persistence.ValidateForSave(flow)
	if err != nil {
		return err
	}

	return p.campaignRepo.Save(ctx, flow)
}

// DeleteCampaign removes a campaign.
func (p *Persistence) DeleteCampaign(ctx context.Context, id string) error {
	return p.campaignRepo.Delete(ctx, id)
}

// RenameCampaign changes a campaign name.
func (p *Persistence) RenameCampaign(ctx context.Context, id, name string) error {
	return p.campaignRepo.Rename(ctx, id, name)
}

// UpdateCampaign applies mutate under a row lock.
func (p *Persistence) UpdateCampaign(
	ctx context.Context,
	id string,
	mutate func(flow *models.CampaignFlow) error,
) (*models.CampaignFlow, error) {
	return p.campaignRepo.Update(ctx, id, mutate)
}
