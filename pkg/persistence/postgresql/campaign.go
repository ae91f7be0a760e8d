package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/persistence"
)

// CampaignRepository handles campaign-related database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// GetAll returns all campaigns ordered by first insertion.
func (r *CampaignRepository) GetAll(ctx context.Context) ([]*models.CampaignFlow, error) {
	query := `
		SELECT
			id
		  , name
		  , nodes
		  , edges
		FROM campaigns
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	defer func(ctx context.Context, r *CampaignRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	campaigns := make([]*models.CampaignFlow, 0)

	for rows.Next() {
		flow, err := r.scanCampaign(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, flow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// GetByID returns the campaign with the given id, or nil when it does not exist.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.CampaignFlow, error) {
	query := `
		SELECT
			id
		  , name
		  , nodes
		  , edges
		FROM campaigns
		WHERE id = $1
	`

	flow, err := r.scanCampaign(ctx, r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	return flow, nil
}

// Save upserts a campaign. Updates keep the original list position.
func (r *CampaignRepository) Save(ctx context.Context, flow *models.CampaignFlow) error {
	nodesJSON, edgesJSON, err := encodeGraph(flow.Snapshot())
	if err != nil {
		return persistence.NewCampaignError("Save", flow.ID, err)
	}

	query := `
		INSERT INTO campaigns (id, name, nodes, edges)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query, flow.ID, flow.Name, nodesJSON, edgesJSON)
	if err != nil {
		return persistence.NewCampaignError("Save", flow.ID, err)
	}

	return nil
}

// Update locks the campaign row for the length of a transaction, applies mutate and writes
// the result back.
func (r *CampaignRepository) Update(
	ctx context.Context,
	id string,
	mutate func(flow *models.CampaignFlow) error,
) (*models.CampaignFlow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewCampaignError("Update", id, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		err := tx.Rollback()
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", err)
		}
	}()

	query := `
		SELECT
			id
		  , name
		  , nodes
		  , edges
		FROM campaigns
		WHERE id = $1
		FOR UPDATE
	`

	flow, err := r.scanCampaign(ctx, tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, persistence.NewCampaignError("Update", id, fmt.Errorf("failed to scan campaign: %w", err))
	}

	err = mutate(flow)
	if err != nil {
		return nil, err
	}

	flow.ID = id

	nodesJSON, edgesJSON, err := encodeGraph(flow)
	if err != nil {
		return nil, persistence.NewCampaignError("Update", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE campaigns SET name = $2, nodes = $3, edges = $4, updated_at = NOW() WHERE id = $1`,
		id, flow.Name, nodesJSON, edgesJSON)
	if err != nil {
		return nil, persistence.NewCampaignError("Update", id, err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, persistence.NewCampaignError("Update", id, fmt.Errorf("failed to commit: %w", err))
	}

	return flow, nil
}

// Delete removes a campaign. Deleting a missing campaign is not an error.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return persistence.NewCampaignError("Delete", id, err)
	}

	return nil
}

// Rename changes a campaign name. Renaming a missing campaign is not an error.
func (r *CampaignRepository) Rename(ctx context.Context, id, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE campaigns SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
	if err != nil {
		return persistence.NewCampaignError("Rename", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewCampaignError("Rename", id, err)
	}

	if rowsAffected == 0 {
		r.logger.DebugContext(ctx, "Rename skipped, campaign not found", "campaign_id", id)
	}

	return nil
}

// scanCampaign reads one row. Graph columns that do not decode are logged and read as empty.
func (r *CampaignRepository) scanCampaign(ctx context.Context, row rowScanner) (*models.CampaignFlow, error) {
	var (
		flow      models.CampaignFlow
		nodesJSON []byte
		edgesJSON []byte
	)

	err := row.Scan(&flow.ID, &flow.Name, &nodesJSON, &edgesJSON)
	if err != nil {
		return nil, err
	}

	flow.Nodes = decodeColumn[*models.Node](ctx, r.logger, flow.ID, "nodes", nodesJSON)
	flow.Edges = decodeColumn[*models.Edge](ctx, r.logger, flow.ID, "edges", edgesJSON)

	return &flow, nil
}

func decodeColumn[T any](ctx context.Context, logger *slog.Logger, id, column string, data []byte) []T {
	items := make([]T, 0)
	if len(data) == 0 {
		return items
	}

	err := json.Unmarshal(data, &items)
	if err != nil {
		logger.WarnContext(ctx, "Unreadable campaign column, treating as empty",
			"campaign_id", id, "column", column, "error", err)

		return make([]T, 0)
	}

	if items == nil {
		return make([]T, 0)
	}

	return items
}

func encodeGraph(flow *models.CampaignFlow) ([]byte, []byte, error) {
	nodesJSON, err := json.Marshal(flow.Nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(flow.Edges)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal edges: %w", err)
	}

	return nodesJSON, edgesJSON, nil
}
