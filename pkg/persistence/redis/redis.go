// Package redis provides Redis persistence for campaign flows. The whole collection is
// kept as one JSON array under a single key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

// DefaultKey is the key holding the campaign collection.
const DefaultKey = "campaigns"

// maxUpdateAttempts bounds the optimistic retries. A writer only loses a round when another
// writer committed, so this is also the number of concurrent writers served without error.
const maxUpdateAttempts = 64

// Persistence implements persistence.Persistence on top of a Redis string key.
type Persistence struct {
	client *backend.Client
	logger *slog.Logger
	key    string
}

type Option func(*Persistence)

// WithKey overrides the key holding the collection.
func WithKey(key string) Option {
	return func(p *Persistence) {
		p.key = key
	}
}

// NewPersistence connects to the Redis server at redisURL (redis:// or rediss://).
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string, opts ...Option) (*Persistence, error) {
	options, err := backend.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := backend.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewFromClient(logger, client, opts...), nil
}

// NewFromClient creates a persistence from an existing client.
func NewFromClient(logger *slog.Logger, client *backend.Client, opts ...Option) *Persistence {
	p := &Persistence{
		client: client,
		logger: logger,
		key:    DefaultKey,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Close closes the client connection.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Campaigns returns every stored campaign in insertion order.
func (p *Persistence) Campaigns(ctx context.Context) ([]*models.CampaignFlow, error) {
	return p.load(ctx, p.client)
}

// CampaignByID returns the campaign with the given id, or nil when it does not exist.
func (p *Persistence) CampaignByID(ctx context.Context, id string) (*models.CampaignFlow, error) {
	campaigns, err := p.load(ctx, p.client)
	if err != nil {
		return nil, err
	}

	return campaigns.Find(id), nil
}

// SaveCampaign replaces the campaign with the same id or appends a new one.
func (p *Persistence) SaveCampaign(ctx context.Context, flow *models.CampaignFlow) error {
	err := persistence.ValidateForSave(flow)
	if err != nil {
		return err
	}

	snapshot := flow.Snapshot()

	return p.update(ctx, "Save", flow.ID, func(campaigns persistence.Collection) (persistence.Collection, bool) {
		return campaigns.Upsert(snapshot), true
	})
}

// DeleteCampaign removes the campaign with the given id.
func (p *Persistence) DeleteCampaign(ctx context.Context, id string) error {
	return p.update(ctx, "Delete", id, func(campaigns persistence.Collection) (persistence.Collection, bool) {
		return campaigns.Remove(id)
	})
}

// RenameCampaign changes the name of the campaign with the given id.
func (p *Persistence) RenameCampaign(ctx context.Context, id, name string) error {
	return p.update(ctx, "Rename", id, func(campaigns persistence.Collection) (persistence.Collection, bool) {
		return campaigns, campaigns.Rename(id, name)
	})
}

// UpdateCampaign applies mutate inside the optimistic transaction. On a conflict mutate runs
// again against the newly stored state.
func (p *Persistence) UpdateCampaign(
	ctx context.Context,
	id string,
	mutate func(flow *models.CampaignFlow) error,
) (*models.CampaignFlow, error) {
	var (
		updated   *models.CampaignFlow
		mutateErr error
	)

	err := p.update(ctx, "Update", id, func(campaigns persistence.Collection) (persistence.Collection, bool) {
		campaigns, updated, mutateErr = campaigns.Apply(id, mutate)

		return campaigns, mutateErr == nil
	})
	if err != nil {
		return nil, err
	}

	if mutateErr != nil {
		return nil, mutateErr
	}

	return updated, nil
}

func (p *Persistence) load(ctx context.Context, cmd backend.Cmdable) (persistence.Collection, error) {
	data, err := cmd.Get(ctx, p.key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return persistence.Collection{}, nil
		}

		return nil, fmt.Errorf("failed to read campaigns: %w", err)
	}

	return persistence.DecodeCollection(p.logger, data), nil
}

// update runs an optimistic WATCH/MULTI read-modify-write, retrying when another writer
// touched the key in between.
func (p *Persistence) update(
	ctx context.Context,
	op, id string,
	mutate func(persistence.Collection) (persistence.Collection, bool),
) error {
	txf := func(tx *backend.Tx) error {
		campaigns, err := p.load(ctx, tx)
		if err != nil {
			return err
		}

		campaigns, changed := mutate(campaigns)
		if !changed {
			return nil
		}

		data, err := campaigns.Encode()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, p.key, data, 0)

			return nil
		})

		return err
	}

	for attempt := range maxUpdateAttempts {
		err := p.client.Watch(ctx, txf, p.key)
		if err == nil {
			return nil
		}

		if !errors.Is(err, backend.TxFailedErr) {
			return persistence.NewCampaignError(op, id, err)
		}

		p.logger.DebugContext(ctx, "Campaign update conflicted, retrying", "op", op, "attempt", attempt+1)
	}

	return persistence.NewCampaignError(op, id, persistence.ErrConcurrentUpdate)
}
