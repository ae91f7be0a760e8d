// Package file provides file-based persistence for campaign flows.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/dukex/campaignflow/pkg/persistence"
)

// DocumentName is the file, under the root directory, holding every campaign.
const DocumentName = "campaigns.json"

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(logger *slog.Logger, root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:   cleanRoot,
		logger: logger,
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory
// exists or can be created.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(fp.root, 0o750)
	if err != nil {
		return fmt.Errorf("campaign directory unavailable: %w", err)
	}

	return nil
}

// Campaigns returns every stored campaign in insertion order.
func (fp *Persistence) Campaigns(_ context.Context) ([]*models.CampaignFlow, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.load()
}

// CampaignByID returns the campaign with the given id, or nil when it does not exist.
func (fp *Persistence) CampaignByID(_ context.Context, id string) (*models.CampaignFlow, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	campaigns, err := fp.load()
	if err != nil {
		return nil, err
	}

	return campaigns.Find(id), nil
}

// SaveCampaign replaces the campaign with the same id or appends a new one.
func (fp *Persistence) SaveCampaign(_ context.Context, flow *models.CampaignFlow) error {
	err := persistence.ValidateForSave(flow)
	if err != nil {
		return err
	}

	return fp.update("Save", flow.ID, func(campaigns persistence.Collection) (persistence.Collection, bool) {
		return campaigns.Upsert(flow.Snapshot()), true
	})
}

// DeleteCampaign removes the campaign with the given id.
func (fp *Persistence) DeleteCampaign(_ context.Context, id string) error {
	return fp.update("Delete", id, func(campaigns persistence.Collection) (persistence.Collection, bool) {
		return campaigns.Remove(id)
	})
}

// RenameCampaign changes the name of the campaign with the given id.
func (fp *Persistence) RenameCampaign(_ context.Context, id, name string) error {
	return fp.update("Rename", id, func(campaigns persistence.Collection) (persistence.Collection, bool) {
		return campaigns, campaigns.Rename(id, name)
	})
}

// UpdateCampaign applies mutate to the stored campaign while holding the file lock.
func (fp *Persistence) UpdateCampaign(
	_ context.Context,
	id string,
	mutate func(flow *models.CampaignFlow) error,
) (*models.CampaignFlow, error) {
	var (
		updated   *models.CampaignFlow
		mutateErr error
	)

	err := fp.update("Update", id, func(campaigns persistence.Collection) (persistence.Collection, bool) {
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

func (fp *Persistence) documentPath() string {
	return filepath.Join(fp.root, DocumentName)
}

// load reads the document. A missing document is an empty collection; unreadable content
// degrades to empty as well. Only I/O failures are returned.
func (fp *Persistence) load() (persistence.Collection, error) {
	data, err := os.ReadFile(fp.documentPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return persistence.Collection{}, nil
		}

		return nil, fmt.Errorf("failed to read campaigns: %w", err)
	}

	return persistence.DecodeCollection(fp.logger, data), nil
}

// update applies mutate under the lock and writes the result when mutate reports a change.
func (fp *Persistence) update(
	op, id string,
	mutate func(persistence.Collection) (persistence.Collection, bool),
) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	campaigns, err := fp.load()
	if err != nil {
		return persistence.NewCampaignError(op, id, err)
	}

	campaigns, changed := mutate(campaigns)
	if !changed {
		return nil
	}

	err = fp.write(campaigns)
	if err != nil {
		return persistence.NewCampaignError(op, id, err)
	}

	return nil
}

// write replaces the document atomically through a temporary file in the same directory.
func (fp *Persistence) write(campaigns persistence.Collection) error {
	data, err := campaigns.Encode()
	if err != nil {
		return err
	}

	err = os.MkdirAll(fp.root, 0o750)
	if err != nil {
		return fmt.Errorf("failed to create campaign directory: %w", err)
	}

	tmp, err := os.CreateTemp(fp.root, DocumentName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tmpPath := tmp.Name()

	defer func() {
		_ = os.Remove(tmpPath)
	}()

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write campaigns: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	err = os.Rename(tmpPath, fp.documentPath())
	if err != nil {
		return fmt.Errorf("failed to replace campaigns file: %w", err)
	}

	return nil
}
