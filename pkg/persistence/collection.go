package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/campaignflow/pkg/models"
)

// Collection is the ordered list of campaigns kept by document-style backends, which
// store every campaign in one JSON array.
type Collection []*models.CampaignFlow

// DecodeCollection parses a stored document. Anything that is not a JSON array reads
// as an empty collection, and elements that are not campaign objects are skipped. Both
// cases are logged and never reported as errors.
func DecodeCollection(logger *slog.Logger, data []byte) Collection {
	if len(data) == 0 {
		return Collection{}
	}

	var elements []json.RawMessage

	err := json.Unmarshal(data, &elements)
	if err != nil {
		logger.Warn("Stored campaigns are not a JSON array, treating as empty", "error", err)

		return Collection{}
	}

	campaigns := make(Collection, 0, len(elements))

	for i, element := range elements {
		var flow models.CampaignFlow

		err := json.Unmarshal(element, &flow)
		if err != nil {
			logger.Warn("Skipping unreadable stored campaign", "index", i, "error", err)

			continue
		}

		if flow.Nodes == nil {
			flow.Nodes = []*models.Node{}
		}

		if flow.Edges == nil {
			flow.Edges = []*models.Edge{}
		}

		campaigns = append(campaigns, &flow)
	}

	return campaigns
}

// Encode serializes the collection as a JSON array.
func (c Collection) Encode() ([]byte, error) {
	if c == nil {
		c = Collection{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal campaigns: %w", err)
	}

	return data, nil
}

// Find returns the campaign with the given id.
func (c Collection) Find(id string) *models.CampaignFlow {
	index := c.index(id)
	if index < 0 {
		return nil
	}

	return c[index]
}

// Upsert replaces the campaign with the same id in place, or appends it.
func (c Collection) Upsert(flow *models.CampaignFlow) Collection {
	index := c.index(flow.ID)
	if index < 0 {
		return append(c, flow)
	}

	c[index] = flow

	return c
}

// Remove drops the campaign with the given id and reports whether it existed.
func (c Collection) Remove(id string) (Collection, bool) {
	index := c.index(id)
	if index < 0 {
		return c, false
	}

	return slices.Delete(c, index, index+1), true
}

// Rename changes the name of the campaign with the given id and reports whether it existed.
func (c Collection) Rename(id, name string) bool {
	flow := c.Find(id)
	if flow == nil {
		return false
	}

	flow.Name = name

	return true
}

func (c Collection) index(id string) int {
	return slices.IndexFunc(c, func(flow *models.CampaignFlow) bool {
		return flow != nil && flow.ID == id
	})
}

// Apply runs mutate on a copy of the campaign with id and puts the copy back in place. The
// collection is returned unchanged with ErrCampaignNotFound or mutate's error.
func (c Collection) Apply(
	id string,
	mutate func(flow *models.CampaignFlow) error,
) (Collection, *models.CampaignFlow, error) {
	found := c.Find(id)
	if found == nil {
		return c, nil, ErrCampaignNotFound
	}

	updated := found.Snapshot()

	err := mutate(updated)
	if err != nil {
		return c, nil, err
	}

	updated.ID = id

	return c.Upsert(updated), updated, nil
}

// ValidateForSave checks the invariants every backend enforces before writing.
func ValidateForSave(flow *models.CampaignFlow) error {
	if flow == nil {
		return NewCampaignError("Save", "", ErrInvalidCampaign)
	}

	if flow.ID == "" {
		return &CampaignError{Op: "Save", Err: ErrInvalidCampaign, Message: "campaign id is required"}
	}

	return nil
}
