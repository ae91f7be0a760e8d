// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCampaignNotFound indicates a campaign was not found by the given identifier.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrInvalidCampaign indicates a campaign cannot be stored, e.g. it has no id.
	ErrInvalidCampaign = errors.New("invalid campaign")

	// ErrConcurrentUpdate indicates the stored collection kept changing during an update.
	ErrConcurrentUpdate = errors.New("concurrent campaign update")
)

// CampaignError wraps campaign-related errors with additional context.
type CampaignError struct {
	Op         string // Operation being performed (e.g., "Save", "Delete", "Rename")
	CampaignID string // Campaign ID if applicable
	Err        error  // Underlying error
	Message    string // Additional context message
}

func (e *CampaignError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for campaign %s: %s (%v)", e.Op, e.CampaignID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for campaign %s: %v", e.Op, e.CampaignID, e.Err)
}

func (e *CampaignError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for campaign errors.
func (e *CampaignError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCampaignError creates a new campaign error with context.
func NewCampaignError(op, campaignID string, err error) *CampaignError {
	return &CampaignError{
		Op:         op,
		CampaignID: campaignID,
		Err:        err,
	}
}

// IsCampaignNotFound checks if an error indicates a campaign was not found.
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsInvalidCampaign checks if an error indicates a campaign could not be stored.
func IsInvalidCampaign(err error) bool {
	return errors.Is(err, ErrInvalidCampaign)
}
