// Package services implements campaign and node editing operations on top of persistence.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/campaignflow/pkg/nodes"
	"github.com/dukex/campaignflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidNodeData   = errors.New("invalid node data")
	ErrInvalidConnection = errors.New("invalid connection")
	ErrUnknownNodeType   = nodes.ErrUnknownNodeType

	// Lookup Errors (404 Not Found).
	ErrCampaignNotFound = persistence.ErrCampaignNotFound
	ErrNodeNotFound     = errors.New("node not found")
	ErrEdgeNotFound     = errors.New("edge not found")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidNodeData) ||
		errors.Is(err, ErrInvalidConnection) ||
		errors.Is(err, ErrUnknownNodeType) ||
		errors.Is(err, persistence.ErrInvalidCampaign)
}

// IsNotFoundError checks if an error refers to a missing campaign, node or edge (HTTP 404).
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrCampaignNotFound) ||
		errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrEdgeNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func newNotFoundError(op, code, id string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: fmt.Sprintf("%v: %s", err, id),
		Err:     err,
	}
}
