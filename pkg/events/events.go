// Package events defines the campaign lifecycle notifications published on the event bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const Topic = "campaignflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	CampaignSavedEvent     EventType = "campaign.saved"
	CampaignDeletedEvent   EventType = "campaign.deleted"
	CampaignRenamedEvent   EventType = "campaign.renamed"
	CampaignValidatedEvent EventType = "campaign.validated"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	CampaignID string         `json:"campaign_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, campaignID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		CampaignID: campaignID,
		Metadata:   make(map[string]any),
	}
}

// CampaignSaved is emitted after a flow has been written to persistence.
type CampaignSaved struct {
	BaseEvent

	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (e CampaignSaved) GetType() EventType {
	return CampaignSavedEvent
}

type CampaignDeleted struct {
	BaseEvent
}

func (e CampaignDeleted) GetType() EventType {
	return CampaignDeletedEvent
}

type CampaignRenamed struct {
	BaseEvent

	Name string `json:"name"`
}

func (e CampaignRenamed) GetType() EventType {
	return CampaignRenamedEvent
}

// CampaignValidated reports the outcome of a validation run. Unsaved flows carry
// whatever id the caller supplied, possibly empty.
type CampaignValidated struct {
	BaseEvent

	Valid      bool `json:"valid"`
	ErrorCount int  `json:"error_count"`
}

func (e CampaignValidated) GetType() EventType {
	return CampaignValidatedEvent
}

// New returns an empty event value for the given type, or nil when the type is unknown.
func New(eventType EventType) any {
	switch eventType {
	case CampaignSavedEvent:
		return &CampaignSaved{}
	case CampaignDeletedEvent:
		return &CampaignDeleted{}
	case CampaignRenamedEvent:
		return &CampaignRenamed{}
	case CampaignValidatedEvent:
		return &CampaignValidated{}
	default:
		return nil
	}
}
