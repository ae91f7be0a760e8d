package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents_GetType(t *testing.T) {
	assert.Equal(t, CampaignSavedEvent, CampaignSaved{}.GetType())
	assert.Equal(t, CampaignDeletedEvent, CampaignDeleted{}.GetType())
	assert.Equal(t, CampaignRenamedEvent, CampaignRenamed{}.GetType())
	assert.Equal(t, CampaignValidatedEvent, CampaignValidated{}.GetType())
}

func TestNewBaseEvent(t *testing.T) {
	base := NewBaseEvent(CampaignSavedEvent, "c1")

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, CampaignSavedEvent, base.Type)
	assert.Equal(t, "c1", base.CampaignID)
	assert.False(t, base.Timestamp.IsZero())
	assert.NotNil(t, base.Metadata)

	other := NewBaseEvent(CampaignSavedEvent, "c1")
	assert.NotEqual(t, base.ID, other.ID)
}

func TestCampaignValidated_JSONSerialization(t *testing.T) {
	original := CampaignValidated{
		BaseEvent:  NewBaseEvent(CampaignValidatedEvent, "c1"),
		Valid:      false,
		ErrorCount: 3,
	}

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"type":"campaign.validated"`)
	assert.Contains(t, string(jsonData), `"campaign_id":"c1"`)
	assert.Contains(t, string(jsonData), `"error_count":3`)

	var deserialized CampaignValidated

	require.NoError(t, json.Unmarshal(jsonData, &deserialized))
	assert.Equal(t, original.ID, deserialized.ID)
	assert.Equal(t, original.ErrorCount, deserialized.ErrorCount)
	assert.False(t, deserialized.Valid)
	assert.True(t, original.Timestamp.Equal(deserialized.Timestamp))
}

func TestNew(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  any
	}{
		{CampaignSavedEvent, &CampaignSaved{}},
		{CampaignDeletedEvent, &CampaignDeleted{}},
		{CampaignRenamedEvent, &CampaignRenamed{}},
		{CampaignValidatedEvent, &CampaignValidated{}},
		{"workflow.triggered", nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.eventType))
		})
	}
}
