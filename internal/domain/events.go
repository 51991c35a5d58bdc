package domain

import (
	"encoding/json"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// NewVolunteerRegisteredEvent creates the event emitted after a registration commits.
// Downstream consumers use it to send confirmation messages.
func NewVolunteerRegisteredEvent(v *Volunteer) OutboxDraft {
	payload, _ := gojson.Marshal(map[string]interface{}{
		"volunteer_id":   v.ID.String(),
		"name":           v.Name,
		"email":          v.Email,
		"whatsapp":       v.WhatsApp,
		"volunteer_type": v.VolunteerType,
		"district":       v.District,
	})
	return newVolunteerDraft(v.ID, EventVolunteerRegistered, payload)
}

// NewVolunteerStatusChangedEvent records a review decision.
func NewVolunteerStatusChangedEvent(id uuid.UUID, from, to VolunteerStatus) OutboxDraft {
	payload, _ := gojson.Marshal(map[string]string{
		"volunteer_id": id.String(),
		"from":         string(from),
		"to":           string(to),
	})
	return newVolunteerDraft(id, EventVolunteerStatusChanged, payload)
}

func newVolunteerDraft(id uuid.UUID, evt EventType, payload []byte) OutboxDraft {
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateVolunteer,
		AggregateID:   id.String(),
		EventType:     evt,
		PartitionKey:  id.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
