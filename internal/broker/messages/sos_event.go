package messages

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventRequestCreated       EventType = "sos.request_created"
	EventRequestStatusChanged EventType = "sos.request_status_changed"
	EventResponseRecorded     EventType = "sos.response_recorded"
	EventContactRevealed      EventType = "sos.contact_revealed"
	EventDonationStatusChange EventType = "donation.status_changed"
)

// SOSEvent is the envelope published to the sos events topic after a state change commits.
// EventID is the de-duplication key for consumers.
type SOSEvent struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	RequestID   uint64 `json:"request_id"`
	RequesterID uint64 `json:"requester_id"`
	BloodGroup  string `json:"blood_group,omitempty"`
	City        string `json:"city,omitempty"`
	Status      string `json:"status,omitempty"`

	ResponseID uint64 `json:"response_id,omitempty"`
	DonorID    uint64 `json:"donor_id,omitempty"`
	Response   string `json:"response,omitempty"`
	Channel    string `json:"channel,omitempty"`

	TrackerID      uint64 `json:"tracker_id,omitempty"`
	DonationStatus string `json:"donation_status,omitempty"`
}

func NewSOSEvent(t EventType, requestID, requesterID uint64, at time.Time) SOSEvent {
	return SOSEvent{
		EventID:     uuid.NewString(),
		Type:        t,
		OccurredAt:  at.UTC(),
		RequestID:   requestID,
		RequesterID: requesterID,
	}
}

func (e SOSEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeSOSEvent(b []byte) (SOSEvent, error) {
	var e SOSEvent
	err := json.Unmarshal(b, &e)
	return e, err
}
