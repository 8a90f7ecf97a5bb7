package events

import (
	"time"

	"github.com/gasc/blood-bridge/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventDonationRecorded     EventType = "donation_recorded"
	EventDonorRegistered      EventType = "donor_registered"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.SubjectType `json:"type"`
	ID   *string            `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload carries what the notifier needs to pick donors.
type RequestCreatedPayload struct {
	Request domain.BloodRequest `json:"request"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	Reason    string               `json:"reason,omitempty"`
}

// DonationRecordedPayload payload.
type DonationRecordedPayload struct {
	DonorID      string    `json:"donor_id"`
	RequestID    *string   `json:"request_id,omitempty"`
	DonationDate time.Time `json:"donation_date"`
}

// DonorRegisteredPayload payload.
type DonorRegisteredPayload struct {
	DonorID     string `json:"donor_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	VerifyToken string `json:"-"`
}
