package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/intake-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSubmissionReceived   EventType = "submission_received"
	EventTicketUpdated        EventType = "ticket_updated"
	EventTicketOverdueAlerted EventType = "ticket_overdue_alerted"
)

// AllEventTypes lists every event the desk emits.
var AllEventTypes = []EventType{EventSubmissionReceived, EventTicketUpdated, EventTicketOverdueAlerted}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Ticket    string    `json:"ticket"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps a new event with a random ID.
func NewEvent(t EventType, ticket, actor string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Ticket:    ticket,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// SubmissionReceivedPayload carries the logged submission.
type SubmissionReceivedPayload struct {
	Submission domain.Submission `json:"submission"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
	Note      string        `json:"note"`
	EmailSent bool          `json:"email_sent"`
}

// TicketOverdueAlertedPayload payload.
type TicketOverdueAlertedPayload struct {
	AgeHours float64 `json:"age_hours"`
	Sent     bool    `json:"sent"`
}
