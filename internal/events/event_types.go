package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/tix-api/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketClosed        EventType = "ticket_closed"
	EventCommentAdded        EventType = "comment_added"
)

// Event is a domain event emitted after a mutation commits.
type Event struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	TicketID  string           `json:"ticket_id"`
	Actor     *domain.ActorRef `json:"actor,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   any              `json:"payload"`
}

// New builds an event with a fresh ID and timestamp.
func New(eventType EventType, ticketID string, actor *domain.ActorRef, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string `json:"ticket_number"`
	Subject      string `json:"subject"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID         string  `json:"agent_id"`
	PreviousAgentID *string `json:"previous_agent_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID  string           `json:"comment_id"`
	AuthorType domain.ActorType `json:"author_type"`
}
