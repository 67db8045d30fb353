package audit

import (
	"fmt"

	"github.com/spec-kit/tix-api/internal/domain"
)

// narrator turns one audit record into zero or more history events.
// One implementation per audited entity type, selected by tag.
type narrator interface {
	narrate(record domain.AuditRecord, names NameIndex) []HistoryEvent
}

var narrators = map[domain.AuditEntityType]narrator{
	domain.EntityTicket:   ticketNarrator{},
	domain.EntityAgent:    agentNarrator{},
	domain.EntityCustomer: customerNarrator{},
}

func narratorFor(entityType domain.AuditEntityType) narrator {
	if n, ok := narrators[entityType]; ok {
		return n
	}
	return genericNarrator{}
}

type ticketNarrator struct{}

func (ticketNarrator) narrate(record domain.AuditRecord, names NameIndex) []HistoryEvent {
	var events []HistoryEvent

	if record.Action == domain.AuditActionCreate {
		events = append(events, HistoryEvent{
			ID:         record.ID + "-create",
			Text:       "Ticket created",
			Actor:      record.Actor,
			OccurredAt: record.CreatedAt,
		})
	}

	// Status changes, except the move into agent_assigned: assignment is
	// narrated separately below. The initial status on create is skipped
	// too.
	if change, ok := record.Change("status"); ok && record.Action != domain.AuditActionCreate {
		from := deref(change.From)
		to := deref(change.To)
		if to != "" && from != to && to != string(domain.TicketStatusAgentAssigned) {
			label, ok := statusLabels[to]
			if !ok {
				label = to
			}
			events = append(events, HistoryEvent{
				ID:         record.ID + "-status",
				Text:       "Status changed to " + label,
				Actor:      record.Actor,
				OccurredAt: record.CreatedAt,
			})
		}
	}

	if change, ok := record.Change("assigned_agent_id"); ok {
		switch {
		case change.To != nil:
			agentName := names.agentName(*change.To)
			if change.From != nil {
				text := "Reassigned to " + agentName
				if record.Actor != nil && record.Actor.Type == domain.ActorTypeAgent {
					text = fmt.Sprintf("Reassigned to %s by %s", agentName, names.agentName(record.Actor.ID))
				}
				events = append(events, HistoryEvent{
					ID:         record.ID + "-agent",
					Text:       text,
					Actor:      record.Actor,
					OccurredAt: record.CreatedAt,
				})
			} else {
				events = append(events, HistoryEvent{
					ID:         record.ID + "-agent",
					Text:       "Assigned to " + agentName,
					Actor:      record.Actor,
					OccurredAt: record.CreatedAt,
				})
			}
		case change.From != nil:
			events = append(events, HistoryEvent{
				ID:         record.ID + "-unassign",
				Text:       "Agent unassigned",
				Actor:      record.Actor,
				OccurredAt: record.CreatedAt,
			})
		}
	}

	return events
}

type agentNarrator struct{}

func (agentNarrator) narrate(record domain.AuditRecord, names NameIndex) []HistoryEvent {
	var events []HistoryEvent

	if record.Action == domain.AuditActionCreate {
		if change, ok := record.Change("invited_by_id"); ok && change.To != nil {
			events = append(events, HistoryEvent{
				ID:         record.ID + "-create",
				Text:       "Invited by " + names.agentName(*change.To),
				Actor:      &domain.ActorRef{Type: domain.ActorTypeAgent, ID: *change.To},
				OccurredAt: record.CreatedAt,
			})
		} else {
			events = append(events, HistoryEvent{
				ID:         record.ID + "-create",
				Text:       "Account created",
				Actor:      record.Actor,
				OccurredAt: record.CreatedAt,
			})
		}
	}

	if change, ok := record.Change("invitation_accepted_at"); ok {
		if change.To != nil && change.From == nil {
			events = append(events, HistoryEvent{
				ID:         record.ID + "-accepted",
				Text:       "Invitation accepted",
				OccurredAt: record.CreatedAt,
			})
		}
	}

	if change, ok := record.Change("reset_password_sent_at"); ok && change.To != nil {
		events = append(events, HistoryEvent{
			ID:         record.ID + "-reset",
			Text:       "Password reset requested",
			OccurredAt: record.CreatedAt,
		})
	}

	return events
}

type customerNarrator struct{}

func (customerNarrator) narrate(record domain.AuditRecord, _ NameIndex) []HistoryEvent {
	if record.Action != domain.AuditActionCreate {
		return nil
	}
	return []HistoryEvent{{
		ID:         record.ID + "-create",
		Text:       "Account created",
		OccurredAt: record.CreatedAt,
	}}
}

// genericNarrator is the fallback for any other audited entity type.
type genericNarrator struct{}

func (genericNarrator) narrate(record domain.AuditRecord, _ NameIndex) []HistoryEvent {
	var text string
	switch record.Action {
	case domain.AuditActionCreate:
		text = "Created"
	case domain.AuditActionUpdate:
		text = "Updated"
	case domain.AuditActionDestroy:
		text = "Deleted"
	default:
		text = string(record.Action)
	}
	return []HistoryEvent{{
		ID:         record.ID + "-" + string(record.Action),
		Text:       text,
		Actor:      record.Actor,
		OccurredAt: record.CreatedAt,
	}}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
