package mutation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/events"
	"github.com/spec-kit/tix-api/internal/jobs"
	"github.com/spec-kit/tix-api/internal/lifecycle"
	"github.com/spec-kit/tix-api/internal/repository"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// CreateTicketInput opens a support ticket.
type CreateTicketInput struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// AssignTicketInput assigns a ticket to a specific agent.
type AssignTicketInput struct {
	TicketID string `json:"ticket_id"`
	AgentID  string `json:"agent_id"`
}

// TransitionTicketInput fires a lifecycle event on a ticket.
type TransitionTicketInput struct {
	TicketID string `json:"ticket_id"`
	Event    string `json:"event"`
}

// AddCommentInput appends a comment to a ticket.
type AddCommentInput struct {
	TicketID string `json:"ticket_id"`
	Body     string `json:"body"`
}

// CreateTicket opens a ticket for the calling customer. The ticket
// number is regenerated on collision up to the retry budget; automatic
// assignment is enqueued only once the row has committed.
func (m *Mutations) CreateTicket(input CreateTicketInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		subject := strings.TrimSpace(input.Subject)
		description := strings.TrimSpace(input.Description)
		if subject == "" {
			ex.AddError("subject", "can't be blank")
		}
		if description == "" {
			ex.AddError("description", "can't be blank")
		}
		if ex.Failed() {
			return nil, nil
		}

		ticket := &domain.Ticket{
			CustomerID:  ex.Actor.ID(),
			Subject:     subject,
			Description: description,
			Status:      domain.TicketStatusNew,
		}
		if err := m.createWithNumberRetry(ctx, ex, ticket); err != nil {
			return nil, err
		}

		ex.AfterCommit(func(ctx context.Context) {
			if err := m.deps.Queue.Enqueue(ctx, jobs.NewAssignmentTask(ticket.ID)); err != nil {
				m.deps.Logger.Error("assignment enqueue failed",
					zap.String("ticket_id", ticket.ID), zap.Error(err))
			}
			m.deps.Dispatcher.Publish(ctx, events.New(events.EventTicketCreated, ticket.ID, ex.Actor.Ref(),
				events.TicketCreatedPayload{TicketNumber: ticket.TicketNumber, Subject: ticket.Subject}))
		})
		return NewTicketView(ticket), nil
	}
}

func (m *Mutations) createWithNumberRetry(ctx context.Context, ex *Exec, ticket *domain.Ticket) error {
	var lastErr error
	for attempt := 0; attempt <= domain.TicketNumberMaxRetries; attempt++ {
		ticket.TicketNumber = domain.GenerateTicketNumber()
		err := ex.Store.Tickets.Create(ctx, ticket, ex.Actor.Ref())
		if err == nil {
			return nil
		}
		if !isTicketNumberCollision(err) {
			return err
		}
		lastErr = err
	}
	return apperrors.NewInternalError(fmt.Errorf("ticket number collisions exhausted retries: %w", lastErr))
}

func isTicketNumberCollision(err error) bool {
	return repository.IsUniqueViolation(err, "tickets_ticket_number_key")
}

// AssignTicket manually assigns an agent. The assignment event fires
// only when the ticket is still new; later reassignments just move the
// agent pointer.
func (m *Mutations) AssignTicket(input AssignTicketInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		ticket, err := ex.Store.Tickets.GetByIDForUpdate(ctx, input.TicketID)
		if err != nil {
			return nil, err
		}
		agent, err := ex.Store.Agents.GetByID(ctx, input.AgentID)
		if err != nil {
			return nil, err
		}
		if !agent.Active() {
			ex.AddError("agent_id", "has not accepted their invitation")
			return nil, nil
		}
		if ticket.Status == domain.TicketStatusClosed {
			return nil, apperrors.NewInvalidTransition("Cannot assign a closed ticket")
		}

		previousAgentID := ticket.AssignedAgentID
		ticket.AssignedAgentID = &agent.ID
		machine := lifecycle.TicketMachine()
		if machine.MayFire(lifecycle.EventAssignAgent, lifecycle.State(ticket.Status)) {
			status, err := lifecycle.FireTicket(lifecycle.EventAssignAgent, ticket)
			if err != nil {
				return nil, err
			}
			ticket.Status = status
		}
		if err := ex.Store.Tickets.Update(ctx, ticket, ex.Actor.Ref()); err != nil {
			return nil, err
		}
		if err := ex.Store.Agents.TouchLastAssigned(ctx, agent.ID, m.now().UTC()); err != nil {
			return nil, err
		}

		actorRef := ex.Actor.Ref()
		ex.AfterCommit(func(ctx context.Context) {
			m.deps.Dispatcher.Publish(ctx, events.New(events.EventTicketAssigned, ticket.ID, actorRef,
				events.TicketAssignedPayload{AgentID: agent.ID, PreviousAgentID: previousAgentID}))
		})
		return NewTicketView(ticket), nil
	}
}

// TransitionTicket fires a lifecycle event. Only the assigned agent or
// an admin may drive a ticket's lifecycle.
func (m *Mutations) TransitionTicket(input TransitionTicketInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		event := lifecycle.Event(input.Event)
		machine := lifecycle.TicketMachine()
		if !machine.Knows(event) {
			return nil, apperrors.NewInvalidEvent("Invalid event")
		}

		ticket, err := ex.Store.Tickets.GetByIDForUpdate(ctx, input.TicketID)
		if err != nil {
			return nil, err
		}
		if !m.mayTransition(ex.Actor, ticket) {
			return nil, apperrors.NewUnauthorized("only the assigned agent or an admin may transition this ticket")
		}

		oldStatus := ticket.Status
		status, err := lifecycle.FireTicket(event, ticket)
		if err != nil {
			return nil, err
		}
		ticket.Status = status
		if err := ex.Store.Tickets.Update(ctx, ticket, ex.Actor.Ref()); err != nil {
			return nil, err
		}

		actorRef := ex.Actor.Ref()
		ex.AfterCommit(func(ctx context.Context) {
			m.deps.Dispatcher.Publish(ctx, events.New(events.EventTicketStatusChanged, ticket.ID, actorRef,
				events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: ticket.Status}))
			if ticket.Status == domain.TicketStatusClosed {
				m.deps.Dispatcher.Publish(ctx, events.New(events.EventTicketClosed, ticket.ID, actorRef, nil))
			}
		})
		return NewTicketView(ticket), nil
	}
}

func (m *Mutations) mayTransition(actor *domain.Actor, ticket *domain.Ticket) bool {
	if !actor.IsAgent() {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return ticket.AssignedAgentID != nil && *ticket.AssignedAgentID == actor.ID()
}

// AddComment appends a comment. Customers may only comment on their own
// tickets, and only once an agent has responded.
func (m *Mutations) AddComment(input AddCommentInput) Handler {
	return func(ctx context.Context, ex *Exec) (any, error) {
		body := strings.TrimSpace(input.Body)
		if body == "" {
			ex.AddError("body", "can't be blank")
			return nil, nil
		}

		ticket, err := ex.Store.Tickets.GetByID(ctx, input.TicketID)
		if err != nil {
			return nil, err
		}
		if ex.Actor.IsCustomer() {
			if ticket.CustomerID != ex.Actor.ID() {
				return nil, apperrors.NewNotFound("ticket")
			}
			answered, err := ex.Store.Comments.HasAgentComment(ctx, ticket.ID)
			if err != nil {
				return nil, err
			}
			if !answered {
				ex.AddError("base", "Cannot comment until an agent has responded")
				return nil, nil
			}
		}

		comment := &domain.Comment{
			TicketID:   ticket.ID,
			AuthorType: ex.Actor.Type,
			AuthorID:   ex.Actor.ID(),
			Body:       body,
		}
		if err := ex.Store.Comments.Create(ctx, comment); err != nil {
			return nil, err
		}

		actorRef := ex.Actor.Ref()
		ex.AfterCommit(func(ctx context.Context) {
			m.deps.Dispatcher.Publish(ctx, events.New(events.EventCommentAdded, ticket.ID, actorRef,
				events.CommentAddedPayload{CommentID: comment.ID, AuthorType: comment.AuthorType}))
		})
		return NewCommentView(comment), nil
	}
}
