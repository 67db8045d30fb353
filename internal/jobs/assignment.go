package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/events"
	"github.com/spec-kit/tix-api/internal/lifecycle"
	"github.com/spec-kit/tix-api/internal/repository"
)

// Assigner auto-assigns new tickets to the next agent in the
// round-robin rotation.
type Assigner struct {
	store      *repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAssigner builds an assigner. dispatcher may be nil.
func NewAssigner(store *repository.Store, dispatcher events.Dispatcher, logger *zap.Logger) *Assigner {
	return &Assigner{store: store, dispatcher: dispatcher, logger: logger}
}

// Assign picks the agent who has waited longest since their last
// assignment and hands them the ticket. The selection, the status
// change and the last_assigned_at touch commit as one transaction; the
// agent row is locked so concurrent runs never pick the same agent.
//
// The run is idempotent: a missing ticket, an already-assigned ticket
// and an empty agent pool all drop the task without error. A lifecycle
// race is logged and dropped too, since the enqueue cannot be unwound.
func (a *Assigner) Assign(ctx context.Context, ticketID string) error {
	var assignedAgentID string

	err := a.store.WithinTx(ctx, func(ctx context.Context, s *repository.Store) error {
		ticket, err := s.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				a.logger.Info("assignment skipped, ticket gone", zap.String("ticket_id", ticketID))
				return nil
			}
			return err
		}
		if ticket.AssignedAgentID != nil {
			return nil
		}

		agent, err := s.Agents.NextForAssignment(ctx)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				a.logger.Warn("assignment skipped, no agent available", zap.String("ticket_id", ticketID))
				return nil
			}
			return err
		}

		ticket.AssignedAgentID = &agent.ID
		machine := lifecycle.TicketMachine()
		if machine.MayFire(lifecycle.EventAssignAgent, lifecycle.State(ticket.Status)) {
			status, err := lifecycle.FireTicket(lifecycle.EventAssignAgent, ticket)
			if err != nil {
				a.logger.Error("assignment dropped on lifecycle race",
					zap.String("ticket_id", ticketID),
					zap.Error(err))
				return nil
			}
			ticket.Status = status
		}
		if err := s.Tickets.Update(ctx, ticket, nil); err != nil {
			return err
		}
		if err := s.Agents.TouchLastAssigned(ctx, agent.ID, time.Now().UTC()); err != nil {
			return err
		}
		assignedAgentID = agent.ID
		return nil
	})
	if err != nil {
		return err
	}

	if assignedAgentID != "" && a.dispatcher != nil {
		a.dispatcher.Publish(ctx, events.New(events.EventTicketAssigned, ticketID, nil,
			events.TicketAssignedPayload{AgentID: assignedAgentID}))
	}
	return nil
}
