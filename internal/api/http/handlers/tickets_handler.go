package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/mutation"
	"github.com/spec-kit/tix-api/internal/repository"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// TicketsHandler exposes the ticket mutations and reads.
type TicketsHandler struct {
	exec    *mutation.Executor
	muts    *mutation.Mutations
	store   *repository.Store
	history *audit.Service
}

// NewTicketsHandler returns a new handler instance.
func NewTicketsHandler(exec *mutation.Executor, muts *mutation.Mutations, store *repository.Store, history *audit.Service) *TicketsHandler {
	return &TicketsHandler{exec: exec, muts: muts, store: store, history: history}
}

// Create opens a ticket for the calling customer.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var input mutation.CreateTicketInput
	if err := decode(c, &input); err != nil {
		return err
	}
	actor := auth.ActorForRole(c, domain.ActorTypeCustomer)
	resp := h.exec.Execute(c.UserContext(), "create_ticket", mutation.RequireCustomer, actor, h.muts.CreateTicket(input))
	return respond(c, resp)
}

// Assign manually assigns the ticket to an agent.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var input mutation.AssignTicketInput
	if err := decode(c, &input); err != nil {
		return err
	}
	input.TicketID = c.Params("id")
	actor := auth.ActorForRole(c, domain.ActorTypeAgent)
	resp := h.exec.Execute(c.UserContext(), "assign_ticket", mutation.RequireAdmin, actor, h.muts.AssignTicket(input))
	return respond(c, resp)
}

// Transition fires a lifecycle event on the ticket.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	var input mutation.TransitionTicketInput
	if err := decode(c, &input); err != nil {
		return err
	}
	input.TicketID = c.Params("id")
	actor := auth.ActorForRole(c, domain.ActorTypeAgent)
	resp := h.exec.Execute(c.UserContext(), "transition_ticket", mutation.RequireAgent, actor, h.muts.TransitionTicket(input))
	return respond(c, resp)
}

// AddComment appends a comment to the ticket.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	var input mutation.AddCommentInput
	if err := decode(c, &input); err != nil {
		return err
	}
	input.TicketID = c.Params("id")
	actor := auth.ActorFromContext(c)
	resp := h.exec.Execute(c.UserContext(), "add_comment", mutation.RequireAuthenticated, actor, h.muts.AddComment(input))
	return respond(c, resp)
}

// Get returns one ticket with its derived close time.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	view := mutation.NewTicketView(ticket)
	body := fiber.Map{"ticket": view}
	if ticket.Status == domain.TicketStatusClosed {
		closedAt, err := h.history.ClosedAt(c.UserContext(), ticket.ID)
		if err != nil {
			return err
		}
		body["closed_at"] = closedAt
	}
	return c.JSON(body)
}

// Comments lists the ticket's comments, oldest first.
func (h *TicketsHandler) Comments(c *fiber.Ctx) error {
	ticket, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	comments, err := h.store.Comments.ListByTicket(c.UserContext(), ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	views := make([]*mutation.CommentView, len(comments))
	for i := range comments {
		views[i] = mutation.NewCommentView(&comments[i])
	}
	return c.JSON(fiber.Map{"comments": views})
}

// History returns the human-readable ticket narrative, newest first.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	ticket, err := h.visibleTicket(c)
	if err != nil {
		return err
	}
	events, err := h.history.History(c.UserContext(), domain.EntityTicket, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": events})
}

// Audits returns the raw redacted audit entries. Agents only; an
// optional field query parameter narrows to one attribute.
func (h *TicketsHandler) Audits(c *fiber.Ctx) error {
	actor := auth.ActorForRole(c, domain.ActorTypeAgent)
	if actor == nil {
		return apperrors.NewUnauthorized("agent account required")
	}
	ticket, err := h.store.Tickets.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	entries, err := h.history.RawHistory(c.UserContext(), domain.EntityTicket, ticket.ID, c.Query("field"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"audits": entries})
}

// visibleTicket loads the ticket and enforces read scoping: agents see
// everything, customers only their own tickets. The scope failure is a
// NOT_FOUND so ticket IDs cannot be probed.
func (h *TicketsHandler) visibleTicket(c *fiber.Ctx) (*domain.Ticket, error) {
	ticket, err := h.store.Tickets.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	actor := auth.ActorFromContext(c)
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	if actor.IsCustomer() && ticket.CustomerID != actor.ID() {
		return nil, apperrors.NewNotFound("ticket")
	}
	return ticket, nil
}
