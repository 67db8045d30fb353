package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/domain"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// HistoryHandler exposes the audit read path for agents and customers
// as entities. Ticket history lives on the tickets handler because it
// needs ticket scoping.
type HistoryHandler struct {
	history *audit.Service
}

// NewHistoryHandler returns a new handler instance.
func NewHistoryHandler(history *audit.Service) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// AgentHistory returns the narrative for an agent account.
func (h *HistoryHandler) AgentHistory(c *fiber.Ctx) error {
	if auth.ActorForRole(c, domain.ActorTypeAgent) == nil {
		return apperrors.NewUnauthorized("agent account required")
	}
	events, err := h.history.History(c.UserContext(), domain.EntityAgent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": events})
}

// AgentAudits returns the raw redacted entries for an agent account.
func (h *HistoryHandler) AgentAudits(c *fiber.Ctx) error {
	if auth.ActorForRole(c, domain.ActorTypeAgent) == nil {
		return apperrors.NewUnauthorized("agent account required")
	}
	entries, err := h.history.RawHistory(c.UserContext(), domain.EntityAgent, c.Params("id"), c.Query("field"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"audits": entries})
}

// CustomerHistory returns the narrative for a customer account. Agents
// see any customer; a customer sees only their own.
func (h *HistoryHandler) CustomerHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	actor := auth.ActorFromContext(c)
	if actor == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if actor.IsCustomer() && actor.ID() != id {
		return apperrors.NewNotFound("customer")
	}
	events, err := h.history.History(c.UserContext(), domain.EntityCustomer, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": events})
}
