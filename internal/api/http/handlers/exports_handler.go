package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/export"
	"github.com/spec-kit/tix-api/internal/mutation"
)

// ExportsHandler exposes the closed-ticket export.
type ExportsHandler struct {
	exec *mutation.Executor
	muts *mutation.Mutations
}

// NewExportsHandler returns a new handler instance.
func NewExportsHandler(exec *mutation.Executor, muts *mutation.Mutations) *ExportsHandler {
	return &ExportsHandler{exec: exec, muts: muts}
}

// ClosedTickets exports closed tickets as CSV, inline or by mail
// depending on size.
func (h *ExportsHandler) ClosedTickets(c *fiber.Ctx) error {
	var input mutation.ExportClosedTicketsInput
	if err := decode(c, &input); err != nil {
		return err
	}
	actor := auth.ActorForRole(c, domain.ActorTypeAgent)
	resp := h.exec.Execute(c.UserContext(), "export_closed_tickets", mutation.RequireAgent, actor, h.muts.ExportClosedTickets(input))
	return respond(c, resp)
}

// Fields lists the selectable export fields and the default subset.
func (h *ExportsHandler) Fields(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"available_fields": export.AvailableFieldNames(),
		"default_fields":   export.DefaultFields,
	})
}
