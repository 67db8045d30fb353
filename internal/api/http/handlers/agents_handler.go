package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/mutation"
)

// AgentsHandler exposes the agent invitation mutations.
type AgentsHandler struct {
	exec    *mutation.Executor
	muts    *mutation.Mutations
	cookies *auth.CookieWriter
}

// NewAgentsHandler returns a new handler instance.
func NewAgentsHandler(exec *mutation.Executor, muts *mutation.Mutations, cookies *auth.CookieWriter) *AgentsHandler {
	return &AgentsHandler{exec: exec, muts: muts, cookies: cookies}
}

// Invite creates an invited agent and mails the invitation link.
func (h *AgentsHandler) Invite(c *fiber.Ctx) error {
	var input mutation.InviteAgentInput
	if err := decode(c, &input); err != nil {
		return err
	}
	actor := auth.ActorForRole(c, domain.ActorTypeAgent)
	resp := h.exec.Execute(c.UserContext(), "invite_agent", mutation.RequireAdmin, actor, h.muts.InviteAgent(input))
	return respond(c, resp)
}

// AcceptInvite redeems an invitation token and signs the agent in.
func (h *AgentsHandler) AcceptInvite(c *fiber.Ctx) error {
	var input mutation.AcceptInviteInput
	if err := decode(c, &input); err != nil {
		return err
	}
	resp := h.exec.Execute(c.UserContext(), "accept_invite", mutation.RequireNone, nil, h.muts.AcceptInvite(input))
	writeSessionCookies(c, h.cookies, resp)
	return respond(c, resp)
}
