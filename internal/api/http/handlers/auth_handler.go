package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/mutation"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// AuthHandler exposes the account and session mutations. Refresh
// tokens travel only in the role-scoped cookies; request bodies never
// carry them.
type AuthHandler struct {
	exec    *mutation.Executor
	muts    *mutation.Mutations
	cookies *auth.CookieWriter
}

// NewAuthHandler returns a new handler instance.
func NewAuthHandler(exec *mutation.Executor, muts *mutation.Mutations, cookies *auth.CookieWriter) *AuthHandler {
	return &AuthHandler{exec: exec, muts: muts, cookies: cookies}
}

// SignUp registers a customer.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var input mutation.SignUpInput
	if err := decode(c, &input); err != nil {
		return err
	}
	resp := h.exec.Execute(c.UserContext(), "sign_up", mutation.RequireNone, nil, h.muts.SignUp(input))
	writeSessionCookies(c, h.cookies, resp)
	return respond(c, resp)
}

// SignIn authenticates a customer or agent.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var input mutation.SignInInput
	if err := decode(c, &input); err != nil {
		return err
	}
	resp := h.exec.Execute(c.UserContext(), "sign_in", mutation.RequireNone, nil, h.muts.SignIn(input))
	writeSessionCookies(c, h.cookies, resp)
	return respond(c, resp)
}

// SignOut revokes the role's refresh token and clears its cookies.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	var input mutation.SessionTokenInput
	if err := decode(c, &input); err != nil {
		return err
	}
	role := mutation.RoleFor(input.UserType)
	input.RefreshToken = c.Cookies(auth.RefreshCookieName(role))

	resp := h.exec.Execute(c.UserContext(), "sign_out", mutation.RequireNone, nil, h.muts.SignOut(input))
	h.cookies.Clear(c, role)
	return respond(c, resp)
}

// Refresh rotates the role's refresh token and reissues cookies. An
// invalid token clears the role's cookies so clients stop retrying.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input mutation.SessionTokenInput
	if err := decode(c, &input); err != nil {
		return err
	}
	role := mutation.RoleFor(input.UserType)
	input.RefreshToken = c.Cookies(auth.RefreshCookieName(role))

	resp := h.exec.Execute(c.UserContext(), "refresh_session", mutation.RequireNone, nil, h.muts.RefreshSession(input))
	if resp.OK() {
		writeSessionCookies(c, h.cookies, resp)
	} else if resp.Errors[0].Code == apperrors.KindInvalidRefreshToken {
		h.cookies.Clear(c, role)
	}
	return respond(c, resp)
}

// RequestPasswordReset asks for reset instructions by mail.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var input mutation.RequestPasswordResetInput
	if err := decode(c, &input); err != nil {
		return err
	}
	resp := h.exec.Execute(c.UserContext(), "request_password_reset", mutation.RequireNone, nil, h.muts.RequestPasswordReset(input))
	return respond(c, resp)
}

// ResetPassword consumes a reset token.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input mutation.ResetPasswordInput
	if err := decode(c, &input); err != nil {
		return err
	}
	resp := h.exec.Execute(c.UserContext(), "reset_password", mutation.RequireNone, nil, h.muts.ResetPassword(input))
	return respond(c, resp)
}
