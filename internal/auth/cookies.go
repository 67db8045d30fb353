package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tix-api/internal/domain"
)

// Cookie names are scoped per actor role so an agent session and a
// customer session can coexist in one browser without collision.
const (
	customerAccessCookie  = "customer_access_token"
	customerRefreshCookie = "customer_refresh_token"
	agentAccessCookie     = "agent_access_token"
	agentRefreshCookie    = "agent_refresh_token"
)

// AccessCookieName returns the role-scoped access-token cookie name.
func AccessCookieName(role domain.ActorType) string {
	if role == domain.ActorTypeAgent {
		return agentAccessCookie
	}
	return customerAccessCookie
}

// RefreshCookieName returns the role-scoped refresh-token cookie name.
func RefreshCookieName(role domain.ActorType) string {
	if role == domain.ActorTypeAgent {
		return agentRefreshCookie
	}
	return customerRefreshCookie
}

// CookieWriter sets and clears the auth cookie pair for one role.
type CookieWriter struct {
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieWriter builds a writer. secure should be false only in
// development.
func NewCookieWriter(secure bool, accessTTL, refreshTTL time.Duration) *CookieWriter {
	return &CookieWriter{secure: secure, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Set writes the access/refresh pair for the role.
func (w *CookieWriter) Set(c *fiber.Ctx, role domain.ActorType, accessToken, refreshToken string) {
	w.write(c, AccessCookieName(role), accessToken, w.accessTTL)
	w.write(c, RefreshCookieName(role), refreshToken, w.refreshTTL)
}

// Clear expires the pair for the role only, leaving the other role's
// session untouched.
func (w *CookieWriter) Clear(c *fiber.Ctx, role domain.ActorType) {
	w.write(c, AccessCookieName(role), "", -time.Hour)
	w.write(c, RefreshCookieName(role), "", -time.Hour)
}

func (w *CookieWriter) write(c *fiber.Ctx, name, value string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   w.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
