package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/mutation"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

// respond writes the uniform mutation response.
func respond(c *fiber.Ctx, resp *mutation.Response) error {
	return c.Status(resp.Status()).JSON(resp)
}

// decode parses the JSON request body. An empty body is allowed so
// mutations with all-optional inputs can be posted bare.
func decode(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return apperrors.NewValidationError("base", "Invalid request body")
	}
	return nil
}

// writeSessionCookies turns a successful session payload into the
// role-scoped cookie pair.
func writeSessionCookies(c *fiber.Ctx, cookies *auth.CookieWriter, resp *mutation.Response) {
	if !resp.OK() {
		return
	}
	session, ok := resp.Payload.(*mutation.SessionResult)
	if !ok {
		return
	}
	cookies.Set(c, session.Role, session.AccessToken, session.RefreshToken)
}
