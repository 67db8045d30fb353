// Package http wires the fiber transport: routes, global middlewares
// and the metrics endpoint.
package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/tix-api/internal/api/http/handlers"
	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Agents         *handlers.AgentsHandler
	Tickets        *handlers.TicketsHandler
	History        *handlers.HistoryHandler
	Exports        *handlers.ExportsHandler
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Mutations declare their own
// authorization inside the executor, so only the read endpoints carry a
// route guard.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	app.Use(cfg.AuthMiddleware.Handle)

	authGroup := app.Group("/auth")
	authGroup.Post("/sign_up", cfg.Auth.SignUp)
	authGroup.Post("/sign_in", cfg.Auth.SignIn)
	authGroup.Post("/sign_out", cfg.Auth.SignOut)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/password/reset_request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset", cfg.Auth.ResetPassword)

	agents := app.Group("/agents")
	agents.Post("/invite", cfg.Agents.Invite)
	agents.Post("/accept_invite", cfg.Agents.AcceptInvite)
	agents.Get("/:id/history", auth.RequireActor(), cfg.History.AgentHistory)
	agents.Get("/:id/audits", auth.RequireActor(), cfg.History.AgentAudits)

	customers := app.Group("/customers")
	customers.Get("/:id/history", auth.RequireActor(), cfg.History.CustomerHistory)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/transition", cfg.Tickets.Transition)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id", auth.RequireActor(), cfg.Tickets.Get)
	tickets.Get("/:id/comments", auth.RequireActor(), cfg.Tickets.Comments)
	tickets.Get("/:id/history", auth.RequireActor(), cfg.Tickets.History)
	tickets.Get("/:id/audits", auth.RequireActor(), cfg.Tickets.Audits)

	exports := app.Group("/exports")
	exports.Post("/closed_tickets", cfg.Exports.ClosedTickets)
	exports.Get("/fields", auth.RequireActor(), cfg.Exports.Fields)
}
