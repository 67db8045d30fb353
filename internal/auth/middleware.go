package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

const (
	customerActorKey = "auth_customer_actor"
	agentActorKey    = "auth_agent_actor"
)

// Middleware resolves the current actor(s) from the role-scoped access
// cookies. Both roles can be signed in at once in the same browser, so
// both are loaded; operations pick the role they need. The middleware
// never rejects a request: authorization is declared per mutation and
// enforced by the executor, so an absent or stale cookie just leaves the
// actor unset.
type Middleware struct {
	tokens    *TokenManager
	customers repository.CustomerRepository
	agents    repository.AgentRepository
}

// NewMiddleware constructs the middleware.
func NewMiddleware(tokens *TokenManager, customers repository.CustomerRepository, agents repository.AgentRepository) *Middleware {
	return &Middleware{tokens: tokens, customers: customers, agents: agents}
}

// Handle loads whichever role sessions are present.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	if actor := m.actorFromCookie(c, domain.ActorTypeCustomer); actor != nil {
		c.Locals(customerActorKey, actor)
	}
	if actor := m.actorFromCookie(c, domain.ActorTypeAgent); actor != nil {
		c.Locals(agentActorKey, actor)
	}
	return c.Next()
}

func (m *Middleware) actorFromCookie(c *fiber.Ctx, role domain.ActorType) *domain.Actor {
	tokenStr := c.Cookies(AccessCookieName(role))
	if tokenStr == "" {
		return nil
	}
	claims, err := m.tokens.Parse(tokenStr)
	if err != nil || claims.Scope != role {
		return nil
	}

	switch role {
	case domain.ActorTypeCustomer:
		customer, err := m.customers.GetByID(c.Context(), claims.Subject)
		if err != nil {
			return nil
		}
		return domain.CustomerActor(customer)
	case domain.ActorTypeAgent:
		agent, err := m.agents.GetByID(c.Context(), claims.Subject)
		if err != nil {
			return nil
		}
		return domain.AgentActor(agent)
	}
	return nil
}

// ActorForRole returns the authenticated actor of the given role, if
// any.
func ActorForRole(c *fiber.Ctx, role domain.ActorType) *domain.Actor {
	key := customerActorKey
	if role == domain.ActorTypeAgent {
		key = agentActorKey
	}
	actor, ok := c.Locals(key).(*domain.Actor)
	if !ok {
		return nil
	}
	return actor
}

// ActorFromContext returns whichever session is present, customer
// taking precedence when both are.
func ActorFromContext(c *fiber.Ctx) *domain.Actor {
	if actor := ActorForRole(c, domain.ActorTypeCustomer); actor != nil {
		return actor
	}
	return ActorForRole(c, domain.ActorTypeAgent)
}

// RequireActor is a route guard for read endpoints that sit outside the
// mutation executor.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ActorFromContext(c) == nil {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}
