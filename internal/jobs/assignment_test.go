package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository/repotest"
)

func setupAssigner(t *testing.T) (*Assigner, *repotest.Fixture) {
	t.Helper()
	f := repotest.NewFixture()
	return NewAssigner(f.Store(), nil, zap.NewNop()), f
}

func TestAssignPicksLongestWaitingAgent(t *testing.T) {
	ctx := context.Background()
	assigner, f := setupAssigner(t)

	recent := f.Now().Add(-time.Hour)
	older := f.Now().Add(-24 * time.Hour)
	f.SeedAgent(domain.Agent{Name: "Recent", Email: "recent@example.com", LastAssignedAt: &recent})
	longestWaiting := f.SeedAgent(domain.Agent{Name: "Waited", Email: "waited@example.com", LastAssignedAt: &older})

	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	ticket := f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Help"})

	require.NoError(t, assigner.Assign(ctx, ticket.ID))

	stored, err := f.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, longestWaiting.ID, *stored.AssignedAgentID)
	assert.Equal(t, domain.TicketStatusAgentAssigned, stored.Status)

	agent, err := f.Agents.GetByID(ctx, longestWaiting.ID)
	require.NoError(t, err)
	require.NotNil(t, agent.LastAssignedAt)
	assert.True(t, agent.LastAssignedAt.After(older), "rotation cursor moved forward")
}

// A never-assigned agent outranks everyone with a history.
func TestAssignPrefersNeverAssignedAgent(t *testing.T) {
	ctx := context.Background()
	assigner, f := setupAssigner(t)

	older := f.Now().Add(-24 * time.Hour)
	f.SeedAgent(domain.Agent{Name: "Veteran", Email: "vet@example.com", LastAssignedAt: &older})
	fresh := f.SeedAgent(domain.Agent{Name: "Fresh", Email: "fresh@example.com"})

	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	ticket := f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Help"})

	require.NoError(t, assigner.Assign(ctx, ticket.ID))

	stored, err := f.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, fresh.ID, *stored.AssignedAgentID)
}

func TestAssignSkipsAdminsAndPendingAgents(t *testing.T) {
	ctx := context.Background()
	assigner, f := setupAssigner(t)

	f.SeedAgent(domain.Agent{Name: "Admin", Email: "admin@example.com", IsAdmin: true})
	inviteToken := "invite-tok"
	f.SeedAgent(domain.Agent{Name: "Pending", Email: "pending@example.com", InvitationToken: &inviteToken})
	eligible := f.SeedAgent(domain.Agent{Name: "Worker", Email: "worker@example.com"})

	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	ticket := f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Help"})

	require.NoError(t, assigner.Assign(ctx, ticket.ID))

	stored, err := f.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, eligible.ID, *stored.AssignedAgentID)
}

// Re-running the task for an already-assigned ticket changes nothing.
func TestAssignIsIdempotent(t *testing.T) {
	ctx := context.Background()
	assigner, f := setupAssigner(t)

	first := f.SeedAgent(domain.Agent{Name: "First", Email: "first@example.com"})
	f.SeedAgent(domain.Agent{Name: "Second", Email: "second@example.com"})

	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	ticket := f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Help"})

	require.NoError(t, assigner.Assign(ctx, ticket.ID))
	require.NoError(t, assigner.Assign(ctx, ticket.ID))

	stored, err := f.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, first.ID, *stored.AssignedAgentID)

	records, err := f.Audits.ListByEntity(ctx, domain.EntityTicket, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1, "the second run writes nothing")
}

func TestAssignDropsWhenTicketGone(t *testing.T) {
	assigner, f := setupAssigner(t)
	f.SeedAgent(domain.Agent{Name: "Worker", Email: "worker@example.com"})

	assert.NoError(t, assigner.Assign(context.Background(), "no-such-ticket"))
}

func TestAssignDropsWhenNoAgentAvailable(t *testing.T) {
	ctx := context.Background()
	assigner, f := setupAssigner(t)

	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	ticket := f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Help"})

	require.NoError(t, assigner.Assign(ctx, ticket.ID))

	stored, err := f.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedAgentID)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
}

// An unassigned ticket that already left "new" gets the agent pointer
// without a status change.
func TestAssignLeavesNonNewStatusAlone(t *testing.T) {
	ctx := context.Background()
	assigner, f := setupAssigner(t)

	agent := f.SeedAgent(domain.Agent{Name: "Worker", Email: "worker@example.com"})
	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	ticket := f.SeedTicket(domain.Ticket{
		CustomerID: customer.ID,
		Subject:    "Help",
		Status:     domain.TicketStatusClosed,
	})

	require.NoError(t, assigner.Assign(ctx, ticket.ID))

	stored, err := f.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, agent.ID, *stored.AssignedAgentID)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
}
