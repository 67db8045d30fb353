package export

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
	"github.com/spec-kit/tix-api/internal/repository/repotest"
)

func sampleRow() *Row {
	agentName := "Dana"
	closedAt := time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC)
	return &Row{
		Ticket: domain.Ticket{
			ID:            "t-1",
			Subject:       "Printer on fire",
			Description:   "Smoke everywhere",
			Status:        domain.TicketStatusClosed,
			CommentsCount: 3,
			CreatedAt:     time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		},
		CustomerName:  "Casey",
		CustomerEmail: "casey@example.com",
		AgentName:     &agentName,
		ClosedAt:      &closedAt,
	}
}

func TestGenerateDefaultFields(t *testing.T) {
	csv, err := Generate([]*Row{sampleRow()}, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Subject,Status,Customer Name,Assigned Agent,Created At,Closed At", lines[0])
	assert.Equal(t, "t-1,Printer on fire,closed,Casey,Dana,2026-03-01T08:00:00Z,2026-03-02T16:30:00Z", lines[1])
}

func TestGenerateSelectedFields(t *testing.T) {
	csv, err := Generate([]*Row{sampleRow()}, []string{"subject", "customer_email", "comments_count"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Subject,Customer Email,Comments Count", lines[0])
	assert.Equal(t, "Printer on fire,casey@example.com,3", lines[1])
}

func TestGenerateSkipsUnknownFields(t *testing.T) {
	csv, err := Generate([]*Row{sampleRow()}, []string{"subject", "favorite_color"})
	require.NoError(t, err)
	assert.Equal(t, "Subject\nPrinter on fire\n", csv)
}

func TestGenerateEmptyRowSet(t *testing.T) {
	csv, err := Generate(nil, []string{"id", "subject"})
	require.NoError(t, err)
	assert.Equal(t, "ID,Subject\n", csv)
}

func TestGenerateNilAgentAndClosedAt(t *testing.T) {
	row := sampleRow()
	row.AgentName = nil
	row.ClosedAt = nil

	csv, err := Generate([]*Row{row}, []string{"assigned_agent", "closed_at"})
	require.NoError(t, err)
	assert.Equal(t, "Assigned Agent,Closed At\n,\n", csv)
}

func TestGenerateTruncatesDescription(t *testing.T) {
	row := sampleRow()
	row.Ticket.Description = strings.Repeat("x", 250)

	csv, err := Generate([]*Row{row}, []string{"description"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, lines[1], 200)
	assert.True(t, strings.HasSuffix(lines[1], "..."))

	// At the limit nothing is cut.
	row.Ticket.Description = strings.Repeat("x", 200)
	csv, err = Generate([]*Row{row}, []string{"description"})
	require.NoError(t, err)
	assert.NotContains(t, csv, "...")
}

func TestValidField(t *testing.T) {
	for _, name := range AvailableFieldNames() {
		assert.True(t, ValidField(name), name)
	}
	assert.False(t, ValidField("favorite_color"))
}

func TestDefaultFieldsAreValid(t *testing.T) {
	for _, name := range DefaultFields {
		assert.True(t, ValidField(name), name)
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "closed_tickets_2026-03-02.csv", FileName(now))
}

func TestLoaderCollect(t *testing.T) {
	ctx := context.Background()
	f := repotest.NewFixture()
	history := audit.NewService(f.Audits, f.Agents)
	loader := NewLoader(f.Store(), history)

	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	agent := f.SeedAgent(domain.Agent{Name: "Dana", Email: "dana@example.com"})

	closed := f.SeedTicket(domain.Ticket{
		CustomerID:      customer.ID,
		AssignedAgentID: &agent.ID,
		Subject:         "Broken printer",
		Status:          domain.TicketStatusInProgress,
	})
	closed.Status = domain.TicketStatusClosed
	require.NoError(t, f.Tickets.Update(ctx, &closed, nil))

	// Still open, must not appear.
	f.SeedTicket(domain.Ticket{
		CustomerID: customer.ID,
		Subject:    "Open one",
		Status:     domain.TicketStatusNew,
	})

	rows, err := loader.Collect(ctx, repository.ClosedTicketFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, closed.ID, rows[0].Ticket.ID)
	assert.Equal(t, "Casey", rows[0].CustomerName)
	assert.Equal(t, "casey@example.com", rows[0].CustomerEmail)
	require.NotNil(t, rows[0].AgentName)
	assert.Equal(t, "Dana", *rows[0].AgentName)
	require.NotNil(t, rows[0].ClosedAt, "close time derived from the audit stream")
}

func TestLoaderCollectHonorsFilter(t *testing.T) {
	ctx := context.Background()
	f := repotest.NewFixture()
	history := audit.NewService(f.Audits, f.Agents)
	loader := NewLoader(f.Store(), history)

	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	other := f.SeedCustomer(domain.Customer{Name: "Riley", Email: "riley@example.com"})

	f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Mine", Status: domain.TicketStatusClosed})
	f.SeedTicket(domain.Ticket{CustomerID: other.ID, Subject: "Theirs", Status: domain.TicketStatusClosed})

	rows, err := loader.Collect(ctx, repository.ClosedTicketFilter{CustomerID: &customer.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Mine", rows[0].Ticket.Subject)
}
