package jobs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
	"github.com/spec-kit/tix-api/internal/repository/repotest"
)

type capturedExport struct {
	name     string
	email    string
	fileName string
	csvData  string
}

type captureMailer struct {
	exports []capturedExport
	digests int
}

func (m *captureMailer) ResetPasswordInstructions(context.Context, domain.ActorType, string, string, string) error {
	return nil
}

func (m *captureMailer) InvitationInstructions(context.Context, string, string, string) error {
	return nil
}

func (m *captureMailer) ClosedTicketsExport(_ context.Context, name, email, fileName, csvData string) error {
	m.exports = append(m.exports, capturedExport{name: name, email: email, fileName: fileName, csvData: csvData})
	return nil
}

func (m *captureMailer) OpenTicketsDigest(context.Context, string, string, []domain.Ticket) error {
	m.digests++
	return nil
}

func TestExportRunnerDeliversCSV(t *testing.T) {
	ctx := context.Background()
	f := repotest.NewFixture()
	mailer := &captureMailer{}
	runner := NewExportRunner(f.Store(), audit.NewService(f.Audits, f.Agents), mailer, zap.NewNop())
	runner.now = f.Now

	agent := f.SeedAgent(domain.Agent{Name: "Dana", Email: "dana@example.com"})
	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Closed one", Status: domain.TicketStatusClosed})
	f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Still open", Status: domain.TicketStatusNew})

	require.NoError(t, runner.Run(ctx, &ExportTask{
		AgentID: agent.ID,
		Fields:  []string{"subject", "customer_name"},
	}))

	require.Len(t, mailer.exports, 1)
	delivery := mailer.exports[0]
	assert.Equal(t, "Dana", delivery.name)
	assert.Equal(t, "dana@example.com", delivery.email)
	assert.True(t, strings.HasPrefix(delivery.fileName, "closed_tickets_"))
	assert.True(t, strings.HasSuffix(delivery.fileName, ".csv"))
	assert.Contains(t, delivery.csvData, "Closed one,Casey")
	assert.NotContains(t, delivery.csvData, "Still open")
}

func TestExportRunnerHonorsFilter(t *testing.T) {
	ctx := context.Background()
	f := repotest.NewFixture()
	mailer := &captureMailer{}
	runner := NewExportRunner(f.Store(), audit.NewService(f.Audits, f.Agents), mailer, zap.NewNop())

	agent := f.SeedAgent(domain.Agent{Name: "Dana", Email: "dana@example.com"})
	customer := f.SeedCustomer(domain.Customer{Name: "Casey", Email: "casey@example.com"})
	other := f.SeedCustomer(domain.Customer{Name: "Riley", Email: "riley@example.com"})
	f.SeedTicket(domain.Ticket{CustomerID: customer.ID, Subject: "Mine", Status: domain.TicketStatusClosed})
	f.SeedTicket(domain.Ticket{CustomerID: other.ID, Subject: "Theirs", Status: domain.TicketStatusClosed})

	require.NoError(t, runner.Run(ctx, &ExportTask{
		AgentID: agent.ID,
		Fields:  []string{"subject"},
		Filter:  repository.ClosedTicketFilter{CustomerID: &customer.ID},
	}))

	require.Len(t, mailer.exports, 1)
	assert.Contains(t, mailer.exports[0].csvData, "Mine")
	assert.NotContains(t, mailer.exports[0].csvData, "Theirs")
}

func TestExportRunnerUnknownAgent(t *testing.T) {
	f := repotest.NewFixture()
	runner := NewExportRunner(f.Store(), audit.NewService(f.Audits, f.Agents), &captureMailer{}, zap.NewNop())

	err := runner.Run(context.Background(), &ExportTask{AgentID: "no-such-agent"})
	assert.Error(t, err)
}
