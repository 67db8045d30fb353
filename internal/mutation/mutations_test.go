package mutation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/config"
	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/events"
	"github.com/spec-kit/tix-api/internal/jobs"
	"github.com/spec-kit/tix-api/internal/repository/repotest"
	"github.com/spec-kit/tix-api/internal/session"
)

type fakeQueue struct {
	mu    sync.Mutex
	tasks []jobs.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task jobs.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) taskTypes() []jobs.TaskType {
	q.mu.Lock()
	defer q.mu.Unlock()
	types := make([]jobs.TaskType, len(q.tasks))
	for i, task := range q.tasks {
		types[i] = task.Type
	}
	return types
}

type mailDelivery struct {
	kind  string
	email string
	token string
}

type fakeMailer struct {
	mu         sync.Mutex
	deliveries []mailDelivery
}

func (m *fakeMailer) ResetPasswordInstructions(_ context.Context, _ domain.ActorType, _, email, token string) error {
	m.record("reset", email, token)
	return nil
}

func (m *fakeMailer) InvitationInstructions(_ context.Context, _, email, token string) error {
	m.record("invitation", email, token)
	return nil
}

func (m *fakeMailer) ClosedTicketsExport(_ context.Context, _, email, _, _ string) error {
	m.record("export", email, "")
	return nil
}

func (m *fakeMailer) OpenTicketsDigest(_ context.Context, _, email string, _ []domain.Ticket) error {
	m.record("digest", email, "")
	return nil
}

func (m *fakeMailer) record(kind, email, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, mailDelivery{kind: kind, email: email, token: token})
}

func (m *fakeMailer) sent() []mailDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailDelivery(nil), m.deliveries...)
}

// testEnv wires the mutation handlers against the in-memory store with
// recording fakes on every outbound edge.
type testEnv struct {
	f      *repotest.Fixture
	exec   *Executor
	muts   *Mutations
	queue  *fakeQueue
	mailer *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	f := repotest.NewFixture()
	queue := &fakeQueue{}
	mailer := &fakeMailer{}
	logger := zap.NewNop()

	muts := NewMutations(Dependencies{
		Sessions:   session.NewManager(time.Hour, logger),
		Tokens:     auth.NewTokenManager("test-secret", 15),
		Queue:      queue,
		History:    audit.NewService(f.Audits, f.Agents),
		Dispatcher: events.NewInMemoryDispatcher(logger),
		Mailer:     mailer,
		Logger:     logger,
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   15,
			PasswordResetTTLMinutes: 60,
			BcryptCost:              bcrypt.MinCost,
		},
		Export: config.ExportConfig{SyncThreshold: 2},
	})
	return &testEnv{
		f:      f,
		exec:   NewExecutor(f.Store(), logger, nil, false),
		muts:   muts,
		queue:  queue,
		mailer: mailer,
	}
}

func (e *testEnv) run(t *testing.T, name string, req Requirement, actor *domain.Actor, fn Handler) *Response {
	t.Helper()
	return e.exec.Execute(context.Background(), name, req, actor, fn)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func (e *testEnv) seedCustomer(t *testing.T, email, password string) domain.Customer {
	t.Helper()
	return e.f.SeedCustomer(domain.Customer{
		Name:         "Casey",
		Email:        email,
		PasswordHash: mustHash(t, password),
	})
}

func (e *testEnv) seedAgent(t *testing.T, email, password string, admin bool) domain.Agent {
	t.Helper()
	return e.f.SeedAgent(domain.Agent{
		Name:         "Dana",
		Email:        email,
		PasswordHash: mustHash(t, password),
		IsAdmin:      admin,
	})
}

func (e *testEnv) seedPendingAgent(t *testing.T, email, token string) domain.Agent {
	t.Helper()
	return e.f.SeedAgent(domain.Agent{
		Name:            "Pending Pat",
		Email:           email,
		InvitationToken: &token,
	})
}

func fieldMessages(resp *Response, field string) []string {
	var out []string
	for _, fe := range resp.Errors {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}
