// Package repotest provides in-memory repository fakes behind a
// pool-less *repository.Store. WithinTx on such a store runs the
// closure inline, so mutation handlers exercise the same code path in
// tests that they take in production, minus the database.
//
// The fakes mirror the SQL repositories' observable behavior: audit
// records are appended on every write with the same field diffs,
// unique constraints surface as *pgconn.PgError with code 23505, and
// misses return pgx.ErrNoRows.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
)

// Fixture owns all in-memory state. Every repository fake shares it, so
// cross-entity reads (open tickets per agent, audit versions) stay
// consistent the way a single database would.
type Fixture struct {
	mu sync.Mutex

	clock time.Time

	customers map[string]domain.Customer
	agents    map[string]domain.Agent
	tickets   map[string]domain.Ticket
	comments  []domain.Comment
	audits    []domain.AuditRecord
	tokens    map[string]domain.RefreshToken

	Customers *CustomerRepo
	Agents    *AgentRepo
	Tickets   *TicketRepo
	Comments  *CommentRepo
	Audits    *AuditRepo
	Tokens    *RefreshTokenRepo
}

// NewFixture builds an empty fixture with a deterministic clock.
func NewFixture() *Fixture {
	f := &Fixture{
		clock:     time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		customers: map[string]domain.Customer{},
		agents:    map[string]domain.Agent{},
		tickets:   map[string]domain.Ticket{},
		tokens:    map[string]domain.RefreshToken{},
	}
	f.Customers = &CustomerRepo{f: f}
	f.Agents = &AgentRepo{f: f}
	f.Tickets = &TicketRepo{f: f}
	f.Comments = &CommentRepo{f: f}
	f.Audits = &AuditRepo{f: f}
	f.Tokens = &RefreshTokenRepo{f: f}
	return f
}

// Store wraps the fakes in a pool-less repository.Store.
func (f *Fixture) Store() *repository.Store {
	return &repository.Store{
		Customers:     f.Customers,
		Agents:        f.Agents,
		Tickets:       f.Tickets,
		Comments:      f.Comments,
		Audits:        f.Audits,
		RefreshTokens: f.Tokens,
	}
}

// Now returns the fixture clock without advancing it.
func (f *Fixture) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

// tick advances the clock so consecutive writes get distinct, ordered
// timestamps. Callers must hold mu.
func (f *Fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *Fixture) appendAuditLocked(record *domain.AuditRecord) {
	version := 0
	for _, r := range f.audits {
		if r.EntityType == record.EntityType && r.EntityID == record.EntityID && r.Version > version {
			version = r.Version
		}
	}
	record.ID = uuid.NewString()
	record.Version = version + 1
	record.CreatedAt = f.tick()
	f.audits = append(f.audits, cloneRecord(*record))
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// SeedCustomer inserts a customer directly, without an audit record.
func (f *Fixture) SeedCustomer(c domain.Customer) domain.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = f.tick()
		c.UpdatedAt = c.CreatedAt
	}
	f.customers[c.ID] = c
	return c
}

// SeedAgent inserts an agent directly, without an audit record.
func (f *Fixture) SeedAgent(a domain.Agent) domain.Agent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = f.tick()
		a.UpdatedAt = a.CreatedAt
	}
	f.agents[a.ID] = a
	return a
}

// SeedTicket inserts a ticket directly, without an audit record.
func (f *Fixture) SeedTicket(t domain.Ticket) domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.TicketNumber == "" {
		t.TicketNumber = domain.GenerateTicketNumber()
	}
	if t.Status == "" {
		t.Status = domain.TicketStatusNew
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = f.tick()
		t.UpdatedAt = t.CreatedAt
	}
	f.tickets[t.ID] = t
	return t
}

// SeedToken inserts a refresh token directly, preserving any preset
// timestamps.
func (f *Fixture) SeedToken(t domain.RefreshToken) domain.RefreshToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = f.tick()
	}
	f.tokens[t.ID] = t
	return t
}

// AuditRecords returns a copy of every appended record, oldest first.
func (f *Fixture) AuditRecords() []domain.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditRecord, 0, len(f.audits))
	for _, r := range f.audits {
		out = append(out, cloneRecord(r))
	}
	return out
}

func cloneRecord(r domain.AuditRecord) domain.AuditRecord {
	changes := make(map[string]domain.FieldChange, len(r.Changes))
	for k, v := range r.Changes {
		changes[k] = v
	}
	r.Changes = changes
	if r.Actor != nil {
		actor := *r.Actor
		r.Actor = &actor
	}
	return r
}

// CustomerRepo is the in-memory repository.CustomerRepository.
type CustomerRepo struct {
	f *Fixture
}

func (r *CustomerRepo) Create(_ context.Context, customer *domain.Customer, actor *domain.ActorRef) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.customers {
		if strings.EqualFold(existing.Email, customer.Email) {
			return uniqueViolation("customers_email_lower_key")
		}
	}
	customer.ID = uuid.NewString()
	customer.CreatedAt = r.f.tick()
	customer.UpdatedAt = customer.CreatedAt
	r.f.customers[customer.ID] = *customer

	r.f.appendAuditLocked(&domain.AuditRecord{
		EntityType: domain.EntityCustomer,
		EntityID:   customer.ID,
		Action:     domain.AuditActionCreate,
		Changes: map[string]domain.FieldChange{
			"name":          {To: strPtr(customer.Name)},
			"email":         {To: strPtr(customer.Email)},
			"password_hash": {To: strPtr(customer.PasswordHash)},
		},
		Actor: actor,
	})
	return nil
}

func (r *CustomerRepo) Update(_ context.Context, customer *domain.Customer, actor *domain.ActorRef) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	current, ok := r.f.customers[customer.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	customer.UpdatedAt = r.f.tick()
	r.f.customers[customer.ID] = *customer

	changes := map[string]domain.FieldChange{}
	diffStr(changes, "name", current.Name, customer.Name)
	diffStr(changes, "email", current.Email, customer.Email)
	diffStr(changes, "password_hash", current.PasswordHash, customer.PasswordHash)
	diffPtr(changes, "reset_password_token", current.ResetPasswordToken, customer.ResetPasswordToken)
	diffTime(changes, "reset_password_sent_at", current.ResetPasswordSentAt, customer.ResetPasswordSentAt)
	if len(changes) == 0 {
		return nil
	}
	r.f.appendAuditLocked(&domain.AuditRecord{
		EntityType: domain.EntityCustomer,
		EntityID:   customer.ID,
		Action:     domain.AuditActionUpdate,
		Changes:    changes,
		Actor:      actor,
	})
	return nil
}

func (r *CustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	c, ok := r.f.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *CustomerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, c := range r.f.customers {
		if strings.EqualFold(c.Email, email) {
			out := c
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *CustomerRepo) GetByResetToken(_ context.Context, token string) (*domain.Customer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, c := range r.f.customers {
		if c.ResetPasswordToken != nil && *c.ResetPasswordToken == token {
			out := c
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// AgentRepo is the in-memory repository.AgentRepository.
type AgentRepo struct {
	f *Fixture
}

func (r *AgentRepo) Create(_ context.Context, agent *domain.Agent, actor *domain.ActorRef) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.agents {
		if strings.EqualFold(existing.Email, agent.Email) {
			return uniqueViolation("agents_email_lower_key")
		}
	}
	agent.ID = uuid.NewString()
	agent.CreatedAt = r.f.tick()
	agent.UpdatedAt = agent.CreatedAt
	r.f.agents[agent.ID] = *agent

	changes := map[string]domain.FieldChange{
		"name":  {To: strPtr(agent.Name)},
		"email": {To: strPtr(agent.Email)},
	}
	if agent.IsAdmin {
		changes["is_admin"] = domain.FieldChange{From: strPtr("false"), To: strPtr("true")}
	}
	if agent.InvitedByID != nil {
		changes["invited_by_id"] = domain.FieldChange{To: agent.InvitedByID}
	}
	if agent.InvitationToken != nil {
		changes["invitation_token"] = domain.FieldChange{To: agent.InvitationToken}
	}
	r.f.appendAuditLocked(&domain.AuditRecord{
		EntityType: domain.EntityAgent,
		EntityID:   agent.ID,
		Action:     domain.AuditActionCreate,
		Changes:    changes,
		Actor:      actor,
	})
	return nil
}

func (r *AgentRepo) Update(_ context.Context, agent *domain.Agent, actor *domain.ActorRef) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	current, ok := r.f.agents[agent.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	agent.UpdatedAt = r.f.tick()
	r.f.agents[agent.ID] = *agent

	changes := map[string]domain.FieldChange{}
	diffStr(changes, "name", current.Name, agent.Name)
	diffStr(changes, "email", current.Email, agent.Email)
	diffStr(changes, "password_hash", current.PasswordHash, agent.PasswordHash)
	diffPtr(changes, "invitation_token", current.InvitationToken, agent.InvitationToken)
	diffTime(changes, "invitation_accepted_at", current.InvitationAcceptedAt, agent.InvitationAcceptedAt)
	diffPtr(changes, "reset_password_token", current.ResetPasswordToken, agent.ResetPasswordToken)
	diffTime(changes, "reset_password_sent_at", current.ResetPasswordSentAt, agent.ResetPasswordSentAt)
	if len(changes) == 0 {
		return nil
	}
	r.f.appendAuditLocked(&domain.AuditRecord{
		EntityType: domain.EntityAgent,
		EntityID:   agent.ID,
		Action:     domain.AuditActionUpdate,
		Changes:    changes,
		Actor:      actor,
	})
	return nil
}

func (r *AgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a, ok := r.f.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (r *AgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, a := range r.f.agents {
		if strings.EqualFold(a.Email, email) {
			out := a
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *AgentRepo) GetByInvitationToken(_ context.Context, token string) (*domain.Agent, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, a := range r.f.agents {
		if a.InvitationToken != nil && *a.InvitationToken == token {
			out := a
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *AgentRepo) GetByResetToken(_ context.Context, token string) (*domain.Agent, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, a := range r.f.agents {
		if a.ResetPasswordToken != nil && *a.ResetPasswordToken == token {
			out := a
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *AgentRepo) NextForAssignment(_ context.Context) (*domain.Agent, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var candidates []domain.Agent
	for _, a := range r.f.agents {
		if a.IsAdmin {
			continue
		}
		if !a.Active() {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return nil, pgx.ErrNoRows
	}
	// Never-assigned sorts first, then oldest assignment.
	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := candidates[i].LastAssignedAt, candidates[j].LastAssignedAt
		switch {
		case li == nil && lj == nil:
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		case li == nil:
			return true
		case lj == nil:
			return false
		default:
			return li.Before(*lj)
		}
	})
	out := candidates[0]
	return &out, nil
}

func (r *AgentRepo) TouchLastAssigned(_ context.Context, id string, at time.Time) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a, ok := r.f.agents[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.LastAssignedAt = &at
	a.UpdatedAt = r.f.tick()
	r.f.agents[id] = a
	return nil
}

func (r *AgentRepo) ListWithOpenTickets(_ context.Context) ([]domain.Agent, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	seen := map[string]struct{}{}
	var out []domain.Agent
	for _, t := range r.f.tickets {
		if t.Status == domain.TicketStatusClosed || t.AssignedAgentID == nil {
			continue
		}
		if _, ok := seen[*t.AssignedAgentID]; ok {
			continue
		}
		if a, ok := r.f.agents[*t.AssignedAgentID]; ok {
			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// TicketRepo is the in-memory repository.TicketRepository.
type TicketRepo struct {
	f *Fixture

	// CreateCollisions makes the next N Create calls fail with the
	// ticket-number unique violation regardless of actual numbers.
	CreateCollisions int
}

func (r *TicketRepo) Create(_ context.Context, ticket *domain.Ticket, actor *domain.ActorRef) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if r.CreateCollisions > 0 {
		r.CreateCollisions--
		return uniqueViolation("tickets_ticket_number_key")
	}
	for _, existing := range r.f.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return uniqueViolation("tickets_ticket_number_key")
		}
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = r.f.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	r.f.tickets[ticket.ID] = *ticket

	changes := map[string]domain.FieldChange{
		"ticket_number": {To: strPtr(ticket.TicketNumber)},
		"customer_id":   {To: strPtr(ticket.CustomerID)},
		"subject":       {To: strPtr(ticket.Subject)},
		"description":   {To: strPtr(ticket.Description)},
		"status":        {To: strPtr(string(ticket.Status))},
	}
	if ticket.AssignedAgentID != nil {
		changes["assigned_agent_id"] = domain.FieldChange{To: ticket.AssignedAgentID}
	}
	r.f.appendAuditLocked(&domain.AuditRecord{
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		Action:     domain.AuditActionCreate,
		Changes:    changes,
		Actor:      actor,
	})
	return nil
}

func (r *TicketRepo) Update(_ context.Context, ticket *domain.Ticket, actor *domain.ActorRef) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	current, ok := r.f.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.f.tick()
	r.f.tickets[ticket.ID] = *ticket

	changes := map[string]domain.FieldChange{}
	diffStr(changes, "subject", current.Subject, ticket.Subject)
	diffStr(changes, "description", current.Description, ticket.Description)
	diffStr(changes, "status", string(current.Status), string(ticket.Status))
	diffPtr(changes, "assigned_agent_id", current.AssignedAgentID, ticket.AssignedAgentID)
	if len(changes) == 0 {
		return nil
	}
	r.f.appendAuditLocked(&domain.AuditRecord{
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		Action:     domain.AuditActionUpdate,
		Changes:    changes,
		Actor:      actor,
	})
	return nil
}

func (r *TicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	t, ok := r.f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *TicketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *TicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, t := range r.f.tickets {
		if t.TicketNumber == number {
			out := t
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *TicketRepo) ListClosed(_ context.Context, filter repository.ClosedTicketFilter) ([]domain.Ticket, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.f.tickets {
		if matchesClosedFilter(t, filter) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *TicketRepo) CountClosed(_ context.Context, filter repository.ClosedTicketFilter) (int, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	count := 0
	for _, t := range r.f.tickets {
		if matchesClosedFilter(t, filter) {
			count++
		}
	}
	return count, nil
}

func (r *TicketRepo) ListOpenByAgent(_ context.Context, agentID string) ([]domain.Ticket, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.f.tickets {
		if t.Status == domain.TicketStatusClosed {
			continue
		}
		if t.AssignedAgentID == nil || *t.AssignedAgentID != agentID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func matchesClosedFilter(t domain.Ticket, filter repository.ClosedTicketFilter) bool {
	if t.Status != domain.TicketStatusClosed {
		return false
	}
	if filter.AssignedAgentID != nil && (t.AssignedAgentID == nil || *t.AssignedAgentID != *filter.AssignedAgentID) {
		return false
	}
	if filter.CustomerID != nil && t.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.Search != nil {
		needle := strings.ToLower(strings.TrimSpace(*filter.Search))
		if needle != "" && !strings.Contains(strings.ToLower(t.Subject), needle) {
			return false
		}
	}
	if filter.CreatedAfter != nil && t.CreatedAt.Before(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && t.CreatedAt.After(*filter.CreatedBefore) {
		return false
	}
	return true
}

// CommentRepo is the in-memory repository.CommentRepository.
type CommentRepo struct {
	f *Fixture
}

func (r *CommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.tickets[comment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = r.f.tick()
	r.f.comments = append(r.f.comments, *comment)

	t := r.f.tickets[comment.TicketID]
	t.CommentsCount++
	r.f.tickets[comment.TicketID] = t
	return nil
}

func (r *CommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.Comment
	for _, c := range r.f.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *CommentRepo) HasAgentComment(_ context.Context, ticketID string) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, c := range r.f.comments {
		if c.TicketID == ticketID && c.AuthorType == domain.ActorTypeAgent {
			return true, nil
		}
	}
	return false, nil
}

// AuditRepo is the in-memory repository.AuditRepository.
type AuditRepo struct {
	f *Fixture
}

func (r *AuditRepo) Append(_ context.Context, record *domain.AuditRecord) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.appendAuditLocked(record)
	return nil
}

func (r *AuditRepo) ListByEntity(_ context.Context, entityType domain.AuditEntityType, entityID string) ([]domain.AuditRecord, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.AuditRecord
	for _, rec := range r.f.audits {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (r *AuditRepo) ClosedAt(_ context.Context, ticketID string) (*time.Time, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var (
		best        *time.Time
		bestVersion int
	)
	for _, rec := range r.f.audits {
		if rec.EntityType != domain.EntityTicket || rec.EntityID != ticketID {
			continue
		}
		change, ok := rec.Changes["status"]
		if !ok || change.To == nil || *change.To != string(domain.TicketStatusClosed) {
			continue
		}
		if rec.Version > bestVersion {
			ts := rec.CreatedAt
			best = &ts
			bestVersion = rec.Version
		}
	}
	return best, nil
}

// RefreshTokenRepo is the in-memory repository.RefreshTokenRepository.
type RefreshTokenRepo struct {
	f *Fixture
}

func (r *RefreshTokenRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.tokens {
		if existing.TokenDigest == token.TokenDigest {
			return uniqueViolation("refresh_tokens_token_digest_key")
		}
	}
	token.ID = uuid.NewString()
	token.CreatedAt = r.f.tick()
	r.f.tokens[token.ID] = *token
	return nil
}

func (r *RefreshTokenRepo) GetByDigest(_ context.Context, digest string) (*domain.RefreshToken, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, t := range r.f.tokens {
		if t.TokenDigest == digest {
			out := t
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *RefreshTokenRepo) Revoke(_ context.Context, id string, at time.Time) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	t, ok := r.f.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if t.RevokedAt == nil {
		t.RevokedAt = &at
		r.f.tokens[id] = t
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteDeadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	now := r.f.clock
	var deleted int64
	for id, t := range r.f.tokens {
		dead := t.RevokedAt != nil || !t.ExpiresAt.After(now)
		if dead && t.CreatedAt.Before(cutoff) {
			delete(r.f.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

// TokenCount reports how many refresh tokens remain stored.
func (f *Fixture) TokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

func strPtr(s string) *string {
	return &s
}

func diffStr(changes map[string]domain.FieldChange, field, from, to string) {
	if from != to {
		changes[field] = domain.FieldChange{From: strPtr(from), To: strPtr(to)}
	}
}

func diffPtr(changes map[string]domain.FieldChange, field string, from, to *string) {
	if !ptrEq(from, to) {
		changes[field] = domain.FieldChange{From: from, To: to}
	}
}

func diffTime(changes map[string]domain.FieldChange, field string, from, to *time.Time) {
	fs, ts := timePtr(from), timePtr(to)
	if !ptrEq(fs, ts) {
		changes[field] = domain.FieldChange{From: fs, To: ts}
	}
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func ptrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
