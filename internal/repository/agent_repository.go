package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tix-api/internal/domain"
)

// AgentRepository encapsulates agent persistence. Creates and updates
// append audit records with the acting actor, same as tickets.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent, actor *domain.ActorRef) error
	Update(ctx context.Context, agent *domain.Agent, actor *domain.ActorRef) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	GetByInvitationToken(ctx context.Context, token string) (*domain.Agent, error)
	GetByResetToken(ctx context.Context, token string) (*domain.Agent, error)
	// NextForAssignment picks the active non-admin agent with the oldest
	// last_assigned_at, treating never-assigned as oldest. The row is
	// locked for the transaction; concurrently locked rows are skipped.
	NextForAssignment(ctx context.Context) (*domain.Agent, error)
	TouchLastAssigned(ctx context.Context, id string, at time.Time) error
	ListWithOpenTickets(ctx context.Context) ([]domain.Agent, error)
}

type agentRepository struct {
	db     DB
	audits AuditRepository
}

// NewAgentRepository builds the repository.
func NewAgentRepository(db DB, audits AuditRepository) AgentRepository {
	return &agentRepository{db: db, audits: audits}
}

const agentColumns = `id, name, email, password_hash, is_admin, invited_by_id, invitation_token,
               invitation_accepted_at, reset_password_token, reset_password_sent_at,
               last_assigned_at, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent, actor *domain.ActorRef) error {
	const query = `
        INSERT INTO agents (name, email, password_hash, is_admin, invited_by_id, invitation_token)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.IsAdmin,
		agent.InvitedByID,
		agent.InvitationToken,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt); err != nil {
		return err
	}

	changes := changeSet{}
	changes.set("name", nil, strValue(agent.Name))
	changes.set("email", nil, strValue(agent.Email))
	changes.setBool("is_admin", false, agent.IsAdmin)
	if agent.InvitedByID != nil {
		changes.set("invited_by_id", nil, agent.InvitedByID)
	}
	if agent.InvitationToken != nil {
		changes.set("invitation_token", nil, agent.InvitationToken)
	}
	return r.audits.Append(ctx, &domain.AuditRecord{
		EntityType: domain.EntityAgent,
		EntityID:   agent.ID,
		Action:     domain.AuditActionCreate,
		Changes:    changes,
		Actor:      actor,
	})
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent, actor *domain.ActorRef) error {
	current, err := r.GetByID(ctx, agent.ID)
	if err != nil {
		return err
	}

	const query = `
        UPDATE agents SET name=$1, email=$2, password_hash=$3, is_admin=$4, invitation_token=$5,
            invitation_accepted_at=$6, reset_password_token=$7, reset_password_sent_at=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`
	if err := r.db.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.IsAdmin,
		agent.InvitationToken,
		agent.InvitationAcceptedAt,
		agent.ResetPasswordToken,
		agent.ResetPasswordSentAt,
		agent.ID,
	).Scan(&agent.UpdatedAt); err != nil {
		return err
	}

	changes := changeSet{}
	changes.setStr("name", current.Name, agent.Name)
	changes.setStr("email", current.Email, agent.Email)
	changes.setStr("password_hash", current.PasswordHash, agent.PasswordHash)
	changes.setBool("is_admin", current.IsAdmin, agent.IsAdmin)
	changes.setPtr("invitation_token", current.InvitationToken, agent.InvitationToken)
	changes.setTimePtr("invitation_accepted_at", current.InvitationAcceptedAt, agent.InvitationAcceptedAt)
	changes.setPtr("reset_password_token", current.ResetPasswordToken, agent.ResetPasswordToken)
	changes.setTimePtr("reset_password_sent_at", current.ResetPasswordSentAt, agent.ResetPasswordSentAt)
	if len(changes) == 0 {
		return nil
	}
	return r.audits.Append(ctx, &domain.AuditRecord{
		EntityType: domain.EntityAgent,
		EntityID:   agent.ID,
		Action:     domain.AuditActionUpdate,
		Changes:    changes,
		Actor:      actor,
	})
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1`, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *agentRepository) GetByInvitationToken(ctx context.Context, token string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE invitation_token=$1`, token)
}

func (r *agentRepository) GetByResetToken(ctx context.Context, token string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents WHERE reset_password_token=$1`, token)
}

func (r *agentRepository) NextForAssignment(ctx context.Context) (*domain.Agent, error) {
	// Never-assigned agents sort first (NULLS FIRST), then oldest
	// assignment wins. SKIP LOCKED keeps concurrent assignment attempts
	// from picking the same agent.
	query := `SELECT ` + agentColumns + `
        FROM agents
        WHERE is_admin = FALSE
          AND (invitation_token IS NULL OR invitation_accepted_at IS NOT NULL)
        ORDER BY last_assigned_at ASC NULLS FIRST
        LIMIT 1
        FOR UPDATE SKIP LOCKED`
	agent, err := r.fetchSingle(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// TouchLastAssigned stamps last_assigned_at without producing an audit
// record, matching the touch semantics of manual and automatic
// assignment.
func (r *agentRepository) TouchLastAssigned(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE agents SET last_assigned_at=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) ListWithOpenTickets(ctx context.Context) ([]domain.Agent, error) {
	query := `SELECT DISTINCT ` + prefixColumns("a", agentColumns) + `
        FROM agents a
        JOIN tickets t ON t.assigned_agent_id = a.id
        WHERE t.status <> 'closed'`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	var row pgx.Row
	if arg == nil {
		row = r.db.QueryRow(ctx, query)
	} else {
		row = r.db.QueryRow(ctx, query, arg)
	}
	return scanAgent(row)
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.IsAdmin,
		&agent.InvitedByID,
		&agent.InvitationToken,
		&agent.InvitationAcceptedAt,
		&agent.ResetPasswordToken,
		&agent.ResetPasswordSentAt,
		&agent.LastAssignedAt,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
