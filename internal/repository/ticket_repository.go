package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tix-api/internal/domain"
)

// ClosedTicketFilter narrows the closed-ticket export scope.
type ClosedTicketFilter struct {
	AssignedAgentID *string
	CustomerID      *string
	Search          *string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}

// TicketRepository encapsulates ticket persistence. Every write takes
// the acting actor explicitly and appends a field-diff audit record in
// the same transaction; handlers never construct audit rows themselves.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, actor *domain.ActorRef) error
	Update(ctx context.Context, ticket *domain.Ticket, actor *domain.ActorRef) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListClosed(ctx context.Context, filter ClosedTicketFilter) ([]domain.Ticket, error)
	CountClosed(ctx context.Context, filter ClosedTicketFilter) (int, error)
	ListOpenByAgent(ctx context.Context, agentID string) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db     DB
	audits AuditRepository
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(db DB, audits AuditRepository) TicketRepository {
	return &ticketRepository{db: db, audits: audits}
}

const ticketColumns = `id, ticket_number, customer_id, assigned_agent_id, subject, description, status, comments_count, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, actor *domain.ActorRef) error {
	const query = `
        INSERT INTO tickets (ticket_number, customer_id, assigned_agent_id, subject, description, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CustomerID,
		ticket.AssignedAgentID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	changes := changeSet{}
	changes.set("ticket_number", nil, strValue(ticket.TicketNumber))
	changes.set("customer_id", nil, strValue(ticket.CustomerID))
	changes.set("subject", nil, strValue(ticket.Subject))
	changes.set("description", nil, strValue(ticket.Description))
	changes.set("status", nil, strValue(string(ticket.Status)))
	if ticket.AssignedAgentID != nil {
		changes.set("assigned_agent_id", nil, ticket.AssignedAgentID)
	}
	return r.audits.Append(ctx, &domain.AuditRecord{
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		Action:     domain.AuditActionCreate,
		Changes:    changes,
		Actor:      actor,
	})
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, actor *domain.ActorRef) error {
	current, err := r.GetByIDForUpdate(ctx, ticket.ID)
	if err != nil {
		return err
	}

	const query = `
        UPDATE tickets SET assigned_agent_id=$1, subject=$2, description=$3, status=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := r.db.QueryRow(ctx, query,
		ticket.AssignedAgentID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}

	changes := changeSet{}
	changes.setStr("subject", current.Subject, ticket.Subject)
	changes.setStr("description", current.Description, ticket.Description)
	changes.setStr("status", string(current.Status), string(ticket.Status))
	changes.setPtr("assigned_agent_id", current.AssignedAgentID, ticket.AssignedAgentID)
	if len(changes) == 0 {
		return nil
	}
	return r.audits.Append(ctx, &domain.AuditRecord{
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		Action:     domain.AuditActionUpdate,
		Changes:    changes,
		Actor:      actor,
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

// GetByIDForUpdate locks the ticket row for the remainder of the
// transaction, serializing concurrent writers on the same ticket.
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CustomerID,
		&ticket.AssignedAgentID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.CommentsCount,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListClosed(ctx context.Context, filter ClosedTicketFilter) ([]domain.Ticket, error) {
	clauses, args := closedTicketClauses(filter)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountClosed(ctx context.Context, filter ClosedTicketFilter) (int, error) {
	clauses, args := closedTicketClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))
	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) ListOpenByAgent(ctx context.Context, agentID string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE assigned_agent_id=$1 AND status <> 'closed' ORDER BY created_at ASC`, ticketColumns)
	rows, err := r.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func closedTicketClauses(filter ClosedTicketFilter) ([]string, []any) {
	clauses := []string{"status = 'closed'"}
	args := []any{}

	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		clauses = append(clauses, fmt.Sprintf("LOWER(subject) LIKE $%d", len(args)))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return clauses, args
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.CustomerID,
			&ticket.AssignedAgentID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Status,
			&ticket.CommentsCount,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
