package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tix-api/internal/domain"
)

// AuditRepository stores the append-only change log. Records are never
// updated or deleted; version numbers are assigned here, inside the same
// transaction as the entity write, so they stay gapless per entity.
type AuditRepository interface {
	Append(ctx context.Context, record *domain.AuditRecord) error
	ListByEntity(ctx context.Context, entityType domain.AuditEntityType, entityID string) ([]domain.AuditRecord, error)
	ClosedAt(ctx context.Context, ticketID string) (*time.Time, error)
}

type auditRepository struct {
	db DB
}

// NewAuditRepository builds the repository.
func NewAuditRepository(db DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, record *domain.AuditRecord) error {
	const query = `
        INSERT INTO audit_records (entity_type, entity_id, action, changes, actor_type, actor_id, version)
        VALUES ($1,$2,$3,$4,$5,$6,
            (SELECT COALESCE(MAX(version),0)+1 FROM audit_records WHERE entity_type=$1 AND entity_id=$2))
        RETURNING id, version, created_at`
	var actorType, actorID *string
	if record.Actor != nil {
		t := string(record.Actor.Type)
		actorType = &t
		actorID = &record.Actor.ID
	}
	return r.db.QueryRow(ctx, query,
		record.EntityType,
		record.EntityID,
		record.Action,
		record.Changes,
		actorType,
		actorID,
	).Scan(&record.ID, &record.Version, &record.CreatedAt)
}

// ListByEntity returns records newest-first (version descending).
func (r *auditRepository) ListByEntity(ctx context.Context, entityType domain.AuditEntityType, entityID string) ([]domain.AuditRecord, error) {
	const query = `
        SELECT id, entity_type, entity_id, action, changes, actor_type, actor_id, version, created_at
        FROM audit_records
        WHERE entity_type=$1 AND entity_id=$2
        ORDER BY version DESC`
	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRecords(rows)
}

// ClosedAt derives the close timestamp from the audit stream: the latest
// record whose status change lands on "closed". Nil when the ticket was
// never closed.
func (r *auditRepository) ClosedAt(ctx context.Context, ticketID string) (*time.Time, error) {
	const query = `
        SELECT created_at FROM audit_records
        WHERE entity_type='Ticket' AND entity_id=$1 AND changes->'status'->>'to' = 'closed'
        ORDER BY version DESC LIMIT 1`
	var ts time.Time
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(&ts); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &ts, nil
}

func scanAuditRecords(rows pgx.Rows) ([]domain.AuditRecord, error) {
	var result []domain.AuditRecord
	for rows.Next() {
		var (
			record    domain.AuditRecord
			actorType *string
			actorID   *string
		)
		if err := rows.Scan(
			&record.ID,
			&record.EntityType,
			&record.EntityID,
			&record.Action,
			&record.Changes,
			&actorType,
			&actorID,
			&record.Version,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		if actorType != nil && actorID != nil {
			record.Actor = &domain.ActorRef{Type: domain.ActorType(*actorType), ID: *actorID}
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
