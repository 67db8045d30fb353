package repository

import (
	"context"

	"github.com/spec-kit/tix-api/internal/domain"
)

// CommentRepository stores ticket comments. Creating a comment bumps the
// ticket's counter cache in the same transaction.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
	HasAgentComment(ctx context.Context, ticketID string) (bool, error)
}

type commentRepository struct {
	db DB
}

// NewCommentRepository builds the repository.
func NewCommentRepository(db DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, author_type, author_id, body)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if err := r.db.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorType,
		comment.AuthorID,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `UPDATE tickets SET comments_count = comments_count + 1 WHERE id=$1`, comment.TicketID)
	return err
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, author_type, author_id, body, created_at
        FROM comments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorType,
			&comment.AuthorID,
			&comment.Body,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) HasAgentComment(ctx context.Context, ticketID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM comments WHERE ticket_id=$1 AND author_type=$2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, ticketID, domain.ActorTypeAgent).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
