package repository

import (
	"context"
	"time"

	"github.com/spec-kit/tix-api/internal/domain"
)

// RefreshTokenRepository manages refresh-token records keyed by digest.
// Only the one-way digest is ever stored.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByDigest(ctx context.Context, digest string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository builds the repository.
func NewRefreshTokenRepository(db DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (actor_type, actor_id, token_digest, expires_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		token.ActorType,
		token.ActorID,
		token.TokenDigest,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *refreshTokenRepository) GetByDigest(ctx context.Context, digest string) (*domain.RefreshToken, error) {
	const query = `
        SELECT id, actor_type, actor_id, token_digest, expires_at, revoked_at, created_at
        FROM refresh_tokens WHERE token_digest=$1`
	var token domain.RefreshToken
	if err := r.db.QueryRow(ctx, query, digest).Scan(
		&token.ID,
		&token.ActorType,
		&token.ActorID,
		&token.TokenDigest,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

// Revoke stamps revoked_at once; already-revoked rows keep their
// original timestamp, making revocation idempotent.
func (r *refreshTokenRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked_at=$1 WHERE id=$2 AND revoked_at IS NULL`
	if _, err := r.db.Exec(ctx, query, at, id); err != nil {
		return err
	}
	return nil
}

// DeleteDeadBefore removes tokens revoked or expired whose record is
// older than the cutoff. Maintenance only; never called on the request
// path.
func (r *refreshTokenRepository) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
        DELETE FROM refresh_tokens
        WHERE (revoked_at IS NOT NULL OR expires_at <= NOW())
          AND created_at < $1`
	cmd, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
