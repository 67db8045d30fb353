// Package session implements refresh-token issuance, rotation-on-use,
// revocation and retention sweeping. Only a one-way digest of the raw
// token is ever stored; a refresh token is single-use.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

const rawTokenBytes = 32

// Manager coordinates the refresh-token lifecycle against a store. All
// methods run against whatever store scope the caller passes, so a
// mutation handler's transaction covers issue+revoke as one unit.
type Manager struct {
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewManager builds a manager with the configured token lifetime.
func NewManager(ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{ttl: ttl, logger: logger, now: time.Now}
}

// Digest hashes a raw token for storage or lookup.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Issue creates a refresh token bound to the actor and returns the
// stored record plus the raw value for transport. The raw value is never
// persisted.
func (m *Manager) Issue(ctx context.Context, tokens repository.RefreshTokenRepository, actor *domain.ActorRef) (*domain.RefreshToken, string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)

	record := &domain.RefreshToken{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		TokenDigest: Digest(raw),
		ExpiresAt:   m.now().Add(m.ttl),
	}
	if err := tokens.Create(ctx, record); err != nil {
		return nil, "", apperrors.MapError(err)
	}
	return record, raw, nil
}

// Validate resolves a raw token to a usable record. Unknown digests and
// revoked/expired records both surface the same INVALID_REFRESH_TOKEN
// message to callers, but are distinguished in the log: a revoked hit is
// possible replay of a stolen, already-rotated token.
func (m *Manager) Validate(ctx context.Context, tokens repository.RefreshTokenRepository, raw string) (*domain.RefreshToken, error) {
	if raw == "" {
		return nil, invalidRefreshToken()
	}
	record, err := tokens.GetByDigest(ctx, Digest(raw))
	if err != nil {
		if err == pgx.ErrNoRows {
			m.logger.Info("refresh token lookup miss")
			return nil, invalidRefreshToken()
		}
		return nil, apperrors.MapError(err)
	}
	now := m.now()
	if record.Revoked() {
		m.logger.Warn("revoked refresh token presented",
			zap.String("token_id", record.ID),
			zap.String("actor_type", string(record.ActorType)),
			zap.String("actor_id", record.ActorID))
		return nil, invalidRefreshToken()
	}
	if record.Expired(now) {
		m.logger.Info("expired refresh token presented", zap.String("token_id", record.ID))
		return nil, invalidRefreshToken()
	}
	return record, nil
}

// Rotate revokes the presented record and issues a replacement bound to
// the same actor. Issue-then-revoke under the caller's transaction: one
// commit covers both, so a crash never strands a session half-rotated.
func (m *Manager) Rotate(ctx context.Context, tokens repository.RefreshTokenRepository, record *domain.RefreshToken) (*domain.RefreshToken, string, error) {
	actor := &domain.ActorRef{Type: record.ActorType, ID: record.ActorID}
	next, raw, err := m.Issue(ctx, tokens, actor)
	if err != nil {
		return nil, "", err
	}
	if err := m.Revoke(ctx, tokens, record); err != nil {
		return nil, "", err
	}
	return next, raw, nil
}

// Revoke stamps the record's revocation time. Idempotent.
func (m *Manager) Revoke(ctx context.Context, tokens repository.RefreshTokenRepository, record *domain.RefreshToken) error {
	if err := tokens.Revoke(ctx, record.ID, m.now()); err != nil {
		return apperrors.MapError(err)
	}
	if record.RevokedAt == nil {
		now := m.now()
		record.RevokedAt = &now
	}
	return nil
}

// Sweep deletes records dead for longer than the retention window.
func (m *Manager) Sweep(ctx context.Context, tokens repository.RefreshTokenRepository, retention time.Duration) (int64, error) {
	cutoff := m.now().Add(-retention)
	deleted, err := tokens.DeleteDeadBefore(ctx, cutoff)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if deleted > 0 {
		m.logger.Info("swept refresh tokens", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func invalidRefreshToken() error {
	return apperrors.NewDomainError(apperrors.KindInvalidRefreshToken, "base", "Invalid or expired refresh token")
}
