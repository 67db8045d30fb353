package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/domain"
	"github.com/spec-kit/tix-api/internal/repository/repotest"
	apperrors "github.com/spec-kit/tix-api/pkg/util"
)

var testActor = &domain.ActorRef{Type: domain.ActorTypeCustomer, ID: "cust-1"}

func newTestManager(ttl time.Duration) (*Manager, *repotest.Fixture) {
	f := repotest.NewFixture()
	m := NewManager(ttl, zap.NewNop())
	m.now = f.Now
	return m, f
}

func TestIssueValidateRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, f := newTestManager(time.Hour)

	record, raw, err := m.Issue(ctx, f.Tokens, testActor)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.NotEqual(t, raw, record.TokenDigest)
	assert.Equal(t, Digest(raw), record.TokenDigest)

	got, err := m.Validate(ctx, f.Tokens, raw)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, testActor.ID, got.ActorID)
	assert.Equal(t, testActor.Type, got.ActorType)
}

func TestValidateRejectsUnknownAndEmpty(t *testing.T) {
	ctx := context.Background()
	m, f := newTestManager(time.Hour)

	_, err := m.Validate(ctx, f.Tokens, "")
	requireInvalidToken(t, err)

	_, err = m.Validate(ctx, f.Tokens, "never-issued")
	requireInvalidToken(t, err)
}

func TestRotateInvalidatesPresentedToken(t *testing.T) {
	ctx := context.Background()
	m, f := newTestManager(time.Hour)

	record, raw, err := m.Issue(ctx, f.Tokens, testActor)
	require.NoError(t, err)

	next, nextRaw, err := m.Rotate(ctx, f.Tokens, record)
	require.NoError(t, err)
	assert.NotEqual(t, raw, nextRaw)
	assert.Equal(t, testActor.ID, next.ActorID)

	// The replaced token is a replay from here on.
	_, err = m.Validate(ctx, f.Tokens, raw)
	requireInvalidToken(t, err)

	got, err := m.Validate(ctx, f.Tokens, nextRaw)
	require.NoError(t, err)
	assert.Equal(t, next.ID, got.ID)
}

func TestValidateRejectsExpired(t *testing.T) {
	ctx := context.Background()
	f := repotest.NewFixture()
	m := NewManager(time.Hour, zap.NewNop())

	issuedAt := f.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issuedAt }
	_, raw, err := m.Issue(ctx, f.Tokens, testActor)
	require.NoError(t, err)

	m.now = f.Now
	_, err = m.Validate(ctx, f.Tokens, raw)
	requireInvalidToken(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, f := newTestManager(time.Hour)

	record, raw, err := m.Issue(ctx, f.Tokens, testActor)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, f.Tokens, record))
	firstRevokedAt := record.RevokedAt
	require.NotNil(t, firstRevokedAt)

	require.NoError(t, m.Revoke(ctx, f.Tokens, record))
	assert.Equal(t, firstRevokedAt, record.RevokedAt)

	_, err = m.Validate(ctx, f.Tokens, raw)
	requireInvalidToken(t, err)
}

func TestSweepDeletesOnlyDeadOldTokens(t *testing.T) {
	ctx := context.Background()
	m, f := newTestManager(time.Hour)

	// A token revoked two days ago, created back then.
	past := f.Now().Add(-48 * time.Hour)
	f.SeedToken(domain.RefreshToken{
		ActorType:   testActor.Type,
		ActorID:     testActor.ID,
		TokenDigest: Digest("long-dead"),
		ExpiresAt:   past.Add(time.Hour),
		RevokedAt:   &past,
		CreatedAt:   past,
	})

	// Live token issued now, outside the retention cutoff.
	_, liveRaw, err := m.Issue(ctx, f.Tokens, testActor)
	require.NoError(t, err)

	deleted, err := m.Sweep(ctx, f.Tokens, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, f.TokenCount())

	_, err = m.Validate(ctx, f.Tokens, liveRaw)
	require.NoError(t, err)
}

func TestDigestIsStable(t *testing.T) {
	assert.Equal(t, Digest("abc"), Digest("abc"))
	assert.NotEqual(t, Digest("abc"), Digest("abd"))
	assert.Len(t, Digest("abc"), 64)
}

func requireInvalidToken(t *testing.T, err error) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, apperrors.KindInvalidRefreshToken, domainErr.Kind)
	// Revoked, expired and unknown all read the same to clients.
	assert.Equal(t, "Invalid or expired refresh token", domainErr.Message)
}
