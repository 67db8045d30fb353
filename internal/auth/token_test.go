package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/tix-api/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	actor := &domain.ActorRef{Type: domain.ActorTypeAgent, ID: "agent-1"}

	token, expiresAt, err := tm.Generate(actor)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.Subject)
	assert.Equal(t, domain.ActorTypeAgent, claims.Scope)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenManager("secret-a", 15)
	verifier := NewTokenManager("secret-b", 15)

	token, _, err := issuer.Generate(&domain.ActorRef{Type: domain.ActorTypeCustomer, ID: "cust-1"})
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	assert.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	_, err := tm.Parse("not.a.jwt")
	assert.Error(t, err)
}

func TestTokenScopeSeparatesRoles(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	token, _, err := tm.Generate(&domain.ActorRef{Type: domain.ActorTypeCustomer, ID: "cust-1"})
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.NotEqual(t, domain.ActorTypeAgent, claims.Scope)
}

func TestPasswordHashAndCompare(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.NoError(t, ComparePassword(hash, "hunter2hunter2"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestCookieNamesAreRoleScoped(t *testing.T) {
	assert.Equal(t, "customer_access_token", AccessCookieName(domain.ActorTypeCustomer))
	assert.Equal(t, "agent_access_token", AccessCookieName(domain.ActorTypeAgent))
	assert.Equal(t, "customer_refresh_token", RefreshCookieName(domain.ActorTypeCustomer))
	assert.Equal(t, "agent_refresh_token", RefreshCookieName(domain.ActorTypeAgent))
	assert.NotEqual(t, AccessCookieName(domain.ActorTypeCustomer), AccessCookieName(domain.ActorTypeAgent))
}
