package domain

import "time"

// RefreshToken stores only the one-way digest of a raw session token.
// The raw value is handed to the transport once at issuance and never
// persisted.
type RefreshToken struct {
	ID          string
	ActorType   ActorType
	ActorID     string
	TokenDigest string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// Revoked reports whether the token was explicitly revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token expired as of now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Usable reports whether the token may authenticate a refresh: not
// revoked and not expired.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked() && !t.Expired(now)
}
