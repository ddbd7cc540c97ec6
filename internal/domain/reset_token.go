package domain

import "time"

// PasswordResetToken is a single-use token persisted alongside the user
// store. It is deleted on successful use or the first time it is seen
// past its expiry.
type PasswordResetToken struct {
	ID        int64
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the token is expired at the given instant.
// Stored timestamps may come back without a timezone attached, so both
// sides are normalized to UTC before comparing.
func (t *PasswordResetToken) ExpiredAt(now time.Time) bool {
	return t.ExpiresAt.UTC().Before(now.UTC())
}
