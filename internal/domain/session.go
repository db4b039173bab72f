package domain

import (
	"time"
)

// Session is a signed-in browser session. Its transcript lives and dies with it.
type Session struct {
	ID          string    `json:"session_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.After(t)
}

// Remaining returns the time until the session expires.
// Returns 0 if the session has already expired.
func (s *Session) Remaining() time.Duration {
	ttl := time.Until(s.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
