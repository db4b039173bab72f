// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/sentinel-auth/internal/domain"
)

// Repository defines the interface for persisting sessions and their transcripts.
type Repository interface {
	// CreateSession inserts a new session record.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID. Returns nil, nil when absent.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// TouchSession updates the last_seen_at timestamp for a session.
	TouchSession(ctx context.Context, sessionID string, lastSeen time.Time) error

	// DeleteSession removes a session and its transcript.
	DeleteSession(ctx context.Context, sessionID string) error

	// ExpiredSessions retrieves sessions whose expiry is at or before now.
	ExpiredSessions(ctx context.Context, now time.Time) ([]*domain.Session, error)

	// AppendMessages appends messages to a session transcript in one transaction.
	AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error

	// ListMessages returns a session transcript in append order.
	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)

	// PurgeAll removes every session and message.
	PurgeAll(ctx context.Context) (sessionsDeleted int64, messagesDeleted int64, err error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
