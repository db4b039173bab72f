// Package session holds per-session transcript state and session expiry.
package session

import (
	"context"
	"slices"
	"sync"

	"github.com/ashureev/sentinel-auth/internal/domain"
	"github.com/ashureev/sentinel-auth/internal/store"
)

// Log is the append-only transcript of one session.
type Log interface {
	Append(ctx context.Context, msgs ...domain.Message) error
	Messages(ctx context.Context) ([]domain.Message, error)
}

// StoreLog is a Log backed by the session store.
type StoreLog struct {
	repo      store.Repository
	sessionID string
}

// NewStoreLog binds the transcript of sessionID.
func NewStoreLog(repo store.Repository, sessionID string) *StoreLog {
	return &StoreLog{repo: repo, sessionID: sessionID}
}

// Append adds msgs atomically and in order.
func (l *StoreLog) Append(ctx context.Context, msgs ...domain.Message) error {
	return l.repo.AppendMessages(ctx, l.sessionID, msgs...)
}

// Messages returns the transcript in append order.
func (l *StoreLog) Messages(ctx context.Context) ([]domain.Message, error) {
	return l.repo.ListMessages(ctx, l.sessionID)
}

// MemoryLog is an in-process Log.
type MemoryLog struct {
	mu   sync.Mutex
	msgs []domain.Message
}

// NewMemoryLog creates an empty in-memory transcript.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append adds msgs in order.
func (l *MemoryLog) Append(_ context.Context, msgs ...domain.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msgs...)
	return nil
}

// Messages returns a copy of the transcript.
func (l *MemoryLog) Messages(_ context.Context) ([]domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.msgs), nil
}
