package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/sentinel-auth/internal/store"
)

// CleanupCallback is called after the reaper deletes an expired session.
type CleanupCallback func(sessionID string)

// StartReaper runs a background goroutine that periodically deletes
// expired sessions and their transcripts.
func StartReaper(ctx context.Context, repo store.Repository, interval time.Duration, onCleanup CleanupCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				ReapExpired(ctx, repo, time.Now(), onCleanup)
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// ReapExpired deletes every session expired at now and returns how many were removed.
func ReapExpired(ctx context.Context, repo store.Repository, now time.Time, onCleanup CleanupCallback) int {
	expired, err := repo.ExpiredSessions(ctx, now)
	if err != nil {
		slog.Error("Session reaper failed to list expired sessions", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	slog.Info("Session reaper found expired sessions", "count", len(expired))

	cleaned := 0
	for _, s := range expired {
		if err := repo.DeleteSession(ctx, s.ID); err != nil {
			if ctx.Err() != nil {
				slog.Debug("Session reaper canceled, cleanup may be incomplete", "session_id", s.ID, "error", err)
				return cleaned
			}
			slog.Warn("Session reaper failed to delete session", "session_id", s.ID, "error", err)
			continue
		}
		if onCleanup != nil {
			onCleanup(s.ID)
		}
		cleaned++
	}

	slog.Info("Session reaper cleanup completed", "cleaned", cleaned)
	return cleaned
}
