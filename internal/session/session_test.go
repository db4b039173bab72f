package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/sentinel-auth/internal/domain"
	"github.com/ashureev/sentinel-auth/internal/store"
)

func newRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func createSession(t *testing.T, repo store.Repository, id string, expiresAt time.Time) {
	t.Helper()
	now := time.Now()
	err := repo.CreateSession(context.Background(), &domain.Session{
		ID: id, Username: "admin", DisplayName: "Administrator",
		CreatedAt: now, LastSeenAt: now, ExpiresAt: expiresAt,
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
}

func TestMemoryLogReturnsCopy(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	if err := log.Append(ctx, domain.UserMessage("q"), domain.BotMessage("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	msgs, _ := log.Messages(ctx)
	msgs[0].Content = "mutated"

	again, _ := log.Messages(ctx)
	if again[0].Content != "q" {
		t.Fatalf("expected stored transcript to be unchanged, got %q", again[0].Content)
	}
}

func TestMemoryLogConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = log.Append(ctx, domain.UserMessage("q"), domain.BotMessage("a"))
		}()
	}
	wg.Wait()

	msgs, _ := log.Messages(ctx)
	if len(msgs) != 40 {
		t.Fatalf("expected 40 messages, got %d", len(msgs))
	}
	for i := 0; i < len(msgs); i += 2 {
		if msgs[i].Role != domain.RoleUser || msgs[i+1].Role != domain.RoleBot {
			t.Fatalf("turn at %d is interleaved: %+v %+v", i, msgs[i], msgs[i+1])
		}
	}
}

func TestStoreLog(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	createSession(t, repo, "s1", time.Now().Add(time.Hour))

	log := NewStoreLog(repo, "s1")
	if err := log.Append(ctx, domain.UserMessage("q"), domain.BotMessage("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	msgs, err := log.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleBot {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}
}

func TestReapExpired(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	now := time.Now()
	createSession(t, repo, "old", now.Add(-time.Second))
	createSession(t, repo, "live", now.Add(time.Hour))

	var cleaned []string
	n := ReapExpired(ctx, repo, now, func(id string) { cleaned = append(cleaned, id) })
	if n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if len(cleaned) != 1 || cleaned[0] != "old" {
		t.Fatalf("expected callback for old, got %v", cleaned)
	}

	if s, _ := repo.GetSession(ctx, "old"); s != nil {
		t.Fatal("expected old session deleted")
	}
	if s, _ := repo.GetSession(ctx, "live"); s == nil {
		t.Fatal("expected live session kept")
	}
}
