package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/sentinel-auth/internal/auth"
	"github.com/ashureev/sentinel-auth/internal/domain"
	"github.com/ashureev/sentinel-auth/internal/store"
)

const testCookie = "threat_app"

func newTestManager(t *testing.T) (*Manager, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewManager(repo, auth.NewTokens("test-key"), testCookie, time.Hour, true), repo
}

func loginCookie(t *testing.T, m *Manager) (*http.Cookie, *domain.Session) {
	t.Helper()
	rr := httptest.NewRecorder()
	s, err := m.Login(context.Background(), rr, domain.Credential{Username: "admin", Name: "Administrator"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != testCookie {
		t.Fatalf("expected one %s cookie, got %v", testCookie, cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("expected HttpOnly cookie")
	}
	return cookies[0], s
}

func captureSession(m *Manager, req *http.Request) (*domain.Session, *httptest.ResponseRecorder) {
	var got *domain.Session
	rr := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	})).ServeHTTP(rr, req)
	return got, rr
}

func TestMiddlewareResolvesSession(t *testing.T) {
	m, _ := newTestManager(t)
	cookie, s := loginCookie(t, m)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.AddCookie(cookie)

	got, _ := captureSession(m, req)
	if got == nil || got.ID != s.ID || got.DisplayName != "Administrator" {
		t.Fatalf("expected session %s in context, got %+v", s.ID, got)
	}
}

func TestMiddlewareWithoutCookie(t *testing.T) {
	m, _ := newTestManager(t)
	got, _ := captureSession(m, httptest.NewRequest(http.MethodGet, "/", nil))
	if got != nil {
		t.Fatalf("expected no session, got %+v", got)
	}
}

func TestMiddlewareClearsForgedCookie(t *testing.T) {
	m, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "not-a-token"})

	got, rr := captureSession(m, req)
	if got != nil {
		t.Fatalf("expected no session, got %+v", got)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cookie to be expired, got %v", cookies)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	m, repo := newTestManager(t)
	cookie, s := loginCookie(t, m)

	var revoked string
	m.OnLogout(func(id string) { revoked = id })

	ctx := WithSession(context.Background(), s)
	if err := m.Logout(ctx, httptest.NewRecorder()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if revoked != s.ID {
		t.Fatalf("expected logout callback for %s, got %q", s.ID, revoked)
	}
	if got, _ := repo.GetSession(context.Background(), s.ID); got != nil {
		t.Fatal("expected session deleted")
	}

	// The old cookie is still correctly signed but its session is gone.
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.AddCookie(cookie)
	if got, _ := captureSession(m, req); got != nil {
		t.Fatalf("expected revoked cookie to be ignored, got %+v", got)
	}
}

func TestRequireSession(t *testing.T) {
	protected := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name   string
		path   string
		signed bool
		want   int
	}{
		{"page redirects", "/chat", false, http.StatusSeeOther},
		{"api unauthorized", "/api/chat", false, http.StatusUnauthorized},
		{"websocket unauthorized", "/ws/chat", false, http.StatusUnauthorized},
		{"signed in passes", "/chat", true, http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.signed {
				req = req.WithContext(WithSession(req.Context(), &domain.Session{ID: "s1"}))
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}
