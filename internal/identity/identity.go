// Package identity binds signed-in sessions to requests.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/sentinel-auth/internal/auth"
	"github.com/ashureev/sentinel-auth/internal/domain"
	"github.com/ashureev/sentinel-auth/internal/store"
	"github.com/google/uuid"
)

type contextKey int

const sessionKey contextKey = iota

// SessionFromContext extracts the signed-in session from the request context.
func SessionFromContext(ctx context.Context) *domain.Session {
	if v, ok := ctx.Value(sessionKey).(*domain.Session); ok {
		return v
	}
	return nil
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// Manager issues, resolves and revokes session cookies.
type Manager struct {
	repo       store.Repository
	tokens     *auth.Tokens
	cookieName string
	ttl        time.Duration
	isDev      bool
	onLogout   func(sessionID string)
}

// NewManager creates a session manager. Cookies are marked Secure unless isDev.
func NewManager(repo store.Repository, tokens *auth.Tokens, cookieName string, ttl time.Duration, isDev bool) *Manager {
	return &Manager{
		repo:       repo,
		tokens:     tokens,
		cookieName: cookieName,
		ttl:        ttl,
		isDev:      isDev,
	}
}

// OnLogout registers a callback run after a session is revoked.
func (m *Manager) OnLogout(fn func(sessionID string)) {
	m.onLogout = fn
}

// Login creates a session for cred and sets the session cookie.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, cred domain.Credential) (*domain.Session, error) {
	now := time.Now()
	s := &domain.Session{
		ID:          uuid.NewString(),
		Username:    cred.Username,
		DisplayName: cred.Name,
		CreatedAt:   now,
		LastSeenAt:  now,
		ExpiresAt:   now.Add(m.ttl),
	}

	token, err := m.tokens.Issue(s.ID, s.Username, s.DisplayName, s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := m.repo.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !m.isDev,
	})

	slog.Info("Session started", "session_id", s.ID, "username", s.Username)
	return s, nil
}

// Logout revokes the session in ctx (if any) and expires the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter) error {
	m.clearCookie(w)

	s := SessionFromContext(ctx)
	if s == nil {
		return nil
	}
	if err := m.repo.DeleteSession(ctx, s.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if m.onLogout != nil {
		m.onLogout(s.ID)
	}
	slog.Info("Session ended", "session_id", s.ID, "username", s.Username)
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !m.isDev,
	})
}

// resolve maps a request to its live session, or nil.
func (m *Manager) resolve(r *http.Request) (*domain.Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}

	claims, err := m.tokens.Parse(c.Value)
	if err != nil {
		return nil, nil
	}

	s, err := m.repo.GetSession(r.Context(), claims.SessionID())
	if err != nil {
		return nil, err
	}
	if s == nil || s.Username != claims.Username || s.Expired(time.Now()) {
		return nil, nil
	}

	now := time.Now()
	if err := m.repo.TouchSession(r.Context(), s.ID, now); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, nil
		}
		slog.Warn("Failed to update session last seen", "session_id", s.ID, "error", err)
	} else {
		s.LastSeenAt = now
	}
	return s, nil
}

// Middleware injects the signed-in session, when there is one, into the
// request context. Stale or forged cookies are cleared.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.resolve(r)
		if err != nil {
			slog.Error("Failed to resolve session", "error", err)
			http.Error(w, `{"error":"failed to resolve session"}`, http.StatusInternalServerError)
			return
		}
		if s == nil {
			if _, cerr := r.Cookie(m.cookieName); cerr == nil {
				m.clearCookie(w)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireSession rejects requests without a session: API and WebSocket
// paths get a 401 JSON body, pages are redirected to the login form.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

// IPFromRequest returns a normalized remote IP for request logging.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
