package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/sentinel-auth/internal/auth"
	"github.com/ashureev/sentinel-auth/internal/domain"
	"github.com/ashureev/sentinel-auth/internal/identity"
	"github.com/ashureev/sentinel-auth/web"
	"github.com/go-chi/chi/v5"
)

// Messages shown for the login outcomes.
const (
	MsgRejected     = "Username/password is incorrect"
	MsgNotAttempted = "Please enter your username and password"
)

// Authenticator checks a submitted username and password.
type Authenticator interface {
	Authenticate(username, password string) (domain.Credential, auth.Status)
}

// AuthHandler handles login, logout and the current-session endpoints.
type AuthHandler struct {
	*Handler
	gate Authenticator
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler, gate Authenticator) *AuthHandler {
	return &AuthHandler{Handler: base, gate: gate}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.LoginPage)
	r.Post("/login", h.LoginForm)
	r.Post("/logout", h.LogoutForm)

	r.Post("/api/login", h.Login)
	r.Post("/api/logout", h.Logout)
	r.With(identity.RequireSession).Get("/api/me", h.GetMe)
}

// LoginPage renders the login form, or sends a signed-in user to the chatbot.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if identity.SessionFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
		return
	}
	h.pages.Render(w, http.StatusOK, web.PageLogin, web.PageData{LoginState: web.LoginIdle})
}

// LoginForm handles the login form post.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	username := r.PostFormValue("username")

	cred, status := h.authenticate(r, username, r.PostFormValue("password"))
	switch status {
	case auth.StatusAuthenticated:
		if _, err := h.ids.Login(r.Context(), w, cred); err != nil {
			slog.Error("Failed to start session", "error", err, "username", cred.Username)
			http.Error(w, "failed to start session", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
	case auth.StatusRejected:
		h.pages.Render(w, http.StatusUnauthorized, web.PageLogin, web.PageData{LoginState: web.LoginRejected, Username: username})
	default:
		h.pages.Render(w, http.StatusOK, web.PageLogin, web.PageData{LoginState: web.LoginIdle})
	}
}

// LogoutForm ends the session and returns to the login form.
func (h *AuthHandler) LogoutForm(w http.ResponseWriter, r *http.Request) {
	if err := h.ids.Logout(r.Context(), w); err != nil {
		slog.Error("Failed to end session", "error", err)
		http.Error(w, "failed to end session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a JSON login request.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cred, status := h.authenticate(r, req.Username, req.Password)
	switch status {
	case auth.StatusAuthenticated:
		s, err := h.ids.Login(r.Context(), w, cred)
		if err != nil {
			slog.Error("Failed to start session", "error", err, "username", cred.Username)
			Error(w, http.StatusInternalServerError, "failed to start session")
			return
		}
		JSON(w, http.StatusOK, sessionResponse(status, s))
	case auth.StatusRejected:
		JSON(w, http.StatusUnauthorized, map[string]string{
			"status": status.String(),
			"error":  MsgRejected,
		})
	default:
		JSON(w, http.StatusBadRequest, map[string]string{
			"status": status.String(),
			"error":  MsgNotAttempted,
		})
	}
}

// Logout ends the current session, if any.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.ids.Logout(r.Context(), w); err != nil {
		slog.Error("Failed to end session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// GetMe returns the current session.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	s := identity.SessionFromContext(r.Context())
	JSON(w, http.StatusOK, sessionResponse(auth.StatusAuthenticated, s))
}

func (h *AuthHandler) authenticate(r *http.Request, username, password string) (domain.Credential, auth.Status) {
	cred, status := h.gate.Authenticate(username, password)
	if status == auth.StatusRejected {
		slog.Warn("Login rejected", "username", username, "ip", identity.IPFromRequest(r))
	}
	return cred, status
}

func sessionResponse(status auth.Status, s *domain.Session) map[string]any {
	return map[string]any{
		"status":      status.String(),
		"username":    s.Username,
		"name":        s.DisplayName,
		"expires_at":  s.ExpiresAt.UTC().Format(time.RFC3339),
		"session_ttl": int64(s.Remaining().Seconds()),
	}
}
