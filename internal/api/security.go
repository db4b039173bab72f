package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/sentinel-auth/internal/identity"
	"github.com/ashureev/sentinel-auth/internal/middleware"
	"github.com/ashureev/sentinel-auth/internal/safebrowsing"
	"github.com/ashureev/sentinel-auth/web"
	"github.com/go-chi/chi/v5"
)

// URLChecker asks a threat service about one URL.
type URLChecker interface {
	Check(ctx context.Context, rawURL string) safebrowsing.Verdict
}

// SecurityHandler serves the Security Tools section.
type SecurityHandler struct {
	*Handler
	checker     URLChecker
	unavailable string
}

// NewSecurityHandler creates a new security handler. When checker is nil
// the section shows unavailable instead of the URL form.
func NewSecurityHandler(base *Handler, checker URLChecker, unavailable string) *SecurityHandler {
	return &SecurityHandler{Handler: base, checker: checker, unavailable: unavailable}
}

// RegisterRoutes registers security routes.
func (h *SecurityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/config", h.GetConfig)

	r.Group(func(r chi.Router) {
		r.Use(identity.RequireSession, middleware.NoStore)
		r.Get("/security", h.Page)
		r.Post("/security/check", h.CheckForm)
		r.Post("/api/security/check", h.Check)
	})
}

// GetConfig returns the page configuration for API clients.
func (h *SecurityHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"sections":               []string{web.SectionChat, web.SectionSecurity},
		"security_tools_enabled": h.checker != nil,
	}
	if h.checker == nil {
		resp["security_tools_error"] = h.unavailable
	}
	JSON(w, http.StatusOK, resp)
}

// Page renders the URL checker.
func (h *SecurityHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, http.StatusOK, web.PageSecurity, h.pageData(r))
}

// CheckForm handles the URL checker form post.
func (h *SecurityHandler) CheckForm(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(r)
	if h.checker == nil {
		h.pages.Render(w, http.StatusServiceUnavailable, web.PageSecurity, data)
		return
	}
	if !parseForm(w, r) {
		return
	}

	data.URL = strings.TrimSpace(r.PostFormValue("url"))
	if err := safebrowsing.ValidateURL(data.URL); err != nil {
		data.ValidationError = err.Error()
		h.pages.Render(w, http.StatusOK, web.PageSecurity, data)
		return
	}

	verdict := h.check(r, data.URL)
	data.Verdict = &verdict
	h.pages.Render(w, http.StatusOK, web.PageSecurity, data)
}

// CheckRequest is the body of POST /api/security/check.
type CheckRequest struct {
	URL string `json:"url"`
}

// Check answers a JSON URL check with the verdict.
func (h *SecurityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		Error(w, http.StatusServiceUnavailable, h.unavailable)
		return
	}

	var req CheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rawURL := strings.TrimSpace(req.URL)
	if err := safebrowsing.ValidateURL(rawURL); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	JSON(w, http.StatusOK, h.check(r, rawURL))
}

func (h *SecurityHandler) check(r *http.Request, rawURL string) safebrowsing.Verdict {
	s := identity.SessionFromContext(r.Context())
	verdict := h.checker.Check(r.Context(), rawURL)
	if verdict.Status == safebrowsing.StatusError {
		slog.Warn("URL check failed", "session_id", s.ID, "message", verdict.Message)
	} else {
		slog.Info("URL checked", "session_id", s.ID, "verdict", verdict.Status, "matches", len(verdict.Matches))
	}
	return verdict
}

func (h *SecurityHandler) pageData(r *http.Request) web.PageData {
	data := web.PageData{Session: identity.SessionFromContext(r.Context())}
	if h.checker == nil {
		data.SecurityError = h.unavailable
	}
	return data
}
