// Package api provides the HTTP page and JSON handlers for Sentinel-Auth.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/sentinel-auth/internal/identity"
	"github.com/ashureev/sentinel-auth/internal/livechat"
	"github.com/ashureev/sentinel-auth/internal/session"
	"github.com/ashureev/sentinel-auth/internal/store"
	"github.com/ashureev/sentinel-auth/web"
)

// Handler provides common handler utilities.
type Handler struct {
	repo  store.Repository
	ids   *identity.Manager
	pages *web.Renderer
	hub   *livechat.Hub
}

// NewHandler creates a new Handler with common dependencies. hub may be nil
// when live chat is not served.
func NewHandler(repo store.Repository, ids *identity.Manager, pages *web.Renderer, hub *livechat.Hub) *Handler {
	return &Handler{
		repo:  repo,
		ids:   ids,
		pages: pages,
		hub:   hub,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON request body into v and writes the error response
// itself when it fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// parseForm parses a form post and writes the error response itself when it fails.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return false
	}
	return true
}

// transcript returns the chat log of sessionID, published to its live
// chat connections when a hub is configured.
func (h *Handler) transcript(sessionID string) session.Log {
	log := session.NewStoreLog(h.repo, sessionID)
	if h.hub == nil {
		return log
	}
	return h.hub.Log(log, sessionID)
}
