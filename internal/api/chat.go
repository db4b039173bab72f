package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/sentinel-auth/internal/domain"
	"github.com/ashureev/sentinel-auth/internal/identity"
	"github.com/ashureev/sentinel-auth/internal/lookup"
	"github.com/ashureev/sentinel-auth/internal/middleware"
	"github.com/ashureev/sentinel-auth/web"
	"github.com/go-chi/chi/v5"
)

// Answerer answers a chatbot query and records both turns in transcript.
type Answerer interface {
	Answer(ctx context.Context, transcript lookup.Transcript, query string) (string, error)
}

// ChatHandler serves the Wikipedia Chatbot section.
type ChatHandler struct {
	*Handler
	responder Answerer
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(base *Handler, responder Answerer) *ChatHandler {
	return &ChatHandler{Handler: base, responder: responder}
}

// RegisterRoutes registers chat routes (requires a session).
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireSession, middleware.NoStore)
		r.Get("/chat", h.Page)
		r.Post("/chat", h.Submit)
		r.Get("/api/chat/messages", h.ListMessages)
		r.Post("/api/chat", h.Ask)
	})
}

// Page renders the chatbot with the session transcript.
func (h *ChatHandler) Page(w http.ResponseWriter, r *http.Request) {
	s := identity.SessionFromContext(r.Context())
	msgs, err := h.transcript(s.ID).Messages(r.Context())
	if err != nil {
		slog.Error("Failed to load transcript", "error", err, "session_id", s.ID)
		http.Error(w, "failed to load transcript", http.StatusInternalServerError)
		return
	}
	h.pages.Render(w, http.StatusOK, web.PageChat, web.PageData{Session: s, Messages: msgs})
}

// Submit handles the chatbot form post. Empty input is ignored.
func (h *ChatHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	s := identity.SessionFromContext(r.Context())

	if query := strings.TrimSpace(r.PostFormValue("query")); query != "" {
		if _, err := h.responder.Answer(r.Context(), h.transcript(s.ID), query); err != nil {
			slog.Error("Failed to record chat turn", "error", err, "session_id", s.ID)
			http.Error(w, "failed to record message", http.StatusInternalServerError)
			return
		}
	}
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	Answer   string           `json:"answer"`
	Messages []domain.Message `json:"messages"`
}

// Ask answers a JSON chat request and returns the two appended turns.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}

	s := identity.SessionFromContext(r.Context())
	slog.Info("Chat request", "session_id", s.ID, "query_length", len(query))

	answer, err := h.responder.Answer(r.Context(), h.transcript(s.ID), query)
	if err != nil {
		slog.Error("Failed to record chat turn", "error", err, "session_id", s.ID)
		Error(w, http.StatusInternalServerError, "failed to record message")
		return
	}
	JSON(w, http.StatusOK, ChatResponse{
		Answer:   answer,
		Messages: []domain.Message{domain.UserMessage(query), domain.BotMessage(answer)},
	})
}

// ListMessages returns the session transcript in append order.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	s := identity.SessionFromContext(r.Context())
	msgs, err := h.transcript(s.ID).Messages(r.Context())
	if err != nil {
		slog.Error("Failed to load transcript", "error", err, "session_id", s.ID)
		Error(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	JSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
