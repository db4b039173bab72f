package livechat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/sentinel-auth/internal/identity"
	"github.com/ashureev/sentinel-auth/internal/lookup"
	"github.com/ashureev/sentinel-auth/internal/session"
	"github.com/ashureev/sentinel-auth/internal/store"
	"github.com/coder/websocket"
)

const maxFrameSize = 64 << 10

// WebSocketHandler serves the live chat channel of a signed-in session.
type WebSocketHandler struct {
	repo          store.Repository
	responder     *lookup.Responder
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(repo store.Repository, responder *lookup.Responder, hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		responder:     responder,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := identity.SessionFromContext(r.Context())
	if s == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	slog.Info("Live chat connection request", "session_id", s.ID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", s.ID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", s.ID)
		}
	}()
	ws.SetReadLimit(maxFrameSize)

	h.hub.Register(s.ID, ws)
	defer h.hub.Unregister(s.ID, ws)

	// The upgrade hijacks the connection, so the request context is not
	// tied to the socket's lifetime.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := h.hub.Log(session.NewStoreLog(h.repo, s.ID), s.ID)
	h.readLoop(ctx, ws, log, s.ID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, log session.Log, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Debug("WebSocket read ended", "error", err, "session_id", sessionID)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(ws, Frame{Type: "error", Content: "invalid frame"})
			continue
		}

		switch frame.Type {
		case "query":
			query := strings.TrimSpace(frame.Content)
			if query == "" {
				continue
			}
			// The answer reaches this socket through the hub like any other turn.
			if _, err := h.responder.Answer(ctx, log, query); err != nil {
				slog.Error("Failed to record live chat turn", "session_id", sessionID, "error", err)
				h.reply(ws, Frame{Type: "error", Content: "failed to record message"})
			}
		case "history":
			msgs, err := log.Messages(ctx)
			if err != nil {
				slog.Error("Failed to load transcript", "session_id", sessionID, "error", err)
				h.reply(ws, Frame{Type: "error", Content: "failed to load transcript"})
				continue
			}
			h.reply(ws, Frame{Type: "history", Messages: msgs})
		case "ping":
			h.reply(ws, Frame{Type: "pong"})
		default:
			h.reply(ws, Frame{Type: "error", Content: "unknown frame type"})
		}
	}
}

func (h *WebSocketHandler) reply(ws *websocket.Conn, f Frame) {
	if err := writeFrame(ws, f); err != nil {
		slog.Debug("Failed to write live chat frame", "type", f.Type, "error", err)
	}
}
