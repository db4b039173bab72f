// Package livechat carries chatbot turns over WebSocket connections.
package livechat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/sentinel-auth/internal/domain"
	"github.com/ashureev/sentinel-auth/internal/session"
	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Frame is the JSON envelope exchanged over the socket.
type Frame struct {
	Type     string           `json:"type"`
	Role     domain.Role      `json:"role,omitempty"`
	Content  string           `json:"content,omitempty"`
	Messages []domain.Message `json:"messages,omitempty"`
}

// Hub tracks live connections per session and fans transcript updates out to them.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Register adds a connection for sessionID.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[sessionID]; !exists {
		h.active[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.active[sessionID][conn] = struct{}{}
	slog.Info("Live chat connection registered", "session_id", sessionID, "connections", len(h.active[sessionID]))
}

// Unregister removes a connection for sessionID.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.active[sessionID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.active, sessionID)
		}
		slog.Info("Live chat connection unregistered", "session_id", sessionID)
	}
}

// Count returns the number of live connections for sessionID.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[sessionID])
}

// CloseSession terminates every connection of a session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	conns := h.active[sessionID]
	delete(h.active, sessionID)
	h.mu.Unlock()

	for conn := range conns {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
	}
	if len(conns) > 0 {
		slog.Info("Live chat session closed", "session_id", sessionID, "connections", len(conns))
	}
}

// Publish sends msgs, one frame each, to every connection of sessionID.
func (h *Hub) Publish(sessionID string, msgs ...domain.Message) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.active[sessionID]))
	for conn := range h.active[sessionID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		for _, msg := range msgs {
			if err := writeFrame(conn, Frame{Type: "message", Role: msg.Role, Content: msg.Content}); err != nil {
				slog.Debug("Live chat publish failed", "session_id", sessionID, "error", err)
				break
			}
		}
	}
}

// Log wraps base so every append is also published to sessionID's connections.
func (h *Hub) Log(base session.Log, sessionID string) session.Log {
	return &publishingLog{Log: base, hub: h, sessionID: sessionID}
}

type publishingLog struct {
	session.Log
	hub       *Hub
	sessionID string
}

func (l *publishingLog) Append(ctx context.Context, msgs ...domain.Message) error {
	if err := l.Log.Append(ctx, msgs...); err != nil {
		return err
	}
	l.hub.Publish(l.sessionID, msgs...)
	return nil
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
