package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/identity"
)

// Frame types exchanged over /ws/chat.
const (
	FrameMessage  = "message"
	FrameCallback = "callback"
	FramePing     = "ping"
	FramePong     = "pong"
	FrameReady    = "ready"
	FrameReplies  = "replies"
	FrameError    = "error"
)

// wsInbound is a frame sent by the client.
type wsInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

// wsOutbound is a frame sent to the client.
type wsOutbound struct {
	Type    string         `json:"type"`
	UserID  string         `json:"user_id,omitempty"`
	Replies []domain.Reply `json:"replies,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ServeWS upgrades to a WebSocket and runs one chat turn per inbound frame.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, "missing identity")
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "user_id", user.ID)
		return
	}
	ws.SetReadLimit(maxBodyBytes)

	connID := uuid.NewString()
	h.conns.Register(user.ID, connID, ws)
	defer h.conns.Unregister(user.ID, connID, ws)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "user_id", user.ID)
		}
	}()

	ctx := r.Context()
	if err := wsjson.Write(ctx, ws, wsOutbound{Type: FrameReady, UserID: user.ID}); err != nil {
		h.logger.Debug("Failed to send ready frame", "error", err, "user_id", user.ID)
		return
	}
	h.readLoop(ctx, ws, user)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, user domain.User) {
	for {
		var in wsInbound
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed", "user_id", user.ID)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "user_id", user.ID)
			}
			return
		}

		out := h.dispatch(ctx, user, in)
		if err := wsjson.Write(ctx, ws, out); err != nil {
			h.logger.Debug("WebSocket write error", "error", err, "user_id", user.ID)
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, user domain.User, in wsInbound) wsOutbound {
	if in.Type == FramePing {
		return wsOutbound{Type: FramePong}
	}
	if h.limiter != nil && !h.limiter.Allow(user.ID) {
		return wsOutbound{Type: FrameError, Error: "rate limit exceeded"}
	}

	switch in.Type {
	case FrameMessage:
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return wsOutbound{Type: FrameError, Error: "text is required"}
		}
		return wsOutbound{Type: FrameReplies, Replies: h.chat.HandleMessage(ctx, user, text)}
	case FrameCallback:
		if in.Data == "" {
			return wsOutbound{Type: FrameError, Error: "data is required"}
		}
		return wsOutbound{Type: FrameReplies, Replies: h.chat.HandleCallback(ctx, user, in.Data)}
	default:
		return wsOutbound{Type: FrameError, Error: "unknown frame type: " + in.Type}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 || slices.Contains(h.origins, "*") || slices.Contains(h.origins, origin) {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.origins)
	return false
}
