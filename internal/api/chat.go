package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/identity"
)

// MessageRequest is the body of POST /api/chat.
type MessageRequest struct {
	Text string `json:"text"`
}

// CallbackRequest is the body of POST /api/chat/callback.
type CallbackRequest struct {
	Data string `json:"data"`
}

// ChatResponse carries the bot's replies for one turn.
type ChatResponse struct {
	UserID  string         `json:"user_id"`
	Replies []domain.Reply `json:"replies"`
}

// Message handles a free text chat message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}

	replies := h.chat.HandleMessage(r.Context(), user, text)
	JSON(w, http.StatusOK, ChatResponse{UserID: user.ID, Replies: nonNil(replies)})
}

// Callback handles an inline button press.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req CallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Data == "" {
		Error(w, http.StatusBadRequest, "data is required")
		return
	}

	replies := h.chat.HandleCallback(r.Context(), user, req.Data)
	JSON(w, http.StatusOK, ChatResponse{UserID: user.ID, Replies: nonNil(replies)})
}

func nonNil(replies []domain.Reply) []domain.Reply {
	if replies == nil {
		return []domain.Reply{}
	}
	return replies
}
