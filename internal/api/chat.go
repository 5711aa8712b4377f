package api

import (
	"net/http"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/chat"
)

// ChatState returns the current chat view.
func (h *Handler) ChatState(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.Chat.State())
}

// OpenChat connects if needed and selects a channel or direct conversation.
func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	var scope chat.Scope
	if err := decodeBody(w, r, &scope); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := h.Chat.Open(r.Context(), scope); err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, h.Chat.State())
}

type sendRequest struct {
	Content string `json:"content"`
}

// SendChatMessage sends a message in the open conversation. The message is
// listed as pending until the server echoes it.
func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body")
		return
	}
	out, err := h.Chat.SendMessage(r.Context(), req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusAccepted, out)
}

// CloseChat closes the chat view and its socket.
func (h *Handler) CloseChat(w http.ResponseWriter, _ *http.Request) {
	h.Chat.CloseView()
	JSON(w, http.StatusOK, h.Chat.State())
}
