package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/ChatForge/internal/domain/conversation"
)

const msgConversationNotFound = "conversation not found"

// ListConversations handles GET /api/v1/conversations
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	handleList(noParam(h.Conversations.List), "")(w, r)
}

// CreateConversation handles POST /api/v1/conversations
func (h *Handlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.Limits.MaxRequestBodySize, h.Conversations.Create)(w, r)
}

// GetConversation handles GET /api/v1/conversations/{id}
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	handleGet(byID(h.Conversations.Get), msgConversationNotFound)(w, r)
}

// DeleteConversation handles DELETE /api/v1/conversations/{id}
func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Conversations.Delete, msgConversationNotFound)(w, r)
}

// ListConversationMessages handles GET /api/v1/conversations/{id}/messages
func (h *Handlers) ListConversationMessages(w http.ResponseWriter, r *http.Request) {
	handleList(byID(h.Conversations.ListMessages), msgConversationNotFound)(w, r)
}

// SendConversationMessage handles POST /api/v1/conversations/{id}/messages.
func (h *Handlers) SendConversationMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[conversation.SendMessageRequest](w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	req.ConversationID = chi.URLParam(r, "id")
	h.send(w, r, req)
}

// Chat handles POST /api/v1/chat. Without a conversation_id a new
// conversation is created and titled after the message.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[conversation.SendMessageRequest](w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	h.send(w, r, req)
}

func (h *Handlers) send(w http.ResponseWriter, r *http.Request, req conversation.SendMessageRequest) {
	res, err := h.Conversations.SendMessage(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, msgConversationNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
