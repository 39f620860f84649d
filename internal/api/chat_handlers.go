package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiraleos/sermon-assistant/internal/core"
	"github.com/kiraleos/sermon-assistant/internal/store"
)

type CreateConversationRequest struct {
	Label        string  `json:"label,omitempty"`
	FirstMessage *string `json:"first_message,omitempty"`
}

type conversationResponse struct {
	*store.Conversation
	Turns []store.Turn `json:"turns"`
}

func (h *APIHandler) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if r.Body != http.NoBody && r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	conv, turns, err := h.Chat.CreateConversation(r.Context(), req.Label, req.FirstMessage)
	if err != nil {
		h.fail(w, r, "failed to create conversation", err)
		return
	}
	if turns == nil {
		turns = []store.Turn{}
	}
	writeJSON(w, http.StatusCreated, conversationResponse{Conversation: conv, Turns: turns})
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	convs, err := h.Chat.ListConversations()
	if err != nil {
		h.fail(w, r, "failed to list conversations", err)
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	conv, turns, err := h.Chat.GetConversation(id)
	if err != nil {
		h.fail(w, r, "failed to get conversation", err)
		return
	}
	if conv == nil {
		h.fail(w, r, "conversation not found", core.ErrConversationNotFound)
		return
	}
	if turns == nil {
		turns = []store.Turn{}
	}
	writeJSON(w, http.StatusOK, conversationResponse{Conversation: conv, Turns: turns})
}

type RenameConversationRequest struct {
	Label string `json:"label"`
}

func (h *APIHandler) RenameConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	var req RenameConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Chat.RenameConversation(id, req.Label); err != nil {
		h.fail(w, r, "failed to rename conversation", err)
		return
	}
	h.GetConversationHandler(w, r)
}

func (h *APIHandler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if err := h.Chat.DeleteConversation(id); err != nil {
		h.fail(w, r, "failed to delete conversation", err)
		return
	}
	slog.InfoContext(r.Context(), "conversation deleted", "conversation_id", id, "subject", subjectFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	var req PostMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := h.Chat.Ask(r.Context(), id, req.Content)
	if err != nil {
		h.fail(w, r, "failed to post message", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type ResearchRequest struct {
	Query string `json:"query"`
}

type researchResponse struct {
	Response string `json:"response"`
}

func (h *APIHandler) ResearchHandler(w http.ResponseWriter, r *http.Request) {
	var req ResearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	text, err := h.Notes.Research(r.Context(), req.Query)
	if err != nil {
		h.fail(w, r, "research request failed", err)
		return
	}
	writeJSON(w, http.StatusOK, researchResponse{Response: text})
}
