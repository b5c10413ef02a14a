package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Barunkrsingh/chat-application/internal/api/middleware"
	"github.com/Barunkrsingh/chat-application/internal/chat"
	"github.com/Barunkrsingh/chat-application/internal/models"
)

// CreateConversationRequest represents the conversation creation request.
type CreateConversationRequest struct {
	Participants []string `json:"participants"`
	IsGroup      bool     `json:"is_group"`
	GroupName    string   `json:"group_name,omitempty"`
	GroupImage   string   `json:"group_image,omitempty"`
}

// SendMessageRequest represents the text message request.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMediaRequest represents the media message request. StorageID is the
// blob returned by the upload endpoint of the media store.
type SendMediaRequest struct {
	StorageID string             `json:"storage_id"`
	Kind      models.MessageKind `json:"kind"`
}

// MessagesResponse represents the get messages response.
type MessagesResponse struct {
	ConversationID string                 `json:"conversation_id"`
	Messages       []chat.ResolvedMessage `json:"messages"`
}

// CreateConversation handles conversation creation (authenticated).
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	participants := make([]uuid.UUID, 0, len(req.Participants))
	for _, p := range req.Participants {
		id, err := uuid.Parse(p)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid participant ID format")
			return
		}
		participants = append(participants, id)
	}

	conv, err := h.Chat.CreateConversation(r.Context(),
		middleware.GetIdentityFromContext(r.Context()),
		participants, req.IsGroup, sanitizeName(req.GroupName), req.GroupImage)
	if err != nil {
		h.ChatError(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, conv)
}

// SendMessage handles posting a text message to a conversation.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.Chat.SendMessage(r.Context(),
		middleware.GetIdentityFromContext(r.Context()),
		chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.ChatError(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// SendMedia handles posting an image or video message.
func (h *Handler) SendMedia(w http.ResponseWriter, r *http.Request) {
	var req SendMediaRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StorageID == "" {
		h.Error(w, http.StatusBadRequest, "storage_id is required")
		return
	}

	msg, err := h.Chat.SendMediaMessage(r.Context(),
		middleware.GetIdentityFromContext(r.Context()),
		chi.URLParam(r, "id"), req.StorageID, req.Kind)
	if err != nil {
		h.ChatError(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// GetMessages handles fetching a conversation with resolved senders. Only
// participants may read.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	identity := middleware.GetIdentityFromContext(r.Context())

	// Same membership rule as the stream endpoint.
	if _, err := h.Chat.Participant(r.Context(), identity, conversationID); err != nil {
		h.ChatError(w, r, err)
		return
	}

	msgs, err := h.Reader.GetMessages(r.Context(), identity, conversationID)
	if err != nil {
		h.ChatError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, MessagesResponse{
		ConversationID: conversationID,
		Messages:       msgs,
	})
}
