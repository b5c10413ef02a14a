package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Barunkrsingh/chat-application/internal/api/middleware"
)

// StreamMessages upgrades to a websocket that receives every message
// appended to the conversation from now on. Only participants may listen.
func (h *Handler) StreamMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	user, err := h.Chat.Participant(r.Context(),
		middleware.GetIdentityFromContext(r.Context()), conversationID)
	if err != nil {
		h.ChatError(w, r, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("websocket upgrade failed")
		return
	}

	sub := h.Hub.Subscribe(conversationID)
	if sub == nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	h.logger.Debug().
		Str("conversation_id", conversationID).
		Str("user_id", user.ID.String()).
		Msg("stream opened")

	h.Hub.Serve(conn, sub)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // Non-browser clients send no Origin header
	}
	for _, allowed := range h.Origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	h.logger.Warn().Str("origin", origin).Msg("rejected websocket from disallowed origin")
	return false
}
