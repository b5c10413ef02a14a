package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/Barunkrsingh/chat-application/internal/chat"
	"github.com/Barunkrsingh/chat-application/internal/realtime"
	"github.com/Barunkrsingh/chat-application/internal/store"
	"github.com/Barunkrsingh/chat-application/internal/webhook"
)

// Deps are the collaborators shared by all HTTP handlers.
type Deps struct {
	Chat       *chat.Service
	Reader     *chat.Reader
	Hub        *realtime.Hub
	Identities store.IdentityStore
	Messages   store.MessageStore
	Verifier   *webhook.Verifier
	Replay     *webhook.ReplayGuard
	Issuer     string   // prefix of token identifiers built from webhook users
	Origins    []string // browser origins allowed to open streams
	Logger     zerolog.Logger
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	Deps
	logger zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		Deps:   d,
		logger: d.Logger.With().Str("component", "http").Logger(),
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// ChatError maps write and read path errors to responses. Unknown errors are
// logged and hidden behind a 500.
func (h *Handler) ChatError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		h.Error(w, status, "internal error")
		return
	}
	h.Error(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, chat.ErrUserNotFound), errors.Is(err, chat.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrContentTooLong),
		errors.Is(err, chat.ErrInvalidKind),
		errors.Is(err, chat.ErrInvalidConversation),
		errors.Is(err, store.ErrInvalidBlobID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Limit to 100 characters
	if runes := []rune(name); len(runes) > 100 {
		name = string(runes[:100])
	}

	return name
}
