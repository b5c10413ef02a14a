package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Barunkrsingh/chat-application/internal/metrics"
	"github.com/Barunkrsingh/chat-application/internal/webhook"
)

// IdentityWebhook handles signed identity provider events. A verified
// delivery gets 200 with an empty body; anything else gets 400 with a short
// plain text reason and is never acted on.
func (h *Handler) IdentityWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.rejectWebhook(w, "unreadable body")
		return
	}

	headers := webhook.HeadersFrom(r.Header)
	event, err := h.Verifier.Verify(payload, headers)
	if err != nil {
		metrics.WebhookVerifications.WithLabelValues("rejected").Inc()
		h.rejectWebhook(w, "verification failed")
		return
	}

	if h.Replay != nil {
		first, err := h.Replay.FirstDelivery(r.Context(), headers.ID)
		if err != nil {
			h.logger.Error().Err(err).Str("delivery_id", headers.ID).Msg("replay check failed")
		} else if !first {
			metrics.WebhookVerifications.WithLabelValues("replayed").Inc()
			h.rejectWebhook(w, "duplicate delivery")
			return
		}
	}
	metrics.WebhookVerifications.WithLabelValues("verified").Inc()

	if event.IsUserEvent() {
		if err := h.syncUser(r, event); err != nil {
			h.logger.Error().Err(err).Str("event_type", event.Type).Msg("user sync failed")
			if errors.Is(err, errBadEvent) {
				h.rejectWebhook(w, "malformed user event")
				return
			}
			if h.Replay != nil {
				if err := h.Replay.Forget(context.WithoutCancel(r.Context()), headers.ID); err != nil {
					h.logger.Error().Err(err).Str("delivery_id", headers.ID).Msg("failed to release delivery")
				}
			}
			http.Error(w, "user sync failed", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

var errBadEvent = errors.New("malformed event")

func (h *Handler) syncUser(r *http.Request, event *webhook.Event) error {
	user, err := event.User(h.Issuer)
	if err != nil {
		return errors.Join(errBadEvent, err)
	}
	user.Name = sanitizeName(user.Name)

	saved, err := h.Identities.UpsertUser(r.Context(), user)
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("event_type", event.Type).
		Str("user_id", saved.ID.String()).
		Msg("user synced from webhook")
	return nil
}

func (h *Handler) rejectWebhook(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	io.WriteString(w, reason)
}
