package webhook

import (
	"context"
	"time"

	"github.com/Barunkrsingh/chat-application/internal/claim"
)

// ReplayGuard rejects a delivery ID seen before within the tolerance window.
// Older replays already fail the timestamp check.
type ReplayGuard struct {
	claims claim.Store
	window time.Duration
}

// NewReplayGuard creates a guard remembering IDs for window.
func NewReplayGuard(claims claim.Store, window time.Duration) *ReplayGuard {
	return &ReplayGuard{claims: claims, window: window}
}

func replayKey(id string) string {
	return "webhook:" + id
}

// FirstDelivery reports whether id has not been accepted before.
func (g *ReplayGuard) FirstDelivery(ctx context.Context, id string) (bool, error) {
	// Twice the window covers deliveries stamped in the future.
	return g.claims.Claim(ctx, replayKey(id), 2*g.window)
}

// Forget releases id after a delivery that was not processed, so the
// sender's retry is accepted.
func (g *ReplayGuard) Forget(ctx context.Context, id string) error {
	return g.claims.Release(ctx, replayKey(id))
}
