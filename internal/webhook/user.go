package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Barunkrsingh/chat-application/internal/models"
)

// User lifecycle event types handled by user sync.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
)

type userData struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	ImageURL  string `json:"image_url"`
}

// IsUserEvent reports whether the event carries a user profile.
func (e *Event) IsUserEvent() bool {
	return e.Type == EventUserCreated || e.Type == EventUserUpdated
}

// User decodes the profile of a user event. The token identifier matches
// the one sessions carry: "<issuer>|<subject>".
func (e *Event) User(issuer string) (*models.User, error) {
	var d userData
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return nil, fmt.Errorf("decode user event: %w", err)
	}
	if d.ID == "" {
		return nil, fmt.Errorf("decode user event: missing id")
	}

	name := strings.TrimSpace(d.FirstName + " " + d.LastName)
	if name == "" {
		name = d.Username
	}

	return &models.User{
		TokenIdentifier: issuer + "|" + d.ID,
		Name:            name,
		Image:           d.ImageURL,
	}, nil
}
