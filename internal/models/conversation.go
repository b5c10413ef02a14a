package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a shared message thread between participants.
type Conversation struct {
	ID           uuid.UUID   `json:"id"`
	Participants []uuid.UUID `json:"participants"`
	IsGroup      bool        `json:"is_group"`
	GroupName    string      `json:"group_name,omitempty"`
	GroupImage   string      `json:"group_image,omitempty"`
	Admin        *uuid.UUID  `json:"admin,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
