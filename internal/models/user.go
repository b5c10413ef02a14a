package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a person signed in through the identity provider.
type User struct {
	ID              uuid.UUID `json:"id"`
	TokenIdentifier string    `json:"token_identifier"`
	Name            string    `json:"name,omitempty"`
	Image           string    `json:"image,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
