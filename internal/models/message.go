package models

// AISender is the reserved sender tag for AI-authored messages.
const AISender = "ai"

// MessageKind selects how Content is interpreted.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVideo MessageKind = "video"
)

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo:
		return true
	}
	return false
}

// IsMedia reports whether content holds a storage URL rather than text.
func (k MessageKind) IsMedia() bool {
	return k == KindImage || k == KindVideo
}

// Message represents a message stored in a conversation log.
type Message struct {
	// ULID
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	// User UUID or AISender
	Sender string `json:"sender"`

	// Text, or URL for media kinds
	Content string      `json:"content"`
	Kind    MessageKind `json:"kind"`

	// Per-conversation creation order
	Seq int64 `json:"seq"`

	// Unix ms
	Timestamp int64 `json:"ts"`
}

// IsFromAI reports whether the message was written by the completion worker.
func (m *Message) IsFromAI() bool {
	return m.Sender == AISender
}
