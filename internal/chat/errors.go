// Package chat implements the conversation write path and the read path that
// resolves message senders.
package chat

import "errors"

// Errors returned to callers of Service and Reader. Handlers map them to
// HTTP statuses.
var (
	ErrUnauthenticated      = errors.New("authentication required")
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrForbidden            = errors.New("not a participant of this conversation")
	ErrEmptyContent         = errors.New("content is required")
	ErrContentTooLong       = errors.New("content exceeds maximum length")
	ErrInvalidKind          = errors.New("kind must be image or video")
	ErrInvalidConversation  = errors.New("invalid conversation")
)

// MaxContentLength is the largest text message accepted, in bytes.
const MaxContentLength = 4096
