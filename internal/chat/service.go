package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Barunkrsingh/chat-application/internal/dispatch"
	"github.com/Barunkrsingh/chat-application/internal/metrics"
	"github.com/Barunkrsingh/chat-application/internal/models"
	"github.com/Barunkrsingh/chat-application/internal/store"
)

// enqueueTimeout bounds how long a write waits on a full job queue.
const enqueueTimeout = 2 * time.Second

// Service is the message write path. Every write is authorized against the
// conversation's participants and the sender is always the caller.
type Service struct {
	identities store.IdentityStore
	messages   store.MessageStore
	blobs      store.BlobStore
	matcher    *dispatch.Matcher
	scheduler  dispatch.Scheduler
	logger     zerolog.Logger
}

// NewService creates a Service.
func NewService(
	identities store.IdentityStore,
	messages store.MessageStore,
	blobs store.BlobStore,
	matcher *dispatch.Matcher,
	scheduler dispatch.Scheduler,
	logger zerolog.Logger,
) *Service {
	return &Service{
		identities: identities,
		messages:   messages,
		blobs:      blobs,
		matcher:    matcher,
		scheduler:  scheduler,
		logger:     logger.With().Str("component", "chat").Logger(),
	}
}

// SendMessage appends a text message from the caller and, when the content
// starts with a trigger, schedules one AI job. The call never waits for the
// job.
func (s *Service) SendMessage(ctx context.Context, identity, conversationID, content string) (*models.Message, error) {
	user, conv, err := s.authorize(ctx, identity, conversationID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > MaxContentLength {
		return nil, fmt.Errorf("%w (%d bytes)", ErrContentTooLong, MaxContentLength)
	}

	msg, err := s.messages.Append(ctx, conv.ID.String(), user.ID.String(), content, models.KindText)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	metrics.MessagesSent.WithLabelValues(string(models.KindText)).Inc()

	s.dispatch(ctx, msg)
	return msg, nil
}

// SendMediaMessage appends an image or video message whose content is the
// resolved URL of storageRef. Media never triggers AI jobs.
func (s *Service) SendMediaMessage(ctx context.Context, identity, conversationID, storageRef string, kind models.MessageKind) (*models.Message, error) {
	user, conv, err := s.authorize(ctx, identity, conversationID)
	if err != nil {
		return nil, err
	}
	if !kind.IsMedia() {
		return nil, ErrInvalidKind
	}

	url, err := s.blobs.ResolveURL(ctx, storageRef)
	if err != nil {
		return nil, fmt.Errorf("resolve media: %w", err)
	}

	msg, err := s.messages.Append(ctx, conv.ID.String(), user.ID.String(), url, kind)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	metrics.MessagesSent.WithLabelValues(string(kind)).Inc()

	return msg, nil
}

// CreateConversation creates a conversation between the caller and
// participants. The caller is always a participant and becomes admin of a
// group.
func (s *Service) CreateConversation(ctx context.Context, identity string, participants []uuid.UUID, isGroup bool, groupName, groupImage string) (*models.Conversation, error) {
	user, err := s.caller(ctx, identity)
	if err != nil {
		return nil, err
	}

	members := []uuid.UUID{user.ID}
	seen := map[uuid.UUID]bool{user.ID: true}
	for _, id := range participants {
		if seen[id] {
			continue
		}
		seen[id] = true

		u, err := s.identities.GetUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lookup participant: %w", err)
		}
		if u == nil {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		members = append(members, id)
	}

	groupName = strings.TrimSpace(groupName)
	conv := &models.Conversation{Participants: members, IsGroup: isGroup}
	if isGroup {
		if groupName == "" {
			return nil, fmt.Errorf("%w: group name is required", ErrInvalidConversation)
		}
		conv.GroupName = groupName
		conv.GroupImage = groupImage
		conv.Admin = &user.ID
	} else if len(members) != 2 {
		return nil, fmt.Errorf("%w: a direct conversation needs exactly one other participant", ErrInvalidConversation)
	}

	created, err := s.identities.CreateConversation(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	s.logger.Info().
		Str("conversation_id", created.ID.String()).
		Int("participants", len(created.Participants)).
		Bool("group", created.IsGroup).
		Msg("conversation created")
	return created, nil
}

// Participant resolves identity and checks that it belongs to conversationID.
func (s *Service) Participant(ctx context.Context, identity, conversationID string) (*models.User, error) {
	user, _, err := s.authorize(ctx, identity, conversationID)
	return user, err
}

func (s *Service) caller(ctx context.Context, identity string) (*models.User, error) {
	if identity == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.identities.GetUserByToken(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) authorize(ctx context.Context, identity, conversationID string) (*models.User, *models.Conversation, error) {
	user, err := s.caller(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	id, err := uuid.Parse(conversationID)
	if err != nil {
		return nil, nil, ErrConversationNotFound
	}
	conv, err := s.identities.GetConversation(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup conversation: %w", err)
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}

	if !conv.HasParticipant(user.ID) {
		s.logger.Warn().
			Str("user_id", user.ID.String()).
			Str("conversation_id", conversationID).
			Msg("write rejected for non-participant")
		return nil, nil, ErrForbidden
	}
	return user, conv, nil
}

func (s *Service) dispatch(ctx context.Context, msg *models.Message) {
	kind := s.matcher.Match(msg.Content)
	if kind == dispatch.JobNone {
		return
	}

	job := dispatch.Job{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		Kind:           kind,
	}
	// The message is already stored; a lost job must not fail the write.
	ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	if err := s.scheduler.Enqueue(ectx, 0, job); err != nil {
		s.logger.Error().Err(err).
			Str("message_id", msg.ID).
			Str("job_kind", kind.String()).
			Msg("failed to schedule AI job")
		return
	}
	metrics.JobsDispatched.WithLabelValues(kind.String()).Inc()
}
