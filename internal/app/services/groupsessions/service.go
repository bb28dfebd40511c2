// Package groupsessions manages shared practice sessions and their chat
// history. Both the REST chat routes and the realtime gateway persist
// messages through this service.
package groupsessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/chat"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/pkg/logger"
)

// MaxMessageLength caps chat message content.
const MaxMessageLength = 2000

// Service manages group sessions and chat.
type Service struct {
	store storage.ChatStore
	log   *logger.Logger
}

// New constructs a group session service.
func New(store storage.ChatStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("groupsessions")
	}
	return &Service{store: store, log: log}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	Name         string    `json:"name"`
	MeditationID string    `json:"meditation_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

// Create schedules a group session hosted by the given user.
func (s *Service) Create(ctx context.Context, hostID string, in CreateInput) (chat.GroupSession, error) {
	if strings.TrimSpace(in.Name) == "" {
		return chat.GroupSession{}, apperr.Validation("invalid group session").WithDetail("name", "is required")
	}
	if in.ScheduledAt.IsZero() {
		in.ScheduledAt = time.Now().UTC()
	}

	created, err := s.store.CreateGroupSession(ctx, chat.GroupSession{
		Name:         strings.TrimSpace(in.Name),
		HostID:       hostID,
		MeditationID: in.MeditationID,
		ScheduledAt:  in.ScheduledAt,
		Participants: []string{hostID},
	})
	if err != nil {
		return chat.GroupSession{}, err
	}

	s.log.WithField("group_session_id", created.ID).WithField("host_id", hostID).Info("group session created")
	return created, nil
}

// Get returns one group session.
func (s *Service) Get(ctx context.Context, id string) (chat.GroupSession, error) {
	gs, err := s.store.GetGroupSession(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return chat.GroupSession{}, apperr.NotFound("group session not found")
		}
		return chat.GroupSession{}, err
	}
	return gs, nil
}

// List returns all group sessions ordered by schedule.
func (s *Service) List(ctx context.Context) ([]chat.GroupSession, error) {
	return s.store.ListGroupSessions(ctx)
}

// Join adds a user to the participant list and records a system message.
// The returned message is what the gateway broadcasts to the room.
func (s *Service) Join(ctx context.Context, sessionID, userID, username string) (chat.Message, error) {
	gs, err := s.Get(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}

	if !contains(gs.Participants, userID) {
		gs.Participants = append(gs.Participants, userID)
		if _, err := s.store.UpdateGroupSession(ctx, gs); err != nil {
			return chat.Message{}, err
		}
	}

	return s.systemMessage(ctx, sessionID, username+" joined the session")
}

// Leave removes a user from the participant list and records a system
// message.
func (s *Service) Leave(ctx context.Context, sessionID, userID, username string) (chat.Message, error) {
	gs, err := s.Get(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}

	if contains(gs.Participants, userID) {
		gs.Participants = remove(gs.Participants, userID)
		if _, err := s.store.UpdateGroupSession(ctx, gs); err != nil {
			return chat.Message{}, err
		}
	}

	return s.systemMessage(ctx, sessionID, username+" left the session")
}

func (s *Service) systemMessage(ctx context.Context, sessionID, content string) (chat.Message, error) {
	return s.store.CreateMessage(ctx, chat.Message{
		SessionID: sessionID,
		Type:      chat.MessageTypeSystem,
		Content:   content,
	})
}

// PostMessage persists a user chat message.
func (s *Service) PostMessage(ctx context.Context, sessionID, senderID, senderName, content string) (chat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return chat.Message{}, apperr.Validation("invalid message").WithDetail("content", "is required")
	}
	if len(content) > MaxMessageLength {
		return chat.Message{}, apperr.Validation("invalid message").WithDetail("content", "too long")
	}

	msg, err := s.store.CreateMessage(ctx, chat.Message{
		SessionID:  sessionID,
		SenderID:   senderID,
		SenderName: senderName,
		Type:       chat.MessageTypeUser,
		Content:    content,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return chat.Message{}, apperr.NotFound("group session not found")
		}
		return chat.Message{}, err
	}
	return msg, nil
}

// ListMessages returns a page of chat history, oldest first.
func (s *Service) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]chat.Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, sessionID, limit, offset)
}

// Owner resolves the host of a group session.
func (s *Service) Owner(ctx context.Context, id string) (string, error) {
	gs, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return gs.HostID, nil
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

func remove(items []string, v string) []string {
	out := items[:0]
	for _, item := range items {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
