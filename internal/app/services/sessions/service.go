// Package sessions manages practice session lifecycles for all three
// practice kinds.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/pkg/logger"
)

// Service manages practice sessions.
type Service struct {
	store       storage.SessionStore
	meditations storage.MeditationStore
	log         *logger.Logger
	now         func() time.Time
}

// New constructs a session service.
func New(store storage.SessionStore, meditations storage.MeditationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sessions")
	}
	return &Service{store: store, meditations: meditations, log: log, now: time.Now}
}

// StartInput is the payload for Start.
type StartInput struct {
	MeditationID string   `json:"meditation_id"`
	Notes        string   `json:"notes"`
	CycleCount   int      `json:"cycle_count"`
	Pattern      string   `json:"pattern"`
	MuscleGroups []string `json:"muscle_groups"`
}

// Start creates a session and immediately moves it to IN_PROGRESS.
func (s *Service) Start(ctx context.Context, userID string, kind session.Kind, in StartInput) (session.Session, error) {
	if !session.ValidKind(kind) {
		return session.Session{}, apperr.Validation("invalid session").WithDetail("kind", "unknown session kind")
	}

	if in.MeditationID != "" && s.meditations != nil {
		if _, err := s.meditations.GetMeditation(ctx, in.MeditationID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return session.Session{}, apperr.Validation("invalid session").WithDetail("meditation_id", "meditation does not exist")
			}
			return session.Session{}, err
		}
	}

	now := s.now().UTC()
	created, err := s.store.CreateSession(ctx, session.Session{
		UserID:       userID,
		Kind:         kind,
		MeditationID: in.MeditationID,
		Status:       session.StatusInProgress,
		StartedAt:    &now,
		Notes:        in.Notes,
		CycleCount:   in.CycleCount,
		Pattern:      in.Pattern,
		MuscleGroups: in.MuscleGroups,
	})
	if err != nil {
		return session.Session{}, err
	}

	s.log.WithField("session_id", created.ID).
		WithField("user_id", userID).
		WithField("kind", kind).
		Info("session started")
	return created, nil
}

// Complete transitions a session to COMPLETED and computes its duration.
func (s *Service) Complete(ctx context.Context, id string) (session.Session, error) {
	return s.transition(ctx, id, session.StatusCompleted)
}

// Cancel transitions a session to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id string) (session.Session, error) {
	return s.transition(ctx, id, session.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id string, to session.Status) (session.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return session.Session{}, err
	}

	if !session.CanTransition(sess.Status, to) {
		return session.Session{}, apperr.Validation(
			fmt.Sprintf("cannot transition session from %s to %s", sess.Status, to))
	}

	now := s.now().UTC()
	sess.Status = to
	sess.EndedAt = &now
	if to == session.StatusCompleted && sess.StartedAt != nil {
		sess.DurationSeconds = int(now.Sub(*sess.StartedAt).Seconds())
	}

	updated, err := s.store.UpdateSession(ctx, sess)
	if err != nil {
		return session.Session{}, err
	}

	s.log.WithField("session_id", id).WithField("status", to).Info("session transitioned")
	return updated, nil
}

// Get returns one session.
func (s *Service) Get(ctx context.Context, id string) (session.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return session.Session{}, apperr.NotFound("session not found")
		}
		return session.Session{}, err
	}
	return sess, nil
}

// List returns a user's sessions of the given kind.
func (s *Service) List(ctx context.Context, userID string, kind session.Kind) ([]session.Session, error) {
	return s.store.ListSessions(ctx, userID, kind)
}

// Delete removes a session record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("session not found")
		}
		return err
	}
	return nil
}

// Owner resolves the owning user of a session, for the owner-or-admin gate.
func (s *Service) Owner(ctx context.Context, id string) (string, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return sess.UserID, nil
}
