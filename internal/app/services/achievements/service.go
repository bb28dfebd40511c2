// Package achievements tracks definitions and per-user progress.
package achievements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/achievement"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/pkg/logger"
)

// UserRefRecorder appends a completed achievement reference to the user
// record. Implemented by the users service.
type UserRefRecorder interface {
	AddAchievementRef(ctx context.Context, userID, achievementID string) error
}

// Service manages achievements.
type Service struct {
	store    storage.AchievementStore
	userRefs UserRefRecorder
	log      *logger.Logger
	now      func() time.Time
}

// New constructs an achievement service.
func New(store storage.AchievementStore, userRefs UserRefRecorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("achievements")
	}
	return &Service{store: store, userRefs: userRefs, log: log, now: time.Now}
}

// CreateDefinition registers a new achievement. Admin only; enforced at the
// route layer.
func (s *Service) CreateDefinition(ctx context.Context, def achievement.Definition) (achievement.Definition, error) {
	if strings.TrimSpace(def.Name) == "" {
		return achievement.Definition{}, apperr.Validation("invalid achievement").WithDetail("name", "is required")
	}
	if def.Target <= 0 {
		return achievement.Definition{}, apperr.Validation("invalid achievement").WithDetail("target", "must be positive")
	}
	return s.store.CreateDefinition(ctx, def)
}

// ListDefinitions returns all achievement definitions.
func (s *Service) ListDefinitions(ctx context.Context) ([]achievement.Definition, error) {
	return s.store.ListDefinitions(ctx)
}

// ListProgress returns a user's progress across all achievements.
func (s *Service) ListProgress(ctx context.Context, userID string) ([]achievement.Progress, error) {
	return s.store.ListProgress(ctx, userID)
}

// RecordProgress advances a user's progress toward an achievement by delta.
// Reaching the target marks completion and appends the achievement to the
// user record. Progress past the target is clamped.
func (s *Service) RecordProgress(ctx context.Context, userID, achievementID string, delta int) (achievement.Progress, error) {
	if delta <= 0 {
		return achievement.Progress{}, apperr.Validation("invalid progress").WithDetail("delta", "must be positive")
	}

	def, err := s.store.GetDefinition(ctx, achievementID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return achievement.Progress{}, apperr.NotFound("achievement not found")
		}
		return achievement.Progress{}, err
	}

	progress, err := s.store.GetProgress(ctx, userID, achievementID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return achievement.Progress{}, err
		}
		progress = achievement.Progress{
			UserID:        userID,
			AchievementID: achievementID,
			Target:        def.Target,
		}
	}

	if progress.Completed() {
		return progress, nil
	}

	progress.Current += delta
	if progress.Current >= progress.Target {
		progress.Current = progress.Target
		completed := s.now().UTC()
		progress.CompletedAt = &completed
	}

	updated, err := s.store.UpsertProgress(ctx, progress)
	if err != nil {
		return achievement.Progress{}, err
	}

	if updated.Completed() {
		if s.userRefs != nil {
			if err := s.userRefs.AddAchievementRef(ctx, userID, achievementID); err != nil {
				s.log.WithError(err).WithField("user_id", userID).Warn("failed to record achievement ref")
			}
		}
		s.log.WithField("user_id", userID).
			WithField("achievement_id", achievementID).
			Info("achievement completed")
	}
	return updated, nil
}
