// Package meditations manages the content catalog. Reads go through the
// content cache; writes invalidate it.
package meditations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/cache"
	"github.com/stillpoint/serenity/internal/app/domain/meditation"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/pkg/logger"
)

// Service manages meditation content.
type Service struct {
	store storage.MeditationStore
	cache *cache.Cache
	log   *logger.Logger
}

// New constructs a meditation service.
func New(store storage.MeditationStore, c *cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("meditations")
	}
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{store: store, cache: c, log: log}
}

// Input is the payload for Create and Update.
type Input struct {
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Category        meditation.Category   `json:"category"`
	Difficulty      meditation.Difficulty `json:"difficulty"`
	DurationSeconds int                   `json:"duration_seconds"`
	AudioURL        string                `json:"audio_url"`
}

func (in *Input) validate() error {
	verr := apperr.Validation("invalid meditation")
	if strings.TrimSpace(in.Title) == "" {
		verr.WithDetail("title", "is required")
	}
	if !meditation.ValidCategory(in.Category) {
		verr.WithDetail("category", "must be one of guided, unguided, breathing, body_scan, loving_kindness")
	}
	if !meditation.ValidDifficulty(in.Difficulty) {
		verr.WithDetail("difficulty", "must be one of beginner, intermediate, advanced")
	}
	if in.DurationSeconds < 0 {
		verr.WithDetail("duration_seconds", "must not be negative")
	}
	if len(verr.Details) > 0 {
		return verr
	}
	return nil
}

// Create adds content to the catalog.
func (s *Service) Create(ctx context.Context, in Input, createdBy string) (meditation.Meditation, error) {
	if err := in.validate(); err != nil {
		return meditation.Meditation{}, err
	}

	created, err := s.store.CreateMeditation(ctx, meditation.Meditation{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Category:        in.Category,
		Difficulty:      in.Difficulty,
		DurationSeconds: in.DurationSeconds,
		AudioURL:        in.AudioURL,
		CreatedBy:       createdBy,
	})
	if err != nil {
		return meditation.Meditation{}, err
	}

	s.cache.InvalidatePrefix(ctx, "meditations:")
	s.log.WithField("meditation_id", created.ID).WithField("category", created.Category).Info("meditation created")
	return created, nil
}

// Update replaces content fields.
func (s *Service) Update(ctx context.Context, id string, in Input) (meditation.Meditation, error) {
	if err := in.validate(); err != nil {
		return meditation.Meditation{}, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return meditation.Meditation{}, err
	}
	existing.Title = strings.TrimSpace(in.Title)
	existing.Description = in.Description
	existing.Category = in.Category
	existing.Difficulty = in.Difficulty
	existing.DurationSeconds = in.DurationSeconds
	existing.AudioURL = in.AudioURL

	updated, err := s.store.UpdateMeditation(ctx, existing)
	if err != nil {
		return meditation.Meditation{}, err
	}

	s.cache.InvalidatePrefix(ctx, "meditations:")
	return updated, nil
}

// Get returns one meditation, through the cache.
func (s *Service) Get(ctx context.Context, id string) (meditation.Meditation, error) {
	key := "meditations:item:" + id

	var m meditation.Meditation
	if ok := s.cache.Get(ctx, key, &m); ok {
		return m, nil
	}

	m, err := s.store.GetMeditation(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return meditation.Meditation{}, apperr.NotFound("meditation not found")
		}
		return meditation.Meditation{}, err
	}

	s.cache.Set(ctx, key, m)
	return m, nil
}

// List returns catalog content matching the filter, through the cache.
func (s *Service) List(ctx context.Context, filter storage.MeditationFilter) ([]meditation.Meditation, error) {
	key := fmt.Sprintf("meditations:list:%s:%s", filter.Category, filter.Difficulty)

	var cached []meditation.Meditation
	if ok := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	list, err := s.store.ListMeditations(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, list)
	return list, nil
}

// Delete removes content from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteMeditation(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("meditation not found")
		}
		return err
	}
	s.cache.InvalidatePrefix(ctx, "meditations:")
	s.log.WithField("meditation_id", id).Info("meditation deleted")
	return nil
}
