// Package assessments manages stress check-ins and their aggregates.
package assessments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/assessment"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/pkg/logger"
)

// Service manages stress assessments.
type Service struct {
	store storage.AssessmentStore
	log   *logger.Logger
}

// New constructs an assessment service.
func New(store storage.AssessmentStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("assessments")
	}
	return &Service{store: store, log: log}
}

// Input is the payload for Create.
type Input struct {
	StressLevel int      `json:"stress_level"`
	Symptoms    []string `json:"symptoms"`
	Triggers    []string `json:"triggers"`
	Notes       string   `json:"notes"`
}

// Create validates bounds and stores a check-in; the category is derived
// from the stress level.
func (s *Service) Create(ctx context.Context, userID string, in Input) (assessment.StressAssessment, error) {
	verr := apperr.Validation("invalid assessment")
	if in.StressLevel < assessment.MinStressLevel || in.StressLevel > assessment.MaxStressLevel {
		verr.WithDetail("stress_level", fmt.Sprintf("must be between %d and %d",
			assessment.MinStressLevel, assessment.MaxStressLevel))
	}
	if len(in.Symptoms) > assessment.MaxListItems {
		verr.WithDetail("symptoms", fmt.Sprintf("at most %d entries", assessment.MaxListItems))
	}
	if len(in.Triggers) > assessment.MaxListItems {
		verr.WithDetail("triggers", fmt.Sprintf("at most %d entries", assessment.MaxListItems))
	}
	if len(in.Notes) > assessment.MaxNotesLength {
		verr.WithDetail("notes", fmt.Sprintf("at most %d characters", assessment.MaxNotesLength))
	}
	if len(verr.Details) > 0 {
		return assessment.StressAssessment{}, verr
	}

	created, err := s.store.CreateAssessment(ctx, assessment.StressAssessment{
		UserID:      userID,
		StressLevel: in.StressLevel,
		Category:    assessment.Categorize(in.StressLevel),
		Symptoms:    normalizeList(in.Symptoms),
		Triggers:    normalizeList(in.Triggers),
		Notes:       in.Notes,
	})
	if err != nil {
		return assessment.StressAssessment{}, err
	}

	s.log.WithField("assessment_id", created.ID).
		WithField("user_id", userID).
		WithField("category", created.Category).
		Info("assessment recorded")
	return created, nil
}

func normalizeList(items []string) []string {
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Get returns one assessment.
func (s *Service) Get(ctx context.Context, id string) (assessment.StressAssessment, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return assessment.StressAssessment{}, apperr.NotFound("assessment not found")
		}
		return assessment.StressAssessment{}, err
	}
	return a, nil
}

// List returns a user's assessments, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]assessment.StressAssessment, error) {
	return s.store.ListAssessments(ctx, userID)
}

// Delete removes an assessment.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAssessment(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("assessment not found")
		}
		return err
	}
	return nil
}

// Owner resolves the owning user of an assessment.
func (s *Service) Owner(ctx context.Context, id string) (string, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return a.UserID, nil
}

// Summary aggregates a user's assessments: count, average level, category
// distribution, and the three most frequent symptoms and triggers.
func (s *Service) Summary(ctx context.Context, userID string) (assessment.Summary, error) {
	list, err := s.store.ListAssessments(ctx, userID)
	if err != nil {
		return assessment.Summary{}, err
	}

	summary := assessment.Summary{ByCategory: make(map[assessment.Category]int)}
	if len(list) == 0 {
		return summary, nil
	}

	var total int
	symptomCounts := make(map[string]int)
	triggerCounts := make(map[string]int)
	for _, a := range list {
		total += a.StressLevel
		summary.ByCategory[assessment.Categorize(a.StressLevel)]++
		for _, sym := range a.Symptoms {
			symptomCounts[sym]++
		}
		for _, trg := range a.Triggers {
			triggerCounts[trg]++
		}
	}

	summary.Count = len(list)
	summary.AverageLevel = float64(total) / float64(len(list))
	summary.TopSymptoms = topN(symptomCounts, 3)
	summary.TopTriggers = topN(triggerCounts, 3)
	return summary, nil
}

func topN(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
