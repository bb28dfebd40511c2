// Package analytics computes per-user practice aggregates.
package analytics

import (
	"context"
	"time"

	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/pkg/logger"
)

// Report is a user's practice summary.
type Report struct {
	TotalSessions  int                  `json:"total_sessions"`
	TotalMinutes   int                  `json:"total_minutes"`
	CompletionRate float64              `json:"completion_rate"`
	StreakDays     int                  `json:"streak_days"`
	ByKind         map[session.Kind]int `json:"by_kind"`
}

// Service computes analytics from session history.
type Service struct {
	sessions storage.SessionStore
	log      *logger.Logger
	now      func() time.Time
}

// New constructs an analytics service.
func New(sessions storage.SessionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("analytics")
	}
	return &Service{sessions: sessions, log: log, now: time.Now}
}

// Report aggregates a user's practice history. Streak counts consecutive
// calendar days with at least one completed session, ending today or
// yesterday.
func (s *Service) Report(ctx context.Context, userID string) (Report, error) {
	list, err := s.sessions.ListSessions(ctx, userID, "")
	if err != nil {
		return Report{}, err
	}

	report := Report{ByKind: make(map[session.Kind]int)}
	report.TotalSessions = len(list)

	days := make(map[string]bool)
	var completed int
	for _, sess := range list {
		report.ByKind[sess.Kind]++
		if sess.Status != session.StatusCompleted {
			continue
		}
		completed++
		report.TotalMinutes += sess.DurationSeconds / 60
		if sess.EndedAt != nil {
			days[sess.EndedAt.UTC().Format("2006-01-02")] = true
		}
	}

	if report.TotalSessions > 0 {
		report.CompletionRate = float64(completed) / float64(report.TotalSessions)
	}
	report.StreakDays = streak(days, s.now().UTC())
	return report, nil
}

func streak(days map[string]bool, now time.Time) int {
	day := now
	// A streak may still be alive if today has no session yet.
	if !days[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}

	count := 0
	for days[day.Format("2006-01-02")] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}
