package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/storage/memory"
)

func seedSession(t *testing.T, store *memory.Store, userID string, kind session.Kind, status session.Status, endedAt time.Time, seconds int) {
	t.Helper()
	sess := session.Session{
		UserID:          userID,
		Kind:            kind,
		Status:          status,
		DurationSeconds: seconds,
	}
	if !endedAt.IsZero() {
		sess.EndedAt = &endedAt
	}
	if _, err := store.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
}

func TestReport(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seedSession(t, store, "u1", session.KindMeditation, session.StatusCompleted, now, 600)
	seedSession(t, store, "u1", session.KindMeditation, session.StatusCompleted, now.AddDate(0, 0, -1), 300)
	seedSession(t, store, "u1", session.KindBreathing, session.StatusCompleted, now.AddDate(0, 0, -2), 120)
	seedSession(t, store, "u1", session.KindPMR, session.StatusCancelled, time.Time{}, 0)
	seedSession(t, store, "u2", session.KindMeditation, session.StatusCompleted, now, 600)

	report, err := svc.Report(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if report.TotalSessions != 4 {
		t.Fatalf("total = %d", report.TotalSessions)
	}
	if report.TotalMinutes != 17 {
		t.Fatalf("minutes = %d", report.TotalMinutes)
	}
	if report.CompletionRate != 0.75 {
		t.Fatalf("completion rate = %f", report.CompletionRate)
	}
	if report.StreakDays != 3 {
		t.Fatalf("streak = %d", report.StreakDays)
	}
	if report.ByKind[session.KindMeditation] != 2 || report.ByKind[session.KindBreathing] != 1 || report.ByKind[session.KindPMR] != 1 {
		t.Fatalf("by kind = %v", report.ByKind)
	}
}

func TestStreakSurvivesMissingToday(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// Sessions yesterday and the day before, none today.
	seedSession(t, store, "u1", session.KindMeditation, session.StatusCompleted, now.AddDate(0, 0, -1), 60)
	seedSession(t, store, "u1", session.KindMeditation, session.StatusCompleted, now.AddDate(0, 0, -2), 60)

	report, err := svc.Report(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.StreakDays != 2 {
		t.Fatalf("streak = %d, want 2", report.StreakDays)
	}
}

func TestStreakBrokenByGap(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seedSession(t, store, "u1", session.KindMeditation, session.StatusCompleted, now, 60)
	seedSession(t, store, "u1", session.KindMeditation, session.StatusCompleted, now.AddDate(0, 0, -3), 60)

	report, err := svc.Report(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.StreakDays != 1 {
		t.Fatalf("streak = %d, want 1", report.StreakDays)
	}
}

func TestReportEmpty(t *testing.T) {
	svc := New(memory.New(), nil)

	report, err := svc.Report(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.TotalSessions != 0 || report.CompletionRate != 0 || report.StreakDays != 0 {
		t.Fatalf("expected zero report, got %+v", report)
	}
}
