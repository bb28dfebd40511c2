package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/meditation"
	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/storage/memory"
)

func TestStartSetsInProgress(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "u1", session.KindBreathing, StartInput{CycleCount: 10, Pattern: "4-7-8"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Status != session.StatusInProgress {
		t.Fatalf("status = %s, want %s", sess.Status, session.StatusInProgress)
	}
	if sess.StartedAt == nil {
		t.Fatal("expected StartedAt")
	}
	if sess.CycleCount != 10 || sess.Pattern != "4-7-8" {
		t.Fatalf("kind-specific fields lost: %+v", sess)
	}
}

func TestStartRejectsUnknownKind(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if _, err := svc.Start(context.Background(), "u1", "yoga", StartInput{}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartRejectsMissingMeditation(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	_, err := svc.Start(context.Background(), "u1", session.KindMeditation, StartInput{MeditationID: "nope"})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompleteComputesDuration(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	m, err := store.CreateMeditation(ctx, meditation.Meditation{Title: "calm"})
	if err != nil {
		t.Fatalf("CreateMeditation: %v", err)
	}

	sess, err := svc.Start(ctx, "u1", session.KindMeditation, StartInput{MeditationID: m.ID})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	done, err := svc.Complete(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != session.StatusCompleted {
		t.Fatalf("status = %s", done.Status)
	}
	if done.DurationSeconds != 600 {
		t.Fatalf("duration = %d, want 600", done.DurationSeconds)
	}
}

func TestTransitionRejectsRegression(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "u1", session.KindPMR, StartInput{MuscleGroups: []string{"shoulders"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Complete(ctx, sess.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if _, err := svc.Cancel(ctx, sess.ID); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error cancelling a completed session, got %v", err)
	}
	if _, err := svc.Complete(ctx, sess.ID); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error completing twice, got %v", err)
	}
}

func TestListFiltersByKind(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", session.KindBreathing, StartInput{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Start(ctx, "u1", session.KindPMR, StartInput{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Start(ctx, "u2", session.KindBreathing, StartInput{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	list, err := svc.List(ctx, "u1", session.KindBreathing)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}
}

func TestOwner(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "u1", session.KindMeditation, StartInput{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	owner, err := svc.Owner(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if owner != "u1" {
		t.Fatalf("owner = %s, want u1", owner)
	}

	if _, err := svc.Owner(ctx, "missing"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
