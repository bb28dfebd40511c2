package achievements

import (
	"context"
	"testing"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/achievement"
	"github.com/stillpoint/serenity/internal/app/storage/memory"
)

type refRecorder struct {
	calls [][2]string
}

func (r *refRecorder) AddAchievementRef(_ context.Context, userID, achievementID string) error {
	r.calls = append(r.calls, [2]string{userID, achievementID})
	return nil
}

func TestRecordProgressClampsAndCompletes(t *testing.T) {
	store := memory.New()
	refs := &refRecorder{}
	svc := New(store, refs, nil)
	ctx := context.Background()

	def, err := svc.CreateDefinition(ctx, achievement.Definition{Name: "ten sessions", Target: 10})
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}

	p, err := svc.RecordProgress(ctx, "u1", def.ID, 4)
	if err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if p.Current != 4 || p.Completed() {
		t.Fatalf("unexpected progress: %+v", p)
	}

	// Overshoot clamps at the target and completes.
	p, err = svc.RecordProgress(ctx, "u1", def.ID, 100)
	if err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if p.Current != 10 || !p.Completed() {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if len(refs.calls) != 1 || refs.calls[0] != [2]string{"u1", def.ID} {
		t.Fatalf("unexpected ref calls: %v", refs.calls)
	}

	// Further progress on a completed achievement is a no-op.
	p, err = svc.RecordProgress(ctx, "u1", def.ID, 1)
	if err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if p.Current != 10 || len(refs.calls) != 1 {
		t.Fatalf("completed achievement advanced: %+v, refs %v", p, refs.calls)
	}
}

func TestRecordProgressValidation(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	ctx := context.Background()

	if _, err := svc.RecordProgress(ctx, "u1", "missing", 1); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.RecordProgress(ctx, "u1", "any", 0); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDefinitionValidation(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	ctx := context.Background()

	if _, err := svc.CreateDefinition(ctx, achievement.Definition{Name: " ", Target: 5}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
	if _, err := svc.CreateDefinition(ctx, achievement.Definition{Name: "x", Target: 0}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for zero target, got %v", err)
	}
}
