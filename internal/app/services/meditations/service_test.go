package meditations

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/cache"
	"github.com/stillpoint/serenity/internal/app/domain/meditation"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/internal/app/storage/memory"
)

func validInput() Input {
	return Input{
		Title:           "Morning calm",
		Category:        meditation.CategoryGuided,
		Difficulty:      meditation.DifficultyBeginner,
		DurationSeconds: 600,
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	ctx := context.Background()

	in := validInput()
	in.Title = " "
	in.Category = "nap"
	in.DurationSeconds = -1

	_, err := svc.Create(ctx, in, "admin")
	appErr := apperr.FromError(err)
	if appErr == nil || appErr.Code != apperr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"title", "category", "duration_seconds"} {
		if _, ok := appErr.Details[field]; !ok {
			t.Fatalf("missing detail for %q: %v", field, appErr.Details)
		}
	}
}

func TestCRUDWithFilter(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput(), "admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	advanced := validInput()
	advanced.Title = "Deep focus"
	advanced.Difficulty = meditation.DifficultyAdvanced
	if _, err := svc.Create(ctx, advanced, "admin"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := svc.List(ctx, storage.MeditationFilter{Difficulty: meditation.DifficultyBeginner})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWritesInvalidateCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0, time.Minute, nil)
	defer c.Close()

	svc := New(memory.New(), c, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput(), "admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// First read misses and fills the cache; second read hits.
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stats := c.Stats(ctx); stats.Hits != 1 {
		t.Fatalf("hits = %d, want 1", stats.Hits)
	}

	// An update invalidates, so the next read goes back to the store.
	in := validInput()
	in.Title = "Evening calm"
	if _, err := svc.Update(ctx, created.ID, in); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.Title != "Evening calm" {
		t.Fatalf("stale title %q", got.Title)
	}
}
