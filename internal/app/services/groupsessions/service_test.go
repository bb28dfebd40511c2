package groupsessions

import (
	"context"
	"strings"
	"testing"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/chat"
	"github.com/stillpoint/serenity/internal/app/storage/memory"
)

func TestCreateAddsHostAsParticipant(t *testing.T) {
	svc := New(memory.New(), nil)

	gs, err := svc.Create(context.Background(), "host", CreateInput{Name: "morning sit"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if gs.HostID != "host" {
		t.Fatalf("host = %s", gs.HostID)
	}
	if len(gs.Participants) != 1 || gs.Participants[0] != "host" {
		t.Fatalf("participants = %v", gs.Participants)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc := New(memory.New(), nil)
	if _, err := svc.Create(context.Background(), "host", CreateInput{Name: "  "}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestJoinAndLeave(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	gs, err := svc.Create(ctx, "host", CreateInput{Name: "morning sit"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	msg, err := svc.Join(ctx, gs.ID, "u2", "ada")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if msg.Type != chat.MessageTypeSystem || !strings.Contains(msg.Content, "ada joined") {
		t.Fatalf("unexpected system message: %+v", msg)
	}

	// Joining twice does not duplicate the participant.
	if _, err := svc.Join(ctx, gs.ID, "u2", "ada"); err != nil {
		t.Fatalf("Join again: %v", err)
	}
	got, err := svc.Get(ctx, gs.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Participants) != 2 {
		t.Fatalf("participants = %v", got.Participants)
	}

	msg, err = svc.Leave(ctx, gs.ID, "u2", "ada")
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if !strings.Contains(msg.Content, "ada left") {
		t.Fatalf("unexpected system message: %+v", msg)
	}
	got, _ = svc.Get(ctx, gs.ID)
	if len(got.Participants) != 1 {
		t.Fatalf("participants after leave = %v", got.Participants)
	}
}

func TestJoinUnknownSession(t *testing.T) {
	svc := New(memory.New(), nil)
	if _, err := svc.Join(context.Background(), "missing", "u1", "ada"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostMessageValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	gs, err := svc.Create(ctx, "host", CreateInput{Name: "sit"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.PostMessage(ctx, gs.ID, "u1", "ada", "   "); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for blank content, got %v", err)
	}
	if _, err := svc.PostMessage(ctx, gs.ID, "u1", "ada", strings.Repeat("x", MaxMessageLength+1)); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for long content, got %v", err)
	}

	msg, err := svc.PostMessage(ctx, gs.ID, "u1", "ada", "hello")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if msg.Type != chat.MessageTypeUser || msg.SenderID != "u1" || msg.SenderName != "ada" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestListMessagesPagination(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	gs, err := svc.Create(ctx, "host", CreateInput{Name: "sit"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	contents := []string{"one", "two", "three", "four", "five"}
	for _, c := range contents {
		if _, err := svc.PostMessage(ctx, gs.ID, "u1", "ada", c); err != nil {
			t.Fatalf("PostMessage: %v", err)
		}
	}

	page, err := svc.ListMessages(ctx, gs.ID, 2, 1)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(page) != 2 || page[0].Content != "two" || page[1].Content != "three" {
		t.Fatalf("unexpected page: %+v", page)
	}

	if _, err := svc.ListMessages(ctx, "missing", 10, 0); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
