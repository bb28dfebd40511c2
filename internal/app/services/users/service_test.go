package users

import (
	"context"
	"testing"
	"time"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/storage/memory"
	"github.com/stillpoint/serenity/internal/auth"
)

func newTestService() *Service {
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	return New(memory.New(), tokens, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "Sup3rsecret",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated id")
	}
	if u.PasswordHash == "Sup3rsecret" {
		t.Fatal("password stored in plain text")
	}

	logged, token, err := svc.Login(ctx, "ada", "Sup3rsecret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != u.ID {
		t.Fatalf("login returned user %s, want %s", logged.ID, u.ID)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"short username", RegisterInput{Username: "ab", Email: "a@b.co", Password: "Sup3rsecret"}, "username"},
		{"bad email", RegisterInput{Username: "ada", Email: "nope", Password: "Sup3rsecret"}, "email"},
		{"short password", RegisterInput{Username: "ada", Email: "a@b.co", Password: "Ab1"}, "password"},
		{"no uppercase", RegisterInput{Username: "ada", Email: "a@b.co", Password: "sup3rsecret"}, "password"},
		{"no lowercase", RegisterInput{Username: "ada", Email: "a@b.co", Password: "SUP3RSECRET"}, "password"},
		{"no digit", RegisterInput{Username: "ada", Email: "a@b.co", Password: "Supersecret"}, "password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			appErr := apperr.FromError(err)
			if appErr == nil || appErr.Code != apperr.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := appErr.Details[tc.field]; !ok {
				t.Fatalf("expected detail for %q, got %v", tc.field, appErr.Details)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	in := RegisterInput{Username: "ada", Email: "ada@example.com", Password: "Sup3rsecret"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := svc.Register(ctx, in)
	appErr := apperr.FromError(err)
	if appErr == nil || appErr.Code != apperr.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "ada", Email: "ada@example.com", Password: "Sup3rsecret"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "ada", "wrong-password"); apperr.FromError(err) == nil ||
		apperr.FromError(err).Code != apperr.CodeUnauthorized {
		t.Fatalf("expected unauthorized for bad password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "Sup3rsecret"); apperr.FromError(err) == nil ||
		apperr.FromError(err).Code != apperr.CodeUnauthorized {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "ada", Email: "ada@example.com", Password: "Sup3rsecret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	name := "Ada L."
	bio := "meditating since 1843"
	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{DisplayName: &name, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.DisplayName != name || updated.Bio != bio {
		t.Fatalf("unexpected profile: %+v", updated)
	}

	badEmail := "not-an-email"
	if _, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &badEmail}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPromote(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "ada", Email: "ada@example.com", Password: "Sup3rsecret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	promoted, err := svc.Promote(ctx, u.ID)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !promoted.IsAdmin {
		t.Fatal("expected admin flag")
	}
}

func TestAddAchievementRefIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "ada", Email: "ada@example.com", Password: "Sup3rsecret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.AddAchievementRef(ctx, u.ID, "ach-1"); err != nil {
			t.Fatalf("AddAchievementRef: %v", err)
		}
	}

	got, err := svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Achievements) != 1 {
		t.Fatalf("expected one achievement ref, got %v", got.Achievements)
	}
}
