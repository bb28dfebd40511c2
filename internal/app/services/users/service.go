// Package users handles registration, login, and account management.
package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/user"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/internal/auth"
	"github.com/stillpoint/serenity/pkg/logger"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service manages user accounts.
type Service struct {
	store  storage.UserStore
	tokens *auth.TokenService
	log    *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, tokens *auth.TokenService, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, tokens: tokens, log: log}
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Register validates input, hashes the password, and creates the account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	verr := apperr.Validation("registration failed")
	if len(in.Username) < 3 || len(in.Username) > 32 {
		verr.WithDetail("username", "must be between 3 and 32 characters")
	}
	if !emailPattern.MatchString(in.Email) {
		verr.WithDetail("email", "must be a valid email address")
	}
	if msg := passwordRuleViolation(in.Password); msg != "" {
		verr.WithDetail("password", msg)
	}
	if len(verr.Details) > 0 {
		return user.User{}, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, apperr.Internal("hash password", err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return user.User{}, apperr.Conflict("username or email already in use")
		}
		return user.User{}, err
	}

	s.log.WithField("user_id", created.ID).WithField("username", created.Username).Info("user registered")
	return created, nil
}

// passwordRuleViolation returns the first violated password rule, or "".
func passwordRuleViolation(password string) string {
	if len(password) < 8 {
		return "must be at least 8 characters"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	switch {
	case !hasUpper:
		return "must contain at least one uppercase letter"
	case !hasLower:
		return "must contain at least one lowercase letter"
	case !hasDigit:
		return "must contain at least one digit"
	}
	return ""
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (user.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, "", apperr.Unauthorized("invalid credentials")
		}
		return user.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return user.User{}, "", apperr.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(auth.Principal{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin})
	if err != nil {
		return user.User{}, "", apperr.Internal("issue token", err)
	}

	s.log.WithField("user_id", u.ID).Info("user logged in")
	return u, token, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, apperr.NotFound("user not found")
		}
		return user.User{}, err
	}
	return u, nil
}

// List returns all users. Admin only; enforced at the route layer.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// UpdateProfileInput is the payload for UpdateProfile.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	Email       *string `json:"email"`
}

// UpdateProfile applies partial profile changes.
func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	if in.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Bio != nil {
		if len(*in.Bio) > 500 {
			return user.User{}, apperr.Validation("invalid profile").WithDetail("bio", "must be at most 500 characters")
		}
		u.Bio = *in.Bio
	}
	if in.Email != nil {
		if !emailPattern.MatchString(*in.Email) {
			return user.User{}, apperr.Validation("invalid profile").WithDetail("email", "must be a valid email address")
		}
		u.Email = strings.TrimSpace(*in.Email)
	}

	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	return updated, nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

// Promote grants the admin flag.
func (s *Service) Promote(ctx context.Context, id string) (user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if u.IsAdmin {
		return u, nil
	}
	u.IsAdmin = true
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).Info("user promoted to admin")
	return updated, nil
}

// Owner resolves the owning user of a user resource, which is the user
// itself. Used by the owner-or-admin route gate.
func (s *Service) Owner(ctx context.Context, id string) (string, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// AddAchievementRef appends an achievement reference to the user record.
func (s *Service) AddAchievementRef(ctx context.Context, userID, achievementID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	for _, ref := range u.Achievements {
		if ref == achievementID {
			return nil
		}
	}
	u.Achievements = append(u.Achievements, achievementID)
	if _, err := s.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("record achievement ref: %w", err)
	}
	return nil
}
