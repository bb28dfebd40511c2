// Package friends manages friend requests and friend lists.
package friends

import (
	"context"
	"errors"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/app/domain/friendship"
	"github.com/stillpoint/serenity/internal/app/domain/user"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/pkg/logger"
)

// Service manages friendships.
type Service struct {
	requests storage.FriendStore
	users    storage.UserStore
	log      *logger.Logger
}

// New constructs a friends service.
func New(requests storage.FriendStore, users storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("friends")
	}
	return &Service{requests: requests, users: users, log: log}
}

// SendRequest creates a pending friend request.
func (s *Service) SendRequest(ctx context.Context, fromUserID, toUserID string) (friendship.Request, error) {
	if fromUserID == toUserID {
		return friendship.Request{}, apperr.Validation("invalid friend request").WithDetail("to_user_id", "cannot befriend yourself")
	}

	target, err := s.users.GetUser(ctx, toUserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return friendship.Request{}, apperr.NotFound("user not found")
		}
		return friendship.Request{}, err
	}
	for _, friendID := range target.Friends {
		if friendID == fromUserID {
			return friendship.Request{}, apperr.Conflict("already friends")
		}
	}

	req, err := s.requests.CreateFriendRequest(ctx, friendship.Request{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     friendship.StatusPending,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return friendship.Request{}, apperr.Conflict("friend request already pending")
		}
		return friendship.Request{}, err
	}

	s.log.WithField("from", fromUserID).WithField("to", toUserID).Info("friend request sent")
	return req, nil
}

// Accept resolves a pending request and links both users. Only the recipient
// may accept.
func (s *Service) Accept(ctx context.Context, requestID, actingUserID string) (friendship.Request, error) {
	req, err := s.getPending(ctx, requestID)
	if err != nil {
		return friendship.Request{}, err
	}
	if req.ToUserID != actingUserID {
		return friendship.Request{}, apperr.Forbidden("only the recipient can accept a friend request")
	}

	req.Status = friendship.StatusAccepted
	updated, err := s.requests.UpdateFriendRequest(ctx, req)
	if err != nil {
		return friendship.Request{}, err
	}

	if err := s.link(ctx, req.FromUserID, req.ToUserID); err != nil {
		return friendship.Request{}, err
	}

	s.log.WithField("request_id", requestID).Info("friend request accepted")
	return updated, nil
}

// Decline resolves a pending request without linking. Only the recipient may
// decline.
func (s *Service) Decline(ctx context.Context, requestID, actingUserID string) (friendship.Request, error) {
	req, err := s.getPending(ctx, requestID)
	if err != nil {
		return friendship.Request{}, err
	}
	if req.ToUserID != actingUserID {
		return friendship.Request{}, apperr.Forbidden("only the recipient can decline a friend request")
	}

	req.Status = friendship.StatusDeclined
	return s.requests.UpdateFriendRequest(ctx, req)
}

func (s *Service) getPending(ctx context.Context, requestID string) (friendship.Request, error) {
	req, err := s.requests.GetFriendRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return friendship.Request{}, apperr.NotFound("friend request not found")
		}
		return friendship.Request{}, err
	}
	if req.Status != friendship.StatusPending {
		return friendship.Request{}, apperr.Conflict("friend request already resolved")
	}
	return req, nil
}

func (s *Service) link(ctx context.Context, a, b string) error {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		u, err := s.users.GetUser(ctx, pair[0])
		if err != nil {
			return err
		}
		if !containsID(u.Friends, pair[1]) {
			u.Friends = append(u.Friends, pair[1])
			if _, err := s.users.UpdateUser(ctx, u); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListRequests returns all requests involving a user.
func (s *Service) ListRequests(ctx context.Context, userID string) ([]friendship.Request, error) {
	return s.requests.ListFriendRequests(ctx, userID)
}

// ListFriends returns a user's friends.
func (s *Service) ListFriends(ctx context.Context, userID string) ([]user.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}

	out := make([]user.User, 0, len(u.Friends))
	for _, friendID := range u.Friends {
		friend, err := s.users.GetUser(ctx, friendID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue // friend account deleted
			}
			return nil, err
		}
		out = append(out, friend)
	}
	return out, nil
}

// Remove unlinks two users.
func (s *Service) Remove(ctx context.Context, userID, friendID string) error {
	for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
		u, err := s.users.GetUser(ctx, pair[0])
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return err
		}
		u.Friends = removeID(u.Friends, pair[1])
		if _, err := s.users.UpdateUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func containsID(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

func removeID(items []string, v string) []string {
	out := items[:0]
	for _, item := range items {
		if item != v {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
