// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stillpoint/serenity/internal/app/domain/achievement"
	"github.com/stillpoint/serenity/internal/app/domain/assessment"
	"github.com/stillpoint/serenity/internal/app/domain/chat"
	"github.com/stillpoint/serenity/internal/app/domain/friendship"
	"github.com/stillpoint/serenity/internal/app/domain/meditation"
	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/domain/user"
	"github.com/stillpoint/serenity/internal/app/storage"
)

// Store is an in-memory implementation of all storage interfaces.
type Store struct {
	mu            sync.RWMutex
	users         map[string]user.User
	meditations   map[string]meditation.Meditation
	sessions      map[string]session.Session
	assessments   map[string]assessment.StressAssessment
	definitions   map[string]achievement.Definition
	progress      map[string]achievement.Progress
	groupSessions map[string]chat.GroupSession
	messages      map[string][]chat.Message
	friendReqs    map[string]friendship.Request
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.MeditationStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.AssessmentStore = (*Store)(nil)
var _ storage.AchievementStore = (*Store)(nil)
var _ storage.ChatStore = (*Store)(nil)
var _ storage.FriendStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]user.User),
		meditations:   make(map[string]meditation.Meditation),
		sessions:      make(map[string]session.Session),
		assessments:   make(map[string]assessment.StressAssessment),
		definitions:   make(map[string]achievement.Definition),
		progress:      make(map[string]achievement.Progress),
		groupSessions: make(map[string]chat.GroupSession),
		messages:      make(map[string][]chat.Message),
		friendReqs:    make(map[string]friendship.Request),
	}
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return user.User{}, fmt.Errorf("username %s: %w", u.Username, storage.ErrDuplicate)
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, fmt.Errorf("email %s: %w", u.Email, storage.ErrDuplicate)
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	delete(s.users, id)
	return nil
}

// MeditationStore implementation ----------------------------------------------

func (s *Store) CreateMeditation(_ context.Context, m meditation.Meditation) (meditation.Meditation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	s.meditations[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMeditation(_ context.Context, m meditation.Meditation) (meditation.Meditation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.meditations[m.ID]
	if !ok {
		return meditation.Meditation{}, fmt.Errorf("meditation %s: %w", m.ID, storage.ErrNotFound)
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	s.meditations[m.ID] = m
	return m, nil
}

func (s *Store) GetMeditation(_ context.Context, id string) (meditation.Meditation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meditations[id]
	if !ok {
		return meditation.Meditation{}, fmt.Errorf("meditation %s: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

func (s *Store) ListMeditations(_ context.Context, filter storage.MeditationFilter) ([]meditation.Meditation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]meditation.Meditation, 0, len(s.meditations))
	for _, m := range s.meditations {
		if filter.Category != "" && m.Category != filter.Category {
			continue
		}
		if filter.Difficulty != "" && m.Difficulty != filter.Difficulty {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteMeditation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meditations[id]; !ok {
		return fmt.Errorf("meditation %s: %w", id, storage.ErrNotFound)
	}
	delete(s.meditations, id)
	return nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) UpdateSession(_ context.Context, sess session.Session) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[sess.ID]
	if !ok {
		return session.Session{}, fmt.Errorf("session %s: %w", sess.ID, storage.ErrNotFound)
	}
	sess.CreatedAt = existing.CreatedAt
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(_ context.Context, id string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	return sess, nil
}

func (s *Store) ListSessions(_ context.Context, userID string, kind session.Kind) ([]session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []session.Session
	for _, sess := range s.sessions {
		if userID != "" && sess.UserID != userID {
			continue
		}
		if kind != "" && sess.Kind != kind {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

// AssessmentStore implementation ----------------------------------------------

func (s *Store) CreateAssessment(_ context.Context, a assessment.StressAssessment) (assessment.StressAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	s.assessments[a.ID] = a
	return a, nil
}

func (s *Store) GetAssessment(_ context.Context, id string) (assessment.StressAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assessments[id]
	if !ok {
		return assessment.StressAssessment{}, fmt.Errorf("assessment %s: %w", id, storage.ErrNotFound)
	}
	return a, nil
}

func (s *Store) ListAssessments(_ context.Context, userID string) ([]assessment.StressAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []assessment.StressAssessment
	for _, a := range s.assessments {
		if userID != "" && a.UserID != userID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteAssessment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assessments[id]; !ok {
		return fmt.Errorf("assessment %s: %w", id, storage.ErrNotFound)
	}
	delete(s.assessments, id)
	return nil
}

// AchievementStore implementation ---------------------------------------------

func (s *Store) CreateDefinition(_ context.Context, def achievement.Definition) (achievement.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	def.CreatedAt = time.Now().UTC()
	s.definitions[def.ID] = def
	return def, nil
}

func (s *Store) GetDefinition(_ context.Context, id string) (achievement.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[id]
	if !ok {
		return achievement.Definition{}, fmt.Errorf("achievement %s: %w", id, storage.ErrNotFound)
	}
	return def, nil
}

func (s *Store) ListDefinitions(_ context.Context) ([]achievement.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]achievement.Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func progressKey(userID, achievementID string) string {
	return userID + "/" + achievementID
}

func (s *Store) UpsertProgress(_ context.Context, p achievement.Progress) (achievement.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UpdatedAt = time.Now().UTC()
	s.progress[progressKey(p.UserID, p.AchievementID)] = p
	return p, nil
}

func (s *Store) GetProgress(_ context.Context, userID, achievementID string) (achievement.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[progressKey(userID, achievementID)]
	if !ok {
		return achievement.Progress{}, fmt.Errorf("progress %s/%s: %w", userID, achievementID, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListProgress(_ context.Context, userID string) ([]achievement.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []achievement.Progress
	for _, p := range s.progress {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementID < out[j].AchievementID })
	return out, nil
}

// ChatStore implementation ------------------------------------------------------

func (s *Store) CreateGroupSession(_ context.Context, gs chat.GroupSession) (chat.GroupSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gs.ID == "" {
		gs.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	gs.CreatedAt = now
	gs.UpdatedAt = now
	s.groupSessions[gs.ID] = gs
	return gs, nil
}

func (s *Store) UpdateGroupSession(_ context.Context, gs chat.GroupSession) (chat.GroupSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.groupSessions[gs.ID]
	if !ok {
		return chat.GroupSession{}, fmt.Errorf("group session %s: %w", gs.ID, storage.ErrNotFound)
	}
	gs.CreatedAt = existing.CreatedAt
	gs.UpdatedAt = time.Now().UTC()
	s.groupSessions[gs.ID] = gs
	return gs, nil
}

func (s *Store) GetGroupSession(_ context.Context, id string) (chat.GroupSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gs, ok := s.groupSessions[id]
	if !ok {
		return chat.GroupSession{}, fmt.Errorf("group session %s: %w", id, storage.ErrNotFound)
	}
	return gs, nil
}

func (s *Store) ListGroupSessions(_ context.Context) ([]chat.GroupSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.GroupSession, 0, len(s.groupSessions))
	for _, gs := range s.groupSessions {
		out = append(out, gs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *Store) CreateMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groupSessions[msg.SessionID]; !ok {
		return chat.Message{}, fmt.Errorf("group session %s: %w", msg.SessionID, storage.ErrNotFound)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now().UTC()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return msg, nil
}

func (s *Store) ListMessages(_ context.Context, sessionID string, limit, offset int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if offset >= len(msgs) {
		return nil, nil
	}
	end := len(msgs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]chat.Message, end-offset)
	copy(out, msgs[offset:end])
	return out, nil
}

// FriendStore implementation ----------------------------------------------------

func (s *Store) CreateFriendRequest(_ context.Context, req friendship.Request) (friendship.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.friendReqs {
		if existing.Status == friendship.StatusPending &&
			existing.FromUserID == req.FromUserID && existing.ToUserID == req.ToUserID {
			return friendship.Request{}, fmt.Errorf("friend request: %w", storage.ErrDuplicate)
		}
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.friendReqs[req.ID] = req
	return req, nil
}

func (s *Store) UpdateFriendRequest(_ context.Context, req friendship.Request) (friendship.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.friendReqs[req.ID]
	if !ok {
		return friendship.Request{}, fmt.Errorf("friend request %s: %w", req.ID, storage.ErrNotFound)
	}
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()
	s.friendReqs[req.ID] = req
	return req, nil
}

func (s *Store) GetFriendRequest(_ context.Context, id string) (friendship.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.friendReqs[id]
	if !ok {
		return friendship.Request{}, fmt.Errorf("friend request %s: %w", id, storage.ErrNotFound)
	}
	return req, nil
}

func (s *Store) ListFriendRequests(_ context.Context, userID string) ([]friendship.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []friendship.Request
	for _, req := range s.friendReqs {
		if req.FromUserID == userID || req.ToUserID == userID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
