package storage

import (
	"context"

	"github.com/stillpoint/serenity/internal/app/domain/achievement"
	"github.com/stillpoint/serenity/internal/app/domain/assessment"
	"github.com/stillpoint/serenity/internal/app/domain/chat"
	"github.com/stillpoint/serenity/internal/app/domain/friendship"
	"github.com/stillpoint/serenity/internal/app/domain/meditation"
	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/domain/user"
)

// MeditationFilter narrows catalog listings.
type MeditationFilter struct {
	Category   meditation.Category
	Difficulty meditation.Difficulty
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// MeditationStore persists catalog content.
type MeditationStore interface {
	CreateMeditation(ctx context.Context, m meditation.Meditation) (meditation.Meditation, error)
	UpdateMeditation(ctx context.Context, m meditation.Meditation) (meditation.Meditation, error)
	GetMeditation(ctx context.Context, id string) (meditation.Meditation, error)
	ListMeditations(ctx context.Context, filter MeditationFilter) ([]meditation.Meditation, error)
	DeleteMeditation(ctx context.Context, id string) error
}

// SessionStore persists practice sessions of all kinds.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Session) (session.Session, error)
	UpdateSession(ctx context.Context, s session.Session) (session.Session, error)
	GetSession(ctx context.Context, id string) (session.Session, error)
	ListSessions(ctx context.Context, userID string, kind session.Kind) ([]session.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// AssessmentStore persists stress assessments.
type AssessmentStore interface {
	CreateAssessment(ctx context.Context, a assessment.StressAssessment) (assessment.StressAssessment, error)
	GetAssessment(ctx context.Context, id string) (assessment.StressAssessment, error)
	ListAssessments(ctx context.Context, userID string) ([]assessment.StressAssessment, error)
	DeleteAssessment(ctx context.Context, id string) error
}

// AchievementStore persists achievement definitions and per-user progress.
type AchievementStore interface {
	CreateDefinition(ctx context.Context, def achievement.Definition) (achievement.Definition, error)
	GetDefinition(ctx context.Context, id string) (achievement.Definition, error)
	ListDefinitions(ctx context.Context) ([]achievement.Definition, error)

	UpsertProgress(ctx context.Context, p achievement.Progress) (achievement.Progress, error)
	GetProgress(ctx context.Context, userID, achievementID string) (achievement.Progress, error)
	ListProgress(ctx context.Context, userID string) ([]achievement.Progress, error)
}

// ChatStore persists group sessions and their chat history.
type ChatStore interface {
	CreateGroupSession(ctx context.Context, gs chat.GroupSession) (chat.GroupSession, error)
	UpdateGroupSession(ctx context.Context, gs chat.GroupSession) (chat.GroupSession, error)
	GetGroupSession(ctx context.Context, id string) (chat.GroupSession, error)
	ListGroupSessions(ctx context.Context) ([]chat.GroupSession, error)

	CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error)
	ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]chat.Message, error)
}

// FriendStore persists friend requests.
type FriendStore interface {
	CreateFriendRequest(ctx context.Context, req friendship.Request) (friendship.Request, error)
	UpdateFriendRequest(ctx context.Context, req friendship.Request) (friendship.Request, error)
	GetFriendRequest(ctx context.Context, id string) (friendship.Request, error)
	ListFriendRequests(ctx context.Context, userID string) ([]friendship.Request, error)
}
