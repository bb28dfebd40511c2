// Package app assembles the service layer over a storage backend. The
// entrypoint supplies Postgres; tests get an in-memory store by default.
package app

import (
	"time"

	"github.com/stillpoint/serenity/internal/app/cache"
	"github.com/stillpoint/serenity/internal/app/services/achievements"
	"github.com/stillpoint/serenity/internal/app/services/analytics"
	"github.com/stillpoint/serenity/internal/app/services/assessments"
	"github.com/stillpoint/serenity/internal/app/services/friends"
	"github.com/stillpoint/serenity/internal/app/services/groupsessions"
	"github.com/stillpoint/serenity/internal/app/services/meditations"
	"github.com/stillpoint/serenity/internal/app/services/sessions"
	"github.com/stillpoint/serenity/internal/app/services/users"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/internal/app/storage/memory"
	"github.com/stillpoint/serenity/internal/auth"
	"github.com/stillpoint/serenity/pkg/logger"
)

// Store is the full persistence surface the application needs. Both the
// memory and postgres stores satisfy it.
type Store interface {
	storage.UserStore
	storage.MeditationStore
	storage.SessionStore
	storage.AssessmentStore
	storage.AchievementStore
	storage.ChatStore
	storage.FriendStore
}

// Application bundles the constructed services.
type Application struct {
	Users         *users.Service
	Meditations   *meditations.Service
	Sessions      *sessions.Service
	Assessments   *assessments.Service
	Achievements  *achievements.Service
	GroupSessions *groupsessions.Service
	Friends       *friends.Service
	Analytics     *analytics.Service

	Tokens *auth.TokenService
	Cache  *cache.Cache
}

// Options configures New. Zero values select development defaults: an
// in-memory store, a no-op cache, and a dev token secret.
type Options struct {
	Store  Store
	Cache  *cache.Cache
	Tokens *auth.TokenService
	Log    *logger.Logger
}

// New wires the services together.
func New(opts Options) *Application {
	store := opts.Store
	if store == nil {
		store = memory.New()
	}
	c := opts.Cache
	if c == nil {
		c = cache.NewNoop()
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = auth.NewTokenService([]byte("serenity-dev-secret"), 24*time.Hour)
	}
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("app")
	}

	userSvc := users.New(store, tokens, log.WithField("service", "users"))
	app := &Application{
		Users:         userSvc,
		Meditations:   meditations.New(store, c, log.WithField("service", "meditations")),
		Sessions:      sessions.New(store, store, log.WithField("service", "sessions")),
		Assessments:   assessments.New(store, log.WithField("service", "assessments")),
		Achievements:  achievements.New(store, userSvc, log.WithField("service", "achievements")),
		GroupSessions: groupsessions.New(store, log.WithField("service", "groupsessions")),
		Friends:       friends.New(store, store, log.WithField("service", "friends")),
		Analytics:     analytics.New(store, log.WithField("service", "analytics")),
		Tokens:        tokens,
		Cache:         c,
	}
	return app
}
