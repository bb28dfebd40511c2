// Package httpapi mounts the REST API. Handlers stay thin: decode, call a
// service, respond through the shared envelope. Authorization is expressed
// per route with the auth middleware's gates.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stillpoint/serenity/internal/app/cache"
	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/gateway"
	"github.com/stillpoint/serenity/internal/app/metrics"
	"github.com/stillpoint/serenity/internal/app/services/achievements"
	"github.com/stillpoint/serenity/internal/app/services/analytics"
	"github.com/stillpoint/serenity/internal/app/services/assessments"
	"github.com/stillpoint/serenity/internal/app/services/friends"
	"github.com/stillpoint/serenity/internal/app/services/groupsessions"
	"github.com/stillpoint/serenity/internal/app/services/meditations"
	"github.com/stillpoint/serenity/internal/app/services/sessions"
	"github.com/stillpoint/serenity/internal/app/services/users"
	"github.com/stillpoint/serenity/internal/httputil"
	"github.com/stillpoint/serenity/internal/middleware"
	"github.com/stillpoint/serenity/pkg/logger"
)

// Server holds the services the handlers call.
type Server struct {
	users         *users.Service
	meditations   *meditations.Service
	sessions      *sessions.Service
	assessments   *assessments.Service
	achievements  *achievements.Service
	groupSessions *groupsessions.Service
	friends       *friends.Service
	analytics     *analytics.Service
	cache         *cache.Cache
	log           *logger.Logger
}

// Deps bundles what the router needs.
type Deps struct {
	Users         *users.Service
	Meditations   *meditations.Service
	Sessions      *sessions.Service
	Assessments   *assessments.Service
	Achievements  *achievements.Service
	GroupSessions *groupsessions.Service
	Friends       *friends.Service
	Analytics     *analytics.Service
	Cache         *cache.Cache

	Auth      *middleware.AuthMiddleware
	Gateway   *gateway.Gateway
	RateLimit *middleware.RateLimiter
	CORS      *middleware.CORSMiddleware
	Log       *logger.Logger
}

// NewRouter builds the full route table with its middleware chain.
func NewRouter(d Deps) *mux.Router {
	log := d.Log
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	s := &Server{
		users:         d.Users,
		meditations:   d.Meditations,
		sessions:      d.Sessions,
		assessments:   d.Assessments,
		achievements:  d.Achievements,
		groupSessions: d.GroupSessions,
		friends:       d.Friends,
		analytics:     d.Analytics,
		cache:         d.Cache,
		log:           log,
	}

	r := mux.NewRouter()
	if d.CORS != nil {
		r.Use(d.CORS.Handler)
	}
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.MetricsMiddleware())
	if d.RateLimit != nil {
		r.Use(d.RateLimit.Handler)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	if d.Gateway != nil {
		r.HandleFunc("/ws", d.Gateway.HandleWS)
	}

	api := r.PathPrefix("/api").Subrouter()
	auth := d.Auth

	// Auth.
	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authRoutes.Handle("/me", auth.Require(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)

	// Users.
	userRoutes := api.PathPrefix("/users").Subrouter()
	userRoutes.Use(auth.Require)
	userRoutes.Handle("", auth.RequireAdmin(http.HandlerFunc(s.handleListUsers))).Methods(http.MethodGet)
	userOwner := auth.RequireOwnerOrAdmin(s.userOwner)
	userRoutes.Handle("/{id}", userOwner(http.HandlerFunc(s.handleGetUser))).Methods(http.MethodGet)
	userRoutes.Handle("/{id}", userOwner(http.HandlerFunc(s.handleUpdateUser))).Methods(http.MethodPut)
	userRoutes.Handle("/{id}", userOwner(http.HandlerFunc(s.handleDeleteUser))).Methods(http.MethodDelete)
	userRoutes.Handle("/{id}/promote", auth.RequireAdmin(http.HandlerFunc(s.handlePromoteUser))).Methods(http.MethodPost)

	// Meditation catalog. Reads are public.
	medRoutes := api.PathPrefix("/meditations").Subrouter()
	medRoutes.HandleFunc("", s.handleListMeditations).Methods(http.MethodGet)
	medRoutes.HandleFunc("/{id}", s.handleGetMeditation).Methods(http.MethodGet)
	medAdmin := func(h http.HandlerFunc) http.Handler { return auth.Require(auth.RequireAdmin(h)) }
	medRoutes.Handle("", medAdmin(s.handleCreateMeditation)).Methods(http.MethodPost)
	medRoutes.Handle("/{id}", medAdmin(s.handleUpdateMeditation)).Methods(http.MethodPut)
	medRoutes.Handle("/{id}", medAdmin(s.handleDeleteMeditation)).Methods(http.MethodDelete)

	// Practice sessions, one subtree per kind.
	s.mountSessionRoutes(api.PathPrefix("/meditation-sessions").Subrouter(), auth, session.KindMeditation)
	s.mountSessionRoutes(api.PathPrefix("/breathing").Subrouter(), auth, session.KindBreathing)
	s.mountSessionRoutes(api.PathPrefix("/pmr").Subrouter(), auth, session.KindPMR)

	// Stress assessments.
	stressRoutes := api.PathPrefix("/stress-management").Subrouter()
	stressRoutes.Use(auth.Require)
	stressRoutes.HandleFunc("", s.handleCreateAssessment).Methods(http.MethodPost)
	stressRoutes.HandleFunc("", s.handleListAssessments).Methods(http.MethodGet)
	stressRoutes.HandleFunc("/summary", s.handleAssessmentSummary).Methods(http.MethodGet)
	assessmentOwner := auth.RequireOwnerOrAdmin(s.assessmentOwner)
	stressRoutes.Handle("/{id}", assessmentOwner(http.HandlerFunc(s.handleGetAssessment))).Methods(http.MethodGet)
	stressRoutes.Handle("/{id}", assessmentOwner(http.HandlerFunc(s.handleDeleteAssessment))).Methods(http.MethodDelete)

	// Achievements.
	achRoutes := api.PathPrefix("/achievements").Subrouter()
	achRoutes.Use(auth.Require)
	achRoutes.HandleFunc("", s.handleListAchievements).Methods(http.MethodGet)
	achRoutes.Handle("", auth.RequireAdmin(http.HandlerFunc(s.handleCreateAchievement))).Methods(http.MethodPost)
	achRoutes.HandleFunc("/me", s.handleMyAchievements).Methods(http.MethodGet)
	achRoutes.HandleFunc("/{id}/progress", s.handleRecordProgress).Methods(http.MethodPost)

	// Group sessions and chat.
	groupRoutes := api.PathPrefix("/group-sessions").Subrouter()
	groupRoutes.Use(auth.Require)
	groupRoutes.HandleFunc("", s.handleCreateGroupSession).Methods(http.MethodPost)
	groupRoutes.HandleFunc("", s.handleListGroupSessions).Methods(http.MethodGet)
	groupRoutes.HandleFunc("/{id}", s.handleGetGroupSession).Methods(http.MethodGet)
	groupRoutes.HandleFunc("/{id}/join", s.handleJoinGroupSession).Methods(http.MethodPost)
	groupRoutes.HandleFunc("/{id}/leave", s.handleLeaveGroupSession).Methods(http.MethodPost)
	groupRoutes.HandleFunc("/{id}/messages", s.handleListMessages).Methods(http.MethodGet)

	chatRoutes := api.PathPrefix("/chat").Subrouter()
	chatRoutes.Use(auth.Require)
	chatRoutes.HandleFunc("/{sessionID}", s.handlePostMessage).Methods(http.MethodPost)

	// Friends.
	friendRoutes := api.PathPrefix("/friends").Subrouter()
	friendRoutes.Use(auth.Require)
	friendRoutes.HandleFunc("", s.handleListFriends).Methods(http.MethodGet)
	friendRoutes.HandleFunc("/requests", s.handleSendFriendRequest).Methods(http.MethodPost)
	friendRoutes.HandleFunc("/requests", s.handleListFriendRequests).Methods(http.MethodGet)
	friendRoutes.HandleFunc("/requests/{id}/accept", s.handleAcceptFriendRequest).Methods(http.MethodPost)
	friendRoutes.HandleFunc("/requests/{id}/decline", s.handleDeclineFriendRequest).Methods(http.MethodPost)
	friendRoutes.HandleFunc("/{id}", s.handleRemoveFriend).Methods(http.MethodDelete)

	// Analytics and operations.
	api.Handle("/analytics/me", auth.Require(http.HandlerFunc(s.handleAnalytics))).Methods(http.MethodGet)
	api.Handle("/cache-stats", auth.Require(auth.RequireAdmin(http.HandlerFunc(s.handleCacheStats)))).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]map[string]string{
			"error": {"code": "NOT_FOUND", "message": "route not found"},
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
