package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/services/sessions"
	"github.com/stillpoint/serenity/internal/httputil"
	"github.com/stillpoint/serenity/internal/middleware"
)

// mountSessionRoutes wires one practice kind's subtree. The three kinds
// share handlers; the kind is fixed per subtree.
func (s *Server) mountSessionRoutes(r *mux.Router, auth *middleware.AuthMiddleware, kind session.Kind) {
	r.Use(auth.Require)
	r.HandleFunc("", s.handleStartSession(kind)).Methods(http.MethodPost)
	r.HandleFunc("", s.handleListSessions(kind)).Methods(http.MethodGet)

	owner := auth.RequireOwnerOrAdmin(s.sessionOwner)
	r.Handle("/{id}", owner(http.HandlerFunc(s.handleGetSession))).Methods(http.MethodGet)
	r.Handle("/{id}/complete", owner(http.HandlerFunc(s.handleCompleteSession))).Methods(http.MethodPost)
	r.Handle("/{id}/cancel", owner(http.HandlerFunc(s.handleCancelSession))).Methods(http.MethodPost)
	r.Handle("/{id}", owner(http.HandlerFunc(s.handleDeleteSession))).Methods(http.MethodDelete)
}

func (s *Server) sessionOwner(ctx context.Context, r *http.Request) (string, error) {
	return s.sessions.Owner(ctx, mux.Vars(r)["id"])
}

func (s *Server) handleStartSession(kind session.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		var in sessions.StartInput
		if err := decodeJSON(r, &in); err != nil {
			httputil.WriteError(w, err)
			return
		}

		created, err := s.sessions.Start(r.Context(), p.UserID, kind, in)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) handleListSessions(kind session.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		list, err := s.sessions.List(r.Context(), p.UserID, kind)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, list)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Complete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
