package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stillpoint/serenity/internal/app/services/users"
	"github.com/stillpoint/serenity/internal/httputil"
)

// userOwner resolves the {id} path variable for the owner-or-admin gate; a
// user resource is owned by itself.
func (s *Server) userOwner(ctx context.Context, r *http.Request) (string, error) {
	return s.users.Owner(ctx, mux.Vars(r)["id"])
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in users.UpdateProfileInput
	if err := decodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := s.users.UpdateProfile(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePromoteUser(w http.ResponseWriter, r *http.Request) {
	promoted, err := s.users.Promote(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, promoted)
}
