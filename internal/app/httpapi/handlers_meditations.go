package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stillpoint/serenity/internal/app/domain/meditation"
	"github.com/stillpoint/serenity/internal/app/services/meditations"
	"github.com/stillpoint/serenity/internal/app/storage"
	"github.com/stillpoint/serenity/internal/httputil"
	"github.com/stillpoint/serenity/internal/middleware"
)

func (s *Server) handleListMeditations(w http.ResponseWriter, r *http.Request) {
	filter := storage.MeditationFilter{
		Category:   meditation.Category(r.URL.Query().Get("category")),
		Difficulty: meditation.Difficulty(r.URL.Query().Get("difficulty")),
	}

	list, err := s.meditations.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetMeditation(w http.ResponseWriter, r *http.Request) {
	m, err := s.meditations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreateMeditation(w http.ResponseWriter, r *http.Request) {
	var in meditations.Input
	if err := decodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	createdBy := ""
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		createdBy = p.UserID
	}

	created, err := s.meditations.Create(r.Context(), in, createdBy)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateMeditation(w http.ResponseWriter, r *http.Request) {
	var in meditations.Input
	if err := decodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := s.meditations.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMeditation(w http.ResponseWriter, r *http.Request) {
	if err := s.meditations.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
