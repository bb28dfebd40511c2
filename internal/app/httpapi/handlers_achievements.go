package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stillpoint/serenity/internal/app/domain/achievement"
	"github.com/stillpoint/serenity/internal/httputil"
)

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	defs, err := s.achievements.ListDefinitions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, defs)
}

func (s *Server) handleCreateAchievement(w http.ResponseWriter, r *http.Request) {
	var def achievement.Definition
	if err := decodeJSON(r, &def); err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := s.achievements.CreateDefinition(r.Context(), def)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleMyAchievements(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	progress, err := s.achievements.ListProgress(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, progress)
}

type progressRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	in := progressRequest{Delta: 1}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &in); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	progress, err := s.achievements.RecordProgress(r.Context(), p.UserID, mux.Vars(r)["id"], in.Delta)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, progress)
}
