package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/stillpoint/serenity/internal/app/domain/assessment"
	"github.com/stillpoint/serenity/internal/app/services/assessments"
	"github.com/stillpoint/serenity/internal/httputil"
)

func (s *Server) assessmentOwner(ctx context.Context, r *http.Request) (string, error) {
	return s.assessments.Owner(ctx, mux.Vars(r)["id"])
}

func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var in assessments.Input
	if err := decodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := s.assessments.Create(r.Context(), p.UserID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// handleListAssessments lists the caller's check-ins, optionally limited to
// the last N days via the days query parameter.
func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := s.assessments.List(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if days := queryInt(r, "days", 0); days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		filtered := make([]assessment.StressAssessment, 0, len(list))
		for _, a := range list {
			if a.CreatedAt.After(cutoff) {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleAssessmentSummary(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := s.assessments.Summary(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.assessments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	if err := s.assessments.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
