package httpapi

import (
	"net/http"

	"github.com/stillpoint/serenity/internal/httputil"
)

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := s.analytics.Report(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.cache.Stats(r.Context()))
}
