package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stillpoint/serenity/internal/app/services/groupsessions"
	"github.com/stillpoint/serenity/internal/httputil"
)

func (s *Server) handleCreateGroupSession(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var in groupsessions.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := s.groupSessions.Create(r.Context(), p.UserID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListGroupSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.groupSessions.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetGroupSession(w http.ResponseWriter, r *http.Request) {
	gs, err := s.groupSessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, gs)
}

func (s *Server) handleJoinGroupSession(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	msg, err := s.groupSessions.Join(r.Context(), mux.Vars(r)["id"], p.UserID, p.Username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (s *Server) handleLeaveGroupSession(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	msg, err := s.groupSessions.Leave(r.Context(), mux.Vars(r)["id"], p.UserID, p.Username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	msgs, err := s.groupSessions.ListMessages(r.Context(), mux.Vars(r)["id"], limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msgs)
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// handlePostMessage is the REST fallback for clients without a gateway
// connection. Messages posted here are visible in chat history but are not
// pushed to connected clients.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var in postMessageRequest
	if err := decodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	msg, err := s.groupSessions.PostMessage(r.Context(), mux.Vars(r)["sessionID"], p.UserID, p.Username, in.Content)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, msg)
}
