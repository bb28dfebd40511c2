package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stillpoint/serenity/internal/httputil"
)

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := s.friends.ListFriends(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

type friendRequestRequest struct {
	ToUserID string `json:"to_user_id"`
}

func (s *Server) handleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var in friendRequestRequest
	if err := decodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := s.friends.SendRequest(r.Context(), p.UserID, in.ToUserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListFriendRequests(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := s.friends.ListRequests(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleAcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := s.friends.Accept(r.Context(), mux.Vars(r)["id"], p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (s *Server) handleDeclineFriendRequest(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := s.friends.Decline(r.Context(), mux.Vars(r)["id"], p.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (s *Server) handleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := s.friends.Remove(r.Context(), p.UserID, mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
