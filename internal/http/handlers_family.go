package http

import (
	"net/http"

	"goighem/internal/session"
)

type linkRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleRequestLink(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req linkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	link, err := s.ctrl.RequestLink(r.Context(), sess.UserID, sanitizeInput(req.Email))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"link_id": link.ID,
		"status":  string(link.Status),
	})
}

func (s *Server) handleAcceptLink(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := s.ctrl.AcceptLink(r.Context(), sess.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyView(s.ctrl.Snapshot().Family))
}

func (s *Server) handleDeclineLink(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := s.ctrl.DeclineLink(r.Context(), sess.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyView(s.ctrl.Snapshot().Family))
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := s.ctrl.Unlink(r.Context(), sess.UserID, confirmed(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyView(s.ctrl.Snapshot().Family))
}
