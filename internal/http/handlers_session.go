package http

import (
	"net/http"

	"goighem/internal/session"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type sessionResponse struct {
	User        userView `json:"user"`
	AccessToken string   `json:"access_token"`
}

func toSessionResponse(sess session.Session) sessionResponse {
	return sessionResponse{
		User:        userView{ID: sess.UserID, Email: sess.Email, DisplayName: sess.DisplayName},
		AccessToken: sess.AccessToken,
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.gate.SignUp(r.Context(), sanitizeInput(req.Email), req.Password, sanitizeInput(req.DisplayName))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: session.LocalizeAuthError(err)})
		return
	}
	if _, err := s.syncer.Sync(r.Context(), sess.UserID); err != nil {
		s.logger.Warn("initial sync after sign-up failed", "error", err)
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.gate.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: session.LocalizeAuthError(err)})
		return
	}
	if _, err := s.syncer.Sync(r.Context(), sess.UserID); err != nil {
		s.logger.Warn("initial sync after sign-in failed", "error", err)
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request, _ session.Session) {
	// Loaded state is cleared by the controller's session watcher.
	if err := s.gate.SignOut(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, _ *http.Request, sess session.Session) {
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}
