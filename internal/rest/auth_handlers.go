// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package rest

import (
	"encoding/json"
	"net/http"

	"github.com/findskills/findskills-server/pkg/logging"
	"github.com/findskills/findskills-server/pkg/metrics"
	"github.com/findskills/findskills-server/pkg/profile"
	"github.com/findskills/findskills-server/pkg/session"
)

// PasswordLoginHandler handles POST /api/auth/login.
//
// A missing login and a wrong password produce the same response, so the
// endpoint cannot be used to probe which logins exist.
func (s *Server) PasswordLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	p, ok := profile.ValidatePassword(r.Context(), s.profiles, req.Login, req.Password)
	if !ok {
		metrics.RecordLogin(metrics.AuthMethodPassword, false)
		writeJSON(w, AuthResponse{OK: false, Error: "Invalid credentials"}, http.StatusOK)
		return
	}

	token, err := s.codec.Issue(req.Login)
	if err != nil {
		s.logger.Error("Failed to issue session token", logging.Error(err))
		writeErrorWithMessage(w, ErrInternalError, "An unexpected error occurred", http.StatusInternalServerError)
		return
	}

	metrics.RecordLogin(metrics.AuthMethodPassword, true)
	session.SetCookie(w, token, s.secureCookies)
	writeJSON(w, AuthResponse{OK: true, ID: p.ID, Login: p.Login}, http.StatusOK)
}

// LogoutHandler handles POST /api/auth/logout. Tokens are not tracked
// server-side, so logout just clears the cookie.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session.ClearCookie(w, s.secureCookies)
	writeJSON(w, AuthResponse{OK: true}, http.StatusOK)
}

// MeHandler handles GET /api/auth/me. A missing or invalid session is not
// an error: anonymous callers get 200 with `ok: false` so a logged-out page
// load stays quiet.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	token := session.FromRequest(r)
	if token == "" {
		writeJSON(w, AuthResponse{OK: false}, http.StatusOK)
		return
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		writeJSON(w, AuthResponse{OK: false}, http.StatusOK)
		return
	}

	p, err := s.profiles.FindByLogin(r.Context(), claims.Login)
	if err != nil {
		// The session outlived the profile.
		writeJSON(w, AuthResponse{OK: false}, http.StatusOK)
		return
	}

	writeJSON(w, AuthResponse{OK: true, ID: p.ID, Login: p.Login}, http.StatusOK)
}
