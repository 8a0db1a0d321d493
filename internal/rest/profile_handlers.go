// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListProfilesHandler handles GET /api/profiles. Profiles are public data
// on the platform; password hashes never serialize.
func (s *Server) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, profiles, http.StatusOK)
}

// GetProfileHandler handles GET /api/profiles/{login}.
func (s *Server) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")

	p, err := s.profiles.FindByLogin(r.Context(), login)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}
