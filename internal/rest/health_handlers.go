// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package rest

import "net/http"

// HealthHandler handles GET /health.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Version: s.version}, http.StatusOK)
}

// LivenessHandler handles GET /health/live. The process is alive if it can
// answer at all.
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}

// ReadinessHandler handles GET /health/ready. The stores are in-process, so
// readiness follows liveness.
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.profiles.List(r.Context()); err != nil {
		writeJSON(w, HealthResponse{Status: "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}
