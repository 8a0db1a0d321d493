// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package rest

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/findskills/findskills-server/pkg/logging"
	"github.com/findskills/findskills-server/pkg/metrics"
	"github.com/findskills/findskills-server/pkg/session"
)

// RegisterOptionsHandler handles POST /api/webauthn/register/options.
// Requires a session; the body login, when present, must match the session.
func (s *Server) RegisterOptionsHandler(w http.ResponseWriter, r *http.Request) {
	login := sessionLogin(r.Context())

	var req CeremonyOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	if req.Login != "" && req.Login != login {
		writeError(w, ErrForbidden, http.StatusForbidden)
		return
	}

	options, err := s.coordinator.BeginRegistration(r.Context(), login)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyRegistration, false)
		handleError(w, err)
		return
	}

	writeJSON(w, options, http.StatusOK)
}

// RegisterVerifyHandler handles POST /api/webauthn/register/verify.
func (s *Server) RegisterVerifyHandler(w http.ResponseWriter, r *http.Request) {
	login := sessionLogin(r.Context())

	var req CeremonyVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	if req.Login != "" && req.Login != login {
		writeError(w, ErrForbidden, http.StatusForbidden)
		return
	}
	raw := req.attestationPayload()
	if len(raw) == 0 {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	response, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(raw))
	if err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	stored, err := s.coordinator.FinishRegistration(r.Context(), login, response)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyRegistration, false)
		s.logger.Warn("Passkey registration failed",
			logging.String("login", login),
			logging.Error(err))
		handleError(w, err)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistration, true)
	writeJSON(w, RegisterVerifyResponse{OK: true, CredentialID: stored.CredentialID}, http.StatusCreated)
}

// LoginOptionsHandler handles POST /api/webauthn/login/options. With a login
// in the body the options carry that login's allow-list; without one a
// discoverable ceremony is issued.
func (s *Server) LoginOptionsHandler(w http.ResponseWriter, r *http.Request) {
	var req CeremonyOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	options, err := s.coordinator.BeginLogin(r.Context(), req.Login)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyAuthentication, false)
		handleError(w, err)
		return
	}

	writeJSON(w, options, http.StatusOK)
}

// LoginVerifyHandler handles POST /api/webauthn/login/verify. On success the
// session cookie is set, same as a password login.
func (s *Server) LoginVerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req CeremonyVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	raw := req.assertionPayload()
	if len(raw) == 0 {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	response, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(raw))
	if err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	result, err := s.coordinator.FinishLogin(r.Context(), req.Login, response)
	if err != nil {
		metrics.RecordCeremony(metrics.CeremonyAuthentication, false)
		metrics.RecordLogin(metrics.AuthMethodPasskey, false)
		s.logger.Warn("Passkey login failed", logging.Error(err))
		handleError(w, err)
		return
	}

	p, err := s.profiles.FindByLogin(r.Context(), result.Login)
	if err != nil {
		s.logger.Error("Credential owner has no profile",
			logging.String("login", result.Login),
			logging.Error(err))
		writeErrorWithMessage(w, ErrInternalError, "An unexpected error occurred", http.StatusInternalServerError)
		return
	}

	token, err := s.codec.Issue(result.Login)
	if err != nil {
		s.logger.Error("Failed to issue session token", logging.Error(err))
		writeErrorWithMessage(w, ErrInternalError, "An unexpected error occurred", http.StatusInternalServerError)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyAuthentication, true)
	metrics.RecordLogin(metrics.AuthMethodPasskey, true)
	session.SetCookie(w, token, s.secureCookies)
	writeJSON(w, AuthResponse{OK: true, ID: p.ID, Login: p.Login}, http.StatusOK)
}
