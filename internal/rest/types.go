// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package rest

import "encoding/json"

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// AuthResponse is the common identity envelope returned by the auth
// endpoints. Login failures carry the same generic error whether the login
// exists or not.
type AuthResponse struct {
	OK    bool   `json:"ok"`
	ID    int64  `json:"id,omitempty"`
	Login string `json:"login,omitempty"`
	Error string `json:"error,omitempty"`
}

// CeremonyOptionsRequest is the body for the two options endpoints. Login is
// optional for login options (anonymous, discoverable flow).
type CeremonyOptionsRequest struct {
	Login string `json:"login"`
}

// CeremonyVerifyRequest is the body for the two verify endpoints. The raw
// browser response arrives as `attestation` (register) or `assertion`
// (login) and is passed through untouched so the WebAuthn library can parse
// it. `credential` is accepted as an alias for either.
type CeremonyVerifyRequest struct {
	Login       string          `json:"login"`
	Attestation json.RawMessage `json:"attestation,omitempty"`
	Assertion   json.RawMessage `json:"assertion,omitempty"`
	Credential  json.RawMessage `json:"credential,omitempty"`
}

func (r *CeremonyVerifyRequest) attestationPayload() json.RawMessage {
	if len(r.Attestation) > 0 {
		return r.Attestation
	}
	return r.Credential
}

func (r *CeremonyVerifyRequest) assertionPayload() json.RawMessage {
	if len(r.Assertion) > 0 {
		return r.Assertion
	}
	return r.Credential
}

// RegisterVerifyResponse is returned after a credential is stored.
type RegisterVerifyResponse struct {
	OK           bool   `json:"ok"`
	CredentialID string `json:"credentialId"`
}

// HealthResponse is the body for health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
