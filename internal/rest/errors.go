// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/findskills/findskills-server/pkg/passkey"
	"github.com/findskills/findskills-server/pkg/profile"
	"github.com/findskills/findskills-server/pkg/session"
)

// Common errors
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalError      = errors.New("internal server error")
)

// ErrorResponse is the JSON body for error replies.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// writeError writes an error response to the client.
func writeError(w http.ResponseWriter, err error, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error: err.Error(),
		Code:  statusCode,
	}
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Printf("Failed to encode error response: %v", encErr)
	}
}

// writeErrorWithMessage writes an error response with a custom message.
func writeErrorWithMessage(w http.ResponseWriter, err error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    statusCode,
	}
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Printf("Failed to encode error response: %v", encErr)
	}
}

// mapErrorToStatusCode maps domain errors to HTTP status codes.
//
// Ceremony failures all map to 401 with the same sentinel text so responses
// do not reveal whether a login, challenge, or credential exists.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, passkey.ErrNoChallenge),
		errors.Is(err, passkey.ErrUnknownCredential),
		errors.Is(err, passkey.ErrVerificationFailed),
		errors.Is(err, passkey.ErrNoCredentials),
		errors.Is(err, passkey.ErrClonedAuthenticator),
		errors.Is(err, session.ErrMalformedToken),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, passkey.ErrUnknownUser),
		errors.Is(err, profile.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, passkey.ErrDuplicateCredential),
		errors.Is(err, profile.ErrProfileExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleError maps the error to a status code and writes the response.
// Unauthorized responses carry a fixed message instead of the cause.
func handleError(w http.ResponseWriter, err error) {
	statusCode := mapErrorToStatusCode(err)
	switch statusCode {
	case http.StatusUnauthorized:
		writeError(w, ErrInvalidCredentials, statusCode)
	case http.StatusInternalServerError:
		writeErrorWithMessage(w, ErrInternalError, "An unexpected error occurred", statusCode)
	default:
		writeError(w, err, statusCode)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
