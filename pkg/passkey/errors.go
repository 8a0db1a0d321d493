// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations.
var (
	// ErrUnknownUser is returned when a login does not resolve to a profile.
	ErrUnknownUser = errors.New("unknown user")

	// ErrNoChallenge is returned when no challenge is pending for a login.
	ErrNoChallenge = errors.New("no challenge found for user")

	// ErrUnknownCredential is returned when the asserted credential ID has
	// no stored match.
	ErrUnknownCredential = errors.New("unknown credential")

	// ErrVerificationFailed is returned when cryptographic verification of
	// an attestation or assertion fails.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrDuplicateCredential is returned when registering a credential whose
	// ID already exists. Credential IDs are globally unique across users.
	ErrDuplicateCredential = errors.New("credential already exists")

	// ErrNoCredentials is returned when a login has no registered credentials.
	ErrNoCredentials = errors.New("user has no registered credentials")

	// ErrClonedAuthenticator is returned in strict-counter mode when the
	// signature counter regresses, the WebAuthn clone-detection signal.
	ErrClonedAuthenticator = errors.New("cloned authenticator detected")

	// ErrNotConfigured is returned when the coordinator is not properly configured.
	ErrNotConfigured = errors.New("passkey coordinator not configured")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with an operation name if it's not nil.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
