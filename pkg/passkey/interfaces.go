// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import "context"

// CredentialStore persists WebAuthn credentials.
//
// Implementations must treat CredentialID as globally unique: Save returns
// ErrDuplicateCredential when a record with the same CredentialID already
// exists, regardless of owner.
type CredentialStore interface {
	// Save stores a new credential and assigns its ID.
	Save(ctx context.Context, credential *Credential) error

	// FindByLogin returns all credentials registered for a login, oldest first.
	FindByLogin(ctx context.Context, login string) ([]*Credential, error)

	// FindByLoginAndCredentialID returns the credential with the given ID
	// belonging to login, or ErrUnknownCredential.
	FindByLoginAndCredentialID(ctx context.Context, login, credentialID string) (*Credential, error)

	// FindByCredentialID returns all credentials with the given credential ID.
	// Credential IDs are unique, so the result has at most one element; the
	// slice form keeps lookups uniform with FindByLogin.
	FindByCredentialID(ctx context.Context, credentialID string) ([]*Credential, error)

	// UpdateCounter sets the signature counter for a credential.
	UpdateCounter(ctx context.Context, credentialID string, counter uint32) error

	// DeleteByLogin removes all credentials for a login.
	DeleteByLogin(ctx context.Context, login string) error
}
