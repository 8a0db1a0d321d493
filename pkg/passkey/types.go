// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"encoding/base64"
	"strconv"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/findskills/findskills-server/pkg/profile"
)

// Credential is a stored WebAuthn credential bound to a profile.
//
// CredentialID is the base64url (unpadded) encoding of the raw credential ID
// and is globally unique across all profiles.
type Credential struct {
	ID           int64     `json:"id"`
	ProfileID    *int64    `json:"profile_id,omitempty"`
	Login        string    `json:"login"`
	CredentialID string    `json:"credential_id"`
	PublicKey    []byte    `json:"public_key"`
	Counter      uint32    `json:"counter"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the credential.
func (c *Credential) Clone() *Credential {
	clone := *c
	if c.ProfileID != nil {
		id := *c.ProfileID
		clone.ProfileID = &id
	}
	clone.PublicKey = append([]byte(nil), c.PublicKey...)
	return &clone
}

// toWebAuthn converts the stored record into the library's credential form.
func (c *Credential) toWebAuthn() (webauthn.Credential, error) {
	rawID, err := base64.RawURLEncoding.DecodeString(c.CredentialID)
	if err != nil {
		return webauthn.Credential{}, err
	}
	return webauthn.Credential{
		ID:        rawID,
		PublicKey: c.PublicKey,
		Authenticator: webauthn.Authenticator{
			SignCount: c.Counter,
		},
	}, nil
}

// EncodeCredentialID returns the canonical string form of a raw credential ID.
func EncodeCredentialID(rawID []byte) string {
	return base64.RawURLEncoding.EncodeToString(rawID)
}

// userHandle derives the WebAuthn user handle for a profile. The handle is
// the decimal profile ID as bytes, so it round-trips through the browser
// as an opaque identifier and back to a profile lookup.
func userHandle(p *profile.Profile) []byte {
	return []byte(strconv.FormatInt(p.ID, 10))
}

// ceremonyUser adapts a profile and its credentials to the webauthn.User
// interface for the duration of a single ceremony.
type ceremonyUser struct {
	id          []byte
	name        string
	displayName string
	credentials []webauthn.Credential
}

func newCeremonyUser(p *profile.Profile, credentials []webauthn.Credential) *ceremonyUser {
	return &ceremonyUser{
		id:          userHandle(p),
		name:        p.Login,
		displayName: p.Login,
		credentials: credentials,
	}
}

// WebAuthnID returns the user handle.
func (u *ceremonyUser) WebAuthnID() []byte {
	return u.id
}

// WebAuthnName returns the login name.
func (u *ceremonyUser) WebAuthnName() string {
	return u.name
}

// WebAuthnDisplayName returns the display name.
func (u *ceremonyUser) WebAuthnDisplayName() string {
	return u.displayName
}

// WebAuthnCredentials returns the user's registered credentials.
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

// LoginResult is the outcome of a successful assertion ceremony.
type LoginResult struct {
	Login      string
	Credential *Credential
}
