// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package passkey implements WebAuthn registration and authentication
// ceremonies for FindSkills profiles: challenge issuance, attestation and
// assertion verification, and credential persistence.
package passkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/findskills/findskills-server/pkg/profile"
)

// Coordinator drives WebAuthn ceremonies end to end. Options generation and
// verification are split across two HTTP round trips; the pending state in
// between lives in the ChallengeRegistry.
type Coordinator struct {
	webauthn   *webauthn.WebAuthn
	config     *Config
	profiles   profile.Store
	creds      CredentialStore
	challenges *ChallengeRegistry
	configured bool
}

// CoordinatorParams contains dependencies for creating a Coordinator.
type CoordinatorParams struct {
	// Config is the WebAuthn configuration (required).
	Config *Config

	// Profiles resolves logins to profiles (required).
	Profiles profile.Store

	// Credentials is the credential persistence layer (required).
	Credentials CredentialStore

	// Challenges holds pending ceremony state. If nil, a registry with the
	// configured TTL is created.
	Challenges *ChallengeRegistry
}

// NewCoordinator creates a ceremony coordinator with the provided dependencies.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	wa, err := webauthn.New(params.Config.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}

	challenges := params.Challenges
	if challenges == nil {
		challenges = NewChallengeRegistry(WithTTL(params.Config.ChallengeTTL))
	}

	return &Coordinator{
		webauthn:   wa,
		config:     params.Config,
		profiles:   params.Profiles,
		creds:      params.Credentials,
		challenges: challenges,
		configured: true,
	}, nil
}

// Challenges exposes the registry, mainly for tests and shutdown metrics.
func (c *Coordinator) Challenges() *ChallengeRegistry {
	return c.challenges
}

// resolveProfile looks up the ceremony owner. Only a genuinely unknown login
// maps to ErrUnknownUser; store failures surface as themselves.
func (c *Coordinator) resolveProfile(ctx context.Context, op, login string) (*profile.Profile, error) {
	p, err := c.profiles.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, wrapError(op, ErrUnknownUser)
		}
		return nil, wrapError(op, err)
	}
	return p, nil
}

// BeginRegistration starts a registration ceremony for an authenticated login.
// The returned options are sent verbatim to the browser; the pending session
// replaces any earlier one for the same login.
func (c *Coordinator) BeginRegistration(ctx context.Context, login string) (*protocol.CredentialCreation, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	p, err := c.resolveProfile(ctx, "begin registration", login)
	if err != nil {
		return nil, err
	}

	existing, err := c.creds.FindByLogin(ctx, login)
	if err != nil {
		return nil, wrapError("begin registration", err)
	}

	// Exclude already-registered credentials so the authenticator prompts
	// for a new one instead of re-registering.
	excludeList := make([]protocol.CredentialDescriptor, 0, len(existing))
	for _, cred := range existing {
		wc, err := cred.toWebAuthn()
		if err != nil {
			return nil, wrapError("begin registration", err)
		}
		excludeList = append(excludeList, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: wc.ID,
		})
	}

	user := newCeremonyUser(p, nil)
	options, session, err := c.webauthn.BeginRegistration(user,
		webauthn.WithExclusions(excludeList),
	)
	if err != nil {
		return nil, wrapError("begin registration", err)
	}

	c.challenges.PutLogin(login, session)
	return options, nil
}

// FinishRegistration verifies the attestation response against the pending
// challenge for login and stores the new credential. The pending challenge
// is consumed on every outcome, success or failure, so a replayed response
// fails with ErrNoChallenge.
func (c *Coordinator) FinishRegistration(ctx context.Context, login string, response *protocol.ParsedCredentialCreationData) (*Credential, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	session, ok := c.challenges.LoginChallenge(login)
	if !ok {
		return nil, wrapError("finish registration", ErrNoChallenge)
	}
	defer c.challenges.RemoveLogin(login)

	p, err := c.resolveProfile(ctx, "finish registration", login)
	if err != nil {
		return nil, err
	}

	user := newCeremonyUser(p, nil)
	cred, err := c.webauthn.CreateCredential(user, *session, response)
	if err != nil {
		return nil, wrapError("finish registration", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	now := time.Now().UTC()
	stored := &Credential{
		ProfileID:    &p.ID,
		Login:        login,
		CredentialID: EncodeCredentialID(cred.ID),
		PublicKey:    cred.PublicKey,
		Counter:      cred.Authenticator.SignCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.creds.Save(ctx, stored); err != nil {
		return nil, wrapError("finish registration", err)
	}

	return stored, nil
}

// BeginLogin starts an authentication ceremony. With a login, the allow-list
// is built from that login's credentials and the session is keyed by login.
// With an empty login, a discoverable (anonymous) ceremony is issued and the
// session joins the anonymous pool.
func (c *Coordinator) BeginLogin(ctx context.Context, login string) (*protocol.CredentialAssertion, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	if login == "" {
		options, session, err := c.webauthn.BeginDiscoverableLogin()
		if err != nil {
			return nil, wrapError("begin login", err)
		}
		c.challenges.AddAnonymous(session)
		return options, nil
	}

	p, err := c.resolveProfile(ctx, "begin login", login)
	if err != nil {
		return nil, err
	}

	stored, err := c.creds.FindByLogin(ctx, login)
	if err != nil {
		return nil, wrapError("begin login", err)
	}
	if len(stored) == 0 {
		return nil, wrapError("begin login", ErrNoCredentials)
	}

	credentials := make([]webauthn.Credential, 0, len(stored))
	for _, cred := range stored {
		wc, err := cred.toWebAuthn()
		if err != nil {
			return nil, wrapError("begin login", err)
		}
		credentials = append(credentials, wc)
	}

	user := newCeremonyUser(p, credentials)
	options, session, err := c.webauthn.BeginLogin(user)
	if err != nil {
		return nil, wrapError("begin login", err)
	}

	c.challenges.PutLogin(login, session)
	return options, nil
}

// FinishLogin verifies an assertion response. With a login the assertion is
// checked against that login's pending challenge and credentials. With an
// empty login the asserted credential is matched against every candidate
// challenge (the owner's pending challenge plus the anonymous pool); the
// first pair that verifies wins and identifies the account.
func (c *Coordinator) FinishLogin(ctx context.Context, login string, response *protocol.ParsedCredentialAssertionData) (*LoginResult, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	if login == "" {
		return c.finishDiscoverableLogin(ctx, response)
	}

	session, ok := c.challenges.LoginChallenge(login)
	if !ok {
		return nil, wrapError("finish login", ErrNoChallenge)
	}
	defer c.challenges.RemoveLogin(login)

	p, err := c.resolveProfile(ctx, "finish login", login)
	if err != nil {
		return nil, err
	}

	credentialID := EncodeCredentialID(response.RawID)
	stored, err := c.creds.FindByLoginAndCredentialID(ctx, login, credentialID)
	if err != nil {
		return nil, wrapError("finish login", err)
	}

	wc, err := stored.toWebAuthn()
	if err != nil {
		return nil, wrapError("finish login", err)
	}

	user := newCeremonyUser(p, []webauthn.Credential{wc})
	verified, err := c.webauthn.ValidateLogin(user, *session, response)
	if err != nil {
		return nil, wrapError("finish login", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	if c.config.StrictCounter && verified.Authenticator.CloneWarning {
		return nil, wrapError("finish login", ErrClonedAuthenticator)
	}

	if err := c.creds.UpdateCounter(ctx, credentialID, verified.Authenticator.SignCount); err != nil {
		return nil, wrapError("finish login", err)
	}

	return &LoginResult{Login: login, Credential: stored}, nil
}

// finishDiscoverableLogin identifies the account behind an anonymous
// assertion by brute force over the candidate pairs. Each stored credential
// matching the asserted ID is tried against its owner's pending challenge
// and every anonymous challenge, with the session rebound to the owner's
// user handle. Nothing is consumed on failure: no single pending challenge
// belongs to the ceremony until one verifies.
func (c *Coordinator) finishDiscoverableLogin(ctx context.Context, response *protocol.ParsedCredentialAssertionData) (*LoginResult, error) {
	credentialID := EncodeCredentialID(response.RawID)
	candidates, err := c.creds.FindByCredentialID(ctx, credentialID)
	if err != nil {
		return nil, wrapError("finish login", err)
	}
	if len(candidates) == 0 {
		return nil, wrapError("finish login", ErrUnknownCredential)
	}

	anonymous := c.challenges.Anonymous()

	for _, stored := range candidates {
		p, err := c.profiles.FindByLogin(ctx, stored.Login)
		if err != nil {
			continue
		}

		wc, err := stored.toWebAuthn()
		if err != nil {
			continue
		}
		user := newCeremonyUser(p, []webauthn.Credential{wc})

		sessions := make([]*webauthn.SessionData, 0, len(anonymous)+1)
		if owned, ok := c.challenges.LoginChallenge(stored.Login); ok {
			sessions = append(sessions, owned)
		}
		sessions = append(sessions, anonymous...)

		for _, session := range sessions {
			// Rebind the session to this candidate: anonymous sessions
			// carry no user handle, and ValidateLogin requires the session
			// and user handles to match.
			bound := *session
			bound.UserID = user.WebAuthnID()

			verified, err := c.webauthn.ValidateLogin(user, bound, response)
			if err != nil {
				continue
			}

			if c.config.StrictCounter && verified.Authenticator.CloneWarning {
				return nil, wrapError("finish login", ErrClonedAuthenticator)
			}

			if err := c.creds.UpdateCounter(ctx, credentialID, verified.Authenticator.SignCount); err != nil {
				return nil, wrapError("finish login", err)
			}

			c.challenges.RemoveLogin(stored.Login)
			c.challenges.RemoveAnonymous(session.Challenge)
			return &LoginResult{Login: stored.Login, Credential: stored}, nil
		}
	}

	return nil, wrapError("finish login", ErrVerificationFailed)
}
