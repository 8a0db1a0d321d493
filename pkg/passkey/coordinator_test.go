// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findskills/findskills-server/pkg/profile"
)

const (
	testRPID   = "findskills.test"
	testOrigin = "https://findskills.test"
)

func newTestCoordinator(t *testing.T, cfg *Config) (*Coordinator, profile.Store, *MemoryCredentialStore) {
	t.Helper()

	if cfg == nil {
		cfg = &Config{
			RPID:          testRPID,
			RPDisplayName: "FindSkills",
			RPOrigins:     []string{testOrigin},
		}
	}

	profiles := profile.NewMemoryStore()
	creds := NewMemoryCredentialStore()
	coord, err := NewCoordinator(CoordinatorParams{
		Config:      cfg,
		Profiles:    profiles,
		Credentials: creds,
	})
	require.NoError(t, err)
	return coord, profiles, creds
}

func createProfile(t *testing.T, profiles profile.Store, login string) *profile.Profile {
	t.Helper()

	hash, err := profile.HashPassword("password123")
	require.NoError(t, err)
	p := &profile.Profile{Login: login, PasswordHash: hash, City: "Warszawa"}
	require.NoError(t, profiles.Create(context.Background(), p))
	return p
}

// registerCredential runs a full registration ceremony for login with the
// given authenticator and returns the stored credential.
func registerCredential(t *testing.T, coord *Coordinator, login string, auth *MockAuthenticator) *Credential {
	t.Helper()
	ctx := context.Background()

	options, err := coord.BeginRegistration(ctx, login)
	require.NoError(t, err)

	attestation, err := auth.Attest(options.Response.Challenge, testOrigin)
	require.NoError(t, err)

	stored, err := coord.FinishRegistration(ctx, login, attestation)
	require.NoError(t, err)
	return stored
}

func TestNewCoordinator_Validation(t *testing.T) {
	profiles := profile.NewMemoryStore()
	creds := NewMemoryCredentialStore()
	cfg := &Config{RPID: testRPID, RPDisplayName: "FindSkills", RPOrigins: []string{testOrigin}}

	tests := []struct {
		name   string
		params CoordinatorParams
	}{
		{"nil config", CoordinatorParams{Profiles: profiles, Credentials: creds}},
		{"nil profiles", CoordinatorParams{Config: cfg, Credentials: creds}},
		{"nil credentials", CoordinatorParams{Config: cfg, Profiles: profiles}},
		{"missing rpid", CoordinatorParams{Config: &Config{RPDisplayName: "x", RPOrigins: []string{testOrigin}}, Profiles: profiles, Credentials: creds}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCoordinator(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestRegistration_RoundTrip(t *testing.T) {
	ctx := context.Background()
	coord, profiles, creds := newTestCoordinator(t, nil)
	p := createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)

	options, err := coord.BeginRegistration(ctx, "janek")
	require.NoError(t, err)
	require.NotEmpty(t, options.Response.Challenge)
	assert.Equal(t, testRPID, options.Response.RelyingParty.ID)
	assert.Equal(t, "janek", options.Response.User.Name)

	attestation, err := auth.Attest(options.Response.Challenge, testOrigin)
	require.NoError(t, err)

	stored, err := coord.FinishRegistration(ctx, "janek", attestation)
	require.NoError(t, err)
	assert.Equal(t, "janek", stored.Login)
	assert.Equal(t, EncodeCredentialID(auth.CredentialID), stored.CredentialID)
	require.NotNil(t, stored.ProfileID)
	assert.Equal(t, p.ID, *stored.ProfileID)
	assert.NotEmpty(t, stored.PublicKey)

	list, err := creds.FindByLogin(ctx, "janek")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegistration_UnknownUser(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, nil)

	_, err := coord.BeginRegistration(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestRegistration_ChallengeConsumedOnFailure(t *testing.T) {
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)

	options, err := coord.BeginRegistration(ctx, "janek")
	require.NoError(t, err)

	// Attestation over the wrong challenge fails verification.
	forged, err := auth.Attest([]byte("not-the-challenge"), testOrigin)
	require.NoError(t, err)

	_, err = coord.FinishRegistration(ctx, "janek", forged)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	// The failed attempt consumed the challenge; a retry with a correct
	// response now has nothing to verify against.
	good, err := auth.Attest(options.Response.Challenge, testOrigin)
	require.NoError(t, err)
	_, err = coord.FinishRegistration(ctx, "janek", good)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestRegistration_ReplayRejected(t *testing.T) {
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)

	options, err := coord.BeginRegistration(ctx, "janek")
	require.NoError(t, err)
	attestation, err := auth.Attest(options.Response.Challenge, testOrigin)
	require.NoError(t, err)

	_, err = coord.FinishRegistration(ctx, "janek", attestation)
	require.NoError(t, err)

	_, err = coord.FinishRegistration(ctx, "janek", attestation)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestRegistration_DuplicateCredentialID(t *testing.T) {
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")
	createProfile(t, profiles, "asia")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "janek", auth)

	// A second authenticator claiming the same credential ID is rejected
	// even though it belongs to a different profile.
	clone, err := NewMockAuthenticator(testRPID, WithCredentialID(auth.CredentialID))
	require.NoError(t, err)

	options, err := coord.BeginRegistration(ctx, "asia")
	require.NoError(t, err)
	attestation, err := clone.Attest(options.Response.Challenge, testOrigin)
	require.NoError(t, err)

	_, err = coord.FinishRegistration(ctx, "asia", attestation)
	assert.ErrorIs(t, err, ErrDuplicateCredential)
}

func TestRegistration_ExcludesExistingCredentials(t *testing.T) {
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "janek", auth)

	options, err := coord.BeginRegistration(ctx, "janek")
	require.NoError(t, err)
	require.Len(t, options.Response.CredentialExcludeList, 1)
	assert.Equal(t, []byte(auth.CredentialID), []byte(options.Response.CredentialExcludeList[0].CredentialID))
}

func TestLogin_RoundTrip(t *testing.T) {
	ctx := context.Background()
	coord, profiles, creds := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "janek", auth)

	options, err := coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)
	require.Len(t, options.Response.AllowedCredentials, 1)

	assertion, err := auth.Assert(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)

	result, err := coord.FinishLogin(ctx, "janek", assertion)
	require.NoError(t, err)
	assert.Equal(t, "janek", result.Login)

	// Counter persisted from the assertion.
	stored, err := creds.FindByLoginAndCredentialID(ctx, "janek", EncodeCredentialID(auth.CredentialID))
	require.NoError(t, err)
	assert.Equal(t, auth.SignCount, stored.Counter)

	// Challenge consumed; replay fails.
	_, err = coord.FinishLogin(ctx, "janek", assertion)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestLogin_UnknownUser(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, nil)

	_, err := coord.BeginLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestLogin_NoCredentials(t *testing.T) {
	coord, profiles, _ := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	_, err := coord.BeginLogin(context.Background(), "janek")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestLogin_UnknownCredential(t *testing.T) {
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "janek", auth)

	options, err := coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)

	// Assertion from an authenticator whose credential was never registered.
	stranger, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	assertion, err := stranger.Assert(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)

	_, err = coord.FinishLogin(ctx, "janek", assertion)
	assert.ErrorIs(t, err, ErrUnknownCredential)

	// The failure consumed the pending challenge.
	_, ok := coord.Challenges().LoginChallenge("janek")
	assert.False(t, ok)
}

func TestLogin_BadSignature(t *testing.T) {
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "janek", auth)

	options, err := coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)

	assertion, err := auth.Assert(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)
	assertion.Response.Signature[0] ^= 0xff

	_, err = coord.FinishLogin(ctx, "janek", assertion)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestLogin_FreshChallengeReplacesPending(t *testing.T) {
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "janek", auth)

	first, err := coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)
	_, err = coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)

	// The first challenge is gone; an assertion over it fails.
	assertion, err := auth.Assert(first.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)
	_, err = coord.FinishLogin(ctx, "janek", assertion)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestDiscoverableLogin_AnonymousChallenge(t *testing.T) {
	ctx := context.Background()
	coord, profiles, creds := newTestCoordinator(t, nil)
	p := createProfile(t, profiles, "ola")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "ola", auth)

	options, err := coord.BeginLogin(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, options.Response.AllowedCredentials)

	handle := []byte(strconv.FormatInt(p.ID, 10))
	assertion, err := auth.Assert(options.Response.Challenge, handle, testOrigin)
	require.NoError(t, err)

	result, err := coord.FinishLogin(ctx, "", assertion)
	require.NoError(t, err)
	assert.Equal(t, "ola", result.Login)

	// The winning anonymous challenge was consumed.
	assert.Empty(t, coord.Challenges().Anonymous())

	stored, err := creds.FindByLoginAndCredentialID(ctx, "ola", EncodeCredentialID(auth.CredentialID))
	require.NoError(t, err)
	assert.Equal(t, auth.SignCount, stored.Counter)
}

func TestDiscoverableLogin_MatchesOwnerChallenge(t *testing.T) {
	// A challenge issued for a known login can still be answered through the
	// anonymous endpoint: the owner's pending challenge is among the
	// candidates tried.
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	p := createProfile(t, profiles, "ola")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "ola", auth)

	// Owner challenge c1 and anonymous challenge c2 are both pending.
	ownerOptions, err := coord.BeginLogin(ctx, "ola")
	require.NoError(t, err)
	_, err = coord.BeginLogin(ctx, "")
	require.NoError(t, err)

	handle := []byte(strconv.FormatInt(p.ID, 10))
	assertion, err := auth.Assert(ownerOptions.Response.Challenge, handle, testOrigin)
	require.NoError(t, err)

	result, err := coord.FinishLogin(ctx, "", assertion)
	require.NoError(t, err)
	assert.Equal(t, "ola", result.Login)

	// The owner's pending challenge was consumed by the win.
	_, ok := coord.Challenges().LoginChallenge("ola")
	assert.False(t, ok)
}

func TestDiscoverableLogin_UnknownCredential(t *testing.T) {
	ctx := context.Background()
	coord, _, _ := newTestCoordinator(t, nil)

	_, err := coord.BeginLogin(ctx, "")
	require.NoError(t, err)

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	assertion, err := auth.Assert([]byte("whatever"), nil, testOrigin)
	require.NoError(t, err)

	_, err = coord.FinishLogin(ctx, "", assertion)
	assert.ErrorIs(t, err, ErrUnknownCredential)
}

func TestDiscoverableLogin_NoPendingChallenge(t *testing.T) {
	ctx := context.Background()
	coord, profiles, _ := newTestCoordinator(t, nil)
	p := createProfile(t, profiles, "ola")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "ola", auth)

	handle := []byte(strconv.FormatInt(p.ID, 10))
	assertion, err := auth.Assert([]byte("stale-challenge"), handle, testOrigin)
	require.NoError(t, err)

	_, err = coord.FinishLogin(ctx, "", assertion)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestLogin_StrictCounterCloneDetection(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		RPID:          testRPID,
		RPDisplayName: "FindSkills",
		RPOrigins:     []string{testOrigin},
		StrictCounter: true,
	}
	coord, profiles, _ := newTestCoordinator(t, cfg)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "janek", auth)

	// A first login advances the stored counter.
	options, err := coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)
	assertion, err := auth.Assert(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)
	_, err = coord.FinishLogin(ctx, "janek", assertion)
	require.NoError(t, err)

	// A cloned authenticator replays the old counter value.
	auth.SignCount = 0
	options, err = coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)
	assertion, err = auth.Assert(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)

	_, err = coord.FinishLogin(ctx, "janek", assertion)
	assert.ErrorIs(t, err, ErrClonedAuthenticator)
}

func TestLogin_CounterRegressionToleratedByDefault(t *testing.T) {
	ctx := context.Background()
	coord, profiles, creds := newTestCoordinator(t, nil)
	createProfile(t, profiles, "janek")

	auth, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerCredential(t, coord, "janek", auth)

	options, err := coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)
	assertion, err := auth.Assert(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)
	_, err = coord.FinishLogin(ctx, "janek", assertion)
	require.NoError(t, err)

	auth.SignCount = 0
	options, err = coord.BeginLogin(ctx, "janek")
	require.NoError(t, err)
	assertion, err = auth.Assert(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)

	result, err := coord.FinishLogin(ctx, "janek", assertion)
	require.NoError(t, err)
	assert.Equal(t, "janek", result.Login)

	// The regressed counter is still persisted.
	stored, err := creds.FindByLoginAndCredentialID(ctx, "janek", EncodeCredentialID(auth.CredentialID))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.Counter)
}

// failingProfileStore reports a backend failure on every lookup.
type failingProfileStore struct {
	profile.Store
	err error
}

func (s *failingProfileStore) FindByLogin(ctx context.Context, login string) (*profile.Profile, error) {
	return nil, s.err
}

func TestProfileStoreFailure_NotUnknownUser(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("backend unavailable")
	coord, err := NewCoordinator(CoordinatorParams{
		Config:      &Config{RPID: testRPID, RPDisplayName: "FindSkills", RPOrigins: []string{testOrigin}},
		Profiles:    &failingProfileStore{err: storeErr},
		Credentials: NewMemoryCredentialStore(),
	})
	require.NoError(t, err)

	_, err = coord.BeginRegistration(ctx, "janek")
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrUnknownUser)

	_, err = coord.BeginLogin(ctx, "janek")
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrUnknownUser)
}

func TestErrorWrapping(t *testing.T) {
	err := wrapError("finish login", ErrNoChallenge)
	assert.ErrorIs(t, err, ErrNoChallenge)
	assert.Contains(t, err.Error(), "finish login")

	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "finish login", opErr.Op)
}
