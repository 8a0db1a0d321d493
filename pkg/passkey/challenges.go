// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/findskills/findskills-server/pkg/metrics"
)

// ChallengeRegistry holds pending ceremony sessions in memory.
//
// Sessions issued for a known login are keyed by login, so a fresh ceremony
// for the same login replaces any pending one. Sessions issued for anonymous
// (discoverable) login are keyed by their challenge string. Entries older
// than the TTL are swept lazily; a TTL of zero keeps entries until consumed.
type ChallengeRegistry struct {
	mu      sync.Mutex
	byLogin map[string]*challengeEntry
	anon    map[string]*challengeEntry
	ttl     time.Duration
	now     func() time.Time
}

type challengeEntry struct {
	session   *webauthn.SessionData
	createdAt time.Time
}

// RegistryOption configures a ChallengeRegistry.
type RegistryOption func(*ChallengeRegistry)

// WithTTL bounds the lifetime of unconsumed challenges. Zero disables sweeping.
func WithTTL(ttl time.Duration) RegistryOption {
	return func(r *ChallengeRegistry) {
		r.ttl = ttl
	}
}

// WithRegistryClock overrides the time source, for tests.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *ChallengeRegistry) {
		r.now = now
	}
}

// NewChallengeRegistry creates an empty registry.
func NewChallengeRegistry(opts ...RegistryOption) *ChallengeRegistry {
	r := &ChallengeRegistry{
		byLogin: make(map[string]*challengeEntry),
		anon:    make(map[string]*challengeEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PutLogin stores the pending session for a login, replacing any existing one.
func (r *ChallengeRegistry) PutLogin(login string, session *webauthn.SessionData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.byLogin[login] = &challengeEntry{session: session, createdAt: r.now()}
	r.publishGaugeLocked()
}

// LoginChallenge returns the pending session for a login without consuming it.
func (r *ChallengeRegistry) LoginChallenge(login string) (*webauthn.SessionData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	entry, ok := r.byLogin[login]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// RemoveLogin deletes the pending session for a login, if any.
func (r *ChallengeRegistry) RemoveLogin(login string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byLogin, login)
	r.publishGaugeLocked()
}

// AddAnonymous stores a pending session with no associated login.
func (r *ChallengeRegistry) AddAnonymous(session *webauthn.SessionData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.anon[session.Challenge] = &challengeEntry{session: session, createdAt: r.now()}
	r.publishGaugeLocked()
}

// Anonymous returns a snapshot of all pending anonymous sessions.
func (r *ChallengeRegistry) Anonymous() []*webauthn.SessionData {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	sessions := make([]*webauthn.SessionData, 0, len(r.anon))
	for _, entry := range r.anon {
		sessions = append(sessions, entry.session)
	}
	return sessions
}

// RemoveAnonymous deletes a pending anonymous session by its challenge.
func (r *ChallengeRegistry) RemoveAnonymous(challenge string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.anon, challenge)
	r.publishGaugeLocked()
}

// Len returns the total number of pending sessions.
func (r *ChallengeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.byLogin) + len(r.anon)
}

// sweepLocked drops entries older than the TTL. Caller holds the mutex.
func (r *ChallengeRegistry) sweepLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for login, entry := range r.byLogin {
		if entry.createdAt.Before(cutoff) {
			delete(r.byLogin, login)
		}
	}
	for challenge, entry := range r.anon {
		if entry.createdAt.Before(cutoff) {
			delete(r.anon, challenge)
		}
	}
	r.publishGaugeLocked()
}

func (r *ChallengeRegistry) publishGaugeLocked() {
	metrics.SetPendingChallenges(len(r.byLogin) + len(r.anon))
}
