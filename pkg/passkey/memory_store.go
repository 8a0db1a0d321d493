// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryCredentialStore is an in-memory CredentialStore for development and
// tests. All methods return copies so callers cannot mutate stored records.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	byID   map[string]*Credential // keyed by CredentialID
	nextID int64
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:   make(map[string]*Credential),
		nextID: 1,
	}
}

// Save stores a new credential, enforcing global credential ID uniqueness.
func (s *MemoryCredentialStore) Save(_ context.Context, credential *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[credential.CredentialID]; exists {
		return ErrDuplicateCredential
	}

	credential.ID = s.nextID
	s.nextID++
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now().UTC()
	}
	if credential.UpdatedAt.IsZero() {
		credential.UpdatedAt = credential.CreatedAt
	}

	s.byID[credential.CredentialID] = credential.Clone()
	return nil
}

// FindByLogin returns all credentials for a login, oldest first.
func (s *MemoryCredentialStore) FindByLogin(_ context.Context, login string) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Credential
	for _, cred := range s.byID {
		if cred.Login == login {
			result = append(result, cred.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// FindByLoginAndCredentialID returns the credential with the given ID owned
// by login, or ErrUnknownCredential.
func (s *MemoryCredentialStore) FindByLoginAndCredentialID(_ context.Context, login, credentialID string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[credentialID]
	if !ok || cred.Login != login {
		return nil, ErrUnknownCredential
	}
	return cred.Clone(), nil
}

// FindByCredentialID returns the credential with the given ID, if any.
func (s *MemoryCredentialStore) FindByCredentialID(_ context.Context, credentialID string) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[credentialID]
	if !ok {
		return nil, nil
	}
	return []*Credential{cred.Clone()}, nil
}

// UpdateCounter sets the signature counter for a credential.
func (s *MemoryCredentialStore) UpdateCounter(_ context.Context, credentialID string, counter uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[credentialID]
	if !ok {
		return ErrUnknownCredential
	}
	cred.Counter = counter
	cred.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteByLogin removes all credentials for a login.
func (s *MemoryCredentialStore) DeleteByLogin(_ context.Context, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, cred := range s.byID {
		if cred.Login == login {
			delete(s.byID, id)
		}
	}
	return nil
}

// Count returns the number of stored credentials.
func (s *MemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
