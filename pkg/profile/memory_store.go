// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package profile

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development, testing, and single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	byLogin map[string]*Profile
	byID    map[int64]*Profile
	nextID  int64
}

// NewMemoryStore creates a new in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byLogin: make(map[string]*Profile),
		byID:    make(map[int64]*Profile),
		nextID:  1,
	}
}

// FindByLogin retrieves a profile by login.
func (s *MemoryStore) FindByLogin(ctx context.Context, login string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byLogin[login]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

// FindByID retrieves a profile by id.
func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

// Create persists a new profile and assigns its ID.
func (s *MemoryStore) Create(ctx context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byLogin[p.Login]; ok {
		return ErrProfileExists
	}

	p.ID = s.nextID
	s.nextID++

	cp := *p
	s.byLogin[p.Login] = &cp
	s.byID[p.ID] = &cp
	return nil
}

// Delete removes a profile by login.
func (s *MemoryStore) Delete(ctx context.Context, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byLogin[login]
	if !ok {
		return ErrProfileNotFound
	}
	delete(s.byLogin, login)
	delete(s.byID, p.ID)
	return nil
}

// List returns all profiles ordered by id.
func (s *MemoryStore) List(ctx context.Context) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Profile, 0, len(s.byID))
	for _, p := range s.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of stored profiles.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byLogin)
}
