// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package profile provides the student profile model and its persistence
// interface, including password verification for the password login path.
package profile

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// SchoolType classifies a student's school.
type SchoolType string

const (
	SchoolPrimary    SchoolType = "primary"
	SchoolSecondary  SchoolType = "secondary"
	SchoolUniversity SchoolType = "university"
)

// Sentinel errors for profile operations.
var (
	// ErrProfileNotFound is returned when a profile cannot be found.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileExists is returned when creating a profile whose login is taken.
	ErrProfileExists = errors.New("profile already exists")
)

// Profile is a student profile. PasswordHash is a bcrypt hash and is never
// serialized in API responses.
type Profile struct {
	ID               int64      `json:"id"`
	Login            string     `json:"login"`
	PasswordHash     []byte     `json:"-"`
	SchoolType       SchoolType `json:"schoolType,omitempty"`
	SchoolClass      int        `json:"schoolClass,omitempty"`
	City             string     `json:"city,omitempty"`
	FavoriteSubjects string     `json:"favoriteSubjects,omitempty"`
	Bio              string     `json:"bio,omitempty"`
}

// CheckPassword compares the candidate password against the stored hash.
// The comparison is delegated to bcrypt, which is constant-time over the
// derived digests.
func (p *Profile) CheckPassword(password string) bool {
	if len(p.PasswordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(password)) == nil
}

// HashPassword produces a bcrypt hash for storage on a Profile.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// Store is the profile persistence interface the authentication core
// depends on.
type Store interface {
	// FindByLogin retrieves a profile by login.
	// Returns ErrProfileNotFound if no profile has that login.
	FindByLogin(ctx context.Context, login string) (*Profile, error)

	// FindByID retrieves a profile by id.
	// Returns ErrProfileNotFound if no profile has that id.
	FindByID(ctx context.Context, id int64) (*Profile, error)

	// Create persists a new profile and assigns its ID.
	// Returns ErrProfileExists if the login is already taken.
	Create(ctx context.Context, p *Profile) error

	// Delete removes a profile by login.
	// Returns ErrProfileNotFound if no profile has that login.
	Delete(ctx context.Context, login string) error

	// List returns all profiles ordered by id.
	List(ctx context.Context) ([]*Profile, error)
}

// ValidatePassword resolves the login and checks the password, returning
// the profile on success. A missing profile and a wrong password are
// indistinguishable to the caller.
func ValidatePassword(ctx context.Context, store Store, login, password string) (*Profile, bool) {
	p, err := store.FindByLogin(ctx, login)
	if err != nil || !p.CheckPassword(password) {
		return nil, false
	}
	return p, true
}
