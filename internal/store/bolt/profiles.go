// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/findskills/findskills-server/pkg/profile"
)

// ProfileStore implements profile.Store on BBolt.
type ProfileStore struct {
	db *bbolt.DB
}

var _ profile.Store = (*ProfileStore)(nil)

// profileRecord is the persisted form of a profile. It is separate from
// profile.Profile because the API type deliberately never serializes the
// password hash.
type profileRecord struct {
	ID               int64              `json:"id"`
	Login            string             `json:"login"`
	PasswordHash     []byte             `json:"password_hash"`
	SchoolType       profile.SchoolType `json:"school_type,omitempty"`
	SchoolClass      int                `json:"school_class,omitempty"`
	City             string             `json:"city,omitempty"`
	FavoriteSubjects string             `json:"favorite_subjects,omitempty"`
	Bio              string             `json:"bio,omitempty"`
}

func toProfileRecord(p *profile.Profile) *profileRecord {
	return &profileRecord{
		ID:               p.ID,
		Login:            p.Login,
		PasswordHash:     p.PasswordHash,
		SchoolType:       p.SchoolType,
		SchoolClass:      p.SchoolClass,
		City:             p.City,
		FavoriteSubjects: p.FavoriteSubjects,
		Bio:              p.Bio,
	}
}

func (r *profileRecord) toProfile() *profile.Profile {
	return &profile.Profile{
		ID:               r.ID,
		Login:            r.Login,
		PasswordHash:     r.PasswordHash,
		SchoolType:       r.SchoolType,
		SchoolClass:      r.SchoolClass,
		City:             r.City,
		FavoriteSubjects: r.FavoriteSubjects,
		Bio:              r.Bio,
	}
}

// FindByLogin retrieves a profile by login.
func (s *ProfileStore) FindByLogin(_ context.Context, login string) (*profile.Profile, error) {
	var record profileRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketProfilesByLogin).Get([]byte(login))
		if id == nil {
			return profile.ErrProfileNotFound
		}
		data := tx.Bucket(bucketProfiles).Get(id)
		if data == nil {
			return profile.ErrProfileNotFound
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record.toProfile(), nil
}

// FindByID retrieves a profile by id.
func (s *ProfileStore) FindByID(_ context.Context, id int64) (*profile.Profile, error) {
	var record profileRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketProfiles).Get(itob(id))
		if data == nil {
			return profile.ErrProfileNotFound
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record.toProfile(), nil
}

// Create persists a new profile and assigns its ID.
func (s *ProfileStore) Create(_ context.Context, p *profile.Profile) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketProfilesByLogin)
		if index.Get([]byte(p.Login)) != nil {
			return profile.ErrProfileExists
		}

		bucket := tx.Bucket(bucketProfiles)
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("assigning profile id: %w", err)
		}
		p.ID = int64(seq)

		data, err := json.Marshal(toProfileRecord(p))
		if err != nil {
			return err
		}
		if err := bucket.Put(itob(p.ID), data); err != nil {
			return err
		}
		return index.Put([]byte(p.Login), itob(p.ID))
	})
}

// Delete removes a profile by login.
func (s *ProfileStore) Delete(_ context.Context, login string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketProfilesByLogin)
		id := index.Get([]byte(login))
		if id == nil {
			return profile.ErrProfileNotFound
		}
		if err := tx.Bucket(bucketProfiles).Delete(id); err != nil {
			return err
		}
		return index.Delete([]byte(login))
	})
}

// List returns all profiles ordered by id.
func (s *ProfileStore) List(_ context.Context) ([]*profile.Profile, error) {
	var profiles []*profile.Profile
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProfiles).ForEach(func(_, data []byte) error {
			var record profileRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return err
			}
			profiles = append(profiles, record.toProfile())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// Bucket keys are decimal strings, so iteration order is lexicographic.
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}
