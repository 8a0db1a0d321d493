// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package bolt provides BBolt-backed profile and credential stores.
//
// Records are stored JSON-encoded. Each store keeps a primary bucket keyed
// by record ID and an index bucket keyed by login for the lookups the
// authentication flows need.
package bolt

import (
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"
)

var (
	bucketProfiles          = []byte("profiles")
	bucketProfilesByLogin   = []byte("profiles.by_login")
	bucketCredentials       = []byte("credentials")
	bucketCredentialsByUser = []byte("credentials.by_login")
)

// DB wraps a BBolt database with the buckets both stores need.
type DB struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file and ensures all buckets exist.
func Open(path string, options *bbolt.Options) (*DB, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketProfiles, bucketProfilesByLogin, bucketCredentials, bucketCredentialsByUser} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Profiles returns a profile store backed by this database.
func (d *DB) Profiles() *ProfileStore {
	return &ProfileStore{db: d.db}
}

// Credentials returns a credential store backed by this database.
func (d *DB) Credentials() *CredentialStore {
	return &CredentialStore{db: d.db}
}

// itob encodes a record ID as its bucket key.
func itob(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}
