// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/findskills/findskills-server/pkg/passkey"
)

// CredentialStore implements passkey.CredentialStore on BBolt.
//
// The primary bucket is keyed by the base64url credential ID, which enforces
// global uniqueness. The index bucket maps "login/credentialID" to the
// credential ID for per-login scans.
type CredentialStore struct {
	db *bbolt.DB
}

var _ passkey.CredentialStore = (*CredentialStore)(nil)

func loginIndexKey(login, credentialID string) []byte {
	return []byte(login + "/" + credentialID)
}

// Save stores a new credential, enforcing credential ID uniqueness.
func (s *CredentialStore) Save(_ context.Context, credential *passkey.Credential) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCredentials)
		key := []byte(credential.CredentialID)
		if bucket.Get(key) != nil {
			return passkey.ErrDuplicateCredential
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("assigning credential id: %w", err)
		}
		credential.ID = int64(seq)
		now := time.Now().UTC()
		if credential.CreatedAt.IsZero() {
			credential.CreatedAt = now
		}
		if credential.UpdatedAt.IsZero() {
			credential.UpdatedAt = credential.CreatedAt
		}

		data, err := json.Marshal(credential)
		if err != nil {
			return err
		}
		if err := bucket.Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketCredentialsByUser).Put(loginIndexKey(credential.Login, credential.CredentialID), key)
	})
}

// FindByLogin returns all credentials registered for a login, oldest first.
func (s *CredentialStore) FindByLogin(_ context.Context, login string) ([]*passkey.Credential, error) {
	var credentials []*passkey.Credential
	prefix := []byte(login + "/")
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCredentials)
		cursor := tx.Bucket(bucketCredentialsByUser).Cursor()
		for k, id := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = cursor.Next() {
			data := bucket.Get(id)
			if data == nil {
				continue
			}
			var credential passkey.Credential
			if err := json.Unmarshal(data, &credential); err != nil {
				return err
			}
			credentials = append(credentials, &credential)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(credentials, func(i, j int) bool { return credentials[i].ID < credentials[j].ID })
	return credentials, nil
}

// FindByLoginAndCredentialID returns the credential with the given ID owned
// by login, or passkey.ErrUnknownCredential.
func (s *CredentialStore) FindByLoginAndCredentialID(_ context.Context, login, credentialID string) (*passkey.Credential, error) {
	var credential passkey.Credential
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCredentials).Get([]byte(credentialID))
		if data == nil {
			return passkey.ErrUnknownCredential
		}
		if err := json.Unmarshal(data, &credential); err != nil {
			return err
		}
		if credential.Login != login {
			return passkey.ErrUnknownCredential
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &credential, nil
}

// FindByCredentialID returns the credential with the given ID, if any.
func (s *CredentialStore) FindByCredentialID(_ context.Context, credentialID string) ([]*passkey.Credential, error) {
	var credential passkey.Credential
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCredentials).Get([]byte(credentialID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &credential); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return []*passkey.Credential{&credential}, nil
}

// UpdateCounter sets the signature counter for a credential.
func (s *CredentialStore) UpdateCounter(_ context.Context, credentialID string, counter uint32) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCredentials)
		data := bucket.Get([]byte(credentialID))
		if data == nil {
			return passkey.ErrUnknownCredential
		}
		var credential passkey.Credential
		if err := json.Unmarshal(data, &credential); err != nil {
			return err
		}
		credential.Counter = counter
		credential.UpdatedAt = time.Now().UTC()
		updated, err := json.Marshal(&credential)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(credentialID), updated)
	})
}

// DeleteByLogin removes all credentials for a login.
func (s *CredentialStore) DeleteByLogin(_ context.Context, login string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCredentials)
		index := tx.Bucket(bucketCredentialsByUser)

		prefix := []byte(login + "/")
		cursor := index.Cursor()
		var indexKeys [][]byte
		for k, id := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = cursor.Next() {
			if err := bucket.Delete(id); err != nil {
				return err
			}
			indexKeys = append(indexKeys, append([]byte(nil), k...))
		}
		for _, k := range indexKeys {
			if err := index.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

