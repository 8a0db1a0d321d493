// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findskills/findskills-server/pkg/passkey"
	"github.com/findskills/findskills-server/pkg/profile"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "findskills.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProfileStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Profiles()

	hash, err := profile.HashPassword("password123")
	require.NoError(t, err)
	p := &profile.Profile{
		Login:        "janek",
		PasswordHash: hash,
		SchoolType:   profile.SchoolSecondary,
		SchoolClass:  3,
		City:         "Warszawa",
	}
	require.NoError(t, store.Create(ctx, p))
	assert.NotZero(t, p.ID)

	byLogin, err := store.FindByLogin(ctx, "janek")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byLogin.ID)
	assert.Equal(t, "Warszawa", byLogin.City)
	assert.True(t, byLogin.CheckPassword("password123"))

	byID, err := store.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "janek", byID.Login)
}

func TestProfileStore_DuplicateLogin(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Profiles()

	require.NoError(t, store.Create(ctx, &profile.Profile{Login: "janek"}))
	err := store.Create(ctx, &profile.Profile{Login: "janek"})
	assert.ErrorIs(t, err, profile.ErrProfileExists)
}

func TestProfileStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Profiles()

	_, err := store.FindByLogin(ctx, "ghost")
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)

	_, err = store.FindByID(ctx, 42)
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)

	err = store.Delete(ctx, "ghost")
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)
}

func TestProfileStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Profiles()

	for _, login := range []string{"janek", "asia", "marek"} {
		require.NoError(t, store.Create(ctx, &profile.Profile{Login: login}))
	}

	require.NoError(t, store.Delete(ctx, "asia"))
	_, err := store.FindByLogin(ctx, "asia")
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)

	profiles, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "janek", profiles[0].Login)
	assert.Equal(t, "marek", profiles[1].Login)
}

func TestProfileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "findskills.db")

	db, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Profiles().Create(ctx, &profile.Profile{Login: "janek"}))
	require.NoError(t, db.Close())

	db, err = Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	p, err := db.Profiles().FindByLogin(ctx, "janek")
	require.NoError(t, err)
	assert.Equal(t, "janek", p.Login)
}

func testBoltCredential(login, credentialID string) *passkey.Credential {
	return &passkey.Credential{
		Login:        login,
		CredentialID: credentialID,
		PublicKey:    []byte{0x01},
	}
}

func TestCredentialStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Credentials()

	cred := testBoltCredential("janek", "cred-1")
	require.NoError(t, store.Save(ctx, cred))
	assert.NotZero(t, cred.ID)
	assert.False(t, cred.CreatedAt.IsZero())

	found, err := store.FindByLoginAndCredentialID(ctx, "janek", "cred-1")
	require.NoError(t, err)
	assert.Equal(t, "janek", found.Login)

	_, err = store.FindByLoginAndCredentialID(ctx, "asia", "cred-1")
	assert.ErrorIs(t, err, passkey.ErrUnknownCredential)
}

func TestCredentialStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Credentials()

	require.NoError(t, store.Save(ctx, testBoltCredential("janek", "cred-1")))
	err := store.Save(ctx, testBoltCredential("asia", "cred-1"))
	assert.ErrorIs(t, err, passkey.ErrDuplicateCredential)
}

func TestCredentialStore_FindByLogin(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Credentials()

	require.NoError(t, store.Save(ctx, testBoltCredential("janek", "cred-1")))
	require.NoError(t, store.Save(ctx, testBoltCredential("janek", "cred-2")))
	require.NoError(t, store.Save(ctx, testBoltCredential("asia", "cred-3")))

	creds, err := store.FindByLogin(ctx, "janek")
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "cred-1", creds[0].CredentialID)
	assert.Equal(t, "cred-2", creds[1].CredentialID)

	creds, err = store.FindByLogin(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestCredentialStore_FindByCredentialID(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Credentials()

	require.NoError(t, store.Save(ctx, testBoltCredential("janek", "cred-1")))

	creds, err := store.FindByCredentialID(ctx, "cred-1")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "janek", creds[0].Login)

	creds, err = store.FindByCredentialID(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestCredentialStore_UpdateCounter(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Credentials()

	require.NoError(t, store.Save(ctx, testBoltCredential("janek", "cred-1")))
	require.NoError(t, store.UpdateCounter(ctx, "cred-1", 7))

	found, err := store.FindByLoginAndCredentialID(ctx, "janek", "cred-1")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), found.Counter)

	err = store.UpdateCounter(ctx, "missing", 1)
	assert.ErrorIs(t, err, passkey.ErrUnknownCredential)
}

func TestCredentialStore_DeleteByLogin(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Credentials()

	require.NoError(t, store.Save(ctx, testBoltCredential("janek", "cred-1")))
	require.NoError(t, store.Save(ctx, testBoltCredential("janek", "cred-2")))
	require.NoError(t, store.Save(ctx, testBoltCredential("asia", "cred-3")))

	require.NoError(t, store.DeleteByLogin(ctx, "janek"))

	creds, err := store.FindByLogin(ctx, "janek")
	require.NoError(t, err)
	assert.Empty(t, creds)

	remaining, err := store.FindByCredentialID(ctx, "cred-3")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
