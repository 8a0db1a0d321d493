// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package profile

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileWithPassword(t *testing.T, login, password string) *Profile {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &Profile{Login: login, PasswordHash: hash}
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := newProfileWithPassword(t, "ola", "olapass123")
	p.City = "Poznan"
	require.NoError(t, store.Create(ctx, p))
	assert.NotZero(t, p.ID)

	byLogin, err := store.FindByLogin(ctx, "ola")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byLogin.ID)
	assert.Equal(t, "Poznan", byLogin.City)

	byID, err := store.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ola", byID.Login)
}

func TestMemoryStore_DuplicateLogin(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, newProfileWithPassword(t, "ola", "a")))
	err := store.Create(ctx, newProfileWithPassword(t, "ola", "b"))
	assert.ErrorIs(t, err, ErrProfileExists)
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.FindByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = store.FindByID(ctx, 42)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "nobody"), ErrProfileNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := newProfileWithPassword(t, "marek", "marekpw")
	require.NoError(t, store.Create(ctx, p))
	require.NoError(t, store.Delete(ctx, "marek"))

	_, err := store.FindByLogin(ctx, "marek")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	_, err = store.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestMemoryStore_ListOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, login := range []string{"c", "a", "b"} {
		require.NoError(t, store.Create(ctx, newProfileWithPassword(t, login, "pw")))
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)
	assert.Less(t, all[1].ID, all[2].ID)
}

func TestCheckPassword(t *testing.T) {
	p := newProfileWithPassword(t, "ola", "olapass123")
	assert.True(t, p.CheckPassword("olapass123"))
	assert.False(t, p.CheckPassword("wrong"))
	assert.False(t, (&Profile{Login: "ola"}).CheckPassword("anything"))
}

func TestValidatePassword(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, newProfileWithPassword(t, "ola", "olapass123")))

	p, ok := ValidatePassword(ctx, store, "ola", "olapass123")
	require.True(t, ok)
	assert.Equal(t, "ola", p.Login)

	p, ok = ValidatePassword(ctx, store, "ola", "wrong")
	assert.False(t, ok)
	assert.Nil(t, p)

	// Unknown login looks identical to a wrong password.
	p, ok = ValidatePassword(ctx, store, "ghost", "olapass123")
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	p := newProfileWithPassword(t, "ola", "olapass123")
	p.ID = 1
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "PasswordHash")
	assert.NotContains(t, string(data), "passwordHash")
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, err := SeedDemo(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	ola, err := store.FindByLogin(ctx, "ola")
	require.NoError(t, err)
	assert.True(t, ola.CheckPassword("olapass123"))

	// Idempotent: a second run creates nothing.
	created, err = SeedDemo(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, 4, store.Count())
}
