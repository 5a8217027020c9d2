package repository

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-cart/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartStateTest(t *testing.T) CartStateRepository {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	return NewCartStateRepository(testDB)
}

func TestCartStateRepository_GetMissing(t *testing.T) {
	repo := setupCartStateTest(t)

	payload, err := repo.Get(context.Background(), "cart-storage:nobody")
	assert.ErrorIs(t, err, ErrCartStateNotFound)
	assert.Nil(t, payload)
}

func TestCartStateRepository_SetAndGet(t *testing.T) {
	repo := setupCartStateTest(t)
	ctx := context.Background()

	err := repo.Set(ctx, "cart-storage:s1", []byte(`{"state":{"items":[]},"version":0}`))
	require.NoError(t, err)

	payload, err := repo.Get(ctx, "cart-storage:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"items":[]},"version":0}`, string(payload))
}

func TestCartStateRepository_SetOverwrites(t *testing.T) {
	repo := setupCartStateTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "cart-storage:s1", []byte(`{"items":[]}`)))
	require.NoError(t, repo.Set(ctx, "cart-storage:s1", []byte(`{"items":[{"id":"p1","quantity":2}]}`)))

	payload, err := repo.Get(ctx, "cart-storage:s1")
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"p1"`)
}

func TestCartStateRepository_KeysAreIsolated(t *testing.T) {
	repo := setupCartStateTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "cart-storage:a", []byte("a")))
	require.NoError(t, repo.Set(ctx, "cart-storage:b", []byte("b")))

	a, err := repo.Get(ctx, "cart-storage:a")
	require.NoError(t, err)
	assert.Equal(t, "a", string(a))
}

func TestCartStateRepository_Delete(t *testing.T) {
	repo := setupCartStateTest(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "cart-storage:s1", []byte("{}")))
	require.NoError(t, repo.Delete(ctx, "cart-storage:s1"))

	_, err := repo.Get(ctx, "cart-storage:s1")
	assert.ErrorIs(t, err, ErrCartStateNotFound)

	// Deleting an absent key is not an error
	assert.NoError(t, repo.Delete(ctx, "cart-storage:s1"))
}
