package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCartStateRepository_CopiesPayload(t *testing.T) {
	repo := NewMemoryCartStateRepository()
	ctx := context.Background()

	payload := []byte(`{"items":[]}`)
	require.NoError(t, repo.Set(ctx, "k", payload))
	payload[0] = 'X'

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(got))

	require.NoError(t, repo.Delete(ctx, "k"))
	_, err = repo.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCartStateNotFound)
}
