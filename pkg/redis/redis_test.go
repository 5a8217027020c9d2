package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ikkim/storefront-cart/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_ConnectsAndCloses(t *testing.T) {
	mr := miniredis.RunT(t)

	err := Init(&config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	require.NotNil(t, GetClient())

	require.NoError(t, GetClient().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	assert.NoError(t, Close())
}

func TestConnect_ReturnsIndependentClient(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Connect(context.Background(), &config.RedisConfig{Host: mr.Host(), Port: mr.Port(), DB: 2})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 2, c.Options().DB)
}

func TestInit_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	err := Init(&config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
	_ = Close()
}
