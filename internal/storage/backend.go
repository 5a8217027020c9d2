package storage

import (
	"context"
	"fmt"

	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/db"
	"github.com/ikkim/storefront-cart/pkg/logger"
	redisclient "github.com/ikkim/storefront-cart/pkg/redis"
)

// OpenCartRepository connects the configured cart backend. The returned
// close function releases its connections.
func OpenCartRepository(ctx context.Context, cfg *config.Config) (repository.CartStateRepository, func() error, error) {
	noop := func() error { return nil }

	logger.Info("Opening cart storage", map[string]interface{}{
		"backend": cfg.Cart.StorageBackend,
	})

	switch cfg.Cart.StorageBackend {
	case config.StorageBackendMemory:
		return repository.NewMemoryCartStateRepository(), noop, nil

	case config.StorageBackendPostgres:
		if err := db.Initialize(&cfg.Database); err != nil {
			return nil, noop, err
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return repository.NewCartStateRepository(db.GetDB()), db.Close, nil

	case config.StorageBackendRedis:
		if err := redisclient.Init(&cfg.Redis); err != nil {
			return nil, noop, err
		}
		// Carts expire with the session that owns them
		return repository.NewRedisCartStateRepository(redisclient.GetClient(), cfg.Session.TTL), redisclient.Close, nil

	case config.StorageBackendS3:
		client, err := NewS3Client(ctx, cfg.S3.Region, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
		if err != nil {
			return nil, noop, err
		}
		return NewS3Storage(client, cfg.S3.Bucket, cfg.S3.Prefix), noop, nil
	}

	return nil, noop, fmt.Errorf("unsupported cart storage backend %q", cfg.Cart.StorageBackend)
}
