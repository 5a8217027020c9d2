package db

import (
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

// Models lists every table the cart backend owns.
func Models() []interface{} {
	return []interface{}{
		&model.CartState{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
