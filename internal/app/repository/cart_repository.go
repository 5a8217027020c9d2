package repository

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCartStateNotFound = errors.New("cart state not found")

// CartStateRepository stores serialized carts as opaque blobs under a key.
type CartStateRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

type cartStateRepository struct {
	db *gorm.DB
}

func NewCartStateRepository(db *gorm.DB) CartStateRepository {
	return &cartStateRepository{db: db}
}

func (r *cartStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	logger.Debug("Finding cart state in database", map[string]interface{}{
		"storage_key": key,
	})

	var state model.CartState
	err := r.db.WithContext(ctx).Where("storage_key = ?", key).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartStateNotFound
		}
		logger.Error("Failed to find cart state in database", err, map[string]interface{}{
			"storage_key": key,
		})
		return nil, err
	}

	return []byte(state.Payload), nil
}

func (r *cartStateRepository) Set(ctx context.Context, key string, payload []byte) error {
	logger.Debug("Saving cart state in database", map[string]interface{}{
		"storage_key": key,
		"bytes":       len(payload),
	})

	state := model.CartState{StorageKey: key, Payload: string(payload)}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		logger.Error("Failed to save cart state in database", err, map[string]interface{}{
			"storage_key": key,
		})
		return err
	}
	return nil
}

func (r *cartStateRepository) Delete(ctx context.Context, key string) error {
	logger.Debug("Deleting cart state from database", map[string]interface{}{
		"storage_key": key,
	})

	if err := r.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&model.CartState{}).Error; err != nil {
		logger.Error("Failed to delete cart state from database", err, map[string]interface{}{
			"storage_key": key,
		})
		return err
	}
	return nil
}
