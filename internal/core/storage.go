package core

import (
	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/storage"

	"go.uber.org/zap"
)

// NewStorage returns nil for the "none" provider; image endpoints then answer 503.
func NewStorage(config models.StorageConfiguration) storage.IStorage {
	var store *storage.S3Storage
	var err error

	switch config.Type {
	case configuration.ProviderMinio:
		store, err = storage.NewS3Storage(config.Minio, true)
	case configuration.ProviderS3:
		store, err = storage.NewS3Storage(config.S3, false)
	default:
		zap.L().Info("Object storage disabled, vehicle images are unavailable")
		return nil
	}

	if err != nil {
		zap.L().Fatal("Failed to initialize storage", zap.String("provider", config.Type), zap.Error(err))
	}
	return store
}
