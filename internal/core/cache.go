package core

import (
	c "github.com/rentdesk/rentdesk/internal/cache"
	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
)

func NewCache(config models.CacheConfiguration) c.ICache {
	var cache *c.RueidisCache
	var err error

	switch config.Type {
	case "redis":
		cache, err = c.NewRedisCache(*config.Redis)
	case "valkey":
		cache, err = c.NewValkeyCache(*config.Valkey)
	default:
		zap.L().Fatal("Unsupported cache type", zap.String("type", config.Type))
	}

	if err != nil {
		zap.L().Fatal("Failed to connect to cache", zap.String("type", config.Type), zap.Error(err))
	}
	return cache
}
