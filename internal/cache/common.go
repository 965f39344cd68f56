package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

type RueidisCache struct {
	client rueidis.Client
}

func NewRedisCache(config models.RedisCacheConfiguration) (*RueidisCache, error) {
	return newRueidisCache(config.Hosts, config.Password, config.TLSEnabled, config.TLSServerName, "redis")
}

func NewValkeyCache(config models.ValkeyCacheConfiguration) (*RueidisCache, error) {
	return newRueidisCache(config.Hosts, config.Password, config.TLSEnabled, config.TLSServerName, "valkey")
}

func newRueidisCache(
	hosts []string,
	password string,
	tlsEnabled bool,
	tlsServerName,
	errorContext string,
) (*RueidisCache, error) {
	clientOption := rueidis.ClientOption{
		InitAddress: hosts,
		Password:    password,
	}

	if tlsEnabled {
		clientOption.TLSConfig = &tls.Config{
			ServerName: tlsServerName,
			MinVersion: tls.VersionTLS12,
		}
	}

	client, err := rueidis.NewClient(clientOption)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", errorContext, err)
	}
	return &RueidisCache{client: client}, nil
}

func (r *RueidisCache) RegisterPlatform(id string) error {
	ctx := context.Background()
	now := float64(time.Now().Unix())
	return r.client.Do(ctx, r.client.B().Zadd().Key(configuration.CacheAppIdentityKey).
		ScoreMember().ScoreMember(now, id).Build()).Error()
}

func (r *RueidisCache) DeleteInactivePlatform() error {
	ctx := context.Background()
	cutoff := float64(time.Now().Unix() - configuration.CacheMaxAppIdentityLifetime)
	return r.client.Do(ctx, r.client.B().Zremrangebyscore().Key(configuration.CacheAppIdentityKey).
		Min("-inf").Max(fmt.Sprintf("%f", cutoff)).Build()).Error()
}

// StartIdentityTicker keeps this instance listed in the identity set. It blocks.
func (r *RueidisCache) StartIdentityTicker(id string) {
	refresh := func() {
		if err := r.RegisterPlatform(id); err != nil {
			zap.L().Error("Failed to register platform", zap.String("platform", id), zap.Error(err))
		}
		if err := r.DeleteInactivePlatform(); err != nil {
			zap.L().Error("Failed to prune inactive platforms", zap.Error(err))
		}
	}

	refresh()
	ticker := time.NewTicker(time.Duration(configuration.CacheMaxAppIdentityLifetime) * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		refresh()
	}
}

// GetRateLimit counts a request for the identifier and returns the seconds to wait
// when the per-minute budget is exhausted, 0 otherwise.
func (r *RueidisCache) GetRateLimit(identifier string, requestsPerMinute int) (int, error) {
	ctx := context.Background()

	key := fmt.Sprintf(configuration.CacheAppRateLimitKey, identifier)
	count, err := r.client.Do(ctx, r.client.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err = r.client.Do(ctx, r.client.B().Expire().Key(key).Seconds(60).Build()).Error(); err != nil {
			return 0, err
		}
	}

	if int(count) <= requestsPerMinute {
		return 0, nil
	}

	retryAfter, err := r.client.Do(ctx, r.client.B().Ttl().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, err
	}
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(retryAfter), nil
}

// TryAcquireLock takes a lock with SET NX EX. It returns false when another
// instance holds it.
func (r *RueidisCache) TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error) {
	ctx := context.Background()
	err := r.client.Do(ctx,
		r.client.B().Set().Key(key).Value(instanceID).Nx().Ex(time.Duration(ttlSeconds)*time.Second).Build(),
	).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RefreshLock extends a lock this instance still holds.
func (r *RueidisCache) RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error) {
	ctx := context.Background()
	current, err := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).ToString()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current != instanceID {
		return false, nil
	}

	err = r.client.Do(ctx, r.client.B().Expire().Key(key).Seconds(int64(ttlSeconds)).Build()).Error()
	return err == nil, err
}

func (r *RueidisCache) MarkTOTPCodeUsed(userID string, code string) (bool, error) {
	ctx := context.Background()
	key := fmt.Sprintf(configuration.CacheTOTPUsedKey, userID, code)

	err := r.client.Do(ctx,
		r.client.B().Set().Key(key).Value("1").Nx().ExSeconds(int64(configuration.TOTPCodeTTL)).Build(),
	).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RueidisCache) GetMFAAttempts(userID string) (int, error) {
	ctx := context.Background()
	key := fmt.Sprintf(configuration.CacheMFAAttemptsKey, userID)

	count, err := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).AsInt64()
	if rueidis.IsRedisNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// IncrementMFAAttempts bumps the failure counter and restarts the lockout window.
func (r *RueidisCache) IncrementMFAAttempts(userID string) error {
	ctx := context.Background()
	key := fmt.Sprintf(configuration.CacheMFAAttemptsKey, userID)

	results := r.client.DoMulti(ctx,
		r.client.B().Incr().Key(key).Build(),
		r.client.B().Expire().Key(key).Seconds(int64(configuration.MFALockoutSeconds)).Build(),
	)
	for _, result := range results {
		if err := result.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (r *RueidisCache) ResetMFAAttempts(userID string) error {
	ctx := context.Background()
	key := fmt.Sprintf(configuration.CacheMFAAttemptsKey, userID)
	return r.client.Do(ctx, r.client.B().Del().Key(key).Build()).Error()
}

func (r *RueidisCache) RevokeSession(tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx := context.Background()
	key := fmt.Sprintf(configuration.CacheRevokedSessionKey, tokenID)
	return r.client.Do(ctx, r.client.B().Set().Key(key).Value("1").Ex(ttl).Build()).Error()
}

func (r *RueidisCache) IsSessionRevoked(tokenID string) (bool, error) {
	ctx := context.Background()
	key := fmt.Sprintf(configuration.CacheRevokedSessionKey, tokenID)

	exists, err := r.client.Do(ctx, r.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (r *RueidisCache) Close() error {
	r.client.Close()
	return nil
}
