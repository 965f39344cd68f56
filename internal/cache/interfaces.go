package cache

import "time"

type ICache interface {
	RegisterPlatform(id string) error
	DeleteInactivePlatform() error
	StartIdentityTicker(id string)

	GetRateLimit(identifier string, requestsPerMinute int) (int, error)

	TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error)
	RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error)

	// MarkTOTPCodeUsed records a code for the user and reports false when it was
	// already recorded within configuration.TOTPCodeTTL.
	MarkTOTPCodeUsed(userID string, code string) (bool, error)

	GetMFAAttempts(userID string) (int, error)
	IncrementMFAAttempts(userID string) error
	ResetMFAAttempts(userID string) error

	// RevokeSession blocks a session token id until its natural expiry.
	RevokeSession(tokenID string, ttl time.Duration) error
	IsSessionRevoked(tokenID string) (bool, error)

	Close() error
}
