package tests

import (
	"sync"
	"time"

	"github.com/rentdesk/rentdesk/internal/cache"
)

// MemoryCache is an in-process cache.ICache for tests. Setting Err makes every
// call fail with it.
type MemoryCache struct {
	mu        sync.Mutex
	Err       error
	Requests  map[string]int
	Locks     map[string]string
	UsedCodes map[string]bool
	Attempts  map[string]int
	Revoked   map[string]time.Duration
}

var _ cache.ICache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		Requests:  map[string]int{},
		Locks:     map[string]string{},
		UsedCodes: map[string]bool{},
		Attempts:  map[string]int{},
		Revoked:   map[string]time.Duration{},
	}
}

func (c *MemoryCache) RegisterPlatform(_ string) error { return c.Err }
func (c *MemoryCache) DeleteInactivePlatform() error   { return c.Err }
func (c *MemoryCache) StartIdentityTicker(_ string)    {}
func (c *MemoryCache) Close() error                    { return nil }

// GetRateLimit never resets its window: tests only need the limit to trip.
func (c *MemoryCache) GetRateLimit(identifier string, requestsPerMinute int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}

	c.Requests[identifier]++
	if c.Requests[identifier] > requestsPerMinute {
		return 60, nil
	}
	return 0, nil
}

func (c *MemoryCache) TryAcquireLock(key string, instanceID string, _ int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}

	if owner, ok := c.Locks[key]; ok && owner != instanceID {
		return false, nil
	}
	c.Locks[key] = instanceID
	return true, nil
}

func (c *MemoryCache) RefreshLock(key string, instanceID string, _ int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	return c.Locks[key] == instanceID, nil
}

func (c *MemoryCache) MarkTOTPCodeUsed(userID string, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}

	key := userID + ":" + code
	if c.UsedCodes[key] {
		return false, nil
	}
	c.UsedCodes[key] = true
	return true, nil
}

func (c *MemoryCache) GetMFAAttempts(userID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Attempts[userID], nil
}

func (c *MemoryCache) IncrementMFAAttempts(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Attempts[userID]++
	return nil
}

func (c *MemoryCache) ResetMFAAttempts(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	delete(c.Attempts, userID)
	return nil
}

func (c *MemoryCache) RevokeSession(tokenID string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	if ttl > 0 {
		c.Revoked[tokenID] = ttl
	}
	return nil
}

func (c *MemoryCache) IsSessionRevoked(tokenID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	_, ok := c.Revoked[tokenID]
	return ok, nil
}
