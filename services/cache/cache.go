package cache

import (
	"time"
)

// CacheService is the generic cache the rate-limit guard stores its
// cross-run block markers in. A marker present under a key means the
// origin blocked us recently and should not be contacted again until
// the marker expires.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
