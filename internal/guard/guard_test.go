package guard

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anaviationstore/listingsync/pkg/errors"
)

// memoryCache implements cache.CacheService in memory for tests
type memoryCache struct {
	store map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: make(map[string][]byte)}
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	if v, ok := m.store[key]; ok {
		return v, nil
	}
	return nil, &missError{}
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.store[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	delete(m.store, key)
	return nil
}

type missError struct{}

func (e *missError) Error() string { return "cache miss" }

func TestBackoffMonotonicAndCapped(t *testing.T) {
	g := New("test", 5, 3*time.Second, 2.0, 20*time.Second)

	assert.Equal(t, 3*time.Second, g.Backoff(1))
	assert.Equal(t, 6*time.Second, g.Backoff(2))
	assert.Equal(t, 12*time.Second, g.Backoff(3))
	assert.Equal(t, 20*time.Second, g.Backoff(4))
	assert.Equal(t, 20*time.Second, g.Backoff(5))

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		wait := g.Backoff(attempt)
		assert.GreaterOrEqual(t, wait, prev)
		prev = wait
	}
}

func TestDoRetriesUntilExhausted(t *testing.T) {
	g := New("test", 3, time.Millisecond, 2.0, 5*time.Millisecond)

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.NewNetwork("test", "connection reset", nil)
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
}

func TestDoNonRetryableReturnsImmediately(t *testing.T) {
	g := New("test", 3, time.Millisecond, 2.0, 5*time.Millisecond)

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.NewParse("test", "bad json", nil)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	g := New("test", 3, time.Millisecond, 2.0, 5*time.Millisecond)

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.NewNetwork("test", "flaky", nil)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// An existing block marker means no request is issued at all.
func TestDoHonorsExistingBlockMarker(t *testing.T) {
	mc := newMemoryCache()
	mc.Set("blocked:test", []byte("300"), 0)

	g := New("test", 3, time.Millisecond, 2.0, 5*time.Millisecond).
		WithBlockCache(mc, "blocked:test", 5*time.Minute)

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.Error(t, err)
	assert.True(t, errors.IsBlocked(err))
	assert.Equal(t, 0, calls)
}

func TestDoSetsBlockMarkerOnBlock(t *testing.T) {
	mc := newMemoryCache()
	g := New("test", 2, time.Millisecond, 2.0, 5*time.Millisecond).
		WithBlockCache(mc, "blocked:test", 5*time.Minute)

	err := g.Do(context.Background(), func(ctx context.Context) error {
		return errors.NewBlocked("test", "status 429", nil)
	})

	assert.Error(t, err)
	_, cacheErr := mc.Get("blocked:test")
	assert.NoError(t, cacheErr)
}

func TestDoContextCancellation(t *testing.T) {
	g := New("test", 5, time.Second, 2.0, 20*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Do(ctx, func(ctx context.Context) error {
		return errors.NewNetwork("test", "timeout", nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyStatus(t *testing.T) {
	assert.NoError(t, ClassifyStatus("test", http.StatusOK))
	assert.NoError(t, ClassifyStatus("test", http.StatusNoContent))

	assert.True(t, errors.IsNotFound(ClassifyStatus("test", http.StatusNotFound)))
	assert.True(t, errors.IsNotFound(ClassifyStatus("test", http.StatusGone)))

	assert.True(t, errors.IsBlocked(ClassifyStatus("test", http.StatusTooManyRequests)))
	assert.True(t, errors.IsBlocked(ClassifyStatus("test", http.StatusForbidden)))
	assert.True(t, errors.IsBlocked(ClassifyStatus("test", 430)))
	assert.True(t, errors.IsBlocked(ClassifyStatus("test", http.StatusBadGateway)))

	assert.True(t, errors.IsType(ClassifyStatus("test", http.StatusTeapot), errors.ErrorTypeNetwork))
}

func TestIsBlockedContent(t *testing.T) {
	assert.True(t, IsBlockedContent("Robot Check - please verify"))
	assert.True(t, IsBlockedContent("We detected unusual traffic from your network"))
	assert.True(t, IsBlockedContent("Comprueba que eres humano"))
	assert.False(t, IsBlockedContent("Blue wool coat, size M"))
}
