package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	blocked := NewBlocked("session", "status 429", nil)
	assert.True(t, IsBlocked(blocked))
	assert.True(t, blocked.IsRetryable())

	network := NewNetwork("session", "connection reset", nil)
	assert.True(t, network.IsRetryable())
	assert.True(t, IsType(network, ErrorTypeNetwork))

	notFound := NewNotFound("extractor", "status 404")
	assert.True(t, IsNotFound(notFound))
	assert.False(t, notFound.IsRetryable())

	parse := NewParse("extractor", "bad json", nil)
	assert.False(t, parse.IsRetryable())

	cfg := NewConfiguration("SELLER_URL is required", nil)
	assert.True(t, IsType(cfg, ErrorTypeConfiguration))
	assert.False(t, cfg.IsRetryable())
}

func TestErrorUnwrap(t *testing.T) {
	cause := stderrors.New("tcp reset")
	err := NewNetwork("session", "fetch failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "fetch failed")
	assert.Contains(t, err.Error(), "tcp reset")
}

// AsSyncError must see through standard wrapping.
func TestAsSyncError(t *testing.T) {
	inner := NewBlocked("session", "status 403", nil)
	wrapped := fmt.Errorf("during discovery: %w", inner)

	se, ok := AsSyncError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeBlocked, se.Type)

	_, ok = AsSyncError(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestExhaustedDiscovery(t *testing.T) {
	err := NewExhaustedDiscovery("discovery", 60)
	assert.True(t, IsType(err, ErrorTypeExhaustedDiscovery))
	assert.Contains(t, err.Error(), "60")
}
