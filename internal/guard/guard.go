package guard

import (
	"context"
	"fmt"
	mathrand "math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/pkg/errors"
	"github.com/anaviationstore/listingsync/services/cache"
)

// blockPhrases are page/body fragments marketplaces serve when they
// throttle or challenge automated traffic. The list is a best-effort
// heuristic across locales, not exhaustive.
var blockPhrases = []string{
	"robot check",
	"verify you are a human",
	"are you a human",
	"unusual traffic",
	"too many requests",
	"rate limited",
	"access denied",
	"captcha",
	"comprueba que eres humano",
	"demasiadas solicitudes",
	"trafic inhabituel",
	"zu viele anfragen",
}

// IsBlockedContent reports whether page text carries a block signal.
func IsBlockedContent(text string) bool {
	t := strings.ToLower(text)
	for _, phrase := range blockPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}

// ClassifyStatus maps an HTTP status code onto the error taxonomy.
// A nil return means the response is usable.
func ClassifyStatus(component string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return errors.NewNotFound(component, fmt.Sprintf("status %d", status))
	case status == http.StatusTooManyRequests || status == http.StatusForbidden || status >= 500 || status == 430:
		return errors.NewBlocked(component, fmt.Sprintf("status %d", status), nil)
	default:
		return errors.NewNetwork(component, fmt.Sprintf("unexpected status %d", status), nil)
	}
}

// Guard wraps network operations with block detection, exponential
// backoff and a bounded retry budget. Exhausting the budget surfaces the
// last error so the caller can degrade to a stub result instead of
// aborting the run.
type Guard struct {
	Component  string
	MaxRetries int
	Base       time.Duration
	Factor     float64
	Cap        time.Duration

	// CacheSvc, when set, holds a cross-run block marker so consecutive
	// runs honor an active block without re-probing the origin.
	CacheSvc  cache.CacheService
	CacheKey  string
	BlockTime time.Duration

	log *logger.Logger
	rnd *mathrand.Rand
}

// New creates a guard with the given retry budget and backoff shape.
func New(component string, maxRetries int, base time.Duration, factor float64, capWait time.Duration) *Guard {
	return &Guard{
		Component:  component,
		MaxRetries: maxRetries,
		Base:       base,
		Factor:     factor,
		Cap:        capWait,
		log:        logger.ForGuard(),
		rnd:        mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// WithBlockCache attaches a memcache-backed block marker.
func (g *Guard) WithBlockCache(svc cache.CacheService, key string, blockTime time.Duration) *Guard {
	g.CacheSvc = svc
	g.CacheKey = key
	g.BlockTime = blockTime
	return g
}

// Backoff computes the deterministic wait before retry number attempt
// (1-based). Consecutive attempts produce non-decreasing waits, bounded
// by Cap.
func (g *Guard) Backoff(attempt int) time.Duration {
	wait := float64(g.Base)
	for i := 1; i < attempt; i++ {
		wait *= g.Factor
	}
	if capped := float64(g.Cap); g.Cap > 0 && wait > capped {
		wait = capped
	}
	return time.Duration(wait)
}

// jitter returns a bounded random addition to a computed wait, avoiding
// synchronized retry storms. The bound is 2s, or Base when that is
// smaller.
func (g *Guard) jitter() time.Duration {
	limit := 2 * time.Second
	if g.Base < limit {
		limit = g.Base
	}
	if limit <= 0 {
		return 0
	}
	return time.Duration(g.rnd.Int63n(int64(limit)))
}

// Blocked reports whether the origin has an active block marker.
func (g *Guard) Blocked() bool {
	if g.CacheSvc == nil || g.CacheKey == "" {
		return false
	}
	_, err := g.CacheSvc.Get(g.CacheKey)
	return err == nil
}

// MarkBlocked records a block marker for the configured block window.
func (g *Guard) MarkBlocked() {
	if g.CacheSvc == nil || g.CacheKey == "" {
		return
	}
	value := []byte(fmt.Sprintf("%d", g.BlockTime/time.Second))
	if err := g.CacheSvc.Set(g.CacheKey, value, g.BlockTime); err != nil {
		g.log.Warn().Err(err).Str("key", g.CacheKey).Msg("failed to set block marker")
	}
}

// Do runs op, retrying retryable failures with backoff until the retry
// budget is exhausted. The last error is returned for the caller to
// degrade on; non-retryable errors return immediately.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if g.Blocked() {
		return errors.NewBlocked(g.Component, "origin has an active block marker", nil)
	}

	var lastErr error
	for attempt := 1; attempt <= g.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		se, ok := errors.AsSyncError(err)
		if !ok || !se.IsRetryable() {
			return err
		}
		if errors.IsBlocked(err) {
			g.MarkBlocked()
		}
		if attempt == g.MaxRetries {
			break
		}

		wait := g.Backoff(attempt) + g.jitter()
		g.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Str("component", g.Component).
			Msg("retrying after backoff")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
