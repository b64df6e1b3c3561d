package pipeline

import (
	"context"
	mathrand "math/rand"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/anaviationstore/listingsync/config"
	"github.com/anaviationstore/listingsync/helpers"
	"github.com/anaviationstore/listingsync/internal/extract"
	"github.com/anaviationstore/listingsync/internal/fetch"
	"github.com/anaviationstore/listingsync/internal/guard"
	"github.com/anaviationstore/listingsync/internal/listing"
	"github.com/anaviationstore/listingsync/internal/normalize"
	"github.com/anaviationstore/listingsync/internal/scan"
	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/pkg/errors"
	"github.com/anaviationstore/listingsync/services/cache"
	syncsvc "github.com/anaviationstore/listingsync/services/sync"
)

// Summary is the outcome of one seller run
type Summary struct {
	RunID      string
	SellerName string
	Discovered int
	Written    int
	Stubs      int
}

// Pipeline sequences one seller run: acquire session, discover listing
// URLs, extract each listing with human-like pacing, normalize and
// flush to the sync target in bounded batches. Execution is strictly
// sequential; one warmed session carries the whole run and is closed on
// every exit path.
type Pipeline struct {
	cfg      *config.Config
	target   syncsvc.Target
	cacheSvc cache.CacheService

	// capability, when preset, skips session acquisition
	capability fetch.Capability

	log *logger.Logger
	rnd *mathrand.Rand
	now func() time.Time
}

// New creates a pipeline writing to the given sync target
func New(cfg *config.Config, target syncsvc.Target) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		target: target,
		log:    logger.ForPipeline(),
		rnd:    mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// WithCache attaches the block-marker cache shared across runs
func (p *Pipeline) WithCache(svc cache.CacheService) *Pipeline {
	p.cacheSvc = svc
	return p
}

// WithCapability presets the fetch capability instead of acquiring one
func (p *Pipeline) WithCapability(capability fetch.Capability) *Pipeline {
	p.capability = capability
	return p
}

// Run executes one full seller sync
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.New().String()}
	log := p.log.WithField("run_id", summary.RunID)

	capability, err := p.acquire(ctx)
	if err != nil {
		return summary, err
	}
	defer func() {
		if cerr := capability.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("session close failed")
		}
	}()

	// Declaring headers up front also proves the target is reachable
	// before any crawling happens
	if err := p.target.WriteHeaders(ctx, listing.Columns()); err != nil {
		return summary, err
	}

	result, err := p.discover(ctx, capability)
	if err != nil && !errors.IsType(err, errors.ErrorTypeExhaustedDiscovery) {
		return summary, err
	}
	if err != nil {
		// The hard iteration cap still yields a usable partial set
		log.Warn().Err(err).Int("urls", len(result.URLs)).Msg("discovery hit the iteration cap")
	}
	summary.SellerName = result.SellerName
	summary.Discovered = len(result.URLs)
	log.Info().
		Str("seller", result.SellerName).
		Int("urls", len(result.URLs)).
		Msg("discovery finished")

	seller := normalize.Seller{Name: result.SellerName, URL: result.SellerURL}
	itemGuard := p.newGuard("extractor")
	extractor := extract.New(capability, itemGuard, extract.Options{
		DomainHint: p.cfg.DomainHint,
	})

	batch := make([][]string, 0, p.cfg.BatchSize)
	for i, pageURL := range result.URLs {
		record := p.extractOne(ctx, extractor, pageURL, seller)
		if record.IsStub() {
			summary.Stubs++
		}
		batch = append(batch, record.Row())

		if len(batch) >= p.cfg.BatchSize {
			if err := p.target.WriteRows(ctx, batch); err != nil {
				return summary, err
			}
			summary.Written += len(batch)
			batch = batch[:0]
		}

		if i == len(result.URLs)-1 {
			break
		}
		if err := p.pace(ctx, i+1); err != nil {
			return summary, err
		}
	}

	if len(batch) > 0 {
		if err := p.target.WriteRows(ctx, batch); err != nil {
			return summary, err
		}
		summary.Written += len(batch)
	}

	log.Info().
		Int("written", summary.Written).
		Int("stubs", summary.Stubs).
		Msg("run finished")
	return summary, nil
}

// acquire opens the configured fetch capability unless one was preset
func (p *Pipeline) acquire(ctx context.Context) (fetch.Capability, error) {
	if p.capability != nil {
		return p.capability, nil
	}
	origin := p.cfg.MarketplaceOrigin
	if origin == "" {
		origin = originOf(p.cfg.SellerURL)
	}
	if p.cfg.FetchMode == "browser" {
		return fetch.AcquireBrowser(ctx, origin, fetch.DefaultBrowserOptions(p.cfg.Locale))
	}
	return fetch.AcquireHTTP(ctx, origin)
}

// discover enumerates the seller's listing URLs, preferring the paged
// JSON API when a numeric seller id is configured and falling back to
// DOM discovery when the API yields nothing.
func (p *Pipeline) discover(ctx context.Context, capability fetch.Capability) (scan.Result, error) {
	opts := scan.DefaultOptions()
	opts.Mode = scan.ParseMode(p.cfg.DiscoveryMode)
	opts.StableRounds = p.cfg.StableRounds
	opts.MaxIterations = p.cfg.MaxDiscoveryIters
	opts.ScrollDelay = p.cfg.ScrollDelay
	scanner := scan.New(capability, p.newGuard("discovery"), opts)

	indexURL := scan.IndexURL(p.cfg.SellerURL, p.cfg.SellerID, capability.Origin())

	if p.cfg.SellerID != "" {
		urls, err := scanner.DiscoverAPI(ctx, p.cfg.SellerID)
		if err == nil && len(urls) > 0 {
			// API discovery never renders the profile page; read the
			// display name off it so records match the DOM path.
			return scan.Result{
				SellerName: scanner.ProfileName(ctx, indexURL),
				SellerURL:  helpers.StripQuery(indexURL),
				URLs:       urls,
			}, nil
		}
		if err != nil {
			p.log.Debug().Err(err).Msg("api discovery unavailable, falling back to dom")
		}
	}

	return scanner.Discover(ctx, indexURL)
}

// extractOne runs the strategy chain for one URL. Extraction failures
// never abort the run; a listing that yields nothing becomes a stub row
// carrying its id and url.
func (p *Pipeline) extractOne(ctx context.Context, extractor *extract.Extractor, pageURL string, seller normalize.Seller) listing.Record {
	partial := extractor.Extract(ctx, pageURL)
	if partial.Title == "" {
		return normalize.Stub(partial.ID, partial.URL, seller, p.now())
	}
	return normalize.Finalize(partial, seller, pageURL, p.cfg.DomainHint, p.now())
}

// pace sleeps the randomized per-item delay, plus the longer batch
// pause every BatchPauseEvery items. These sleeps and the guard's
// backoff waits are the run's only suspension points.
func (p *Pipeline) pace(ctx context.Context, itemsDone int) error {
	wait := randomBetween(p.rnd, p.cfg.ItemDelayMin, p.cfg.ItemDelayMax)
	if p.cfg.BatchPauseEvery > 0 && itemsDone%p.cfg.BatchPauseEvery == 0 {
		pause := randomBetween(p.rnd, p.cfg.BatchPauseMin, p.cfg.BatchPauseMax)
		p.log.Debug().Dur("pause", pause).Int("items", itemsDone).Msg("batch pause")
		wait += pause
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (p *Pipeline) newGuard(component string) *guard.Guard {
	gd := guard.New(component, p.cfg.MaxRetries, p.cfg.BackoffBase, p.cfg.BackoffFactor, p.cfg.BackoffCap)
	if p.cacheSvc != nil {
		gd = gd.WithBlockCache(p.cacheSvc, "blocked:"+component, p.cfg.BlockTime)
	}
	return gd
}

func randomBetween(rnd *mathrand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rnd.Int63n(int64(max-min)))
}

// originOf reduces a full URL to its scheme://host origin
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
