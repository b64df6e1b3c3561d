package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anaviationstore/listingsync/helpers"
	"github.com/anaviationstore/listingsync/internal/fetch"
	"github.com/anaviationstore/listingsync/internal/guard"
	"github.com/anaviationstore/listingsync/internal/listing"
	"github.com/anaviationstore/listingsync/logger"
)

// listingIDPatterns derive the numeric listing identifier out of a
// canonical URL when no strategy supplied an explicit id/sku.
var listingIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/listing/(\d+)`),
	regexp.MustCompile(`/items?/(\d+)`),
	regexp.MustCompile(`/product[o]?/(\d+)`),
	regexp.MustCompile(`-(\d{5,})$`),
}

// Options tunes the extractor
type Options struct {
	// DomainHint feeds the price normalizer's currency fallback
	DomainHint string

	// Labels overrides the locale-specific attribute label tables
	Labels *LabelTable

	// MaxTextNodes bounds the generic text-node scan of the DOM
	// heuristics strategy
	MaxTextNodes int
}

// strategy is one ordered extraction attempt producing a typed partial
type strategy struct {
	name string
	run  func(ctx context.Context) (listing.Partial, error)
}

// Extractor produces the richest available record for one listing URL
// using a strictly ordered strategy chain: structured API, embedded
// structured data, page metadata, then DOM heuristics.
type Extractor struct {
	cap  fetch.Capability
	gd   *guard.Guard
	opts Options
	log  *logger.Logger
}

// New creates an extractor over a warmed-up fetch capability
func New(capability fetch.Capability, gd *guard.Guard, opts Options) *Extractor {
	if opts.Labels == nil {
		opts.Labels = DefaultLabels()
	}
	if opts.MaxTextNodes <= 0 {
		opts.MaxTextNodes = 250
	}
	return &Extractor{
		cap:  capability,
		gd:   gd,
		opts: opts,
		log:  logger.ForExtractor(),
	}
}

// Extract runs the strategy chain for one listing URL. Failures local
// to one strategy cascade to the next; the worst case is a stub partial
// carrying only the derived id and the canonical url.
func (e *Extractor) Extract(ctx context.Context, pageURL string) listing.Partial {
	canonical := helpers.StripQuery(pageURL)

	// The three page-based strategies share one guarded navigation
	var doc *goquery.Document
	page := func(ctx context.Context) (*goquery.Document, error) {
		if doc != nil {
			return doc, nil
		}
		err := e.gd.Do(ctx, func(ctx context.Context) error {
			var ferr error
			doc, ferr = e.cap.Navigate(ctx, pageURL)
			return ferr
		})
		return doc, err
	}

	strategies := []strategy{
		{name: "api", run: func(ctx context.Context) (listing.Partial, error) {
			return e.fromAPI(ctx, canonical)
		}},
		{name: "jsonld", run: func(ctx context.Context) (listing.Partial, error) {
			d, err := page(ctx)
			if err != nil {
				return listing.Partial{}, err
			}
			return e.fromJSONLD(d), nil
		}},
		{name: "meta", run: func(ctx context.Context) (listing.Partial, error) {
			d, err := page(ctx)
			if err != nil {
				return listing.Partial{}, err
			}
			return e.fromMeta(d), nil
		}},
		{name: "dom", run: func(ctx context.Context) (listing.Partial, error) {
			d, err := page(ctx)
			if err != nil {
				return listing.Partial{}, err
			}
			return e.fromDOM(d), nil
		}},
	}

	var merged listing.Partial
	for _, st := range strategies {
		if merged.Title != "" {
			break
		}
		partial, err := st.run(ctx)
		if err != nil {
			e.log.Debug().
				Err(err).
				Str("strategy", st.name).
				Str("url", canonical).
				Msg("strategy yielded nothing")
			continue
		}
		merged.Merge(partial)
	}

	if merged.URL == "" {
		merged.URL = canonical
	} else {
		merged.URL = helpers.StripQuery(merged.URL)
	}
	if merged.ID == "" {
		merged.ID = DeriveID(canonical)
	}
	return merged
}

var leadingDigits = regexp.MustCompile(`^(\d+)`)

// DeriveID pattern-matches the listing identifier out of a canonical
// URL, falling back to the last path segment.
func DeriveID(canonicalURL string) string {
	trimmed := strings.TrimSuffix(helpers.StripQuery(canonicalURL), "/")
	for _, re := range listingIDPatterns {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			return m[1]
		}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return ""
	}
	// A leading digit run is the id for slugged URLs like /item/123-blue-coat
	if m := leadingDigits.FindStringSubmatch(last); m != nil {
		return m[1]
	}
	return last
}
