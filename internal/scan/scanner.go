package scan

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/anaviationstore/listingsync/helpers"
	"github.com/anaviationstore/listingsync/internal/fetch"
	"github.com/anaviationstore/listingsync/internal/guard"
	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/pkg/errors"
)

// Default selector sets. Marketplaces serve different DOM shapes per
// layout; each list is tried in order until one matches.
var (
	defaultAnchorSelectors = []string{
		"a[data-listing-id]",
		"a[href*='/listing/']",
		"a[href*='/item/']",
		"a[href*='/items/']",
		"a[href*='/product/']",
		"a[href*='/producto/']",
	}

	defaultNameSelectors = []string{
		"h1[data-ui='shop-name']",
		"h1[data-shop-home-title]",
		"[data-e2e='user-name']",
		".user__name",
		"h1",
	}

	defaultNextPageSelectors = []string{
		"a[aria-label*='Next']",
		"a[aria-label*='Siguiente']",
		"a[rel='next']",
	}

	defaultListingPattern = regexp.MustCompile(`/(listing|items?|product|producto)/`)
)

// Mode selects how the seller index is walked. A marketplace's UI, not
// the fetch capability, determines whether listings arrive through
// classic pagination or infinite scroll; a browser session can do both.
type Mode int

const (
	// ModeAuto scrolls when the capability supports it, trying page=N
	// navigation once scrolling stops yielding new listings
	ModeAuto Mode = iota
	// ModePaged forces page=N navigation even on a browser session
	ModePaged
	// ModeScroll forces scrolling; falls back to paging when the
	// capability cannot scroll
	ModeScroll
)

// ParseMode maps a configuration string onto a discovery mode
func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "pages":
		return ModePaged
	case "scroll":
		return ModeScroll
	default:
		return ModeAuto
	}
}

// Options tunes one discovery pass
type Options struct {
	AnchorSelectors   []string
	NameSelectors     []string
	NextPageSelectors []string
	ListingPattern    *regexp.Regexp
	Mode              Mode
	StableRounds      int
	MaxIterations     int
	ScrollDelay       time.Duration
}

// DefaultOptions returns the discovery tuning used for marketplace runs
func DefaultOptions() Options {
	return Options{
		AnchorSelectors:   defaultAnchorSelectors,
		NameSelectors:     defaultNameSelectors,
		NextPageSelectors: defaultNextPageSelectors,
		ListingPattern:    defaultListingPattern,
		StableRounds:      3,
		MaxIterations:     60,
		ScrollDelay:       700 * time.Millisecond,
	}
}

// Result is the outcome of one discovery pass: the seller identity and
// the deduplicated listing URL set in deterministic sorted order.
type Result struct {
	SellerName string
	SellerURL  string
	URLs       []string
	Exhausted  bool
}

// Scanner enumerates every listing belonging to one seller, through
// classic pagination or infinite scroll depending on the capability.
type Scanner struct {
	cap  fetch.Capability
	gd   *guard.Guard
	opts Options
	log  *logger.Logger
}

// New creates a scanner over a warmed-up fetch capability
func New(capability fetch.Capability, gd *guard.Guard, opts Options) *Scanner {
	if opts.StableRounds <= 0 {
		opts.StableRounds = 3
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 60
	}
	if opts.ListingPattern == nil {
		opts.ListingPattern = defaultListingPattern
	}
	if len(opts.AnchorSelectors) == 0 {
		opts.AnchorSelectors = defaultAnchorSelectors
	}
	if len(opts.NameSelectors) == 0 {
		opts.NameSelectors = defaultNameSelectors
	}
	if len(opts.NextPageSelectors) == 0 {
		opts.NextPageSelectors = defaultNextPageSelectors
	}
	return &Scanner{
		cap:  capability,
		gd:   gd,
		opts: opts,
		log:  logger.ForDiscovery(),
	}
}

// IndexURL normalizes seller input into a canonical index URL with
// deterministic newest-first ordering.
func IndexURL(sellerURL, sellerID, origin string) string {
	base := sellerURL
	if base == "" {
		base = origin + "/member/" + sellerID
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "order=newest_first"
}

// Discover walks the seller index and returns the deduplicated URL set.
// Hitting the hard iteration cap is non-fatal: the partial result is
// returned together with an exhausted-discovery error for logging.
func (s *Scanner) Discover(ctx context.Context, indexURL string) (Result, error) {
	res := Result{SellerURL: helpers.StripQuery(indexURL)}
	seen := make(map[string]bool)

	scroller, canScroll := s.cap.(fetch.Scroller)
	scrolls := canScroll && s.opts.Mode != ModePaged

	stable := 0
	page := 1
	triedPaging := false
	var doc *goquery.Document
	for iter := 1; iter <= s.opts.MaxIterations; iter++ {
		var err error
		if scrolls && iter > 1 {
			doc, err = s.scrollStep(ctx, scroller, doc)
		} else {
			doc, err = s.navigate(ctx, pageURL(indexURL, page))
			page++
		}
		if err != nil {
			// A failed iteration counts as an empty round; discovery
			// keeps going on whatever was collected so far
			s.log.Warn().Err(err).Int("iteration", iter).Msg("discovery iteration failed")
			stable++
			if stable >= s.opts.StableRounds {
				break
			}
			continue
		}

		if iter == 1 {
			res.SellerName = s.sellerName(doc)
		}

		added := s.collectAnchors(doc, seen)
		s.log.Debug().
			Int("iteration", iter).
			Int("added", added).
			Int("total", len(seen)).
			Msg("discovery iteration")

		// First page with zero listings: many marketplaces serve a
		// different DOM shape depending on the exact URL form
		if iter == 1 && len(seen) == 0 {
			variantDoc := s.tryVariants(ctx, indexURL, seen)
			if variantDoc != nil {
				doc = variantDoc
				if res.SellerName == "" {
					res.SellerName = s.sellerName(doc)
				}
			}
		}

		// Scrolling yielding nothing does not prove the index is done:
		// the shop may use classic pagination. Try page=N once and
		// switch over when it produces new listings.
		if added == 0 && scrolls && s.opts.Mode == ModeAuto && !triedPaging {
			triedPaging = true
			if pagedDoc, perr := s.navigate(ctx, pageURL(indexURL, page)); perr == nil {
				if pagedAdded := s.collectAnchors(pagedDoc, seen); pagedAdded > 0 {
					s.log.Info().Int("page", page).Msg("index paginates, switching from scroll to pages")
					scrolls = false
					doc = pagedDoc
					added = pagedAdded
					page++
				}
			}
		}

		if added == 0 {
			stable++
		} else {
			stable = 0
		}

		if stable >= s.opts.StableRounds {
			break
		}
		if !scrolls && added == 0 && !s.hasNextPage(doc) {
			break
		}

		select {
		case <-ctx.Done():
			res.URLs = sortedKeys(seen)
			return res, ctx.Err()
		case <-time.After(s.opts.ScrollDelay):
		}

		if iter == s.opts.MaxIterations {
			res.Exhausted = true
		}
	}

	res.URLs = sortedKeys(seen)
	if res.Exhausted {
		return res, errors.NewExhaustedDiscovery("discovery", s.opts.MaxIterations)
	}
	return res, nil
}

// scrollStep scrolls in place and re-reads the rendered DOM so lazily
// loaded content accumulates instead of being reloaded.
func (s *Scanner) scrollStep(ctx context.Context, scroller fetch.Scroller, prev *goquery.Document) (*goquery.Document, error) {
	if err := scroller.ScrollToBottom(ctx); err != nil {
		return prev, err
	}
	doc, err := scroller.Document(ctx)
	if err != nil {
		return prev, err
	}
	return doc, nil
}

// navigate loads one index page through the guard
func (s *Scanner) navigate(ctx context.Context, target string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := s.gd.Do(ctx, func(ctx context.Context) error {
		var ferr error
		doc, ferr = s.cap.Navigate(ctx, target)
		return ferr
	})
	return doc, err
}

// ProfileName reads the seller display name off the index page,
// best-effort. Used when discovery went through the JSON API and never
// rendered the profile.
func (s *Scanner) ProfileName(ctx context.Context, indexURL string) string {
	doc, err := s.navigate(ctx, indexURL)
	if err != nil {
		s.log.Debug().Err(err).Msg("profile name lookup failed")
		return ""
	}
	return s.sellerName(doc)
}

// collectAnchors adds unseen canonical listing URLs from doc to seen
// and returns how many were new.
func (s *Scanner) collectAnchors(doc *goquery.Document, seen map[string]bool) int {
	if doc == nil {
		return 0
	}
	added := 0
	for _, sel := range s.opts.AnchorSelectors {
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || href == "" {
				return
			}
			canonical := s.canonicalize(href)
			if canonical == "" || seen[canonical] {
				return
			}
			seen[canonical] = true
			added++
		})
	}
	return added
}

// canonicalize resolves a href against the origin and strips the query
// string, returning "" when it does not look like a listing URL.
func (s *Scanner) canonicalize(href string) string {
	href = strings.TrimSpace(href)
	full := href
	if !strings.HasPrefix(href, "http") {
		if strings.HasPrefix(href, "/") {
			full = s.cap.Origin() + href
		} else {
			full = s.cap.Origin() + "/" + href
		}
	}
	full = helpers.StripQuery(full)
	if u, err := url.Parse(full); err != nil || u.Host == "" {
		return ""
	}
	if !s.opts.ListingPattern.MatchString(full) {
		return ""
	}
	return full
}

// tryVariants walks known alternate index-URL shapes before concluding
// the seller has no listings.
func (s *Scanner) tryVariants(ctx context.Context, indexURL string, seen map[string]bool) *goquery.Document {
	base := helpers.StripQuery(indexURL)
	variants := []string{
		strings.TrimSuffix(base, "/"),
		strings.TrimSuffix(base, "/") + "/",
		strings.TrimSuffix(base, "/") + "?ref=seller-platform-mcnav",
	}
	for _, variant := range variants {
		if variant == indexURL {
			continue
		}
		var doc *goquery.Document
		err := s.gd.Do(ctx, func(ctx context.Context) error {
			var ferr error
			doc, ferr = s.cap.Navigate(ctx, variant)
			return ferr
		})
		if err != nil {
			continue
		}
		if added := s.collectAnchors(doc, seen); added > 0 {
			s.log.Info().Str("variant", variant).Int("added", added).Msg("alternate index URL shape worked")
			return doc
		}
	}
	return nil
}

// sellerName reads the seller display name, first non-empty match wins
func (s *Scanner) sellerName(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	for _, sel := range s.opts.NameSelectors {
		name := strings.TrimSpace(doc.Find(sel).First().Text())
		if name != "" {
			return name
		}
	}
	return ""
}

// hasNextPage reports whether an explicit next-page control is present
func (s *Scanner) hasNextPage(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	for _, sel := range s.opts.NextPageSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func pageURL(indexURL string, page int) string {
	if page == 1 {
		return indexURL
	}
	sep := "?"
	if strings.Contains(indexURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", indexURL, sep, page)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
