package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/anaviationstore/listingsync/helpers"
	"github.com/anaviationstore/listingsync/internal/guard"
	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/pkg/errors"
)

// HTTPSession is the raw-HTTP fetch capability: a cookie jar shared
// between page navigation and API calls, browser-like headers and a
// best-effort anti-CSRF token captured during warm-up.
type HTTPSession struct {
	origin    string
	client    *http.Client
	csrfToken string
	warmed    bool
	log       *logger.Logger
}

// AcquireHTTP establishes a warmed-up HTTP session for an origin. The
// warm-up request collects anti-bot cookies from the home page; if it
// fails the session is still returned cold and downstream callers retry
// through the guard.
func AcquireHTTP(ctx context.Context, origin string) (*HTTPSession, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.NewNetwork("session", "failed to create cookie jar", err)
	}

	s := &HTTPSession{
		origin: origin,
		client: &http.Client{
			Jar:     jar,
			Timeout: 25 * time.Second,
		},
		log: logger.ForSession(),
	}

	doc, err := s.Navigate(ctx, origin+"/")
	if err != nil {
		s.log.Warn().Err(err).Str("origin", origin).Msg("warm-up request failed, continuing with cold session")
		return s, nil
	}

	s.warmed = true
	if token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content"); ok {
		s.csrfToken = token
	}
	s.log.Info().
		Str("origin", origin).
		Bool("csrf_token", s.csrfToken != "").
		Msg("session warmed up")
	return s, nil
}

// Origin returns the session origin
func (s *HTTPSession) Origin() string {
	return s.origin
}

// Warmed reports whether the warm-up request succeeded
func (s *HTTPSession) Warmed() bool {
	return s.warmed
}

// Navigate fetches a page with browser-like headers and returns its DOM
func (s *HTTPSession) Navigate(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewNetwork("session", "failed to create request", err)
	}
	helpers.ApplyBrowserHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork("session", "failed to fetch "+url, err)
	}
	defer resp.Body.Close()

	if err := guard.ClassifyStatus("session", resp.StatusCode); err != nil {
		return nil, err
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetwork("session", "failed to read response body", err)
	}

	utf8Body, err := helpers.DecodeUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.NewParse("session", "failed to decode response body", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, errors.NewParse("session", "failed to parse HTML", err)
	}

	title := doc.Find("title").Text()
	if guard.IsBlockedContent(title) || guard.IsBlockedContent(BodyText(doc, 2000)) {
		return nil, errors.NewBlocked("session", "block page served for "+url, nil)
	}
	return doc, nil
}

// GetJSON issues a JSON API call carrying the session cookies
func (s *HTTPSession) GetJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewNetwork("session", "failed to create request", err)
	}
	helpers.ApplyAPIHeaders(req, s.origin)
	if s.csrfToken != "" {
		req.Header.Set("X-CSRF-Token", s.csrfToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.NewNetwork("session", "failed to fetch "+url, err)
	}
	defer resp.Body.Close()

	if err := guard.ClassifyStatus("session", resp.StatusCode); err != nil {
		return err
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetwork("session", "failed to read response body", err)
	}
	if err := json.Unmarshal(bodyBytes, v); err != nil {
		return errors.NewParse("session", "invalid JSON from "+url, err)
	}
	return nil
}

// Close releases the session. The cookie jar needs no explicit release;
// idle connections are dropped.
func (s *HTTPSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
