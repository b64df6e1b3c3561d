package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/anaviationstore/listingsync/helpers"
	"github.com/anaviationstore/listingsync/internal/guard"
	"github.com/anaviationstore/listingsync/logger"
	"github.com/anaviationstore/listingsync/pkg/errors"
)

// cookieBannerLabels are clicked best-effort on the first navigation.
// The label set covers the consent dialogs the marketplaces serve across
// locales; it is a heuristic, not an exhaustive list.
var cookieBannerLabels = []string{
	"Accept", "Aceptar", "Accept all cookies", "Aceptar todo",
	"Aceptar cookies", "Allow essential", "Aceptar todo y continuar",
}

var cookieBannerSelectors = []string{
	"form[data-gdpr] button[type=submit]",
	"div[role='dialog'] button[type=submit]",
	"div[data-gdpr] button",
}

// BrowserSession is the browser-automation fetch capability backed by a
// headless chromium context. One context and one page are reused across
// the whole run to keep warmed-up cookies.
type BrowserSession struct {
	origin  string
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	banner  bool
	log     *logger.Logger
}

// BrowserOptions tunes the browser context
type BrowserOptions struct {
	Headless       bool
	Locale         string
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
}

// DefaultBrowserOptions returns the options used for marketplace runs
func DefaultBrowserOptions(locale string) *BrowserOptions {
	if locale == "" {
		locale = "es-ES"
	}
	return &BrowserOptions{
		Headless:       true,
		Locale:         locale,
		ViewportWidth:  1280,
		ViewportHeight: 2000,
		UserAgent:      helpers.RandomUserAgent(),
	}
}

// AcquireBrowser launches a headless browser session warmed up against
// the origin home page. Warm-up failure still returns a usable session.
func AcquireBrowser(ctx context.Context, origin string, opts *BrowserOptions) (*BrowserSession, error) {
	if opts == nil {
		opts = DefaultBrowserOptions("")
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errors.NewNetwork("session", "failed to start playwright", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, errors.NewNetwork("session", "failed to launch browser", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(opts.UserAgent),
		Locale:    playwright.String(opts.Locale),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, errors.NewNetwork("session", "failed to create browser context", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, errors.NewNetwork("session", "failed to open page", err)
	}

	s := &BrowserSession{
		origin:  origin,
		pw:      pw,
		browser: browser,
		context: browserCtx,
		page:    page,
		log:     logger.ForSession(),
	}

	if _, err := s.Navigate(ctx, origin+"/"); err != nil {
		s.log.Warn().Err(err).Str("origin", origin).Msg("warm-up navigation failed, continuing with cold session")
	}
	return s, nil
}

// Origin returns the session origin
func (s *BrowserSession) Origin() string {
	return s.origin
}

// Navigate loads a page in the shared browser tab and returns the
// rendered DOM. The cookie banner is dismissed once per session.
func (s *BrowserSession) Navigate(ctx context.Context, url string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return nil, errors.NewNetwork("session", "navigation failed for "+url, err)
	}

	if !s.banner {
		s.dismissCookieBanner()
		s.banner = true
	}

	title, _ := s.page.Title()
	if guard.IsBlockedContent(title) {
		return nil, errors.NewBlocked("session", "block page served for "+url, nil)
	}

	content, err := s.page.Content()
	if err != nil {
		return nil, errors.NewNetwork("session", "failed to read page content", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, errors.NewParse("session", "failed to parse rendered HTML", err)
	}
	if guard.IsBlockedContent(BodyText(doc, 2000)) {
		return nil, errors.NewBlocked("session", "block content served for "+url, nil)
	}
	return doc, nil
}

// GetJSON issues an API call through the browser context so the request
// carries the warmed-up cookies.
func (s *BrowserSession) GetJSON(ctx context.Context, url string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := s.context.Request().Get(url, playwright.APIRequestContextGetOptions{
		Headers: map[string]string{
			"Accept":  "application/json, text/plain, */*",
			"Referer": s.origin + "/",
		},
	})
	if err != nil {
		return errors.NewNetwork("session", "api call failed for "+url, err)
	}

	if err := guard.ClassifyStatus("session", resp.Status()); err != nil {
		return err
	}

	body, err := resp.Body()
	if err != nil {
		return errors.NewNetwork("session", "failed to read api response", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewParse("session", "invalid JSON from "+url, err)
	}
	return nil
}

// Document re-reads the rendered DOM of the current page
func (s *BrowserSession) Document(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := s.page.Content()
	if err != nil {
		return nil, errors.NewNetwork("session", "failed to read page content", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, errors.NewParse("session", "failed to parse rendered HTML", err)
	}
	return doc, nil
}

// ScrollToBottom triggers one infinite-scroll step
func (s *BrowserSession) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return errors.NewNetwork("session", "scroll failed", err)
	}
	return nil
}

// dismissCookieBanner clicks through known consent dialogs, best-effort
func (s *BrowserSession) dismissCookieBanner() {
	for _, label := range cookieBannerLabels {
		locator := s.page.Locator(fmt.Sprintf("button:has-text(%q)", label)).First()
		if err := locator.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(1200)}); err == nil {
			s.page.WaitForTimeout(250)
			s.log.Debug().Str("label", label).Msg("cookie banner dismissed")
			return
		}
	}
	for _, sel := range cookieBannerSelectors {
		locator := s.page.Locator(sel).First()
		if err := locator.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(1200)}); err == nil {
			s.page.WaitForTimeout(250)
			s.log.Debug().Str("selector", sel).Msg("cookie banner dismissed")
			return
		}
	}
}

// Close releases the page, context, browser and driver in order
func (s *BrowserSession) Close() error {
	var errs []error
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
