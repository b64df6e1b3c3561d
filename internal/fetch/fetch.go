package fetch

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Capability unifies browser-automation and raw-HTTP access behind one
// interface so pipeline logic does not depend on which mechanism
// performs a given fetch. Implementations share one warmed-up session
// (cookies, headers, anti-CSRF token) for the whole run.
type Capability interface {
	// Origin returns the marketplace origin the session was warmed for
	Origin() string

	// Navigate fetches a page and returns its (rendered) DOM
	Navigate(ctx context.Context, url string) (*goquery.Document, error)

	// GetJSON issues an API call with the session cookies and decodes
	// the JSON response into v
	GetJSON(ctx context.Context, url string, v interface{}) error

	// Close releases the session on every exit path
	Close() error
}

// Scroller is implemented by capabilities that can drive infinite-scroll
// pages. Plain HTTP sessions fall back to page-parameter pagination.
type Scroller interface {
	ScrollToBottom(ctx context.Context) error

	// Document re-reads the currently rendered DOM without navigating,
	// so lazily loaded content accumulated by scrolling is preserved
	Document(ctx context.Context) (*goquery.Document, error)
}

// BodyText returns a bounded slice of a document's visible text for
// block-signal sniffing.
func BodyText(doc *goquery.Document, max int) string {
	text := doc.Find("body").Text()
	if len(text) > max {
		text = text[:max]
	}
	return text
}
