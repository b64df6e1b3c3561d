package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anaviationstore/listingsync/internal/listing"
	"github.com/anaviationstore/listingsync/internal/normalize"
)

// Selector cascades for the DOM heuristics strategy. Each list is tried
// in order; the first non-empty hit wins.
var (
	domTitleSelectors = []string{
		"h1[data-buy-box-listing-title]",
		"h1[data-listing-page-title]",
		"h1[itemprop='name']",
		"[data-e2e='product-title']",
		"h1",
	}

	domPriceSelectors = []string{
		"[data-e2e='product-price']",
		"[itemprop='price']",
		"[data-buy-box-region='price'] p",
		"p[data-buy-box-price]",
		".MoneyAmount__amount",
		".price",
		"[class*='Price']",
	}

	domDescriptionSelectors = []string{
		"[data-e2e='product-description']",
		"[itemprop='description']",
		".description",
	}

	domImageSelectors = []string{
		"img[itemprop='image']",
		"img[data-listing-image]",
		"img[data-palette-listing-image]",
		".product-image img",
		"figure img",
	}

	domCategorySelectors = []string{
		"nav[aria-label*='readcrumb'] li:last-child a",
		"a[href*='/categoria/']",
		"[data-e2e='product-category']",
	}

	soldOutMarkers = []string{"sold out", "agotado", "vendido", "ausverkauft"}
)

// fromDOM is the last-resort strategy: selector cascades for the main
// fields, a bounded scan of generic text nodes through the price
// normalizer, and label/value pair matching for brand/size/condition.
func (e *Extractor) fromDOM(doc *goquery.Document) listing.Partial {
	out := listing.Partial{
		Title:       firstText(doc, domTitleSelectors),
		Description: firstText(doc, domDescriptionSelectors),
		Image:       firstAttr(doc, domImageSelectors, "src"),
		Category:    firstText(doc, domCategorySelectors),
	}

	out.Price, out.Currency = e.domPrice(doc)
	e.labelPairs(doc, &out)

	if out.Status == "" && hasSoldOutMarker(doc) {
		out.Status = "SoldOut"
	}
	return out
}

// domPrice scans elements whose attributes suggest a price role, then a
// bounded number of generic text nodes, through the price normalizer.
func (e *Extractor) domPrice(doc *goquery.Document) (string, string) {
	for _, sel := range domPriceSelectors {
		raw := strings.TrimSpace(doc.Find(sel).First().Text())
		if raw == "" {
			continue
		}
		if price, currency := normalize.Price(raw, e.opts.DomainHint); price != "" {
			return price, currency
		}
	}

	price, currency := "", ""
	scanned := 0
	doc.Find("span, p, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		scanned++
		if scanned > e.opts.MaxTextNodes {
			return false
		}
		text := strings.TrimSpace(s.Text())
		// Price strings are short; skip containers
		if text == "" || len(text) > 40 || s.Children().Length() > 0 {
			return true
		}
		if p, c := normalize.Price(text, e.opts.DomainHint); p != "" && c != "" && containsCurrencyHint(text) {
			price, currency = p, c
			return false
		}
		return true
	})
	return price, currency
}

// labelPairs walks definition-list-style label/value pairs across
// locales for brand/size/condition fields.
func (e *Extractor) labelPairs(doc *goquery.Document, out *listing.Partial) {
	apply := func(field, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		switch field {
		case "brand":
			if out.Brand == "" {
				out.Brand = value
			}
		case "size":
			if out.Size == "" {
				out.Size = value
			}
		case "condition":
			if out.Status == "" {
				out.Status = value
			}
		}
	}

	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		field := e.opts.Labels.Match(dt.Text())
		if field == "" {
			return
		}
		apply(field, dt.Next().Filter("dd").Text())
	})

	// Table-style and generic sibling label/value markup
	doc.Find("th, [class*='label'], [class*='attribute'] span").Each(func(_ int, label *goquery.Selection) {
		field := e.opts.Labels.Match(label.Text())
		if field == "" {
			return
		}
		apply(field, label.Next().Text())
	})
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(doc *goquery.Document, selectors []string, attr string) string {
	for _, sel := range selectors {
		if value, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func hasSoldOutMarker(doc *goquery.Document) bool {
	body := strings.ToLower(doc.Find("body").Text())
	for _, marker := range soldOutMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// containsCurrencyHint keeps the generic text-node scan from latching
// onto bare numbers like counts or ratings.
func containsCurrencyHint(text string) bool {
	for _, hint := range []string{"€", "$", "£", "zł", "Kč", "Ft", "lei", "kr", "EUR", "USD", "GBP", "PLN", "CZK", "CHF"} {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}
