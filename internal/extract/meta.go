package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anaviationstore/listingsync/internal/listing"
)

// metaSelectors lists, per field, the metadata tags tried in order.
var metaSelectors = map[string][]string{
	"title": {
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
	},
	"description": {
		`meta[property="og:description"]`,
		`meta[name="description"]`,
	},
	"image": {
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	},
	"url": {
		`meta[property="og:url"]`,
		`link[rel="canonical"]`,
	},
	"price": {
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
		`meta[itemprop="price"]`,
	},
	"currency": {
		`meta[property="product:price:currency"]`,
		`meta[property="og:price:currency"]`,
		`meta[itemprop="priceCurrency"]`,
	},
	"availability": {
		`meta[property="product:availability"]`,
		`meta[property="og:availability"]`,
	},
}

// fromMeta reads standard product/price/currency metadata tags, used to
// fill fields the structured-data strategy left missing.
func (e *Extractor) fromMeta(doc *goquery.Document) listing.Partial {
	out := listing.Partial{
		Title:       metaContent(doc, metaSelectors["title"]),
		Description: metaContent(doc, metaSelectors["description"]),
		Image:       metaContent(doc, metaSelectors["image"]),
		URL:         metaContent(doc, metaSelectors["url"]),
		Price:       metaContent(doc, metaSelectors["price"]),
		Currency:    metaContent(doc, metaSelectors["currency"]),
		Status:      availabilityStatus(metaContent(doc, metaSelectors["availability"])),
	}

	// Generic title tag as the last resort
	if out.Title == "" {
		out.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return out
}

// metaContent returns the first non-empty content/href attribute across
// the selector cascade.
func metaContent(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if content, ok := node.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
		if href, ok := node.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
	}
	return ""
}
