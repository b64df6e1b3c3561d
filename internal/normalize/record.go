package normalize

import (
	"strings"
	"time"

	"github.com/anaviationstore/listingsync/helpers"
	"github.com/anaviationstore/listingsync/internal/listing"
)

// Seller identifies the shop the records belong to.
type Seller struct {
	Name string
	URL  string
}

// Finalize turns a merged partial extraction into an immutable Record.
// Price and currency come out either both empty or both populated; the
// URL is canonicalized and the capture timestamp is ISO-8601 UTC.
func Finalize(p listing.Partial, seller Seller, fallbackURL, domainHint string, now time.Time) listing.Record {
	url := p.URL
	if url == "" {
		url = fallbackURL
	}
	url = helpers.StripQuery(url)

	price, currency := "", ""
	if p.Price != "" {
		price, currency = Price(p.Price, domainHint)
		if price != "" && p.Currency != "" {
			// An explicit currency field from the source wins over the
			// one sniffed out of the price text
			if iso := CurrencyCode(p.Currency, domainHint); iso != "" {
				currency = iso
			}
		}
	}

	return listing.Record{
		ID:          p.ID,
		Title:       p.Title,
		Price:       price,
		Currency:    currency,
		Status:      p.Status,
		Category:    p.Category,
		Tags:        joinTags(p.Tags, p.Brand, p.Size),
		URL:         url,
		Image:       p.Image,
		Description: p.Description,
		SellerName:  seller.Name,
		SellerURL:   seller.URL,
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
}

// Stub produces the degraded record written when every extraction
// strategy failed for a listing.
func Stub(id, url string, seller Seller, now time.Time) listing.Record {
	return listing.Record{
		ID:         id,
		URL:        helpers.StripQuery(url),
		SellerName: seller.Name,
		SellerURL:  seller.URL,
		Timestamp:  now.UTC().Format(time.RFC3339),
	}
}

// joinTags folds the brand and size attributes into the comma-joined
// tags column; the canonical schema carries no dedicated columns for them.
func joinTags(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
