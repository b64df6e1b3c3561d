package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/anaviationstore/listingsync/internal/listing"
	"github.com/anaviationstore/listingsync/internal/normalize"
	"github.com/anaviationstore/listingsync/pkg/errors"
)

// apiItem mirrors the per-listing JSON endpoint. The price arrives as
// either a scalar with a separate currency field or as a money object.
type apiItem struct {
	ID          json.Number     `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Status      string          `json:"status"`
	BrandTitle  string          `json:"brand_title"`
	SizeTitle   string          `json:"size_title"`
	Price       json.RawMessage `json:"price"`
	Currency    string          `json:"currency"`
	Photo       struct {
		URL string `json:"url"`
	} `json:"photo"`
}

// apiItemEnvelope covers endpoints that wrap the item
type apiItemEnvelope struct {
	Item *apiItem `json:"item"`
}

// moneyObject is the {amount, divisor, currency_code} price shape
type moneyObject struct {
	Amount       json.Number `json:"amount"`
	Divisor      json.Number `json:"divisor"`
	CurrencyCode string      `json:"currency_code"`
}

// fromAPI calls the per-listing JSON endpoint using the warmed session.
// A derivable numeric id is required; slug-only URLs skip straight to
// the page strategies.
func (e *Extractor) fromAPI(ctx context.Context, canonicalURL string) (listing.Partial, error) {
	id := DeriveID(canonicalURL)
	if id == "" || !isNumeric(id) {
		return listing.Partial{}, errors.NewNotFound("extractor", "no numeric id for api lookup")
	}

	endpoint := fmt.Sprintf("%s/api/v2/items/%s", e.cap.Origin(), id)

	var raw json.RawMessage
	err := e.gd.Do(ctx, func(ctx context.Context) error {
		return e.cap.GetJSON(ctx, endpoint, &raw)
	})
	if err != nil {
		return listing.Partial{}, err
	}

	var envelope apiItemEnvelope
	if uerr := json.Unmarshal(raw, &envelope); uerr != nil {
		return listing.Partial{}, errors.NewParse("extractor", "unexpected api item shape", uerr)
	}
	item := envelope.Item
	if item == nil {
		// Some endpoints serve the item unwrapped
		var flat apiItem
		if uerr := json.Unmarshal(raw, &flat); uerr != nil || flat.Title == "" {
			return listing.Partial{}, errors.NewNotFound("extractor", "empty api item")
		}
		item = &flat
	}

	price, currency := decodePrice(item.Price, item.Currency)

	return listing.Partial{
		ID:          item.ID.String(),
		Title:       item.Title,
		Description: item.Description,
		URL:         item.URL,
		Status:      item.Status,
		Brand:       item.BrandTitle,
		Size:        item.SizeTitle,
		Price:       price,
		Currency:    currency,
		Image:       item.Photo.URL,
	}, nil
}

// decodePrice handles both price shapes: a scalar next to a separate
// currency field, or a money object whose amount/divisor is formatted
// to at most two decimal places with trailing zeros trimmed.
func decodePrice(raw json.RawMessage, currencyField string) (string, string) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", ""
	}

	var money moneyObject
	if err := json.Unmarshal(raw, &money); err == nil && money.Amount.String() != "" {
		amount, aerr := money.Amount.Float64()
		if aerr == nil {
			divisor := 1.0
			if d, derr := money.Divisor.Float64(); derr == nil && d > 0 {
				divisor = d
			}
			return normalize.Money(amount, divisor), money.CurrencyCode
		}
	}

	var scalar json.Number
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return scalar.String(), currencyField
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, currencyField
	}
	return "", ""
}

func isNumeric(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
