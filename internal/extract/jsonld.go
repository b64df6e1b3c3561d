package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anaviationstore/listingsync/internal/listing"
)

// fromJSONLD scans the page's ld+json blocks for the first node whose
// declared type includes "Product" and maps it onto a partial. Invalid
// blocks are skipped, not fatal.
func (e *Extractor) fromJSONLD(doc *goquery.Document) listing.Partial {
	var out listing.Partial
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		parsed, ok := parseProductNode(s.Text())
		if !ok {
			return true
		}
		if out.IsEmpty() || parsed.Title != "" {
			out = parsed
		}
		// Keep scanning until a block yields a usable title
		return out.Title == ""
	})
	return out
}

// parseProductNode decodes one ld+json block and extracts the Product
// node, handling top-level arrays and both offer shapes.
func parseProductNode(text string) (listing.Partial, bool) {
	var data interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return listing.Partial{}, false
	}

	nodes, ok := data.([]interface{})
	if !ok {
		nodes = []interface{}{data}
	}

	for _, raw := range nodes {
		node, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if !isProductType(node["@type"]) {
			continue
		}

		out := listing.Partial{
			Title:       asString(node["name"]),
			Description: asString(node["description"]),
			Image:       firstString(node["image"]),
			URL:         asString(node["url"]),
			Category:    joinStrings(node["category"], " > "),
			Tags:        joinStrings(node["keywords"], ", "),
			Brand:       brandName(node["brand"]),
		}

		if id := asString(node["sku"]); id != "" {
			out.ID = id
		} else {
			out.ID = asString(node["productID"])
		}

		out.Price, out.Currency, out.Status = offerFields(node["offers"])
		if out.Status == "" {
			out.Status = asString(node["itemCondition"])
		}
		return out, true
	}
	return listing.Partial{}, false
}

// isProductType handles both a singular @type and a type list
func isProductType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

// offerFields reads price, currency and availability from an offers
// node. Aggregate offers use the low price, falling back to high.
func offerFields(offers interface{}) (price, currency, availability string) {
	if list, ok := offers.([]interface{}); ok {
		if len(list) == 0 {
			return "", "", ""
		}
		offers = list[0]
	}
	offer, ok := offers.(map[string]interface{})
	if !ok {
		return "", "", ""
	}

	availability = availabilityStatus(asString(offer["availability"]))
	currency = asString(offer["priceCurrency"])

	if strings.Contains(asString(offer["@type"]), "AggregateOffer") {
		price = asString(offer["lowPrice"])
		if price == "" {
			price = asString(offer["highPrice"])
		}
		return price, currency, availability
	}
	return asString(offer["price"]), currency, availability
}

// availabilityStatus trims schema.org URL prefixes down to the plain
// token, e.g. https://schema.org/InStock -> InStock
func availabilityStatus(v string) string {
	if i := strings.LastIndex(v, "/"); i >= 0 {
		return v[i+1:]
	}
	return v
}

func brandName(v interface{}) string {
	switch b := v.(type) {
	case map[string]interface{}:
		return asString(b["name"])
	case string:
		return b
	}
	return ""
}

// asString renders scalar JSON values as strings, the way price fields
// arrive as either numbers or text
func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return trimFloat(s)
	case json.Number:
		return s.String()
	}
	return ""
}

// firstString returns v itself or the first element of a list
func firstString(v interface{}) string {
	if list, ok := v.([]interface{}); ok {
		if len(list) == 0 {
			return ""
		}
		return asString(list[0])
	}
	return asString(v)
}

// joinStrings joins a string list with sep, or passes a scalar through
func joinStrings(v interface{}, sep string) string {
	if list, ok := v.([]interface{}); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s := asString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	}
	return asString(v)
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
