package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// symbolToISO maps currency symbols and codes found next to a numeric
// token to ISO 4217 codes. Longer tokens are matched first.
var symbolOrder = []string{"CHF", "EUR", "USD", "GBP", "PLN", "CZK", "HUF", "RON", "SEK", "NOK", "DKK", "zł", "Kč", "Ft", "lei", "kr", "€", "$", "£"}

var symbolToISO = map[string]string{
	"€":   "EUR",
	"$":   "USD",
	"£":   "GBP",
	"zł":  "PLN",
	"Kč":  "CZK",
	"Ft":  "HUF",
	"lei": "RON",
	"CHF": "CHF",
	"EUR": "EUR",
	"USD": "USD",
	"GBP": "GBP",
	"PLN": "PLN",
	"CZK": "CZK",
	"HUF": "HUF",
	"RON": "RON",
	"SEK": "SEK",
	"NOK": "NOK",
	"DKK": "DKK",
}

// domainToCurrency is the marketplace-country fallback used when no
// currency token accompanies a price value.
var domainToCurrency = map[string]string{
	"es": "EUR", "fr": "EUR", "de": "EUR", "it": "EUR", "nl": "EUR",
	"pt": "EUR", "at": "EUR", "be": "EUR", "fi": "EUR", "ie": "EUR",
	"gr": "EUR", "lt": "EUR", "lv": "EUR", "ee": "EUR", "sk": "EUR",
	"si": "EUR", "lu": "EUR",
	"uk": "GBP", "co.uk": "GBP",
	"pl": "PLN", "cz": "CZK", "hu": "HUF", "ro": "RON", "ch": "CHF",
	"se": "SEK", "no": "NOK", "dk": "DKK",
	"com": "USD", "us": "USD",
}

// commaDecimalDomains are locales where "," is the decimal separator
// and "." groups thousands.
var commaDecimalDomains = map[string]bool{
	"es": true, "fr": true, "de": true, "it": true, "nl": true,
	"pt": true, "at": true, "be": true, "fi": true, "gr": true,
	"pl": true, "cz": true, "hu": true, "ro": true,
	"se": true, "no": true, "dk": true,
}

var numericToken = regexp.MustCompile(`\d[\d\s.,]*\d|\d`)

// DefaultCurrency returns the currency assumed for a marketplace
// country/TLD hint, or "EUR" for unknown hints.
func DefaultCurrency(domainHint string) string {
	if c, ok := domainToCurrency[strings.ToLower(strings.TrimPrefix(domainHint, "."))]; ok {
		return c
	}
	return "EUR"
}

// CurrencyCode resolves a symbol or code token to an ISO 4217 code.
// "kr" is ambiguous and resolved through the domain hint.
func CurrencyCode(token, domainHint string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if token == "kr" {
		switch strings.ToLower(domainHint) {
		case "no":
			return "NOK"
		case "dk":
			return "DKK"
		default:
			return "SEK"
		}
	}
	if iso, ok := symbolToISO[token]; ok {
		return iso
	}
	upper := strings.ToUpper(token)
	if iso, ok := symbolToISO[upper]; ok {
		return iso
	}
	return ""
}

// Price converts localized price text to a decimal string with "." as
// the separator and a best-effort ISO currency code. A price value never
// comes back with an empty currency: missing tokens fall back to the
// domain default. Unparseable numerics still return the cleaned string.
func Price(raw, domainHint string) (string, string) {
	txt := strings.TrimSpace(stripNBSP(raw))
	if txt == "" {
		return "", ""
	}

	currency := ""
	for _, sym := range symbolOrder {
		if strings.Contains(txt, sym) {
			currency = CurrencyCode(sym, domainHint)
			txt = strings.ReplaceAll(txt, sym, " ")
			break
		}
	}

	num := numericToken.FindString(txt)
	if num == "" {
		return "", ""
	}

	value := normalizeNumeric(num, domainHint)
	if value == "" {
		return "", ""
	}

	if currency == "" {
		currency = DefaultCurrency(domainHint)
	}
	return value, currency
}

// normalizeNumeric removes thousands grouping and converts a decimal
// comma to a decimal point.
func normalizeNumeric(num, domainHint string) string {
	num = strings.ReplaceAll(stripNBSP(num), " ", "")

	hasDot := strings.Contains(num, ".")
	hasComma := strings.Contains(num, ",")

	switch {
	case hasDot && hasComma:
		// The later separator is the decimal one
		if strings.LastIndex(num, ",") > strings.LastIndex(num, ".") {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case hasComma:
		// A single comma with one or two trailing digits is decimal,
		// anything else groups thousands
		idx := strings.LastIndex(num, ",")
		if strings.Count(num, ",") == 1 && len(num)-idx-1 <= 2 {
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case hasDot:
		// In comma-decimal locales a dot followed by exactly three
		// digits groups thousands
		idx := strings.LastIndex(num, ".")
		if strings.Count(num, ".") > 1 ||
			(commaDecimalDomains[strings.ToLower(domainHint)] && len(num)-idx-1 == 3) {
			num = strings.ReplaceAll(num, ".", "")
		}
	}

	if _, err := strconv.ParseFloat(num, 64); err != nil {
		// Best-effort: keep the cleaned string rather than fail the record
		return num
	}
	return num
}

// Money formats an amount/divisor money object to at most two decimal
// places with trailing zeros trimmed.
func Money(amount, divisor float64) string {
	if divisor == 0 {
		divisor = 1
	}
	s := strconv.FormatFloat(amount/divisor, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

func stripNBSP(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\u202f", " ")
	return s
}
