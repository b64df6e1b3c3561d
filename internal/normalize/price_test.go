package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		domainHint string
		wantPrice  string
		wantCur    string
	}{
		{"euro comma decimal with thousands", "1.234,56 €", "es", "1234.56", "EUR"},
		{"euro comma decimal", "19,99 €", "es", "19.99", "EUR"},
		{"dollar dot decimal with thousands", "$1,299.00", "com", "1299.00", "USD"},
		{"zloty space thousands", "1 299,50 zł", "pl", "1299.50", "PLN"},
		{"koruna dot thousands", "Kč 1.250", "cz", "1250", "CZK"},
		{"bare number falls back to domain currency", "20", "es", "20", "EUR"},
		{"nbsp separated", "1 299,50 €", "fr", "1299.50", "EUR"},
		{"ambiguous kr resolves via domain", "249 kr", "no", "249", "NOK"},
		{"explicit iso code", "19.99 USD", "es", "19.99", "USD"},
		{"already normalized stays put", "1234.56", "es", "1234.56", "EUR"},
		{"empty", "", "es", "", ""},
		{"no digits", "free shipping", "es", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, currency := Price(tt.raw, tt.domainHint)
			assert.Equal(t, tt.wantPrice, price)
			assert.Equal(t, tt.wantCur, currency)
		})
	}
}

// A normalized price passed back through the normalizer must not change.
func TestPriceIdempotent(t *testing.T) {
	inputs := []string{"1.234,56 €", "19,99 €", "$1,299.00", "249 kr"}
	for _, in := range inputs {
		once, cur := Price(in, "es")
		twice, cur2 := Price(once+" "+cur, "es")
		assert.Equal(t, once, twice, "input %q", in)
		assert.Equal(t, cur, cur2, "input %q", in)
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "19.99", Money(1999, 100))
	assert.Equal(t, "5", Money(500, 100))
	assert.Equal(t, "1999", Money(1999, 1))
	assert.Equal(t, "12.5", Money(1250, 100))
	// Zero divisor is treated as 1
	assert.Equal(t, "42", Money(42, 0))
}

func TestDefaultCurrency(t *testing.T) {
	assert.Equal(t, "EUR", DefaultCurrency("es"))
	assert.Equal(t, "GBP", DefaultCurrency("co.uk"))
	assert.Equal(t, "USD", DefaultCurrency("com"))
	assert.Equal(t, "EUR", DefaultCurrency("unknown"))
}

func TestCurrencyCode(t *testing.T) {
	assert.Equal(t, "EUR", CurrencyCode("€", "es"))
	assert.Equal(t, "EUR", CurrencyCode("eur", "es"))
	assert.Equal(t, "DKK", CurrencyCode("kr", "dk"))
	assert.Equal(t, "SEK", CurrencyCode("kr", "es"))
	assert.Equal(t, "", CurrencyCode("??", "es"))
}
