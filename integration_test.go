package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaviationstore/listingsync/config"
	"github.com/anaviationstore/listingsync/internal/fetch"
	"github.com/anaviationstore/listingsync/internal/pipeline"
	syncsvc "github.com/anaviationstore/listingsync/services/sync"
)

// indexHTML mimics a seller profile page with a handful of listings
const indexHTML = `
<!DOCTYPE html>
<html>
<head><title>vintage-shop | Market</title></head>
<body>
    <h1 data-ui="shop-name">vintage-shop</h1>
    <div class="grid">
        <a href="/item/101-wool-coat?ref=grid">Wool coat</a>
        <a href="/item/102-leather-boots">Leather boots</a>
        <a href="/item/103-silk-scarf?src=feed">Silk scarf</a>
    </div>
</body>
</html>
`

// itemHTML carries structured data the way marketplace detail pages do
func itemHTML(id int, name, price string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <title>%s | Market</title>
    <script type="application/ld+json">
    {
        "@type": "Product",
        "name": "%s",
        "sku": "%d",
        "image": "https://img.example/%d.jpg",
        "offers": {
            "@type": "Offer",
            "price": "%s",
            "priceCurrency": "EUR",
            "availability": "https://schema.org/InStock"
        }
    }
    </script>
</head>
<body><h1>%s</h1></body>
</html>
`, name, name, id, id, price, name)
}

// The whole run against a live HTTP server: session warm-up, DOM
// discovery, the extraction cascade and CSV flushing.
func TestFullRunAgainstTestServer(t *testing.T) {
	items := map[string]string{
		"/item/101-wool-coat":     itemHTML(101, "Wool coat", "49.99"),
		"/item/102-leather-boots": itemHTML(102, "Leather boots", "89.00"),
		"/item/103-silk-scarf":    itemHTML(103, "Silk scarf", "15.50"),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch {
		case r.URL.Path == "/" || r.URL.Path == "/member/42":
			w.Write([]byte(indexHTML))
		case items[r.URL.Path] != "":
			w.Write([]byte(items[r.URL.Path]))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg := &config.Config{
		SellerURL:         server.URL + "/member/42",
		MarketplaceOrigin: server.URL,
		DomainHint:        "es",
		FetchMode:         "http",
		DiscoveryMode:     "auto",
		SyncBackend:       "csv",
		SyncTab:           "listings",
		CSVDir:            dir,
		BatchSize:         2,
		ItemDelayMin:      time.Millisecond,
		ItemDelayMax:      2 * time.Millisecond,
		BatchPauseEvery:   100,
		BatchPauseMin:     time.Millisecond,
		BatchPauseMax:     2 * time.Millisecond,
		MaxDiscoveryIters: 10,
		StableRounds:      2,
		ScrollDelay:       time.Millisecond,
		MaxRetries:        2,
		BackoffBase:       time.Millisecond,
		BackoffFactor:     2.0,
		BackoffCap:        5 * time.Millisecond,
	}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	target, err := syncsvc.NewTarget(ctx, cfg)
	require.NoError(t, err)

	session, err := fetch.AcquireHTTP(ctx, server.URL)
	require.NoError(t, err)

	summary, err := pipeline.New(cfg, target).WithCapability(session).Run(ctx)
	require.NoError(t, err)
	require.NoError(t, target.Close())

	assert.Equal(t, "vintage-shop", summary.SellerName)
	assert.Equal(t, 3, summary.Discovered)
	assert.Equal(t, 3, summary.Written)
	assert.Equal(t, 0, summary.Stubs)

	f, err := os.Open(filepath.Join(dir, "listings.csv"))
	require.NoError(t, err)
	defer f.Close()
	grid, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, grid, 4)
	assert.Equal(t, "id", grid[0][0])

	byTitle := map[string][]string{}
	for _, row := range grid[1:] {
		byTitle[row[1]] = row
	}
	coat := byTitle["Wool coat"]
	require.NotNil(t, coat)
	assert.Equal(t, "101", coat[0])
	assert.Equal(t, "49.99", coat[2])
	assert.Equal(t, "EUR", coat[3])
	assert.Equal(t, "InStock", coat[4])
	assert.Equal(t, server.URL+"/item/101-wool-coat", coat[7])
	assert.Equal(t, "vintage-shop", coat[10])
}
