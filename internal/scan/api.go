package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/anaviationstore/listingsync/helpers"
)

// apiItemsResponse mirrors the shape of the undocumented seller-items
// endpoints. Only the identity fields matter for discovery; detail
// extraction re-fetches each listing through the strategy cascade.
type apiItemsResponse struct {
	Items []struct {
		ID  json.Number `json:"id"`
		URL string      `json:"url"`
	} `json:"items"`
}

// apiEndpointShapes are the known seller-items endpoint variants, tried
// in order of reliability.
var apiEndpointShapes = []string{
	"%s/api/v2/users/%s/items?status=active&order=newest_first&page=%d&per_page=100",
	"%s/api/v2/catalog/items?user_id=%s&order=newest_first&page=%d&per_page=100",
}

// DiscoverAPI enumerates a numeric seller's listings page by page
// through the marketplace's JSON endpoints. It returns the canonical
// URL set in sorted order, or an empty set when no endpoint responds,
// in which case the caller falls back to DOM discovery.
func (s *Scanner) DiscoverAPI(ctx context.Context, sellerID string) ([]string, error) {
	origin := s.cap.Origin()
	seen := make(map[string]bool)

	for _, shape := range apiEndpointShapes {
		for page := 1; page <= s.opts.MaxIterations; page++ {
			url := fmt.Sprintf(shape, origin, sellerID, page)

			var resp apiItemsResponse
			err := s.gd.Do(ctx, func(ctx context.Context) error {
				return s.cap.GetJSON(ctx, url, &resp)
			})
			if err != nil {
				s.log.Debug().Err(err).Str("url", url).Msg("api discovery endpoint failed")
				break
			}
			if len(resp.Items) == 0 {
				break
			}

			for _, item := range resp.Items {
				u := item.URL
				if u == "" && item.ID.String() != "" {
					u = origin + "/items/" + item.ID.String()
				}
				if u == "" {
					continue
				}
				if !strings.HasPrefix(u, "http") {
					u = origin + "/" + strings.TrimPrefix(u, "/")
				}
				seen[helpers.StripQuery(u)] = true
			}
			s.log.Debug().Int("page", page).Int("total", len(seen)).Msg("api discovery page")
		}
		if len(seen) > 0 {
			break
		}
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, nil
}
