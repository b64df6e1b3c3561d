package helpers

import (
	"strings"
)

// StripQuery removes the query string and fragment from a URL string.
func StripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
