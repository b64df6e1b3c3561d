package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaviationstore/listingsync/pkg/errors"
)

func TestAcquireHTTPWarmsUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><meta name="csrf-token" content="tok123"></head><body>home</body></html>`))
	}))
	defer server.Close()

	s, err := AcquireHTTP(context.Background(), server.URL)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Warmed())
	assert.Equal(t, "tok123", s.csrfToken)
	assert.Equal(t, server.URL, s.Origin())
}

// A failing warm-up still hands back a usable cold session.
func TestAcquireHTTPColdSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s, err := AcquireHTTP(context.Background(), server.URL)
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.Warmed())
}

func TestNavigateDetectsBlockPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Robot Check</title></head><body>verify you are a human</body></html>`))
	}))
	defer server.Close()

	s, err := AcquireHTTP(context.Background(), server.URL)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Navigate(context.Background(), server.URL+"/item/1")
	assert.Error(t, err)
	assert.True(t, errors.IsBlocked(err))
}

func TestNavigateClassifiesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte("<html><body>home</body></html>"))
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer server.Close()

	s, err := AcquireHTTP(context.Background(), server.URL)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Navigate(context.Background(), server.URL+"/gone")
	assert.True(t, errors.IsNotFound(err))

	_, err = s.Navigate(context.Background(), server.URL+"/throttled")
	assert.True(t, errors.IsBlocked(err))
}

// API calls carry the cookies and the anti-CSRF token collected during
// warm-up.
func TestGetJSONCarriesSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<html><head><meta name="csrf-token" content="tok123"></head><body>home</body></html>`))
			return
		}

		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "abc" || r.Header.Get("X-CSRF-Token") != "tok123" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":1}]}`))
	}))
	defer server.Close()

	s, err := AcquireHTTP(context.Background(), server.URL)
	require.NoError(t, err)
	defer s.Close()

	var out struct {
		Items []struct {
			ID int `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, s.GetJSON(context.Background(), server.URL+"/api/v2/items", &out))
	assert.Len(t, out.Items, 1)
}

func TestGetJSONInvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Write([]byte("<html><body>home</body></html>"))
			return
		}
		w.Write([]byte("<html>this is not json</html>"))
	}))
	defer server.Close()

	s, err := AcquireHTTP(context.Background(), server.URL)
	require.NoError(t, err)
	defer s.Close()

	var out map[string]interface{}
	err = s.GetJSON(context.Background(), server.URL+"/api", &out)
	assert.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}
