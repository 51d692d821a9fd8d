package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>hello widget</p></body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/binary", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x1, 0x2, 0x3})
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestFetchSuccess covers the happy path: 2xx HTML page with body returned.
func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	f := New(Config{Timeout: 2 * time.Second})

	result := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, result.Err)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Contains(t, string(result.Body), "hello widget")
	require.Greater(t, result.Duration, time.Duration(0))
}

// TestFetchNon2xx verifies a 404 is reported as a skippable error with no body.
func TestFetchNon2xx(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	f := New(Config{Timeout: 2 * time.Second})

	result := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, result.Err)
	require.Nil(t, result.Body)
}

// TestFetchRejectsNonHTML verifies the content-type filter discards binaries.
func TestFetchRejectsNonHTML(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	f := New(Config{Timeout: 2 * time.Second})

	result := f.Fetch(context.Background(), srv.URL+"/binary")
	require.Error(t, result.Err)
	require.Nil(t, result.Body)
}

// TestFetchTimeout checks the per-fetch timeout turns into an error result.
func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	f := New(Config{Timeout: 50 * time.Millisecond})

	result := f.Fetch(context.Background(), srv.URL+"/slow")
	require.Error(t, result.Err)
	require.Nil(t, result.Body)
}

// TestFetchConnectionRefused ensures an unreachable host yields an error
// result rather than a panic or hang.
func TestFetchConnectionRefused(t *testing.T) {
	t.Parallel()

	f := New(Config{Timeout: time.Second})
	result := f.Fetch(context.Background(), "http://127.0.0.1:1/")
	require.Error(t, result.Err)
	require.Nil(t, result.Body)
}

// TestFetchSameURLTwice verifies per-call collector clones do not inherit
// colly's visited-set across fetches.
func TestFetchSameURLTwice(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	f := New(Config{Timeout: 2 * time.Second})

	first := f.Fetch(context.Background(), srv.URL+"/")
	second := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	require.Equal(t, first.Body, second.Body)
}
