package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNormalizeURL verifies scheme/host casing, default ports, fragments,
// trailing slashes, and query ordering all collapse to one canonical form.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTP://Example.COM/Path", "http://example.com/Path"},
		{"strips default http port", "http://example.com:80/a", "http://example.com/a"},
		{"strips default https port", "https://example.com:443/a", "https://example.com/a"},
		{"keeps custom port", "http://example.com:8080/a", "http://example.com:8080/a"},
		{"removes fragment", "https://example.com/a#section", "https://example.com/a"},
		{"trims trailing slash", "https://example.com/about/", "https://example.com/about"},
		{"drops bare root slash", "https://example.com/", "https://example.com"},
		{"sorts query params", "https://example.com/a?b=2&a=1", "https://example.com/a?a=1&b=2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestNormalizeURLRejectsRelative ensures relative URLs are refused rather
// than silently normalized.
func TestNormalizeURLRejectsRelative(t *testing.T) {
	t.Parallel()

	_, err := NormalizeURL("/just/a/path")
	require.Error(t, err)
}

func TestSameHost(t *testing.T) {
	t.Parallel()

	require.True(t, SameHost("https://Example.com/a", "http://example.COM/b"))
	require.False(t, SameHost("https://example.com/a", "https://other.com/a"))
}
