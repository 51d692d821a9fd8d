package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Widget Emporium</title>
  <meta name="description" content="Widgets of every size">
  <script>var hidden = "should not leak";</script>
  <style>.x { color: red }</style>
</head>
<body>
  <h1>Welcome</h1>
  <h2>Our widgets</h2>
  <p>We sell widgets and gadgets.</p>
  <a href="/catalog">Catalog</a>
  <a href="https://other.example.org/partners">Partners</a>
  <a href="mailto:sales@example.com">Email us</a>
  <a href="javascript:void(0)">Noop</a>
  <noscript>enable js</noscript>
</body>
</html>`

// TestExtractFullPage covers title, meta, headings, text and link resolution
// on a well-formed page.
func TestExtractFullPage(t *testing.T) {
	t.Parallel()

	doc, err := New().Extract("https://example.com/shop/", []byte(samplePage))
	require.NoError(t, err)

	require.Equal(t, "Widget Emporium", doc.Title)
	require.Equal(t, "Widgets of every size", doc.MetaDescription)
	require.Equal(t, []string{"Welcome", "Our widgets"}, doc.Headings)
	require.Contains(t, doc.Text, "We sell widgets and gadgets.")
	require.NotContains(t, doc.Text, "should not leak")
	require.NotContains(t, doc.Text, "enable js")

	require.Equal(t, []string{
		"https://example.com/catalog",
		"https://other.example.org/partners",
	}, doc.Links)
}

// TestExtractMalformedHTML ensures truncated or invalid markup still yields
// best-effort content instead of an error.
func TestExtractMalformedHTML(t *testing.T) {
	t.Parallel()

	doc, err := New().Extract("https://example.com/", []byte("<p>unclosed widget paragraph<div><a href=broken"))
	require.NoError(t, err)
	require.Contains(t, doc.Text, "unclosed widget paragraph")
}

// TestExtractTitleFallsBackToH1 checks the h1 fallback and the final
// "Untitled" default.
func TestExtractTitleFallsBackToH1(t *testing.T) {
	t.Parallel()

	doc, err := New().Extract("https://example.com/", []byte("<body><h1>Only Heading</h1></body>"))
	require.NoError(t, err)
	require.Equal(t, "Only Heading", doc.Title)

	doc, err = New().Extract("https://example.com/", []byte("<body><p>text only</p></body>"))
	require.NoError(t, err)
	require.Equal(t, "Untitled", doc.Title)
}

// TestExtractEmptyBody verifies an empty payload produces an empty document.
func TestExtractEmptyBody(t *testing.T) {
	t.Parallel()

	doc, err := New().Extract("https://example.com/", nil)
	require.NoError(t, err)
	require.Empty(t, doc.Text)
	require.Empty(t, doc.Links)
}
