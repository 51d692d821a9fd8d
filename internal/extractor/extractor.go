// Package extractor parses fetched HTML into plain text and outgoing links.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sitescout/sitescout/internal/search"
)

// Extractor implements search.Extractor using goquery. The HTML parser is
// tolerant by design, so malformed markup degrades to partial content
// instead of failing the page.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses body into a Document. Outgoing links are resolved to
// absolute form against pageURL; non-http(s) targets are discarded.
func (e *Extractor) Extract(pageURL string, body []byte) (search.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return search.Document{}, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, iframe, noscript").Remove()

	base, baseErr := url.Parse(pageURL)

	out := search.Document{
		Title:           title(doc),
		MetaDescription: metaDescription(doc),
		Headings:        headings(doc),
		Text:            collapseWhitespace(doc.Find("body").Text()),
	}
	if out.Text == "" {
		// Fragments without a <body> still deserve their text.
		out.Text = collapseWhitespace(doc.Text())
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || baseErr != nil {
			return
		}
		resolved := resolveLink(base, href)
		if resolved != "" {
			out.Links = append(out.Links, resolved)
		}
	})

	return out, nil
}

func title(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "Untitled"
}

func metaDescription(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

func headings(doc *goquery.Document) []string {
	var out []string
	doc.Find("h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		if text := collapseWhitespace(sel.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
