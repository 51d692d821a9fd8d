// Package scorer computes how well a page's content matches a search term.
package scorer

import (
	"strings"
	"unicode/utf8"

	"github.com/sitescout/sitescout/internal/search"
)

// Field weights for the blended relevance score. A term hit in the title
// counts three times as much as one in the body text.
const (
	weightTitle    = 3.0
	weightMeta     = 2.0
	weightHeadings = 1.5
	weightContent  = 1.0
	weightPosition = 0.5
)

// defaultContextSize is the number of bytes of surrounding text kept on each
// side of the first match when building the excerpt.
const defaultContextSize = 100

// Scorer implements search.Scorer with a deterministic weighted blend of
// title, meta description, heading, body, and match-position signals. More
// body matches never lower the score.
type Scorer struct {
	contextSize int
}

// New returns a Scorer with the given excerpt window size; zero or negative
// selects the default.
func New(contextSize int) *Scorer {
	if contextSize <= 0 {
		contextSize = defaultContextSize
	}
	return &Scorer{contextSize: contextSize}
}

// Score returns the page relevance and a context excerpt containing the
// first occurrence of term in document order. A page whose body text never
// contains the term scores zero and yields no excerpt.
func (s *Scorer) Score(doc search.Document, term string) (float64, string) {
	normTerm := strings.ToLower(strings.TrimSpace(term))
	if normTerm == "" {
		return 0, ""
	}
	lowerText := strings.ToLower(doc.Text)
	matches := strings.Count(lowerText, normTerm)
	if matches == 0 {
		return 0, ""
	}

	first := strings.Index(lowerText, normTerm)
	position := 1.0
	if len(lowerText) > 0 {
		position = 1.0 - float64(first)/float64(len(lowerText))
	}

	relevance := weightTitle*fieldScore(doc.Title, normTerm) +
		weightMeta*fieldScore(doc.MetaDescription, normTerm) +
		weightHeadings*headingsScore(doc.Headings, normTerm) +
		weightContent*contentScore(matches) +
		weightPosition*position

	return relevance, s.excerpt(doc.Text, lowerText, first, len(normTerm))
}

// fieldScore is 1 for an exact substring hit and otherwise the fraction of
// the term's words present in the field.
func fieldScore(field, normTerm string) float64 {
	if field == "" {
		return 0
	}
	lower := strings.ToLower(field)
	if strings.Contains(lower, normTerm) {
		return 1
	}
	termWords := strings.Fields(normTerm)
	if len(termWords) == 0 {
		return 0
	}
	fieldWords := make(map[string]struct{})
	for _, w := range strings.Fields(lower) {
		fieldWords[w] = struct{}{}
	}
	hits := 0
	for _, w := range termWords {
		if _, ok := fieldWords[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(termWords))
}

func headingsScore(headings []string, normTerm string) float64 {
	best := 0.0
	for _, h := range headings {
		if score := fieldScore(h, normTerm); score > best {
			best = score
		}
	}
	return best
}

// contentScore saturates toward 1 as the match count grows; it is strictly
// increasing in the number of matches.
func contentScore(matches int) float64 {
	return float64(matches) / float64(matches+4)
}

// excerpt slices a window around the first occurrence. Offsets come from the
// lowercased text; when lowercasing changed byte lengths the window is taken
// from the lowercased copy so offsets stay valid.
func (s *Scorer) excerpt(text, lowerText string, first, termLen int) string {
	src := text
	if len(lowerText) != len(text) {
		src = lowerText
	}
	start := first - s.contextSize
	if start < 0 {
		start = 0
	}
	end := first + termLen + s.contextSize
	if end > len(src) {
		end = len(src)
	}
	for start > 0 && !utf8.RuneStart(src[start]) {
		start--
	}
	for end < len(src) && !utf8.RuneStart(src[end]) {
		end++
	}
	return strings.TrimSpace(src[start:end])
}
