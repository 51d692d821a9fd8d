package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitescout/sitescout/internal/search"
)

// TestScoreZeroWithoutBodyMatch ensures pages whose text lacks the term score
// zero even when the title would match.
func TestScoreZeroWithoutBodyMatch(t *testing.T) {
	t.Parallel()

	s := New(0)
	doc := search.Document{
		Title: "All about widgets",
		Text:  "Nothing relevant here.",
	}
	relevance, excerpt := s.Score(doc, "widget")
	require.Zero(t, relevance)
	require.Empty(t, excerpt)
}

// TestScoreDeterministic verifies repeated scoring of the same input yields
// identical score and excerpt.
func TestScoreDeterministic(t *testing.T) {
	t.Parallel()

	s := New(0)
	doc := search.Document{
		Title:           "Widget catalog",
		MetaDescription: "The best widget store",
		Headings:        []string{"Widget types", "Pricing"},
		Text:            "A widget is a small gadget. Widgets are everywhere. Buy a widget today.",
	}
	r1, e1 := s.Score(doc, "Widget")
	r2, e2 := s.Score(doc, "Widget")
	require.Equal(t, r1, r2)
	require.Equal(t, e1, e2)
	require.Greater(t, r1, 0.0)
}

// TestScoreMonotonicInMatches checks that adding occurrences never lowers the
// score for fixed text length.
func TestScoreMonotonicInMatches(t *testing.T) {
	t.Parallel()

	s := New(0)
	pad := strings.Repeat("x ", 50)
	few := search.Document{Text: "widget " + pad + pad}
	many := search.Document{Text: "widget " + pad + "widget " + pad[:len(pad)-7]}

	rFew, _ := s.Score(few, "widget")
	rMany, _ := s.Score(many, "widget")
	require.GreaterOrEqual(t, rMany, rFew)
}

// TestExcerptFirstOccurrence verifies the excerpt wraps the first match in
// document order, not a later or "better" one.
func TestExcerptFirstOccurrence(t *testing.T) {
	t.Parallel()

	s := New(20)
	doc := search.Document{
		Text: "intro text widget early mention. " + strings.Repeat("filler ", 30) + "widget late mention",
	}
	_, excerpt := s.Score(doc, "widget")
	require.Contains(t, excerpt, "widget early mention")
	require.NotContains(t, excerpt, "late")
}

// TestScoreCaseInsensitive confirms matching ignores case on both sides.
func TestScoreCaseInsensitive(t *testing.T) {
	t.Parallel()

	s := New(0)
	doc := search.Document{Text: "WIDGET here"}
	relevance, excerpt := s.Score(doc, "widget")
	require.Greater(t, relevance, 0.0)
	require.Contains(t, strings.ToLower(excerpt), "widget")
}

// TestTitleBoost checks a title hit outranks an otherwise identical page.
func TestTitleBoost(t *testing.T) {
	t.Parallel()

	s := New(0)
	text := "the widget appears once here"
	plain := search.Document{Title: "Unrelated", Text: text}
	boosted := search.Document{Title: "Widget guide", Text: text}

	rPlain, _ := s.Score(plain, "widget")
	rBoosted, _ := s.Score(boosted, "widget")
	require.Greater(t, rBoosted, rPlain)
}
