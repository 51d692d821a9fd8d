// Package frontier holds discovered-but-unvisited URLs for one job.
package frontier

import (
	"github.com/sitescout/sitescout/internal/search"
)

// Frontier is a breadth-first worklist with a visited-set. Entries are
// appended in discovery order, so all depth-d entries drain before any
// depth-(d+1) entry. It is owned by a single engine goroutine and is not
// safe for concurrent use.
type Frontier struct {
	pending []search.FrontierEntry
	seen    map[string]struct{}
}

// New returns an empty Frontier.
func New() *Frontier {
	return &Frontier{
		seen: make(map[string]struct{}),
	}
}

// Push enqueues a URL at the given depth unless its normalized form has been
// seen before. It reports whether the entry was accepted.
func (f *Frontier) Push(rawURL string, depth int) bool {
	normalized, err := search.NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	if _, dup := f.seen[normalized]; dup {
		return false
	}
	f.seen[normalized] = struct{}{}
	f.pending = append(f.pending, search.FrontierEntry{URL: normalized, Depth: depth})
	return true
}

// Pop removes and returns the oldest entry. The second return is false when
// the frontier is empty.
func (f *Frontier) Pop() (search.FrontierEntry, bool) {
	if len(f.pending) == 0 {
		return search.FrontierEntry{}, false
	}
	entry := f.pending[0]
	f.pending = f.pending[1:]
	return entry, true
}

// Peek returns the oldest entry without removing it. The second return is
// false when the frontier is empty.
func (f *Frontier) Peek() (search.FrontierEntry, bool) {
	if len(f.pending) == 0 {
		return search.FrontierEntry{}, false
	}
	return f.pending[0], true
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	return len(f.pending)
}

// SeenCount returns how many distinct URLs have ever been accepted,
// pending or already popped.
func (f *Frontier) SeenCount() int {
	return len(f.seen)
}
