package session

import (
	"strings"
	"sync"
)

// Transcript accumulates fragments in the order they were received. Only the
// receive loop appends; readers get copies.
type Transcript struct {
	mu        sync.RWMutex
	fragments []string
}

func (t *Transcript) Append(fragment string) {
	t.mu.Lock()
	t.fragments = append(t.fragments, fragment)
	t.mu.Unlock()
}

func (t *Transcript) Fragments() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.fragments))
	copy(out, t.fragments)
	return out
}

// Last returns the most recent fragment, if any.
func (t *Transcript) Last() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.fragments) == 0 {
		return "", false
	}
	return t.fragments[len(t.fragments)-1], true
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.fragments)
}

// Text joins the non-empty fragments with single spaces.
func (t *Transcript) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return joinFragments(t.fragments)
}

func joinFragments(fragments []string) string {
	var b strings.Builder
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(f)
	}
	return b.String()
}
