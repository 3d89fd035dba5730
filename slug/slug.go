// Package slug derives URL-safe identifiers for tags and heading anchors.
package slug

import (
	"strconv"
	"strings"
	"unicode"
)

// Tag converts a tag display name to its URL slug: lowercase, whitespace
// runs become a single hyphen, characters outside [a-z0-9_-] are dropped,
// repeated hyphens collapse and leading/trailing hyphens are trimmed.
// Tag(Tag(s)) == Tag(s) for every s.
func Tag(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	pending := false
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pending = true
		}
	}
	return b.String()
}

// Heading returns the anchor for a heading's text the way GitHub does it:
// lowercase, punctuation and symbols removed, every space replaced by a
// hyphen. Unicode letters and digits are kept.
func Heading(text string) string {
	text = strings.ToLower(text)
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Slugger hands out unique heading anchors within one document. The first
// occurrence of an anchor is returned as is, later ones get "-1", "-2", ...
// A Slugger is not safe for concurrent use.
type Slugger struct {
	seen map[string]int
}

// NewSlugger returns an empty Slugger.
func NewSlugger() *Slugger {
	return &Slugger{seen: make(map[string]int)}
}

// Slug returns a unique anchor for text.
func (s *Slugger) Slug(text string) string {
	return s.unique(Heading(text))
}

// Reserve marks an existing id as taken so generated anchors avoid it.
func (s *Slugger) Reserve(id string) {
	if _, ok := s.seen[id]; !ok {
		s.seen[id] = 0
	}
}

func (s *Slugger) unique(base string) string {
	result := base
	for {
		if _, taken := s.seen[result]; !taken {
			break
		}
		s.seen[base]++
		result = base + "-" + strconv.Itoa(s.seen[base])
	}
	s.seen[result] = 0
	return result
}
