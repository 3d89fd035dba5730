package markdown

import (
	"regexp"
	"strings"
)

const (
	// WordsPerMinute is the reading speed used for ReadingTime.
	WordsPerMinute = 200
	// DefaultExcerptLength is the excerpt size in characters.
	DefaultExcerptLength = 150
	// Ellipsis is appended to truncated excerpts.
	Ellipsis = "…"
)

var (
	reFencedCode = regexp.MustCompile("(?s)```.*?```")
	reHeading    = regexp.MustCompile(`#{1,6}\s+`)
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic     = regexp.MustCompile(`\*(.+?)\*`)
	reLink       = regexp.MustCompile(`\[(.+?)\]\(.+?\)`)
	reInlineCode = regexp.MustCompile("`(.+?)`")
	reLeftover   = regexp.MustCompile("[#*`]")
)

// ReadingTime estimates minutes needed to read body, never less than one.
func ReadingTime(body string) int {
	words := len(strings.Fields(body))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Excerpt strips Markdown syntax from body and cuts the result to length
// characters, adding an ellipsis when it was truncated. The cut is not word
// aware. A non-positive length selects DefaultExcerptLength.
func Excerpt(body string, length int) string {
	if length <= 0 {
		length = DefaultExcerptLength
	}
	plain := PlainText(body)
	runes := []rune(plain)
	if len(runes) <= length {
		return plain
	}
	return strings.TrimSpace(string(runes[:length])) + Ellipsis
}

// PlainText removes code blocks and inline Markdown markup from body.
func PlainText(body string) string {
	text := reFencedCode.ReplaceAllString(body, "")
	text = reHeading.ReplaceAllString(text, "")
	text = reBold.ReplaceAllString(text, "$1")
	text = reItalic.ReplaceAllString(text, "$1")
	text = reLink.ReplaceAllString(text, "$1")
	text = reInlineCode.ReplaceAllString(text, "$1")
	text = reLeftover.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
