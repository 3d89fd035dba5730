package search

import (
	"encoding/json"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/eringen/mdblog/posts"
)

// IndexContentLimit caps the content shipped per post in the client index.
const IndexContentLimit = 5000

// IndexEntry is one post in the client side search index.
type IndexEntry struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Date        string   `json:"date"`
	URL         string   `json:"url"`
	Content     string   `json:"content"`
}

// BuildIndex returns the client index for ps in the given order.
func BuildIndex(ps []posts.Post) []IndexEntry {
	entries := make([]IndexEntry, 0, len(ps))
	for _, p := range ps {
		tags := p.FrontMatter.Tags
		if tags == nil {
			tags = []string{}
		}
		entries = append(entries, IndexEntry{
			Slug:        p.Slug,
			Title:       p.FrontMatter.Title,
			Description: p.FrontMatter.Description,
			Tags:        tags,
			Date:        p.FrontMatter.Date,
			URL:         p.Link(),
			Content:     truncate(p.Content, IndexContentLimit),
		})
	}
	return entries
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// WriteIndex encodes the client index for ps as JSON.
func WriteIndex(w io.Writer, ps []posts.Post) error {
	return json.NewEncoder(w).Encode(BuildIndex(ps))
}

// Highlight escapes text for HTML and wraps every case-insensitive
// occurrence of the trimmed query in <mark>. Invalid UTF-8 in the query is
// dropped.
func Highlight(text, query string) string {
	query = strings.ToValidUTF8(strings.TrimSpace(query), "")
	if query == "" {
		return html.EscapeString(text)
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(query))
	if err != nil {
		return html.EscapeString(text)
	}
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))
		b.WriteString("<mark>")
		b.WriteString(html.EscapeString(text[loc[0]:loc[1]]))
		b.WriteString("</mark>")
		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return b.String()
}
