package markdown

import (
	"regexp"
	"strings"

	"github.com/eringen/mdblog/slug"
)

// TOCEntry is one heading in a table of contents.
type TOCEntry struct {
	ID    string
	Title string
	Level int
}

var reATXHeading = regexp.MustCompile(`^(#{1,6})\s+(.+?)(?:\s+#+)?\s*$`)

// TableOfContents lists the ATX headings of body in document order. Anchors
// are generated the same way Render generates them, so entries link to the
// rendered headings. Headings inside fenced code blocks are ignored.
func TableOfContents(body string) []TOCEntry {
	var toc []TOCEntry
	slugger := slug.NewSlugger()
	inFence := false
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := reATXHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := PlainText(m[2])
		if slug.Heading(title) == "" {
			continue
		}
		toc = append(toc, TOCEntry{
			ID:    slugger.Slug(title),
			Title: title,
			Level: len(m[1]),
		})
	}
	return toc
}
