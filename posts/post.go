// Package posts loads the on-disk Markdown corpus and serves listing,
// lookup and navigation queries over it.
package posts

import (
	"strings"
	"time"

	"github.com/eringen/mdblog/markdown"
)

// Post is a fully rendered document. Posts are built fresh for every query
// and never mutated afterwards.
type Post struct {
	Slug        string
	FrontMatter markdown.FrontMatter
	Content     string
	HTML        string
	ReadingTime int
	Excerpt     string
	TOC         []markdown.TOCEntry

	// Published is FrontMatter.Date parsed; zero when the date is invalid.
	Published time.Time
}

// Link returns the site-relative URL of the post.
func (p Post) Link() string {
	return "/posts/" + p.Slug + "/"
}

// HasTag reports whether the post carries a tag equal to name ignoring case.
func (p Post) HasTag(name string) bool {
	for _, t := range p.FrontMatter.Tags {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// BuildMode controls draft visibility at the single post boundary.
type BuildMode int

const (
	// Development shows drafts when looked up by slug.
	Development BuildMode = iota
	// Production hides drafts from every lookup.
	Production
)

// ParseBuildMode maps an environment name to a BuildMode. Anything that is
// not "production" or "prod" is development.
func ParseBuildMode(s string) BuildMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

func (m BuildMode) String() string {
	if m == Production {
		return "production"
	}
	return "development"
}

// SortField selects the key used to order listings.
type SortField string

// SortOrder selects the listing direction.
type SortOrder string

const (
	SortByDate  SortField = "date"
	SortByTitle SortField = "title"

	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Options controls ListAll. The zero value lists published posts, newest
// first, without a limit.
type Options struct {
	IncludeDrafts bool
	// Limit caps the result after sorting; zero or negative means no cap.
	Limit  int
	SortBy SortField
	Order  SortOrder
}

func (o Options) withDefaults() Options {
	if o.SortBy != SortByTitle {
		o.SortBy = SortByDate
	}
	if o.Order != Asc {
		o.Order = Desc
	}
	return o
}
