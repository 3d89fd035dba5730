// Package views is the default set of page components for mdblog. Pages are
// html/template files embedded in the binary and exposed as templ
// components, so a site can replace any of them with its own templ code.
package views

import (
	"embed"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/mdblog"
	"github.com/eringen/mdblog/slug"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"safe": func(s string) template.HTML {
		return template.HTML(s)
	},
	"jsonld": func(s string) template.JS {
		return template.JS(s)
	},
	"date":          formatDate,
	"minutes":       formatMinutes,
	"tagSlug":       slug.Tag,
	"join":          strings.Join,
	"websiteJSONLD": mdblog.WebsiteJSONLD,
}

var pages = parsePages("home", "posts", "post", "tags", "tag", "search", "notfound", "error")

func parsePages(names ...string) map[string]*template.Template {
	base := template.Must(template.New("base").Funcs(funcs).ParseFS(files,
		"templates/layout.html",
		"templates/partials.html",
	))
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t := template.Must(base.Clone())
		out[name] = template.Must(t.ParseFS(files, "templates/"+name+".html"))
	}
	return out
}

func page(name string, data any) templ.Component {
	return templ.FromGoHTML(pages[name].Lookup("layout"), data)
}

// Home renders the landing page.
func Home(data mdblog.HomeData) templ.Component { return page("home", data) }

// Posts renders the full listing.
func Posts(data mdblog.ListData) templ.Component { return page("posts", data) }

// Post renders a single post.
func Post(data mdblog.PostData) templ.Component { return page("post", data) }

// Tags renders the tag index.
func Tags(data mdblog.TagsData) templ.Component { return page("tags", data) }

// Tag renders the posts of one tag.
func Tag(data mdblog.TagData) templ.Component { return page("tag", data) }

// Search renders the search form and results.
func Search(data mdblog.SearchData) templ.Component { return page("search", data) }

// NotFound renders the 404 page.
func NotFound(p mdblog.Page) templ.Component { return page("notfound", p) }

// ServerError renders the 5xx page.
func ServerError(p mdblog.Page) templ.Component { return page("error", p) }

// Default returns the full set of default views.
func Default() mdblog.ViewFuncs {
	return mdblog.ViewFuncs{
		Home:        Home,
		Posts:       Posts,
		Post:        Post,
		Tags:        Tags,
		Tag:         Tag,
		Search:      Search,
		NotFound:    NotFound,
		ServerError: ServerError,
	}
}

// formatDate prints t for readers, falling back to the raw front matter
// value when it did not parse.
func formatDate(t time.Time, raw string) string {
	if t.IsZero() {
		return raw
	}
	return t.Format("January 2, 2006")
}

func formatMinutes(n int) string {
	return strconv.Itoa(n) + " min read"
}
