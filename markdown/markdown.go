// Package markdown turns post sources into render-ready data: front matter,
// highlighted HTML with heading anchors, reading time, excerpt and table of
// contents.
package markdown

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/eringen/mdblog/slug"
)

// DefaultCodeStyle is the chroma style used for highlighted code blocks.
const DefaultCodeStyle = "github"

// Renderer converts Markdown bodies to HTML. It is safe for concurrent use.
type Renderer struct {
	md        goldmark.Markdown
	codeStyle string
	logger    zerolog.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithCodeStyle selects the chroma style for code highlighting.
func WithCodeStyle(name string) RendererOption {
	return func(r *Renderer) {
		if name != "" {
			r.codeStyle = name
		}
	}
}

// WithLogger sets the logger used to report post-processing failures.
func WithLogger(l zerolog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = l
	}
}

// NewRenderer builds a Renderer with GitHub flavored Markdown, raw HTML
// passthrough and class-based syntax highlighting.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		codeStyle: DefaultCodeStyle,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(r.codeStyle),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithUnsafe(),
		),
	)
	return r
}

// CodeStyle reports the configured highlighting style.
func (r *Renderer) CodeStyle() string {
	return r.codeStyle
}

// Render converts body to HTML. Headings receive unique anchors and are
// wrapped in a link to themselves. Render never fails; if the anchor pass
// cannot run, the plain conversion is returned.
func (r *Renderer) Render(body string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		r.logger.Warn().Err(err).Msg("markdown conversion failed")
		return ""
	}
	out, err := anchorHeadings(buf.String())
	if err != nil {
		r.logger.Warn().Err(err).Msg("heading anchor pass failed")
		return buf.String()
	}
	return out
}

// WriteCSS writes the stylesheet matching the highlight classes.
func (r *Renderer) WriteCSS(w io.Writer) error {
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	return formatter.WriteCSS(w, styles.Get(r.codeStyle))
}

// anchorHeadings gives every h1-h6 an id and wraps its content in
// <a class="anchor" href="#id">. Existing ids are kept and reserved.
func anchorHeadings(fragment string) (string, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), container)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	doc := goquery.NewDocumentFromNode(container)
	headings := doc.Find("h1, h2, h3, h4, h5, h6")

	slugger := slug.NewSlugger()
	headings.Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && id != "" {
			slugger.Reserve(id)
		}
	})
	headings.Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("id")
		if !ok || id == "" {
			if slug.Heading(s.Text()) == "" {
				return
			}
			id = slugger.Slug(s.Text())
			s.SetAttr("id", id)
		}
		s.WrapInnerHtml(`<a class="anchor" href="#` + html.EscapeString(id) + `"></a>`)
	})

	return doc.Html()
}
