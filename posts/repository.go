package posts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/eringen/mdblog/markdown"
	"github.com/eringen/mdblog/slug"
)

// DefaultRecentCount is the number of posts returned by Recent when the
// caller passes a non-positive count.
const DefaultRecentCount = 5

// Repository reads posts from a directory of "<slug>.md" files. It keeps no
// state between calls: every query reads and renders the corpus again.
type Repository struct {
	fsys          fs.FS
	mode          BuildMode
	parser        markdown.Parser
	renderer      *markdown.Renderer
	excerptLength int
	workers       int
	extensions    []string
	locale        language.Tag
	logger        zerolog.Logger
	onSkip        func(name string, err error)
}

// Option configures a Repository.
type Option func(*Repository)

// WithBuildMode sets the deployment mode used to gate drafts in GetBySlug.
func WithBuildMode(m BuildMode) Option {
	return func(r *Repository) { r.mode = m }
}

// WithRenderer sets the Markdown renderer.
func WithRenderer(rd *markdown.Renderer) Option {
	return func(r *Repository) { r.renderer = rd }
}

// WithExcerptLength sets the excerpt size in characters.
func WithExcerptLength(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.excerptLength = n
		}
	}
}

// WithWorkers bounds how many documents are transformed concurrently.
func WithWorkers(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithExtensions sets the file extensions treated as posts, e.g. ".md".
// Extensions match case-sensitively so every listed slug resolves through
// GetBySlug.
func WithExtensions(exts ...string) Option {
	return func(r *Repository) {
		if len(exts) > 0 {
			r.extensions = append([]string(nil), exts...)
		}
	}
}

// WithLocale sets the collation locale for title sorting.
func WithLocale(tag language.Tag) Option {
	return func(r *Repository) { r.locale = tag }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithClock sets the clock used to default missing publication dates.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.parser.Now = now }
}

// WithSkipHook registers a callback invoked for each document that could
// not be loaded during a listing.
func WithSkipHook(fn func(name string, err error)) Option {
	return func(r *Repository) { r.onSkip = fn }
}

// NewRepository returns a Repository reading posts from the root of fsys.
func NewRepository(fsys fs.FS, opts ...Option) *Repository {
	r := &Repository{
		fsys:          fsys,
		mode:          Development,
		excerptLength: markdown.DefaultExcerptLength,
		workers:       runtime.NumCPU(),
		extensions:    []string{".md"},
		locale:        language.English,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.renderer == nil {
		r.renderer = markdown.NewRenderer(markdown.WithLogger(r.logger))
	}
	return r
}

// NewDirRepository returns a Repository over the directory dir.
func NewDirRepository(dir string, opts ...Option) *Repository {
	return NewRepository(os.DirFS(dir), opts...)
}

// Mode reports the repository's build mode.
func (r *Repository) Mode() BuildMode {
	return r.mode
}

// ListAll loads every post in the corpus, drops drafts unless requested,
// sorts and applies the limit. A missing corpus yields an empty list.
// Documents that cannot be read are logged and skipped.
func (r *Repository) ListAll(ctx context.Context, opts Options) []Post {
	opts = opts.withDefaults()
	names := r.documentNames()
	if len(names) == 0 {
		return nil
	}

	loaded := make([]*Post, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			post, err := r.load(name, opts.IncludeDrafts)
			if err != nil {
				r.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable post")
				if r.onSkip != nil {
					r.onSkip(name, err)
				}
				return nil
			}
			loaded[i] = post
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Debug().Err(err).Msg("listing interrupted")
		return nil
	}

	posts := make([]Post, 0, len(loaded))
	for _, p := range loaded {
		if p != nil {
			posts = append(posts, *p)
		}
	}
	r.sort(posts, opts)
	if opts.Limit > 0 && len(posts) > opts.Limit {
		posts = posts[:opts.Limit]
	}
	return posts
}

// GetBySlug loads a single post. It reports false when the slug does not
// name a document, the document cannot be read, or it is a draft and the
// repository runs in production mode.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (Post, bool) {
	if !validSlug(slug) || ctx.Err() != nil {
		return Post{}, false
	}
	for _, ext := range r.extensions {
		data, err := fs.ReadFile(r.fsys, slug+ext)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn().Err(err).Str("slug", slug).Msg("post unreadable")
				return Post{}, false
			}
			continue
		}
		fm, body := r.parser.Parse(string(data))
		if fm.Draft && r.mode == Production {
			return Post{}, false
		}
		return r.build(slug, fm, body), true
	}
	return Post{}, false
}

// GetByTag returns the default listing filtered to posts carrying tag. The
// tag may be given as a display name (case-insensitive) or as its slug.
func (r *Repository) GetByTag(ctx context.Context, tag string) []Post {
	needle := strings.ToLower(strings.TrimSpace(tag))
	if needle == "" {
		return nil
	}
	var filtered []Post
	for _, p := range r.ListAll(ctx, Options{}) {
		for _, t := range p.FrontMatter.Tags {
			if strings.ToLower(t) == needle || slug.Tag(t) == needle {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered
}

// Recent returns the n newest published posts.
func (r *Repository) Recent(ctx context.Context, n int) []Post {
	if n <= 0 {
		n = DefaultRecentCount
	}
	return r.ListAll(ctx, Options{Limit: n})
}

// GetAdjacent returns the posts before and after slug in the default
// listing. Either is nil at the ends of the list or when slug is not listed.
func (r *Repository) GetAdjacent(ctx context.Context, slug string) (prev, next *Post) {
	return Adjacent(r.ListAll(ctx, Options{}), slug)
}

// Adjacent returns the neighbours of slug in list.
func Adjacent(list []Post, slug string) (prev, next *Post) {
	for i := range list {
		if list[i].Slug != slug {
			continue
		}
		if i > 0 {
			prev = &list[i-1]
		}
		if i < len(list)-1 {
			next = &list[i+1]
		}
		return prev, next
	}
	return nil, nil
}

// Slugs lists the slugs of all published posts.
func (r *Repository) Slugs(ctx context.Context) []string {
	all := r.ListAll(ctx, Options{})
	slugs := make([]string, len(all))
	for i, p := range all {
		slugs[i] = p.Slug
	}
	return slugs
}

// documentNames lists post files in directory order (sorted by name).
func (r *Repository) documentNames() []string {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn().Err(err).Msg("cannot read content directory")
		}
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if r.hasExtension(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names
}

func (r *Repository) hasExtension(name string) bool {
	ext := path.Ext(name)
	for _, e := range r.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// load reads and renders one file. Drafts come back as nil when excluded,
// before any rendering work is done.
func (r *Repository) load(name string, includeDrafts bool) (*Post, error) {
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, err
	}
	fm, body := r.parser.Parse(string(data))
	if fm.Draft && !includeDrafts {
		return nil, nil
	}
	post := r.build(strings.TrimSuffix(name, path.Ext(name)), fm, body)
	return &post, nil
}

func (r *Repository) build(slug string, fm markdown.FrontMatter, body string) Post {
	published, _ := fm.PublishedAt()
	return Post{
		Slug:        slug,
		FrontMatter: fm,
		Content:     body,
		HTML:        r.renderer.Render(body),
		ReadingTime: markdown.ReadingTime(body),
		Excerpt:     markdown.Excerpt(body, r.excerptLength),
		TOC:         markdown.TableOfContents(body),
		Published:   published,
	}
}

// sort orders posts in place. The sort is stable so equal keys keep
// directory order.
func (r *Repository) sort(posts []Post, opts Options) {
	desc := opts.Order == Desc
	if opts.SortBy == SortByTitle {
		c := collate.New(r.locale)
		sort.SliceStable(posts, func(i, j int) bool {
			cmp := c.CompareString(posts[i].FrontMatter.Title, posts[j].FrontMatter.Title)
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
		return
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if desc {
			return posts[i].Published.After(posts[j].Published)
		}
		return posts[i].Published.Before(posts[j].Published)
	})
}

func validSlug(s string) bool {
	return s != "" && fs.ValidPath(s) && !strings.ContainsAny(s, `/\`) && !strings.HasPrefix(s, ".")
}
