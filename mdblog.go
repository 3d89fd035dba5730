// Package mdblog serves a blog from a directory of Markdown files using
// Echo and templ.
//
// Callers provide their own templ components via the ViewFuncs struct
// (package views ships a default set). mdblog owns routing, middleware,
// the content pipeline, feeds and metrics.
package mdblog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/eringen/mdblog/markdown"
	"github.com/eringen/mdblog/posts"
	"github.com/eringen/mdblog/search"
	"github.com/eringen/mdblog/tags"
)

// ViewFuncs holds the templ components the handlers render. This is the
// inversion-of-control mechanism that lets callers own all templates.
type ViewFuncs struct {
	Home        func(data HomeData) templ.Component
	Posts       func(data ListData) templ.Component
	Post        func(data PostData) templ.Component
	Tags        func(data TagsData) templ.Component
	Tag         func(data TagData) templ.Component
	Search      func(data SearchData) templ.Component
	NotFound    func(page Page) templ.Component
	ServerError func(page Page) templ.Component
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// Page is embedded in every view model.
type Page struct {
	Site       SiteConfig
	Meta       PageMeta
	LiveReload bool
}

// HomeData feeds the home page.
type HomeData struct {
	Page
	Recent  []posts.Post
	Popular []tags.Tag
}

// ListData feeds the full post listing.
type ListData struct {
	Page
	Posts []posts.Post
	Sort  string
	Order string
}

// PostData feeds a single post page.
type PostData struct {
	Page
	Post    posts.Post
	Prev    *posts.Post
	Next    *posts.Post
	Related []posts.Post
	Cover   *CoverImage
	JSONLD  string
}

// TagsData feeds the tag index.
type TagsData struct {
	Page
	Tags []tags.Tag
}

// TagData feeds a single tag page.
type TagData struct {
	Page
	Tag   tags.Tag
	Posts []posts.Post
}

// SearchHit is a search result prepared for display.
type SearchHit struct {
	search.Result
	// TitleHTML is the escaped title with query matches wrapped in <mark>.
	TitleHTML string
}

// SearchData feeds the search page.
type SearchData struct {
	Page
	Query   string
	Results []SearchHit
}

// App is the central mdblog application. It wires together the content
// pipeline, handlers, middleware and user-provided templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Posts    *posts.Repository
	Tags     *tags.Aggregator
	Search   *search.Engine
	Renderer *markdown.Renderer
	Views    ViewFuncs
	Logger   zerolog.Logger

	metrics       *Metrics
	registry      *prometheus.Registry
	searchLimiter *SearchLimiter
	reloader      *Reloader
	liveReload    bool
	contentFS     fs.FS
	customRoutes  []func(*App)
	setupOnce     sync.Once
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:   cfg,
		Echo:     echo.New(),
		Views:    views,
		Logger:   zerolog.Nop(),
		registry: prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.contentFS == nil {
		a.contentFS = os.DirFS(a.Config.ContentDir)
	}
	a.metrics = NewMetrics(a.registry)
	a.Renderer = markdown.NewRenderer(
		markdown.WithCodeStyle(a.Config.CodeStyle),
		markdown.WithLogger(a.Logger),
	)
	a.Posts = posts.NewRepository(a.contentFS,
		posts.WithBuildMode(a.Config.BuildMode()),
		posts.WithRenderer(a.Renderer),
		posts.WithExcerptLength(a.Config.ExcerptLength),
		posts.WithLocale(a.Config.Language()),
		posts.WithLogger(a.Logger.With().Str("component", "posts").Logger()),
		posts.WithSkipHook(a.metrics.documentSkipped),
	)
	a.Tags = tags.NewAggregator(a.Posts)
	a.Search = search.NewEngine()
	a.searchLimiter = NewSearchLimiter(a.Config.SearchRate, a.Config.SearchBurst)
	if a.liveReload && !a.Config.Production() {
		a.reloader = NewReloader(a.Logger)
	}

	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	return a
}

// Handler returns the configured HTTP handler. Middleware and routes are
// installed on first use.
func (a *App) Handler() http.Handler {
	a.setupOnce.Do(func() {
		a.setupMiddleware()
		a.setupRoutes()
		for _, fn := range a.customRoutes {
			fn(a)
		}
	})
	return a.Echo
}

// Start installs routes, starts the corpus watcher in development and
// serves until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.Handler()

	if a.reloader != nil {
		if err := a.reloader.Watch(a.Config.ContentDir, a.Config.StaticDir); err != nil {
			return fmt.Errorf("mdblog: start watcher: %w", err)
		}
	}

	errc := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.Config.Addr).
			Str("env", a.Posts.Mode().String()).
			Str("content", a.Config.ContentDir).
			Msg("listening")
		errc <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mdblog: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return a.Shutdown(context.Background())
	}
}

// Shutdown stops the server and the watcher.
func (a *App) Shutdown(ctx context.Context) error {
	a.Close()
	if err := a.Echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("mdblog: shutdown: %w", err)
	}
	return nil
}

// Close releases background resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.reloader != nil {
		a.reloader.Close()
	}
	return nil
}

func (a *App) page(title, description, path string) Page {
	if title == "" {
		title = a.Config.Name
	}
	if description == "" {
		description = a.Config.Description
	}
	return Page{
		Site: a.Config,
		Meta: PageMeta{
			Title:       title,
			Description: description,
			URL:         BuildURL(a.Config.URL, path),
			OGType:      "website",
		},
		LiveReload: a.reloader != nil,
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
