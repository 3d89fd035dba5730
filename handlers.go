package mdblog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eringen/mdblog/posts"
	"github.com/eringen/mdblog/search"
)

const (
	homeRecentCount  = 6
	homePopularCount = 12
	relatedCount     = 3
	maxQueryLength   = 200
)

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets take precedence over the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS))))
	e.GET("/public/style.css", embeddedHandler)
	e.GET("/public/reload.js", embeddedHandler)
	e.GET("/public/highlight.css", a.handleHighlightCSS)

	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	e.GET("/", a.handleHome)
	e.GET("/posts/", a.handlePosts)
	e.GET("/posts/:slug/", a.handlePost)
	e.GET("/tags/", a.handleTags)
	e.GET("/tags/:tag/", a.handleTag)
	e.GET("/search/", a.handleSearch)
	e.GET("/search/index.json", a.handleSearchIndex)
	e.GET("/blog", handleBlogRedirect)

	if a.reloader != nil {
		e.GET("/_reload", a.reloader.ServeEvents)
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	data := HomeData{
		Page:    a.page("", "", ""),
		Recent:  a.Posts.Recent(ctx, homeRecentCount),
		Popular: a.Tags.GetPopular(ctx, homePopularCount),
	}
	return a.render(c, "home", a.Views.Home(data))
}

func (a *App) handlePosts(c echo.Context) error {
	opts := posts.Options{
		SortBy: posts.SortField(c.QueryParam("sort")),
		Order:  posts.SortOrder(c.QueryParam("order")),
	}
	if opts.SortBy != posts.SortByTitle {
		opts.SortBy = posts.SortByDate
	}
	if opts.Order != posts.Asc {
		opts.Order = posts.Desc
	}
	data := ListData{
		Page:  a.page("All posts", "", "posts"),
		Posts: a.Posts.ListAll(c.Request().Context(), opts),
		Sort:  string(opts.SortBy),
		Order: string(opts.Order),
	}
	return a.render(c, "posts", a.Views.Posts(data))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, ok := a.Posts.GetBySlug(ctx, c.Param("slug"))
	if !ok {
		return echo.ErrNotFound
	}
	fm := post.FrontMatter
	description := fm.Description
	if description == "" {
		description = post.Excerpt
	}
	page := a.page(fm.Title, description, "posts/"+post.Slug)
	page.Meta.OGType = "article"

	data := PostData{
		Page:   page,
		Post:   post,
		JSONLD: BlogPostingJSONLD(post, a.Config),
	}
	all := a.Posts.ListAll(ctx, posts.Options{})
	data.Prev, data.Next = posts.Adjacent(all, post.Slug)
	data.Related = FilterRelatedPosts(post, all, relatedCount)
	if cover := a.coverImage(fm.Image, fm.Title); cover != nil {
		data.Cover = cover
		data.Meta.Image = absoluteURL(a.Config.URL, cover.URL)
	}
	return a.render(c, "post", a.Views.Post(data))
}

func (a *App) handleTags(c echo.Context) error {
	data := TagsData{
		Page: a.page("Tags", "", "tags"),
		Tags: a.Tags.ListAll(c.Request().Context()),
	}
	return a.render(c, "tags", a.Views.Tags(data))
}

func (a *App) handleTag(c echo.Context) error {
	ctx := c.Request().Context()
	tag, ok := a.Tags.Lookup(ctx, c.Param("tag"))
	if !ok {
		return echo.ErrNotFound
	}
	data := TagData{
		Page:  a.page("Posts tagged "+tag.Name, "", "tags/"+tag.Slug),
		Tag:   tag,
		Posts: a.Tags.Posts(ctx, tag.Slug),
	}
	return a.render(c, "tag", a.Views.Tag(data))
}

func (a *App) handleSearch(c echo.Context) error {
	query := strings.TrimSpace(strings.ToValidUTF8(c.QueryParam("q"), ""))
	if r := []rune(query); len(r) > maxQueryLength {
		query = string(r[:maxQueryLength])
	}
	data := SearchData{
		Page:  a.page("Search", "", "search"),
		Query: query,
	}
	if query != "" {
		if !a.searchLimiter.Allow(c.RealIP()) {
			a.metrics.searchLimited()
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many searches, slow down")
		}
		results := a.Search.Search(a.Posts.ListAll(c.Request().Context(), posts.Options{}), query)
		a.metrics.searched(len(results))
		data.Results = make([]SearchHit, len(results))
		for i, r := range results {
			data.Results[i] = SearchHit{
				Result:    r,
				TitleHTML: search.Highlight(r.Post.FrontMatter.Title, query),
			}
		}
	}
	return a.render(c, "search", a.Views.Search(data))
}

func (a *App) handleSearchIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, search.BuildIndex(a.Posts.ListAll(c.Request().Context(), posts.Options{})))
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	return a.renderSitemap(c, a.Posts.ListAll(ctx, posts.Options{}), a.Tags.ListAll(ctx))
}

func (a *App) handleFeed(c echo.Context) error {
	return a.renderRSS(c, a.Posts.ListAll(c.Request().Context(), posts.Options{Limit: feedLimit}))
}

func (a *App) handleHighlightCSS(c echo.Context) error {
	var buf bytes.Buffer
	if err := a.Renderer.WriteCSS(&buf); err != nil {
		return fmt.Errorf("mdblog: highlight stylesheet: %w", err)
	}
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", buf.Bytes())
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/posts/")
}

// handleRobots serves the user's robots.txt, or a permissive default that
// points at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	p := filepath.Join(a.Config.StaticDir, "robots.txt")
	if _, err := os.Stat(p); err == nil {
		return c.File(p)
	}
	body := "User-agent: *\nAllow: /\n\nSitemap: " + a.Config.URL + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page("Not found", "", "")))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError(a.page("Server error", "", "")))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
