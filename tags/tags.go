// Package tags derives the tag index of the blog from the posts listing.
package tags

import (
	"context"
	"sort"
	"strings"

	"github.com/eringen/mdblog/posts"
	"github.com/eringen/mdblog/slug"
)

// DefaultPopularLimit is the number of tags GetPopular returns when the
// caller passes a non-positive limit.
const DefaultPopularLimit = 10

// Tag is a tag as shown to readers.
type Tag struct {
	Name  string
	Slug  string
	Count int
}

// Link returns the site-relative URL of the tag page.
func (t Tag) Link() string {
	return "/tags/" + t.Slug + "/"
}

// Source is the part of the post repository the aggregator reads.
type Source interface {
	ListAll(ctx context.Context, opts posts.Options) []posts.Post
	GetByTag(ctx context.Context, tag string) []posts.Post
}

// Aggregator computes tags on demand. It holds no index of its own.
type Aggregator struct {
	src Source
}

// NewAggregator returns an Aggregator reading from src.
func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// ListAll returns every tag used by a published post, most used first.
func (a *Aggregator) ListAll(ctx context.Context) []Tag {
	return Aggregate(a.src.ListAll(ctx, posts.Options{}))
}

// GetBySlug returns the tag whose slug is s.
func (a *Aggregator) GetBySlug(ctx context.Context, s string) (Tag, bool) {
	for _, t := range a.ListAll(ctx) {
		if t.Slug == s {
			return t, true
		}
	}
	return Tag{}, false
}

// GetPopular returns the first limit tags of ListAll.
func (a *Aggregator) GetPopular(ctx context.Context, limit int) []Tag {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	all := a.ListAll(ctx)
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Lookup resolves a tag given either its display name (any casing) or its
// slug.
func (a *Aggregator) Lookup(ctx context.Context, nameOrSlug string) (Tag, bool) {
	needle := strings.ToLower(strings.TrimSpace(nameOrSlug))
	if needle == "" {
		return Tag{}, false
	}
	for _, t := range a.ListAll(ctx) {
		if t.Slug == needle || strings.ToLower(t.Name) == needle || t.Slug == slug.Tag(needle) {
			return t, true
		}
	}
	return Tag{}, false
}

// Exists reports whether any published post carries the tag.
func (a *Aggregator) Exists(ctx context.Context, nameOrSlug string) bool {
	_, ok := a.Lookup(ctx, nameOrSlug)
	return ok
}

// Posts returns the published posts carrying the tag, newest first.
func (a *Aggregator) Posts(ctx context.Context, nameOrSlug string) []posts.Post {
	return a.src.GetByTag(ctx, nameOrSlug)
}

// Aggregate builds the tag list for ps. Tags are grouped by slug and named
// after the first spelling seen; each post counts once per slug. Drafts and
// tags without a usable slug are ignored. The result is ordered by count,
// descending, with ties kept in first-seen order.
func Aggregate(ps []posts.Post) []Tag {
	var (
		list  []Tag
		index = make(map[string]int)
	)
	for _, p := range ps {
		if p.FrontMatter.Draft {
			continue
		}
		seen := make(map[string]bool, len(p.FrontMatter.Tags))
		for _, name := range p.FrontMatter.Tags {
			s := slug.Tag(name)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			if i, ok := index[s]; ok {
				list[i].Count++
				continue
			}
			index[s] = len(list)
			list = append(list, Tag{Name: strings.TrimSpace(name), Slug: s, Count: 1})
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Count > list[j].Count
	})
	return list
}
