package mdblog

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/mdblog/posts"
	"github.com/eringen/mdblog/slug"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterRelatedPosts returns up to limit posts that share at least one tag
// with current, in the order given. Tags are compared by slug. A
// non-positive limit means no limit.
func FilterRelatedPosts(current posts.Post, all []posts.Post, limit int) []posts.Post {
	tagSet := make(map[string]struct{})
	for _, t := range current.FrontMatter.Tags {
		if s := slug.Tag(t); s != "" {
			tagSet[s] = struct{}{}
		}
	}
	var related []posts.Post
	for _, p := range all {
		if p.Slug == current.Slug {
			continue
		}
		for _, t := range p.FrontMatter.Tags {
			if _, ok := tagSet[slug.Tag(t)]; ok {
				related = append(related, p)
				break
			}
		}
		if limit > 0 && len(related) == limit {
			break
		}
	}
	return related
}

// WebsiteJSONLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJSONLD(cfg SiteConfig) string {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      BuildURL(cfg.URL),
		"potentialAction": map[string]string{
			"@type":       "SearchAction",
			"target":      BuildURL(cfg.URL, "search") + "?q={query}",
			"query-input": "required name=query",
		},
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJSONLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJSONLD(post posts.Post, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "posts", post.Slug)
	fm := post.FrontMatter
	description := fm.Description
	if description == "" {
		description = post.Excerpt
	}
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      fm.Title,
		"description":   description,
		"datePublished": fm.Date,
		"url":           postURL,
		"wordCount":     len(strings.Fields(post.Content)),
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if fm.Updated != "" {
		data["dateModified"] = fm.Updated
	}
	author := fm.Author
	if author == "" {
		author = cfg.Author
	}
	if author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  author,
		}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	if fm.Image != "" {
		data["image"] = absoluteURL(cfg.URL, fm.Image)
	}
	if len(fm.Tags) > 0 {
		data["keywords"] = strings.Join(fm.Tags, ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// absoluteURL resolves ref against base. Absolute references are returned
// unchanged.
func absoluteURL(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base + "/")
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
