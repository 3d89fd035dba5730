package mdblog

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/mdblog/posts"
)

// feedLimit caps the number of items in /feed.xml.
const feedLimit = 20

type rssXML struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	AtomNS    string     `xml:"xmlns:atom,attr"`
	ContentNS string     `xml:"xmlns:content,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string      `xml:"title"`
	Link          string      `xml:"link"`
	Description   string      `xml:"description"`
	AtomLink      rssAtomLink `xml:"atom:link"`
	LastBuildDate string      `xml:"lastBuildDate,omitempty"`
	Items         []rssItem   `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description string     `xml:"description"`
	Content     rssContent `xml:"content:encoded"`
	Author      string     `xml:"author,omitempty"`
	Categories  []string   `xml:"category"`
	PubDate     string     `xml:"pubDate,omitempty"`
	GUID        rssGUID    `xml:"guid"`
}

type rssContent struct {
	Data string `xml:",cdata"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

func (a *App) buildRSS(list []posts.Post) rssXML {
	base := a.Config.URL
	items := make([]rssItem, 0, len(list))
	var newest time.Time
	for _, p := range list {
		fm := p.FrontMatter
		pubDate := ""
		if !p.Published.IsZero() {
			pubDate = p.Published.Format(time.RFC1123Z)
			if p.Published.After(newest) {
				newest = p.Published
			}
		}
		description := fm.Description
		if description == "" {
			description = p.Excerpt
		}
		postURL := BuildURL(base, "posts", p.Slug)
		items = append(items, rssItem{
			Title:       fm.Title,
			Link:        postURL,
			Description: description,
			Content:     rssContent{Data: p.HTML},
			Author:      fm.Author,
			Categories:  fm.Tags,
			PubDate:     pubDate,
			GUID:        rssGUID{Value: postURL, IsPermaLink: true},
		})
	}
	channel := rssChannel{
		Title:       a.Config.Name,
		Link:        BuildURL(base),
		Description: a.Config.Description,
		AtomLink: rssAtomLink{
			Href: base + "/feed.xml",
			Rel:  "self",
			Type: "application/rss+xml",
		},
		Items: items,
	}
	if !newest.IsZero() {
		channel.LastBuildDate = newest.Format(time.RFC1123Z)
	}
	return rssXML{
		Version:   "2.0",
		AtomNS:    "http://www.w3.org/2005/Atom",
		ContentNS: "http://purl.org/rss/1.0/modules/content/",
		Channel:   channel,
	}
}

func (a *App) renderRSS(c echo.Context, list []posts.Post) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(a.buildRSS(list))
}
