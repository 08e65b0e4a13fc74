package plainblog

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/plainblog/index"
	"github.com/eringen/plainblog/post"
	"github.com/eringen/plainblog/views"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

func (a *App) handleRSS(c echo.Context) error {
	posts := a.Index.Query(index.Query{})
	if len(posts) == 0 {
		return RenderStatus(c, http.StatusNotFound, a.Views.Empty())
	}
	data, err := a.cachedFeed(c, "rss", func() ([]byte, error) {
		return a.renderRSS(posts)
	})
	if err != nil {
		return err
	}
	return writeXML(c, "application/rss+xml; charset=utf-8", data)
}

func (a *App) renderRSS(posts []post.Post) ([]byte, error) {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		pubDate := ""
		if !p.PublishedAt.IsZero() {
			pubDate = p.PublishedAt.Format(time.RFC1123Z)
		}
		postURL := views.BuildURL(base, "posts", p.Identifier)
		items = append(items, rssItem{
			Title:       views.StripTags(string(p.Title)),
			Link:        postURL,
			Description: string(p.Blurb),
			PubDate:     pubDate,
			GUID:        postURL,
			Categories:  p.Tags,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        views.BuildURL(base),
			Description: a.Config.Description,
			Items:       items,
		},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(feed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cachedFeed returns the document named feed for the current index
// generation, rendering and caching it on a miss.
func (a *App) cachedFeed(c echo.Context, feed string, render func() ([]byte, error)) ([]byte, error) {
	ctx := c.Request().Context()
	gen := a.Index.Generation()
	if data, ok := a.feeds.Get(ctx, feed, gen); ok {
		a.Metrics.FeedCacheHits.Inc()
		return data, nil
	}
	a.Metrics.FeedCacheMisses.Inc()
	data, err := render()
	if err != nil {
		return nil, err
	}
	a.feeds.Set(ctx, feed, gen, data)
	return data, nil
}
