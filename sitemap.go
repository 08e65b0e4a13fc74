package plainblog

import (
	"bytes"
	"encoding/xml"

	"github.com/labstack/echo/v4"

	"github.com/eringen/plainblog/post"
	"github.com/eringen/plainblog/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) handleSitemap(c echo.Context) error {
	data, err := a.cachedFeed(c, "sitemap", func() ([]byte, error) {
		return a.renderSitemap(a.Index.All())
	})
	if err != nil {
		return err
	}
	return writeXML(c, "application/xml; charset=utf-8", data)
}

func (a *App) renderSitemap(posts []post.Post) ([]byte, error) {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: views.BuildURL(base)},
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:     views.BuildURL(base, "posts", p.Identifier),
			LastMod: p.ModifiedAt.UTC().Format("2006-01-02"),
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(sitemap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
