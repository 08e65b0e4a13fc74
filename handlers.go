package plainblog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/plainblog/index"
	"github.com/eringen/plainblog/views"
)

func (a *App) handleCollection(c echo.Context) error {
	q := index.ParseQuery(c.QueryParams())
	posts := a.Index.Query(q)
	a.Metrics.QueriesTotal.WithLabelValues(q.Kind(), strconv.FormatBool(q.Category != "")).Inc()
	if len(posts) == 0 {
		return RenderStatus(c, http.StatusNotFound, a.Views.Empty())
	}

	first, last := posts[0].Ordinal, posts[len(posts)-1].Ordinal
	page := views.Page{
		Posts:       posts,
		Category:    q.Category,
		Tags:        a.Index.Tags(),
		NewerAnchor: first,
		OlderAnchor: last,
		HasNewer:    a.hasNeighbour(index.Query{Newer: &first, Category: q.Category}),
		HasOlder:    a.hasNeighbour(index.Query{Older: &last, Category: q.Category}),
	}
	return Render(c, a.Views.Collection(page))
}

// hasNeighbour probes for at least one post beyond the anchor of q.
func (a *App) hasNeighbour(q index.Query) bool {
	q.Limit = 1
	return len(a.Index.Query(q)) > 0
}

func (a *App) handlePost(c echo.Context) error {
	id := c.Param("id")
	p, ok := a.Index.Get(id)
	if !ok {
		return RenderStatus(c, http.StatusNotFound, a.Views.Empty())
	}
	if err := a.Stats.RecordView(id); err != nil {
		a.logger.Warn("record view failed", "post", id, "error", err)
	}
	return Render(c, a.Views.Post(p))
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nDisallow: /admin/\n\nSitemap: %s\n", views.BuildURL(a.Config.URL, "sitemap.xml"))
	return c.String(http.StatusOK, body)
}

func (a *App) handleHealth(c echo.Context) error {
	if err := a.Stats.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "ok",
		"posts":      a.Index.Len(),
		"generation": a.Index.Generation(),
	})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.Empty())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.logger.Error("server error", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
		_ = RenderStatus(c, code, a.Views.Error(code, http.StatusText(code)))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
