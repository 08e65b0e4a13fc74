package plainblog

import (
	"net/http"

	"github.com/labstack/echo/v4"
	atom "github.com/thomas11/atomgenerator"

	"github.com/eringen/plainblog/index"
	"github.com/eringen/plainblog/post"
	"github.com/eringen/plainblog/views"
)

func (a *App) handleAtom(c echo.Context) error {
	posts := a.Index.Query(index.Query{})
	if len(posts) == 0 {
		return RenderStatus(c, http.StatusNotFound, a.Views.Empty())
	}
	data, err := a.cachedFeed(c, "atom", func() ([]byte, error) {
		return a.renderAtom(posts)
	})
	if err != nil {
		return err
	}
	return writeXML(c, "application/atom+xml; charset=utf-8", data)
}

// renderAtom builds the Atom feed of posts. The feed date is the newest
// publication date so that the document only changes with the posts.
func (a *App) renderAtom(posts []post.Post) ([]byte, error) {
	feed := atom.Feed{
		Title:   a.Config.Name,
		Link:    views.BuildURL(a.Config.URL),
		PubDate: posts[0].PublishedAt,
	}
	if posts[0].PublishedAt.IsZero() {
		feed.PubDate = posts[0].ModifiedAt
	}
	feed.AddAuthor(atom.Author{
		Name: a.Config.Author,
		Uri:  views.BuildURL(a.Config.URL),
	})

	for _, p := range posts {
		feed.AddEntry(a.atomEntry(p))
	}

	if errs := feed.Validate(); len(errs) > 0 {
		for _, err := range errs {
			a.logger.Error("atom feed is not valid", "error", err)
		}
		return nil, errs[0]
	}
	return feed.GenXml()
}

func (a *App) atomEntry(p post.Post) *atom.Entry {
	pub := p.PublishedAt
	if pub.IsZero() {
		pub = p.ModifiedAt
	}
	e := &atom.Entry{
		Title:       views.StripTags(string(p.Title)),
		Description: string(p.Blurb),
		Link:        views.BuildURL(a.Config.URL, "posts", p.Identifier),
		PubDate:     pub,
		Content:     string(p.Body),
	}
	for _, tag := range p.Tags {
		e.AddCategory(atom.Category{Term: tag})
	}
	return e
}
