package plainblog

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/plainblog/post"
	"github.com/eringen/plainblog/views"
)

const newPostSource = `<!doctype html>
<html>
<head>
<meta name="date" content="%s">
<meta name="keywords" content="">
<title></title>
</head>
<body>
<h1></h1>
<p id="blurb"></p>
</body>
</html>
`

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.logger.Warn("failed admin login", "ip", ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminRefresh(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	changes, err := a.Refresh("admin")
	if err != nil {
		return redirectDashboard(c, "Reload failed: "+err.Error())
	}
	return redirectDashboard(c, fmt.Sprintf("Reloaded: %d added, %d updated, %d removed.",
		len(changes.Added), len(changes.Updated), len(changes.Removed)))
}

func (a *App) handleAdminNew(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	source := fmt.Sprintf(newPostSource, time.Now().Format("2006-01-02"))
	return Render(c, a.Views.AdminForm("", source, CsrfToken(c)))
}

func (a *App) handleAdminPost(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id := c.Param("id")
	if !validFileName(id) {
		return c.NoContent(http.StatusBadRequest)
	}
	data, err := os.ReadFile(filepath.Join(a.postsDir(), id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	return Render(c, a.Views.AdminForm(id, string(data), CsrfToken(c)))
}

// handleAdminSave writes a post file. The source is first written to a
// dot-file, which the index ignores, and checked with the post loader; only a
// loadable post is renamed into place.
func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id := strings.TrimSpace(c.FormValue("identifier"))
	source := strings.ReplaceAll(c.FormValue("source"), "\r\n", "\n")
	if id != "" && !validFileName(id) {
		return redirectDashboard(c, "Invalid file name.")
	}

	ext := ".html"
	if id != "" {
		ext = filepath.Ext(id)
	}
	tmp, err := a.writeTemp(source, ext)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	p, err := post.FileLoader{}.Load(tmp)
	if err != nil {
		return redirectDashboard(c, "Post not saved: "+strings.TrimPrefix(err.Error(), tmp+": "))
	}

	if id == "" {
		date := p.PublishedAt
		if date.IsZero() {
			date = time.Now()
		}
		id = postFileName(date.Format("2006-01-02"), views.StripTags(string(p.Title)))
		if _, err := os.Stat(filepath.Join(a.postsDir(), id)); err == nil {
			return redirectDashboard(c, fmt.Sprintf("Post not saved: %s already exists.", id))
		}
	}

	if err := os.Rename(tmp, filepath.Join(a.postsDir(), id)); err != nil {
		return fmt.Errorf("save post %s: %w", id, err)
	}
	if _, err := a.Refresh("admin save"); err != nil {
		return redirectDashboard(c, "Saved "+id+", but reload failed: "+err.Error())
	}
	return redirectDashboard(c, "Saved "+id+".")
}

func (a *App) writeTemp(source, ext string) (string, error) {
	f, err := os.CreateTemp(a.postsDir(), ".save-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp post: %w", err)
	}
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp post: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp post: %w", err)
	}
	return f.Name(), nil
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id := c.Param("id")
	if !validFileName(id) {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := os.Remove(filepath.Join(a.postsDir(), id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	if err := a.Stats.Forget(id); err != nil {
		a.logger.Warn("forget views failed", "post", id, "error", err)
	}
	if _, err := a.Refresh("admin delete"); err != nil {
		return redirectDashboard(c, "Deleted "+id+", but reload failed: "+err.Error())
	}
	return redirectDashboard(c, "Deleted "+id+".")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	counts, err := a.Stats.AllViews()
	if err != nil {
		return err
	}
	all := a.Index.All()
	rows := make([]views.AdminPost, 0, len(all))
	for _, p := range all {
		rows = append(rows, views.AdminPost{Post: p, Views: counts[p.Identifier].Views})
	}

	top, err := a.Stats.TopPosts(5)
	if err != nil {
		return err
	}
	var popular []views.AdminPost
	for _, pv := range top {
		// Counters of files removed outside the admin linger until Forget.
		if p, ok := a.Index.Get(pv.Identifier); ok {
			popular = append(popular, views.AdminPost{Post: p, Views: pv.Views})
		}
	}
	return Render(c, a.Views.AdminDashboard(rows, popular, msg, CsrfToken(c)))
}

func redirectDashboard(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}
