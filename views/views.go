// Package views renders blog pages as templ components.
//
// The markup lives in html/template files. Defaults are embedded; a blog
// directory may ship its own templates.html whose {{define}} blocks replace
// the defaults one by one.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/plainblog/index"
	"github.com/eringen/plainblog/post"
)

//go:embed templates/*.html
var defaultFS embed.FS

// OverrideFile is the name of the optional template file in a blog directory.
const OverrideFile = "templates.html"

// SiteConfig holds site-wide settings every page needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
	Keywords    []string
}

// Page is one collection page.
type Page struct {
	Posts       []post.Post
	Category    string
	Tags        []index.TagCount
	HasNewer    bool
	HasOlder    bool
	NewerAnchor int
	OlderAnchor int
}

// NewerURL links to the page of posts newer than the first one shown.
func (p Page) NewerURL() string {
	return p.pageURL("newer", p.NewerAnchor)
}

// OlderURL links to the page of posts older than the last one shown.
func (p Page) OlderURL() string {
	return p.pageURL("older", p.OlderAnchor)
}

func (p Page) pageURL(key string, anchor int) string {
	v := url.Values{}
	v.Set(key, strconv.Itoa(anchor))
	if p.Category != "" {
		v.Set("category", p.Category)
	}
	return "/posts?" + v.Encode()
}

// AdminPost is a dashboard row.
type AdminPost struct {
	Post  post.Post
	Views int64
}

// Image is an uploaded file listed in the admin.
type Image struct {
	Filename string
	Size     int64
	ModTime  time.Time
}

// Templates renders pages for one site.
type Templates struct {
	site SiteConfig
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"join":       strings.Join,
	"date":       formatDate,
	"pathEscape": PathEscape,
	"tagClass":   TagClass,
	"kb":         func(n int64) string { return fmt.Sprintf("%.1f KB", float64(n)/1024) },
}

// New parses the embedded templates and, when dir contains OverrideFile,
// the blog's own templates on top.
func New(site SiteConfig, dir string) (*Templates, error) {
	tmpl, err := template.New("site").Funcs(funcs).ParseFS(defaultFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}
	if dir != "" {
		path := filepath.Join(dir, OverrideFile)
		if _, err := os.Stat(path); err == nil {
			if tmpl, err = tmpl.ParseFiles(path); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	return &Templates{site: site, tmpl: tmpl}, nil
}

func (t *Templates) component(name string, data map[string]any) templ.Component {
	data["Site"] = t.site
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return t.tmpl.ExecuteTemplate(w, name, data)
	})
}

// Collection renders a page of posts.
func (t *Templates) Collection(page Page) templ.Component {
	return t.component("collection", map[string]any{
		"Page":   page,
		"Title":  collectionTitle(t.site, page.Category),
		"JSONLD": WebsiteJsonLD(t.site),
	})
}

// Post renders a single post.
func (t *Templates) Post(p post.Post) templ.Component {
	return t.component("post", map[string]any{
		"Post":   p,
		"Title":  StripTags(string(p.Title)) + " · " + t.site.Name,
		"JSONLD": BlogPostingJsonLD(t.site, p),
	})
}

// Empty renders the "nothing here" page served with 404.
func (t *Templates) Empty() templ.Component {
	return t.component("empty", map[string]any{"Title": t.site.Name})
}

// Error renders a plain error page.
func (t *Templates) Error(code int, msg string) templ.Component {
	return t.component("error", map[string]any{"Title": t.site.Name, "Code": code, "Message": msg})
}

// AdminLogin renders the admin login form.
func (t *Templates) AdminLogin(showError bool, csrfToken string) templ.Component {
	return t.component("admin_login", map[string]any{"Title": "Admin", "ShowError": showError, "CSRF": csrfToken})
}

// AdminDashboard renders the post list with view counts. popular holds the
// most read posts, most read first.
func (t *Templates) AdminDashboard(posts, popular []AdminPost, message, csrfToken string) templ.Component {
	return t.component("admin_dashboard", map[string]any{"Title": "Admin", "Posts": posts, "Popular": popular, "Message": message, "CSRF": csrfToken})
}

// AdminForm renders the source editor for one post file. An empty
// identifier renders the form for a new post.
func (t *Templates) AdminForm(identifier, source, csrfToken string) templ.Component {
	return t.component("admin_form", map[string]any{"Title": "Admin", "Identifier": identifier, "Source": source, "CSRF": csrfToken})
}

// AdminImages renders the uploaded images.
func (t *Templates) AdminImages(images []Image, csrfToken string) templ.Component {
	return t.component("admin_images", map[string]any{"Title": "Admin", "Images": images, "CSRF": csrfToken})
}

func collectionTitle(site SiteConfig, category string) string {
	if category == "" {
		return site.Name
	}
	return site.Name + " · " + category
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2 January 2006")
}
