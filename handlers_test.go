package plainblog

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/otiai10/copy"
)

const fixturePosts = "index/testdata/posts"

type testSite struct {
	app    *App
	server *httptest.Server
	client *http.Client
	dir    string
}

// setupTestApp copies the fixture posts into a temp blog directory and serves
// it with two posts per page.
func setupTestApp(t *testing.T, mutate func(*SiteConfig)) *testSite {
	t.Helper()
	dir := t.TempDir()
	if err := copy.Copy(fixturePosts, filepath.Join(dir, postsSubdir)); err != nil {
		t.Fatalf("copy fixtures: %v", err)
	}
	cfg := SiteConfig{
		Name:         "Test Blog",
		URL:          "https://blog.example.com",
		Dir:          dir,
		PostsPerPage: 2,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	srv := httptest.NewServer(app.Echo)
	jar, _ := cookiejar.New(nil)
	t.Cleanup(func() {
		srv.Close()
		app.Close()
	})
	return &testSite{app: app, server: srv, client: &http.Client{Jar: jar}, dir: dir}
}

func (s *testSite) get(t *testing.T, path string) (int, string, http.Header) {
	t.Helper()
	resp, err := s.client.Get(s.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp.Header
}

func (s *testSite) post(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := s.client.PostForm(s.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(body, w) {
			t.Errorf("response missing %q", w)
		}
	}
}

func assertNotContains(t *testing.T, body string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		if strings.Contains(body, w) {
			t.Errorf("response should not contain %q", w)
		}
	}
}

func TestCollectionPagination(t *testing.T) {
	s := setupTestApp(t, nil)

	code, body, _ := s.get(t, "/")
	if code != http.StatusOK {
		t.Fatalf("GET / = %d", code)
	}
	assertContains(t, body, "Post 05", "Post 04", "older=1")
	assertNotContains(t, body, "Post 03", "newer=")

	code, body, _ = s.get(t, "/posts?older=1")
	if code != http.StatusOK {
		t.Fatalf("older=1 = %d", code)
	}
	assertContains(t, body, "Post 03", "Post 02", "newer=2", "older=3")
	assertNotContains(t, body, "Post 04", "Post 01")

	_, body, _ = s.get(t, "/posts?older=3")
	assertContains(t, body, "Post 01", "newer=4")
	assertNotContains(t, body, "Post 02", "older=")

	_, body, _ = s.get(t, "/posts/?newer=2")
	assertContains(t, body, "Post 05", "Post 04")
}

func TestCollectionEmptyPageIs404(t *testing.T) {
	s := setupTestApp(t, nil)
	for _, path := range []string{"/posts?older=4", "/posts?newer=0", "/posts?older=99", "/posts?category=nope"} {
		code, body, _ := s.get(t, path)
		if code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, code)
		}
		assertContains(t, body, "Nothing here")
	}
}

func TestCollectionMalformedQueryFallsBack(t *testing.T) {
	s := setupTestApp(t, nil)
	for _, path := range []string{"/posts?older=abc", "/posts?newer=1&older=2"} {
		code, body, _ := s.get(t, path)
		if code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, code)
		}
		assertContains(t, body, "Post 05", "Post 04")
	}
}

func TestCollectionCategory(t *testing.T) {
	s := setupTestApp(t, nil)

	_, body, _ := s.get(t, "/posts?category=rust")
	assertContains(t, body, "Post 04", "Post 02", `class="tag tag-active"`)
	assertNotContains(t, body, "Post 05", "Post 03", "older=")

	_, body, _ = s.get(t, "/posts?category=go")
	assertContains(t, body, "Post 05", "Post 03", "category=go&amp;older=2")

	_, body, _ = s.get(t, "/posts?category=go&older=2")
	assertContains(t, body, "Post 01", "category=go&amp;newer=4")
	assertNotContains(t, body, "Post 02")
}

func TestPostPageRecordsView(t *testing.T) {
	s := setupTestApp(t, nil)

	code, body, _ := s.get(t, "/posts/2024-01-03.html")
	if code != http.StatusOK {
		t.Fatalf("GET post = %d", code)
	}
	assertContains(t, body, "Body of post 03.", `"@type":"BlogPosting"`)

	s.get(t, "/posts/2024-01-03.html")
	n, err := s.app.Stats.Views("2024-01-03.html")
	if err != nil {
		t.Fatalf("Views failed: %v", err)
	}
	if n != 2 {
		t.Errorf("views = %d, want 2", n)
	}

	code, _, _ = s.get(t, "/posts/missing.html")
	if code != http.StatusNotFound {
		t.Errorf("missing post = %d, want 404", code)
	}
}

func TestFeeds(t *testing.T) {
	s := setupTestApp(t, nil)

	code, body, h := s.get(t, "/feeds/rss.xml")
	if code != http.StatusOK {
		t.Fatalf("rss = %d", code)
	}
	if ct := h.Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("rss content type = %q", ct)
	}
	assertContains(t, body, "<title>Post 05</title>", "https://blog.example.com/posts/2024-01-05.html", "<category>go</category>")
	assertNotContains(t, body, "Post 03")

	code, body, h = s.get(t, "/feeds/atom.xml")
	if code != http.StatusOK {
		t.Fatalf("atom = %d: %s", code, body)
	}
	if ct := h.Get("Content-Type"); !strings.HasPrefix(ct, "application/atom+xml") {
		t.Errorf("atom content type = %q", ct)
	}
	assertContains(t, body, "Post 05", "https://blog.example.com/posts/2024-01-04.html")

	code, body, _ = s.get(t, "/sitemap.xml")
	if code != http.StatusOK {
		t.Fatalf("sitemap = %d", code)
	}
	assertContains(t, body, "https://blog.example.com/posts/2024-01-01.html", "https://blog.example.com/posts/2024-01-05.html")
}

func TestFeedsOfEmptyBlogAre404(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, postsSubdir), 0o755); err != nil {
		t.Fatal(err)
	}
	app, err := New(SiteConfig{Dir: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer app.Close()
	srv := httptest.NewServer(app.Echo)
	defer srv.Close()

	for _, path := range []string{"/feeds/rss.xml", "/feeds/atom.xml", "/"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestRefreshServesNewPostsAndFeeds(t *testing.T) {
	s := setupTestApp(t, nil)

	_, body, _ := s.get(t, "/feeds/rss.xml")
	assertNotContains(t, body, "Post 06")

	src := `<html><head><meta name="date" content="2024-01-06"></head><body><h1>Post 06</h1><p>Six.</p></body></html>`
	if err := os.WriteFile(filepath.Join(s.dir, postsSubdir, "2024-01-06.html"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	changes, err := s.app.Refresh("test")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(changes.Added) != 1 || changes.Added[0] != "2024-01-06.html" {
		t.Errorf("Added = %v", changes.Added)
	}

	_, body, _ = s.get(t, "/")
	assertContains(t, body, "Post 06", "Post 05")
	_, body, _ = s.get(t, "/feeds/rss.xml")
	assertContains(t, body, "Post 06")
}

func TestRefreshFailureKeepsServing(t *testing.T) {
	s := setupTestApp(t, nil)
	if err := os.WriteFile(filepath.Join(s.dir, postsSubdir, "2024-01-09.html"), []byte("<p>no title</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.app.Refresh("test"); err == nil {
		t.Fatal("expected refresh error")
	}
	code, body, _ := s.get(t, "/")
	if code != http.StatusOK {
		t.Fatalf("GET / = %d", code)
	}
	assertContains(t, body, "Post 05")
}

func TestHealthRobotsAndMetrics(t *testing.T) {
	s := setupTestApp(t, func(c *SiteConfig) { c.MetricsEnabled = true })

	code, body, _ := s.get(t, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	var health struct {
		Status string `json:"status"`
		Posts  int    `json:"posts"`
	}
	if err := json.Unmarshal([]byte(body), &health); err != nil {
		t.Fatalf("healthz body: %v", err)
	}
	if health.Status != "ok" || health.Posts != 5 {
		t.Errorf("healthz = %+v", health)
	}

	_, body, _ = s.get(t, "/robots.txt")
	assertContains(t, body, "Disallow: /admin/", "Sitemap: https://blog.example.com/sitemap.xml")

	s.get(t, "/")
	code, body, _ = s.get(t, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("metrics = %d", code)
	}
	assertContains(t, body, "plainblog_posts 5", `plainblog_queries_total{category="false",kind="first"} 1`, "plainblog_http_requests_total")
}

func TestMetricsDisabledByDefault(t *testing.T) {
	s := setupTestApp(t, nil)
	if code, _, _ := s.get(t, "/metrics"); code != http.StatusNotFound {
		t.Errorf("metrics = %d, want 404", code)
	}
}

func TestStaticFiles(t *testing.T) {
	s := setupTestApp(t, nil)
	if err := os.MkdirAll(filepath.Join(s.dir, staticSubdir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, staticSubdir, "style.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, body, h := s.get(t, "/static/style.css")
	if code != http.StatusOK || body != "body{}" {
		t.Fatalf("static = %d %q", code, body)
	}
	if cc := h.Get("Cache-Control"); cc != "public, max-age=86400" {
		t.Errorf("Cache-Control = %q", cc)
	}
}
