package plainblog

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

const testPassword = "correct horse"

func withAdmin(c *SiteConfig) {
	c.AdminPassword = testPassword
	c.SessionSecret = "test-session-secret"
}

func (s *testSite) csrf(t *testing.T) string {
	t.Helper()
	u, _ := url.Parse(s.server.URL)
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == "_csrf" {
			return c.Value
		}
	}
	t.Fatal("no _csrf cookie")
	return ""
}

func (s *testSite) login(t *testing.T) {
	t.Helper()
	s.get(t, "/admin/")
	code, body := s.post(t, "/admin/login/", url.Values{"_csrf": {s.csrf(t)}, "password": {testPassword}})
	if code != http.StatusOK {
		t.Fatalf("login = %d", code)
	}
	assertContains(t, body, "Reload posts")
}

func TestAdminDisabledWithoutPassword(t *testing.T) {
	s := setupTestApp(t, nil)
	if code, _, _ := s.get(t, "/admin/"); code != http.StatusNotFound {
		t.Errorf("admin = %d, want 404", code)
	}
}

func TestAdminRequiresSessionSecret(t *testing.T) {
	_, err := New(SiteConfig{Dir: t.TempDir(), AdminPassword: "x"})
	if err == nil {
		t.Fatal("expected error without SessionSecret")
	}
}

func TestAdminLogin(t *testing.T) {
	s := setupTestApp(t, withAdmin)

	code, body, _ := s.get(t, "/admin/")
	if code != http.StatusOK {
		t.Fatalf("admin = %d", code)
	}
	assertContains(t, body, `name="password"`)

	code, body = s.post(t, "/admin/login/", url.Values{"_csrf": {s.csrf(t)}, "password": {"wrong"}})
	if code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", code)
	}
	assertContains(t, body, "Wrong password.")

	code, _ = s.post(t, "/admin/login/", url.Values{"password": {testPassword}})
	if code != http.StatusForbidden {
		t.Errorf("login without csrf = %d, want 403", code)
	}

	s.login(t)
	_, body, _ = s.get(t, "/admin/")
	assertContains(t, body, "2024-01-05.html", "Post 01")
}

func TestAdminDashboardShowsViews(t *testing.T) {
	s := setupTestApp(t, withAdmin)
	s.get(t, "/posts/2024-01-02.html")
	s.get(t, "/posts/2024-01-02.html")
	s.login(t)

	_, body, _ := s.get(t, "/admin/")
	assertContains(t, body, "<td>2</td>", "Most read", `<a href="/posts/2024-01-02.html">Post 02</a> (2)`)
}

func TestAdminSaveNewPost(t *testing.T) {
	s := setupTestApp(t, withAdmin)
	s.login(t)

	source := "<html><head><meta name=\"date\" content=\"2024-02-01\"><meta name=\"keywords\" content=\"go\"></head>" +
		"<body><h1>Fresh Post!</h1><p id=\"blurb\">New.</p><p>Fresh body.</p></body></html>"
	code, body := s.post(t, "/admin/save/", url.Values{"_csrf": {s.csrf(t)}, "source": {source}})
	if code != http.StatusOK {
		t.Fatalf("save = %d", code)
	}
	assertContains(t, body, "Saved 2024-02-01-fresh-post.html.")

	if _, err := os.Stat(filepath.Join(s.dir, postsSubdir, "2024-02-01-fresh-post.html")); err != nil {
		t.Fatalf("post file not written: %v", err)
	}
	if !s.app.Index.Exists("2024-02-01-fresh-post.html") {
		t.Fatal("index not refreshed after save")
	}
	_, body, _ = s.get(t, "/")
	assertContains(t, body, "Fresh Post!")

	entries, _ := os.ReadDir(filepath.Join(s.dir, postsSubdir))
	if len(entries) != 6 {
		t.Errorf("posts dir has %d entries, want 6 (temp file left behind?)", len(entries))
	}
}

func TestAdminSaveRejectsInvalidPost(t *testing.T) {
	s := setupTestApp(t, withAdmin)
	s.login(t)

	_, body := s.post(t, "/admin/save/", url.Values{"_csrf": {s.csrf(t)}, "source": {"<p>no heading</p>"}})
	assertContains(t, body, "Post not saved")
	if s.app.Index.Len() != 5 {
		t.Errorf("Len = %d, want 5", s.app.Index.Len())
	}

	_, body = s.post(t, "/admin/save/", url.Values{"_csrf": {s.csrf(t)}, "identifier": {"../escape.html"}, "source": {"<h1>x</h1>"}})
	assertContains(t, body, "Invalid file name.")
}

func TestAdminEditExistingPost(t *testing.T) {
	s := setupTestApp(t, withAdmin)
	s.login(t)

	code, body, _ := s.get(t, "/admin/post/2024-01-03.html/")
	if code != http.StatusOK {
		t.Fatalf("edit form = %d", code)
	}
	assertContains(t, body, "Body of post 03.")

	source := "<html><head><meta name=\"keywords\" content=\"go, web\"></head><body><h1>Post 03 revised</h1><p>Changed.</p></body></html>"
	s.post(t, "/admin/save/", url.Values{"_csrf": {s.csrf(t)}, "identifier": {"2024-01-03.html"}, "source": {source}})

	p, ok := s.app.Index.Get("2024-01-03.html")
	if !ok {
		t.Fatal("post disappeared")
	}
	if p.Title != "Post 03 revised" {
		t.Errorf("Title = %q", p.Title)
	}
	if s.app.Index.Len() != 5 {
		t.Errorf("Len = %d, want 5", s.app.Index.Len())
	}
}

func TestAdminDeletePost(t *testing.T) {
	s := setupTestApp(t, withAdmin)
	s.get(t, "/posts/2024-01-04.html")
	s.login(t)

	_, body := s.post(t, "/admin/post/2024-01-04.html/delete/", url.Values{"_csrf": {s.csrf(t)}})
	assertContains(t, body, "Deleted 2024-01-04.html.")

	if s.app.Index.Exists("2024-01-04.html") {
		t.Error("deleted post still indexed")
	}
	if n, _ := s.app.Stats.Views("2024-01-04.html"); n != 0 {
		t.Errorf("views of deleted post = %d, want 0", n)
	}
	if code, _, _ := s.get(t, "/posts/2024-01-04.html"); code != http.StatusNotFound {
		t.Errorf("deleted post = %d, want 404", code)
	}
}

func TestAdminManualRefresh(t *testing.T) {
	s := setupTestApp(t, withAdmin)
	s.login(t)

	if err := os.Remove(filepath.Join(s.dir, postsSubdir, "2024-01-01.html")); err != nil {
		t.Fatal(err)
	}
	_, body := s.post(t, "/admin/refresh/", url.Values{"_csrf": {s.csrf(t)}})
	assertContains(t, body, "Reloaded: 0 added, 0 updated, 1 removed.")
}

func TestAdminImageUpload(t *testing.T) {
	s := setupTestApp(t, withAdmin)
	s.login(t)

	img := image.NewRGBA(image.Rect(0, 0, 1600, 400))
	for x := 0; x < 1600; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	mw.WriteField("_csrf", s.csrf(t))
	fw, _ := mw.CreateFormFile("image", "Holiday Photo.png")
	fw.Write(pngBuf.Bytes())
	mw.Close()

	resp, err := s.client.Post(s.server.URL+"/admin/images/upload/", mw.FormDataContentType(), &form)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload = %d: %s", resp.StatusCode, body)
	}
	assertContains(t, string(body), "holiday-photo.jpg")

	f, err := os.Open(filepath.Join(s.dir, staticSubdir, uploadsSubdir, "holiday-photo.jpg"))
	if err != nil {
		t.Fatalf("upload not stored: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode stored image: %v", err)
	}
	if format != "jpeg" || cfg.Width != maxImageWidth || cfg.Height != 200 {
		t.Errorf("stored image = %s %dx%d, want jpeg 800x200", format, cfg.Width, cfg.Height)
	}

	_, listBody := s.post(t, "/admin/images/holiday-photo.jpg/delete/", url.Values{"_csrf": {s.csrf(t)}})
	assertNotContains(t, listBody, "holiday-photo.jpg")
}

func TestValidFileName(t *testing.T) {
	tests := map[string]bool{
		"2024-01-01.html": true,
		"notes.md":        true,
		"":                false,
		".hidden.html":    false,
		"../up.html":      false,
		"a/b.html":        false,
		`a\b.html`:        false,
	}
	for name, want := range tests {
		if got := validFileName(name); got != want {
			t.Errorf("validFileName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Fresh Post!":      "fresh-post",
		"  Hello, World  ": "hello-world",
		"***":              "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
