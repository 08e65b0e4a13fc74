package plainblog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "Blog" || cfg.Addr != ":3000" || cfg.Dir != "." {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.PostsPerPage != 10 {
		t.Errorf("PostsPerPage = %d, want 10", cfg.PostsPerPage)
	}
	if cfg.StatsDatabasePath != filepath.Join(".", "data", "stats.db") {
		t.Errorf("StatsDatabasePath = %q", cfg.StatsDatabasePath)
	}
	if cfg.FeedCacheTTL != 10*time.Minute {
		t.Errorf("FeedCacheTTL = %v", cfg.FeedCacheTTL)
	}
	if cfg.Author != "Blog" {
		t.Errorf("Author should default to the site name, got %q", cfg.Author)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `name: "Notebook"
url: "https://notes.example.com"
keywords: [go, notes]
dir: /srv/notes
postsPerPage: 5
watchInterval: 2s
feedCacheTTL: 1m
metricsEnabled: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PLAINBLOG_ADDR", ":8080")
	t.Setenv("PLAINBLOG_POSTS_PER_PAGE", "7")
	t.Setenv("PLAINBLOG_LOG_FORMAT", "json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "Notebook" || cfg.URL != "https://notes.example.com" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if len(cfg.Keywords) != 2 || cfg.Keywords[1] != "notes" {
		t.Errorf("Keywords = %v", cfg.Keywords)
	}
	if cfg.Addr != ":8080" || cfg.PostsPerPage != 7 || cfg.LogFormat != "json" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.WatchInterval != 2*time.Second || cfg.FeedCacheTTL != time.Minute {
		t.Errorf("durations = %v, %v", cfg.WatchInterval, cfg.FeedCacheTTL)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled should be true")
	}
	if cfg.StatsDatabasePath != filepath.Join("/srv/notes", "data", "stats.db") {
		t.Errorf("StatsDatabasePath = %q", cfg.StatsDatabasePath)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("name: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestNewFailsOnMissingPostsDir(t *testing.T) {
	if _, err := New(SiteConfig{Dir: t.TempDir()}); err == nil {
		t.Fatal("expected error when posts/ is missing")
	}
}
