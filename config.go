package plainblog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eringen/plainblog/index"
)

// SiteConfig holds all configuration for a plainblog site.
type SiteConfig struct {
	Name        string   `yaml:"name"`        // Site name (default "Blog")
	URL         string   `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string   `yaml:"description"` // Site description for feeds and meta tags
	Author      string   `yaml:"author"`      // Author name for feeds and JSON-LD
	Keywords    []string `yaml:"keywords"`

	Addr         string `yaml:"addr"`         // Listen address (default ":3000")
	Dir          string `yaml:"dir"`          // Blog directory holding posts/ and static/ (default ".")
	PostsPerPage int    `yaml:"postsPerPage"` // Page capacity (default 10)

	AdminPassword string `yaml:"adminPassword"` // Admin is disabled when empty
	SessionSecret string `yaml:"sessionSecret"` // Required when AdminPassword is set
	CookieSecure  bool   `yaml:"cookieSecure"`  // Set true for HTTPS

	StatsDatabasePath string `yaml:"statsDatabasePath"` // SQLite path (default "<dir>/data/stats.db")

	RedisAddr     string        `yaml:"redisAddr"` // Feed cache falls back to memory when empty
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	FeedCacheTTL  time.Duration `yaml:"feedCacheTTL"` // default 10min

	WatchInterval  time.Duration `yaml:"watchInterval"` // Poll posts/ for changes; 0 disables
	MetricsEnabled bool          `yaml:"metricsEnabled"`

	LogLevel  string `yaml:"logLevel"`  // debug, info, warn, error
	LogFormat string `yaml:"logFormat"` // text or json
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.Author == "" {
		c.Author = c.Name
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.PostsPerPage <= 0 {
		c.PostsPerPage = index.DefaultCapacity
	}
	if c.StatsDatabasePath == "" {
		c.StatsDatabasePath = filepath.Join(c.Dir, "data", "stats.db")
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = 10 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

func (c *SiteConfig) validate() error {
	if c.AdminPassword != "" && c.SessionSecret == "" {
		return fmt.Errorf("plainblog: SessionSecret is required when AdminPassword is set")
	}
	if c.WatchInterval < 0 {
		return fmt.Errorf("plainblog: WatchInterval must not be negative")
	}
	return nil
}

// LoadConfig reads a YAML config file (if path is not empty) and applies
// PLAINBLOG_* environment overrides. Defaults fill whatever is left.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	cfg.setDefaults()
	return cfg, nil
}

func applyEnvOverrides(cfg *SiteConfig) {
	if v := os.Getenv("PLAINBLOG_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("PLAINBLOG_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("PLAINBLOG_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("PLAINBLOG_DIR"); v != "" {
		cfg.Dir = v
	}
	if v := os.Getenv("PLAINBLOG_POSTS_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PostsPerPage = n
		}
	}
	if v := os.Getenv("PLAINBLOG_KEYWORDS"); v != "" {
		cfg.Keywords = strings.Split(v, ",")
	}
	if v := os.Getenv("PLAINBLOG_ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}
	if v := os.Getenv("PLAINBLOG_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("PLAINBLOG_COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CookieSecure = b
		}
	}
	if v := os.Getenv("PLAINBLOG_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("PLAINBLOG_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("PLAINBLOG_WATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WatchInterval = d
		}
	}
	if v := os.Getenv("PLAINBLOG_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MetricsEnabled = b
		}
	}
	if v := os.Getenv("PLAINBLOG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PLAINBLOG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithFeedCache replaces the feed cache chosen from the config.
func WithFeedCache(c FeedCache) Option {
	return func(a *App) {
		a.feeds = c
	}
}
