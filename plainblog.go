// Package plainblog serves a directory of blog posts over HTTP.
//
// Posts are HTML or Markdown files under <dir>/posts. They are held in an
// in-memory index (package index) that is rebuilt on SIGHUP, when the
// directory watcher sees a change, or after an admin edit. Pages, feeds, and
// the sitemap are rendered from the current index snapshot.
package plainblog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/radovskyb/watcher"

	"github.com/eringen/plainblog/index"
	"github.com/eringen/plainblog/logger"
	"github.com/eringen/plainblog/stats"
	"github.com/eringen/plainblog/views"
)

const (
	postsSubdir  = "posts"
	staticSubdir = "static"
)

// App is the central plainblog application. It wires together the index,
// views, stats store, feed cache, handlers, and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Index   *index.Index
	Views   *views.Templates
	Stats   *stats.Store
	Metrics *Metrics

	feeds        FeedCache
	logger       *slog.Logger
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	watcher      *watcher.Watcher
}

// New loads the posts directory and builds a ready-to-serve App. It fails
// when any post cannot be loaded; nothing is served from a partial index.
func New(cfg SiteConfig, opts ...Option) (*App, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Echo:    echo.New(),
		Metrics: NewMetrics(),
		logger:  logger.WithComponent("app"),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	idx, err := index.New(index.Config{
		Dir:      a.postsDir(),
		Capacity: cfg.PostsPerPage,
	}, index.WithLogger(logger.WithComponent("index")))
	if err != nil {
		return nil, fmt.Errorf("plainblog: load posts: %w", err)
	}
	a.Index = idx
	a.Metrics.PostsTotal.Set(float64(idx.Len()))

	tmpl, err := views.New(views.SiteConfig{
		Name:        cfg.Name,
		URL:         cfg.URL,
		Description: cfg.Description,
		Author:      cfg.Author,
		Keywords:    cfg.Keywords,
	}, cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("plainblog: load templates: %w", err)
	}
	a.Views = tmpl

	st, err := stats.NewStore(cfg.StatsDatabasePath)
	if err != nil {
		return nil, fmt.Errorf("plainblog: init stats: %w", err)
	}
	a.Stats = st

	if a.feeds == nil {
		a.feeds = newFeedCache(cfg, a.logger)
	}
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.logger.Info("posts loaded", "dir", a.postsDir(), "posts", idx.Len(), "capacity", idx.Capacity())
	return a, nil
}

// Start launches the directory watcher (when configured) and serves HTTP
// until the server is shut down.
func (a *App) Start() error {
	if a.Config.WatchInterval > 0 {
		if err := a.startWatcher(a.Config.WatchInterval); err != nil {
			return fmt.Errorf("plainblog: watch posts: %w", err)
		}
	}
	a.logger.Info("listening", "addr", a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/static", a.staticDir())
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", a.handleHealth)
	if a.Config.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
	}

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feeds/rss.xml", a.handleRSS)
	e.GET("/feeds/atom.xml", a.handleAtom)
	e.GET("/", a.handleCollection)
	e.GET("/posts", a.handleCollection)
	e.GET("/posts/", a.handleCollection)
	e.GET("/posts/:id", a.handlePost)

	if a.Config.AdminPassword == "" {
		return
	}
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/refresh/", a.handleAdminRefresh)
	e.GET("/admin/new/", a.handleAdminNew)
	e.GET("/admin/post/:id/", a.handleAdminPost)
	e.POST("/admin/save/", a.handleAdminSave)
	e.POST("/admin/post/:id/delete/", a.handleAdminDelete)
	e.GET("/admin/images/", a.handleImageList)
	e.POST("/admin/images/upload/", a.handleImageUpload)
	e.POST("/admin/images/:filename/delete/", a.handleImageDelete)
}

func (a *App) postsDir() string {
	return filepath.Join(a.Config.Dir, postsSubdir)
}

func (a *App) staticDir() string {
	return filepath.Join(a.Config.Dir, staticSubdir)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.feeds != nil {
		a.feeds.Close()
	}
	if a.Stats != nil {
		a.Stats.Close()
	}
	return nil
}
