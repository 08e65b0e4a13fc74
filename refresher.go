package plainblog

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radovskyb/watcher"

	"github.com/eringen/plainblog/index"
)

// Refresh reloads the posts directory and records the outcome. On failure
// the previous snapshot stays in service.
func (a *App) Refresh(reason string) (index.Changes, error) {
	start := time.Now()
	changes, err := a.Index.Refresh()
	a.Metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		a.Metrics.RefreshesTotal.WithLabelValues("error").Inc()
		a.logger.Error("refresh failed", "reason", reason, "error", err)
		return changes, err
	}
	a.Metrics.RefreshesTotal.WithLabelValues("ok").Inc()
	a.Metrics.PostsTotal.Set(float64(a.Index.Len()))
	if changes.Empty() {
		a.logger.Debug("refreshed, no changes", "reason", reason)
		return changes, nil
	}
	a.logger.Info("refreshed",
		"reason", reason,
		"added", len(changes.Added),
		"updated", len(changes.Updated),
		"removed", len(changes.Removed),
		"posts", a.Index.Len(),
	)
	return changes, nil
}

// RefreshOnSignal refreshes the index on every SIGHUP until ctx is done.
func (a *App) RefreshOnSignal(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-hup:
				a.Refresh("sighup")
			case <-ctx.Done():
				return
			}
		}
	}()
}

// startWatcher polls the posts directory and refreshes on any change.
func (a *App) startWatcher(interval time.Duration) error {
	w := watcher.New()
	w.SetMaxEvents(1)

	if err := w.AddRecursive(a.postsDir()); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case ev := <-w.Event:
				a.logger.Debug("posts directory changed", "op", ev.Op.String(), "path", ev.Path)
				a.Refresh("watch")
			case err := <-w.Error:
				a.logger.Error("watcher error", "error", err)
			case <-w.Closed:
				return
			}
		}
	}()

	go func() {
		if err := w.Start(interval); err != nil {
			a.logger.Error("watcher stopped", "error", err)
		}
	}()
	a.watcher = w
	a.logger.Info("watching posts", "dir", a.postsDir(), "interval", interval)
	return nil
}
