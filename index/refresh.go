package index

import (
	"sort"
	"time"

	"github.com/eringen/plainblog/post"
)

// Changes reports what a refresh did, by identifier.
type Changes struct {
	Added   []string
	Updated []string
	Removed []string
}

// Empty reports whether the refresh left the post set untouched.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Refresh reconciles the index with the current directory contents. Files
// that disappeared are dropped, new files are loaded, and files whose
// modification time moved forward are reloaded. On any error the previous
// snapshot stays published and keeps serving reads.
//
// Concurrent callers share a single in-flight refresh and its result.
func (x *Index) Refresh() (Changes, error) {
	v, err, _ := x.group.Do("refresh", func() (interface{}, error) {
		return x.refresh()
	})
	if err != nil {
		return Changes{}, err
	}
	return v.(Changes), nil
}

func (x *Index) refresh() (Changes, error) {
	start := time.Now()
	old := x.snap.Load()

	entries, err := x.list()
	if err != nil {
		x.logger.Error("refresh failed", "dir", x.dir, "error", err)
		return Changes{}, err
	}

	current := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		current[e.Name] = struct{}{}
	}

	var changes Changes
	for _, id := range old.ordered {
		if _, ok := current[id]; !ok {
			changes.Removed = append(changes.Removed, id)
		}
	}

	posts := make(map[string]*post.Post, len(entries))
	for _, e := range entries {
		prev, ok := old.posts[e.Name]
		switch {
		case !ok:
			p, err := x.load(e)
			if err != nil {
				x.logger.Error("refresh failed", "dir", x.dir, "error", err)
				return Changes{}, err
			}
			posts[e.Name] = p
			changes.Added = append(changes.Added, e.Name)
		case e.ModTime.After(prev.ModifiedAt):
			p, err := x.load(e)
			if err != nil {
				x.logger.Error("refresh failed", "dir", x.dir, "error", err)
				return Changes{}, err
			}
			posts[e.Name] = p
			changes.Updated = append(changes.Updated, e.Name)
		default:
			// Copy so the new ordinal never leaks into the published snapshot.
			cp := *prev
			posts[e.Name] = &cp
		}
	}
	sort.Strings(changes.Added)
	sort.Strings(changes.Updated)
	sort.Strings(changes.Removed)

	x.snap.Store(buildSnapshot(posts, old.generation+1))
	x.logger.Info("index refreshed",
		"dir", x.dir,
		"posts", len(posts),
		"added", len(changes.Added),
		"updated", len(changes.Updated),
		"removed", len(changes.Removed),
		"duration", time.Since(start),
	)
	return changes, nil
}
