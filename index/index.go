// Package index keeps the blog's posts in memory, sorted newest first, and
// answers paginated and category-filtered queries over them.
//
// Posts are identified by file name and ordered by identifier descending, so
// date-prefixed names ("2024-01-05-hello.html") list newest first. Every
// post's Ordinal is its position in that order. Reads work on an immutable
// snapshot; Refresh builds a new snapshot from the directory and swaps it in
// only when the whole reconciliation succeeded.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/plainblog/post"
)

var (
	// ErrLoad wraps failures of the post loader.
	ErrLoad = errors.New("index: load post")
	// ErrIO wraps failures listing or inspecting the posts directory.
	ErrIO = errors.New("index: read directory")
)

// DefaultCapacity is the page size used when Config.Capacity is not positive.
const DefaultCapacity = 10

// Config holds the index settings.
type Config struct {
	Dir      string // directory holding one file per post
	Capacity int    // posts per page
}

// Index is the in-memory post index.
type Index struct {
	dir      string
	capacity int
	loader   post.Loader
	lister   Lister
	logger   *slog.Logger

	snap  atomic.Pointer[snapshot]
	group singleflight.Group
}

// Option configures an Index.
type Option func(*Index)

// WithLoader replaces the default post.FileLoader.
func WithLoader(l post.Loader) Option {
	return func(x *Index) { x.loader = l }
}

// WithLister replaces the default DirLister.
func WithLister(l Lister) Option {
	return func(x *Index) { x.lister = l }
}

// WithLogger sets the logger used for refresh reports.
func WithLogger(l *slog.Logger) Option {
	return func(x *Index) { x.logger = l }
}

// snapshot is never modified after it is published.
type snapshot struct {
	posts      map[string]*post.Post
	ordered    []string
	categories map[string]*roaring.Bitmap
	generation uint64
}

// New scans cfg.Dir, loads every post and returns the sorted index. Any
// listing or load failure aborts construction.
func New(cfg Config, opts ...Option) (*Index, error) {
	x := &Index{
		dir:      cfg.Dir,
		capacity: cfg.Capacity,
		loader:   post.FileLoader{},
		lister:   DirLister{},
		logger:   slog.Default(),
	}
	if x.capacity <= 0 {
		x.capacity = DefaultCapacity
	}
	for _, opt := range opts {
		opt(x)
	}

	entries, err := x.list()
	if err != nil {
		return nil, err
	}
	posts := make(map[string]*post.Post, len(entries))
	for _, e := range entries {
		p, err := x.load(e)
		if err != nil {
			return nil, err
		}
		posts[e.Name] = p
	}
	x.snap.Store(buildSnapshot(posts, 0))
	return x, nil
}

// Capacity returns the configured page size.
func (x *Index) Capacity() int {
	return x.capacity
}

// Len returns the number of indexed posts.
func (x *Index) Len() int {
	return len(x.snap.Load().ordered)
}

// Generation counts successful refreshes. It changes whenever the published
// snapshot is replaced.
func (x *Index) Generation() uint64 {
	return x.snap.Load().generation
}

// Exists reports whether a post with the given identifier is indexed.
func (x *Index) Exists(id string) bool {
	_, ok := x.snap.Load().posts[id]
	return ok
}

// Get returns the post with the given identifier. The boolean is false when
// no such post exists.
func (x *Index) Get(id string) (post.Post, bool) {
	p, ok := x.snap.Load().posts[id]
	if !ok {
		return post.Post{}, false
	}
	return *p, true
}

// All returns every post newest first.
func (x *Index) All() []post.Post {
	s := x.snap.Load()
	out := make([]post.Post, 0, len(s.ordered))
	for _, id := range s.ordered {
		out = append(out, *s.posts[id])
	}
	return out
}

// TagCount is a category with the number of posts carrying it.
type TagCount struct {
	Tag   string
	Count int
}

// Tags returns every category sorted by name.
func (x *Index) Tags() []TagCount {
	s := x.snap.Load()
	tags := make([]TagCount, 0, len(s.categories))
	for tag, bm := range s.categories {
		tags = append(tags, TagCount{Tag: tag, Count: int(bm.GetCardinality())})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Tag < tags[j].Tag })
	return tags
}

func (x *Index) list() ([]Entry, error) {
	entries, err := x.lister.List(x.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIO, x.dir, err)
	}
	return entries, nil
}

func (x *Index) load(e Entry) (*post.Post, error) {
	p, err := x.loader.Load(filepath.Join(x.dir, e.Name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, e.Name, err)
	}
	p.Identifier = e.Name
	p.ModifiedAt = e.ModTime
	return p, nil
}

// buildSnapshot sorts the identifiers descending and assigns ordinals. The
// records in posts must not be shared with a published snapshot.
func buildSnapshot(posts map[string]*post.Post, generation uint64) *snapshot {
	ordered := make([]string, 0, len(posts))
	for id := range posts {
		ordered = append(ordered, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ordered)))

	categories := make(map[string]*roaring.Bitmap)
	for i, id := range ordered {
		p := posts[id]
		p.Ordinal = i
		for _, tag := range p.Tags {
			bm, ok := categories[tag]
			if !ok {
				bm = roaring.New()
				categories[tag] = bm
			}
			bm.Add(uint32(i))
		}
	}
	return &snapshot{
		posts:      posts,
		ordered:    ordered,
		categories: categories,
		generation: generation,
	}
}

// Entry is one file found in the posts directory.
type Entry struct {
	Name    string
	ModTime time.Time
}
