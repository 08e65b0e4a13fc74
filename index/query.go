package index

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/eringen/plainblog/post"
)

// Query selects one page of posts.
//
// Newer and Older are anchors taken from the ordinals of a previously served
// page: Newer returns the page just above that ordinal, Older the page just
// below it. At most one anchor may be set. Category limits the page to posts
// tagged with it. Limit shrinks the page below the index capacity; zero or
// anything above the capacity means the capacity.
type Query struct {
	Newer    *int
	Older    *int
	Category string
	Limit    int
}

// Kind names the query shape, for logs and metrics.
func (q Query) Kind() string {
	switch {
	case q.Newer != nil && q.Older == nil:
		return "newer"
	case q.Older != nil && q.Newer == nil:
		return "older"
	default:
		return "first"
	}
}

// ParseQuery builds a Query from request values. A malformed anchor is
// dropped, and supplying both newer and older drops both.
func ParseQuery(v url.Values) Query {
	q := Query{Category: strings.TrimSpace(v.Get("category"))}
	newer, older := v.Get("newer"), v.Get("older")
	if newer != "" && older != "" {
		return q
	}
	q.Newer = parseAnchor(newer)
	q.Older = parseAnchor(older)
	return q
}

func parseAnchor(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// Query returns one page of posts, newest first. It never fails: anchors
// outside the index or a category nobody uses yield an empty page.
func (x *Index) Query(q Query) []post.Post {
	s := x.snap.Load()

	counter := x.capacity
	if q.Limit > 0 && q.Limit < counter {
		counter = q.Limit
	}

	i, step := 0, 1
	switch {
	case q.Newer != nil && q.Older != nil:
		// Both anchors set: fall back to the first page.
	case q.Newer != nil:
		i, step = *q.Newer-1, -1
	case q.Older != nil:
		i = *q.Older + 1
	}

	results := make([]post.Post, 0, counter)
	if q.Category != "" {
		bm, ok := s.categories[q.Category]
		if !ok {
			return results
		}
		for ; i >= 0 && i < len(s.ordered) && counter > 0; i += step {
			if !bm.Contains(uint32(i)) {
				continue
			}
			results = append(results, *s.posts[s.ordered[i]])
			counter--
		}
	} else {
		for ; i >= 0 && i < len(s.ordered) && counter > 0; i += step {
			results = append(results, *s.posts[s.ordered[i]])
			counter--
		}
	}

	if step == -1 {
		for l, r := 0, len(results)-1; l < r; l, r = l+1, r-1 {
			results[l], results[r] = results[r], results[l]
		}
	}
	return results
}
