// Package post defines the blog post record and the loaders that build one
// from a source file on disk.
package post

import (
	"errors"
	"html/template"
	"time"
)

// ErrInvalid is returned when a file parses but lacks a title or body.
var ErrInvalid = errors.New("post: missing title or body")

// Post is one parsed blog post file.
type Post struct {
	// Identifier is the file's base name, e.g. "2024-01-05-hello.html".
	Identifier string
	// Ordinal is the zero-based newest-first rank assigned by the index.
	Ordinal int

	Title template.HTML
	Blurb template.HTML
	Body  template.HTML

	PublishedAt time.Time
	Tags        []string
	ModifiedAt  time.Time
}

// HasTag reports whether tag is one of the post's tags.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Loader materializes a Post from a file path.
type Loader interface {
	Load(path string) (*Post, error)
}
