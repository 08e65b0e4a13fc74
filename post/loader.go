package post

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FileLoader loads posts from disk, choosing the parser by file extension:
// Markdown for .md and .markdown, HTML for everything else.
type FileLoader struct{}

// Load reads and parses the file at path. The returned Post carries the
// file's base name as Identifier and its modification time as ModifiedAt.
func (FileLoader) Load(path string) (*Post, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p *Post
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		p, err = parseMarkdown(data)
	default:
		p, err = parseHTML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Identifier = filepath.Base(path)
	p.ModifiedAt = info.ModTime()
	if p.PublishedAt.IsZero() {
		p.PublishedAt = dateFromName(p.Identifier)
	}
	return p, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateFromName extracts a leading YYYY-MM-DD stamp from a file name.
func dateFromName(name string) time.Time {
	const stamp = "2006-01-02"
	if len(name) < len(stamp) {
		return time.Time{}
	}
	t, err := time.Parse(stamp, name[:len(stamp)])
	if err != nil {
		return time.Time{}
	}
	return t
}

// SplitTags splits a comma-separated keyword list, trimming blanks and
// dropping duplicates while keeping the original order.
func SplitTags(s string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}
