package plainblog

import (
	"path/filepath"
	"strings"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// validFileName reports whether name can be used as a file directly inside
// a managed directory: a plain base name that the directory lister would not
// skip.
func validFileName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return false
	}
	return true
}

// postFileName names a new post after its date and title.
func postFileName(date, title string) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "untitled"
	}
	return date + "-" + slug + ".html"
}
