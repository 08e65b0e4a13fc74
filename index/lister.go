package index

import (
	"os"
	"strings"
)

// Lister enumerates the post files directly inside a directory.
type Lister interface {
	List(dir string) ([]Entry, error)
}

// DirLister lists regular files with os.ReadDir. Subdirectories and
// dot-files (editor swap files, .DS_Store) are skipped.
type DirLister struct{}

// List implements Lister.
func (DirLister) List(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: de.Name(), ModTime: info.ModTime()})
	}
	return entries, nil
}
