package main

import (
	"fmt"
	"path/filepath"

	"github.com/disiqueira/gotree/v3"

	"github.com/eringen/plainblog/index"
	"github.com/eringen/plainblog/logger"
	"github.com/eringen/plainblog/post"
	"github.com/eringen/plainblog/views"
)

const uncategorized = "(uncategorized)"

func runTree(args []string) error {
	cfg, err := configFlag("tree", args)
	if err != nil {
		return err
	}
	idx, err := index.New(index.Config{
		Dir:      filepath.Join(cfg.Dir, "posts"),
		Capacity: cfg.PostsPerPage,
	}, index.WithLogger(logger.Discard()))
	if err != nil {
		return err
	}
	fmt.Print(renderTree(cfg.Name, idx))
	return nil
}

// renderTree prints every category with its posts, newest first. Posts
// without tags are grouped under one extra node.
func renderTree(title string, idx *index.Index) string {
	root := gotree.New(fmt.Sprintf("%s (%d posts)", title, idx.Len()))
	for _, tc := range idx.Tags() {
		cat := root.Add(fmt.Sprintf("%s (%d)", tc.Tag, tc.Count))
		for _, p := range categoryPosts(idx, tc.Tag) {
			cat.Add(postLabel(p.Identifier, string(p.Title)))
		}
	}

	var none gotree.Tree
	for _, p := range idx.All() {
		if len(p.Tags) > 0 {
			continue
		}
		if none == nil {
			none = root.Add(uncategorized)
		}
		none.Add(postLabel(p.Identifier, string(p.Title)))
	}
	return root.Print()
}

// categoryPosts pages through one category with older anchors.
func categoryPosts(idx *index.Index, tag string) []post.Post {
	var out []post.Post
	q := index.Query{Category: tag}
	for {
		page := idx.Query(q)
		if len(page) == 0 {
			return out
		}
		out = append(out, page...)
		last := page[len(page)-1].Ordinal
		q.Older = &last
	}
}

func postLabel(id, title string) string {
	return id + "  " + views.StripTags(title)
}
