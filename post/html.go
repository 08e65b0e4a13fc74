package post

import (
	"bytes"
	"html/template"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseHTML extracts a post from an HTML document. The first <h1> is the
// title, #blurb the teaser, <body> the content; <meta name="date"> and
// <meta name="keywords"> carry the publication date and tags.
func parseHTML(data []byte) (*Post, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var (
		p     Post
		title *html.Node
		blurb *html.Node
		body  *html.Node
	)
	walk(doc, func(n *html.Node) {
		switch n.DataAtom {
		case atom.H1:
			if title == nil {
				title = n
			}
		case atom.Body:
			if body == nil {
				body = n
			}
		case atom.Meta:
			switch attr(n, "name") {
			case "date":
				if t, ok := parseDate(attr(n, "content")); ok {
					p.PublishedAt = t
				}
			case "keywords":
				p.Tags = SplitTags(attr(n, "content"))
			}
		}
		if blurb == nil && attr(n, "id") == "blurb" {
			blurb = n
		}
	})

	if title == nil || body == nil {
		return nil, ErrInvalid
	}
	p.Title = template.HTML(innerHTML(title))
	p.Body = template.HTML(innerHTML(body))
	if p.Title == "" || p.Body == "" {
		return nil, ErrInvalid
	}
	if blurb != nil {
		p.Blurb = template.HTML(innerHTML(blurb))
	}
	return &p, nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return strings.TrimSpace(buf.String())
}
