package post

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/russross/blackfriday/v2"
)

const mdExtensions = blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs | blackfriday.Footnotes

var mdRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
	Flags: blackfriday.CommonHTMLFlags | blackfriday.SmartypantsFractions | blackfriday.SmartypantsLatexDashes,
})

// parseMarkdown reads a header of "key: value" lines, a blank line, and a
// Markdown body. Like an HTML post, the resulting Body is the whole article:
// title heading and blurb come first.
func parseMarkdown(data []byte) (*Post, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	split := bytes.Index(data, []byte("\n\n"))
	if split == -1 {
		return nil, fmt.Errorf("%w: no blank line after header", ErrInvalid)
	}

	var p Post
	for _, line := range strings.Split(string(data[:split]), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: invalid header line %q", ErrInvalid, line)
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			p.Title = template.HTML(html.EscapeString(val))
		case "blurb":
			p.Blurb = template.HTML(html.EscapeString(val))
		case "date":
			if t, ok := parseDate(val); ok {
				p.PublishedAt = t
			}
		case "tags", "categories", "keywords":
			p.Tags = SplitTags(val)
		}
	}

	body := bytes.TrimSpace(data[split+2:])
	if p.Title == "" || len(body) == 0 {
		return nil, ErrInvalid
	}
	rendered := blackfriday.Run(body, blackfriday.WithExtensions(mdExtensions), blackfriday.WithRenderer(mdRenderer))
	var out bytes.Buffer
	fmt.Fprintf(&out, "<h1>%s</h1>\n", p.Title)
	if p.Blurb != "" {
		fmt.Fprintf(&out, "<p id=\"blurb\">%s</p>\n", p.Blurb)
	}
	out.Write(bytes.TrimSpace(rendered))
	p.Body = template.HTML(out.String())
	return &p, nil
}
