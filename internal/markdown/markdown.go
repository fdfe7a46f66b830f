// Package markdown renders note text to the HTML stored alongside it.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// GitHub-flavoured: tables, strikethrough, task lists and autolinks. Raw HTML
// in the source is omitted from the output.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Render converts Markdown text to HTML. It is safe for concurrent use.
func Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
