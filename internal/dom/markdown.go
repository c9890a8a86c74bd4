package dom

import (
	"fmt"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// MarkdownWriter is an element for terminals: each new content is
// converted to Markdown and written out.
type MarkdownWriter struct {
	w io.Writer
}

// NewMarkdownWriter writes rendered content to w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{w: w}
}

// SetHTML converts markup and writes it, falling back to the raw markup if
// conversion fails.
func (m *MarkdownWriter) SetHTML(markup string) {
	fmt.Fprintf(m.w, "\n%s\n", ToMarkdown(markup))
}

// ToMarkdown converts rendered markup to trimmed Markdown.
func ToMarkdown(markup string) string {
	md, err := htmltomarkdown.ConvertString(markup)
	if err != nil {
		return markup
	}
	return strings.TrimSpace(md)
}
