package richtext

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// FromMarkdown converts markdown (LLM answers, bot replies) to HTML suitable
// for a Matrix formatted_body or a definition panel.
func FromMarkdown(md string) string {
	// Parser is single use
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	opts := html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank}
	renderer := html.NewRenderer(opts)

	return strings.TrimSpace(string(markdown.Render(doc, renderer)))
}
