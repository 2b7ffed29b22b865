package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// heading is a markdown heading with the byte offset of its text in the
// source document.
type heading struct {
	offset int
	text   string
}

var markdown = goldmark.New()

// scanHeadings parses the document and returns all headings in source order.
// Using the AST rather than a line regex means '#' inside fenced code blocks
// is not mistaken for a heading.
func scanHeadings(source string) []heading {
	content := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(content))

	var headings []heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		headingText := extractText(h, content)
		if headingText == "" {
			return ast.WalkContinue, nil
		}
		headings = append(headings, heading{
			offset: lines.At(0).Start,
			text:   headingText,
		})
		return ast.WalkContinue, nil
	})

	return headings
}

// extractText collects the plain text content of a node and its children.
func extractText(n ast.Node, content []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(content))
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
