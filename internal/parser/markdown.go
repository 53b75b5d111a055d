package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/syllabus/internal/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser keeps Markdown verbatim and records its heading outline
// using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw, err := decodeText(src)
	if err != nil {
		return nil, err
	}

	doc := document.FromFile(filename, raw)
	doc.Headings = Headings([]byte(raw))
	return doc, nil
}

// Headings returns the ATX and setext headings of a Markdown source in
// document order.
func Headings(src []byte) []document.Heading {
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []document.Heading
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := strings.TrimSpace(inlineText(h, src))
		if title != "" {
			out = append(out, document.Heading{Level: h.Level, Text: title})
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

// inlineText concatenates the text segments below n, dropping emphasis
// markers.
func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}
