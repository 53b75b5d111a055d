package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/syllabus/internal/document"
	"github.com/fumiama/go-docx"
)

// DOCXParser renders .docx files to Markdown-like text. Heading styles
// become ATX headings and tables become pipe rows.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "syllabus-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	d, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var buf strings.Builder
	block := func(s string) {
		if s == "" {
			return
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	for _, item := range d.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it)
			if level := docxHeadingLevel(it); level > 0 && text != "" {
				block(heading(level, text))
			} else {
				block(text)
			}
		case *docx.Table:
			var tb strings.Builder
			renderTable(&tb, docxTableRows(it))
			block(strings.TrimRight(tb.String(), "\n"))
		}
	}

	text := buf.String()
	doc := document.FromFile(filename, text)
	doc.Headings = outline(text)
	return doc, nil
}

func docxTableRows(t *docx.Table) [][]string {
	var rows [][]string
	for _, row := range t.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var paras []string
			for _, para := range cell.Paragraphs {
				if s := docxParagraphText(para); s != "" {
					paras = append(paras, s)
				}
			}
			cells = append(cells, strings.Join(paras, "\n"))
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if strings.HasPrefix(style, "heading") && len(style) == len("heading")+1 {
		if n := style[len(style)-1]; n >= '1' && n <= '6' {
			return int(n - '0')
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
