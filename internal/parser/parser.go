// Package parser converts uploaded syllabus files into documents.
// Markdown and plain text are kept verbatim; other formats are rendered to
// Markdown-like text with tables as pipe rows, so the section and table
// rules apply to every source.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/syllabus/internal/document"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.Document, error)
}

// Options tunes format-specific behaviour.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// Parse picks a parser by extension and runs it.
func Parse(r io.Reader, filename string, opts Options) (*document.Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns src as UTF-8 with Unix line endings. Input that is not
// valid UTF-8 is decoded as GB18030, the usual legacy encoding of Chinese
// office exports.
func decodeText(src []byte) (string, error) {
	src = bytes.TrimPrefix(src, utf8BOM)
	if !utf8.Valid(src) {
		dec, err := simplifiedchinese.GB18030.NewDecoder().Bytes(src)
		if err != nil {
			return "", fmt.Errorf("decode gb18030: %w", err)
		}
		src = dec
	}
	text := strings.ReplaceAll(string(src), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

// renderTable writes rows as a pipe table. The first row is the header.
func renderTable(buf *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return
	}
	writeRow := func(cells []string) {
		buf.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = cleanCell(cells[i])
			}
			buf.WriteString(" " + cell + " |")
		}
		buf.WriteString("\n")
	}
	writeRow(rows[0])
	buf.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
}

func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "|", "｜")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// heading renders a heading line at the given level.
func heading(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

// outline collects the heading lines of rendered text.
func outline(text string) []document.Heading {
	var out []document.Heading
	for _, line := range strings.Split(text, "\n") {
		level := 0
		for level < len(line) && line[level] == '#' {
			level++
		}
		if level == 0 || level > 6 || level >= len(line) || line[level] != ' ' {
			continue
		}
		out = append(out, document.Heading{Level: level, Text: strings.TrimSpace(line[level:])})
	}
	return out
}
