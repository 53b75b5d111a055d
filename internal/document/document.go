package document

import (
	"path/filepath"
	"strings"
)

// Document is the raw text of one converted syllabus. It is never modified
// after construction; sections refer back into it by byte offset.
type Document struct {
	Key      string    // Derived from the source filename
	Filename string    // Base name of the source file, if any
	Text     string    // Full raw text
	Headings []Heading // Heading outline (Markdown sources only)
}

// Heading is a single entry of the document outline.
type Heading struct {
	Level int
	Text  string
}

// New creates a document from raw text.
func New(key, text string) *Document {
	return &Document{Key: key, Text: text}
}

// FromFile creates a document for a named source file.
func FromFile(filename, text string) *Document {
	return &Document{Key: KeyFromFilename(filename), Filename: filepath.Base(filename), Text: text}
}

// KeyFromFilename strips directories and the extension from a source filename.
func KeyFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
