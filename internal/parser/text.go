package parser

import (
	"io"

	"github.com/dgallion1/syllabus/internal/document"
)

// TextParser handles plain text files. The text is kept as is apart from
// encoding and line ending normalisation.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw, err := decodeText(src)
	if err != nil {
		return nil, err
	}
	return document.FromFile(filename, raw), nil
}
