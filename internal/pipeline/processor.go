// Package pipeline runs syllabus files through parsing, course assembly and
// storage, either one at a time or through a queued worker pool.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/syllabus/internal/course"
	"github.com/dgallion1/syllabus/internal/document"
	"github.com/dgallion1/syllabus/internal/parser"
	"github.com/dgallion1/syllabus/internal/record"
)

// Processor turns file contents into course records. It is shared by the
// CLI and the HTTP workers and is safe for concurrent use.
type Processor struct {
	assembler *course.Assembler
	opts      parser.Options
	log       *slog.Logger
}

func NewProcessor(a *course.Assembler, opts parser.Options, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{assembler: a, opts: opts, log: log}
}

// Parse converts file contents into a document.
func (p *Processor) Parse(filename string, data []byte) (*document.Document, error) {
	doc, err := parser.Parse(bytes.NewReader(data), filename, p.opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(filename), err)
	}
	return doc, nil
}

// Assemble builds the record of a parsed document.
func (p *Processor) Assemble(ctx context.Context, doc *document.Document) (*record.CourseRecord, course.Report) {
	return p.assembler.AssembleWithReport(ctx, doc)
}

// Process parses and assembles one file. Only unreadable input is an
// error; extraction problems degrade individual facets instead.
func (p *Processor) Process(ctx context.Context, filename string, data []byte) (*record.CourseRecord, course.Report, error) {
	doc, err := p.Parse(filename, data)
	if err != nil {
		return nil, course.Report{}, err
	}
	rec, rep := p.Assemble(ctx, doc)
	return rec, rep, nil
}

// ProcessFile reads and processes a file from disk.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*record.CourseRecord, course.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, course.Report{}, fmt.Errorf("read %s: %w", path, err)
	}
	return p.Process(ctx, path, data)
}
