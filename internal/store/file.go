// Package store persists course records.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/syllabus/internal/record"
)

// Sink receives finished course records.
type Sink interface {
	Put(ctx context.Context, rec *record.CourseRecord) (string, error)
	Name() string
}

// ErrNotFound is returned for a record file that does not exist.
var ErrNotFound = errors.New("record not found")

// FileStore writes one pretty-printed JSON file per course, named
// {code}_{name}.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Name() string { return "file" }

// Dir returns the output directory.
func (s *FileStore) Dir() string { return s.dir }

// Filename returns the file name a record is stored under.
func Filename(rec *record.CourseRecord) string {
	code := rec.Code
	if code == "" {
		code = record.NotFound
	}
	name := rec.Name
	if name == "" {
		name = record.NotFound
	}
	return sanitizeFilename(code+"_"+name) + ".json"
}

// Put writes the record and returns its file name.
func (s *FileStore) Put(_ context.Context, rec *record.CourseRecord) (string, error) {
	data, err := Marshal(rec)
	if err != nil {
		return "", err
	}
	name := Filename(rec)
	path := filepath.Join(s.dir, name)
	f, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmp := f.Name()
	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmp, 0o644)
	}
	if werr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", name, werr)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return name, nil
}

// Marshal encodes a record as indented UTF-8 JSON without HTML escaping.
func Marshal(rec *record.CourseRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// Exists reports whether a file for the record is already present.
func (s *FileStore) Exists(rec *record.CourseRecord) bool {
	_, err := os.Stat(filepath.Join(s.dir, Filename(rec)))
	return err == nil
}

// Load reads a stored record by file name.
func (s *FileStore) Load(name string) (*record.CourseRecord, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var rec record.CourseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &rec, nil
}

// Delete removes a stored record by file name.
func (s *FileStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Entry summarises one stored record.
type Entry struct {
	File       string `json:"file"`
	Code       string `json:"course_code"`
	Name       string `json:"course_name"`
	SourceFile string `json:"file_name"`
	Tables     int    `json:"tables"`
}

// List returns every stored record, sorted by file name. Unreadable files
// are skipped.
func (s *FileStore) List() ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		rec, err := s.Load(name)
		if err != nil {
			continue
		}
		out = append(out, Entry{
			File:       name,
			Code:       rec.Code,
			Name:       rec.Name,
			SourceFile: rec.FileName,
			Tables:     len(rec.RequirementMappings),
		})
	}
	return out, nil
}

// Sources returns the source file names of every stored record, so that a
// batch run can skip inputs it already processed.
func (s *FileStore) Sources() (map[string]bool, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.SourceFile != "" {
			out[e.SourceFile] = true
		}
	}
	return out, nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		return "", fmt.Errorf("invalid record name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// sanitizeFilename replaces characters that are unsafe in file names.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
