package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/syllabus/internal/course"
	"github.com/dgallion1/syllabus/internal/escalate"
	"github.com/dgallion1/syllabus/internal/oracle"
	"github.com/dgallion1/syllabus/internal/parser"
	"github.com/dgallion1/syllabus/internal/pipeline"
	"github.com/dgallion1/syllabus/internal/record"
	"github.com/dgallion1/syllabus/internal/store"
)

func syllabusFor(code, name string) string {
	return "# 《" + name + "》课程教学大纲\n\n课程代码：**" + code + "**\n\n一、课程目标\n\n1. 掌握基本概念。\n"
}

func testProcessor() *pipeline.Processor {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := oracle.Func(func(_ context.Context, req oracle.Request) (string, error) {
		if req.Task == "goals" {
			return `{"overview":"","goals":[{"number":1,"content":"掌握基本概念。"}]}`, nil
		}
		return "", errors.New("offline")
	})
	asm := course.NewAssembler(o, escalate.New(o, nil, log), log)
	return pipeline.NewProcessor(asm, parser.Options{}, log)
}

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunBatch_CountsAndSkips(t *testing.T) {
	in := writeInputs(t, map[string]string{
		"061_程序设计基础.md": syllabusFor("A2301210", "程序设计基础"),
		"070_数据结构.md":   syllabusFor("A2301220", "数据结构"),
		"broken.docx":   "not a zip archive",
		"notes.csv":     "ignored",
	})
	files, err := store.NewFileStore(filepath.Join(t.TempDir(), "json"))
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	proc := testProcessor()

	// A record from an earlier run for one of the inputs.
	if _, err := files.Put(context.Background(), &record.CourseRecord{
		FileName: "061_程序设计基础.md", Code: "A2301210", Name: "程序设计基础",
	}); err != nil {
		t.Fatal(err)
	}

	res, err := runBatch(context.Background(), batchOptions{In: in, Workers: 2, SkipExisting: true}, proc, files, []store.Sink{files}, log)
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if res.Total != 3 || res.Succeeded != 1 || res.Failed != 1 || res.Skipped != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	rec, err := files.Load("A2301220_数据结构.json")
	if err != nil {
		t.Fatalf("expected stored record: %v", err)
	}
	if rec.FileName != "070_数据结构.md" || len(rec.Goals.Goals) != 1 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestRunBatch_SkipsExistingCourseFile(t *testing.T) {
	in := writeInputs(t, map[string]string{"copy_of_061.md": syllabusFor("A2301210", "程序设计基础")})
	files, _ := store.NewFileStore(t.TempDir())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := files.Put(context.Background(), &record.CourseRecord{
		FileName: "061_程序设计基础.md", Code: "A2301210", Name: "程序设计基础",
	}); err != nil {
		t.Fatal(err)
	}

	res, err := runBatch(context.Background(), batchOptions{In: in, SkipExisting: true}, testProcessor(), files, []store.Sink{files}, log)
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if res.Total != 1 || res.Skipped != 1 || res.Succeeded != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	rec, err := files.Load("A2301210_程序设计基础.json")
	if err != nil {
		t.Fatal(err)
	}
	if rec.FileName != "061_程序设计基础.md" {
		t.Errorf("existing record overwritten by %q", rec.FileName)
	}
}

func TestRunBatch_WithoutSkip(t *testing.T) {
	in := writeInputs(t, map[string]string{"a.md": syllabusFor("A2301210", "程序设计基础")})
	files, _ := store.NewFileStore(t.TempDir())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	proc := testProcessor()

	for range 2 {
		res, err := runBatch(context.Background(), batchOptions{In: in}, proc, files, []store.Sink{files}, log)
		if err != nil {
			t.Fatalf("runBatch: %v", err)
		}
		if res.Succeeded != 1 || res.Skipped != 0 {
			t.Errorf("unexpected result %+v", res)
		}
	}
}

func TestRunBatch_MissingDir(t *testing.T) {
	files, _ := store.NewFileStore(t.TempDir())
	_, err := runBatch(context.Background(), batchOptions{In: filepath.Join(t.TempDir(), "nope")}, testProcessor(), files, nil, slog.Default())
	if err == nil {
		t.Error("expected error for missing input dir")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "text", "warn")
	log.Info("hidden")
	log.Warn("shown")
	out := buf.String()
	if bytes.Contains([]byte(out), []byte("hidden")) || !bytes.Contains([]byte(out), []byte("level=WARN")) {
		t.Errorf("unexpected text log output %q", out)
	}

	buf.Reset()
	newLogger(&buf, "json", "bogus").Info("x")
	if !bytes.HasPrefix(buf.Bytes(), []byte("{")) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
