package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/syllabus/internal/config"
	"github.com/dgallion1/syllabus/internal/course"
	"github.com/dgallion1/syllabus/internal/escalate"
	"github.com/dgallion1/syllabus/internal/oracle"
	"github.com/dgallion1/syllabus/internal/parser"
	"github.com/dgallion1/syllabus/internal/pathstore"
	"github.com/dgallion1/syllabus/internal/record"
	"github.com/dgallion1/syllabus/internal/store"
)

const dataStructures = `# 《数据结构》课程教学大纲

课程代码：**A2301220**

一、课程目标

1. 掌握线性表。

二、课程目标与毕业要求对应关系

表1 软件工程专业课程目标与毕业要求对应关系

|毕业要求|指标点|课程目标|
|---|---|---|
|1 工程知识|1-2|目标1|

三、课程内容与基本要求

四、与其他课程的联系

先修课程：程序设计基础
`

var answers = map[string]string{
	"goals":     `{"overview":"达到以下目标：","goals":[{"number":1,"content":"掌握线性表。"}]}`,
	"table":     `{"table_title":"表1 软件工程专业课程目标与毕业要求对应关系","major":"软件工程","mappings":[{"requirement_number":"1","requirement":"工程知识","indicator":"1-2","course_goals":"目标1"}]}`,
	"relations": `{"prerequisite_courses":["程序设计基础"],"subsequent_courses":[],"description":""}`,
}

type countingOracle struct {
	mu    sync.Mutex
	calls int
	down  bool
}

func (o *countingOracle) Name() string { return "test" }

func (o *countingOracle) Complete(_ context.Context, req oracle.Request) (string, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	if o.down {
		return "", errors.New("connection refused")
	}
	if a, ok := answers[req.Task]; ok {
		return a, nil
	}
	return "", errors.New("unexpected task " + req.Task)
}

func (o *countingOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type fakeSink struct {
	name string
	errs []error // returned in order; nil once exhausted
	puts int
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Put(_ context.Context, rec *record.CourseRecord) (string, error) {
	s.puts++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return rec.Code, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProcessor(o oracle.Oracle) *Processor {
	log := discard()
	ctl := escalate.New(o, nil, log).WithMinTables(1)
	return NewProcessor(course.NewAssembler(o, ctl, log), parser.Options{}, log)
}

func newWorker(o oracle.Oracle, jobs *JobStore, sinks ...store.Sink) *Worker {
	w := NewWorker(newProcessor(o), sinks, jobs, discard())
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func TestWorker_Completed(t *testing.T) {
	sink := &fakeSink{name: "mem"}
	w := newWorker(&countingOracle{}, nil, sink)
	job := NewJob("ds.md", []byte(dataStructures))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (errors %v, degraded %v)", snap.Status, snap.Progress.Errors, snap.Progress.Degraded)
	}
	if snap.Progress.CourseCode != "A2301220" || snap.Progress.CourseName != "数据结构" || snap.Progress.Tables != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if len(snap.Progress.Outputs) != 1 || snap.Progress.Outputs[0] != "mem:A2301220" {
		t.Errorf("unexpected outputs %v", snap.Progress.Outputs)
	}
	if snap.ContentHash != ContentHashHex([]byte(dataStructures)) {
		t.Error("expected content hash of parsed text")
	}
	if job.FileData() != nil {
		t.Error("expected file data to be released after parsing")
	}
	if rec := job.Record(); rec == nil || rec.Relations.Prerequisites[0] != "程序设计基础" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestWorker_UnsupportedFormat(t *testing.T) {
	sink := &fakeSink{name: "mem"}
	w := newWorker(&countingOracle{}, nil, sink)
	job := NewJob("grades.csv", []byte("a,b"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("expected failed parsing, got %s/%s", snap.Status, snap.Phase)
	}
	if sink.puts != 0 || job.Record() != nil {
		t.Error("expected nothing to be assembled or stored")
	}
}

func TestWorker_RetriesTransientSinkErrors(t *testing.T) {
	sink := &fakeSink{name: "pathstore", errs: []error{
		&pathstore.StatusError{Op: "put", StatusCode: http.StatusServiceUnavailable},
	}}
	w := newWorker(&countingOracle{}, nil, sink)
	job := NewJob("ds.md", []byte(dataStructures))

	w.Process(context.Background(), job)

	if sink.puts != 2 {
		t.Errorf("expected one retry, got %d puts", sink.puts)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed, got %s", s)
	}
}

func TestWorker_PermanentSinkErrorNotRetried(t *testing.T) {
	bad := &fakeSink{name: "pathstore", errs: []error{
		&pathstore.StatusError{Op: "put", StatusCode: http.StatusBadRequest},
	}}
	good := &fakeSink{name: "file"}
	w := newWorker(&countingOracle{}, nil, good, bad)
	job := NewJob("ds.md", []byte(dataStructures))

	w.Process(context.Background(), job)

	if bad.puts != 1 {
		t.Errorf("expected no retry for 400, got %d puts", bad.puts)
	}
	snap := job.Snapshot()
	if snap.Status != StatusPartial || len(snap.Progress.Errors) != 1 {
		t.Errorf("expected partial with one error, got %s %v", snap.Status, snap.Progress.Errors)
	}
}

func TestWorker_AllSinksFail(t *testing.T) {
	sink := &fakeSink{name: "file", errs: []error{errors.New("disk full")}}
	w := newWorker(&countingOracle{}, nil, sink)
	job := NewJob("ds.md", []byte(dataStructures))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "storing" {
		t.Errorf("expected failed storing, got %s/%s", snap.Status, snap.Phase)
	}
}

func TestWorker_OracleDownIsPartial(t *testing.T) {
	sink := &fakeSink{name: "file"}
	w := newWorker(&countingOracle{down: true}, nil, sink)
	job := NewJob("ds.md", []byte(dataStructures))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", snap.Status)
	}
	if len(snap.Progress.Degraded) == 0 {
		t.Error("expected degraded facets")
	}
	if sink.puts != 1 {
		t.Error("expected degraded record to still be stored")
	}
}

func TestWorker_DuplicateReusesRecord(t *testing.T) {
	o := &countingOracle{}
	jobs := NewJobStore(time.Hour)
	sink := &fakeSink{name: "file"}
	w := newWorker(o, jobs, sink)

	first := NewJob("ds.md", []byte(dataStructures))
	jobs.Put(first)
	w.Process(context.Background(), first)
	calls := o.Calls()

	second := NewJob("copy.md", []byte(dataStructures))
	jobs.Put(second)
	w.Process(context.Background(), second)

	if s := second.Snapshot().Status; s != StatusDupSkipped {
		t.Fatalf("expected duplicate_skipped, got %s", s)
	}
	if o.Calls() != calls {
		t.Error("expected no oracle calls for a duplicate")
	}
	if second.Record() != first.Record() {
		t.Error("expected the first record to be reused")
	}
	if sink.puts != 1 {
		t.Errorf("expected a single store, got %d", sink.puts)
	}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkerCount = 2
	cfg.MaxQueueSize = 4
	sink := &lockedSink{}
	orch := NewOrchestrator(cfg, newProcessor(&countingOracle{}), []store.Sink{sink}, discard())
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob("ds.md", []byte(dataStructures))
	if err := orch.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if orch.GetJob(job.ID) != job {
		t.Fatal("expected job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %s", job.Snapshot().Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed, got %s", s)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxQueueSize = 1
	// Not started, so nothing drains the queue.
	orch := NewOrchestrator(cfg, newProcessor(&countingOracle{}), nil, discard())

	if err := orch.Submit(NewJob("a.md", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob("b.md", nil)
	if err := orch.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if s := second.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("unexpected status %s/%s", s.Status, s.Phase)
	}
	if orch.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", orch.QueueDepth())
	}
}

type lockedSink struct {
	mu   sync.Mutex
	puts int
}

func (s *lockedSink) Name() string { return "mem" }

func (s *lockedSink) Put(_ context.Context, rec *record.CourseRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	return rec.Code, nil
}
