package escalate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/syllabus/internal/document"
	"github.com/dgallion1/syllabus/internal/oracle"
	"github.com/dgallion1/syllabus/internal/record"
	"github.com/dgallion1/syllabus/internal/section"
)

// fakeOracle answers from a function and counts calls per task.
type fakeOracle struct {
	mu     sync.Mutex
	calls  map[string]int
	inputs []string
	answer func(req oracle.Request) (string, error)
}

func newFake(answer func(req oracle.Request) (string, error)) *fakeOracle {
	return &fakeOracle{calls: make(map[string]int), answer: answer}
}

func (f *fakeOracle) Name() string { return "fake" }

func (f *fakeOracle) Complete(ctx context.Context, req oracle.Request) (string, error) {
	f.mu.Lock()
	f.calls[req.Task]++
	f.inputs = append(f.inputs, req.User)
	f.mu.Unlock()
	return f.answer(req)
}

func (f *fakeOracle) count(task string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[task]
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const oneTable = `二、课程目标与毕业要求对应关系

表1 软件工程专业课程目标与毕业要求对应关系

|毕业要求|指标点|课程目标|
|---|---|---|
|1 工程知识|1-2|目标1|

三、课程内容`

const twoTables = `二、课程目标与毕业要求对应关系

表1 软件工程专业课程目标与毕业要求对应关系

|毕业要求|指标点|课程目标|
|---|---|---|
|1 工程知识|1-2|目标1|

表2 智能制造专业课程目标与毕业要求对

应关系

|毕业要求|指标点|课程目标|
|---|---|---|
|3 设计|3-1|目标2|

三、课程内容`

func locate(t *testing.T, text string) (section.Section, bool) {
	t.Helper()
	return section.Locate(document.New("k", text), section.RequirementMapping)
}

const emptyTable = `{"table_title":"表1 软件工程专业课程目标与毕业要求对应关系","major":"软件工程","mappings":[]}`

const goodPair = "```json\n" + `[
 {"table_title":"表1 软件工程专业课程目标与毕业要求对应关系","major":"软件工程","mappings":[{"requirement_number":1,"requirement":"工程知识","indicator":"1-2","course_goals":"目标1"}]},
 {"table_title":"表2 智能制造专业课程目标与毕业要求对应关系","major":"智能制造","mappings":[{"requirement_number":"3","requirement":"设计","indicator":"3-1","course_goals":"目标2"}]}
]` + "\n```"

func tableAnswer(req oracle.Request) (string, error) {
	title := "表1 软件工程专业课程目标与毕业要求对应关系"
	major := "软件工程"
	if strings.Contains(req.User, "表2") {
		title, major = "表2 智能制造专业课程目标与毕业要求对应关系", "智能制造"
	}
	return `{"table_title":"` + title + `","major":"` + major + `","mappings":[{"requirement_number":"1","requirement":"r","indicator":"i","course_goals":"g"}]}`, nil
}

func TestResolve_Absent(t *testing.T) {
	local := newFake(tableAnswer)
	res := New(local, nil, quietLog()).Resolve(context.Background(), section.Section{}, false)
	if res.State != ResolvedEmpty || len(res.Records) != 0 || res.Records == nil {
		t.Errorf("expected empty non-nil result, got %+v", res)
	}
	if local.count("table") != 0 {
		t.Error("expected no oracle calls")
	}
}

func TestResolve_DeclaredEmpty(t *testing.T) {
	text := "二、课程目标与毕业要求对应关系\n因各专业毕业要求各异，此不做描述。\n\n表1 x专业\n|毕业要求|指标点|\n三、"
	sec, ok := locate(t, text)
	local := newFake(tableAnswer)
	remote := newFake(tableAnswer)
	res := New(local, remote, quietLog()).Resolve(context.Background(), sec, ok)
	if res.State != ResolvedEmpty || len(res.Records) != 0 {
		t.Fatalf("expected ResolvedEmpty, got %+v", res)
	}
	if !strings.Contains(res.Reason, "not described") {
		t.Errorf("expected declaration rule in reason, got %q", res.Reason)
	}
	if local.count("table")+remote.count("section") != 0 {
		t.Error("expected no oracle calls")
	}
}

func TestResolve_LocalSucceeds(t *testing.T) {
	sec, ok := locate(t, twoTables)
	local := newFake(tableAnswer)
	remote := newFake(func(oracle.Request) (string, error) { return goodPair, nil })

	res := New(local, remote, quietLog()).Resolve(context.Background(), sec, ok)
	if res.Source != SourceLocal || res.Escalated {
		t.Fatalf("expected local result without escalation, got %+v", res)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if local.count("table") != 2 {
		t.Errorf("expected one local call per table, got %d", local.count("table"))
	}
	if remote.count("section") != 0 {
		t.Error("remote must not be called")
	}
	// The second table reaches the oracle with its broken title repaired.
	var sawRepaired bool
	for _, in := range local.inputs {
		if strings.HasPrefix(in, "表2 智能制造专业课程目标与毕业要求对应关系") {
			sawRepaired = true
		}
	}
	if !sawRepaired {
		t.Errorf("expected repaired title in oracle input, got %q", local.inputs)
	}
}

func TestResolve_ZeroMappingsEscalatesOnce(t *testing.T) {
	sec, ok := locate(t, oneTable)
	local := newFake(func(oracle.Request) (string, error) { return emptyTable, nil })
	remote := newFake(func(req oracle.Request) (string, error) {
		if !strings.Contains(req.User, "|---|") {
			t.Errorf("expected raw section text for remote, got %q", req.User)
		}
		return goodPair, nil
	})

	res := New(local, remote, quietLog()).Resolve(context.Background(), sec, ok)
	if remote.count("section") != 1 {
		t.Fatalf("expected exactly one remote call, got %d", remote.count("section"))
	}
	if !res.Escalated || res.Source != SourceRemote {
		t.Fatalf("expected remote result, got %+v", res)
	}
	if len(res.Records) != 2 || res.Records[0].Mappings[0].RequirementNumber != "1" {
		t.Errorf("unexpected records: %+v", res.Records)
	}
}

func TestResolve_RemoteEmptyKeepsLocal(t *testing.T) {
	sec, ok := locate(t, oneTable)
	local := newFake(tableAnswer)
	remote := newFake(func(oracle.Request) (string, error) { return "[]", nil })

	res := New(local, remote, quietLog()).Resolve(context.Background(), sec, ok)
	if !res.Escalated || res.Source != SourceLocal {
		t.Fatalf("expected escalation with local kept, got %+v", res)
	}
	if len(res.Records) != 1 || len(res.Records[0].Mappings) != 1 {
		t.Errorf("expected local records unchanged, got %+v", res.Records)
	}
}

func TestResolve_RemoteStillFailingKeepsLocal(t *testing.T) {
	sec, ok := locate(t, oneTable)
	local := newFake(tableAnswer)
	remote := newFake(func(oracle.Request) (string, error) { return "[" + emptyTable + "]", nil })

	res := New(local, remote, quietLog()).Resolve(context.Background(), sec, ok)
	if res.Source != SourceLocal || len(res.Records[0].Mappings) != 1 {
		t.Errorf("expected local result kept, got %+v", res)
	}
}

func TestResolve_RemoteErrorKeepsLocal(t *testing.T) {
	sec, ok := locate(t, oneTable)
	local := newFake(tableAnswer)
	remote := newFake(func(oracle.Request) (string, error) {
		return "", &oracle.StatusError{Provider: "deepseek", StatusCode: 503, Message: "busy"}
	})

	res := New(local, remote, quietLog()).Resolve(context.Background(), sec, ok)
	if res.Source != SourceLocal || len(res.Records) != 1 || res.Records[0].Failed() {
		t.Errorf("expected local result kept, got %+v", res)
	}
}

func TestResolve_LocalErrorBecomesFallback(t *testing.T) {
	sec, ok := locate(t, oneTable)
	local := newFake(func(oracle.Request) (string, error) { return "", errors.New("connection refused") })

	res := New(local, nil, quietLog()).Resolve(context.Background(), sec, ok)
	if len(res.Records) != 1 {
		t.Fatalf("expected one fallback record, got %d", len(res.Records))
	}
	r := res.Records[0]
	if !r.Failed() || r.Title != record.FailedTitle || r.Error != "connection refused" {
		t.Errorf("unexpected fallback record %+v", r)
	}
	if !strings.HasPrefix(r.RawText, "表1 软件工程专业") {
		t.Errorf("expected table text in raw_text, got %q", r.RawText)
	}
	if res.Escalated {
		t.Error("expected no escalation without a remote oracle")
	}
}

func TestResolve_MalformedLocalReplacedByRemote(t *testing.T) {
	sec, ok := locate(t, twoTables)
	local := newFake(func(oracle.Request) (string, error) { return "抱歉，我无法解析", nil })
	remote := newFake(func(oracle.Request) (string, error) { return goodPair, nil })

	res := New(local, remote, quietLog()).Resolve(context.Background(), sec, ok)
	if res.Source != SourceRemote || len(res.Records) != 2 {
		t.Errorf("expected remote replacement, got %+v", res)
	}
}

func TestResolve_SingleTableThreshold(t *testing.T) {
	sec, ok := locate(t, oneTable)
	remote := newFake(func(oracle.Request) (string, error) { return "[]", nil })
	c := New(newFake(tableAnswer), remote, quietLog()).WithMinTables(1)

	res := c.Resolve(context.Background(), sec, ok)
	if res.Escalated || remote.count("section") != 0 {
		t.Errorf("expected single table to pass with threshold 1, got %+v", res)
	}
}

func TestDiagnose(t *testing.T) {
	withRows := record.RequirementMappingRecord{Title: "t", Mappings: []record.Mapping{{Requirement: "r"}}}
	empty := record.RequirementMappingRecord{Title: "t", Mappings: []record.Mapping{}}
	failed := record.FallbackMapping("raw", errors.New("x"))

	tests := []struct {
		name string
		recs []record.RequirementMappingRecord
		fail bool
	}{
		{"none", nil, true},
		{"all empty", []record.RequirementMappingRecord{empty, empty}, true},
		{"error marker", []record.RequirementMappingRecord{withRows, withRows, failed}, true},
		{"sentinel title", []record.RequirementMappingRecord{withRows, withRows, {Title: record.FailedTitle, Mappings: []record.Mapping{{}}}}, true},
		{"one good", []record.RequirementMappingRecord{withRows, empty}, true},
		{"two good", []record.RequirementMappingRecord{withRows, withRows, empty}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			why := Diagnose(tc.recs, DefaultMinTables)
			if got := why != ""; got != tc.fail {
				t.Errorf("expected failed=%v, got %v (%q)", tc.fail, got, why)
			}
		})
	}
}

func TestDecodeRecords_SingleObject(t *testing.T) {
	recs, err := DecodeRecords("结果如下：" + emptyTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Major != "软件工程" {
		t.Errorf("unexpected records %+v", recs)
	}

	if _, err := DecodeRecords("no json"); !errors.Is(err, oracle.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}
