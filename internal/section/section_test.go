package section

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/syllabus/internal/document"
)

const syllabus = `# 《程序设计基础》课程教学大纲

|课程代码|A2301210|

一、课程目标

本课程拟通过教学活动，达到以下课程目标：
1. 掌握基本语法。
2. 能够编写程序。

二、课程目标与毕业要求对应关系

表1 计算机科学与技术专业课程目标与毕业要求对应关系

|毕业要求|指标点|课程目标|
|---|---|---|
|1 工程知识|1-2|目标1|

三、课程内容与基本要求

（略）

四、与其他课程的联系

先修课程：高等数学
后续课程：数据结构

五、考核方式
`

func TestLocate_Goals(t *testing.T) {
	doc := document.New("k", syllabus)
	sec, ok := Locate(doc, Goals)
	if !ok {
		t.Fatal("expected goals section")
	}
	text := sec.Text()
	if !strings.HasPrefix(text, "一、课程目标") {
		t.Errorf("expected section to start at heading, got %q", text)
	}
	if strings.Contains(text, "二、") {
		t.Errorf("expected section to stop before chapter two, got %q", text)
	}
	if !strings.Contains(text, "能够编写程序") {
		t.Errorf("expected goal body in section, got %q", text)
	}
}

func TestLocate_GoalsStopsAtNearestMarker(t *testing.T) {
	// The later-listed "教学方法" rule appears first in the text and bounds the section.
	text := "一、课程目标\n目标一\n教学方法\n讲授\n二、其他"
	sec, ok := Locate(document.New("k", text), Goals)
	if !ok {
		t.Fatal("expected goals section")
	}
	if got := sec.Text(); got != "一、课程目标\n目标一" {
		t.Errorf("unexpected section text %q", got)
	}
}

func TestLocate_GoalsBrokenCourseContent(t *testing.T) {
	text := "一、课程目标\n目标一\n课\n\n程内容与基本要求\n内容"
	sec, ok := Locate(document.New("k", text), Goals)
	if !ok {
		t.Fatal("expected goals section")
	}
	if got := sec.Text(); got != "一、课程目标\n目标一" {
		t.Errorf("unexpected section text %q", got)
	}
}

func TestLocate_Absent(t *testing.T) {
	doc := document.New("k", "没有任何章节标题的文档")
	for _, kind := range []Kind{Goals, RequirementMapping, Relations} {
		if _, ok := Locate(doc, kind); ok {
			t.Errorf("expected %s to be absent", kind)
		}
	}
}

func TestLocate_EndNeverPrecedesStart(t *testing.T) {
	inputs := []string{syllabus, "二、", "三、二、三、", "一、课程目标", "四、与其它课程的联系"}
	for _, in := range inputs {
		doc := document.New("k", in)
		for _, kind := range []Kind{Identity, Goals, RequirementMapping, Relations} {
			sec, ok := Locate(doc, kind)
			if ok && sec.End < sec.Start {
				t.Errorf("%s in %q: end %d precedes start %d", kind, in, sec.End, sec.Start)
			}
		}
	}
}

func TestLocate_RequirementMapping(t *testing.T) {
	sec, ok := Locate(document.New("k", syllabus), RequirementMapping)
	if !ok {
		t.Fatal("expected mapping section")
	}
	if sec.Rule != "mapping heading" {
		t.Errorf("expected specific heading rule, got %q", sec.Rule)
	}
	text := sec.Text()
	if !strings.HasPrefix(text, "二、课程目标与毕业要求对应关系") || strings.Contains(text, "三、") {
		t.Errorf("unexpected section text %q", text)
	}
	if err := CheckMapping(sec); err != nil {
		t.Errorf("expected valid mapping section, got %v", err)
	}
}

func TestLocate_Relations(t *testing.T) {
	sec, ok := Locate(document.New("k", syllabus), Relations)
	if !ok {
		t.Fatal("expected relations section")
	}
	text := sec.Text()
	if !strings.HasPrefix(text, "四、与其他课程的联系") {
		t.Errorf("unexpected start %q", text)
	}
	if strings.Contains(text, "考核方式") {
		t.Errorf("expected section to stop at next chapter, got %q", text)
	}
}

func TestLocate_RelationsEnumeratorStyles(t *testing.T) {
	tests := []struct {
		text string
		rule string
	}{
		{"四与其它课程的联系\n先修：无", "numbered heading"},
		{"（四）与其他课程的联系\n先修：无", "bracketed heading"},
		{"4. 与其他课程的联系\n先修：无", "arabic heading"},
	}
	for _, tc := range tests {
		sec, ok := Locate(document.New("k", tc.text), Relations)
		if !ok {
			t.Errorf("expected relations in %q", tc.text)
			continue
		}
		if sec.Rule != tc.rule {
			t.Errorf("%q: expected rule %q, got %q", tc.text, tc.rule, sec.Rule)
		}
	}
}

func TestLocate_IdentityPrefix(t *testing.T) {
	lines := make([]string, 1000)
	for i := range lines {
		lines[i] = "行"
	}
	doc := document.New("k", strings.Join(lines, "\n"))
	sec, ok := Locator{IdentityLines: 10}.Locate(doc, Identity)
	if !ok {
		t.Fatal("identity is always present")
	}
	if n := strings.Count(sec.Text(), "\n"); n != 9 {
		t.Errorf("expected 10 lines, got %d newlines", n)
	}

	sec, _ = Locate(doc, Identity)
	if n := strings.Count(sec.Text(), "\n"); n != IdentityPrefixLines-1 {
		t.Errorf("expected default prefix of %d lines, got %d newlines", IdentityPrefixLines, n)
	}
}

func TestKindString(t *testing.T) {
	if Goals.String() != "goals" || Kind(99).String() != "unknown" {
		t.Error("unexpected kind names")
	}
}

func mappingSection(t *testing.T, text string) Section {
	t.Helper()
	sec, ok := Locate(document.New("k", text), RequirementMapping)
	if !ok {
		t.Fatalf("expected mapping section in %q", text)
	}
	return sec
}

func TestCheckMapping_Declarations(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not described", "因各专业毕业要求各异，此不做描述。", "not described"},
		{"alt wording", "此处不作描述。", "not described alt"},
		{"none yet", "暂无。", "none yet"},
		{"bare none", "无", "none"},
		{"none with stop", "无。", "none with stop"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text := "二、课程目标与毕业要求对应关系\n" + tc.body + "\n\n|毕业要求|指标点|\n|---|---|\n|1|1-1|\n三、内容"
			sec := mappingSection(t, text)
			if err := CheckMapping(sec); !errors.Is(err, ErrEmptyByDeclaration) {
				t.Errorf("expected ErrEmptyByDeclaration, got %v", err)
			}
			if got := Disqualifier(sec); got != tc.want {
				t.Errorf("expected rule %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCheckMapping_DeclarationOutsideWindowIgnored(t *testing.T) {
	text := "二、课程目标与毕业要求对应关系\n" + strings.Repeat("说", 250) + "不做描述\n|a|b|\n"
	if err := CheckMapping(mappingSection(t, text)); err != nil {
		t.Errorf("expected declaration past window to be ignored, got %v", err)
	}
}

func TestCheckMapping_NoPipe(t *testing.T) {
	text := "二、课程目标与毕业要求对应关系\n见教务系统。\n三、内容"
	if err := CheckMapping(mappingSection(t, text)); !errors.Is(err, ErrEmptyByDeclaration) {
		t.Errorf("expected ErrEmptyByDeclaration, got %v", err)
	}
}

func TestCheckMapping_WrongHeading(t *testing.T) {
	text := "二、课程内容\n|a|b|\n三、考核"
	if err := CheckMapping(mappingSection(t, text)); !errors.Is(err, ErrNotMappingSection) {
		t.Errorf("expected ErrNotMappingSection, got %v", err)
	}
}

func TestCheckMapping_NoneInsideSentenceAllowed(t *testing.T) {
	text := "二、课程目标与毕业要求对应关系\n本课程无先修要求，对应关系见下表。\n|a|b|\n三、"
	if err := CheckMapping(mappingSection(t, text)); err != nil {
		t.Errorf("expected valid section, got %v", err)
	}
}
