package record

import (
	"regexp"
	"strings"
)

// titleMajorPattern captures the program name between the table number and
// the "专业" marker, e.g. "表6 智能制造（机械类）专业课程目标…" → "智能制造（机械类）".
var titleMajorPattern = regexp.MustCompile(`表\s*[\*\d\-]+\**\s*(?:课程目标与)?(.+?)专业`)

// MajorFromTitle extracts the program name embedded in a table title.
func MajorFromTitle(title string) (string, bool) {
	m := titleMajorPattern.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	major := strings.TrimSpace(m[1])
	if major == "" {
		return "", false
	}
	return major, true
}

// MajorConsistent checks that the declared major matches the program named in
// the title. Records without a recognisable program name in the title pass.
func MajorConsistent(r RequirementMappingRecord) bool {
	want, ok := MajorFromTitle(r.Title)
	if !ok {
		return true
	}
	got := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(r.Major), "专业"))
	if got == "" {
		return false
	}
	return got == want || strings.Contains(want, got) || strings.Contains(got, want)
}

// CleanMapping trims whitespace in place and guarantees non-nil slices so
// that records serialize as [] rather than null.
func CleanMapping(r *RequirementMappingRecord) {
	if r == nil {
		return
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Major = strings.TrimSpace(r.Major)
	if r.Mappings == nil {
		r.Mappings = []Mapping{}
	}
	for i := range r.Mappings {
		m := &r.Mappings[i]
		m.RequirementNumber = Text(strings.TrimSpace(string(m.RequirementNumber)))
		m.Requirement = strings.TrimSpace(m.Requirement)
		m.Indicator = strings.TrimSpace(m.Indicator)
		m.CourseGoals = strings.TrimSpace(m.CourseGoals)
	}
}

// CleanGoals trims goal text and drops goals without content.
func CleanGoals(g *Goals) {
	g.Overview = strings.TrimSpace(g.Overview)
	kept := make([]Goal, 0, len(g.Goals))
	for _, goal := range g.Goals {
		goal.Number = Text(strings.TrimSpace(string(goal.Number)))
		goal.Content = strings.TrimSpace(goal.Content)
		if goal.Content == "" {
			continue
		}
		kept = append(kept, goal)
	}
	g.Goals = kept
}
