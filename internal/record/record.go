package record

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Sentinel values carried by degraded facets.
const (
	NotFound        = "未找到"
	GoalsNotFound   = "未找到课程目标章节"
	FailedTitle     = "解析失败"
	UnknownMajor    = "未知"
	RawTextLimit    = 500
	TimestampLayout = "2006-01-02 15:04:05"
)

// CourseRecord is the assembled output for one syllabus.
type CourseRecord struct {
	FileName            string                     `json:"file_name"`
	ProcessedAt         string                     `json:"processed_at"`
	Name                string                     `json:"course_name"`
	Code                string                     `json:"course_code"`
	Goals               Goals                      `json:"course_goals"`
	RequirementMappings []RequirementMappingRecord `json:"requirement_mappings"`
	Relations           Relations                  `json:"course_relations"`
}

// Goals is the course objectives facet.
type Goals struct {
	Overview string `json:"overview"`
	Goals    []Goal `json:"goals"`
}

// Goal is one numbered course objective.
type Goal struct {
	Number  Text   `json:"number"`
	Content string `json:"content"`
}

// RequirementMappingRecord is one graduation-requirement table.
type RequirementMappingRecord struct {
	Title    string    `json:"table_title"`
	Major    string    `json:"major"`
	Mappings []Mapping `json:"mappings"`

	// Set only on fallback records produced when structuring failed.
	RawText string `json:"raw_text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Mapping is one row of a requirement mapping table.
type Mapping struct {
	RequirementNumber Text   `json:"requirement_number"`
	Requirement       string `json:"requirement"`
	Indicator         string `json:"indicator"`
	CourseGoals       string `json:"course_goals"`
}

// Relations lists the neighbouring courses.
type Relations struct {
	Prerequisites []string `json:"prerequisite_courses"`
	Subsequent    []string `json:"subsequent_courses"`
	Description   string   `json:"description"`
}

// Failed reports whether the record is a structuring fallback.
func (r RequirementMappingRecord) Failed() bool {
	return r.Error != "" || r.Title == FailedTitle
}

// FallbackMapping builds the record substituted when a table could not be structured.
func FallbackMapping(raw string, err error) RequirementMappingRecord {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return RequirementMappingRecord{
		Title:    FailedTitle,
		Major:    UnknownMajor,
		Mappings: []Mapping{},
		RawText:  Truncate(raw, RawTextLimit),
		Error:    msg,
	}
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Text is a string that also accepts JSON numbers, since structuring
// models are inconsistent about quoting identifiers like "1" or 1.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil && f == float64(int64(f)) {
		*t = Text(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*t = Text(n.String())
	return nil
}
