package course

import (
	"regexp"
	"strings"

	"github.com/dgallion1/syllabus/internal/record"
	"golang.org/x/text/unicode/norm"
)

var (
	markupPattern = regexp.MustCompile(`(?i)<br\s*/?>|\*\*`)
	hanGapPattern = regexp.MustCompile(`(\p{Han})\s+(\p{Han})`)
)

// emptyMarkers are list entries that mean "no course".
var emptyMarkers = map[string]bool{
	"无":    true,
	"暂无":   true,
	"none": true,
	"n/a":  true,
}

// normalizeRelations cleans the course lists returned by the oracle:
// markup is stripped, spurious spaces inside Chinese words are merged,
// entries are split on any list separator, and "none" entries vanish.
func normalizeRelations(r *record.Relations) {
	r.Prerequisites = normalizeCourses(r.Prerequisites)
	r.Subsequent = normalizeCourses(r.Subsequent)
	desc := cleanText(r.Description)
	if emptyMarkers[strings.ToLower(strings.TrimRight(desc, "。."))] {
		desc = ""
	}
	r.Description = desc
}

func normalizeCourses(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, item := range in {
		for _, part := range splitList(cleanText(item)) {
			name := strings.Trim(part, " \t《》。.：:")
			if name == "" || emptyMarkers[strings.ToLower(name)] || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// splitList splits s on list separators that are not enclosed in brackets,
// so "高等数学（上、下）" stays one course.
func splitList(s string) []string {
	var (
		out   []string
		depth int
		last  int
	)
	for i, r := range s {
		switch r {
		case '（', '(', '《':
			depth++
		case '）', ')', '》':
			if depth > 0 {
				depth--
			}
		case '、', '，', ',', '；', ';':
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + len(string(r))
			}
		}
	}
	return append(out, s[last:])
}

func cleanText(s string) string {
	s = markupPattern.ReplaceAllString(s, "")
	for {
		merged := hanGapPattern.ReplaceAllString(s, "$1$2")
		if merged == s {
			break
		}
		s = merged
	}
	return strings.TrimSpace(norm.NFC.String(s))
}
