package section

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNotMappingSection means the located heading is not a requirement
	// mapping heading. Callers treat the facet as absent.
	ErrNotMappingSection = errors.New("section heading is not a requirement mapping heading")

	// ErrEmptyByDeclaration means the section exists but declares that it
	// has no mapping content.
	ErrEmptyByDeclaration = errors.New("section declares no mapping content")
)

// declarationWindow is how many characters after the heading are scanned
// for a "not applicable" statement.
const declarationWindow = 200

var headingKeywords = []string{"课程目标", "毕业要求", "对应关系"}

var disqualifiers = []Rule{
	{"not described", regexp.MustCompile(`不做描述`)},
	{"not described here", regexp.MustCompile(`此不做描述`)},
	{"not described alt", regexp.MustCompile(`不作描述`)},
	{"requirements differ", regexp.MustCompile(`各专业毕业要求各异`)},
	{"per program not described", regexp.MustCompile(`因各专业.*不做描述`)},
	{"none yet", regexp.MustCompile(`暂无`)},
	{"none", regexp.MustCompile(`(?m)^无$`)},
	{"none with stop", regexp.MustCompile(`(?m)^无。$`)},
}

// CheckMapping validates a located requirement mapping section. It returns
// nil when the section may contain mapping tables.
func CheckMapping(s Section) error {
	text := s.Text()
	heading, body, _ := strings.Cut(text, "\n")
	for _, kw := range headingKeywords {
		if !strings.Contains(heading, kw) {
			return ErrNotMappingSection
		}
	}

	if disqualifier(body) != "" {
		return ErrEmptyByDeclaration
	}

	if !strings.Contains(text, "|") {
		return ErrEmptyByDeclaration
	}
	return nil
}

// Disqualifier returns the name of the first declaration rule matched in the
// section's leading text, or "" when none applies.
func Disqualifier(s Section) string {
	_, body, _ := strings.Cut(s.Text(), "\n")
	return disqualifier(body)
}

func disqualifier(body string) string {
	if r := []rune(body); len(r) > declarationWindow {
		body = string(r[:declarationWindow])
	}
	for _, d := range disqualifiers {
		if d.Pattern.MatchString(body) {
			return d.Name
		}
	}
	return ""
}
