package course

import (
	"regexp"
	"strings"

	"github.com/dgallion1/syllabus/internal/document"
	"golang.org/x/text/unicode/norm"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

// codePatterns are tried in order; standard codes (one capital letter and
// seven digits) win over the looser suffixed form.
var codePatterns = []pattern{
	{"bold standard", regexp.MustCompile(`\*\*([A-Z]\d{7})\*\*`)},
	{"table standard", regexp.MustCompile(`\|\s*课程(?:代码|编号)\s*\|\s*([A-Z]\d{7})\s*\|`)},
	{"bold extended", regexp.MustCompile(`\*\*([A-Z][A-Za-z0-9]{6,8})\*\*`)},
	{"table extended", regexp.MustCompile(`\|\s*课程(?:代码|编号)\s*\|\s*([A-Z][A-Za-z0-9]{6,8})\s*\|`)},
}

var (
	headingTitle = regexp.MustCompile(`#\s*《(.*?)》`)
	bookTitle    = regexp.MustCompile(`《(.*?)》`)
)

// ExtractCode finds the course code with the fixed code shapes.
func ExtractCode(text string) (string, bool) {
	for _, p := range codePatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractName finds the course name in the bracketed title of the first
// heading that has one.
func ExtractName(doc *document.Document) (string, bool) {
	for _, h := range doc.Headings {
		if m := bookTitle.FindStringSubmatch(h.Text); m != nil {
			if name := normalizeName(m[1]); name != "" {
				return name, true
			}
		}
	}
	if m := headingTitle.FindStringSubmatch(doc.Text); m != nil {
		if name := normalizeName(m[1]); name != "" {
			return name, true
		}
	}
	return "", false
}

func normalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
