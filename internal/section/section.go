// Package section locates the named facets of a syllabus inside its raw text.
package section

import (
	"regexp"
	"strings"

	"github.com/dgallion1/syllabus/internal/document"
)

// Kind identifies a semantic facet of a syllabus.
type Kind int

const (
	Identity Kind = iota
	Goals
	RequirementMapping
	Relations
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Goals:
		return "goals"
	case RequirementMapping:
		return "requirement_mapping"
	case Relations:
		return "relations"
	default:
		return "unknown"
	}
}

// IdentityPrefixLines bounds the identity section when no override is given.
const IdentityPrefixLines = 800

// Rule is one entry of an ordered pattern table. Tables are evaluated in
// order and the first rule that matches wins.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// find returns the byte span of the first match at or after from.
func (r Rule) find(text string, from int) (int, int, bool) {
	loc := r.Pattern.FindStringIndex(text[from:])
	if loc == nil {
		return 0, 0, false
	}
	return from + loc[0], from + loc[1], true
}

type ruleSet struct {
	start []Rule
	stop  []Rule
}

const numerals = `[一二三四五六七八九十]+`

var rules = map[Kind]ruleSet{
	Goals: {
		start: []Rule{
			{"numbered heading", regexp.MustCompile(`一、\s*课程目标`)},
			{"broken heading", regexp.MustCompile(`一、\s*课\s*\n+\s*程目标`)},
		},
		stop: []Rule{
			{"chapter two", regexp.MustCompile(`二、`)},
			{"chapter three", regexp.MustCompile(`三、`)},
			{"broken course content", regexp.MustCompile(`课\s*\n+\s*程内容与基本要求`)},
			{"teaching content", regexp.MustCompile(`教学内容`)},
			{"teaching method", regexp.MustCompile(`教学方法`)},
		},
	},
	RequirementMapping: {
		start: []Rule{
			{"mapping heading", regexp.MustCompile(`二、\s*课程目标与毕业要求`)},
			{"chapter two", regexp.MustCompile(`二、`)},
		},
		stop: []Rule{
			{"chapter three", regexp.MustCompile(`三、`)},
		},
	},
	Relations: {
		start: []Rule{
			{"numbered heading", regexp.MustCompile(numerals + `、?\s*与其[它他]课程的联系`)},
			{"bracketed heading", regexp.MustCompile(`[（(]` + numerals + `[）)]\s*与其[它他]课程的联系`)},
			{"arabic heading", regexp.MustCompile(`\d+\s*[.、．]\s*与其[它他]课程的联系`)},
			{"relation heading", regexp.MustCompile(numerals + `、?\s*与其[它他]课程的关系`)},
		},
		stop: []Rule{
			{"next chapter", regexp.MustCompile(numerals + `、`)},
		},
	},
}

// Section is a span of a document. It borrows offsets into the document
// rather than copying the text.
type Section struct {
	Kind  Kind
	Start int
	End   int
	Rule  string // start rule that matched

	doc *document.Document
}

// Text returns the section content with surrounding whitespace trimmed.
func (s Section) Text() string {
	if s.doc == nil {
		return ""
	}
	return strings.TrimSpace(s.doc.Text[s.Start:s.End])
}

// Locator finds sections. The zero value uses the default identity prefix.
type Locator struct {
	IdentityLines int
}

// Locate finds the section of the given kind. ok is false when no start
// rule matches; callers treat that as missing data, not an error.
func Locate(doc *document.Document, kind Kind) (Section, bool) {
	return Locator{}.Locate(doc, kind)
}

// Locate finds the section of the given kind.
func (l Locator) Locate(doc *document.Document, kind Kind) (Section, bool) {
	if doc == nil {
		return Section{}, false
	}
	if kind == Identity {
		n := l.IdentityLines
		if n <= 0 {
			n = IdentityPrefixLines
		}
		return Section{Kind: kind, Start: 0, End: prefixEnd(doc.Text, n), Rule: "prefix", doc: doc}, true
	}

	set, ok := rules[kind]
	if !ok {
		return Section{}, false
	}

	var (
		start, bodyFrom int
		matched         string
		found           bool
	)
	for _, r := range set.start {
		if s, e, ok := r.find(doc.Text, 0); ok {
			start, bodyFrom, matched, found = s, e, r.Name, true
			break
		}
	}
	if !found {
		return Section{}, false
	}

	end := len(doc.Text)
	for _, r := range set.stop {
		if s, _, ok := r.find(doc.Text, bodyFrom); ok && s < end {
			end = s
		}
	}
	return Section{Kind: kind, Start: start, End: end, Rule: matched, doc: doc}, true
}

// prefixEnd returns the byte offset just past the n-th line.
func prefixEnd(text string, n int) int {
	off := 0
	for i := 0; i < n; i++ {
		j := strings.IndexByte(text[off:], '\n')
		if j < 0 {
			return len(text)
		}
		off += j + 1
	}
	return off
}
