package table

import (
	"regexp"
	"strings"
)

// breakRule joins a title line ending in tail with a following line that
// begins with head. Rules are tried in order; the first match wins.
type breakRule struct {
	name string
	tail *regexp.Regexp
	head *regexp.Regexp
}

var breakRules = []breakRule{
	{"对|应", regexp.MustCompile(`对$`), regexp.MustCompile(`^应`)},
	{"关|系", regexp.MustCompile(`关$`), regexp.MustCompile(`^系`)},
	{"对|应关系", regexp.MustCompile(`对$`), regexp.MustCompile(`^应关系`)},
	{"要求|对应", regexp.MustCompile(`要求$`), regexp.MustCompile(`^对应`)},
}

const titleLookback = 10

var placeholderCell = regexp.MustCompile(`(?i)^Col\d+$`)

// Repair fixes the two title defects PDF conversion leaves in mapping
// tables: titles broken across lines, and titles pushed into the first
// table row. It never fails; text without defects is returned unchanged.
// Repair is idempotent.
func Repair(text string) string {
	lines := strings.Split(text, "\n")
	merged, changed := mergeBrokenTitles(lines)

	out, ok := extractEmbeddedTitle(merged)
	if !ok {
		if !changed {
			return text
		}
		return strings.Join(merged, "\n")
	}
	// The rebuilt title may now sit above a line that continues it.
	out, _ = mergeBrokenTitles(out)
	return strings.Join(out, "\n")
}

// isTitleLike reports whether a trimmed prose line could be part of a
// table title.
func isTitleLike(line string) bool {
	return strings.Contains(line, "表") &&
		(strings.Contains(line, "专业") || strings.Contains(line, "课程") || strings.Contains(line, "毕业要求"))
}

// mergeBrokenTitles returns a new slice in which every title line that was
// split by a forced line break is joined with its continuation. Blank lines
// between the two halves are dropped.
func mergeBrokenTitles(in []string) ([]string, bool) {
	out := make([]string, 0, len(in))
	changed := false

	for i := 0; i < len(in); i++ {
		line := strings.TrimSpace(in[i])
		if line == "" || isRow(line) || !isTitleLike(line) {
			out = append(out, in[i])
			continue
		}

		merges := 0
		for {
			next, ok := mergeTarget(in, i, line)
			if !ok {
				break
			}
			line += strings.TrimSpace(in[next])
			i = next
			merges++
		}
		if merges == 0 {
			out = append(out, in[i])
			continue
		}
		out = append(out, line)
		changed = true
	}
	return out, changed
}

// mergeTarget finds the index of the line that continues title, searching
// past blank lines after index i.
func mergeTarget(lines []string, i int, title string) (int, bool) {
	j := i + 1
	for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
		j++
	}
	if j >= len(lines) {
		return 0, false
	}
	next := strings.TrimSpace(lines[j])
	if isRow(next) {
		return 0, false
	}
	for _, r := range breakRules {
		if r.tail.MatchString(title) && r.head.MatchString(next) {
			return j, true
		}
	}
	return 0, false
}

// isEmbeddedTitle reports whether a row carries a table title in its first
// cell instead of a header.
func isEmbeddedTitle(row string) bool {
	if !isRow(row) {
		return false
	}
	c := cells(row)
	if len(c) < 2 {
		return false
	}
	return cuePattern.MatchString(c[0]) && (strings.Contains(c[0], "专业") || strings.Contains(c[0], "课程"))
}

// extractEmbeddedTitle moves a title found in the first table row onto its
// own line and drops the malformed row with its separator. The table is cut
// at the next embedded title so that two tables are never merged.
func extractEmbeddedTitle(lines []string) ([]string, bool) {
	first := -1
	for i, line := range lines {
		if isRow(line) {
			first = i
			break
		}
	}
	if first < 0 || !isEmbeddedTitle(lines[first]) {
		return nil, false
	}
	if first+1 >= len(lines) || !strings.Contains(lines[first+1], "---") {
		return nil, false
	}

	title, ok := standaloneTitle(lines, first)
	if !ok {
		title = titleFromCells(cells(lines[first]))
	}

	rest := lines[first+2:]
	for i, line := range rest {
		if isEmbeddedTitle(line) {
			rest = rest[:i]
			break
		}
	}

	out := make([]string, 0, len(rest)+2)
	out = append(out, title, "")
	out = append(out, rest...)
	return out, true
}

// standaloneTitle looks for a complete title line shortly before the first
// table row.
func standaloneTitle(lines []string, first int) (string, bool) {
	for i := max(0, first-titleLookback); i < first; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || isRow(line) {
			continue
		}
		if strings.Contains(line, "表") &&
			strings.Contains(line, "课程目标") &&
			(strings.Contains(line, "专业") || strings.Contains(line, "毕业要求")) &&
			strings.Contains(line, "对应关系") {
			return line, true
		}
	}
	return "", false
}

// titleFromCells rebuilds a title from the cells of a malformed row,
// dropping ColN placeholders and collapsing characters duplicated across a
// cell boundary ("课程目标" + "标与…" → "课程目标与…").
func titleFromCells(cs []string) string {
	var parts [][]rune
	for _, c := range cs {
		if placeholderCell.MatchString(c) {
			continue
		}
		cell := []rune(c)
		if len(parts) == 0 {
			parts = append(parts, cell)
			continue
		}
		prev := parts[len(parts)-1]
		if n := overlap(prev, cell); n > 0 {
			parts[len(parts)-1] = append(prev, cell[n:]...)
			continue
		}
		parts = append(parts, cell)
	}

	var b strings.Builder
	for _, p := range parts {
		b.WriteString(string(p))
	}
	return b.String()
}

// overlap returns the length of the longest suffix of a, at most three
// runes, that is also a prefix of b.
func overlap(a, b []rune) int {
	for n := min(3, len(a), len(b)); n > 0; n-- {
		if string(a[len(a)-n:]) == string(b[:n]) {
			return n
		}
	}
	return 0
}
