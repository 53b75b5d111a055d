// Package table finds requirement mapping tables in a section and repairs
// titles damaged by PDF conversion.
package table

import (
	"regexp"
	"strings"
)

// cuePattern matches a table title cue such as "表1", "表 **1-1**" or
// "如表 2 所示".
var cuePattern = regexp.MustCompile(`表\s*[\*\d\-]+`)

// cueNumber matches the start of a title whose number was pushed off the
// 表 line.
var cueNumber = regexp.MustCompile(`^[\*\d\-]`)

// domainKeywords are the words a real mapping table must mention.
var domainKeywords = []string{"毕业要求", "指标点", "课程目标"}

// Candidate is a block of text suspected to hold one mapping table. Text is
// an independent copy and may be repaired freely.
type Candidate struct {
	Line int // zero-based line of the title cue within the section
	Text string
}

// Extract returns the table candidates in section text, in document order.
// A candidate opens at a cue line and runs until the next cue line that
// starts a new block (a prose line, or a row directly after a blank line).
func Extract(text string) []Candidate {
	lines := strings.Split(text, "\n")

	var (
		out   []Candidate
		start = -1
	)
	flush := func(end int) {
		if start < 0 {
			return
		}
		block := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if accept(block) {
			out = append(out, Candidate{Line: start, Text: block})
		}
	}

	for i, line := range lines {
		if !isCue(lines, i, line) {
			continue
		}
		if start >= 0 && !opensBlock(lines, i) {
			continue
		}
		flush(i)
		start = i
	}
	flush(len(lines))
	return out
}

// isCue reports whether line i carries a table title cue. A line ending in
// 表 counts when the next non-blank line starts with the table number.
func isCue(lines []string, i int, line string) bool {
	if cuePattern.MatchString(line) {
		return true
	}
	if !strings.HasSuffix(strings.TrimRight(line, " \t"), "表") {
		return false
	}
	for _, next := range lines[i+1:] {
		if next = strings.TrimSpace(next); next != "" {
			return cueNumber.MatchString(next)
		}
	}
	return false
}

// opensBlock reports whether the cue line at i begins a new candidate
// rather than continuing the current one.
func opensBlock(lines []string, i int) bool {
	if !isRow(lines[i]) {
		return true
	}
	return i > 0 && strings.TrimSpace(lines[i-1]) == ""
}

func accept(block string) bool {
	if !strings.Contains(block, "|") {
		return false
	}
	for _, kw := range domainKeywords {
		if strings.Contains(block, kw) {
			return true
		}
	}
	return false
}

// isRow reports whether a line uses the pipe-delimited row convention.
func isRow(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

// cells splits a row into its non-empty trimmed cells.
func cells(row string) []string {
	var out []string
	for _, c := range strings.Split(strings.TrimSpace(row), "|") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
