// Package oracle wraps the generative models used to turn noisy syllabus
// text into structured JSON.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Request is one structuring call.
type Request struct {
	Task        string // short label for logs and stats
	System      string
	User        string
	Temperature float32
	JSON        bool // ask the backend to constrain output to a JSON object
}

// Oracle turns a request into raw model output. Implementations do not
// retry; a failed call is reported to the caller as-is.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

func (f Func) Name() string { return "func" }

var (
	// ErrNotConfigured is returned when an oracle is used without credentials.
	ErrNotConfigured = errors.New("oracle not configured")

	// ErrMalformed is wrapped by decode errors on unusable model output.
	ErrMalformed = errors.New("malformed oracle response")
)

// StatusError is a non-2xx response from a model backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, truncate(e.Message, 200))
}

// Retryable reports whether the failure is transient.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// Decode strips code fences from model output and unmarshals the JSON
// value it carries into v. Errors wrap ErrMalformed.
func Decode(raw string, v any) error {
	text := StripCodeBlock(raw)
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrMalformed)
	}
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}
	if inner := FindFirstJSON(text); inner != "" && inner != text {
		if err2 := json.Unmarshal([]byte(inner), v); err2 == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v (raw: %s)", ErrMalformed, err, truncate(text, 200))
}

// StripCodeBlock removes a surrounding ```json fence if present.
func StripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "```"), "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// FindFirstJSON returns the first balanced JSON object or array in s,
// ignoring brackets inside string literals.
func FindFirstJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return ""
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n] + "..."
}
