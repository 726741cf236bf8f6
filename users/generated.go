package users

import (
	"encoding/json"
	"fmt"
	"strings"
)

const fence = "```"

// ParseGenerated decodes a model-generated user profile. Models often wrap
// JSON in a Markdown code fence, so a leading fence (with an optional
// language tag such as "json") and a trailing fence are stripped first.
// Unknown fields, including any "id", are ignored.
func ParseGenerated(text string) (Candidate, error) {
	body := StripCodeFence(text)
	if body == "" {
		return Candidate{}, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	var c Candidate
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c, nil
}

// StripCodeFence trims text and removes one surrounding Markdown code fence.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(s, fence); ok {
		// Drop the info string ("json", "JSON", ...) up to the first line break
		// or the first brace/bracket on the same line.
		if i := strings.IndexAny(rest, "\n{["); i >= 0 {
			if strings.TrimSpace(rest[:i]) == "" || isInfoString(rest[:i]) {
				rest = rest[i:]
			}
		} else if isInfoString(rest) {
			rest = ""
		}
		s = rest
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), fence)
	return strings.TrimSpace(s)
}

func isInfoString(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '+') {
			return false
		}
	}
	return true
}
