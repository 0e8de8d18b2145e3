package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// maxExcerptLen bounds the raw-text excerpt carried by a ParseError.
const maxExcerptLen = 500

// ParseError reports that no strategy recovered a JSON object from the model
// reply. Excerpt holds a truncated prefix of the raw text for diagnostics.
type ParseError struct {
	Excerpt string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not extract valid JSON from model response: %s", e.Excerpt)
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")
	braceSpanRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON recovers a JSON object from the model's raw text reply. Models
// reliably intend JSON but inconsistently wrap it in prose or markdown
// fences, so three strategies are tried in order, first success wins:
//
//  1. parse the whole text as JSON,
//  2. parse the inner content of a fenced code block,
//  3. parse the first greedy {...} span anywhere in the text.
//
// If all fail, a *ParseError with a truncated excerpt is returned.
func ExtractJSON(raw string) (map[string]interface{}, error) {
	if obj, ok := decodeObject(raw); ok {
		return obj, nil
	}

	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		if obj, ok := decodeObject(strings.TrimSpace(m[1])); ok {
			return obj, nil
		}
	}

	if span := braceSpanRe.FindString(raw); span != "" {
		if obj, ok := decodeObject(strings.TrimSpace(span)); ok {
			return obj, nil
		}
	}

	return nil, &ParseError{Excerpt: truncate(raw, maxExcerptLen)}
}

func decodeObject(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
