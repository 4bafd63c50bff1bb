package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// ExtractJSONBlock pulls the most likely JSON payload out of an oracle
// response. Preference order: a ```json fenced block, then any fenced
// block, then the raw trimmed text.
func ExtractJSONBlock(text string) string {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// ParseJSONObject decodes an oracle response into a map. It tries a strict
// parse of the extracted block first, then falls back to scanning for a
// balanced top-level object anywhere in the text.
func ParseJSONObject(text string) (map[string]any, error) {
	candidate := ExtractJSONBlock(text)

	var result map[string]any
	if err := json.Unmarshal([]byte(candidate), &result); err == nil {
		return result, nil
	}

	if m := scanForObject(candidate); m != nil {
		return m, nil
	}
	if m := scanForObject(text); m != nil {
		return m, nil
	}

	return nil, fmt.Errorf("no valid JSON object found in response")
}

// scanForObject walks the text tracking brace depth and attempts to decode
// each balanced {...} span.
func scanForObject(text string) map[string]any {
	start := -1
	braceCount := 0
	for i, c := range text {
		if c == '{' {
			if start == -1 {
				start = i
			}
			braceCount++
		} else if c == '}' {
			braceCount--
			if braceCount == 0 && start != -1 {
				var result map[string]any
				if err := json.Unmarshal([]byte(text[start:i+1]), &result); err == nil {
					return result
				}
				start = -1
			}
		}
	}
	return nil
}
