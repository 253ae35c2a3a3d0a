package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject indicates no parseable JSON object was found.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// ExtractJSONObject locates the structured object inside a model
// response that may be wrapped in code fences or surrounding prose.
//
// Strategy, in order: strip markdown fences, attempt a direct parse,
// then scan for the outermost brace-delimited object. Callers unmarshal
// the returned bytes into their own typed result with explicit
// per-field defaults; this function is the single shared locator.
func ExtractJSONObject(content string) ([]byte, error) {
	content = stripFences(strings.TrimSpace(content))

	if json.Valid([]byte(content)) && strings.HasPrefix(strings.TrimSpace(content), "{") {
		return []byte(content), nil
	}

	candidate, ok := scanOutermostObject(content)
	if !ok {
		return nil, ErrNoJSONObject
	}
	if !json.Valid([]byte(candidate)) {
		return nil, ErrNoJSONObject
	}
	return []byte(candidate), nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// scanOutermostObject finds the first top-level {...} span, tracking
// brace depth and skipping string literals and escapes.
func scanOutermostObject(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return "", false
}
