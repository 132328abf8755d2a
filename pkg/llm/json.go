package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// codeFencePattern matches a markdown code fence wrapper around a response,
// with or without a language tag.
var codeFencePattern = regexp.MustCompile("^```[a-zA-Z0-9]*\\s*\n?")

// thinkTagPattern matches <think>...</think> tags that local models may emit
// at the start of a response.
var thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// StripCodeFence removes an accidental markdown code-fence wrapping.
func StripCodeFence(response string) string {
	t := strings.TrimSpace(response)
	if strings.HasPrefix(t, "```") {
		t = codeFencePattern.ReplaceAllString(t, "")
		t = strings.TrimRight(strings.TrimSpace(t), "`")
	}
	return strings.TrimSpace(t)
}

// ExtractJSON extracts a JSON object from an LLM response that may contain
// <think> tags, markdown code fences, or surrounding prose. It first tries
// the cleaned response as-is, then falls back to the first balanced {...}
// substring.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	cleaned = StripCodeFence(cleaned)

	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	if jsonStr, ok := extractBalancedObject(cleaned); ok {
		if json.Valid([]byte(jsonStr)) {
			return jsonStr, nil
		}
	}

	return "", fmt.Errorf("no valid JSON object found in response")
}

// extractBalancedObject finds the first balanced {...} structure, tracking
// string literals and escapes so braces inside strings do not count.
func extractBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if c == '{' {
			depth++
		} else if c == '}' {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the
// target type.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
