package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no fence",
			input:    `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "fence with language tag",
			input:    "```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "fence without language tag",
			input:    "```\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  ```json\n{\"a\": 1}\n```  ",
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFence(tt.input))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare json",
			input:    `{"type": "sql"}`,
			expected: `{"type": "sql"}`,
		},
		{
			name:     "fenced json",
			input:    "```json\n{\"type\": \"sql\"}\n```",
			expected: `{"type": "sql"}`,
		},
		{
			name:     "think tags stripped",
			input:    "<think>reasoning about tables</think>{\"type\": \"sql\"}",
			expected: `{"type": "sql"}`,
		},
		{
			name:     "surrounding prose",
			input:    `Sure, here you go: {"type": "sql", "sql": "SELECT 1"} hope that helps`,
			expected: `{"type": "sql", "sql": "SELECT 1"}`,
		},
		{
			name:     "braces inside strings do not break balancing",
			input:    `prefix {"sql": "SELECT '{' FROM t", "n": {"x": 1}} suffix`,
			expected: `{"sql": "SELECT '{' FROM t", "n": {"x": 1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	for _, input := range []string{"", "no json here", "{unbalanced"} {
		_, err := ExtractJSON(input)
		assert.Error(t, err, "input: %q", input)
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		Type string `json:"type"`
		SQL  string `json:"sql"`
	}

	got, err := ParseJSONResponse[payload]("```json\n{\"type\": \"sql\", \"sql\": \"SELECT 1\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, payload{Type: "sql", SQL: "SELECT 1"}, got)

	_, err = ParseJSONResponse[payload]("not json")
	assert.Error(t, err)
}
