package sqlguard

import (
	"reflect"
	"testing"
)

func TestExtractTables(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "single table",
			input:    "SELECT * FROM users",
			expected: []string{"users"},
		},
		{
			name:     "join",
			input:    "SELECT * FROM orders o JOIN customers c ON o.customer_id = c.id",
			expected: []string{"orders", "customers"},
		},
		{
			name:     "left join keyword",
			input:    "SELECT * FROM a LEFT JOIN b ON a.id = b.a_id",
			expected: []string{"a", "b"},
		},
		{
			name:     "schema qualified preserved",
			input:    "SELECT * FROM sales.orders",
			expected: []string{"sales.orders"},
		},
		{
			name:     "duplicate references deduped",
			input:    "SELECT * FROM users u JOIN users m ON u.manager_id = m.id",
			expected: []string{"users"},
		},
		{
			name:     "double quoted identifier",
			input:    `SELECT * FROM "users"`,
			expected: []string{"users"},
		},
		{
			name:     "bracketed identifier",
			input:    "SELECT * FROM [users]",
			expected: []string{"users"},
		},
		{
			name:     "backtick identifier",
			input:    "SELECT * FROM `users`",
			expected: []string{"users"},
		},
		{
			name:     "case insensitive keywords",
			input:    "select id from Users join Orders on Users.id = Orders.user_id",
			expected: []string{"Users", "Orders"},
		},
		{
			name:     "no tables",
			input:    "SELECT 1",
			expected: nil,
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTables(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ExtractTables(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStripQualifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", "users"},
		{"main.users", "users"},
		{"dbo.sales.orders", "orders"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripQualifier(tt.input); got != tt.expected {
			t.Errorf("StripQualifier(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
