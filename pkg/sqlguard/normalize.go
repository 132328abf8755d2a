// Package sqlguard provides lightweight safety checks on generated SQL
// before it reaches a live connection: statement normalization,
// multi-statement rejection, best-effort table extraction, and injection
// fingerprinting of embedded literals. None of this is a SQL parser.
package sqlguard

import (
	"errors"
	"strings"
)

// ErrMultipleStatements indicates the SQL contains more than one statement.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// Normalize trims whitespace, strips a single trailing semicolon, and
// rejects SQL containing additional statements. Any semicolon remaining
// outside string literals after the trailing one is stripped means the
// model produced a multi-statement batch, which is never executed.
func Normalize(sqlText string) (string, error) {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return "", nil
	}

	normalized := stripTrailingSemicolon(sqlText)

	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}

	return normalized, nil
}

// IsQueryLike reports whether the statement reads rows (SELECT/WITH prefix),
// as opposed to DML/DDL.
func IsQueryLike(sqlText string) bool {
	low := strings.ToLower(strings.TrimSpace(sqlText))
	return strings.HasPrefix(low, "select") || strings.HasPrefix(low, "with")
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlText string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlText {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('').
			// For a doubled quote this exits and immediately re-enters on the
			// next quote, which correctly keeps us in the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding
// whitespace.
func stripTrailingSemicolon(sqlText string) string {
	sqlText = strings.TrimRight(sqlText, " \t\n\r")
	if strings.HasSuffix(sqlText, ";") {
		sqlText = strings.TrimSuffix(sqlText, ";")
		sqlText = strings.TrimRight(sqlText, " \t\n\r")
	}
	return sqlText
}
