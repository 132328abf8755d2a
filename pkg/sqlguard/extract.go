package sqlguard

import (
	"regexp"
	"strings"
)

// tableRefPattern matches identifiers (optionally schema-qualified, quoted,
// or bracketed) immediately following FROM or JOIN.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+([\[\x60"]?[A-Za-z_][\w.\[\]\x60"]*)`)

// ExtractTables returns the distinct table identifiers referenced after
// FROM/JOIN keywords, in order of first appearance. Quoting and bracketing
// are stripped; schema qualifiers are preserved.
//
// This is a documented best-effort heuristic, not a parser: derived tables,
// CTE names, and exotic aliasing can slip past it. Callers treating the
// output as ground truth must pair it with live-schema validation.
func ExtractTables(sqlText string) []string {
	if sqlText == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, m := range tableRefPattern.FindAllStringSubmatch(sqlText, -1) {
		t := strings.Trim(m[1], "\"`[]")
		if t == "" {
			continue
		}
		// A parenthesized subquery follows FROM directly; the pattern cannot
		// match it, but guard against stray openers from malformed SQL.
		if strings.HasPrefix(t, "(") {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// StripQualifier removes a schema prefix from a table identifier, returning
// the bare table name.
func StripQualifier(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[i+1:]
	}
	return table
}
