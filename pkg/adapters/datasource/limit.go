package datasource

import (
	"fmt"
	"regexp"

	"github.com/queryloop-ai/queryloop-engine/pkg/sqlguard"
)

var (
	limitClausePattern  = regexp.MustCompile(`(?i)\blimit\s+\d+`)
	topClausePattern    = regexp.MustCompile(`(?i)\btop\b`)
	selectPrefixPattern = regexp.MustCompile(`(?i)^\s*select\s+(distinct\s+)?`)
)

// ApplyPreviewLimit injects a dialect-appropriate row cap into a query-like
// statement, only when the statement does not already contain one. The
// operation is idempotent: applying it twice yields the same SQL as once.
//
// Non-query statements and statements that already carry a LIMIT/TOP are
// returned unchanged. For mssql, a WITH-prefixed statement is also returned
// unchanged since TOP cannot be inserted ahead of a CTE; the caller's row
// scan loop still bounds the preview in that case.
func ApplyPreviewLimit(dialect, sqlText string, maxRows int) string {
	if maxRows <= 0 || !sqlguard.IsQueryLike(sqlText) {
		return sqlText
	}

	switch dialect {
	case "mssql":
		if topClausePattern.MatchString(sqlText) {
			return sqlText
		}
		m := selectPrefixPattern.FindStringSubmatch(sqlText)
		if m == nil {
			return sqlText
		}
		loc := selectPrefixPattern.FindStringIndex(sqlText)
		distinct := m[1]
		return fmt.Sprintf("SELECT %sTOP (%d) %s", distinct, maxRows, sqlText[loc[1]:])
	default:
		// sqlite, postgres, and anything else LIMIT-shaped
		if limitClausePattern.MatchString(sqlText) {
			return sqlText
		}
		return fmt.Sprintf("%s LIMIT %d", sqlText, maxRows)
	}
}
