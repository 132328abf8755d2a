package sqlguard

import (
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// stringLiteralPattern matches single-quoted SQL string literals, honoring
// the '' escape.
var stringLiteralPattern = regexp.MustCompile(`'(?:[^']|'')*'`)

// LiteralCheckResult describes an injection pattern detected inside a string
// literal of generated SQL.
type LiteralCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // The literal value that failed the check
}

// CheckLiterals runs libinjection over every string literal embedded in the
// statement. Generated SQL interpolates user-derived values as literals
// rather than bind parameters, so a question crafted to smuggle a payload
// through the model surfaces here before execution.
//
// Returns nil when all literals are clean.
func CheckLiterals(sqlText string) []LiteralCheckResult {
	var findings []LiteralCheckResult

	for _, quoted := range stringLiteralPattern.FindAllString(sqlText, -1) {
		// Unquote: drop the surrounding quotes, collapse '' escapes.
		value := strings.ReplaceAll(quoted[1:len(quoted)-1], "''", "'")
		if value == "" {
			continue
		}

		isSQLi, fingerprint := libinjection.IsSQLi(value)
		if isSQLi {
			findings = append(findings, LiteralCheckResult{
				IsSQLi:      true,
				Fingerprint: string(fingerprint),
				Literal:     value,
			})
		}
	}

	return findings
}
