// Package logging builds the process-wide zap logger and provides helpers
// for keeping sensitive or oversized values out of log output.
package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// MaxSQLLogLength is the maximum length of a SQL statement to log.
const MaxSQLLogLength = 300

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Matches password=xxx, pwd=xxx, pass=xxx in connection strings/DSNs.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches user:pass@host credentials embedded in URLs.
	credentialURLPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// Matches api-key style query/header values.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey)=[A-Za-z0-9-_]{16,}`)
)

// New constructs the root logger. The "local" environment gets the zap
// development config (console, colored levels); everything else gets
// production JSON output.
func New(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// SanitizeDSN removes credentials from a connection string before logging.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	s := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	s = credentialURLPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	return s
}

// TruncateSQL shortens a SQL statement for log fields. Full statements go to
// the user-facing result, not the log stream.
func TruncateSQL(sql string) string {
	if len(sql) <= MaxSQLLogLength {
		return sql
	}
	return sql[:MaxSQLLogLength] + "..."
}
