// Package datasource defines the execution adapter contract for the target
// database collaborator, plus the dialect-specific preview-cap handling
// shared by the driver subpackages.
package datasource

import "context"

// Adapter is the engine's view of the target database: live schema on
// demand, bounded execution, nothing else. Each implementation owns its
// connection pool and must be closed when done.
type Adapter interface {
	// Dialect returns the SQL dialect identifier ("sqlite", "postgres",
	// "mssql").
	Dialect() string

	// LiveSchema returns the current table -> column list mapping, keyed by
	// bare (unqualified) table name. This is ground truth and is re-queried
	// per turn, never cached, since schema drift between turns is expected.
	LiveSchema(ctx context.Context) (map[string][]string, error)

	// Execute runs a single statement with a preview row cap. Driver errors
	// are converted into Outcome.Err rather than returned, since the error
	// text is the repair loop's primary diagnostic signal.
	Execute(ctx context.Context, sqlText string, maxRows int) *Outcome

	// Close releases the underlying connection pool.
	Close() error
}

// Outcome is the classified result of running SQL: tabular rows for
// query-like statements, an affected-row count for DML/DDL, or an error
// string.
type Outcome struct {
	// Query is true when the statement was classified as row-returning.
	Query bool `json:"query"`

	// Columns and Rows are populated for query-like statements.
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`

	// RowCount is len(Rows); Truncated reports whether the preview cap
	// cut off the true result size.
	RowCount  int  `json:"row_count"`
	Truncated bool `json:"truncated"`

	// RowsAffected is populated for non-query statements.
	RowsAffected int64 `json:"rows_affected,omitempty"`

	// Err carries the driver error text verbatim when execution failed.
	Err string `json:"error,omitempty"`
}

// Failed reports whether execution produced an error.
func (o *Outcome) Failed() bool {
	return o.Err != ""
}

// ErrorOutcome wraps an error message in an Outcome.
func ErrorOutcome(msg string) *Outcome {
	return &Outcome{Err: msg}
}
