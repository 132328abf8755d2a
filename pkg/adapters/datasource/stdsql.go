package datasource

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/queryloop-ai/queryloop-engine/pkg/sqlguard"
)

// RunStatement executes one statement against a database/sql-backed driver
// inside a single transaction, applying the dialect's preview cap to
// query-like statements. Shared by the sqlite and mssql adapters; postgres
// has its own pgx-native runner.
func RunStatement(ctx context.Context, db *sqlx.DB, dialect, sqlText string, maxRows int) *Outcome {
	normalized, err := sqlguard.Normalize(sqlText)
	if err != nil {
		return ErrorOutcome(err.Error())
	}
	if normalized == "" {
		return ErrorOutcome("empty SQL statement")
	}

	// The injected cap asks for one extra row so the scan loop can tell an
	// exactly-cap result set apart from a truncated one.
	limited := ApplyPreviewLimit(dialect, normalized, probeLimit(maxRows))

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return ErrorOutcome(err.Error())
	}

	if sqlguard.IsQueryLike(limited) {
		outcome := runQuery(ctx, tx, limited, maxRows)
		if outcome.Failed() {
			_ = tx.Rollback()
			return outcome
		}
		if err := tx.Commit(); err != nil {
			return ErrorOutcome(err.Error())
		}
		return outcome
	}

	res, err := tx.ExecContext(ctx, limited)
	if err != nil {
		_ = tx.Rollback()
		return ErrorOutcome(err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	if err := tx.Commit(); err != nil {
		return ErrorOutcome(err.Error())
	}

	return &Outcome{RowsAffected: affected}
}

func runQuery(ctx context.Context, tx *sqlx.Tx, sqlText string, maxRows int) *Outcome {
	rows, err := tx.QueryxContext(ctx, sqlText)
	if err != nil {
		return ErrorOutcome(err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return ErrorOutcome(err.Error())
	}

	collected := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if maxRows > 0 && len(collected) >= maxRows {
			truncated = true
			break
		}
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return ErrorOutcome(err.Error())
		}
		normalizeRowValues(row)
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return ErrorOutcome(err.Error())
	}

	return &Outcome{
		Query:     true,
		Columns:   columns,
		Rows:      collected,
		RowCount:  len(collected),
		Truncated: truncated,
	}
}

// probeLimit widens a positive row cap by one; the extra row is never
// returned, it only signals that the result set exceeds the cap.
func probeLimit(maxRows int) int {
	if maxRows <= 0 {
		return maxRows
	}
	return maxRows + 1
}

// normalizeRowValues converts driver byte slices to strings so results
// serialize as text rather than base64.
func normalizeRowValues(row map[string]any) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}
