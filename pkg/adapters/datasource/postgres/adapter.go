// Package postgres implements the datasource adapter for PostgreSQL using
// pgx connection pools.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource"
	"github.com/queryloop-ai/queryloop-engine/pkg/sqlguard"
)

// Adapter provides schema introspection and bounded execution against a
// PostgreSQL database.
type Adapter struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects a pgx pool to the DSN and verifies reachability.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Adapter{pool: pool, logger: logger.Named("postgres")}, nil
}

// Dialect implements datasource.Adapter.
func (a *Adapter) Dialect() string {
	return "postgres"
}

// LiveSchema returns current user tables and their columns from
// information_schema, keyed by bare table name. System schemas are
// excluded.
func (a *Adapter) LiveSchema(ctx context.Context) (map[string][]string, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("postgres schema query: %w", err)
	}
	defer rows.Close()

	schema := make(map[string][]string)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("postgres schema scan: %w", err)
		}
		schema[table] = append(schema[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres schema rows: %w", err)
	}

	return schema, nil
}

// Execute implements datasource.Adapter. Driver errors become Outcome.Err;
// the error text is passed through verbatim for the repair loop.
func (a *Adapter) Execute(ctx context.Context, sqlText string, maxRows int) *datasource.Outcome {
	normalized, err := sqlguard.Normalize(sqlText)
	if err != nil {
		return datasource.ErrorOutcome(err.Error())
	}
	if normalized == "" {
		return datasource.ErrorOutcome("empty SQL statement")
	}

	// Cap plus one so the scan loop can tell exactly-cap from truncated.
	probe := maxRows
	if maxRows > 0 {
		probe = maxRows + 1
	}
	limited := datasource.ApplyPreviewLimit("postgres", normalized, probe)

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return datasource.ErrorOutcome(err.Error())
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if sqlguard.IsQueryLike(limited) {
		outcome := a.runQuery(ctx, tx, limited, maxRows)
		if outcome.Failed() {
			return outcome
		}
		if err := tx.Commit(ctx); err != nil {
			return datasource.ErrorOutcome(err.Error())
		}
		return outcome
	}

	tag, err := tx.Exec(ctx, limited)
	if err != nil {
		return datasource.ErrorOutcome(err.Error())
	}
	if err := tx.Commit(ctx); err != nil {
		return datasource.ErrorOutcome(err.Error())
	}

	return &datasource.Outcome{RowsAffected: tag.RowsAffected()}
}

func (a *Adapter) runQuery(ctx context.Context, tx pgx.Tx, sqlText string, maxRows int) *datasource.Outcome {
	rows, err := tx.Query(ctx, sqlText)
	if err != nil {
		return datasource.ErrorOutcome(err.Error())
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	collected := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if maxRows > 0 && len(collected) >= maxRows {
			truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return datasource.ErrorOutcome(err.Error())
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return datasource.ErrorOutcome(err.Error())
	}

	return &datasource.Outcome{
		Query:     true,
		Columns:   columns,
		Rows:      collected,
		RowCount:  len(collected),
		Truncated: truncated,
	}
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

var _ datasource.Adapter = (*Adapter)(nil)
