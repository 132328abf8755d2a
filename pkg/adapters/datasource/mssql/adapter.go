// Package mssql implements the datasource adapter for Microsoft SQL Server.
// SQL Server is the engine's TOP-clause dialect for preview capping.
package mssql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource"
)

// Adapter provides schema introspection and bounded execution against a
// SQL Server database.
type Adapter struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New connects to SQL Server using the sqlserver:// DSN form and verifies
// reachability.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Adapter, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}

	return &Adapter{db: db, logger: logger.Named("mssql")}, nil
}

// Dialect implements datasource.Adapter.
func (a *Adapter) Dialect() string {
	return "mssql"
}

// LiveSchema returns current user tables and their columns from
// INFORMATION_SCHEMA, keyed by bare table name.
func (a *Adapter) LiveSchema(ctx context.Context) (map[string][]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.TABLE_NAME, c.COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.TABLES t
		  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`)
	if err != nil {
		return nil, fmt.Errorf("sqlserver schema query: %w", err)
	}
	defer rows.Close()

	schema := make(map[string][]string)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("sqlserver schema scan: %w", err)
		}
		schema[table] = append(schema[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlserver schema rows: %w", err)
	}

	return schema, nil
}

// Execute implements datasource.Adapter.
func (a *Adapter) Execute(ctx context.Context, sqlText string, maxRows int) *datasource.Outcome {
	return datasource.RunStatement(ctx, a.db, "mssql", sqlText, maxRows)
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ datasource.Adapter = (*Adapter)(nil)
