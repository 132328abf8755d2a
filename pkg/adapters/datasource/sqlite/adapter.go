// Package sqlite implements the datasource adapter for embedded SQLite
// files. SQLite is the engine's schema-less dialect: generated SQL must not
// carry schema-qualified table names.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource"
)

// Adapter provides schema introspection and bounded execution against a
// SQLite database file.
type Adapter struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New opens the SQLite database at the DSN path. The file must already
// exist (":memory:" aside): the sqlite driver silently creates missing
// files, which would hand the engine an empty database and make every
// generated query fail validation.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Adapter, error) {
	if err := checkFileExists(dsn); err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite connect: %w", err)
	}

	return &Adapter{db: db, logger: logger.Named("sqlite")}, nil
}

func checkFileExists(dsn string) error {
	path := dsn
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, "file:")
	if path == ":memory:" || path == "" || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("sqlite database file not found: %s (set DB_DSN to an existing file to avoid creating an empty database)", path)
	}
	return nil
}

// Dialect implements datasource.Adapter.
func (a *Adapter) Dialect() string {
	return "sqlite"
}

// LiveSchema returns the current tables and their columns from
// sqlite_master plus PRAGMA table_info, excluding SQLite internals.
func (a *Adapter) LiveSchema(ctx context.Context) (map[string][]string, error) {
	var tables []string
	err := a.db.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list tables: %w", err)
	}

	schema := make(map[string][]string, len(tables))
	for _, table := range tables {
		rows, err := a.db.QueryxContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(table)))
		if err != nil {
			return nil, fmt.Errorf("sqlite table_info %s: %w", table, err)
		}

		var cols []string
		for rows.Next() {
			// PRAGMA table_info: cid, name, type, notnull, dflt_value, pk
			info := make(map[string]any)
			if err := rows.MapScan(info); err != nil {
				rows.Close()
				return nil, fmt.Errorf("sqlite table_info %s: %w", table, err)
			}
			if name, ok := info["name"].(string); ok {
				cols = append(cols, name)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("sqlite table_info %s: %w", table, err)
		}

		schema[table] = cols
	}

	return schema, nil
}

// Execute implements datasource.Adapter.
func (a *Adapter) Execute(ctx context.Context, sqlText string, maxRows int) *datasource.Outcome {
	return datasource.RunStatement(ctx, a.db, "sqlite", sqlText, maxRows)
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	return a.db.Close()
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ datasource.Adapter = (*Adapter)(nil)
