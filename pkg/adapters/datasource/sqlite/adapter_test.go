package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	a, err := New(context.Background(), path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	// Single connection so DDL and queries share the same database handle.
	a.db.SetMaxOpenConns(1)
	return a
}

func seedOrders(t *testing.T, a *Adapter, rows int) {
	t.Helper()
	ctx := context.Background()

	out := a.Execute(ctx, "CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL, note TEXT)", 0)
	require.False(t, out.Failed(), "create table: %s", out.Err)

	for i := 1; i <= rows; i++ {
		out = a.Execute(ctx, fmt.Sprintf("INSERT INTO orders (id, total, note) VALUES (%d, %d.5, 'order %d')", i, i, i), 0)
		require.False(t, out.Failed(), "insert: %s", out.Err)
		assert.EqualValues(t, 1, out.RowsAffected)
	}
}

func TestNew_MissingFile(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "absent.db"), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAdapter_Dialect(t *testing.T) {
	a := newTestAdapter(t)
	assert.Equal(t, "sqlite", a.Dialect())
}

func TestLiveSchema(t *testing.T) {
	a := newTestAdapter(t)
	seedOrders(t, a, 1)

	out := a.Execute(context.Background(), "CREATE TABLE customers (id INTEGER, name TEXT)", 0)
	require.False(t, out.Failed(), out.Err)

	schema, err := a.LiveSchema(context.Background())
	require.NoError(t, err)

	assert.Len(t, schema, 2)
	assert.Equal(t, []string{"id", "total", "note"}, schema["orders"])
	assert.Equal(t, []string{"id", "name"}, schema["customers"])
}

func TestExecute_QueryWithPreviewCap(t *testing.T) {
	a := newTestAdapter(t)
	seedOrders(t, a, 10)

	out := a.Execute(context.Background(), "SELECT id, note FROM orders ORDER BY id", 3)
	require.False(t, out.Failed(), out.Err)

	assert.True(t, out.Query)
	assert.Equal(t, []string{"id", "note"}, out.Columns)
	assert.Equal(t, 3, out.RowCount)
	assert.True(t, out.Truncated)
	assert.Equal(t, "order 1", out.Rows[0]["note"])
}

func TestExecute_QueryExactlyAtCap(t *testing.T) {
	a := newTestAdapter(t)
	seedOrders(t, a, 3)

	out := a.Execute(context.Background(), "SELECT id FROM orders ORDER BY id", 3)
	require.False(t, out.Failed(), out.Err)

	// All rows fit, so nothing was cut off.
	assert.Equal(t, 3, out.RowCount)
	assert.False(t, out.Truncated)
}

func TestExecute_QueryUnderCap(t *testing.T) {
	a := newTestAdapter(t)
	seedOrders(t, a, 2)

	out := a.Execute(context.Background(), "SELECT * FROM orders", 100)
	require.False(t, out.Failed(), out.Err)
	assert.Equal(t, 2, out.RowCount)
	assert.False(t, out.Truncated)
}

func TestExecute_DriverErrorSurfacesVerbatim(t *testing.T) {
	a := newTestAdapter(t)
	seedOrders(t, a, 1)

	out := a.Execute(context.Background(), "SELECT * FROM orderz", 10)
	require.True(t, out.Failed())
	assert.Contains(t, out.Err, "orderz")
}

func TestExecute_MultipleStatementsRejected(t *testing.T) {
	a := newTestAdapter(t)
	seedOrders(t, a, 1)

	out := a.Execute(context.Background(), "SELECT 1; DROP TABLE orders", 10)
	require.True(t, out.Failed())
	assert.Contains(t, out.Err, "multiple SQL statements")

	schema, err := a.LiveSchema(context.Background())
	require.NoError(t, err)
	assert.Contains(t, schema, "orders")
}
