package text2sql

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTables_AllPresent(t *testing.T) {
	live := testLiveSchema()

	tests := []string{
		"SELECT * FROM orders",
		"SELECT * FROM orders o JOIN customers c ON o.customer_id = c.id",
		"SELECT * FROM ORDERS",
		"SELECT * FROM sales.orders", // qualifier stripped before lookup
		"SELECT 1",                   // no table references at all
	}

	for _, sqlText := range tests {
		assert.Empty(t, ValidateTables(sqlText, live), "sql: %s", sqlText)
	}
}

func TestValidateTables_MissingTable(t *testing.T) {
	msg := ValidateTables("SELECT * FROM invoices", testLiveSchema())

	assert.Contains(t, msg, "do not exist")
	assert.Contains(t, msg, "invoices")
	assert.Contains(t, msg, "Available tables: customers, orders, products")
}

func TestValidateTables_MultipleMissingDeduped(t *testing.T) {
	sqlText := "SELECT * FROM invoices i JOIN invoices x ON i.id = x.id JOIN shipments s ON i.id = s.invoice_id"
	msg := ValidateTables(sqlText, testLiveSchema())

	assert.Contains(t, msg, "invoices, shipments")
}

func TestValidateTables_AvailableListBounded(t *testing.T) {
	live := map[string][]string{}
	for i := 0; i < 60; i++ {
		live[fmt.Sprintf("table_%03d", i)] = []string{"id"}
	}

	msg := ValidateTables("SELECT * FROM missing", live)

	assert.Contains(t, msg, "missing")
	assert.Contains(t, msg, "...")
	assert.Contains(t, msg, "table_000")
	assert.NotContains(t, msg, "table_059")
}
