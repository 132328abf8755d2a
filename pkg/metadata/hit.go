// Package metadata retrieves and normalizes metadata documents for a
// natural-language question.
package metadata

import (
	"fmt"
	"strings"

	"github.com/queryloop-ai/queryloop-engine/pkg/search"
)

// DocType discriminates the document shapes stored in the metadata index.
type DocType string

const (
	DocTypeTable        DocType = "table"
	DocTypeField        DocType = "field"
	DocTypeRelationship DocType = "relationship"
)

// Hit is one retrieved metadata document, normalized to a common shape.
// Every optional field defaults to its zero value; consumers must not assume
// any field beyond DocType and Score is populated.
type Hit struct {
	DocType    DocType
	Score      float64
	SchemaName string
	TableName  string
	ColumnName string
	Content    string

	// Relationship documents only
	FromSchema  string
	FromTable   string
	ToSchema    string
	ToTable     string
	JoinType    string
	JoinKeys    string
	Cardinality string
}

// IsRelationship reports whether the hit describes a join between tables.
func (h Hit) IsRelationship() bool {
	return h.DocType == DocTypeRelationship
}

// Normalize converts a raw index result into a Hit, defaulting every missing
// or mistyped field rather than failing. The index's document shapes have
// drifted over time, so nothing about the raw map is trusted.
func Normalize(r search.Result) Hit {
	f := r.Fields
	return Hit{
		DocType:     DocType(strings.ToLower(stringField(f, "doc_type"))),
		Score:       r.Score,
		SchemaName:  stringField(f, "schema_name"),
		TableName:   stringField(f, "table_name"),
		ColumnName:  stringField(f, "column_name"),
		Content:     stringField(f, "content"),
		FromSchema:  stringField(f, "from_schema"),
		FromTable:   stringField(f, "from_table"),
		ToSchema:    stringField(f, "to_schema"),
		ToTable:     stringField(f, "to_table"),
		JoinType:    stringField(f, "join_type"),
		JoinKeys:    stringField(f, "join_keys"),
		Cardinality: stringField(f, "cardinality"),
	}
}

// stringField reads a key from a raw document, coercing scalar types to
// string and returning "" for anything missing or non-scalar.
func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return ""
	}
}
