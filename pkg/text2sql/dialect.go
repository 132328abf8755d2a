package text2sql

import (
	"regexp"
	"strings"
)

// Dialect identifies the target database's SQL variant. It decides schema
// qualification rules and the preview-cap syntax used downstream.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMSSQL    Dialect = "mssql"
)

// SchemaLess reports whether the dialect is an embedded/file database with
// no schema namespacing. Generated SQL for such dialects must reference
// tables by bare name.
func (d Dialect) SchemaLess() bool {
	return d == DialectSQLite
}

// qualifiedRefPattern matches "FROM schema.table" / "JOIN schema.table".
// Column references like "alias.column" elsewhere in the statement do not
// match because they do not follow a FROM/JOIN keyword.
var qualifiedRefPattern = regexp.MustCompile(`(?i)\b(from|join)(\s+)([A-Za-z_]\w*)\.([A-Za-z_]\w*)`)

// StripSchemaQualifiers rewrites schema-qualified table references in
// FROM/JOIN position to bare table names. A reference is only rewritten
// when the prefix is a schema name observed in retrieval hits AND the bare
// table exists in the live database; anything else is left untouched.
func StripSchemaQualifiers(sqlText string, knownSchemas []string, liveTables []string) string {
	if sqlText == "" {
		return sqlText
	}

	schemaSet := make(map[string]struct{}, len(knownSchemas))
	for _, s := range knownSchemas {
		if s = strings.TrimSpace(s); s != "" {
			schemaSet[strings.ToLower(s)] = struct{}{}
		}
	}
	tableSet := make(map[string]struct{}, len(liveTables))
	for _, t := range liveTables {
		if t != "" {
			tableSet[strings.ToLower(t)] = struct{}{}
		}
	}

	return qualifiedRefPattern.ReplaceAllStringFunc(sqlText, func(match string) string {
		m := qualifiedRefPattern.FindStringSubmatch(match)
		keyword, space, schema, table := m[1], m[2], m[3], m[4]

		if _, ok := schemaSet[strings.ToLower(schema)]; !ok {
			return match
		}
		if _, ok := tableSet[strings.ToLower(table)]; !ok {
			return match
		}
		return keyword + space + table
	})
}
