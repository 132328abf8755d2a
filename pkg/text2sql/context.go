package text2sql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/queryloop-ai/queryloop-engine/pkg/metadata"
	"github.com/queryloop-ai/queryloop-engine/pkg/prompts"
)

// ContextConfig bounds the size of the assembled prompt context.
type ContextConfig struct {
	MaxSnippets   int // relationship/description snippets each
	SnippetMaxLen int // characters per snippet
	MaxTables     int // per-table column blocks
}

// DefaultContextConfig mirrors the engine defaults.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{MaxSnippets: 10, SnippetMaxLen: 500, MaxTables: 10}
}

// maxListedTables caps the full live-table listing in the prompt.
const maxListedTables = 200

// maxListedColumns caps the per-table column listing in the prompt.
const maxListedColumns = 80

// RetrievalContext is the per-question grounding artifact handed to the
// generation engine and reused unchanged by the repair loop. It is built
// once per turn from fresh live-schema data and treated as read-only after
// construction.
type RetrievalContext struct {
	Dialect Dialect

	// AvailableTables is every table that exists in the live database right
	// now. This is ground truth; metadata hits are only suggestions.
	AvailableTables []string

	// RelevantTables is the intersection of hit-mentioned tables with
	// AvailableTables, in hit order.
	RelevantTables []string

	// TableColumns holds columns for relevant tables, sourced exclusively
	// from the live schema (hit text may be stale).
	TableColumns map[string][]string

	// Relationships and Descriptions are bounded metadata snippets.
	Relationships []string
	Descriptions  []string

	// KnownSchemas are schema names observed in hits, used only for
	// dialect-specific qualifier stripping.
	KnownSchemas []string

	// DialectNote is the dialect instruction included in the prompt.
	DialectNote string

	promptText string
}

// BuildContext assembles the retrieval context from metadata hits and the
// live schema. Hits referencing tables absent from the live database are
// dropped from the relevant set: that intersection is the anti-hallucination
// guard, and columns always come from the live schema rather than hit text.
//
// When the intersection is empty, the context still carries the dialect
// note and the full live table list so the model has some ground truth to
// ask a sane clarifying question from.
func BuildContext(hits []metadata.Hit, liveSchema map[string][]string, dialect Dialect, cfg ContextConfig) *RetrievalContext {
	if cfg.MaxSnippets <= 0 {
		cfg.MaxSnippets = 10
	}
	if cfg.SnippetMaxLen <= 0 {
		cfg.SnippetMaxLen = 500
	}
	if cfg.MaxTables <= 0 {
		cfg.MaxTables = 10
	}

	// Case-insensitive lookup from bare name to the live schema's canonical
	// table name.
	liveByLower := make(map[string]string, len(liveSchema))
	available := make([]string, 0, len(liveSchema))
	for table := range liveSchema {
		liveByLower[strings.ToLower(table)] = table
		available = append(available, table)
	}
	sort.Strings(available)

	rc := &RetrievalContext{
		Dialect:         dialect,
		AvailableTables: available,
		TableColumns:    make(map[string][]string),
	}

	// Known schemas from hits, used only for qualifier stripping. For
	// schema-less dialects the implicit "main" schema is always known, so
	// "main.orders" strips even when no hit mentioned it.
	schemaSeen := make(map[string]struct{})
	if dialect.SchemaLess() {
		schemaSeen["main"] = struct{}{}
		rc.KnownSchemas = append(rc.KnownSchemas, "main")
	}

	relevantSeen := make(map[string]struct{})
	addRelevant := func(name string) {
		if name == "" {
			return
		}
		canonical, exists := liveByLower[strings.ToLower(name)]
		if !exists {
			return
		}
		if _, dup := relevantSeen[canonical]; dup {
			return
		}
		relevantSeen[canonical] = struct{}{}
		rc.RelevantTables = append(rc.RelevantTables, canonical)
		rc.TableColumns[canonical] = liveSchema[canonical]
	}

	for _, h := range hits {
		for _, schema := range []string{h.SchemaName, h.FromSchema, h.ToSchema} {
			schema = strings.TrimSpace(schema)
			if schema == "" {
				continue
			}
			if _, dup := schemaSeen[strings.ToLower(schema)]; dup {
				continue
			}
			schemaSeen[strings.ToLower(schema)] = struct{}{}
			rc.KnownSchemas = append(rc.KnownSchemas, schema)
		}

		addRelevant(h.TableName)
		addRelevant(h.FromTable)
		addRelevant(h.ToTable)

		switch h.DocType {
		case metadata.DocTypeRelationship:
			if snip := relationshipSnippet(h, cfg.SnippetMaxLen); snip != "" && len(rc.Relationships) < cfg.MaxSnippets {
				rc.Relationships = append(rc.Relationships, snip)
			}
		case metadata.DocTypeTable, metadata.DocTypeField:
			if c := strings.TrimSpace(h.Content); c != "" && len(rc.Descriptions) < cfg.MaxSnippets {
				rc.Descriptions = append(rc.Descriptions, truncate(c, cfg.SnippetMaxLen))
			}
		}
	}

	if len(rc.RelevantTables) > cfg.MaxTables {
		for _, dropped := range rc.RelevantTables[cfg.MaxTables:] {
			delete(rc.TableColumns, dropped)
		}
		rc.RelevantTables = rc.RelevantTables[:cfg.MaxTables]
	}

	sort.Strings(rc.KnownSchemas)
	rc.DialectNote = prompts.BuildDialectNote(string(dialect), dialect.SchemaLess())
	rc.promptText = rc.render()

	return rc
}

// PromptText returns the rendered context block sent to the model.
func (rc *RetrievalContext) PromptText() string {
	return rc.promptText
}

func (rc *RetrievalContext) render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Database dialect: %s\n", rc.Dialect)
	b.WriteString(rc.DialectNote)
	b.WriteString("\n")

	b.WriteString("\nAvailable tables in the connected DB:\n")
	if len(rc.AvailableTables) == 0 {
		b.WriteString("- (none)\n")
	} else {
		listed := rc.AvailableTables
		if len(listed) > maxListedTables {
			listed = listed[:maxListedTables]
		}
		b.WriteString("- " + strings.Join(listed, ", ") + "\n")
	}

	b.WriteString("\nRelevant tables & columns (from live schema):\n")
	if len(rc.RelevantTables) == 0 {
		b.WriteString("- (no relevant tables confirmed)\n")
	} else {
		for _, table := range rc.RelevantTables {
			cols := rc.TableColumns[table]
			if len(cols) > maxListedColumns {
				cols = cols[:maxListedColumns]
			}
			fmt.Fprintf(&b, "- %s: columns = %s\n", table, strings.Join(cols, ", "))
		}
	}

	b.WriteString("\nRelationships (from metadata):\n")
	if len(rc.Relationships) == 0 {
		b.WriteString("- (none found)\n")
	} else {
		for _, snip := range rc.Relationships {
			b.WriteString("- " + snip + "\n")
		}
	}

	b.WriteString("\nDescriptions (from metadata):\n")
	if len(rc.Descriptions) == 0 {
		b.WriteString("- (none found)\n")
	} else {
		for _, snip := range rc.Descriptions {
			b.WriteString("- " + snip + "\n")
		}
	}

	return b.String()
}

// relationshipSnippet prefers the document's own content, synthesizing a
// join hint from structured fields when content is empty.
func relationshipSnippet(h metadata.Hit, maxLen int) string {
	if c := strings.TrimSpace(h.Content); c != "" {
		return truncate(c, maxLen)
	}
	if h.FromTable == "" || h.ToTable == "" {
		return ""
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%s joins %s", h.FromTable, h.ToTable))
	if h.JoinKeys != "" {
		parts = append(parts, "on "+h.JoinKeys)
	}
	if h.JoinType != "" {
		parts = append(parts, "("+h.JoinType+")")
	}
	if h.Cardinality != "" {
		parts = append(parts, "cardinality "+h.Cardinality)
	}
	return truncate(strings.Join(parts, " "), maxLen)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
