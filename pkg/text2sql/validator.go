package text2sql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/queryloop-ai/queryloop-engine/pkg/sqlguard"
)

// maxReportedTables caps how many live table names a validation failure
// message lists back to the model.
const maxReportedTables = 50

// ValidateTables checks every table referenced in FROM/JOIN position
// against the live schema. It returns an empty string when all referenced
// tables exist, otherwise a message naming the missing tables and a bounded
// sample of the tables that do exist, phrased for the repair prompt.
//
// Extraction is the same regex heuristic used elsewhere in the engine;
// subqueries and quoted exotica may slip through, in which case the
// database itself reports the error on execution.
func ValidateTables(sqlText string, liveSchema map[string][]string) string {
	refs := sqlguard.ExtractTables(sqlText)
	if len(refs) == 0 {
		return ""
	}

	liveLower := make(map[string]struct{}, len(liveSchema))
	for table := range liveSchema {
		liveLower[strings.ToLower(table)] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{})
	for _, ref := range refs {
		bare := sqlguard.StripQualifier(ref)
		key := strings.ToLower(bare)
		if _, ok := liveLower[key]; ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, bare)
	}
	if len(missing) == 0 {
		return ""
	}

	available := make([]string, 0, len(liveSchema))
	for table := range liveSchema {
		available = append(available, table)
	}
	sort.Strings(available)
	suffix := ""
	if len(available) > maxReportedTables {
		available = available[:maxReportedTables]
		suffix = ", ..."
	}

	return fmt.Sprintf("query references tables that do not exist: %s. Available tables: %s%s",
		strings.Join(missing, ", "), strings.Join(available, ", "), suffix)
}
