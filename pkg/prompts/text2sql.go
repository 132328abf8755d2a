// Package prompts builds the system instructions and user messages for SQL
// generation and repair.
package prompts

import (
	"fmt"
	"strings"
)

// SQLSystemPrompt is the system instruction for first-pass generation. The
// rules pin the model to the supplied context and to a strict three-way JSON
// contract with no prose and no markdown.
const SQLSystemPrompt = `You are a careful SQL assistant.
Rules:
1) Use ONLY the tables and columns that appear in the provided context under 'Relevant tables & columns'.
2) Never invent table or column names. If required info is missing (table not confirmed, column not listed, filters unclear), ask clarifying questions instead.
3) Apply the dialect rules stated in the context exactly.
4) If the question is conversational and needs no data (greetings, thanks, questions about your capabilities), answer it directly.
5) Return STRICT JSON with exactly one of these shapes:
   A) {"type":"sql","sql":"..."}
   B) {"type":"clarification","questions":["...","..."],"reason":"..."}
   C) {"type":"answer","text":"..."}
6) Do NOT include markdown fences. Do NOT include extra keys. Do NOT include any text outside the JSON object.`

// RepairSystemPrompt is the system instruction for the repair pass after an
// execution failure.
const RepairSystemPrompt = `You are a careful SQL assistant fixing a failed query.
Rules:
1) Use ONLY the tables and columns that appear in the provided context under 'Relevant tables & columns'.
2) Fix the SQL to resolve the error. If the error indicates a missing table or column, choose the closest match from the context or ask for clarification - never guess a structurally different name.
3) Apply the dialect rules stated in the context exactly.
4) If you cannot fix the query without new information, ask clarifying questions.
5) Return STRICT JSON with exactly one of these shapes:
   A) {"type":"sql","sql":"..."}
   B) {"type":"clarification","questions":["...","..."],"reason":"..."}
6) Do NOT include markdown fences. Do NOT include extra keys. Do NOT include any text outside the JSON object.`

// BuildGeneratePrompt assembles the user message for first-pass generation.
func BuildGeneratePrompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString("QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nCONTEXT:\n")
	b.WriteString(contextText)
	b.WriteString("\n")
	return b.String()
}

// BuildRepairPrompt assembles the user message for the repair pass,
// including the failing SQL and the database error verbatim.
func BuildRepairPrompt(question, prevSQL, errorMsg, contextText string) string {
	var b strings.Builder
	b.WriteString("QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nPREVIOUS_SQL:\n")
	b.WriteString(prevSQL)
	b.WriteString("\n\nERROR:\n")
	b.WriteString(errorMsg)
	b.WriteString("\n\nCONTEXT:\n")
	b.WriteString(contextText)
	b.WriteString("\n")
	return b.String()
}

// BuildDialectNote renders the dialect instruction included in the context.
func BuildDialectNote(dialect string, schemaLess bool) string {
	if schemaLess {
		return fmt.Sprintf("%s rules: DO NOT qualify table names with a schema prefix. Refer to tables by bare name only.", strings.ToUpper(dialect[:1])+dialect[1:])
	}
	return "Use fully qualified schema.table identifiers where the schema is known."
}
