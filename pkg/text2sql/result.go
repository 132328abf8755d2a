package text2sql

import (
	"encoding/json"
	"strings"

	"github.com/queryloop-ai/queryloop-engine/pkg/jsonutil"
	"github.com/queryloop-ai/queryloop-engine/pkg/llm"
)

// ResultKind discriminates the three shapes a model turn can produce.
type ResultKind string

const (
	KindSQL           ResultKind = "sql"
	KindClarification ResultKind = "clarification"
	KindAnswer        ResultKind = "answer"
)

// GenerationResult is the parsed model output. Exactly one of the payload
// field groups is meaningful, selected by Kind. Raw always carries the
// model's unparsed response for logging and debugging.
type GenerationResult struct {
	Kind      ResultKind `json:"kind"`
	SQL       string     `json:"sql,omitempty"`
	Questions []string   `json:"questions,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Answer    string     `json:"answer,omitempty"`
	Raw       string     `json:"-"`
}

// wireResult matches the JSON contract the prompts demand. Payload fields
// stay raw so lenient coercion can absorb type drift from the model.
type wireResult struct {
	Type      string          `json:"type"`
	SQL       json.RawMessage `json:"sql"`
	Questions json.RawMessage `json:"questions"`
	Reason    json.RawMessage `json:"reason"`
	Text      json.RawMessage `json:"text"`
}

const unparseableReason = "The model response could not be interpreted. Please rephrase your question."

// ParseGeneration turns a raw model response into a GenerationResult. It
// never returns nil: any response that cannot be parsed into one of the
// three contract shapes degrades to a clarification asking the user to
// rephrase, with Raw preserved.
func ParseGeneration(raw string) *GenerationResult {
	res := &GenerationResult{Raw: raw}

	jsonStr, err := llm.ExtractJSON(raw)
	if err != nil {
		return res.degrade(unparseableReason)
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return res.degrade(unparseableReason)
	}

	switch strings.ToLower(strings.TrimSpace(wire.Type)) {
	case "sql":
		res.Kind = KindSQL
		res.SQL = strings.TrimSpace(jsonutil.FlexibleStringValue(wire.SQL))
		if res.SQL == "" {
			return res.degrade("The model produced an empty query. Please rephrase your question.")
		}
	case "clarification":
		res.Kind = KindClarification
		res.Questions = jsonutil.FlexibleStringSlice(wire.Questions)
		res.Reason = jsonutil.FlexibleStringValue(wire.Reason)
		if len(res.Questions) == 0 && res.Reason == "" {
			return res.degrade("Could you provide more detail about what you are looking for?")
		}
	case "answer":
		res.Kind = KindAnswer
		res.Answer = strings.TrimSpace(jsonutil.FlexibleStringValue(wire.Text))
		if res.Answer == "" {
			return res.degrade(unparseableReason)
		}
	default:
		return res.degrade(unparseableReason)
	}

	return res
}

// Clarification builds a synthetic clarification result, used when a
// collaborator failure must surface as a user-facing question rather than
// an internal error.
func Clarification(reason string, questions ...string) *GenerationResult {
	return &GenerationResult{
		Kind:      KindClarification,
		Questions: questions,
		Reason:    reason,
	}
}

func (r *GenerationResult) degrade(reason string) *GenerationResult {
	r.Kind = KindClarification
	r.SQL = ""
	r.Questions = nil
	r.Answer = ""
	r.Reason = reason
	return r
}
