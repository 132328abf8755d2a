package text2sql

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/llm"
	"github.com/queryloop-ai/queryloop-engine/pkg/logging"
	"github.com/queryloop-ai/queryloop-engine/pkg/prompts"
	"github.com/queryloop-ai/queryloop-engine/pkg/retry"
)

const modelUnavailableReason = "The language model is temporarily unavailable. Please try again shortly."

// Generator wraps a chat client with the generation and repair prompts.
// It never surfaces transport errors: a model failure after retries becomes
// a clarification result so the caller always has something to return.
type Generator struct {
	chat        llm.ChatClient
	temperature float64
	timeout     time.Duration
	retryCfg    *retry.Config
	logger      *zap.Logger
}

// NewGenerator builds a Generator. A nil retry config uses the package
// default; a zero timeout disables the per-call deadline.
func NewGenerator(chat llm.ChatClient, temperature float64, timeout time.Duration, retryCfg *retry.Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		chat:        chat,
		temperature: temperature,
		timeout:     timeout,
		retryCfg:    retryCfg,
		logger:      logger,
	}
}

// Generate runs a first-pass generation over the question and context.
// The returned result is never nil.
func (g *Generator) Generate(ctx context.Context, question string, rc *RetrievalContext) *GenerationResult {
	prompt := prompts.BuildGeneratePrompt(question, rc.PromptText())
	return g.complete(ctx, prompt, prompts.SQLSystemPrompt, rc)
}

// Repair asks the model to fix a previously failed query. The context is
// the same artifact used for generation; only the prompt changes.
// The returned result is never nil.
func (g *Generator) Repair(ctx context.Context, question, prevSQL, errorMsg string, rc *RetrievalContext) *GenerationResult {
	prompt := prompts.BuildRepairPrompt(question, prevSQL, errorMsg, rc.PromptText())
	return g.complete(ctx, prompt, prompts.RepairSystemPrompt, rc)
}

func (g *Generator) complete(ctx context.Context, prompt, system string, rc *RetrievalContext) *GenerationResult {
	// The deadline is per call, not per retry loop, so a retried attempt
	// does not inherit an almost-spent budget.
	raw, err := retry.DoWithResult(ctx, g.retryCfg, func() (string, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return g.chat.GenerateResponse(callCtx, prompt, system, g.temperature)
	})
	if err != nil {
		g.logger.Warn("model call failed after retries",
			zap.String("model", g.chat.GetModel()),
			zap.Error(err))
		return Clarification(modelUnavailableReason)
	}

	res := ParseGeneration(raw)
	if res.Kind == KindSQL && rc.Dialect.SchemaLess() {
		res.SQL = StripSchemaQualifiers(res.SQL, rc.KnownSchemas, rc.AvailableTables)
	}

	g.logger.Debug("generation parsed",
		zap.String("kind", string(res.Kind)),
		zap.String("sql", logging.TruncateSQL(res.SQL)))
	return res
}
