package text2sql

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource"
	"github.com/queryloop-ai/queryloop-engine/pkg/apperrors"
	"github.com/queryloop-ai/queryloop-engine/pkg/logging"
	"github.com/queryloop-ai/queryloop-engine/pkg/metadata"
	"github.com/queryloop-ai/queryloop-engine/pkg/sqlguard"
)

// State names a phase of a question turn, in the order phases occur.
type State string

const (
	StateRetrieving State = "retrieving"
	StateGenerating State = "generating"
	StateClarifying State = "clarifying"
	StateAnswering  State = "answering"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateRepairing  State = "repairing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Event is a single status emission during a turn. Seq is monotonically
// increasing within the turn.
type Event struct {
	Seq     int       `json:"seq"`
	State   State     `json:"state"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// EmitFunc receives status events as the turn progresses. It must not
// block for long; it is called synchronously on the turn goroutine.
type EmitFunc func(Event)

// TurnOptions tune a single turn. Zero values fall back to the controller
// configuration.
type TurnOptions struct {
	// Execute controls whether validated SQL is actually run. When false
	// the turn stops after validation and returns the SQL only.
	Execute bool

	// MaxRows overrides the preview row cap for this turn.
	MaxRows int

	// TopK overrides the metadata retrieval depth for this turn.
	TopK int
}

// TurnResult is the terminal product of a turn. Result is never nil on a
// nil-error return; Outcome is nil when nothing was executed.
type TurnResult struct {
	TurnID   string              `json:"turn_id"`
	Question string              `json:"question"`
	Status   State               `json:"status"`
	Result   *GenerationResult   `json:"result"`
	Outcome  *datasource.Outcome `json:"outcome,omitempty"`
	Attempts int                 `json:"attempts"`
}

// ControllerConfig carries the engine-level knobs for turn processing.
type ControllerConfig struct {
	MaxExecutionAttempts int
	MaxPreviewRows       int
	TopK                 int

	// QueryTimeout bounds each database call (schema read, execution).
	// Zero disables the per-call deadline.
	QueryTimeout time.Duration

	Context ContextConfig
}

// Controller runs question turns end to end: retrieve, build context,
// generate, validate, execute, repair. A new question supersedes any turn
// still in flight; the superseded turn aborts at its next phase boundary
// with ErrTurnSuperseded.
type Controller struct {
	retriever *metadata.Retriever
	generator *Generator
	adapter   datasource.Adapter
	cfg       ControllerConfig
	logger    *zap.Logger

	turnSeq atomic.Uint64
}

// NewController builds a Controller. Zero config fields get safe defaults.
func NewController(retriever *metadata.Retriever, generator *Generator, adapter datasource.Adapter, cfg ControllerConfig, logger *zap.Logger) *Controller {
	if cfg.MaxExecutionAttempts <= 0 {
		cfg.MaxExecutionAttempts = 2
	}
	if cfg.MaxPreviewRows <= 0 {
		cfg.MaxPreviewRows = 500
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 12
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		retriever: retriever,
		generator: generator,
		adapter:   adapter,
		cfg:       cfg,
		logger:    logger,
	}
}

const (
	metadataUnavailableReason = "The metadata index is temporarily unavailable, so I cannot ground an answer right now. Please try again shortly."
	databaseUnavailableReason = "The database is temporarily unavailable. Please try again shortly."
	suspiciousLiteralMessage  = "query rejected: a string literal looks like a SQL injection payload"
)

// Ask runs one full turn for the question. Events stream to emit (which
// may be nil) in phase order; the returned TurnResult is the terminal
// state. A non-nil error is returned only for an empty question, a
// superseded turn, or context cancellation; collaborator failures surface
// as clarification results instead.
func (c *Controller) Ask(ctx context.Context, question string, opts TurnOptions, emit EmitFunc) (*TurnResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.ErrEmptyQuestion
	}

	seq := c.turnSeq.Add(1)
	turn := &turnRun{
		controller: c,
		seq:        seq,
		emit:       emit,
		result: &TurnResult{
			TurnID:   uuid.New().String(),
			Question: question,
		},
	}

	// Per-turn cap may shrink the preview but never exceed the configured
	// ceiling.
	maxRows := opts.MaxRows
	if maxRows <= 0 || maxRows > c.cfg.MaxPreviewRows {
		maxRows = c.cfg.MaxPreviewRows
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = c.cfg.TopK
	}

	log := c.logger.With(zap.String("turn_id", turn.result.TurnID))
	log.Info("turn started", zap.Int("question_len", len(question)))

	// Retrieval. An unreachable index degrades to a clarification; the
	// retriever already falls back to lexical search internally when only
	// the embedder fails.
	turn.event(StateRetrieving, "searching metadata for relevant tables")
	hits, err := c.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		log.Warn("metadata retrieval failed", zap.Error(err))
		return turn.clarify(Clarification(metadataUnavailableReason)), nil
	}
	if err := turn.checkAlive(ctx); err != nil {
		return nil, err
	}

	// Live schema is re-read every turn; it is the ground truth the
	// context and validator are built from.
	liveSchema, err := c.readLiveSchema(ctx)
	if err != nil {
		log.Warn("live schema read failed", zap.Error(err))
		return turn.clarify(Clarification(databaseUnavailableReason)), nil
	}
	rc := BuildContext(hits, liveSchema, Dialect(c.adapter.Dialect()), c.cfg.Context)
	log.Debug("context built",
		zap.Int("hits", len(hits)),
		zap.Int("live_tables", len(rc.AvailableTables)),
		zap.Int("relevant_tables", len(rc.RelevantTables)))

	turn.event(StateGenerating, "generating SQL")
	res := c.generator.Generate(ctx, question, rc)
	if err := turn.checkAlive(ctx); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		turn.result.Attempts = attempt

		switch res.Kind {
		case KindClarification:
			return turn.clarify(res), nil
		case KindAnswer:
			turn.event(StateAnswering, "answering from metadata")
			return turn.finish(StateSucceeded, res, nil), nil
		}

		turn.event(StateValidating, "checking query tables against the live schema")
		failure := ValidateTables(res.SQL, liveSchema)

		if failure == "" {
			if hit := firstInjectionHit(res.SQL); hit != nil {
				log.Warn("generated SQL rejected by injection check",
					zap.String("fingerprint", hit.Fingerprint),
					zap.String("sql", logging.TruncateSQL(res.SQL)))
				return turn.fail(res, datasource.ErrorOutcome(suspiciousLiteralMessage)), nil
			}

			if !opts.Execute {
				return turn.finish(StateSucceeded, res, nil), nil
			}

			turn.event(StateExecuting, fmt.Sprintf("running query (attempt %d of %d)", attempt, c.cfg.MaxExecutionAttempts))
			outcome := c.executeSQL(ctx, res.SQL, maxRows)
			if err := turn.checkAlive(ctx); err != nil {
				return nil, err
			}
			if !outcome.Failed() {
				log.Info("turn succeeded",
					zap.Int("attempt", attempt),
					zap.Int("rows", outcome.RowCount),
					zap.Bool("truncated", outcome.Truncated))
				return turn.finish(StateSucceeded, res, outcome), nil
			}
			failure = outcome.Err
			if attempt >= c.cfg.MaxExecutionAttempts {
				log.Warn("turn failed, attempts exhausted",
					zap.Int("attempts", attempt),
					zap.String("error", failure))
				return turn.fail(res, outcome), nil
			}
		} else if attempt >= c.cfg.MaxExecutionAttempts {
			// The database was never touched, so this is a grounding
			// problem, not an execution failure: hand the missing-table
			// message (with its available-table sample) back to the user.
			log.Warn("validation still failing, attempts exhausted",
				zap.Int("attempts", attempt),
				zap.String("error", failure))
			return turn.clarify(Clarification(failure)), nil
		}

		turn.event(StateRepairing, "repairing query: "+failure)
		res = c.generator.Repair(ctx, question, res.SQL, failure, rc)
		if err := turn.checkAlive(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *Controller) readLiveSchema(ctx context.Context) (map[string][]string, error) {
	if c.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()
	}
	return c.adapter.LiveSchema(ctx)
}

func (c *Controller) executeSQL(ctx context.Context, sqlText string, maxRows int) *datasource.Outcome {
	if c.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()
	}
	return c.adapter.Execute(ctx, sqlText, maxRows)
}

// turnRun carries per-turn emission state.
type turnRun struct {
	controller *Controller
	seq        uint64
	emit       EmitFunc
	eventSeq   int
	result     *TurnResult
}

func (t *turnRun) event(state State, message string) {
	t.eventSeq++
	if t.emit == nil {
		return
	}
	t.emit(Event{Seq: t.eventSeq, State: state, Message: message, At: time.Now().UTC()})
}

// checkAlive aborts the turn when the context is done or a newer question
// has started. Checked at phase boundaries, not mid-phase.
func (t *turnRun) checkAlive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.controller.turnSeq.Load() != t.seq {
		return apperrors.ErrTurnSuperseded
	}
	return nil
}

func (t *turnRun) clarify(res *GenerationResult) *TurnResult {
	t.event(StateClarifying, "asking for clarification")
	return t.finish(StateClarifying, res, nil)
}

func (t *turnRun) fail(res *GenerationResult, outcome *datasource.Outcome) *TurnResult {
	t.event(StateFailed, outcome.Err)
	t.result.Status = StateFailed
	t.result.Result = res
	t.result.Outcome = outcome
	return t.result
}

func (t *turnRun) finish(status State, res *GenerationResult, outcome *datasource.Outcome) *TurnResult {
	if status == StateSucceeded {
		t.event(StateSucceeded, "done")
	}
	t.result.Status = status
	t.result.Result = res
	t.result.Outcome = outcome
	return t.result
}

func firstInjectionHit(sqlText string) *sqlguard.LiteralCheckResult {
	for _, check := range sqlguard.CheckLiterals(sqlText) {
		if check.IsSQLi {
			c := check
			return &c
		}
	}
	return nil
}
