package metadata

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/llm"
	"github.com/queryloop-ai/queryloop-engine/pkg/retry"
	"github.com/queryloop-ai/queryloop-engine/pkg/search"
)

// Retriever runs hybrid metadata searches for natural-language questions.
// When the embedding call fails after bounded retries, retrieval degrades to
// lexical-only search instead of failing the turn.
type Retriever struct {
	index          search.Index
	embedder       llm.Embedder
	embeddingModel string
	retryCfg       *retry.Config
	logger         *zap.Logger
}

// NewRetriever creates a retriever. retryCfg may be nil to use defaults.
func NewRetriever(index search.Index, embedder llm.Embedder, embeddingModel string, retryCfg *retry.Config, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		index:          index,
		embedder:       embedder,
		embeddingModel: embeddingModel,
		retryCfg:       retryCfg,
		logger:         logger.Named("retriever"),
	}
}

// Retrieve searches the metadata index for documents relevant to the
// question and normalizes them into hits. An empty hit list means
// "insufficient context", never an error. The returned error is non-nil
// only when the index itself is unreachable after retries.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]Hit, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 12
	}

	vector := r.embedQuestion(ctx, q)

	results, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]search.Result, error) {
		return r.index.Search(ctx, search.Query{
			SearchText: q,
			Vector:     vector,
			TopK:       topK,
		})
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, Normalize(res))
	}

	r.logger.Debug("retrieved metadata hits",
		zap.Int("hits", len(hits)),
		zap.Bool("hybrid", vector != nil))

	return hits, nil
}

// embedQuestion returns the question embedding, or nil when the embedding
// service is unavailable. Exhausted retries degrade to lexical-only search;
// embedding failures never propagate upward.
func (r *Retriever) embedQuestion(ctx context.Context, question string) []float32 {
	if r.embedder == nil {
		return nil
	}

	vector, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]float32, error) {
		return r.embedder.CreateEmbedding(ctx, question, r.embeddingModel)
	})
	if err != nil {
		r.logger.Warn("embedding unavailable, falling back to lexical-only search", zap.Error(err))
		return nil
	}
	return vector
}
