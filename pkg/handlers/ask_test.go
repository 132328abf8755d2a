package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/queryloop-ai/queryloop-engine/pkg/adapters/datasource"
	"github.com/queryloop-ai/queryloop-engine/pkg/llm"
	"github.com/queryloop-ai/queryloop-engine/pkg/metadata"
	"github.com/queryloop-ai/queryloop-engine/pkg/retry"
	"github.com/queryloop-ai/queryloop-engine/pkg/search"
	"github.com/queryloop-ai/queryloop-engine/pkg/text2sql"
)

type fixedAdapter struct {
	schema  map[string][]string
	outcome *datasource.Outcome
	lastMax int
}

func (f *fixedAdapter) Dialect() string { return "sqlite" }

func (f *fixedAdapter) LiveSchema(ctx context.Context) (map[string][]string, error) {
	return f.schema, nil
}

func (f *fixedAdapter) Execute(ctx context.Context, sqlText string, maxRows int) *datasource.Outcome {
	f.lastMax = maxRows
	return f.outcome
}

func (f *fixedAdapter) Close() error { return nil }

func newTestAskHandler(t *testing.T, response string, adapter datasource.Adapter) *AskHandler {
	t.Helper()

	chat := llm.NewMockClient()
	chat.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return response, nil
	}
	embedder := llm.NewMockClient()

	index := &search.MockIndex{}
	index.SearchFunc = func(ctx context.Context, q search.Query) ([]search.Result, error) {
		return []search.Result{
			{Score: 0.9, Fields: map[string]any{"doc_type": "table", "table_name": "orders"}},
		}, nil
	}

	noRetry := retry.DefaultConfig()
	noRetry.MaxRetries = 0

	retriever := metadata.NewRetriever(index, embedder, "embed", noRetry, zap.NewNop())
	generator := text2sql.NewGenerator(chat, 0.1, 0, noRetry, zap.NewNop())
	controller := text2sql.NewController(retriever, generator, adapter, text2sql.ControllerConfig{}, zap.NewNop())

	return NewAskHandler(controller, zap.NewNop())
}

func successAdapter() *fixedAdapter {
	return &fixedAdapter{
		schema: map[string][]string{"orders": {"id", "total"}},
		outcome: &datasource.Outcome{
			Query:    true,
			Columns:  []string{"n"},
			Rows:     []map[string]any{{"n": int64(7)}},
			RowCount: 1,
		},
	}
}

func TestAsk_Success(t *testing.T) {
	h := newTestAskHandler(t, `{"type": "sql", "sql": "SELECT count(*) AS n FROM orders"}`, successAdapter())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": "how many orders?"}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, text2sql.StateSucceeded, resp.Status)
	assert.Equal(t, text2sql.KindSQL, resp.Result.Kind)
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, 1, resp.Outcome.RowCount)
	require.NotEmpty(t, resp.Events)
	assert.Equal(t, text2sql.StateRetrieving, resp.Events[0].State)
	assert.Equal(t, text2sql.StateSucceeded, resp.Events[len(resp.Events)-1].State)
}

func TestAsk_Streaming(t *testing.T) {
	h := newTestAskHandler(t, `{"type": "sql", "sql": "SELECT count(*) AS n FROM orders"}`, successAdapter())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": "how many orders?", "stream": true}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	var events, results int
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var parsed struct {
			Event  *text2sql.Event      `json:"event"`
			Result *text2sql.TurnResult `json:"result"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &parsed), "line: %s", line)
		switch {
		case parsed.Event != nil:
			events++
		case parsed.Result != nil:
			results++
			assert.Equal(t, text2sql.StateSucceeded, parsed.Result.Status)
		default:
			t.Fatalf("line carries neither event nor result: %s", line)
		}
	}
	require.NoError(t, scanner.Err())

	assert.GreaterOrEqual(t, events, 4)
	assert.Equal(t, 1, results)
}

func TestAsk_ExecuteFalse(t *testing.T) {
	adapter := successAdapter()
	h := newTestAskHandler(t, `{"type": "sql", "sql": "SELECT count(*) AS n FROM orders"}`, adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": "how many orders?", "execute": false}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, text2sql.StateSucceeded, resp.Status)
	assert.Nil(t, resp.Outcome)
	assert.NotEmpty(t, resp.Result.SQL)
}

func TestAsk_MaxRowsOverride(t *testing.T) {
	adapter := successAdapter()
	h := newTestAskHandler(t, `{"type": "sql", "sql": "SELECT count(*) AS n FROM orders"}`, adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": "how many orders?", "max_rows": 17}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 17, adapter.lastMax)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	h := newTestAskHandler(t, "unused", successAdapter())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question": "  "}`))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty_question")
}

func TestAsk_InvalidBody(t *testing.T) {
	h := newTestAskHandler(t, "unused", successAdapter())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_MethodNotAllowed(t *testing.T) {
	h := newTestAskHandler(t, "unused", successAdapter())

	req := httptest.NewRequest(http.MethodGet, "/api/ask", nil)
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
