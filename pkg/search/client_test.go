package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/indexes/metadata/query", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var q Query
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, "orders last month", q.SearchText)
		assert.Equal(t, 12, q.TopK)
		assert.Equal(t, []float32{0.1, 0.2}, q.Vector)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"score": 0.92, "fields": map[string]any{"doc_type": "table", "table_name": "orders"}},
			},
		})
	}))
	defer server.Close()

	c, err := NewClient(&ClientConfig{Endpoint: server.URL, Index: "metadata", APIKey: "secret-key"}, zap.NewNop())
	require.NoError(t, err)

	results, err := c.Search(context.Background(), Query{
		SearchText: "orders last month",
		Vector:     []float32{0.1, 0.2},
		TopK:       12,
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.92, results[0].Score)
	assert.Equal(t, "orders", results[0].Fields["table_name"])
}

func TestClientSearch_NoAPIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Api-Key"]
		assert.False(t, present, "api-key header should be omitted when unset")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	c, err := NewClient(&ClientConfig{Endpoint: server.URL, Index: "metadata"}, zap.NewNop())
	require.NoError(t, err)

	results, err := c.Search(context.Background(), Query{SearchText: "q", TopK: 1})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClientSearch_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, err := NewClient(&ClientConfig{Endpoint: server.URL, Index: "metadata"}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Search(context.Background(), Query{SearchText: "q", TopK: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "index rebuilding")
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(&ClientConfig{Index: "metadata"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{Endpoint: "http://localhost:9200"}, zap.NewNop())
	assert.Error(t, err)
}
