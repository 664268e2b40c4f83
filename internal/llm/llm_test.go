package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	type fields struct {
		ItemName string `json:"item_name"`
		Price    float64
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"フェンスなし", `{"item_name": "Widget", "Price": 9.99}`},
		{"jsonフェンス付き", "```json\n{\"item_name\": \"Widget\", \"Price\": 9.99}\n```"},
		{"言語指定なしフェンス", "```\n{\"item_name\": \"Widget\", \"Price\": 9.99}\n```"},
		{"前後に空白", "  \n```json\n{\"item_name\": \"Widget\", \"Price\": 9.99}\n```  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got fields
			require.NoError(t, ExtractJSON(tt.raw, &got))
			assert.Equal(t, "Widget", got.ItemName)
			assert.Equal(t, 9.99, got.Price)
		})
	}
}

func TestExtractJSONErrors(t *testing.T) {
	var v map[string]any
	assert.Error(t, ExtractJSON("", &v))
	assert.Error(t, ExtractJSON("```json\n```", &v))
	assert.Error(t, ExtractJSON("これはJSONではありません", &v))
}

func TestSearchClientGenerateContent(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"parts": [{"text": "生成された本文"}], "role": "model"},
				"finishReason": "STOP",
				"groundingMetadata": {
					"groundingChunks": [{"web": {"uri": "https://example.com/src", "title": "src"}}],
					"webSearchQueries": ["widget price"]
				}
			}]
		}`))
	}))
	defer server.Close()

	client, err := newSearchClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	assert.True(t, client.SupportsWebSearch())

	resp, err := client.GenerateContent(context.Background(), "プロンプト", "gemini-2.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "生成された本文", resp.Text)
	assert.True(t, resp.SearchOccurred())
	assert.Equal(t, []string{"https://example.com/src"}, resp.SearchSources)

	// google_search ツールがリクエストに載っていること。
	require.Len(t, captured.Tools, 1)
	assert.NotNil(t, captured.Tools[0].GoogleSearch)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "プロンプト", captured.Contents[0].Parts[0].Text)
}

func TestSearchClientNoGroundingMeansNoSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}], "role": "model"}, "finishReason": "STOP"}]}`))
	}))
	defer server.Close()

	client, err := newSearchClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.GenerateContent(context.Background(), "p", "gemini-2.5-flash")
	require.NoError(t, err)
	assert.False(t, resp.SearchOccurred())
}

func TestSearchClientRetriesOnRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}], "role": "model"}, "finishReason": "STOP"}]}`))
	}))
	defer server.Close()

	client, err := newSearchClient(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 10 * time.Second})
	require.NoError(t, err)

	resp, err := client.GenerateContent(context.Background(), "p", "gemini-2.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 2, calls)
}

func TestSearchClientClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "invalid"}}`))
	}))
	defer server.Close()

	client, err := newSearchClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), "p", "gemini-2.5-flash")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewSearchClientRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := newSearchClient(Config{})
	assert.Error(t, err)
}
