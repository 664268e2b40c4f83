package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 3 * time.Minute

	// API のレート制限に対するリトライ回数。バックオフは指数 (1s, 2s, 4s)。
	searchMaxRetries = 3

	searchMaxOutputTokens = 8192
)

// searchClient は Google 検索グラウンディング付きの実装です。
// go-ai-client は検索ツールを公開していないため、REST API を直接叩きます。
type searchClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Client = (*searchClient)(nil)

func newSearchClient(cfg Config) (*searchClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("LLMクライアントの初期化に失敗しました。APIキーを確認してください")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &searchClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *searchClient) SupportsWebSearch() bool {
	return true
}

// GenerateContent は google_search ツールを有効にして生成を実行し、
// グラウンディングに使われた検索ソースの URL を応答に含めて返します。
func (c *searchClient) GenerateContent(ctx context.Context, prompt, model string) (*Response, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: searchMaxOutputTokens,
		},
		Tools: []geminiTool{
			{GoogleSearch: &geminiGoogleSearch{}},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("リクエストのシリアライズに失敗しました: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	var lastErr error
	for attempt := 0; attempt <= searchMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.doRequest(ctx, url, payload)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) {
			return nil, err
		}

		lastErr = err
		slog.Warn("LLM APIの呼び出しをリトライします",
			slog.Int("attempt", attempt+1),
			slog.String("model", model),
			slog.Any("error", err))
	}

	return nil, fmt.Errorf("リトライ上限を超えました: %w", lastErr)
}

// retryableError はレート制限など再試行可能な失敗を示します。
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

func (c *searchClient) doRequest(ctx context.Context, url string, payload []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("LLM APIへのリクエストに失敗しました: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("レスポンスの読み込みに失敗しました: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &retryableError{err: fmt.Errorf("レート制限を超過しました (429)")}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &retryableError{err: fmt.Errorf("LLM APIがステータス %d を返しました: %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM APIがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("レスポンスのパースに失敗しました: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("LLM APIエラー: %s", apiResp.Error.Message)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("LLMから有効な応答が返されませんでした")
	}

	candidate := apiResp.Candidates[0]

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	result := &Response{Text: strings.TrimSpace(text.String())}

	if gm := candidate.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				result.SearchSources = append(result.SearchSources, chunk.Web.URI)
			}
		}
		if len(result.SearchSources) > 0 {
			slog.Debug("検索グラウンディングを検出しました",
				slog.Int("sources", len(result.SearchSources)),
				slog.Any("queries", gm.WebSearchQueries))
		}
	}

	return result, nil
}
