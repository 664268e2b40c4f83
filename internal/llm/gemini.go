package llm

import (
	"context"
	"fmt"

	"github.com/shouni/go-ai-client/v2/pkg/ai/gemini"
)

// geminiClient はウェブ検索なしの標準実装です。
type geminiClient struct {
	client *gemini.Client
}

var _ Client = (*geminiClient)(nil)

func newGeminiClient(ctx context.Context, apiKeyOverride string) (*geminiClient, error) {
	var client *gemini.Client
	var err error

	if apiKeyOverride != "" {
		client, err = gemini.NewClient(ctx, gemini.Config{APIKey: apiKeyOverride})
	} else {
		client, err = gemini.NewClientFromEnv(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("LLMクライアントの初期化に失敗しました。APIキーを確認してください: %w", err)
	}

	return &geminiClient{client: client}, nil
}

func (c *geminiClient) GenerateContent(ctx context.Context, prompt, model string) (*Response, error) {
	resp, err := c.client.GenerateContent(ctx, prompt, model)
	if err != nil {
		return nil, fmt.Errorf("コンテンツ生成に失敗しました: %w", err)
	}
	return &Response{Text: resp.Text}, nil
}

func (c *geminiClient) SupportsWebSearch() bool {
	return false
}
