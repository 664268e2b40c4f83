// Package llm は生成モデルの呼び出しを単一のインターフェースに抽象化します。
// 実装はウェブ検索グラウンディング付きとなしの2種類で、どちらを使うかは
// 設定で選択します。呼び出し側はインターフェースのみに依存します。
package llm

import (
	"context"
	"time"
)

// Response は1回の生成呼び出しの結果です。SearchSources には、モデルが
// 回答の根拠としたウェブ検索ソースの URL が入ります (検索非対応の実装では常に空)。
type Response struct {
	Text          string
	SearchSources []string
}

// SearchOccurred は、この応答の生成でウェブ検索が実際に行われたかを返します。
func (r *Response) SearchOccurred() bool {
	return len(r.SearchSources) > 0
}

// Client は、生成モデルの実行能力を抽象化するインターフェースです。
// これにより、投稿生成のコアロジックから API通信の詳細を分離します。
type Client interface {
	GenerateContent(ctx context.Context, prompt, model string) (*Response, error)
	SupportsWebSearch() bool
}

// Config はクライアント構築の設定です。APIKey が空の場合は環境変数から
// 読み込みます。WebSearch を有効にすると検索グラウンディング対応の実装が
// 選択されます。
type Config struct {
	APIKey    string
	WebSearch bool
	BaseURL   string
	Timeout   time.Duration
}

// NewClient は設定に応じた Client 実装を構築します。
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if cfg.WebSearch {
		return newSearchClient(cfg)
	}
	return newGeminiClient(ctx, cfg.APIKey)
}
