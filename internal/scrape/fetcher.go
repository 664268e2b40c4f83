// Package scrape は商品ページの取得と、抽出された Markdown からの
// 商品データ (画像・商品名・価格・重量) の構造化を担います。
package scrape

import (
	"context"
	"fmt"
	"log/slog"

	extTypes "github.com/shouni/go-web-exact/v2/pkg/types"
	"github.com/shouni/web-text-pipe-go/pkg/runner"
)

// ScraperRunner は、スクレイピングの実行能力を抽象化するインターフェースです。
// リトライ、遅延、分類のロジックは実行者側で完結します。
type ScraperRunner interface {
	ScrapeInParallel(ctx context.Context, urls []string) []extTypes.URLResult
}

// runner.ReliableScraper がこのパッケージで定義された ScraperRunner インターフェースを満たしているか確認します。
var _ ScraperRunner = (*runner.ReliableScraper)(nil)

// Fetcher は商品ページの一括取得を ScraperRunner に委譲します。
type Fetcher struct {
	scraperRunner ScraperRunner
}

// NewFetcher は Fetcher の新しいインスタンスを作成します。
// ここで注入されるのは、リトライ機能を持つ runner.ReliableScraper です。
func NewFetcher(scraperRunner ScraperRunner) *Fetcher {
	return &Fetcher{scraperRunner: scraperRunner}
}

// Fetch は URL リストを並列スクレイプし、URL からコンテンツへの対応表を返します。
// 個々の URL の失敗は結果から除外されるだけで、全体は失敗しません。
// 1件も取得できなかった場合のみエラーです。
func (f *Fetcher) Fetch(ctx context.Context, urls []string) (map[string]string, error) {
	slog.Info("商品ページの抽出処理を ScraperRunner に委譲します。", slog.Int("total_urls", len(urls)))

	results := f.scraperRunner.ScrapeInParallel(ctx, urls)
	if len(results) == 0 {
		return nil, fmt.Errorf("処理可能な商品ページを一件も取得できませんでした。URLを確認してください。")
	}

	contents := make(map[string]string, len(results))
	for _, res := range results {
		if res.Error != nil {
			slog.Warn("商品ページの取得に失敗しました",
				slog.String("url", res.URL),
				slog.Any("error", res.Error))
			continue
		}
		contents[res.URL] = res.Content
	}
	return contents, nil
}
