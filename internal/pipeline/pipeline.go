package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// ----------------------------------------------------------------
// 定数定義
// ----------------------------------------------------------------

const (
	PhaseInput    = "入力読み込みフェーズ"
	PhaseFetch    = "商品ページ取得フェーズ"
	PhaseGenerate = "投稿生成フェーズ"
	PhasePublish  = "出力公開フェーズ"
)

// Execute はアプリケーションの主要な処理フローを、注入されたステージを通じて実行します。
func (p *Pipeline) Execute(ctx context.Context) error {
	// 1. 入力読み込みステージ
	items, err := p.Source.Read(ctx, p.Options)
	if err != nil {
		return fmt.Errorf("%sでエラーが発生しました: %w", PhaseInput, err)
	}
	slog.Info("投稿生成処理を開始します。", slog.Int("total_items", len(items)))

	// 2. 商品ページ取得ステージ
	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.ItemURL
	}
	pages, err := p.Fetcher.Fetch(ctx, urls)
	if err != nil {
		return fmt.Errorf("%sでエラーが発生しました: %w", PhaseFetch, err)
	}

	// 3. 投稿生成ステージ
	summary, err := p.Executor.Run(ctx, p.Options, items, pages)
	if err != nil {
		return fmt.Errorf("%sでエラーが発生しました: %w", PhaseGenerate, err)
	}

	// 4. 出力公開ステージ
	if err := p.Publisher.Publish(ctx, p.Options, summary); err != nil {
		return fmt.Errorf("%sでエラーが発生しました: %w", PhasePublish, err)
	}

	slog.Info("処理が正常に完了しました。",
		slog.Int("generated", summary.Generated),
		slog.Int("aborted", summary.Aborted))
	return nil
}
